package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/netip"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/service"
	"warungpos/internal/store"
)

type API struct {
	service       *service.Service
	auth          *AuthManager
	allowedOrigin string
	production    bool
	loginLimiter  *attemptLimiter
}

func New(svc *service.Service, auth *AuthManager, allowedOrigin string, production bool) *API {
	return &API{
		service:       svc,
		auth:          auth,
		allowedOrigin: allowedOrigin,
		production:    production,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
	}
}

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	kept = append(kept, now)
	l.entries[key] = kept
	return true
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/api/users/register", a.handleRegister)
	mux.HandleFunc("/api/users/login", a.handleLogin)
	mux.HandleFunc("/api/users/me", a.requireAuth(a.handleMe))
	mux.HandleFunc("/api/users/subscribe", a.requireAuth(a.handleSubscribe))

	mux.HandleFunc("/api/outlets", a.requireAuth(a.handleOutlets))
	mux.HandleFunc("/api/outlets/", a.requireAuth(a.handleOutletActions, domain.RoleOwner))
	mux.HandleFunc("/api/products", a.requireAuth(a.handleProducts))
	mux.HandleFunc("/api/products/", a.requireAuth(a.handleProductActions, domain.RoleOwner))
	mux.HandleFunc("/api/ingredients", a.requireAuth(a.handleIngredients, domain.RoleOwner))
	mux.HandleFunc("/api/ingredients/", a.requireAuth(a.handleIngredientActions, domain.RoleOwner))
	mux.HandleFunc("/api/assets", a.requireAuth(a.handleAssets, domain.RoleOwner))
	mux.HandleFunc("/api/assets/", a.requireAuth(a.handleAssetActions, domain.RoleOwner))
	mux.HandleFunc("/api/expenses", a.requireAuth(a.handleExpenses, domain.RoleOwner))
	mux.HandleFunc("/api/expenses/", a.requireAuth(a.handleExpenseActions, domain.RoleOwner))

	mux.HandleFunc("/api/inventory", a.requireAuth(a.handleSetInventory, domain.RoleOwner))
	mux.HandleFunc("/api/inventory/", a.requireAuth(a.handleInventoryByOutlet))
	mux.HandleFunc("/api/ingredient-stocks", a.requireAuth(a.handleReplenishIngredientStock, domain.RoleOwner))
	mux.HandleFunc("/api/ingredient-stocks/", a.requireAuth(a.handleIngredientStocksByOutlet, domain.RoleOwner))
	mux.HandleFunc("/api/stock-transfers", a.requireAuth(a.handleStockTransfers, domain.RoleOwner))

	mux.HandleFunc("/api/dailylogs", a.requireAuth(a.handleSessions, domain.RoleOwner))
	mux.HandleFunc("/api/dailylogs/start", a.requireAuth(a.handleStartSession, domain.RoleOwner))
	mux.HandleFunc("/api/dailylogs/today", a.requireAuth(a.handleTodaySession))
	mux.HandleFunc("/api/dailylogs/open", a.requireAuth(a.handleOpenSessions, domain.RoleOwner))
	mux.HandleFunc("/api/dailylogs/close", a.requireAuth(a.handleCloseSession))
	mux.HandleFunc("/api/dailylogs/", a.requireAuth(a.handleSessionActions, domain.RoleOwner))

	mux.HandleFunc("/api/transactions", a.requireAuth(a.handleTransactions))
	mux.HandleFunc("/api/transactions/session-sales", a.requireAuth(a.handleSessionSales))

	mux.HandleFunc("/api/summary-reports/monthly", a.requireAuth(a.handleMonthlyReport, domain.RoleOwner))
	mux.HandleFunc("/api/summary-reports/yearly", a.requireAuth(a.handleYearlyReport, domain.RoleOwner))

	return a.withMiddleware(mux)
}

func (a *API) requireAuth(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authorization := strings.TrimSpace(r.Header.Get("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(w, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		token := strings.TrimSpace(authorization[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			a.writeError(w, http.StatusUnauthorized, err)
			return
		}

		if len(roles) > 0 && !isRoleAllowed(actor.Role, roles) {
			a.writeError(w, http.StatusForbidden, errors.New("forbidden role"))
			return
		}

		next(w, r.WithContext(service.WithActor(r.Context(), actor)))
	}
}

func isRoleAllowed(role string, allowed []string) bool {
	for _, allow := range allowed {
		if role == allow {
			return true
		}
	}
	return false
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}

	var req domain.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Password) < 6 {
		a.writeError(w, http.StatusBadRequest, errors.New("password must be at least 6 characters"))
		return
	}

	hash, err := hashPassword(req.Password)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}
	user, err := a.service.RegisterOwner(r.Context(), req.Name, req.Email, hash)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	token, err := a.auth.TokenFor(user)
	if err != nil {
		a.writeError(w, http.StatusInternalServerError, err)
		return
	}

	writeJSON(w, http.StatusCreated, domain.LoginResponse{
		ID:    user.ID,
		Name:  user.Name,
		Email: user.Email,
		Role:  user.Role,
		Token: token,
	})
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	if !a.loginLimiter.Allow(clientKey(r)) {
		a.writeError(w, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req domain.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}

	resp, err := a.auth.Login(r.Context(), req)
	if err != nil {
		a.writeError(w, http.StatusUnauthorized, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	user, err := a.service.CurrentUser(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (a *API) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var sub domain.PushSubscription
	if err := decodeJSON(r, &sub); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := a.service.SavePushSubscription(r.Context(), sub); err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"message": "subscription saved"})
}

func (a *API) handleOutlets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		outlets, err := a.service.ListOutlets(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outlets)
	case http.MethodPost:
		var req domain.OutletRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		outlet, err := a.service.CreateOutlet(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, outlet)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleOutletActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/api/outlets/")
	if id == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("outlet id is required"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.OutletRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		outlet, err := a.service.UpdateOutlet(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, outlet)
	case http.MethodDelete:
		if err := a.service.DeleteOutlet(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleProducts(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		products, err := a.service.ListProducts(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, products)
	case http.MethodPost:
		var req domain.ProductRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.CreateProduct(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, product)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleProductActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/api/products/")
	if id == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("product id is required"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.ProductRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		product, err := a.service.UpdateProduct(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, product)
	case http.MethodDelete:
		if err := a.service.DeleteProduct(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleIngredients(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ingredients, err := a.service.ListIngredients(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ingredients)
	case http.MethodPost:
		var req domain.IngredientRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		ingredient, err := a.service.CreateIngredient(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, ingredient)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleIngredientActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/api/ingredients/")
	if id == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("ingredient id is required"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.IngredientRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		ingredient, err := a.service.UpdateIngredient(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, ingredient)
	case http.MethodDelete:
		if err := a.service.DeleteIngredient(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleAssets(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		assets, err := a.service.ListAssets(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, assets)
	case http.MethodPost:
		var req domain.AssetRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		asset, err := a.service.CreateAsset(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, asset)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleAssetActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/api/assets/")
	if id == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("asset id is required"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.AssetRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		asset, err := a.service.UpdateAsset(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, asset)
	case http.MethodDelete:
		if err := a.service.DeleteAsset(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleExpenses(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		expenses, err := a.service.ListExpenses(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expenses)
	case http.MethodPost:
		var req domain.ExpenseRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		expense, err := a.service.CreateExpense(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, expense)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleExpenseActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/api/expenses/")
	if id == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("expense id is required"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.ExpenseRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		expense, err := a.service.UpdateExpense(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, expense)
	case http.MethodDelete:
		if err := a.service.DeleteExpense(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSetInventory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.SetInventoryRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	inv, err := a.service.SetInventory(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (a *API) handleInventoryByOutlet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	outletID := pathTail(r.URL.Path, "/api/inventory/")
	rows, err := a.service.ListInventory(r.Context(), outletID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleReplenishIngredientStock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.ReplenishIngredientStockRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	row, err := a.service.ReplenishIngredientStock(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (a *API) handleIngredientStocksByOutlet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	outletID := pathTail(r.URL.Path, "/api/ingredient-stocks/")
	rows, err := a.service.ListIngredientStocks(r.Context(), outletID)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleStockTransfers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		transfers, err := a.service.ListTransfers(r.Context())
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, transfers)
	case http.MethodPost:
		var req domain.StockTransferRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		transfer, err := a.service.TransferStock(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, transfer)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	views, err := a.service.ListSessions(r.Context(), r.URL.Query().Get("outletId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (a *API) handleStartSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.StartSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	dlog, err := a.service.StartSession(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, dlog)
}

func (a *API) handleTodaySession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	dlog, err := a.service.TodaySession(r.Context(), r.URL.Query().Get("outletId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	// A missing session is a valid answer, not a 404.
	writeJSON(w, http.StatusOK, dlog)
}

func (a *API) handleOpenSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	logs, err := a.service.ListOpenSessions(r.Context())
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (a *API) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		a.writeMethodNotAllowed(w)
		return
	}
	var req domain.CloseSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		a.writeError(w, http.StatusBadRequest, err)
		return
	}
	dlog, err := a.service.CloseSession(r.Context(), req)
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dlog)
}

func (a *API) handleSessionActions(w http.ResponseWriter, r *http.Request) {
	id := pathTail(r.URL.Path, "/api/dailylogs/")
	if id == "" {
		a.writeError(w, http.StatusBadRequest, errors.New("session id is required"))
		return
	}

	switch r.Method {
	case http.MethodPut:
		var req domain.UpdateSessionRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		dlog, err := a.service.UpdateSession(r.Context(), id, req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, dlog)
	case http.MethodDelete:
		if err := a.service.ResetSession(r.Context(), id); err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id})
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		txs, err := a.service.ListTransactions(r.Context(), r.URL.Query().Get("outletId"))
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, txs)
	case http.MethodPost:
		var req domain.SaleRequest
		if err := decodeJSON(r, &req); err != nil {
			a.writeError(w, http.StatusBadRequest, err)
			return
		}
		tx, err := a.service.RecordSale(r.Context(), req)
		if err != nil {
			a.writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, tx)
	default:
		a.writeMethodNotAllowed(w)
	}
}

func (a *API) handleSessionSales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	total, err := a.service.SessionSales(r.Context(), r.URL.Query().Get("outletId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, domain.SessionSalesResponse{TotalSales: total})
}

func (a *API) handleMonthlyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	year := parseIntQuery(q.Get("year"), time.Now().UTC().Year())
	startMonth := parseIntQuery(q.Get("startMonth"), 1)
	endMonth := parseIntQuery(q.Get("endMonth"), 12)

	report, err := a.service.MonthlyReport(r.Context(), year, startMonth, endMonth, q.Get("outletId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleYearlyReport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		a.writeMethodNotAllowed(w)
		return
	}
	q := r.URL.Query()
	year := parseIntQuery(q.Get("year"), time.Now().UTC().Year())

	report, err := a.service.YearlyReport(r.Context(), year, q.Get("outletId"))
	if err != nil {
		a.writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Access-Control-Allow-Origin", a.allowedOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		w.Header().Set("Vary", "Origin")

		if (r.Method == http.MethodPost || r.Method == http.MethodPut) && strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "application/json") {
			r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		startedAt := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(startedAt))
	})
}

func pathTail(path string, prefix string) string {
	tail := strings.TrimPrefix(path, prefix)
	tail = strings.TrimSuffix(tail, "/")
	if strings.Contains(tail, "/") {
		return ""
	}
	return tail
}

func parseIntQuery(raw string, fallback int) int {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return parsed
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, store.ErrValidation), errors.Is(err, store.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, store.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeServiceError(w http.ResponseWriter, err error) {
	a.writeError(w, statusForError(err), err)
}

func (a *API) writeMethodNotAllowed(w http.ResponseWriter) {
	a.writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// writeError renders the error envelope. 5xx messages are genericized
// in production; outside production a stack trace rides along to ease
// debugging.
func (a *API) writeError(w http.ResponseWriter, status int, err error) {
	msg := err.Error()
	payload := map[string]any{}
	if status >= 500 {
		log.Printf("internal error (status %d): %v", status, err)
		if a.production {
			msg = "internal server error"
		} else {
			payload["stack"] = string(debug.Stack())
		}
	}
	payload["message"] = msg
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
