package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"warungpos/internal/domain"
	"warungpos/internal/notify"
	"warungpos/internal/store"
	"warungpos/internal/store/memory"
)

const (
	seedOwnerID    = "usr-seed-owner"
	seedEmployeeID = "usr-seed-kasir"
	outletPusat    = "out-seed-pusat"
	outletCabang   = "out-seed-cabang"
)

func newTestService() *Service {
	return New(memory.NewSeeded(), nil, nil, 0)
}

func ownerCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		ID:   seedOwnerID,
		Name: "Bu Sari",
		Role: domain.RoleOwner,
	})
}

func employeeCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{
		ID:       seedEmployeeID,
		Name:     "Dimas",
		Role:     domain.RoleEmployee,
		OutletID: outletPusat,
	})
}

func startSession(t *testing.T, svc *Service, ctx context.Context, outletID string, initialCash int64) *domain.DailyLog {
	t.Helper()
	dlog, err := svc.StartSession(ctx, domain.StartSessionRequest{OutletID: outletID, InitialCash: initialCash})
	if err != nil {
		t.Fatalf("start session: %v", err)
	}
	return dlog
}

func TestStartSessionSnapshotsInventoryAndPrices(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	dlog := startSession(t, svc, ctx, outletPusat, 200000)
	if dlog.Status != domain.SessionStatusOpen {
		t.Fatalf("expected OPEN session, got %s", dlog.Status)
	}
	if dlog.StartOfDay.InitialCash != 200000 {
		t.Fatalf("expected initial cash 200000, got %d", dlog.StartOfDay.InitialCash)
	}

	var kopi *domain.ProductSnapshot
	for i := range dlog.StartOfDay.ProductStock {
		if dlog.StartOfDay.ProductStock[i].ProductID == "prd-seed-kopi" {
			kopi = &dlog.StartOfDay.ProductStock[i]
		}
	}
	if kopi == nil {
		t.Fatalf("expected the opening snapshot to include prd-seed-kopi")
	}
	if kopi.Quantity != 50 || kopi.CostPrice != 3000 || kopi.SellingPrice != 5000 {
		t.Fatalf("unexpected snapshot for kopi: %+v", *kopi)
	}
}

func TestStartSessionRejectsSecondOpenSession(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	startSession(t, svc, ctx, outletPusat, 100000)
	_, err := svc.StartSession(ctx, domain.StartSessionRequest{OutletID: outletPusat, InitialCash: 50000})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for duplicate open session, got %v", err)
	}

	// A different outlet may still open its own session.
	startSession(t, svc, ctx, outletCabang, 50000)
}

func TestStartSessionRejectsReopenAfterSameDayClose(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	startSession(t, svc, ctx, outletPusat, 100000)
	if _, err := svc.CloseSession(ctx, domain.CloseSessionRequest{OutletID: outletPusat, FinalCash: 100000}); err != nil {
		t.Fatalf("close session: %v", err)
	}

	_, err := svc.StartSession(ctx, domain.StartSessionRequest{OutletID: outletPusat, InitialCash: 100000})
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict when reopening on the same day, got %v", err)
	}
}

func TestSessionOpeningAndUpdatingAreOwnerOnly(t *testing.T) {
	svc := newTestService()

	_, err := svc.StartSession(employeeCtx(), domain.StartSessionRequest{OutletID: outletPusat, InitialCash: 10000})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for employee opening a session, got %v", err)
	}

	dlog := startSession(t, svc, ownerCtx(), outletPusat, 10000)

	_, err = svc.UpdateSession(employeeCtx(), dlog.ID, domain.UpdateSessionRequest{InitialCash: 20000})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for employee updating a session, got %v", err)
	}

	// Running the register stays with the employee: sales and the close
	// itself work at their own outlet.
	if _, err := svc.RecordSale(employeeCtx(), domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-teh", Quantity: 1}},
	}); err != nil {
		t.Fatalf("record sale as employee: %v", err)
	}
	if _, err := svc.CloseSession(employeeCtx(), domain.CloseSessionRequest{OutletID: outletPusat, FinalCash: 13000}); err != nil {
		t.Fatalf("close session as employee: %v", err)
	}
}

func TestEmployeeForbiddenOutsideTheirOutlet(t *testing.T) {
	svc := newTestService()
	startSession(t, svc, ownerCtx(), outletCabang, 5000)

	_, err := svc.CloseSession(employeeCtx(), domain.CloseSessionRequest{OutletID: outletCabang, FinalCash: 5000})
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for foreign outlet, got %v", err)
	}
}

type sentPush struct {
	endpoint string
	title    string
}

type recordingSender struct {
	mu   sync.Mutex
	sent []sentPush
}

func (r *recordingSender) Send(_ context.Context, sub domain.PushSubscription, msg notify.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sentPush{endpoint: sub.Endpoint, title: msg.Title})
	return nil
}

func (r *recordingSender) endpointsWithTitle(substr string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	endpoints := make([]string, 0, len(r.sent))
	for _, p := range r.sent {
		if strings.Contains(p.title, substr) {
			endpoints = append(endpoints, p.endpoint)
		}
	}
	return endpoints
}

func TestCloseSessionNotifiesEmployeesAndOwner(t *testing.T) {
	repo := memory.NewSeeded()
	sender := &recordingSender{}
	svc := New(repo, sender, nil, 0)
	ctx := ownerCtx()

	if err := repo.AddPushSubscription(ctx, seedEmployeeID, domain.PushSubscription{Endpoint: "https://push.test/kasir"}); err != nil {
		t.Fatalf("subscribe employee: %v", err)
	}
	if err := repo.AddPushSubscription(ctx, seedOwnerID, domain.PushSubscription{Endpoint: "https://push.test/owner"}); err != nil {
		t.Fatalf("subscribe owner: %v", err)
	}

	startSession(t, svc, ctx, outletPusat, 10000)
	if _, err := svc.CloseSession(ctx, domain.CloseSessionRequest{OutletID: outletPusat, FinalCash: 10000}); err != nil {
		t.Fatalf("close session: %v", err)
	}

	closed := sender.endpointsWithTitle("ditutup")
	wantReached := func(endpoint string) {
		for _, e := range closed {
			if e == endpoint {
				return
			}
		}
		t.Fatalf("expected close push to reach %s, got %v", endpoint, closed)
	}
	wantReached("https://push.test/kasir")
	wantReached("https://push.test/owner")
}

func TestRecordSaleEndToEnd(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	product, err := svc.CreateProduct(ctx, domain.ProductRequest{
		Name:         "Nasi Uduk",
		Category:     "makanan",
		CostPrice:    3000,
		SellingPrice: 5000,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	if _, err := svc.SetInventory(ctx, domain.SetInventoryRequest{ProductID: product.ID, OutletID: outletPusat, Stock: 10}); err != nil {
		t.Fatalf("set inventory: %v", err)
	}

	startSession(t, svc, ctx, outletPusat, 100000)

	tx, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: product.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if tx.TotalAmount != 15000 {
		t.Fatalf("expected revenue 15000, got %d", tx.TotalAmount)
	}
	if tx.TotalCostPrice != 9000 {
		t.Fatalf("expected COGS 9000, got %d", tx.TotalCostPrice)
	}

	inventory, err := svc.ListInventory(ctx, outletPusat)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	for _, inv := range inventory {
		if inv.ProductID == product.ID && inv.Stock != 7 {
			t.Fatalf("expected stock 7 after selling 3 of 10, got %d", inv.Stock)
		}
	}

	closed, err := svc.CloseSession(ctx, domain.CloseSessionRequest{OutletID: outletPusat, FinalCash: 115000})
	if err != nil {
		t.Fatalf("close session: %v", err)
	}
	if closed.Calculated == nil {
		t.Fatalf("expected calculated totals on the closed session")
	}
	want := domain.SessionTotals{TotalRevenue: 15000, TotalCOGS: 9000, GrossProfit: 6000, TotalExpense: 0, NetProfit: 6000}
	if *closed.Calculated != want {
		t.Fatalf("unexpected totals: got %+v want %+v", *closed.Calculated, want)
	}
}

func TestRecordSaleInsufficientStockLeavesInventoryUntouched(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	startSession(t, svc, ctx, outletPusat, 50000)

	_, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-kopi", Quantity: 999}},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	inventory, err := svc.ListInventory(ctx, outletPusat)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	for _, inv := range inventory {
		if inv.ProductID == "prd-seed-kopi" && inv.Stock != 50 {
			t.Fatalf("expected kopi stock unchanged at 50, got %d", inv.Stock)
		}
	}
}

func TestRecordSaleBundleDecrementsPiecesNotLines(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	startSession(t, svc, ctx, outletPusat, 50000)

	// Gorengan sells in bundles of 3 pieces: 2 cart lines take 6 pieces
	// from stock while revenue and COGS count the 2 sold units.
	tx, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-gorengan", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if tx.TotalAmount != 2000 || tx.TotalCostPrice != 1000 {
		t.Fatalf("expected revenue 2000 and COGS 1000, got %d / %d", tx.TotalAmount, tx.TotalCostPrice)
	}

	inventory, err := svc.ListInventory(ctx, outletPusat)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	for _, inv := range inventory {
		if inv.ProductID == "prd-seed-gorengan" && inv.Stock != 84 {
			t.Fatalf("expected gorengan stock 84 after 6 pieces sold, got %d", inv.Stock)
		}
	}
}

func TestRecordSaleDeductsRecipeIngredients(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	startSession(t, svc, ctx, outletPusat, 50000)

	// Kopi Susu uses 10g kopi and 15g gula per cup.
	if _, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-kopi", Quantity: 2}},
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	stocks, err := svc.ListIngredientStocks(ctx, outletPusat)
	if err != nil {
		t.Fatalf("list ingredient stocks: %v", err)
	}
	for _, is := range stocks {
		switch is.IngredientID {
		case "ing-seed-kopi":
			if is.Stock != 1980 {
				t.Fatalf("expected kopi ingredient stock 1980, got %v", is.Stock)
			}
		case "ing-seed-gula":
			if is.Stock != 4970 {
				t.Fatalf("expected gula ingredient stock 4970, got %v", is.Stock)
			}
		}
	}
}

func TestRecordSaleRequiresOpenSession(t *testing.T) {
	svc := newTestService()

	_, err := svc.RecordSale(ownerCtx(), domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-kopi", Quantity: 1}},
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error without an open session, got %v", err)
	}
}

func TestSessionSalesTracksOpenSessionRevenue(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	total, err := svc.SessionSales(ctx, outletPusat)
	if err != nil || total != 0 {
		t.Fatalf("expected 0 sales without a session, got %d (%v)", total, err)
	}

	startSession(t, svc, ctx, outletPusat, 50000)
	if _, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-teh", Quantity: 4}},
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	total, err = svc.SessionSales(ctx, outletPusat)
	if err != nil {
		t.Fatalf("session sales: %v", err)
	}
	if total != 12000 {
		t.Fatalf("expected session sales 12000, got %d", total)
	}
}

func TestCloseSessionIncludesSameDayExpenses(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	startSession(t, svc, ctx, outletPusat, 50000)

	if _, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-teh", Quantity: 5}},
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	if _, err := svc.CreateExpense(ctx, domain.ExpenseRequest{
		OutletID:    outletPusat,
		Description: "Gas 3kg",
		Amount:      2000,
		Category:    "operasional",
	}); err != nil {
		t.Fatalf("create expense: %v", err)
	}

	closed, err := svc.CloseSession(ctx, domain.CloseSessionRequest{OutletID: outletPusat, FinalCash: 65000})
	if err != nil {
		t.Fatalf("close session: %v", err)
	}
	// 5 cups of tea at 3000 with cost 1000 each, minus the gas refill.
	want := domain.SessionTotals{TotalRevenue: 15000, TotalCOGS: 5000, GrossProfit: 10000, TotalExpense: 2000, NetProfit: 8000}
	if *closed.Calculated != want {
		t.Fatalf("unexpected totals: got %+v want %+v", *closed.Calculated, want)
	}
}

func TestProductReportReconcilesCounts(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	startSession(t, svc, ctx, outletPusat, 50000)

	if _, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-teh", Quantity: 10}},
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}

	if _, err := svc.CloseSession(ctx, domain.CloseSessionRequest{
		OutletID:  outletPusat,
		FinalCash: 80000,
		RemainingProductStock: []domain.ProductCount{
			{ProductID: "prd-seed-teh", Quantity: 68},
		},
	}); err != nil {
		t.Fatalf("close session: %v", err)
	}

	views, err := svc.ListSessions(ctx, outletPusat)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(views) != 1 {
		t.Fatalf("expected one session view, got %d", len(views))
	}

	var teh *domain.ProductReportRow
	for i := range views[0].ProductReport {
		if views[0].ProductReport[i].ProductID == "prd-seed-teh" {
			teh = &views[0].ProductReport[i]
		}
	}
	if teh == nil {
		t.Fatalf("expected teh in the product report")
	}
	if teh.Initial != 80 || teh.Sold != 10 || teh.Theoretical != 70 {
		t.Fatalf("unexpected counts: %+v", *teh)
	}
	if teh.Physical == nil || *teh.Physical != 68 {
		t.Fatalf("expected physical count 68, got %v", teh.Physical)
	}
	// Two cups short of theory: the discrepancy surfaces as -2.
	if teh.Discrepancy == nil || *teh.Discrepancy != -2 {
		t.Fatalf("expected discrepancy -2, got %v", teh.Discrepancy)
	}
	if teh.Revenue != 30000 {
		t.Fatalf("expected teh revenue 30000, got %d", teh.Revenue)
	}
}

func TestReplenishIngredientStockWeightedAverage(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	// Existing row: 2000g at avg 120. Buying 1000g for 100000 moves the
	// average to (120*2000 + 100000) / 3000.
	row, err := svc.ReplenishIngredientStock(ctx, domain.ReplenishIngredientStockRequest{
		IngredientID:     "ing-seed-kopi",
		OutletID:         outletPusat,
		PurchaseQuantity: 1000,
		PurchaseCost:     100000,
	})
	if err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if row.Stock != 3000 {
		t.Fatalf("expected stock 3000, got %v", row.Stock)
	}
	wantAvg := (120.0*2000 + 100000) / 3000
	if math.Abs(row.AverageCostPrice-wantAvg) > 1e-9 {
		t.Fatalf("expected average %v, got %v", wantAvg, row.AverageCostPrice)
	}
}

func TestReplenishIngredientStockCreatesFreshRow(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	row, err := svc.ReplenishIngredientStock(ctx, domain.ReplenishIngredientStockRequest{
		IngredientID:     "ing-seed-kopi",
		OutletID:         outletCabang,
		PurchaseQuantity: 500,
		PurchaseCost:     60000,
	})
	if err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if row.Stock != 500 || row.AverageCostPrice != 120 {
		t.Fatalf("expected fresh row 500 @ 120, got %v @ %v", row.Stock, row.AverageCostPrice)
	}
}

func TestReplenishIngredientStockRejectsNonPositiveQuantity(t *testing.T) {
	svc := newTestService()

	_, err := svc.ReplenishIngredientStock(ownerCtx(), domain.ReplenishIngredientStockRequest{
		IngredientID:     "ing-seed-kopi",
		OutletID:         outletPusat,
		PurchaseQuantity: 0,
		PurchaseCost:     1000,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransferStockMovesInventoryBetweenOutlets(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	if _, err := svc.TransferStock(ctx, domain.StockTransferRequest{
		FromOutletID: outletPusat,
		ToOutletID:   outletCabang,
		ProductID:    "prd-seed-kopi",
		Quantity:     10,
	}); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	check := func(outletID string, want int) {
		t.Helper()
		inventory, err := svc.ListInventory(ctx, outletID)
		if err != nil {
			t.Fatalf("list inventory: %v", err)
		}
		for _, inv := range inventory {
			if inv.ProductID == "prd-seed-kopi" && inv.Stock != want {
				t.Fatalf("expected kopi stock %d at %s, got %d", want, outletID, inv.Stock)
			}
		}
	}
	check(outletPusat, 40)
	check(outletCabang, 30)

	_, err := svc.TransferStock(ctx, domain.StockTransferRequest{
		FromOutletID: outletPusat,
		ToOutletID:   outletCabang,
		ProductID:    "prd-seed-kopi",
		Quantity:     500,
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
	check(outletPusat, 40)
	check(outletCabang, 30)
}

func TestDeleteIngredientRejectedWhileUsedInRecipes(t *testing.T) {
	svc := newTestService()

	err := svc.DeleteIngredient(ownerCtx(), "ing-seed-gula")
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for in-use ingredient, got %v", err)
	}
}

func TestCreateProductRejectsSellingBelowCost(t *testing.T) {
	svc := newTestService()

	_, err := svc.CreateProduct(ownerCtx(), domain.ProductRequest{
		Name:         "Rugi Terus",
		CostPrice:    5000,
		SellingPrice: 4000,
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTodaySessionAnswersNilWithoutSession(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	dlog, err := svc.TodaySession(ctx, outletPusat)
	if err != nil {
		t.Fatalf("today session: %v", err)
	}
	if dlog != nil {
		t.Fatalf("expected nil session, got %+v", dlog)
	}

	opened := startSession(t, svc, ctx, outletPusat, 10000)
	dlog, err = svc.TodaySession(ctx, outletPusat)
	if err != nil {
		t.Fatalf("today session: %v", err)
	}
	if dlog == nil || dlog.ID != opened.ID {
		t.Fatalf("expected the open session back, got %+v", dlog)
	}
}

func TestUpdateSessionOnlyWhileOpen(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	opened := startSession(t, svc, ctx, outletPusat, 10000)
	updated, err := svc.UpdateSession(ctx, opened.ID, domain.UpdateSessionRequest{InitialCash: 25000})
	if err != nil {
		t.Fatalf("update session: %v", err)
	}
	if updated.StartOfDay.InitialCash != 25000 {
		t.Fatalf("expected corrected initial cash, got %d", updated.StartOfDay.InitialCash)
	}

	if _, err := svc.CloseSession(ctx, domain.CloseSessionRequest{OutletID: outletPusat, FinalCash: 25000}); err != nil {
		t.Fatalf("close session: %v", err)
	}
	_, err = svc.UpdateSession(ctx, opened.ID, domain.UpdateSessionRequest{InitialCash: 30000})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("expected validation error for closed session, got %v", err)
	}
}

func TestResetSessionDeletesTheLog(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()

	opened := startSession(t, svc, ctx, outletPusat, 10000)
	if err := svc.ResetSession(ctx, opened.ID); err != nil {
		t.Fatalf("reset session: %v", err)
	}

	dlog, err := svc.TodaySession(ctx, outletPusat)
	if err != nil {
		t.Fatalf("today session: %v", err)
	}
	if dlog != nil {
		t.Fatalf("expected no session after reset, got %+v", dlog)
	}

	// Resetting clears the way for a fresh open on the same day.
	startSession(t, svc, ctx, outletPusat, 15000)
}

func TestMonthlyReportAggregatesClosedSessions(t *testing.T) {
	svc := newTestService()
	ctx := ownerCtx()
	startSession(t, svc, ctx, outletPusat, 50000)

	if _, err := svc.RecordSale(ctx, domain.SaleRequest{
		OutletID: outletPusat,
		Cart:     []domain.CartLine{{ProductID: "prd-seed-teh", Quantity: 2}},
	}); err != nil {
		t.Fatalf("record sale: %v", err)
	}
	closed, err := svc.CloseSession(ctx, domain.CloseSessionRequest{OutletID: outletPusat, FinalCash: 56000})
	if err != nil {
		t.Fatalf("close session: %v", err)
	}

	year := closed.CreatedAt.UTC().Year()
	month := int(closed.CreatedAt.UTC().Month())
	report, err := svc.MonthlyReport(ctx, year, month, month, outletPusat)
	if err != nil {
		t.Fatalf("monthly report: %v", err)
	}
	if report.SessionCount != 1 || report.TransactionCount != 1 {
		t.Fatalf("expected 1 session and 1 transaction, got %d / %d", report.SessionCount, report.TransactionCount)
	}
	if report.TotalRevenue != 6000 {
		t.Fatalf("expected revenue 6000, got %d", report.TotalRevenue)
	}

	yearly, err := svc.YearlyReport(ctx, year, outletPusat)
	if err != nil {
		t.Fatalf("yearly report: %v", err)
	}
	if len(yearly.Months) != 1 || yearly.Months[0].Month != month {
		t.Fatalf("expected a single month %d in the yearly report, got %+v", month, yearly.Months)
	}
	if yearly.Total.TotalRevenue != 6000 {
		t.Fatalf("expected yearly revenue 6000, got %d", yearly.Total.TotalRevenue)
	}
}

func TestMonthlyReportRequiresOwner(t *testing.T) {
	svc := newTestService()

	_, err := svc.MonthlyReport(employeeCtx(), 2026, 1, 3, outletPusat)
	if !errors.Is(err, store.ErrForbidden) {
		t.Fatalf("expected forbidden for employee, got %v", err)
	}
}

func TestRegisterOwnerRejectsDuplicateEmail(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if _, err := svc.RegisterOwner(ctx, "Pak Budi", "budi@warung.test", "$2a$10$abcdefghijklmnopqrstuv"); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.RegisterOwner(ctx, "Budi Lagi", "budi@warung.test", "$2a$10$abcdefghijklmnopqrstuv")
	if !errors.Is(err, store.ErrConflict) {
		t.Fatalf("expected conflict for duplicate email, got %v", err)
	}
}

func TestListOutletsScopedByRole(t *testing.T) {
	svc := newTestService()

	owned, err := svc.ListOutlets(ownerCtx())
	if err != nil {
		t.Fatalf("list outlets: %v", err)
	}
	if len(owned) != 2 {
		t.Fatalf("expected owner to see 2 outlets, got %d", len(owned))
	}

	mine, err := svc.ListOutlets(employeeCtx())
	if err != nil {
		t.Fatalf("list outlets: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != outletPusat {
		t.Fatalf("expected employee to see only their outlet, got %+v", mine)
	}
}
