package memory

import (
	"context"
	"fmt"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"warungpos/internal/domain"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

type Store struct {
	mu               sync.RWMutex
	usersByID        map[string]domain.User
	userIDByEmail    map[string]string
	outletsByID      map[string]domain.Outlet
	productsByID     map[string]domain.Product
	ingredientsByID  map[string]domain.Ingredient
	assetsByID       map[string]domain.Asset
	expensesByID     map[string]domain.Expense
	inventoryByKey   map[string]domain.Inventory
	ingStocksByKey   map[string]domain.IngredientStock
	transfers        []domain.StockTransfer
	dailyLogsByID    map[string]domain.DailyLog
	transactionsByID map[string]domain.Transaction
}

func New() *Store {
	return &Store{
		usersByID:        make(map[string]domain.User),
		userIDByEmail:    make(map[string]string),
		outletsByID:      make(map[string]domain.Outlet),
		productsByID:     make(map[string]domain.Product),
		ingredientsByID:  make(map[string]domain.Ingredient),
		assetsByID:       make(map[string]domain.Asset),
		expensesByID:     make(map[string]domain.Expense),
		inventoryByKey:   make(map[string]domain.Inventory),
		ingStocksByKey:   make(map[string]domain.IngredientStock),
		transfers:        make([]domain.StockTransfer, 0, 16),
		dailyLogsByID:    make(map[string]domain.DailyLog),
		transactionsByID: make(map[string]domain.Transaction),
	}
}

// seedUsers builds the initial accounts for dev/demo mode. Credentials
// come from SEED_OWNER_PASSWORD and SEED_EMPLOYEE_PASSWORD; hardcoded
// dev defaults are used with a warning when unset. These accounts are
// never used in production (the backend uses PostgreSQL when
// DATABASE_URL is set).
func seedUsers(s *Store, now time.Time) {
	ownerPwd := envOr("SEED_OWNER_PASSWORD", "owner123")
	employeePwd := envOr("SEED_EMPLOYEE_PASSWORD", "kasir123")
	if os.Getenv("SEED_OWNER_PASSWORD") == "" || os.Getenv("SEED_EMPLOYEE_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_OWNER_PASSWORD and SEED_EMPLOYEE_PASSWORD to override.")
	}

	for _, u := range []struct {
		id       string
		name     string
		email    string
		password string
		role     string
		outletID string
	}{
		{"usr-seed-owner", "Bu Sari", "sari@warung.test", ownerPwd, domain.RoleOwner, ""},
		{"usr-seed-kasir", "Dimas", "dimas@warung.test", employeePwd, domain.RoleEmployee, "out-seed-pusat"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.email, err)
		}
		s.usersByID[u.id] = domain.User{
			ID:        u.id,
			Name:      u.name,
			Email:     u.email,
			Password:  string(hash),
			Role:      u.role,
			Verified:  true,
			OutletID:  u.outletID,
			CreatedAt: now,
		}
		s.userIDByEmail[u.email] = u.id
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()
	seedUsers(s, now)

	owner := "usr-seed-owner"

	for _, o := range []domain.Outlet{
		{ID: "out-seed-pusat", OwnerID: owner, Name: "Warung Pusat", Address: "Jl. Melati No. 1", CreatedAt: now},
		{ID: "out-seed-cabang", OwnerID: owner, Name: "Cabang Pasar", Address: "Pasar Baru Blok C", CreatedAt: now},
	} {
		s.outletsByID[o.ID] = o
	}

	for _, ing := range []domain.Ingredient{
		{ID: "ing-seed-kopi", OwnerID: owner, Name: "Kopi Bubuk", Unit: "gram", CreatedAt: now},
		{ID: "ing-seed-gula", OwnerID: owner, Name: "Gula Pasir", Unit: "gram", CreatedAt: now},
		{ID: "ing-seed-mie", OwnerID: owner, Name: "Mie Kering", Unit: "pcs", CreatedAt: now},
		{ID: "ing-seed-telur", OwnerID: owner, Name: "Telur", Unit: "butir", CreatedAt: now},
	} {
		s.ingredientsByID[ing.ID] = ing
	}

	for _, p := range []domain.Product{
		{ID: "prd-seed-kopi", OwnerID: owner, Name: "Kopi Susu", Category: "minuman", CostPrice: 3000, SellingPrice: 5000, BundleQuantity: 1,
			Recipe: []domain.RecipeItem{{IngredientID: "ing-seed-kopi", Quantity: 10}, {IngredientID: "ing-seed-gula", Quantity: 15}}, CreatedAt: now},
		{ID: "prd-seed-mie", OwnerID: owner, Name: "Mie Goreng Spesial", Category: "makanan", CostPrice: 6000, SellingPrice: 10000, BundleQuantity: 1,
			Recipe: []domain.RecipeItem{{IngredientID: "ing-seed-mie", Quantity: 1}, {IngredientID: "ing-seed-telur", Quantity: 1}}, CreatedAt: now},
		{ID: "prd-seed-teh", OwnerID: owner, Name: "Es Teh Manis", Category: "minuman", CostPrice: 1000, SellingPrice: 3000, BundleQuantity: 1,
			Recipe: []domain.RecipeItem{{IngredientID: "ing-seed-gula", Quantity: 20}}, CreatedAt: now},
		{ID: "prd-seed-gorengan", OwnerID: owner, Name: "Gorengan", Category: "makanan", CostPrice: 500, SellingPrice: 1000, BundleQuantity: 3, CreatedAt: now},
	} {
		s.productsByID[p.ID] = p
	}

	for _, inv := range []domain.Inventory{
		{ProductID: "prd-seed-kopi", OutletID: "out-seed-pusat", Stock: 50},
		{ProductID: "prd-seed-mie", OutletID: "out-seed-pusat", Stock: 40},
		{ProductID: "prd-seed-teh", OutletID: "out-seed-pusat", Stock: 80},
		{ProductID: "prd-seed-gorengan", OutletID: "out-seed-pusat", Stock: 90},
		{ProductID: "prd-seed-kopi", OutletID: "out-seed-cabang", Stock: 20},
		{ProductID: "prd-seed-teh", OutletID: "out-seed-cabang", Stock: 30},
	} {
		inv.ID = xid.New("inv")
		inv.UpdatedAt = now
		s.inventoryByKey[invKey(inv.ProductID, inv.OutletID)] = inv
	}

	for _, is := range []domain.IngredientStock{
		{IngredientID: "ing-seed-kopi", OutletID: "out-seed-pusat", Stock: 2000, AverageCostPrice: 120},
		{IngredientID: "ing-seed-gula", OutletID: "out-seed-pusat", Stock: 5000, AverageCostPrice: 14},
		{IngredientID: "ing-seed-mie", OutletID: "out-seed-pusat", Stock: 60, AverageCostPrice: 2500},
		{IngredientID: "ing-seed-telur", OutletID: "out-seed-pusat", Stock: 90, AverageCostPrice: 2200},
	} {
		is.ID = xid.New("ist")
		is.UpdatedAt = now
		s.ingStocksByKey[invKey(is.IngredientID, is.OutletID)] = is
	}

	for _, a := range []domain.Asset{
		{ID: "ast-seed-gerobak", OwnerID: owner, Name: "Gerobak", CreatedAt: now},
		{ID: "ast-seed-termos", OwnerID: owner, Name: "Termos Es", CreatedAt: now},
		{ID: "ast-seed-kursi", OwnerID: owner, Name: "Kursi Plastik", CreatedAt: now},
	} {
		s.assetsByID[a.ID] = a
	}

	return s
}

func invKey(entityID, outletID string) string {
	return entityID + "|" + outletID
}

func cmpString(a, b string) int {
	return strings.Compare(a, b)
}

func cmpNewestFirst(a, b time.Time) int {
	if a.After(b) {
		return -1
	}
	if b.After(a) {
		return 1
	}
	return 0
}

func cloneUser(u domain.User) domain.User {
	u.PushSubscriptions = slices.Clone(u.PushSubscriptions)
	return u
}

func cloneProduct(p domain.Product) domain.Product {
	p.Recipe = slices.Clone(p.Recipe)
	return p
}

func cloneDailyLog(d domain.DailyLog) domain.DailyLog {
	d.StartOfDay.AssetStock = slices.Clone(d.StartOfDay.AssetStock)
	d.StartOfDay.ProductStock = slices.Clone(d.StartOfDay.ProductStock)
	d.TransactionIDs = slices.Clone(d.TransactionIDs)
	if d.EndOfDay != nil {
		end := *d.EndOfDay
		end.RemainingAssetStock = slices.Clone(end.RemainingAssetStock)
		end.RemainingProductStock = slices.Clone(end.RemainingProductStock)
		d.EndOfDay = &end
	}
	if d.Calculated != nil {
		calc := *d.Calculated
		d.Calculated = &calc
	}
	return d
}

func cloneTransaction(t domain.Transaction) domain.Transaction {
	t.Items = slices.Clone(t.Items)
	return t
}

// --- users ---

func (s *Store) CreateUser(_ context.Context, user domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if email == "" || user.Name == "" || user.Password == "" {
		return nil, fmt.Errorf("%w: name, email and password are required", store.ErrValidation)
	}
	if _, exists := s.userIDByEmail[email]; exists {
		return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
	}

	user.Email = email
	s.usersByID[user.ID] = user
	s.userIDByEmail[email] = user.ID
	created := cloneUser(user)
	return &created, nil
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.userIDByEmail[strings.ToLower(strings.TrimSpace(email))]
	if !exists {
		return nil, store.ErrNotFound
	}
	user := cloneUser(s.usersByID[id])
	return &user, nil
}

func (s *Store) GetUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneUser(user)
	return &copied, nil
}

func (s *Store) ListUsersByOutlet(_ context.Context, outletID string) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.User, 0, 4)
	for _, u := range s.usersByID {
		if u.OutletID == outletID {
			users = append(users, cloneUser(u))
		}
	}
	slices.SortFunc(users, func(a, b domain.User) int { return cmpString(a.Name, b.Name) })
	return users, nil
}

func (s *Store) AddPushSubscription(_ context.Context, userID string, sub domain.PushSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByID[userID]
	if !exists {
		return store.ErrNotFound
	}
	for _, existing := range user.PushSubscriptions {
		if existing.Endpoint == sub.Endpoint {
			return nil
		}
	}
	user.PushSubscriptions = append(slices.Clone(user.PushSubscriptions), sub)
	s.usersByID[userID] = user
	return nil
}

func (s *Store) RemovePushSubscription(_ context.Context, userID string, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByID[userID]
	if !exists {
		return store.ErrNotFound
	}
	kept := make([]domain.PushSubscription, 0, len(user.PushSubscriptions))
	for _, sub := range user.PushSubscriptions {
		if sub.Endpoint != endpoint {
			kept = append(kept, sub)
		}
	}
	user.PushSubscriptions = kept
	s.usersByID[userID] = user
	return nil
}

// --- outlets ---

func (s *Store) CreateOutlet(_ context.Context, outlet domain.Outlet) (*domain.Outlet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.outletsByID {
		if existing.OwnerID == outlet.OwnerID && strings.EqualFold(existing.Name, outlet.Name) {
			return nil, fmt.Errorf("%w: outlet name already used", store.ErrConflict)
		}
	}
	s.outletsByID[outlet.ID] = outlet
	created := outlet
	return &created, nil
}

func (s *Store) GetOutletByID(_ context.Context, id string) (*domain.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outlet, exists := s.outletsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := outlet
	return &copied, nil
}

func (s *Store) ListOutletsByOwner(_ context.Context, ownerID string) ([]domain.Outlet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	outlets := make([]domain.Outlet, 0, 4)
	for _, o := range s.outletsByID {
		if o.OwnerID == ownerID {
			outlets = append(outlets, o)
		}
	}
	slices.SortFunc(outlets, func(a, b domain.Outlet) int { return cmpString(a.Name, b.Name) })
	return outlets, nil
}

func (s *Store) UpdateOutlet(_ context.Context, outlet domain.Outlet) (*domain.Outlet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outletsByID[outlet.ID]; !exists {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.outletsByID {
		if existing.ID != outlet.ID && existing.OwnerID == outlet.OwnerID && strings.EqualFold(existing.Name, outlet.Name) {
			return nil, fmt.Errorf("%w: outlet name already used", store.ErrConflict)
		}
	}
	s.outletsByID[outlet.ID] = outlet
	updated := outlet
	return &updated, nil
}

func (s *Store) DeleteOutlet(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outletsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.outletsByID, id)
	return nil
}

// --- products ---

func (s *Store) CreateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.productsByID[product.ID] = cloneProduct(product)
	created := cloneProduct(product)
	return &created, nil
}

func (s *Store) GetProductByID(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	product, exists := s.productsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneProduct(product)
	return &copied, nil
}

func (s *Store) ListProductsByOwner(_ context.Context, ownerID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.productsByID))
	for _, p := range s.productsByID {
		if p.OwnerID == ownerID {
			products = append(products, cloneProduct(p))
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int { return cmpString(a.Name, b.Name) })
	return products, nil
}

func (s *Store) UpdateProduct(_ context.Context, product domain.Product) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[product.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.productsByID[product.ID] = cloneProduct(product)
	updated := cloneProduct(product)
	return &updated, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.productsByID, id)
	for key, inv := range s.inventoryByKey {
		if inv.ProductID == id {
			delete(s.inventoryByKey, key)
		}
	}
	return nil
}

func (s *Store) ListProductsUsingIngredient(_ context.Context, ownerID string, ingredientID string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, 2)
	for _, p := range s.productsByID {
		if p.OwnerID != ownerID {
			continue
		}
		for _, item := range p.Recipe {
			if item.IngredientID == ingredientID {
				products = append(products, cloneProduct(p))
				break
			}
		}
	}
	slices.SortFunc(products, func(a, b domain.Product) int { return cmpString(a.Name, b.Name) })
	return products, nil
}

// --- ingredients ---

func (s *Store) CreateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.ingredientsByID {
		if existing.OwnerID == ingredient.OwnerID && strings.EqualFold(existing.Name, ingredient.Name) {
			return nil, fmt.Errorf("%w: ingredient name already used", store.ErrConflict)
		}
	}
	s.ingredientsByID[ingredient.ID] = ingredient
	created := ingredient
	return &created, nil
}

func (s *Store) GetIngredientByID(_ context.Context, id string) (*domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredient, exists := s.ingredientsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := ingredient
	return &copied, nil
}

func (s *Store) ListIngredientsByOwner(_ context.Context, ownerID string) ([]domain.Ingredient, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ingredients := make([]domain.Ingredient, 0, len(s.ingredientsByID))
	for _, ing := range s.ingredientsByID {
		if ing.OwnerID == ownerID {
			ingredients = append(ingredients, ing)
		}
	}
	slices.SortFunc(ingredients, func(a, b domain.Ingredient) int { return cmpString(a.Name, b.Name) })
	return ingredients, nil
}

func (s *Store) UpdateIngredient(_ context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredientsByID[ingredient.ID]; !exists {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.ingredientsByID {
		if existing.ID != ingredient.ID && existing.OwnerID == ingredient.OwnerID && strings.EqualFold(existing.Name, ingredient.Name) {
			return nil, fmt.Errorf("%w: ingredient name already used", store.ErrConflict)
		}
	}
	s.ingredientsByID[ingredient.ID] = ingredient
	updated := ingredient
	return &updated, nil
}

func (s *Store) DeleteIngredient(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.ingredientsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.ingredientsByID, id)
	for key, is := range s.ingStocksByKey {
		if is.IngredientID == id {
			delete(s.ingStocksByKey, key)
		}
	}
	return nil
}

// --- assets ---

func (s *Store) CreateAsset(_ context.Context, asset domain.Asset) (*domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.assetsByID {
		if existing.OwnerID == asset.OwnerID && strings.EqualFold(existing.Name, asset.Name) {
			return nil, fmt.Errorf("%w: asset name already used", store.ErrConflict)
		}
	}
	s.assetsByID[asset.ID] = asset
	created := asset
	return &created, nil
}

func (s *Store) GetAssetByID(_ context.Context, id string) (*domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	asset, exists := s.assetsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := asset
	return &copied, nil
}

func (s *Store) ListAssetsByOwner(_ context.Context, ownerID string) ([]domain.Asset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	assets := make([]domain.Asset, 0, len(s.assetsByID))
	for _, a := range s.assetsByID {
		if a.OwnerID == ownerID {
			assets = append(assets, a)
		}
	}
	slices.SortFunc(assets, func(a, b domain.Asset) int { return cmpString(a.Name, b.Name) })
	return assets, nil
}

func (s *Store) UpdateAsset(_ context.Context, asset domain.Asset) (*domain.Asset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assetsByID[asset.ID]; !exists {
		return nil, store.ErrNotFound
	}
	for _, existing := range s.assetsByID {
		if existing.ID != asset.ID && existing.OwnerID == asset.OwnerID && strings.EqualFold(existing.Name, asset.Name) {
			return nil, fmt.Errorf("%w: asset name already used", store.ErrConflict)
		}
	}
	s.assetsByID[asset.ID] = asset
	updated := asset
	return &updated, nil
}

func (s *Store) DeleteAsset(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.assetsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.assetsByID, id)
	return nil
}

// --- expenses ---

func (s *Store) CreateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.expensesByID[expense.ID] = expense
	created := expense
	return &created, nil
}

func (s *Store) GetExpenseByID(_ context.Context, id string) (*domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, exists := s.expensesByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := expense
	return &copied, nil
}

func (s *Store) ListExpensesByUser(_ context.Context, userID string) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, 8)
	for _, e := range s.expensesByID {
		if e.UserID == userID {
			expenses = append(expenses, e)
		}
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int { return cmpNewestFirst(a.Date, b.Date) })
	return expenses, nil
}

func (s *Store) ListExpensesByOutletBetween(_ context.Context, outletID string, from time.Time, to time.Time) ([]domain.Expense, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expenses := make([]domain.Expense, 0, 8)
	for _, e := range s.expensesByID {
		if e.OutletID != outletID {
			continue
		}
		if e.Date.Before(from) || !e.Date.Before(to) {
			continue
		}
		expenses = append(expenses, e)
	}
	slices.SortFunc(expenses, func(a, b domain.Expense) int { return cmpNewestFirst(a.Date, b.Date) })
	return expenses, nil
}

func (s *Store) UpdateExpense(_ context.Context, expense domain.Expense) (*domain.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expensesByID[expense.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.expensesByID[expense.ID] = expense
	updated := expense
	return &updated, nil
}

func (s *Store) DeleteExpense(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expensesByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.expensesByID, id)
	return nil
}

// --- inventory ---

func (s *Store) SetProductStock(_ context.Context, productID string, outletID string, stock int) (*domain.Inventory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := invKey(productID, outletID)
	inv, exists := s.inventoryByKey[key]
	if !exists {
		inv = domain.Inventory{ID: xid.New("inv"), ProductID: productID, OutletID: outletID}
	}
	inv.Stock = stock
	inv.UpdatedAt = time.Now().UTC()
	s.inventoryByKey[key] = inv
	copied := inv
	return &copied, nil
}

func (s *Store) GetInventory(_ context.Context, productID string, outletID string) (*domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inv, exists := s.inventoryByKey[invKey(productID, outletID)]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := inv
	return &copied, nil
}

func (s *Store) ListInventoryByOutlet(_ context.Context, outletID string) ([]domain.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.Inventory, 0, 8)
	for _, inv := range s.inventoryByKey {
		if inv.OutletID == outletID {
			rows = append(rows, inv)
		}
	}
	slices.SortFunc(rows, func(a, b domain.Inventory) int { return cmpString(a.ProductID, b.ProductID) })
	return rows, nil
}

// --- ingredient stocks ---

func (s *Store) ListIngredientStocksByOutlet(_ context.Context, outletID string) ([]domain.IngredientStock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]domain.IngredientStock, 0, 8)
	for _, is := range s.ingStocksByKey {
		if is.OutletID == outletID {
			rows = append(rows, is)
		}
	}
	slices.SortFunc(rows, func(a, b domain.IngredientStock) int { return cmpString(a.IngredientID, b.IngredientID) })
	return rows, nil
}

func (s *Store) ReplenishIngredientStock(_ context.Context, ingredientID string, outletID string, purchaseQty float64, purchaseCost int64) (*domain.IngredientStock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if purchaseQty <= 0 {
		return nil, fmt.Errorf("%w: purchase quantity must be positive", store.ErrValidation)
	}

	key := invKey(ingredientID, outletID)
	row, exists := s.ingStocksByKey[key]
	if exists {
		// Stock can be negative after uncovered sales; when the purchase
		// brings it back to exactly zero the average has no denominator,
		// so the purchase's own unit cost takes over.
		if row.Stock+purchaseQty == 0 {
			row.AverageCostPrice = float64(purchaseCost) / purchaseQty
		} else {
			row.AverageCostPrice = (row.AverageCostPrice*row.Stock + float64(purchaseCost)) / (row.Stock + purchaseQty)
		}
		row.Stock += purchaseQty
	} else {
		row = domain.IngredientStock{
			ID:               xid.New("ist"),
			IngredientID:     ingredientID,
			OutletID:         outletID,
			Stock:            purchaseQty,
			AverageCostPrice: float64(purchaseCost) / purchaseQty,
		}
	}
	row.UpdatedAt = time.Now().UTC()
	s.ingStocksByKey[key] = row
	copied := row
	return &copied, nil
}

// --- transfers ---

func (s *Store) TransferStock(_ context.Context, transfer domain.StockTransfer, productName string) (*domain.StockTransfer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sourceKey := invKey(transfer.ProductID, transfer.FromOutletID)
	source, exists := s.inventoryByKey[sourceKey]
	if !exists || source.Stock < transfer.Quantity {
		remaining := 0
		if exists {
			remaining = source.Stock
		}
		return nil, &store.InsufficientStockError{ProductName: productName, Remaining: remaining, Required: transfer.Quantity}
	}

	now := time.Now().UTC()
	source.Stock -= transfer.Quantity
	source.UpdatedAt = now
	s.inventoryByKey[sourceKey] = source

	destKey := invKey(transfer.ProductID, transfer.ToOutletID)
	dest, exists := s.inventoryByKey[destKey]
	if !exists {
		dest = domain.Inventory{ID: xid.New("inv"), ProductID: transfer.ProductID, OutletID: transfer.ToOutletID}
	}
	dest.Stock += transfer.Quantity
	dest.UpdatedAt = now
	s.inventoryByKey[destKey] = dest

	s.transfers = append(s.transfers, transfer)
	created := transfer
	return &created, nil
}

func (s *Store) ListTransfersByUser(_ context.Context, userID string) ([]domain.StockTransfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfers := make([]domain.StockTransfer, 0, 8)
	for _, t := range s.transfers {
		if t.UserID == userID {
			transfers = append(transfers, t)
		}
	}
	slices.SortFunc(transfers, func(a, b domain.StockTransfer) int { return cmpNewestFirst(a.CreatedAt, b.CreatedAt) })
	return transfers, nil
}

// --- daily logs ---

func (s *Store) CreateDailyLog(_ context.Context, dlog domain.DailyLog) (*domain.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.dailyLogsByID[dlog.ID] = cloneDailyLog(dlog)
	created := cloneDailyLog(dlog)
	return &created, nil
}

func (s *Store) GetDailyLogByID(_ context.Context, id string) (*domain.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dlog, exists := s.dailyLogsByID[id]
	if !exists {
		return nil, store.ErrNotFound
	}
	copied := cloneDailyLog(dlog)
	return &copied, nil
}

func (s *Store) GetOpenDailyLog(_ context.Context, outletID string) (*domain.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var newest *domain.DailyLog
	for _, dlog := range s.dailyLogsByID {
		if dlog.OutletID != outletID || dlog.Status != domain.SessionStatusOpen {
			continue
		}
		if newest == nil || dlog.CreatedAt.After(newest.CreatedAt) {
			copied := cloneDailyLog(dlog)
			newest = &copied
		}
	}
	if newest == nil {
		return nil, store.ErrNotFound
	}
	return newest, nil
}

func (s *Store) ListOpenDailyLogsByOutlets(_ context.Context, outletIDs []string) ([]domain.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.DailyLog, 0, 4)
	for _, dlog := range s.dailyLogsByID {
		if dlog.Status == domain.SessionStatusOpen && slices.Contains(outletIDs, dlog.OutletID) {
			logs = append(logs, cloneDailyLog(dlog))
		}
	}
	slices.SortFunc(logs, func(a, b domain.DailyLog) int { return cmpNewestFirst(a.CreatedAt, b.CreatedAt) })
	return logs, nil
}

func (s *Store) ListDailyLogsByOutlets(_ context.Context, outletIDs []string) ([]domain.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.DailyLog, 0, 16)
	for _, dlog := range s.dailyLogsByID {
		if slices.Contains(outletIDs, dlog.OutletID) {
			logs = append(logs, cloneDailyLog(dlog))
		}
	}
	slices.SortFunc(logs, func(a, b domain.DailyLog) int { return cmpNewestFirst(a.CreatedAt, b.CreatedAt) })
	return logs, nil
}

func (s *Store) ListDailyLogsClosedBetween(_ context.Context, outletIDs []string, from time.Time, to time.Time) ([]domain.DailyLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]domain.DailyLog, 0, 16)
	for _, dlog := range s.dailyLogsByID {
		if dlog.Status != domain.SessionStatusClosed || !slices.Contains(outletIDs, dlog.OutletID) {
			continue
		}
		if dlog.CreatedAt.Before(from) || !dlog.CreatedAt.Before(to) {
			continue
		}
		logs = append(logs, cloneDailyLog(dlog))
	}
	slices.SortFunc(logs, func(a, b domain.DailyLog) int { return cmpNewestFirst(a.CreatedAt, b.CreatedAt) })
	return logs, nil
}

func (s *Store) UpdateDailyLog(_ context.Context, dlog domain.DailyLog) (*domain.DailyLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dailyLogsByID[dlog.ID]; !exists {
		return nil, store.ErrNotFound
	}
	s.dailyLogsByID[dlog.ID] = cloneDailyLog(dlog)
	updated := cloneDailyLog(dlog)
	return &updated, nil
}

func (s *Store) DeleteDailyLog(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.dailyLogsByID[id]; !exists {
		return store.ErrNotFound
	}
	delete(s.dailyLogsByID, id)
	return nil
}

// --- transactions ---

func (s *Store) ApplySale(_ context.Context, sale store.SaleApplication) (*domain.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dlog, exists := s.dailyLogsByID[sale.DailyLogID]
	if !exists {
		return nil, store.ErrNotFound
	}
	if dlog.Status != domain.SessionStatusOpen {
		return nil, fmt.Errorf("%w: session is not open", store.ErrValidation)
	}

	// Check every decrement before applying any, so a failing line
	// leaves all stock untouched.
	for _, dec := range sale.ProductDecrements {
		inv, exists := s.inventoryByKey[invKey(dec.ProductID, dec.OutletID)]
		remaining := 0
		if exists {
			remaining = inv.Stock
		}
		if remaining < dec.Quantity {
			return nil, &store.InsufficientStockError{ProductName: dec.ProductName, Remaining: remaining, Required: dec.Quantity}
		}
	}

	now := time.Now().UTC()
	for _, dec := range sale.ProductDecrements {
		key := invKey(dec.ProductID, dec.OutletID)
		inv := s.inventoryByKey[key]
		inv.Stock -= dec.Quantity
		inv.UpdatedAt = now
		s.inventoryByKey[key] = inv
	}

	for _, dec := range sale.IngredientDecrements {
		key := invKey(dec.IngredientID, dec.OutletID)
		row, exists := s.ingStocksByKey[key]
		if !exists {
			log.Printf("[memory-store] WARN: no ingredient stock row for %s at outlet %s, skipping deduction", dec.IngredientID, dec.OutletID)
			continue
		}
		row.Stock -= dec.Quantity
		row.UpdatedAt = now
		s.ingStocksByKey[key] = row
	}

	tx := cloneTransaction(sale.Transaction)
	s.transactionsByID[tx.ID] = tx

	dlog.TransactionIDs = append(slices.Clone(dlog.TransactionIDs), tx.ID)
	dlog.UpdatedAt = now
	s.dailyLogsByID[dlog.ID] = dlog

	created := cloneTransaction(tx)
	return &created, nil
}

func (s *Store) ListTransactionsByDailyLog(_ context.Context, dailyLogID string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, 0, 16)
	for _, tx := range s.transactionsByID {
		if tx.DailyLogID == dailyLogID {
			txs = append(txs, cloneTransaction(tx))
		}
	}
	slices.SortFunc(txs, func(a, b domain.Transaction) int { return cmpNewestFirst(a.CreatedAt, b.CreatedAt) })
	return txs, nil
}

func (s *Store) ListTransactionsByOutlets(_ context.Context, outletIDs []string) ([]domain.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	txs := make([]domain.Transaction, 0, 16)
	for _, tx := range s.transactionsByID {
		if slices.Contains(outletIDs, tx.OutletID) {
			txs = append(txs, cloneTransaction(tx))
		}
	}
	slices.SortFunc(txs, func(a, b domain.Transaction) int { return cmpNewestFirst(a.CreatedAt, b.CreatedAt) })
	return txs, nil
}
