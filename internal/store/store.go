package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"warungpos/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrConflict          = errors.New("conflict")
	ErrForbidden         = errors.New("forbidden")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// InsufficientStockError carries the remaining-vs-required detail for a
// failed conditional decrement. errors.Is(err, ErrInsufficientStock)
// still matches.
type InsufficientStockError struct {
	ProductName string
	Remaining   int
	Required    int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q: remaining %d, required %d", e.ProductName, e.Remaining, e.Required)
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ProductDecrement is one conditional inventory deduction inside a sale.
// It fails the whole sale unless the row's stock is at least Quantity.
type ProductDecrement struct {
	ProductID   string
	ProductName string
	OutletID    string
	Quantity    int
}

// IngredientDecrement is an unconditional deduction. Ingredient stock
// is allowed to go negative; a negative balance is an audit signal, not
// an error.
type IngredientDecrement struct {
	IngredientID string
	OutletID     string
	Quantity     float64
}

// SaleApplication bundles every mutation of a recorded sale so
// implementations can apply them atomically: either the transaction row,
// all stock deductions, and the session append all land, or none do.
type SaleApplication struct {
	Transaction          domain.Transaction
	DailyLogID           string
	ProductDecrements    []ProductDecrement
	IngredientDecrements []IngredientDecrement
}

type UserRepository interface {
	CreateUser(ctx context.Context, user domain.User) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	ListUsersByOutlet(ctx context.Context, outletID string) ([]domain.User, error)
	AddPushSubscription(ctx context.Context, userID string, sub domain.PushSubscription) error
	RemovePushSubscription(ctx context.Context, userID string, endpoint string) error
}

type OutletRepository interface {
	CreateOutlet(ctx context.Context, outlet domain.Outlet) (*domain.Outlet, error)
	GetOutletByID(ctx context.Context, id string) (*domain.Outlet, error)
	ListOutletsByOwner(ctx context.Context, ownerID string) ([]domain.Outlet, error)
	UpdateOutlet(ctx context.Context, outlet domain.Outlet) (*domain.Outlet, error)
	DeleteOutlet(ctx context.Context, id string) error
}

type ProductRepository interface {
	CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	GetProductByID(ctx context.Context, id string) (*domain.Product, error)
	ListProductsByOwner(ctx context.Context, ownerID string) ([]domain.Product, error)
	UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	// ListProductsUsingIngredient reports which of the owner's products
	// reference the ingredient in their recipe.
	ListProductsUsingIngredient(ctx context.Context, ownerID string, ingredientID string) ([]domain.Product, error)
}

type IngredientRepository interface {
	CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	GetIngredientByID(ctx context.Context, id string) (*domain.Ingredient, error)
	ListIngredientsByOwner(ctx context.Context, ownerID string) ([]domain.Ingredient, error)
	UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error)
	// DeleteIngredient also removes the ingredient's per-outlet stock rows.
	DeleteIngredient(ctx context.Context, id string) error
}

type AssetRepository interface {
	CreateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error)
	GetAssetByID(ctx context.Context, id string) (*domain.Asset, error)
	ListAssetsByOwner(ctx context.Context, ownerID string) ([]domain.Asset, error)
	UpdateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error)
	DeleteAsset(ctx context.Context, id string) error
}

type ExpenseRepository interface {
	CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	GetExpenseByID(ctx context.Context, id string) (*domain.Expense, error)
	ListExpensesByUser(ctx context.Context, userID string) ([]domain.Expense, error)
	ListExpensesByOutletBetween(ctx context.Context, outletID string, from time.Time, to time.Time) ([]domain.Expense, error)
	UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error)
	DeleteExpense(ctx context.Context, id string) error
}

type InventoryRepository interface {
	// SetProductStock upserts the (product, outlet) row to an absolute
	// quantity. No negativity check; corrections may set any value.
	SetProductStock(ctx context.Context, productID string, outletID string, stock int) (*domain.Inventory, error)
	GetInventory(ctx context.Context, productID string, outletID string) (*domain.Inventory, error)
	ListInventoryByOutlet(ctx context.Context, outletID string) ([]domain.Inventory, error)
}

type IngredientStockRepository interface {
	ListIngredientStocksByOutlet(ctx context.Context, outletID string) ([]domain.IngredientStock, error)
	// ReplenishIngredientStock folds a purchase into the row's moving
	// weighted average cost, creating the row if absent.
	ReplenishIngredientStock(ctx context.Context, ingredientID string, outletID string, purchaseQty float64, purchaseCost int64) (*domain.IngredientStock, error)
}

type TransferRepository interface {
	// TransferStock conditionally decrements the source row, upserts an
	// increment at the destination, and records the transfer, atomically.
	TransferStock(ctx context.Context, transfer domain.StockTransfer, productName string) (*domain.StockTransfer, error)
	ListTransfersByUser(ctx context.Context, userID string) ([]domain.StockTransfer, error)
}

type SessionRepository interface {
	CreateDailyLog(ctx context.Context, dlog domain.DailyLog) (*domain.DailyLog, error)
	GetDailyLogByID(ctx context.Context, id string) (*domain.DailyLog, error)
	// GetOpenDailyLog returns the newest OPEN session for the outlet, or
	// ErrNotFound.
	GetOpenDailyLog(ctx context.Context, outletID string) (*domain.DailyLog, error)
	ListOpenDailyLogsByOutlets(ctx context.Context, outletIDs []string) ([]domain.DailyLog, error)
	ListDailyLogsByOutlets(ctx context.Context, outletIDs []string) ([]domain.DailyLog, error)
	ListDailyLogsClosedBetween(ctx context.Context, outletIDs []string, from time.Time, to time.Time) ([]domain.DailyLog, error)
	UpdateDailyLog(ctx context.Context, dlog domain.DailyLog) (*domain.DailyLog, error)
	DeleteDailyLog(ctx context.Context, id string) error
}

type TransactionRepository interface {
	// ApplySale applies every mutation of a sale as one atomic unit.
	ApplySale(ctx context.Context, sale SaleApplication) (*domain.Transaction, error)
	ListTransactionsByDailyLog(ctx context.Context, dailyLogID string) ([]domain.Transaction, error)
	ListTransactionsByOutlets(ctx context.Context, outletIDs []string) ([]domain.Transaction, error)
}

type Repository interface {
	UserRepository
	OutletRepository
	ProductRepository
	IngredientRepository
	AssetRepository
	ExpenseRepository
	InventoryRepository
	IngredientStockRepository
	TransferRepository
	SessionRepository
	TransactionRepository
}
