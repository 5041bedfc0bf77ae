package domain

import "time"

const (
	RoleOwner    = "owner"
	RoleEmployee = "employee"
)

const (
	SessionStatusOpen   = "OPEN"
	SessionStatusClosed = "CLOSED"
)

type PushKeys struct {
	P256dh string `json:"p256dh"`
	Auth   string `json:"auth"`
}

type PushSubscription struct {
	Endpoint string   `json:"endpoint"`
	Keys     PushKeys `json:"keys"`
}

type User struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	Email             string             `json:"email"`
	Password          string             `json:"-"`
	Role              string             `json:"role"`
	Verified          bool               `json:"verified"`
	OutletID          string             `json:"outletId,omitempty"`
	PushSubscriptions []PushSubscription `json:"-"`
	CreatedAt         time.Time          `json:"createdAt"`
}

type Actor struct {
	ID       string
	Name     string
	Role     string
	OutletID string
}

type Outlet struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"createdAt"`
}

type RecipeItem struct {
	IngredientID string  `json:"ingredientId"`
	Quantity     float64 `json:"quantity"`
}

type Product struct {
	ID             string       `json:"id"`
	OwnerID        string       `json:"ownerId"`
	Name           string       `json:"name"`
	Category       string       `json:"category,omitempty"`
	CostPrice      int64        `json:"costPrice"`
	SellingPrice   int64        `json:"sellingPrice"`
	BundleQuantity int          `json:"bundleQuantity"`
	Recipe         []RecipeItem `json:"recipe,omitempty"`
	CreatedAt      time.Time    `json:"createdAt"`
}

// Profit is the per-unit margin at current prices.
func (p Product) Profit() int64 { return p.SellingPrice - p.CostPrice }

type Ingredient struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Unit      string    `json:"unit"`
	CreatedAt time.Time `json:"createdAt"`
}

type Inventory struct {
	ID        string    `json:"id"`
	ProductID string    `json:"productId"`
	OutletID  string    `json:"outletId"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type IngredientStock struct {
	ID               string    `json:"id"`
	IngredientID     string    `json:"ingredientId"`
	OutletID         string    `json:"outletId"`
	Stock            float64   `json:"stock"`
	AverageCostPrice float64   `json:"averageCostPrice"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type Asset struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

type Expense struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	OutletID    string    `json:"outletId"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category,omitempty"`
	Date        time.Time `json:"date"`
	CreatedAt   time.Time `json:"createdAt"`
}

// AssetSnapshot is a frozen by-name record of an asset brought into a
// session. It stays valid even if the asset master row is renamed or
// deleted afterwards.
type AssetSnapshot struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	CostPrice int64  `json:"costPrice,omitempty"`
}

type AssetCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// ProductSnapshot freezes a product's stock level and prices at the
// moment a session opens.
type ProductSnapshot struct {
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
	CostPrice    int64  `json:"costPrice"`
	SellingPrice int64  `json:"sellingPrice"`
}

type ProductCount struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type StartOfDay struct {
	InitialCash  int64             `json:"initialCash"`
	AssetStock   []AssetSnapshot   `json:"assetStock"`
	ProductStock []ProductSnapshot `json:"productStock"`
}

type EndOfDay struct {
	FinalCash             int64          `json:"finalCash"`
	RemainingAssetStock   []AssetCount   `json:"remainingAssetStock"`
	RemainingProductStock []ProductCount `json:"remainingProductStock"`
}

type SessionTotals struct {
	TotalRevenue int64 `json:"totalRevenue"`
	TotalCOGS    int64 `json:"totalCOGS"`
	GrossProfit  int64 `json:"grossProfit"`
	TotalExpense int64 `json:"totalExpense"`
	NetProfit    int64 `json:"netProfit"`
}

type DailyLog struct {
	ID             string         `json:"id"`
	OutletID       string         `json:"outletId"`
	UserID         string         `json:"userId"`
	Status         string         `json:"status"`
	StartOfDay     StartOfDay     `json:"startOfDay"`
	EndOfDay       *EndOfDay      `json:"endOfDay,omitempty"`
	TransactionIDs []string       `json:"transactionIds"`
	Calculated     *SessionTotals `json:"calculated,omitempty"`
	CreatedAt      time.Time      `json:"createdAt"`
	UpdatedAt      time.Time      `json:"updatedAt"`
}

type TransactionItem struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"`
}

type Transaction struct {
	ID             string            `json:"id"`
	OutletID       string            `json:"outletId"`
	UserID         string            `json:"userId"`
	DailyLogID     string            `json:"dailyLogId"`
	Items          []TransactionItem `json:"items"`
	TotalAmount    int64             `json:"totalAmount"`
	TotalCostPrice int64             `json:"totalCostPrice"`
	CreatedAt      time.Time         `json:"createdAt"`
}

type StockTransfer struct {
	ID           string    `json:"id"`
	FromOutletID string    `json:"fromOutletId"`
	ToOutletID   string    `json:"toOutletId"`
	ProductID    string    `json:"productId"`
	Quantity     int       `json:"quantity"`
	UserID       string    `json:"userId"`
	CreatedAt    time.Time `json:"createdAt"`
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	OutletID string `json:"outletId,omitempty"`
	Token    string `json:"token"`
}

type OutletRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type ProductRequest struct {
	Name           string       `json:"name"`
	Category       string       `json:"category"`
	CostPrice      int64        `json:"costPrice"`
	SellingPrice   int64        `json:"sellingPrice"`
	BundleQuantity int          `json:"bundleQuantity"`
	Recipe         []RecipeItem `json:"recipe"`
}

type IngredientRequest struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

type AssetRequest struct {
	Name string `json:"name"`
}

type ExpenseRequest struct {
	OutletID    string    `json:"outletId"`
	Description string    `json:"description"`
	Amount      int64     `json:"amount"`
	Category    string    `json:"category"`
	Date        time.Time `json:"date"`
}

type SetInventoryRequest struct {
	ProductID string `json:"productId"`
	OutletID  string `json:"outletId"`
	Stock     int    `json:"stock"`
}

type ReplenishIngredientStockRequest struct {
	IngredientID     string  `json:"ingredientId"`
	OutletID         string  `json:"outletId"`
	PurchaseQuantity float64 `json:"purchaseQuantity"`
	PurchaseCost     int64   `json:"purchaseCost"`
}

type StockTransferRequest struct {
	FromOutletID string `json:"fromOutletId"`
	ToOutletID   string `json:"toOutletId"`
	ProductID    string `json:"productId"`
	Quantity     int    `json:"quantity"`
}

type StartSessionRequest struct {
	OutletID    string          `json:"outletId"`
	InitialCash int64           `json:"initialCash"`
	AssetStock  []AssetSnapshot `json:"assetStock"`
}

type UpdateSessionRequest struct {
	InitialCash  int64             `json:"initialCash"`
	AssetStock   []AssetSnapshot   `json:"assetStock"`
	ProductStock []ProductSnapshot `json:"productStock,omitempty"`
}

type CloseSessionRequest struct {
	OutletID              string         `json:"outletId"`
	FinalCash             int64          `json:"finalCash"`
	RemainingAssetStock   []AssetCount   `json:"remainingAssetStock"`
	RemainingProductStock []ProductCount `json:"remainingProductStock"`
}

type CartLine struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type SaleRequest struct {
	OutletID    string     `json:"outletId"`
	Cart        []CartLine `json:"cart"`
	TotalAmount int64      `json:"totalAmount,omitempty"`
}

type SessionSalesResponse struct {
	TotalSales int64 `json:"totalSales"`
}

// ProductReportRow reconciles one product over a session. Physical and
// Discrepancy stay nil while the session is still open.
type ProductReportRow struct {
	ProductID   string `json:"productId"`
	Name        string `json:"name"`
	Initial     int    `json:"initial"`
	Sold        int    `json:"sold"`
	Theoretical int    `json:"theoretical"`
	Physical    *int   `json:"physical"`
	Discrepancy *int   `json:"discrepancy"`
	Revenue     int64  `json:"revenue"`
}

type AssetReportRow struct {
	Name     string `json:"name"`
	Brought  int    `json:"brought"`
	Returned int    `json:"returned"`
}

// SessionView is a DailyLog enriched with the derived data reports are
// built from.
type SessionView struct {
	DailyLog
	Expenses      []Expense          `json:"expenses"`
	ProductReport []ProductReportRow `json:"productReport"`
}

type SummaryReport struct {
	TotalRevenue     int64            `json:"totalRevenue"`
	TotalCOGS        int64            `json:"totalCOGS"`
	GrossProfit      int64            `json:"grossProfit"`
	TotalExpense     int64            `json:"totalExpense"`
	NetProfit        int64            `json:"netProfit"`
	TransactionCount int              `json:"transactionCount"`
	SessionCount     int              `json:"sessionCount"`
	AssetReport      []AssetReportRow `json:"assetReport"`
}

type MonthlySummary struct {
	Month int `json:"month"`
	SummaryReport
}

type YearlyReport struct {
	Year        int              `json:"year"`
	Months      []MonthlySummary `json:"months"`
	Total       SummaryReport    `json:"total"`
	AssetReport []AssetReportRow `json:"assetReport"`
}
