package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/store"
)

func TestApplySaleDecrementsInventoryAtomically(t *testing.T) {
	databaseURL := os.Getenv("WARUNGPOS_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set WARUNGPOS_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	ownerID := fmt.Sprintf("usr-sale-it-%d", stamp)
	outletID := fmt.Sprintf("out-sale-it-%d", stamp)
	productID := fmt.Sprintf("prd-sale-it-%d", stamp)
	dailyLogID := fmt.Sprintf("dlog-sale-it-%d", stamp)
	txID := fmt.Sprintf("trx-sale-it-%d", stamp)

	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = $1`, txID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM daily_logs WHERE id = $1`, dailyLogID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventories WHERE product_id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, productID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM outlets WHERE id = $1`, outletID)
	})

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO outlets (id, owner_id, name, address, created_at)
		VALUES ($1, $2, $3, 'Jl. Integrasi 1', now())
	`, outletID, ownerID, fmt.Sprintf("Outlet Sale IT %d", stamp)); err != nil {
		t.Fatalf("insert outlet: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO products (id, owner_id, name, category, cost_price, selling_price, bundle_quantity, recipe, created_at)
		VALUES ($1, $2, 'Produk Sale IT', 'makanan', 3000, 5000, 1, '[]'::jsonb, now())
	`, productID, ownerID); err != nil {
		t.Fatalf("insert product: %v", err)
	}

	if _, err := s.SetProductStock(ctx, productID, outletID, 10); err != nil {
		t.Fatalf("seed stock: %v", err)
	}

	now := time.Now().UTC()
	if _, err := s.CreateDailyLog(ctx, domain.DailyLog{
		ID:             dailyLogID,
		OutletID:       outletID,
		UserID:         ownerID,
		Status:         domain.SessionStatusOpen,
		StartOfDay:     domain.StartOfDay{InitialCash: 100000},
		TransactionIDs: []string{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}); err != nil {
		t.Fatalf("create daily log: %v", err)
	}

	sale := store.SaleApplication{
		Transaction: domain.Transaction{
			ID:             txID,
			OutletID:       outletID,
			UserID:         ownerID,
			DailyLogID:     dailyLogID,
			Items:          []domain.TransactionItem{{ProductID: productID, Quantity: 3, Price: 5000}},
			TotalAmount:    15000,
			TotalCostPrice: 9000,
			CreatedAt:      now,
		},
		DailyLogID: dailyLogID,
		ProductDecrements: []store.ProductDecrement{
			{ProductID: productID, ProductName: "Produk Sale IT", OutletID: outletID, Quantity: 3},
		},
	}
	if _, err := s.ApplySale(ctx, sale); err != nil {
		t.Fatalf("apply sale: %v", err)
	}

	inv, err := s.GetInventory(ctx, productID, outletID)
	if err != nil {
		t.Fatalf("get inventory: %v", err)
	}
	if inv.Stock != 7 {
		t.Fatalf("expected stock 7 after sale, got %d", inv.Stock)
	}

	dlog, err := s.GetDailyLogByID(ctx, dailyLogID)
	if err != nil {
		t.Fatalf("get daily log: %v", err)
	}
	if len(dlog.TransactionIDs) != 1 || dlog.TransactionIDs[0] != txID {
		t.Fatalf("expected transaction id appended to session, got %v", dlog.TransactionIDs)
	}

	// A second sale that overshoots the remaining stock must fail and
	// leave both the inventory row and the session untouched.
	overshoot := sale
	overshoot.Transaction.ID = txID + "-over"
	overshoot.ProductDecrements = []store.ProductDecrement{
		{ProductID: productID, ProductName: "Produk Sale IT", OutletID: outletID, Quantity: 50},
	}
	_, err = s.ApplySale(ctx, overshoot)
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock error, got %v", err)
	}

	inv, err = s.GetInventory(ctx, productID, outletID)
	if err != nil {
		t.Fatalf("get inventory after failed sale: %v", err)
	}
	if inv.Stock != 7 {
		t.Fatalf("expected stock unchanged at 7 after failed sale, got %d", inv.Stock)
	}
}
