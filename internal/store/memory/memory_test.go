package memory

import (
	"context"
	"math"
	"testing"
)

func TestReplenishIngredientStockRecoversFromNegativeStock(t *testing.T) {
	s := NewSeeded()

	key := invKey("ing-seed-kopi", "out-seed-pusat")
	s.mu.Lock()
	row := s.ingStocksByKey[key]
	row.Stock = -100
	s.ingStocksByKey[key] = row
	s.mu.Unlock()

	// The purchase lands the stock on exactly zero; the average must fall
	// back to the purchase's unit cost instead of dividing by zero.
	got, err := s.ReplenishIngredientStock(context.Background(), "ing-seed-kopi", "out-seed-pusat", 100, 5000)
	if err != nil {
		t.Fatalf("replenish: %v", err)
	}
	if got.Stock != 0 {
		t.Fatalf("expected stock 0 after replenish, got %v", got.Stock)
	}
	if math.IsNaN(got.AverageCostPrice) || math.IsInf(got.AverageCostPrice, 0) {
		t.Fatalf("expected finite average cost, got %v", got.AverageCostPrice)
	}
	if math.Abs(got.AverageCostPrice-50) > 1e-9 {
		t.Fatalf("expected average cost 50, got %v", got.AverageCostPrice)
	}
}
