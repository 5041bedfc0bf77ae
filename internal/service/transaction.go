package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/notify"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

// RecordSale validates a cart against the outlet's open session and
// applies the whole sale atomically: the transaction row, the product
// decrements, the recipe-driven ingredient decrements and the session
// append either all land or none do.
func (s *Service) RecordSale(ctx context.Context, req domain.SaleRequest) (*domain.Transaction, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	outlet, err := s.accessibleOutlet(ctx, actor, req.OutletID)
	if err != nil {
		return nil, err
	}
	if len(req.Cart) == 0 {
		return nil, fmt.Errorf("%w: cart is empty", store.ErrValidation)
	}

	dlog, err := s.repo.GetOpenDailyLog(ctx, req.OutletID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("%w: no active session, start one first", store.ErrValidation)
	}
	if err != nil {
		return nil, err
	}

	var (
		totalAmount    int64
		totalCOGS      int64
		items          = make([]domain.TransactionItem, 0, len(req.Cart))
		productDecs    = make([]store.ProductDecrement, 0, len(req.Cart))
		ingredientDecs []store.IngredientDecrement
		summary        = make([]string, 0, len(req.Cart))
	)

	for _, line := range req.Cart {
		if line.Quantity <= 0 {
			return nil, fmt.Errorf("%w: line quantities must be positive", store.ErrValidation)
		}
		product, err := s.repo.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, fmt.Errorf("%w: product %s no longer exists", store.ErrNotFound, line.ProductID)
		}

		bundle := product.BundleQuantity
		if bundle < 1 {
			bundle = 1
		}
		required := line.Quantity * bundle

		inv, err := s.repo.GetInventory(ctx, line.ProductID, req.OutletID)
		if err != nil {
			return nil, fmt.Errorf("%w: no stock record for %q at this outlet", store.ErrValidation, product.Name)
		}
		if inv.Stock < required {
			return nil, &store.InsufficientStockError{ProductName: product.Name, Remaining: inv.Stock, Required: required}
		}

		// COGS uses the product's current cost price per sold unit, not
		// per physical piece.
		totalCOGS += product.CostPrice * int64(line.Quantity)
		totalAmount += product.SellingPrice * int64(line.Quantity)

		items = append(items, domain.TransactionItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Price:     product.SellingPrice,
		})
		productDecs = append(productDecs, store.ProductDecrement{
			ProductID:   line.ProductID,
			ProductName: product.Name,
			OutletID:    req.OutletID,
			Quantity:    required,
		})
		for _, recipeItem := range product.Recipe {
			ingredientDecs = append(ingredientDecs, store.IngredientDecrement{
				IngredientID: recipeItem.IngredientID,
				OutletID:     req.OutletID,
				Quantity:     recipeItem.Quantity * float64(line.Quantity) * float64(bundle),
			})
		}
		summary = append(summary, fmt.Sprintf("%dx %s", line.Quantity, product.Name))
	}

	// The client-declared total is advisory only. The stored amount is
	// always the server-side recomputation.
	if req.TotalAmount != 0 && req.TotalAmount != totalAmount {
		log.Printf("[service] WARN: client total %d disagrees with computed total %d for outlet %s", req.TotalAmount, totalAmount, req.OutletID)
	}

	tx := domain.Transaction{
		ID:             xid.New("trx"),
		OutletID:       req.OutletID,
		UserID:         actor.ID,
		DailyLogID:     dlog.ID,
		Items:          items,
		TotalAmount:    totalAmount,
		TotalCostPrice: totalCOGS,
		CreatedAt:      time.Now().UTC(),
	}

	created, err := s.repo.ApplySale(ctx, store.SaleApplication{
		Transaction:          tx,
		DailyLogID:           dlog.ID,
		ProductDecrements:    productDecs,
		IngredientDecrements: ingredientDecs,
	})
	if err != nil {
		return nil, err
	}

	s.notifyUser(ctx, outlet.OwnerID, notify.Message{
		Title: fmt.Sprintf("Transaksi baru di %s!", outlet.Name),
		Body:  fmt.Sprintf("Total: Rp%d | Laba: Rp%d\nOleh: %s\nItem: %s", created.TotalAmount, created.TotalAmount-created.TotalCostPrice, actor.Name, strings.Join(summary, ", ")),
		URL:   "/laporan",
	})

	return created, nil
}

// SessionSales totals the revenue of the outlet's open session. It
// answers zero rather than erroring when no session is running or the
// outlet is not accessible, so dashboards can poll it freely.
func (s *Service) SessionSales(ctx context.Context, outletID string) (int64, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return 0, err
	}
	if outletID == "" || outletID == "all" {
		return 0, nil
	}
	if _, err := s.accessibleOutlet(ctx, actor, outletID); err != nil {
		return 0, nil
	}

	dlog, err := s.repo.GetOpenDailyLog(ctx, outletID)
	if errors.Is(err, store.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	txs, err := s.repo.ListTransactionsByDailyLog(ctx, dlog.ID)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, tx := range txs {
		total += tx.TotalAmount
	}
	return total, nil
}

func (s *Service) ListTransactions(ctx context.Context, outletID string) ([]domain.Transaction, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	var outletIDs []string
	if outletID != "" && outletID != "all" {
		if _, err := s.ownedOutlet(ctx, actor, outletID); err != nil {
			return nil, err
		}
		outletIDs = []string{outletID}
	} else {
		outletIDs, err = s.ownerOutletIDs(ctx, actor.ID)
		if err != nil {
			return nil, err
		}
	}
	return s.repo.ListTransactionsByOutlets(ctx, outletIDs)
}
