package service

import (
	"context"
	"fmt"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

// SetInventory upserts a product's absolute stock level at an outlet.
// Negative values are accepted so an owner can mirror a physical count,
// however odd it looks.
func (s *Service) SetInventory(ctx context.Context, req domain.SetInventoryRequest) (*domain.Inventory, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedOutlet(ctx, actor, req.OutletID); err != nil {
		return nil, err
	}
	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: not your product", store.ErrForbidden)
	}
	return s.repo.SetProductStock(ctx, req.ProductID, req.OutletID, req.Stock)
}

func (s *Service) ListInventory(ctx context.Context, outletID string) ([]domain.Inventory, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.accessibleOutlet(ctx, actor, outletID); err != nil {
		return nil, err
	}
	return s.repo.ListInventoryByOutlet(ctx, outletID)
}

func (s *Service) ListIngredientStocks(ctx context.Context, outletID string) ([]domain.IngredientStock, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedOutlet(ctx, actor, outletID); err != nil {
		return nil, err
	}
	return s.repo.ListIngredientStocksByOutlet(ctx, outletID)
}

// ReplenishIngredientStock records a purchase and folds its cost into
// the row's moving weighted average.
func (s *Service) ReplenishIngredientStock(ctx context.Context, req domain.ReplenishIngredientStockRequest) (*domain.IngredientStock, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedOutlet(ctx, actor, req.OutletID); err != nil {
		return nil, err
	}
	ingredient, err := s.repo.GetIngredientByID(ctx, req.IngredientID)
	if err != nil {
		return nil, err
	}
	if ingredient.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: not your ingredient", store.ErrForbidden)
	}
	if req.PurchaseQuantity <= 0 {
		return nil, fmt.Errorf("%w: purchase quantity must be positive", store.ErrValidation)
	}
	if req.PurchaseCost < 0 {
		return nil, fmt.Errorf("%w: purchase cost cannot be negative", store.ErrValidation)
	}
	return s.repo.ReplenishIngredientStock(ctx, req.IngredientID, req.OutletID, req.PurchaseQuantity, req.PurchaseCost)
}

// TransferStock moves product stock between two of the owner's outlets.
// The source decrement is conditional, so concurrent transfers cannot
// push the source negative.
func (s *Service) TransferStock(ctx context.Context, req domain.StockTransferRequest) (*domain.StockTransfer, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if req.FromOutletID == req.ToOutletID {
		return nil, fmt.Errorf("%w: source and destination outlets must differ", store.ErrValidation)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
	}
	if _, err := s.ownedOutlet(ctx, actor, req.FromOutletID); err != nil {
		return nil, err
	}
	if _, err := s.ownedOutlet(ctx, actor, req.ToOutletID); err != nil {
		return nil, err
	}
	product, err := s.repo.GetProductByID(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}
	if product.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: not your product", store.ErrForbidden)
	}

	transfer := domain.StockTransfer{
		ID:           xid.New("trf"),
		FromOutletID: req.FromOutletID,
		ToOutletID:   req.ToOutletID,
		ProductID:    req.ProductID,
		Quantity:     req.Quantity,
		UserID:       actor.ID,
		CreatedAt:    time.Now().UTC(),
	}
	return s.repo.TransferStock(ctx, transfer, product.Name)
}

func (s *Service) ListTransfers(ctx context.Context) ([]domain.StockTransfer, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListTransfersByUser(ctx, actor.ID)
}
