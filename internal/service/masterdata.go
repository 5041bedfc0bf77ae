package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"warungpos/internal/domain"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

func (s *Service) CreateOutlet(ctx context.Context, req domain.OutletRequest) (*domain.Outlet, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: outlet name is required", store.ErrValidation)
	}

	outlet := domain.Outlet{
		ID:        xid.New("out"),
		OwnerID:   actor.ID,
		Name:      name,
		Address:   strings.TrimSpace(req.Address),
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.CreateOutlet(ctx, outlet)
}

func (s *Service) ListOutlets(ctx context.Context) ([]domain.Outlet, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleOwner {
		return s.repo.ListOutletsByOwner(ctx, actor.ID)
	}
	if actor.OutletID == "" {
		return []domain.Outlet{}, nil
	}
	outlet, err := s.repo.GetOutletByID(ctx, actor.OutletID)
	if err != nil {
		return nil, err
	}
	return []domain.Outlet{*outlet}, nil
}

func (s *Service) UpdateOutlet(ctx context.Context, id string, req domain.OutletRequest) (*domain.Outlet, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	outlet, err := s.ownedOutlet(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: outlet name is required", store.ErrValidation)
	}
	outlet.Name = name
	outlet.Address = strings.TrimSpace(req.Address)
	return s.repo.UpdateOutlet(ctx, *outlet)
}

func (s *Service) DeleteOutlet(ctx context.Context, id string) error {
	actor, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	if _, err := s.ownedOutlet(ctx, actor, id); err != nil {
		return err
	}
	return s.repo.DeleteOutlet(ctx, id)
}

func (s *Service) validateProductRequest(ctx context.Context, actor domain.Actor, req domain.ProductRequest) (domain.ProductRequest, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Category = strings.TrimSpace(req.Category)
	if req.Name == "" {
		return req, fmt.Errorf("%w: product name is required", store.ErrValidation)
	}
	if req.CostPrice < 0 || req.SellingPrice < 0 {
		return req, fmt.Errorf("%w: prices cannot be negative", store.ErrValidation)
	}
	if req.SellingPrice < req.CostPrice {
		return req, fmt.Errorf("%w: selling price is below cost price", store.ErrValidation)
	}
	if req.BundleQuantity < 0 {
		return req, fmt.Errorf("%w: bundle quantity cannot be negative", store.ErrValidation)
	}
	if req.BundleQuantity == 0 {
		req.BundleQuantity = 1
	}
	for _, item := range req.Recipe {
		if item.Quantity <= 0 {
			return req, fmt.Errorf("%w: recipe quantities must be positive", store.ErrValidation)
		}
		ingredient, err := s.repo.GetIngredientByID(ctx, item.IngredientID)
		if err != nil {
			return req, fmt.Errorf("%w: recipe ingredient %s does not exist", store.ErrValidation, item.IngredientID)
		}
		if ingredient.OwnerID != actor.ID {
			return req, fmt.Errorf("%w: not your ingredient", store.ErrForbidden)
		}
	}
	return req, nil
}

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductRequest) (*domain.Product, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	req, err = s.validateProductRequest(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	product := domain.Product{
		ID:             xid.New("prd"),
		OwnerID:        actor.ID,
		Name:           req.Name,
		Category:       req.Category,
		CostPrice:      req.CostPrice,
		SellingPrice:   req.SellingPrice,
		BundleQuantity: req.BundleQuantity,
		Recipe:         req.Recipe,
		CreatedAt:      time.Now().UTC(),
	}
	return s.repo.CreateProduct(ctx, product)
}

// ListProducts returns the catalog the actor works with: an owner's own
// products, or for an employee the products of their outlet's owner.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	actor, err := requireActor(ctx)
	if err != nil {
		return nil, err
	}
	if actor.Role == domain.RoleOwner {
		return s.repo.ListProductsByOwner(ctx, actor.ID)
	}
	if actor.OutletID == "" {
		return []domain.Product{}, nil
	}
	outlet, err := s.repo.GetOutletByID(ctx, actor.OutletID)
	if err != nil {
		return nil, err
	}
	return s.repo.ListProductsByOwner(ctx, outlet.OwnerID)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductRequest) (*domain.Product, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: not your product", store.ErrForbidden)
	}
	req, err = s.validateProductRequest(ctx, actor, req)
	if err != nil {
		return nil, err
	}

	updated := *existing
	updated.Name = req.Name
	updated.Category = req.Category
	updated.CostPrice = req.CostPrice
	updated.SellingPrice = req.SellingPrice
	updated.BundleQuantity = req.BundleQuantity
	updated.Recipe = req.Recipe
	return s.repo.UpdateProduct(ctx, updated)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	actor, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	existing, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != actor.ID {
		return fmt.Errorf("%w: not your product", store.ErrForbidden)
	}
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) CreateIngredient(ctx context.Context, req domain.IngredientRequest) (*domain.Ingredient, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	unit := strings.TrimSpace(req.Unit)
	if name == "" || unit == "" {
		return nil, fmt.Errorf("%w: ingredient name and unit are required", store.ErrValidation)
	}

	ingredient := domain.Ingredient{
		ID:        xid.New("ing"),
		OwnerID:   actor.ID,
		Name:      name,
		Unit:      unit,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.CreateIngredient(ctx, ingredient)
}

func (s *Service) ListIngredients(ctx context.Context) ([]domain.Ingredient, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListIngredientsByOwner(ctx, actor.ID)
}

func (s *Service) UpdateIngredient(ctx context.Context, id string, req domain.IngredientRequest) (*domain.Ingredient, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetIngredientByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: not your ingredient", store.ErrForbidden)
	}

	name := strings.TrimSpace(req.Name)
	unit := strings.TrimSpace(req.Unit)
	if name == "" || unit == "" {
		return nil, fmt.Errorf("%w: ingredient name and unit are required", store.ErrValidation)
	}
	existing.Name = name
	existing.Unit = unit
	return s.repo.UpdateIngredient(ctx, *existing)
}

// DeleteIngredient refuses while any recipe still references the
// ingredient, naming one offending product.
func (s *Service) DeleteIngredient(ctx context.Context, id string) error {
	actor, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	existing, err := s.repo.GetIngredientByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != actor.ID {
		return fmt.Errorf("%w: not your ingredient", store.ErrForbidden)
	}

	used, err := s.repo.ListProductsUsingIngredient(ctx, actor.ID, id)
	if err != nil {
		return err
	}
	if len(used) > 0 {
		return fmt.Errorf("%w: ingredient is used in the recipe of %q", store.ErrValidation, used[0].Name)
	}
	return s.repo.DeleteIngredient(ctx, id)
}

func (s *Service) CreateAsset(ctx context.Context, req domain.AssetRequest) (*domain.Asset, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: asset name is required", store.ErrValidation)
	}

	asset := domain.Asset{
		ID:        xid.New("ast"),
		OwnerID:   actor.ID,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	return s.repo.CreateAsset(ctx, asset)
}

func (s *Service) ListAssets(ctx context.Context) ([]domain.Asset, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListAssetsByOwner(ctx, actor.ID)
}

func (s *Service) UpdateAsset(ctx context.Context, id string, req domain.AssetRequest) (*domain.Asset, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetAssetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.OwnerID != actor.ID {
		return nil, fmt.Errorf("%w: not your asset", store.ErrForbidden)
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: asset name is required", store.ErrValidation)
	}
	existing.Name = name
	return s.repo.UpdateAsset(ctx, *existing)
}

func (s *Service) DeleteAsset(ctx context.Context, id string) error {
	actor, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	existing, err := s.repo.GetAssetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.OwnerID != actor.ID {
		return fmt.Errorf("%w: not your asset", store.ErrForbidden)
	}
	return s.repo.DeleteAsset(ctx, id)
}

func (s *Service) CreateExpense(ctx context.Context, req domain.ExpenseRequest) (*domain.Expense, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedOutlet(ctx, actor, req.OutletID); err != nil {
		return nil, err
	}
	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", store.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	date := req.Date
	if date.IsZero() {
		date = time.Now().UTC()
	}

	expense := domain.Expense{
		ID:          xid.New("exp"),
		UserID:      actor.ID,
		OutletID:    req.OutletID,
		Description: description,
		Amount:      req.Amount,
		Category:    strings.TrimSpace(req.Category),
		Date:        date,
		CreatedAt:   time.Now().UTC(),
	}
	return s.repo.CreateExpense(ctx, expense)
}

func (s *Service) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListExpensesByUser(ctx, actor.ID)
}

func (s *Service) UpdateExpense(ctx context.Context, id string, req domain.ExpenseRequest) (*domain.Expense, error) {
	actor, err := requireOwner(ctx)
	if err != nil {
		return nil, err
	}
	existing, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.UserID != actor.ID {
		return nil, fmt.Errorf("%w: not your expense", store.ErrForbidden)
	}

	description := strings.TrimSpace(req.Description)
	if description == "" {
		return nil, fmt.Errorf("%w: description is required", store.ErrValidation)
	}
	if req.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", store.ErrValidation)
	}
	if req.OutletID != "" && req.OutletID != existing.OutletID {
		if _, err := s.ownedOutlet(ctx, actor, req.OutletID); err != nil {
			return nil, err
		}
		existing.OutletID = req.OutletID
	}
	existing.Description = description
	existing.Amount = req.Amount
	existing.Category = strings.TrimSpace(req.Category)
	if !req.Date.IsZero() {
		existing.Date = req.Date
	}
	return s.repo.UpdateExpense(ctx, *existing)
}

func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	actor, err := requireOwner(ctx)
	if err != nil {
		return err
	}
	existing, err := s.repo.GetExpenseByID(ctx, id)
	if err != nil {
		return err
	}
	if existing.UserID != actor.ID {
		return fmt.Errorf("%w: not your expense", store.ErrForbidden)
	}
	return s.repo.DeleteExpense(ctx, id)
}
