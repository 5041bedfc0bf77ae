package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"warungpos/internal/domain"
	"warungpos/internal/store"
	"warungpos/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// --- users ---

func (s *Store) CreateUser(ctx context.Context, user domain.User) (*domain.User, error) {
	subsJSON, err := json.Marshal(user.PushSubscriptions)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, name, email, password, role, verified, outlet_id, push_subscriptions, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, user.ID, user.Name, user.Email, user.Password, user.Role, user.Verified, nullIfEmpty(user.OutletID), subsJSON, user.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: email already registered", store.ErrConflict)
		}
		return nil, err
	}
	created := user
	return &created, nil
}

func (s *Store) scanUser(row *sql.Row) (*domain.User, error) {
	var (
		user     domain.User
		outletID sql.NullString
		subsJSON []byte
	)
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.Verified, &outletID, &subsJSON, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	user.OutletID = outletID.String
	if len(subsJSON) > 0 {
		if err := json.Unmarshal(subsJSON, &user.PushSubscriptions); err != nil {
			return nil, err
		}
	}
	user.CreatedAt = user.CreatedAt.UTC()
	return &user, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, verified, outlet_id, push_subscriptions, created_at
		FROM users
		WHERE lower(email) = lower($1)
	`, email))
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, `
		SELECT id, name, email, password, role, verified, outlet_id, push_subscriptions, created_at
		FROM users
		WHERE id = $1
	`, id))
}

func (s *Store) ListUsersByOutlet(ctx context.Context, outletID string) ([]domain.User, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, password, role, verified, outlet_id, push_subscriptions, created_at
		FROM users
		WHERE outlet_id = $1
		ORDER BY name
	`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.User, 0, 8)
	for rows.Next() {
		var (
			user      domain.User
			outletRef sql.NullString
			subsJSON  []byte
		)
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.Password, &user.Role, &user.Verified, &outletRef, &subsJSON, &user.CreatedAt); err != nil {
			return nil, err
		}
		user.OutletID = outletRef.String
		if len(subsJSON) > 0 {
			if err := json.Unmarshal(subsJSON, &user.PushSubscriptions); err != nil {
				return nil, err
			}
		}
		user.CreatedAt = user.CreatedAt.UTC()
		users = append(users, user)
	}
	return users, rows.Err()
}

func (s *Store) AddPushSubscription(ctx context.Context, userID string, sub domain.PushSubscription) error {
	subJSON, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET push_subscriptions = push_subscriptions || $2::jsonb
		WHERE id = $1
		  AND NOT EXISTS (
			SELECT 1 FROM jsonb_array_elements(push_subscriptions) AS existing
			WHERE existing->>'endpoint' = $3
		  )
	`, userID, subJSON, sub.Endpoint)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// Either the user does not exist or the endpoint is already
		// stored. Distinguish so callers get a real 404.
		var exists bool
		if err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return store.ErrNotFound
		}
	}
	return nil
}

func (s *Store) RemovePushSubscription(ctx context.Context, userID string, endpoint string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET push_subscriptions = COALESCE((
			SELECT jsonb_agg(existing)
			FROM jsonb_array_elements(push_subscriptions) AS existing
			WHERE existing->>'endpoint' <> $2
		), '[]'::jsonb)
		WHERE id = $1
	`, userID, endpoint)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

// --- outlets ---

func (s *Store) CreateOutlet(ctx context.Context, outlet domain.Outlet) (*domain.Outlet, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outlets (id, owner_id, name, address, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, outlet.ID, outlet.OwnerID, outlet.Name, outlet.Address, outlet.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: outlet name already used", store.ErrConflict)
		}
		return nil, err
	}
	created := outlet
	return &created, nil
}

func (s *Store) GetOutletByID(ctx context.Context, id string) (*domain.Outlet, error) {
	var outlet domain.Outlet
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, address, created_at
		FROM outlets
		WHERE id = $1
	`, id).Scan(&outlet.ID, &outlet.OwnerID, &outlet.Name, &outlet.Address, &outlet.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	outlet.CreatedAt = outlet.CreatedAt.UTC()
	return &outlet, nil
}

func (s *Store) ListOutletsByOwner(ctx context.Context, ownerID string) ([]domain.Outlet, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, address, created_at
		FROM outlets
		WHERE owner_id = $1
		ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	outlets := make([]domain.Outlet, 0, 8)
	for rows.Next() {
		var outlet domain.Outlet
		if err := rows.Scan(&outlet.ID, &outlet.OwnerID, &outlet.Name, &outlet.Address, &outlet.CreatedAt); err != nil {
			return nil, err
		}
		outlet.CreatedAt = outlet.CreatedAt.UTC()
		outlets = append(outlets, outlet)
	}
	return outlets, rows.Err()
}

func (s *Store) UpdateOutlet(ctx context.Context, outlet domain.Outlet) (*domain.Outlet, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE outlets
		SET name = $2, address = $3
		WHERE id = $1
	`, outlet.ID, outlet.Name, outlet.Address)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: outlet name already used", store.ErrConflict)
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := outlet
	return &updated, nil
}

func (s *Store) DeleteOutlet(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "outlets", id)
}

// --- products ---

func (s *Store) CreateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	recipeJSON, err := json.Marshal(product.Recipe)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO products (id, owner_id, name, category, cost_price, selling_price, bundle_quantity, recipe, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, product.ID, product.OwnerID, product.Name, product.Category, product.CostPrice, product.SellingPrice, product.BundleQuantity, recipeJSON, product.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := product
	return &created, nil
}

func scanProduct(scan func(dest ...any) error) (*domain.Product, error) {
	var (
		product    domain.Product
		recipeJSON []byte
	)
	err := scan(&product.ID, &product.OwnerID, &product.Name, &product.Category, &product.CostPrice, &product.SellingPrice, &product.BundleQuantity, &recipeJSON, &product.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if len(recipeJSON) > 0 {
		if err := json.Unmarshal(recipeJSON, &product.Recipe); err != nil {
			return nil, err
		}
	}
	product.CreatedAt = product.CreatedAt.UTC()
	return &product, nil
}

const productColumns = `id, owner_id, name, category, cost_price, selling_price, bundle_quantity, recipe, created_at`

func (s *Store) GetProductByID(ctx context.Context, id string) (*domain.Product, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	return scanProduct(row.Scan)
}

func (s *Store) ListProductsByOwner(ctx context.Context, ownerID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+productColumns+` FROM products WHERE owner_id = $1 ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 32)
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

func (s *Store) UpdateProduct(ctx context.Context, product domain.Product) (*domain.Product, error) {
	recipeJSON, err := json.Marshal(product.Recipe)
	if err != nil {
		return nil, err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, cost_price = $4, selling_price = $5, bundle_quantity = $6, recipe = $7
		WHERE id = $1
	`, product.ID, product.Name, product.Category, product.CostPrice, product.SellingPrice, product.BundleQuantity, recipeJSON)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := product
	return &updated, nil
}

func (s *Store) DeleteProduct(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM inventories WHERE product_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) ListProductsUsingIngredient(ctx context.Context, ownerID string, ingredientID string) ([]domain.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE owner_id = $1
		  AND EXISTS (
			SELECT 1 FROM jsonb_array_elements(recipe) AS item
			WHERE item->>'ingredientId' = $2
		  )
		ORDER BY name
	`, ownerID, ingredientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := make([]domain.Product, 0, 4)
	for rows.Next() {
		product, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		products = append(products, *product)
	}
	return products, rows.Err()
}

// --- ingredients ---

func (s *Store) CreateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ingredients (id, owner_id, name, unit, created_at)
		VALUES ($1,$2,$3,$4,$5)
	`, ingredient.ID, ingredient.OwnerID, ingredient.Name, ingredient.Unit, ingredient.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: ingredient name already used", store.ErrConflict)
		}
		return nil, err
	}
	created := ingredient
	return &created, nil
}

func (s *Store) GetIngredientByID(ctx context.Context, id string) (*domain.Ingredient, error) {
	var ingredient domain.Ingredient
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, unit, created_at
		FROM ingredients
		WHERE id = $1
	`, id).Scan(&ingredient.ID, &ingredient.OwnerID, &ingredient.Name, &ingredient.Unit, &ingredient.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	ingredient.CreatedAt = ingredient.CreatedAt.UTC()
	return &ingredient, nil
}

func (s *Store) ListIngredientsByOwner(ctx context.Context, ownerID string) ([]domain.Ingredient, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, unit, created_at
		FROM ingredients
		WHERE owner_id = $1
		ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ingredients := make([]domain.Ingredient, 0, 16)
	for rows.Next() {
		var ingredient domain.Ingredient
		if err := rows.Scan(&ingredient.ID, &ingredient.OwnerID, &ingredient.Name, &ingredient.Unit, &ingredient.CreatedAt); err != nil {
			return nil, err
		}
		ingredient.CreatedAt = ingredient.CreatedAt.UTC()
		ingredients = append(ingredients, ingredient)
	}
	return ingredients, rows.Err()
}

func (s *Store) UpdateIngredient(ctx context.Context, ingredient domain.Ingredient) (*domain.Ingredient, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ingredients
		SET name = $2, unit = $3
		WHERE id = $1
	`, ingredient.ID, ingredient.Name, ingredient.Unit)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: ingredient name already used", store.ErrConflict)
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := ingredient
	return &updated, nil
}

func (s *Store) DeleteIngredient(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `DELETE FROM ingredients WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ingredient_stocks WHERE ingredient_id = $1`, id); err != nil {
		return err
	}
	return tx.Commit()
}

// --- assets ---

func (s *Store) CreateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO assets (id, owner_id, name, created_at)
		VALUES ($1,$2,$3,$4)
	`, asset.ID, asset.OwnerID, asset.Name, asset.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: asset name already used", store.ErrConflict)
		}
		return nil, err
	}
	created := asset
	return &created, nil
}

func (s *Store) GetAssetByID(ctx context.Context, id string) (*domain.Asset, error) {
	var asset domain.Asset
	err := s.db.QueryRowContext(ctx, `
		SELECT id, owner_id, name, created_at
		FROM assets
		WHERE id = $1
	`, id).Scan(&asset.ID, &asset.OwnerID, &asset.Name, &asset.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	asset.CreatedAt = asset.CreatedAt.UTC()
	return &asset, nil
}

func (s *Store) ListAssetsByOwner(ctx context.Context, ownerID string) ([]domain.Asset, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, owner_id, name, created_at
		FROM assets
		WHERE owner_id = $1
		ORDER BY name
	`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assets := make([]domain.Asset, 0, 8)
	for rows.Next() {
		var asset domain.Asset
		if err := rows.Scan(&asset.ID, &asset.OwnerID, &asset.Name, &asset.CreatedAt); err != nil {
			return nil, err
		}
		asset.CreatedAt = asset.CreatedAt.UTC()
		assets = append(assets, asset)
	}
	return assets, rows.Err()
}

func (s *Store) UpdateAsset(ctx context.Context, asset domain.Asset) (*domain.Asset, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE assets SET name = $2 WHERE id = $1
	`, asset.ID, asset.Name)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: asset name already used", store.ErrConflict)
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := asset
	return &updated, nil
}

func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "assets", id)
}

// --- expenses ---

func (s *Store) CreateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO expenses (id, user_id, outlet_id, description, amount, category, date, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, expense.ID, expense.UserID, expense.OutletID, expense.Description, expense.Amount, expense.Category, expense.Date, expense.CreatedAt)
	if err != nil {
		return nil, err
	}
	created := expense
	return &created, nil
}

func (s *Store) GetExpenseByID(ctx context.Context, id string) (*domain.Expense, error) {
	var expense domain.Expense
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, outlet_id, description, amount, category, date, created_at
		FROM expenses
		WHERE id = $1
	`, id).Scan(&expense.ID, &expense.UserID, &expense.OutletID, &expense.Description, &expense.Amount, &expense.Category, &expense.Date, &expense.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	expense.Date = expense.Date.UTC()
	expense.CreatedAt = expense.CreatedAt.UTC()
	return &expense, nil
}

func (s *Store) listExpenses(ctx context.Context, query string, args ...any) ([]domain.Expense, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]domain.Expense, 0, 16)
	for rows.Next() {
		var expense domain.Expense
		if err := rows.Scan(&expense.ID, &expense.UserID, &expense.OutletID, &expense.Description, &expense.Amount, &expense.Category, &expense.Date, &expense.CreatedAt); err != nil {
			return nil, err
		}
		expense.Date = expense.Date.UTC()
		expense.CreatedAt = expense.CreatedAt.UTC()
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}

func (s *Store) ListExpensesByUser(ctx context.Context, userID string) ([]domain.Expense, error) {
	return s.listExpenses(ctx, `
		SELECT id, user_id, outlet_id, description, amount, category, date, created_at
		FROM expenses
		WHERE user_id = $1
		ORDER BY date DESC
	`, userID)
}

func (s *Store) ListExpensesByOutletBetween(ctx context.Context, outletID string, from time.Time, to time.Time) ([]domain.Expense, error) {
	return s.listExpenses(ctx, `
		SELECT id, user_id, outlet_id, description, amount, category, date, created_at
		FROM expenses
		WHERE outlet_id = $1 AND date >= $2 AND date < $3
		ORDER BY date DESC
	`, outletID, from, to)
}

func (s *Store) UpdateExpense(ctx context.Context, expense domain.Expense) (*domain.Expense, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE expenses
		SET outlet_id = $2, description = $3, amount = $4, category = $5, date = $6
		WHERE id = $1
	`, expense.ID, expense.OutletID, expense.Description, expense.Amount, expense.Category, expense.Date)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := expense
	return &updated, nil
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "expenses", id)
}

// --- inventory ---

func (s *Store) SetProductStock(ctx context.Context, productID string, outletID string, stock int) (*domain.Inventory, error) {
	inv := domain.Inventory{ProductID: productID, OutletID: outletID, Stock: stock}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO inventories (id, product_id, outlet_id, stock, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (product_id, outlet_id)
		DO UPDATE SET stock = EXCLUDED.stock, updated_at = now()
		RETURNING id, updated_at
	`, xid.New("inv"), productID, outletID, stock).Scan(&inv.ID, &inv.UpdatedAt)
	if err != nil {
		return nil, err
	}
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

func (s *Store) GetInventory(ctx context.Context, productID string, outletID string) (*domain.Inventory, error) {
	var inv domain.Inventory
	err := s.db.QueryRowContext(ctx, `
		SELECT id, product_id, outlet_id, stock, updated_at
		FROM inventories
		WHERE product_id = $1 AND outlet_id = $2
	`, productID, outletID).Scan(&inv.ID, &inv.ProductID, &inv.OutletID, &inv.Stock, &inv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	inv.UpdatedAt = inv.UpdatedAt.UTC()
	return &inv, nil
}

func (s *Store) ListInventoryByOutlet(ctx context.Context, outletID string) ([]domain.Inventory, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, product_id, outlet_id, stock, updated_at
		FROM inventories
		WHERE outlet_id = $1
		ORDER BY product_id
	`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	inventories := make([]domain.Inventory, 0, 16)
	for rows.Next() {
		var inv domain.Inventory
		if err := rows.Scan(&inv.ID, &inv.ProductID, &inv.OutletID, &inv.Stock, &inv.UpdatedAt); err != nil {
			return nil, err
		}
		inv.UpdatedAt = inv.UpdatedAt.UTC()
		inventories = append(inventories, inv)
	}
	return inventories, rows.Err()
}

// --- ingredient stocks ---

func (s *Store) ListIngredientStocksByOutlet(ctx context.Context, outletID string) ([]domain.IngredientStock, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ingredient_id, outlet_id, stock, average_cost_price, updated_at
		FROM ingredient_stocks
		WHERE outlet_id = $1
		ORDER BY ingredient_id
	`, outletID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stocks := make([]domain.IngredientStock, 0, 16)
	for rows.Next() {
		var is domain.IngredientStock
		if err := rows.Scan(&is.ID, &is.IngredientID, &is.OutletID, &is.Stock, &is.AverageCostPrice, &is.UpdatedAt); err != nil {
			return nil, err
		}
		is.UpdatedAt = is.UpdatedAt.UTC()
		stocks = append(stocks, is)
	}
	return stocks, rows.Err()
}

func (s *Store) ReplenishIngredientStock(ctx context.Context, ingredientID string, outletID string, purchaseQty float64, purchaseCost int64) (*domain.IngredientStock, error) {
	if purchaseQty <= 0 {
		return nil, fmt.Errorf("%w: purchase quantity must be positive", store.ErrValidation)
	}

	// The moving weighted average is folded in by the database itself so
	// concurrent purchases cannot interleave.
	row := domain.IngredientStock{IngredientID: ingredientID, OutletID: outletID}
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ingredient_stocks (id, ingredient_id, outlet_id, stock, average_cost_price, updated_at)
		VALUES ($1,$2,$3,$4,$5,now())
		ON CONFLICT (ingredient_id, outlet_id)
		DO UPDATE SET
			average_cost_price = CASE
				WHEN ingredient_stocks.stock + $4 = 0 THEN $5
				ELSE (ingredient_stocks.average_cost_price * ingredient_stocks.stock + $6) / (ingredient_stocks.stock + $4)
			END,
			stock = ingredient_stocks.stock + $4,
			updated_at = now()
		RETURNING id, stock, average_cost_price, updated_at
	`, xid.New("ist"), ingredientID, outletID, purchaseQty, float64(purchaseCost)/purchaseQty, float64(purchaseCost)).
		Scan(&row.ID, &row.Stock, &row.AverageCostPrice, &row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	row.UpdatedAt = row.UpdatedAt.UTC()
	return &row, nil
}

// --- transfers ---

func (s *Store) TransferStock(ctx context.Context, transfer domain.StockTransfer, productName string) (*domain.StockTransfer, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		UPDATE inventories
		SET stock = stock - $3, updated_at = now()
		WHERE product_id = $1 AND outlet_id = $2 AND stock >= $3
	`, transfer.ProductID, transfer.FromOutletID, transfer.Quantity)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var remaining int
		err := tx.QueryRowContext(ctx, `
			SELECT stock FROM inventories WHERE product_id = $1 AND outlet_id = $2
		`, transfer.ProductID, transfer.FromOutletID).Scan(&remaining)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, &store.InsufficientStockError{ProductName: productName, Remaining: remaining, Required: transfer.Quantity}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO inventories (id, product_id, outlet_id, stock, updated_at)
		VALUES ($1,$2,$3,$4,now())
		ON CONFLICT (product_id, outlet_id)
		DO UPDATE SET stock = inventories.stock + $4, updated_at = now()
	`, xid.New("inv"), transfer.ProductID, transfer.ToOutletID, transfer.Quantity)
	if err != nil {
		return nil, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO stock_transfers (id, from_outlet_id, to_outlet_id, product_id, quantity, user_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, transfer.ID, transfer.FromOutletID, transfer.ToOutletID, transfer.ProductID, transfer.Quantity, transfer.UserID, transfer.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	created := transfer
	return &created, nil
}

func (s *Store) ListTransfersByUser(ctx context.Context, userID string) ([]domain.StockTransfer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, from_outlet_id, to_outlet_id, product_id, quantity, user_id, created_at
		FROM stock_transfers
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	transfers := make([]domain.StockTransfer, 0, 16)
	for rows.Next() {
		var t domain.StockTransfer
		if err := rows.Scan(&t.ID, &t.FromOutletID, &t.ToOutletID, &t.ProductID, &t.Quantity, &t.UserID, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.CreatedAt = t.CreatedAt.UTC()
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// --- daily logs ---

const dailyLogColumns = `id, outlet_id, user_id, status, start_of_day, end_of_day, transaction_ids, calculated, created_at, updated_at`

func (s *Store) CreateDailyLog(ctx context.Context, dlog domain.DailyLog) (*domain.DailyLog, error) {
	startJSON, err := json.Marshal(dlog.StartOfDay)
	if err != nil {
		return nil, err
	}
	idsJSON, err := json.Marshal(dlog.TransactionIDs)
	if err != nil {
		return nil, err
	}
	endJSON, err := marshalNullable(dlog.EndOfDay)
	if err != nil {
		return nil, err
	}
	calcJSON, err := marshalNullable(dlog.Calculated)
	if err != nil {
		return nil, err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO daily_logs (id, outlet_id, user_id, status, start_of_day, end_of_day, transaction_ids, calculated, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
	`, dlog.ID, dlog.OutletID, dlog.UserID, dlog.Status, startJSON, endJSON, idsJSON, calcJSON, dlog.CreatedAt, dlog.UpdatedAt)
	if err != nil {
		return nil, err
	}
	created := dlog
	return &created, nil
}

func scanDailyLog(scan func(dest ...any) error) (*domain.DailyLog, error) {
	var (
		dlog      domain.DailyLog
		startJSON []byte
		endJSON   []byte
		idsJSON   []byte
		calcJSON  []byte
	)
	err := scan(&dlog.ID, &dlog.OutletID, &dlog.UserID, &dlog.Status, &startJSON, &endJSON, &idsJSON, &calcJSON, &dlog.CreatedAt, &dlog.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(startJSON, &dlog.StartOfDay); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(idsJSON, &dlog.TransactionIDs); err != nil {
		return nil, err
	}
	if len(endJSON) > 0 {
		dlog.EndOfDay = &domain.EndOfDay{}
		if err := json.Unmarshal(endJSON, dlog.EndOfDay); err != nil {
			return nil, err
		}
	}
	if len(calcJSON) > 0 {
		dlog.Calculated = &domain.SessionTotals{}
		if err := json.Unmarshal(calcJSON, dlog.Calculated); err != nil {
			return nil, err
		}
	}
	dlog.CreatedAt = dlog.CreatedAt.UTC()
	dlog.UpdatedAt = dlog.UpdatedAt.UTC()
	return &dlog, nil
}

func (s *Store) GetDailyLogByID(ctx context.Context, id string) (*domain.DailyLog, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+dailyLogColumns+` FROM daily_logs WHERE id = $1`, id)
	return scanDailyLog(row.Scan)
}

func (s *Store) GetOpenDailyLog(ctx context.Context, outletID string) (*domain.DailyLog, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+dailyLogColumns+`
		FROM daily_logs
		WHERE outlet_id = $1 AND status = $2
		ORDER BY created_at DESC
		LIMIT 1
	`, outletID, domain.SessionStatusOpen)
	return scanDailyLog(row.Scan)
}

func (s *Store) listDailyLogs(ctx context.Context, query string, args ...any) ([]domain.DailyLog, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	logs := make([]domain.DailyLog, 0, 16)
	for rows.Next() {
		dlog, err := scanDailyLog(rows.Scan)
		if err != nil {
			return nil, err
		}
		logs = append(logs, *dlog)
	}
	return logs, rows.Err()
}

func (s *Store) ListOpenDailyLogsByOutlets(ctx context.Context, outletIDs []string) ([]domain.DailyLog, error) {
	if len(outletIDs) == 0 {
		return []domain.DailyLog{}, nil
	}
	return s.listDailyLogs(ctx, `
		SELECT `+dailyLogColumns+`
		FROM daily_logs
		WHERE status = $2 AND outlet_id = ANY($1)
		ORDER BY created_at DESC
	`, outletIDs, domain.SessionStatusOpen)
}

func (s *Store) ListDailyLogsByOutlets(ctx context.Context, outletIDs []string) ([]domain.DailyLog, error) {
	if len(outletIDs) == 0 {
		return []domain.DailyLog{}, nil
	}
	return s.listDailyLogs(ctx, `
		SELECT `+dailyLogColumns+`
		FROM daily_logs
		WHERE outlet_id = ANY($1)
		ORDER BY created_at DESC
	`, outletIDs)
}

func (s *Store) ListDailyLogsClosedBetween(ctx context.Context, outletIDs []string, from time.Time, to time.Time) ([]domain.DailyLog, error) {
	if len(outletIDs) == 0 {
		return []domain.DailyLog{}, nil
	}
	return s.listDailyLogs(ctx, `
		SELECT `+dailyLogColumns+`
		FROM daily_logs
		WHERE status = $2 AND outlet_id = ANY($1) AND created_at >= $3 AND created_at < $4
		ORDER BY created_at DESC
	`, outletIDs, domain.SessionStatusClosed, from, to)
}

func (s *Store) UpdateDailyLog(ctx context.Context, dlog domain.DailyLog) (*domain.DailyLog, error) {
	startJSON, err := json.Marshal(dlog.StartOfDay)
	if err != nil {
		return nil, err
	}
	idsJSON, err := json.Marshal(dlog.TransactionIDs)
	if err != nil {
		return nil, err
	}
	endJSON, err := marshalNullable(dlog.EndOfDay)
	if err != nil {
		return nil, err
	}
	calcJSON, err := marshalNullable(dlog.Calculated)
	if err != nil {
		return nil, err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE daily_logs
		SET status = $2, start_of_day = $3, end_of_day = $4, transaction_ids = $5, calculated = $6, updated_at = $7
		WHERE id = $1
	`, dlog.ID, dlog.Status, startJSON, endJSON, idsJSON, calcJSON, dlog.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}
	updated := dlog
	return &updated, nil
}

func (s *Store) DeleteDailyLog(ctx context.Context, id string) error {
	return s.deleteByID(ctx, "daily_logs", id)
}

// --- transactions ---

// ApplySale runs the whole sale inside one serializable transaction:
// conditional product decrements, recipe deductions, the transaction
// row and the session append commit together or not at all.
func (s *Store) ApplySale(ctx context.Context, sale store.SaleApplication) (*domain.Transaction, error) {
	pgTx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, err
	}
	defer func() { _ = pgTx.Rollback() }()

	var status string
	err = pgTx.QueryRowContext(ctx, `SELECT status FROM daily_logs WHERE id = $1 FOR UPDATE`, sale.DailyLogID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if status != domain.SessionStatusOpen {
		return nil, fmt.Errorf("%w: session is not open", store.ErrValidation)
	}

	for _, dec := range sale.ProductDecrements {
		res, err := pgTx.ExecContext(ctx, `
			UPDATE inventories
			SET stock = stock - $3, updated_at = now()
			WHERE product_id = $1 AND outlet_id = $2 AND stock >= $3
		`, dec.ProductID, dec.OutletID, dec.Quantity)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			var remaining int
			err := pgTx.QueryRowContext(ctx, `
				SELECT stock FROM inventories WHERE product_id = $1 AND outlet_id = $2
			`, dec.ProductID, dec.OutletID).Scan(&remaining)
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				return nil, err
			}
			return nil, &store.InsufficientStockError{ProductName: dec.ProductName, Remaining: remaining, Required: dec.Quantity}
		}
	}

	// Ingredient stock may go negative; a missing row is simply skipped,
	// mirroring an unconditional increment-style update.
	for _, dec := range sale.IngredientDecrements {
		_, err := pgTx.ExecContext(ctx, `
			UPDATE ingredient_stocks
			SET stock = stock - $3, updated_at = now()
			WHERE ingredient_id = $1 AND outlet_id = $2
		`, dec.IngredientID, dec.OutletID, dec.Quantity)
		if err != nil {
			return nil, err
		}
	}

	tx := sale.Transaction
	itemsJSON, err := json.Marshal(tx.Items)
	if err != nil {
		return nil, err
	}
	_, err = pgTx.ExecContext(ctx, `
		INSERT INTO transactions (id, outlet_id, user_id, daily_log_id, items, total_amount, total_cost_price, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, tx.ID, tx.OutletID, tx.UserID, tx.DailyLogID, itemsJSON, tx.TotalAmount, tx.TotalCostPrice, tx.CreatedAt)
	if err != nil {
		return nil, err
	}

	_, err = pgTx.ExecContext(ctx, `
		UPDATE daily_logs
		SET transaction_ids = transaction_ids || to_jsonb($2::text), updated_at = now()
		WHERE id = $1
	`, sale.DailyLogID, tx.ID)
	if err != nil {
		return nil, err
	}

	if err := pgTx.Commit(); err != nil {
		return nil, err
	}
	created := tx
	return &created, nil
}

func (s *Store) listTransactions(ctx context.Context, query string, args ...any) ([]domain.Transaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	txs := make([]domain.Transaction, 0, 32)
	for rows.Next() {
		var (
			tx        domain.Transaction
			itemsJSON []byte
		)
		if err := rows.Scan(&tx.ID, &tx.OutletID, &tx.UserID, &tx.DailyLogID, &itemsJSON, &tx.TotalAmount, &tx.TotalCostPrice, &tx.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(itemsJSON, &tx.Items); err != nil {
			return nil, err
		}
		tx.CreatedAt = tx.CreatedAt.UTC()
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (s *Store) ListTransactionsByDailyLog(ctx context.Context, dailyLogID string) ([]domain.Transaction, error) {
	return s.listTransactions(ctx, `
		SELECT id, outlet_id, user_id, daily_log_id, items, total_amount, total_cost_price, created_at
		FROM transactions
		WHERE daily_log_id = $1
		ORDER BY created_at DESC
	`, dailyLogID)
}

func (s *Store) ListTransactionsByOutlets(ctx context.Context, outletIDs []string) ([]domain.Transaction, error) {
	if len(outletIDs) == 0 {
		return []domain.Transaction{}, nil
	}
	return s.listTransactions(ctx, `
		SELECT id, outlet_id, user_id, daily_log_id, items, total_amount, total_cost_price, created_at
		FROM transactions
		WHERE outlet_id = ANY($1)
		ORDER BY created_at DESC
	`, outletIDs)
}

// --- helpers ---

func (s *Store) deleteByID(ctx context.Context, table string, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func marshalNullable(v any) (any, error) {
	switch value := v.(type) {
	case *domain.EndOfDay:
		if value == nil {
			return nil, nil
		}
	case *domain.SessionTotals:
		if value == nil {
			return nil, nil
		}
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

func nullIfEmpty(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
