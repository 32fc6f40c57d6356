package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"careshare-service/internal/models"
)

// Sort options for product listings
const (
	SortNewest    = "newest"
	SortOldest    = "oldest"
	SortPriceLow  = "price_low"
	SortPriceHigh = "price_high"
	SortNameAsc   = "name_asc"
	SortNameDesc  = "name_desc"
)

var productOrderBy = map[string]string{
	SortNewest:    "p.created_at DESC, p.id DESC",
	SortOldest:    "p.created_at ASC, p.id ASC",
	SortPriceLow:  "p.price ASC, p.id DESC",
	SortPriceHigh: "p.price DESC, p.id DESC",
	SortNameAsc:   "LOWER(p.name) ASC, p.id DESC",
	SortNameDesc:  "LOWER(p.name) DESC, p.id DESC",
}

// IsValidSort reports whether s is a known product sort option
func IsValidSort(s string) bool {
	_, ok := productOrderBy[s]
	return ok
}

// ProductFilter narrows a product listing. Zero values mean "any".
type ProductFilter struct {
	OwnerID  int64
	Status   string
	Type     string
	Category string
	Sort     string
}

const productWithOwnerColumns = `
	p.*, u.first_name AS owner_first_name, u.last_name AS owner_last_name, u.email AS owner_email`

// CreateProduct inserts a new listing
func (s *Store) CreateProduct(ctx context.Context, product *models.Product) error {
	query := `
		INSERT INTO products (name, price, category, type, description, image_path, condition, status, user_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, product, query,
		product.Name, product.Price, product.Category, product.Type, product.Description,
		product.ImagePath, product.Condition, product.Status, product.UserID)
}

// GetProductByID retrieves a product by ID
func (s *Store) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, "SELECT * FROM products WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &product, nil
}

// GetProductWithOwner retrieves a product joined with its owner
func (s *Store) GetProductWithOwner(ctx context.Context, id int64) (*models.ProductWithOwner, error) {
	var product models.ProductWithOwner
	err := s.db.GetContext(ctx, &product,
		"SELECT"+productWithOwnerColumns+" FROM products p JOIN users u ON u.id = p.user_id WHERE p.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %d: %w", id, err)
	}
	return &product, nil
}

// ListProducts returns products matching the filter joined with their owners
func (s *Store) ListProducts(ctx context.Context, f ProductFilter) ([]models.ProductWithOwner, error) {
	var (
		conds []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OwnerID != 0 {
		add("p.user_id = $%d", f.OwnerID)
	}
	if f.Status != "" {
		add("p.status = $%d", f.Status)
	}
	if f.Type != "" {
		add("p.type = $%d", f.Type)
	}
	if f.Category != "" {
		add("LOWER(p.category) = LOWER($%d)", f.Category)
	}

	query := "SELECT" + productWithOwnerColumns + " FROM products p JOIN users u ON u.id = p.user_id"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	orderBy, ok := productOrderBy[f.Sort]
	if !ok {
		orderBy = productOrderBy[SortNewest]
	}
	query += " ORDER BY " + orderBy

	products := []models.ProductWithOwner{}
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// ApproveProduct moves a pending or rejected product to APPROVED.
// It returns ErrConflict when the product is in any other state.
func (s *Store) ApproveProduct(ctx context.Context, id int64, at time.Time) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, `
		UPDATE products
		SET status = 'APPROVED', approved_at = $2, rejected_at = NULL, rejection_reason = NULL
		WHERE id = $1 AND status IN ('PENDING', 'REJECTED')
		RETURNING *`, id, at)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve product %d: %w", id, err)
	}
	return &product, nil
}

// RejectProduct moves a pending or approved product to REJECTED.
// It returns ErrConflict when the product is sold or already rejected.
func (s *Store) RejectProduct(ctx context.Context, id int64, reason string, at time.Time) (*models.Product, error) {
	var product models.Product
	err := s.db.GetContext(ctx, &product, `
		UPDATE products
		SET status = 'REJECTED', rejected_at = $2, rejection_reason = $3
		WHERE id = $1 AND status IN ('PENDING', 'APPROVED')
		RETURNING *`, id, at, reason)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConflict
	}
	if err != nil {
		return nil, fmt.Errorf("failed to reject product %d: %w", id, err)
	}
	return &product, nil
}

// CountProductsByStatus returns the number of products in each status
func (s *Store) CountProductsByStatus(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}
	if err := s.db.SelectContext(ctx, &rows,
		"SELECT status, COUNT(*) AS count FROM products GROUP BY status"); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Status] = r.Count
	}
	return counts, nil
}
