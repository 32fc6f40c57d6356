package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"careshare-service/internal/models"
)

// PurchaseFilter narrows a purchase listing. Zero values mean "any".
type PurchaseFilter struct {
	BuyerID  int64
	SellerID int64
}

const purchaseDetailQuery = `
	SELECT pu.*,
		p.name AS product_name, p.image_path AS product_image, p.category AS product_category,
		s.id AS seller_id, s.email AS seller_email, s.first_name AS seller_first_name, s.last_name AS seller_last_name,
		b.email AS buyer_email, b.first_name AS buyer_first_name, b.last_name AS buyer_last_name
	FROM purchases pu
	JOIN products p ON p.id = pu.product_id
	JOIN users s ON s.id = p.user_id
	JOIN users b ON b.id = pu.buyer_id`

// CreatePurchaseTx records a purchase and marks its product SOLD in one
// transaction. The product row is locked FOR UPDATE so concurrent buyers
// serialize on it; the second one observes SOLD and gets
// ErrProductUnavailable. The purchase amount is the locked product price.
func (s *Store) CreatePurchaseTx(ctx context.Context, purchase *models.Purchase) (*models.Product, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var product models.Product
	err = tx.GetContext(ctx, &product,
		"SELECT * FROM products WHERE id = $1 FOR UPDATE", purchase.ProductID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock product: %w", err)
	}

	if product.Status != models.ProductStatusApproved {
		return &product, ErrProductUnavailable
	}
	if product.UserID == purchase.BuyerID {
		return &product, ErrSelfPurchase
	}

	purchase.Amount = product.Price
	purchase.Status = models.PurchaseStatusPending

	err = tx.GetContext(ctx, purchase, `
		INSERT INTO purchases (product_id, buyer_id, full_name, email, phone, shipping_address,
			payment_method, amount, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at`,
		purchase.ProductID, purchase.BuyerID, purchase.FullName, purchase.Email, purchase.Phone,
		purchase.ShippingAddress, purchase.PaymentMethod, purchase.Amount, purchase.Status)
	if isUniqueViolation(err) {
		return &product, ErrProductUnavailable
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert purchase: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE products SET status = 'SOLD' WHERE id = $1 AND status = 'APPROVED'", product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark product sold: %w", err)
	}
	if err := expectOneRow(res); err != nil {
		return &product, ErrProductUnavailable
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit purchase: %w", err)
	}

	product.Status = models.ProductStatusSold
	return &product, nil
}

// GetPurchase retrieves a purchase with its product, seller and buyer
func (s *Store) GetPurchase(ctx context.Context, id int64) (*models.PurchaseDetail, error) {
	var detail models.PurchaseDetail
	err := s.db.GetContext(ctx, &detail, purchaseDetailQuery+" WHERE pu.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase %d: %w", id, err)
	}
	return &detail, nil
}

// UpdatePurchaseStatus sets a purchase's status and updated_at
func (s *Store) UpdatePurchaseStatus(ctx context.Context, id int64, status string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE purchases SET status = $1, updated_at = $2 WHERE id = $3",
		status, at, id)
	if err != nil {
		return fmt.Errorf("failed to update purchase %d: %w", id, err)
	}
	return expectOneRow(res)
}

// ListPurchases returns matching purchases, newest first
func (s *Store) ListPurchases(ctx context.Context, f PurchaseFilter) ([]models.PurchaseDetail, error) {
	query := purchaseDetailQuery
	var args []interface{}

	switch {
	case f.BuyerID != 0:
		query += " WHERE pu.buyer_id = $1"
		args = append(args, f.BuyerID)
	case f.SellerID != 0:
		query += " WHERE p.user_id = $1"
		args = append(args, f.SellerID)
	}
	query += " ORDER BY pu.created_at DESC, pu.id DESC"

	purchases := []models.PurchaseDetail{}
	if err := s.db.SelectContext(ctx, &purchases, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}

// CountPurchases returns the total number of purchases
func (s *Store) CountPurchases(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM purchases")
	return count, err
}
