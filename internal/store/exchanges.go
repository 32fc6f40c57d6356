package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"careshare-service/internal/models"
)

// ExchangeFilter narrows an exchange request listing. Zero values mean "any".
type ExchangeFilter struct {
	RequesterID int64
	OwnerID     int64
	Status      string
}

const exchangeDetailQuery = `
	SELECT er.*,
		p.name AS product_name, p.image_path AS product_image,
		o.id AS owner_id, o.email AS owner_email, o.first_name AS owner_first_name, o.last_name AS owner_last_name,
		r.email AS requester_email, r.first_name AS requester_first_name, r.last_name AS requester_last_name
	FROM exchange_requests er
	JOIN products p ON p.id = er.target_product_id
	JOIN users o ON o.id = p.user_id
	JOIN users r ON r.id = er.requester_id`

// CreateExchangeRequest inserts a new exchange request
func (s *Store) CreateExchangeRequest(ctx context.Context, req *models.ExchangeRequest) error {
	query := `
		INSERT INTO exchange_requests (target_product_id, exchange_item_name, exchange_item_category,
			exchange_item_description, exchange_item_image, additional_message, requester_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	return s.db.GetContext(ctx, req, query,
		req.TargetProductID, req.ItemName, req.ItemCategory, req.ItemDescription,
		req.ItemImage, req.AdditionalMessage, req.RequesterID, req.Status)
}

// GetExchangeRequest retrieves an exchange request with its product, owner and requester
func (s *Store) GetExchangeRequest(ctx context.Context, id int64) (*models.ExchangeRequestDetail, error) {
	var detail models.ExchangeRequestDetail
	err := s.db.GetContext(ctx, &detail, exchangeDetailQuery+" WHERE er.id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get exchange request %d: %w", id, err)
	}
	return &detail, nil
}

// TransitionExchangeRequest moves a PENDING request to a terminal status.
// It returns ErrNotFound for unknown ids and ErrConflict when the request
// has already left PENDING.
func (s *Store) TransitionExchangeRequest(ctx context.Context, id int64, status string, reason *string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE exchange_requests SET status = $2, rejection_reason = $3
		WHERE id = $1 AND status = 'PENDING'`, id, status, reason)
	if err != nil {
		return fmt.Errorf("failed to update exchange request %d: %w", id, err)
	}
	if err := expectOneRow(res); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}

	var exists bool
	if err := s.db.GetContext(ctx, &exists,
		"SELECT EXISTS(SELECT 1 FROM exchange_requests WHERE id = $1)", id); err != nil {
		return err
	}
	if !exists {
		return ErrNotFound
	}
	return ErrConflict
}

// DeleteExchangeRequest hard-removes an exchange request
func (s *Store) DeleteExchangeRequest(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM exchange_requests WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete exchange request %d: %w", id, err)
	}
	return expectOneRow(res)
}

func exchangeWhere(f ExchangeFilter) (string, []interface{}) {
	var (
		conds []string
		args  []interface{}
	)
	if f.RequesterID != 0 {
		args = append(args, f.RequesterID)
		conds = append(conds, fmt.Sprintf("er.requester_id = $%d", len(args)))
	}
	if f.OwnerID != 0 {
		args = append(args, f.OwnerID)
		conds = append(conds, fmt.Sprintf("p.user_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("er.status = $%d", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListExchangeRequests returns matching requests, newest first
func (s *Store) ListExchangeRequests(ctx context.Context, f ExchangeFilter) ([]models.ExchangeRequestDetail, error) {
	where, args := exchangeWhere(f)

	requests := []models.ExchangeRequestDetail{}
	err := s.db.SelectContext(ctx, &requests,
		exchangeDetailQuery+where+" ORDER BY er.created_at DESC, er.id DESC", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange requests: %w", err)
	}
	return requests, nil
}

// CountExchangeRequests counts matching requests
func (s *Store) CountExchangeRequests(ctx context.Context, f ExchangeFilter) (int64, error) {
	where, args := exchangeWhere(f)

	var count int64
	err := s.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM exchange_requests er
		JOIN products p ON p.id = er.target_product_id`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to count exchange requests: %w", err)
	}
	return count, nil
}
