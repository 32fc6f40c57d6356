package service

import (
	"context"
	"errors"
	"strings"

	"careshare-service/internal/apperr"
	"careshare-service/internal/models"
	"careshare-service/internal/storage"
	"careshare-service/internal/store"
	"careshare-service/internal/util"

	"go.uber.org/zap"
)

const defaultDeclineReason = "No reason provided"

// ExchangeService runs the exchange request lifecycle:
// PENDING -> APPROVED | REJECTED, both terminal.
type ExchangeService struct {
	exchanges ExchangeStore
	products  ProductStore
	storage   storage.Storage
	notifier  Notifier
	logger    *zap.Logger
}

// NewExchangeService creates a new exchange service
func NewExchangeService(
	exchanges ExchangeStore,
	products ProductStore,
	storage storage.Storage,
	notifier Notifier,
) *ExchangeService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &ExchangeService{
		exchanges: exchanges,
		products:  products,
		storage:   storage,
		notifier:  notifier,
		logger:    util.Component("exchange"),
	}
}

// OfferedItem describes what the requester offers in exchange
type OfferedItem struct {
	Name              string
	Category          string
	Description       string
	AdditionalMessage string
}

func (o OfferedItem) validate() error {
	if strings.TrimSpace(o.Name) == "" {
		return apperr.Validation("Exchange item name is required")
	}
	if strings.TrimSpace(o.Category) == "" {
		return apperr.Validation("Exchange item category is required")
	}
	if strings.TrimSpace(o.Description) == "" {
		return apperr.Validation("Exchange item description is required")
	}
	return nil
}

// Submit creates a PENDING exchange request against a product and notifies
// the product owner and the requester
func (s *ExchangeService) Submit(
	ctx context.Context,
	identity models.Identity,
	targetProductID int64,
	item OfferedItem,
	image *Upload,
) (*ExchangeRequestView, error) {
	ctx, span := util.StartSpan(ctx, "ExchangeService.Submit")
	defer span.End()

	if err := requireUser(identity); err != nil {
		return nil, err
	}

	if _, err := s.products.GetProductByID(ctx, targetProductID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound("Target product not found")
		}
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to submit exchange request"))
	}

	if err := item.validate(); err != nil {
		return nil, err
	}

	ref, err := saveImage(ctx, s.storage, "exchange-items", image)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	req := &models.ExchangeRequest{
		TargetProductID:   targetProductID,
		ItemName:          strings.TrimSpace(item.Name),
		ItemCategory:      strings.TrimSpace(item.Category),
		ItemDescription:   strings.TrimSpace(item.Description),
		ItemImage:         ref,
		AdditionalMessage: strings.TrimSpace(item.AdditionalMessage),
		RequesterID:       identity.UserID,
		Status:            models.ExchangeStatusPending,
	}

	if err := s.exchanges.CreateExchangeRequest(ctx, req); err != nil {
		discardImage(ctx, s.storage, ref, s.logger)
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to submit exchange request"))
	}

	detail, err := s.exchanges.GetExchangeRequest(ctx, req.ID)
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to load exchange request"))
	}

	util.ExchangeTransitionsTotal.WithLabelValues(models.ExchangeStatusPending, "requester").Inc()
	s.logger.Info("Exchange request submitted",
		zap.Int64("exchange_request_id", req.ID),
		zap.Int64("product_id", targetProductID),
		zap.Int64("requester_id", identity.UserID))

	s.dispatch(ctx, exchangeNotifications(models.EventTypeExchangeSubmitted, detail, detail.Status, ""))

	view := newExchangeRequestView(detail)
	return &view, nil
}

// Accept approves a request. Only the target product's owner may accept.
func (s *ExchangeService) Accept(ctx context.Context, identity models.Identity, id int64) (*ExchangeRequestView, error) {
	ctx, span := util.StartSpan(ctx, "ExchangeService.Accept")
	defer span.End()

	if err := requireUser(identity); err != nil {
		return nil, err
	}
	view, err := s.transition(ctx, id, &identity, models.ExchangeStatusApproved, nil)
	return view, util.RecordError(span, err)
}

// Decline rejects a request with an optional reason. Only the target product's owner may decline.
func (s *ExchangeService) Decline(ctx context.Context, identity models.Identity, id int64, reason string) (*ExchangeRequestView, error) {
	ctx, span := util.StartSpan(ctx, "ExchangeService.Decline")
	defer span.End()

	if err := requireUser(identity); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDeclineReason
	}
	view, err := s.transition(ctx, id, &identity, models.ExchangeStatusRejected, &reason)
	return view, util.RecordError(span, err)
}

// AdminApprove approves a request without the owner check
func (s *ExchangeService) AdminApprove(ctx context.Context, id int64) (*ExchangeRequestView, error) {
	ctx, span := util.StartSpan(ctx, "ExchangeService.AdminApprove")
	defer span.End()

	view, err := s.transition(ctx, id, nil, models.ExchangeStatusApproved, nil)
	return view, util.RecordError(span, err)
}

// AdminReject rejects a request without the owner check. A reason is required.
func (s *ExchangeService) AdminReject(ctx context.Context, id int64, reason string) (*ExchangeRequestView, error) {
	ctx, span := util.StartSpan(ctx, "ExchangeService.AdminReject")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Rejection reason is required")
	}
	view, err := s.transition(ctx, id, nil, models.ExchangeStatusRejected, &reason)
	return view, util.RecordError(span, err)
}

// transition moves a PENDING request to a terminal status. A nil actor is an admin override.
func (s *ExchangeService) transition(
	ctx context.Context,
	id int64,
	actor *models.Identity,
	status string,
	reason *string,
) (*ExchangeRequestView, error) {
	detail, err := s.exchanges.GetExchangeRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Exchange request not found")
	}
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load exchange request")
	}

	actorLabel := "admin"
	if actor != nil {
		if detail.OwnerID != actor.UserID {
			return nil, apperr.Forbidden("Only the product owner can respond to this exchange request")
		}
		actorLabel = "owner"
	}

	if detail.Status != models.ExchangeStatusPending {
		return nil, apperr.Conflict("Exchange request has already been %s", strings.ToLower(detail.Status))
	}

	err = s.exchanges.TransitionExchangeRequest(ctx, id, status, reason)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Exchange request not found")
	case errors.Is(err, store.ErrConflict):
		return nil, apperr.Conflict("Exchange request has already been processed")
	case err != nil:
		return nil, apperr.Wrap(err, "Failed to update exchange request")
	}

	detail.Status = status
	detail.RejectionReason = reason

	util.ExchangeTransitionsTotal.WithLabelValues(status, actorLabel).Inc()
	s.logger.Info("Exchange request updated",
		zap.Int64("exchange_request_id", id),
		zap.String("status", status),
		zap.String("actor", actorLabel))

	reasonText := ""
	if reason != nil {
		reasonText = *reason
	}
	s.dispatch(ctx, exchangeNotifications(models.EventTypeExchangeStatusUpdated, detail, status, reasonText))

	view := newExchangeRequestView(detail)
	return &view, nil
}

// Delete hard-removes a request
func (s *ExchangeService) Delete(ctx context.Context, id int64) error {
	ctx, span := util.StartSpan(ctx, "ExchangeService.Delete")
	defer span.End()

	err := s.exchanges.DeleteExchangeRequest(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return apperr.NotFound("Exchange request not found")
	}
	if err != nil {
		return util.RecordError(span, apperr.Wrap(err, "Failed to delete exchange request"))
	}

	s.logger.Info("Exchange request deleted", zap.Int64("exchange_request_id", id))
	return nil
}

// ListMine returns requests the caller submitted
func (s *ExchangeService) ListMine(ctx context.Context, identity models.Identity, status string) ([]ExchangeRequestView, error) {
	if err := requireUser(identity); err != nil {
		return nil, err
	}
	return s.list(ctx, store.ExchangeFilter{RequesterID: identity.UserID}, status)
}

// ListReceived returns requests made against the caller's products
func (s *ExchangeService) ListReceived(ctx context.Context, identity models.Identity, status string) ([]ExchangeRequestView, error) {
	if err := requireUser(identity); err != nil {
		return nil, err
	}
	return s.list(ctx, store.ExchangeFilter{OwnerID: identity.UserID}, status)
}

// ListAll returns every request, optionally narrowed to one status
func (s *ExchangeService) ListAll(ctx context.Context, status string) ([]ExchangeRequestView, error) {
	return s.list(ctx, store.ExchangeFilter{}, status)
}

// CountByStatus counts requests in a status; an empty status counts all
func (s *ExchangeService) CountByStatus(ctx context.Context, status string) (int64, error) {
	status, err := normalizeExchangeStatus(status)
	if err != nil {
		return 0, err
	}
	count, err := s.exchanges.CountExchangeRequests(ctx, store.ExchangeFilter{Status: status})
	if err != nil {
		return 0, apperr.Wrap(err, "Failed to count exchange requests")
	}
	return count, nil
}

// Stats counts requests per status
func (s *ExchangeService) Stats(ctx context.Context) (*ExchangeStats, error) {
	stats := &ExchangeStats{}
	targets := []struct {
		status string
		dst    *int64
	}{
		{models.ExchangeStatusPending, &stats.Pending},
		{models.ExchangeStatusApproved, &stats.Approved},
		{models.ExchangeStatusRejected, &stats.Rejected},
		{"", &stats.Total},
	}
	for _, t := range targets {
		count, err := s.CountByStatus(ctx, t.status)
		if err != nil {
			return nil, err
		}
		*t.dst = count
	}
	return stats, nil
}

func (s *ExchangeService) list(ctx context.Context, f store.ExchangeFilter, status string) ([]ExchangeRequestView, error) {
	status, err := normalizeExchangeStatus(status)
	if err != nil {
		return nil, err
	}
	f.Status = status

	requests, err := s.exchanges.ListExchangeRequests(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load exchange requests")
	}

	views := make([]ExchangeRequestView, 0, len(requests))
	for i := range requests {
		views = append(views, newExchangeRequestView(&requests[i]))
	}
	return views, nil
}

func (s *ExchangeService) dispatch(ctx context.Context, notifications []models.Notification) {
	for _, n := range notifications {
		s.notifier.Notify(ctx, n)
	}
}

func normalizeExchangeStatus(status string) (string, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status == "" || status == "ALL" {
		return "", nil
	}
	if !models.IsExchangeStatus(status) {
		return "", apperr.Validation("Unknown exchange request status: %s", status)
	}
	return status, nil
}
