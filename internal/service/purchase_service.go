package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"careshare-service/internal/apperr"
	"careshare-service/internal/models"
	"careshare-service/internal/store"
	"careshare-service/internal/util"

	"go.uber.org/zap"
)

// PurchaseService handles purchase creation and fulfilment status
type PurchaseService struct {
	purchases PurchaseStore
	products  ProductStore
	users     UserStore
	notifier  Notifier
	cache     ListingCache
	strict    bool
	logger    *zap.Logger
	now       func() time.Time
}

// NewPurchaseService creates a new purchase service. With strict set, status
// updates must follow models.PurchaseTransitions.
func NewPurchaseService(
	purchases PurchaseStore,
	products ProductStore,
	users UserStore,
	notifier Notifier,
	cache ListingCache,
	strict bool,
) *PurchaseService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	return &PurchaseService{
		purchases: purchases,
		products:  products,
		users:     users,
		notifier:  notifier,
		cache:     cache,
		strict:    strict,
		logger:    util.Component("purchase"),
		now:       time.Now,
	}
}

// CreatePurchaseRequest is the buyer-supplied purchase form
type CreatePurchaseRequest struct {
	ProductID       int64  `json:"productId" binding:"required,gt=0"`
	FullName        string `json:"fullName" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Phone           string `json:"phone" binding:"required,len=10,numeric"`
	ShippingAddress string `json:"shippingAddress" binding:"required"`
	PaymentMethod   string `json:"paymentMethod" binding:"required,oneof=UPI CARD NETBANKING COD"`
}

func (r *CreatePurchaseRequest) normalize() error {
	r.FullName = strings.TrimSpace(r.FullName)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	r.ShippingAddress = strings.TrimSpace(r.ShippingAddress)
	r.PaymentMethod = strings.ToUpper(strings.TrimSpace(r.PaymentMethod))
	return validate(r)
}

// Create records a purchase and marks the product SOLD atomically.
// Concurrent buyers of one product serialize in the store; all but one get a conflict.
func (s *PurchaseService) Create(ctx context.Context, identity models.Identity, req CreatePurchaseRequest) (*PurchaseResult, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.Create")
	defer span.End()

	if err := requireUser(identity); err != nil {
		return nil, err
	}
	if err := req.normalize(); err != nil {
		return nil, err
	}

	product, err := s.products.GetProductByID(ctx, req.ProductID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to create purchase"))
	}
	if product.Status != models.ProductStatusApproved {
		util.PurchasesFailedTotal.WithLabelValues("unavailable").Inc()
		return nil, apperr.Conflict("Product is not available for purchase. Current status: %s", product.Status)
	}

	buyer, err := s.users.GetUserByID(ctx, identity.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to create purchase"))
	}
	if product.UserID == buyer.ID {
		util.PurchasesFailedTotal.WithLabelValues("self_purchase").Inc()
		return nil, apperr.Conflict("You cannot purchase your own product")
	}

	purchase := &models.Purchase{
		ProductID:       product.ID,
		BuyerID:         buyer.ID,
		FullName:        req.FullName,
		Email:           req.Email,
		Phone:           req.Phone,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}

	start := time.Now()
	locked, err := s.purchases.CreatePurchaseTx(ctx, purchase)
	util.PurchaseTxLatency.Observe(time.Since(start).Seconds())

	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound("Product not found")
	case errors.Is(err, store.ErrProductUnavailable):
		util.PurchasesFailedTotal.WithLabelValues("unavailable").Inc()
		status := models.ProductStatusSold
		if locked != nil {
			status = locked.Status
		}
		return nil, apperr.Conflict("Product is not available for purchase. Current status: %s", status)
	case errors.Is(err, store.ErrSelfPurchase):
		util.PurchasesFailedTotal.WithLabelValues("self_purchase").Inc()
		return nil, apperr.Conflict("You cannot purchase your own product")
	case err != nil:
		util.PurchasesFailedTotal.WithLabelValues("error").Inc()
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to create purchase"))
	}

	util.PurchasesCreatedTotal.WithLabelValues(purchase.PaymentMethod).Inc()
	s.logger.Info("Purchase created",
		zap.Int64("purchase_id", purchase.ID),
		zap.Int64("product_id", purchase.ProductID),
		zap.Int64("buyer_id", purchase.BuyerID),
		zap.String("amount", purchase.Amount.StringFixed(2)))

	invalidateListings(ctx, s.cache, s.logger)

	result := &PurchaseResult{
		PurchaseID:    purchase.ID,
		ProductName:   product.Name,
		Amount:        purchase.Amount,
		Status:        purchase.Status,
		PaymentMethod: purchase.PaymentMethod,
		CreatedAt:     purchase.CreatedAt,
		Message:       purchaseMessage(purchase.PaymentMethod),
	}

	// The purchase is committed; a failed detail read only costs the notifications.
	detail, err := s.purchases.GetPurchase(ctx, purchase.ID)
	if err != nil {
		s.logger.Error("Failed to load purchase for notification",
			zap.Int64("purchase_id", purchase.ID), zap.Error(err))
		return result, nil
	}
	result.SellerName = detail.SellerFirstName + " " + detail.SellerLastName

	for _, n := range purchaseNotifications(detail) {
		s.notifier.Notify(ctx, n)
	}
	return result, nil
}

// UpdateStatus sets a purchase's fulfilment status. Only the seller may do so.
func (s *PurchaseService) UpdateStatus(ctx context.Context, identity models.Identity, id int64, status string) (*PurchaseView, error) {
	ctx, span := util.StartSpan(ctx, "PurchaseService.UpdateStatus")
	defer span.End()

	if err := requireUser(identity); err != nil {
		return nil, err
	}

	detail, err := s.purchases.GetPurchase(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Purchase not found")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to update purchase status"))
	}

	if detail.SellerID != identity.UserID {
		return nil, apperr.Forbidden("You can only update status of your own sales")
	}

	status = strings.ToUpper(strings.TrimSpace(status))
	if !models.IsPurchaseStatus(status) {
		return nil, apperr.Validation("Unknown purchase status: %s", status)
	}
	if s.strict && !models.CanTransitionPurchase(detail.Status, status) {
		return nil, apperr.Conflict("Cannot change purchase status from %s to %s", detail.Status, status)
	}

	at := s.now()
	err = s.purchases.UpdatePurchaseStatus(ctx, id, status, at)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Purchase not found")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to update purchase status"))
	}

	previous := detail.Status
	detail.Status = status
	detail.UpdatedAt = &at

	util.PurchaseStatusUpdatesTotal.WithLabelValues(status).Inc()
	s.logger.Info("Purchase status updated",
		zap.Int64("purchase_id", id),
		zap.String("from", previous),
		zap.String("to", status))

	n := newNotification(models.EventTypePurchaseStatusUpdated, models.AudienceBuyer, detail.Email, detail.FullName)
	n.ReferenceID = detail.ID
	n.ProductName = detail.ProductName
	n.Amount = detail.Amount.StringFixed(2)
	n.PaymentMethod = detail.PaymentMethod
	n.Status = status
	n.CounterParty = detail.SellerFirstName + " " + detail.SellerLastName
	s.notifier.Notify(ctx, n)

	view := newPurchaseView(detail)
	return &view, nil
}

// ListMyPurchases returns the caller's purchases, newest first
func (s *PurchaseService) ListMyPurchases(ctx context.Context, identity models.Identity) ([]PurchaseView, error) {
	if err := requireUser(identity); err != nil {
		return nil, err
	}
	return s.list(ctx, store.PurchaseFilter{BuyerID: identity.UserID})
}

// ListMySales returns purchases of the caller's products, newest first
func (s *PurchaseService) ListMySales(ctx context.Context, identity models.Identity) ([]PurchaseView, error) {
	if err := requireUser(identity); err != nil {
		return nil, err
	}
	return s.list(ctx, store.PurchaseFilter{SellerID: identity.UserID})
}

// Count returns the total number of purchases
func (s *PurchaseService) Count(ctx context.Context) (int64, error) {
	count, err := s.purchases.CountPurchases(ctx)
	if err != nil {
		return 0, apperr.Wrap(err, "Failed to count purchases")
	}
	return count, nil
}

func (s *PurchaseService) list(ctx context.Context, f store.PurchaseFilter) ([]PurchaseView, error) {
	purchases, err := s.purchases.ListPurchases(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load purchases")
	}

	views := make([]PurchaseView, 0, len(purchases))
	for i := range purchases {
		views = append(views, newPurchaseView(&purchases[i]))
	}
	return views, nil
}

func purchaseMessage(paymentMethod string) string {
	if paymentMethod == models.PaymentMethodCOD {
		return "Purchase completed successfully! Please keep cash ready for delivery."
	}
	return "Purchase completed successfully! Your payment has been processed successfully."
}
