package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"careshare-service/internal/apperr"
	"careshare-service/internal/models"
	"careshare-service/internal/storage"
	"careshare-service/internal/store"
	"careshare-service/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const listingCacheNamespace = "products"

// ListingService handles product listings and their moderation
type ListingService struct {
	products ProductStore
	storage  storage.Storage
	cache    ListingCache
	cacheTTL time.Duration
	logger   *zap.Logger
	now      func() time.Time
}

// NewListingService creates a new listing service. cache may be nil.
func NewListingService(
	products ProductStore,
	storage storage.Storage,
	cache ListingCache,
	cacheTTL time.Duration,
) *ListingService {
	return &ListingService{
		products: products,
		storage:  storage,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   util.Component("listing"),
		now:      time.Now,
	}
}

// NewListing is the owner-supplied part of a product
type NewListing struct {
	Name        string
	Price       string
	Category    string
	Type        string
	Description string
	Condition   string
}

func (in NewListing) toProduct() (*models.Product, error) {
	fields := []struct{ value, name string }{
		{in.Name, "Product name"},
		{in.Price, "Price"},
		{in.Category, "Category"},
		{in.Type, "Type"},
		{in.Description, "Description"},
	}
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			return nil, apperr.Validation("%s is required", f.name)
		}
	}

	price, err := decimal.NewFromString(strings.TrimSpace(in.Price))
	if err != nil {
		return nil, apperr.Validation("Price must be a number")
	}
	if price.IsNegative() {
		return nil, apperr.Validation("Price cannot be negative")
	}

	productType := strings.TrimSpace(in.Type)
	if !models.IsProductType(productType) {
		return nil, apperr.Validation("Type must be one of Donate, Exchange or Resell")
	}

	condition := strings.TrimSpace(in.Condition)
	if condition == "" {
		condition = models.DefaultCondition
	}
	if !models.IsCondition(condition) {
		return nil, apperr.Validation("Unknown condition: %s", condition)
	}

	return &models.Product{
		Name:        strings.TrimSpace(in.Name),
		Price:       price.Round(2),
		Category:    strings.TrimSpace(in.Category),
		Type:        productType,
		Description: strings.TrimSpace(in.Description),
		Condition:   condition,
		Status:      models.ProductStatusPending,
	}, nil
}

// Submit stores the image and creates a PENDING listing owned by the caller
func (s *ListingService) Submit(ctx context.Context, identity models.Identity, in NewListing, image *Upload) (*ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Submit")
	defer span.End()

	if err := requireUser(identity); err != nil {
		return nil, err
	}

	product, err := in.toProduct()
	if err != nil {
		return nil, err
	}

	ref, err := saveImage(ctx, s.storage, "products", image)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	product.ImagePath = ref
	product.UserID = identity.UserID

	if err := s.products.CreateProduct(ctx, product); err != nil {
		discardImage(ctx, s.storage, ref, s.logger)
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to add product"))
	}

	util.ProductsSubmittedTotal.WithLabelValues(product.Type).Inc()
	s.logger.Info("Product submitted",
		zap.Int64("product_id", product.ID),
		zap.Int64("owner_id", product.UserID))

	view := newProductView(product)
	return &view, nil
}

// Approve moves a product to APPROVED. Approving an approved product is a no-op.
func (s *ListingService) Approve(ctx context.Context, id int64) (*ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Approve")
	defer span.End()

	product, err := s.products.GetProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to approve product"))
	}

	switch product.Status {
	case models.ProductStatusApproved:
		view := newProductView(product)
		return &view, nil
	case models.ProductStatusSold:
		return nil, apperr.Conflict("Product has already been sold")
	}

	updated, err := s.products.ApproveProduct(ctx, id, s.now())
	if errors.Is(err, store.ErrConflict) {
		return nil, apperr.Conflict("Product can no longer be approved")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to approve product"))
	}

	s.invalidate(ctx)
	util.ProductsModeratedTotal.WithLabelValues("approved").Inc()
	s.logger.Info("Product approved", zap.Int64("product_id", id))

	view := newProductView(updated)
	return &view, nil
}

// Reject moves a pending or approved product to REJECTED with a reason
func (s *ListingService) Reject(ctx context.Context, id int64, reason string) (*ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Reject")
	defer span.End()

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.Validation("Rejection reason is required")
	}

	product, err := s.products.GetProductByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Product not found")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to reject product"))
	}

	switch product.Status {
	case models.ProductStatusSold:
		return nil, apperr.Conflict("Product has already been sold")
	case models.ProductStatusRejected:
		return nil, apperr.Conflict("Product is already rejected")
	}

	updated, err := s.products.RejectProduct(ctx, id, reason, s.now())
	if errors.Is(err, store.ErrConflict) {
		return nil, apperr.Conflict("Product can no longer be rejected")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to reject product"))
	}

	s.invalidate(ctx)
	util.ProductsModeratedTotal.WithLabelValues("rejected").Inc()
	s.logger.Info("Product rejected", zap.Int64("product_id", id), zap.String("reason", reason))

	view := newProductView(updated)
	return &view, nil
}

// Get returns an approved product with its owner
func (s *ListingService) Get(ctx context.Context, id int64) (*ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.Get")
	defer span.End()

	product, err := s.products.GetProductWithOwner(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound("Product not found or not approved")
	}
	if err != nil {
		return nil, util.RecordError(span, apperr.Wrap(err, "Failed to load product"))
	}
	if product.Status != models.ProductStatusApproved {
		return nil, apperr.NotFound("Product not found or not approved")
	}

	view := newProductViewWithOwner(product)
	return &view, nil
}

// ListMine returns the caller's products, optionally narrowed to one status
func (s *ListingService) ListMine(ctx context.Context, identity models.Identity, status string) ([]ProductView, error) {
	if err := requireUser(identity); err != nil {
		return nil, err
	}
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && !models.IsProductStatus(status) {
		return nil, apperr.Validation("Unknown product status: %s", status)
	}
	return s.list(ctx, store.ProductFilter{OwnerID: identity.UserID, Status: status}, false)
}

// ListByStatus returns every product in a status
func (s *ListingService) ListByStatus(ctx context.Context, status string) ([]ProductView, error) {
	return s.list(ctx, store.ProductFilter{Status: status, Sort: store.SortOldest}, true)
}

// ListByStatusAndType returns every product in a status and of a type
func (s *ListingService) ListByStatusAndType(ctx context.Context, status, productType string) ([]ProductView, error) {
	return s.list(ctx, store.ProductFilter{Status: status, Type: productType}, true)
}

// AvailableFilter narrows the public listing. "all" or empty means any.
type AvailableFilter struct {
	Type     string
	Category string
	Sort     string
}

// ListAvailable returns approved products for browsing, served from cache when possible
func (s *ListingService) ListAvailable(ctx context.Context, f AvailableFilter) ([]ProductView, error) {
	ctx, span := util.StartSpan(ctx, "ListingService.ListAvailable")
	defer span.End()

	filter, err := normalizeAvailable(f)
	if err != nil {
		return nil, err
	}

	key, cacheable := s.cacheKey(ctx, filter)
	if cacheable {
		var cached []ProductView
		hit, err := s.cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("Listing cache read failed", zap.Error(err))
		} else if hit {
			util.ListingCacheTotal.WithLabelValues("hit").Inc()
			return cached, nil
		}
		util.ListingCacheTotal.WithLabelValues("miss").Inc()
	}

	views, err := s.list(ctx, filter, true)
	if err != nil {
		return nil, util.RecordError(span, err)
	}

	if cacheable {
		if err := s.cache.SetJSON(ctx, key, views, s.cacheTTL); err != nil {
			s.logger.Warn("Listing cache write failed", zap.Error(err))
		}
	}
	return views, nil
}

// Stats counts products per status
func (s *ListingService) Stats(ctx context.Context) (*ProductStats, error) {
	counts, err := s.products.CountProductsByStatus(ctx)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load product statistics")
	}

	stats := &ProductStats{
		Pending:  counts[models.ProductStatusPending],
		Approved: counts[models.ProductStatusApproved],
		Rejected: counts[models.ProductStatusRejected],
		Sold:     counts[models.ProductStatusSold],
	}
	for _, c := range counts {
		stats.Total += c
	}
	return stats, nil
}

func (s *ListingService) list(ctx context.Context, f store.ProductFilter, withOwner bool) ([]ProductView, error) {
	products, err := s.products.ListProducts(ctx, f)
	if err != nil {
		return nil, apperr.Wrap(err, "Failed to load products")
	}

	views := make([]ProductView, 0, len(products))
	for i := range products {
		if withOwner {
			views = append(views, newProductViewWithOwner(&products[i]))
		} else {
			views = append(views, newProductView(&products[i].Product))
		}
	}
	return views, nil
}

func (s *ListingService) cacheKey(ctx context.Context, f store.ProductFilter) (string, bool) {
	if s.cache == nil {
		return "", false
	}
	version, err := s.cache.Version(ctx, listingCacheNamespace)
	if err != nil {
		s.logger.Warn("Listing cache version lookup failed", zap.Error(err))
		return "", false
	}
	return fmt.Sprintf("%s:available:v%d:%s:%s:%s",
		listingCacheNamespace, version, f.Type, strings.ToLower(f.Category), f.Sort), true
}

func (s *ListingService) invalidate(ctx context.Context) {
	invalidateListings(ctx, s.cache, s.logger)
}

func invalidateListings(ctx context.Context, cache ListingCache, logger *zap.Logger) {
	if cache == nil {
		return
	}
	if err := cache.BumpVersion(ctx, listingCacheNamespace); err != nil {
		logger.Warn("Listing cache invalidation failed", zap.Error(err))
	}
}

func normalizeAvailable(f AvailableFilter) (store.ProductFilter, error) {
	filter := store.ProductFilter{Status: models.ProductStatusApproved, Sort: store.SortNewest}

	if t := strings.TrimSpace(f.Type); t != "" && !strings.EqualFold(t, "all") {
		for _, known := range []string{models.ProductTypeDonate, models.ProductTypeExchange, models.ProductTypeResell} {
			if strings.EqualFold(t, known) {
				filter.Type = known
			}
		}
		if filter.Type == "" {
			return filter, apperr.Validation("Unknown product type: %s", t)
		}
	}

	if c := strings.TrimSpace(f.Category); c != "" && !strings.EqualFold(c, "all") {
		filter.Category = c
	}

	if sort := strings.ToLower(strings.TrimSpace(f.Sort)); sort != "" {
		if !store.IsValidSort(sort) {
			return filter, apperr.Validation("Unknown sort option: %s", sort)
		}
		filter.Sort = sort
	}
	return filter, nil
}

func requireUser(identity models.Identity) error {
	if identity.UserID == 0 {
		return apperr.Unauthenticated("Authentication required")
	}
	return nil
}

// saveImage validates and stores an upload, mapping storage rejections to validation errors
func saveImage(ctx context.Context, st storage.Storage, folder string, image *Upload) (string, error) {
	if image == nil || image.Content == nil || image.Filename == "" {
		return "", apperr.Validation("Image is required")
	}
	if err := storage.CheckImage(image.Filename, image.Size); err != nil {
		return "", apperr.Validation("%s", err.Error())
	}

	ref, err := st.Save(ctx, folder, image.Filename, image.Content)
	if errors.Is(err, storage.ErrTooLarge) || errors.Is(err, storage.ErrUnsupportedType) {
		return "", apperr.Validation("%s", err.Error())
	}
	if err != nil {
		return "", apperr.Wrap(err, "Failed to store image")
	}
	return ref, nil
}

// discardImage removes an image whose row was never written
func discardImage(ctx context.Context, st storage.Storage, ref string, logger *zap.Logger) {
	if err := st.Delete(context.WithoutCancel(ctx), ref); err != nil {
		logger.Warn("Failed to remove orphaned image", zap.String("ref", ref), zap.Error(err))
	}
}
