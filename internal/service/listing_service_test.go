package service

import (
	"context"
	"testing"

	"careshare-service/internal/apperr"
	"careshare-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newListingFixture(t *testing.T) (*memStore, *memCache, *ListingService, models.Identity) {
	st := newMemStore()
	cache := newMemCache()
	svc := NewListingService(st, newMemStorage(), cache, 0)
	owner := st.SeedUser(t, "Olivia", false)
	return st, cache, svc, owner
}

func TestSubmitListingRemovesImageWhenInsertFails(t *testing.T) {
	st := newMemStore()
	files := newMemStorage()
	svc := NewListingService(failingProducts{st}, files, nil, 0)
	owner := st.SeedUser(t, "Olivia", false)

	_, err := svc.Submit(context.Background(), owner, lampListing(), imageUpload("lamp.png"))
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindOperation))
	assert.Zero(t, files.count())
}

func lampListing() NewListing {
	return NewListing{
		Name:        "Lamp",
		Price:       "49.999",
		Category:    "Home",
		Type:        models.ProductTypeResell,
		Description: "Desk lamp",
	}
}

func TestSubmitListing(t *testing.T) {
	_, _, svc, owner := newListingFixture(t)

	view, err := svc.Submit(context.Background(), owner, lampListing(), imageUpload("lamp.png"))
	require.NoError(t, err)

	assert.Equal(t, models.ProductStatusPending, view.Status)
	assert.Equal(t, models.DefaultCondition, view.Condition)
	assert.Equal(t, "50.00", view.Price.StringFixed(2))
	assert.Equal(t, "/uploads/products/lamp.png", view.ImagePath)
}

func TestSubmitListingValidation(t *testing.T) {
	_, _, svc, owner := newListingFixture(t)

	tests := []struct {
		name   string
		mutate func(*NewListing)
	}{
		{"missing name", func(l *NewListing) { l.Name = "" }},
		{"bad price", func(l *NewListing) { l.Price = "cheap" }},
		{"negative price", func(l *NewListing) { l.Price = "-1" }},
		{"unknown type", func(l *NewListing) { l.Type = "Lend" }},
		{"unknown condition", func(l *NewListing) { l.Condition = "Broken" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := lampListing()
			tt.mutate(&in)
			_, err := svc.Submit(context.Background(), owner, in, imageUpload("lamp.png"))
			assert.True(t, apperr.Is(err, apperr.KindValidation))
		})
	}

	_, err := svc.Submit(context.Background(), owner, lampListing(), nil)
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestApproveIsIdempotent(t *testing.T) {
	st, _, svc, owner := newListingFixture(t)
	product := st.SeedProduct(t, owner, "10", models.ProductStatusPending)

	first, err := svc.Approve(context.Background(), product.ID)
	require.NoError(t, err)
	require.NotNil(t, first.ApprovedAt)

	second, err := svc.Approve(context.Background(), product.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusApproved, second.Status)
	assert.Equal(t, *first.ApprovedAt, *second.ApprovedAt)
}

func TestModerationCannotResurrectSold(t *testing.T) {
	st, _, svc, owner := newListingFixture(t)
	product := st.SeedProduct(t, owner, "10", models.ProductStatusSold)

	_, err := svc.Approve(context.Background(), product.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = svc.Reject(context.Background(), product.ID, "too late")
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	assert.Equal(t, models.ProductStatusSold, st.ProductStatus(product.ID))

	_, err = svc.Approve(context.Background(), 999)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestRejectListing(t *testing.T) {
	st, _, svc, owner := newListingFixture(t)
	product := st.SeedProduct(t, owner, "10", models.ProductStatusPending)

	_, err := svc.Reject(context.Background(), product.ID, "")
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	view, err := svc.Reject(context.Background(), product.ID, "Blurry photo")
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusRejected, view.Status)
	assert.Equal(t, "Blurry photo", view.RejectionReason)

	_, err = svc.Reject(context.Background(), product.ID, "again")
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	_, err = svc.Approve(context.Background(), product.ID)
	require.NoError(t, err)
}

func TestGetOnlyReturnsApproved(t *testing.T) {
	st, _, svc, owner := newListingFixture(t)
	pending := st.SeedProduct(t, owner, "10", models.ProductStatusPending)
	approved := st.SeedProduct(t, owner, "10", models.ProductStatusApproved)

	_, err := svc.Get(context.Background(), pending.ID)
	assert.True(t, apperr.Is(err, apperr.KindNotFound))

	view, err := svc.Get(context.Background(), approved.ID)
	require.NoError(t, err)
	require.NotNil(t, view.Owner)
	assert.Equal(t, "Olivia", view.Owner.FirstName)
}

func TestListAvailableUsesVersionedCache(t *testing.T) {
	st, cache, svc, owner := newListingFixture(t)
	st.SeedProduct(t, owner, "10", models.ProductStatusApproved)
	pending := st.SeedProduct(t, owner, "10", models.ProductStatusPending)
	ctx := context.Background()

	views, err := svc.ListAvailable(ctx, AvailableFilter{Type: "all"})
	require.NoError(t, err)
	assert.Len(t, views, 1)

	_, err = svc.ListAvailable(ctx, AvailableFilter{Type: "all"})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.hits)

	_, err = svc.Approve(ctx, pending.ID)
	require.NoError(t, err)

	views, err = svc.ListAvailable(ctx, AvailableFilter{Type: "all"})
	require.NoError(t, err)
	assert.Len(t, views, 2)
	assert.Equal(t, 1, cache.hits)
}

func TestListAvailableFiltersAndSorts(t *testing.T) {
	st, _, svc, owner := newListingFixture(t)
	cheap := st.SeedProduct(t, owner, "5", models.ProductStatusApproved)
	pricey := st.SeedProduct(t, owner, "500", models.ProductStatusApproved)

	views, err := svc.ListAvailable(context.Background(), AvailableFilter{Type: "resell", Category: "HOME", Sort: "price_high"})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, pricey.ID, views[0].ID)
	assert.Equal(t, cheap.ID, views[1].ID)

	views, err = svc.ListAvailable(context.Background(), AvailableFilter{Type: "Donate"})
	require.NoError(t, err)
	assert.Empty(t, views)

	_, err = svc.ListAvailable(context.Background(), AvailableFilter{Sort: "random"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestListingStats(t *testing.T) {
	st, _, svc, owner := newListingFixture(t)
	st.SeedProduct(t, owner, "1", models.ProductStatusPending)
	st.SeedProduct(t, owner, "1", models.ProductStatusPending)
	st.SeedProduct(t, owner, "1", models.ProductStatusApproved)
	st.SeedProduct(t, owner, "1", models.ProductStatusSold)

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, ProductStats{Pending: 2, Approved: 1, Sold: 1, Total: 4}, *stats)

	mine, err := svc.ListMine(context.Background(), owner, "pending")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}

func TestListByStatusAndType(t *testing.T) {
	st, _, svc, owner := newListingFixture(t)
	resell := st.SeedProduct(t, owner, "10", models.ProductStatusPending)
	st.SeedProduct(t, owner, "10", models.ProductStatusApproved)

	views, err := svc.ListByStatusAndType(context.Background(), models.ProductStatusPending, models.ProductTypeResell)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, resell.ID, views[0].ID)

	views, err = svc.ListByStatusAndType(context.Background(), models.ProductStatusPending, models.ProductTypeDonate)
	require.NoError(t, err)
	assert.Empty(t, views)
}
