package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"careshare-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestStore connects to TEST_DATABASE_URL; integration tests are skipped without it.
func openTestStore(t *testing.T) *Store {
	t.Helper()

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("Integration test - requires TEST_DATABASE_URL")
	}

	store, err := NewStore(url)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func seedUser(t *testing.T, s *Store, name string) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("%s-%s@example.com", name, uuid.NewString()[:8]),
		PasswordHash: "hash",
		FirstName:    name,
		LastName:     "Tester",
	}
	require.NoError(t, s.CreateUser(context.Background(), user))
	return user
}

func seedProduct(t *testing.T, s *Store, ownerID int64, status string) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:        "Desk lamp",
		Price:       decimal.NewFromInt(500),
		Category:    "Home",
		Type:        models.ProductTypeResell,
		Description: "Works fine",
		ImagePath:   "/uploads/products/lamp.png",
		Condition:   models.DefaultCondition,
		Status:      status,
		UserID:      ownerID,
	}
	require.NoError(t, s.CreateProduct(context.Background(), product))
	return product
}

func newPurchase(productID, buyerID int64) *models.Purchase {
	return &models.Purchase{
		ProductID:       productID,
		BuyerID:         buyerID,
		FullName:        "Buyer Person",
		Email:           "buyer@example.com",
		Phone:           "9876543210",
		ShippingAddress: "12 Main Street",
		PaymentMethod:   models.PaymentMethodCOD,
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	user := seedUser(t, s, "dup")
	again := &models.User{Email: user.Email, PasswordHash: "x", FirstName: "a", LastName: "b"}

	err := s.CreateUser(ctx, again)
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := s.GetUserByEmail(ctx, user.Email)
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
	assert.Equal(t, []string{models.RoleUser}, []string(found.Roles))
}

func TestCreatePurchaseTxMarksSold(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seller := seedUser(t, s, "seller")
	buyer := seedUser(t, s, "buyer")
	product := seedProduct(t, s, seller.ID, models.ProductStatusApproved)

	purchase := newPurchase(product.ID, buyer.ID)
	sold, err := s.CreatePurchaseTx(ctx, purchase)
	require.NoError(t, err)

	assert.NotZero(t, purchase.ID)
	assert.True(t, purchase.Amount.Equal(decimal.NewFromInt(500)))
	assert.Equal(t, models.PurchaseStatusPending, purchase.Status)
	assert.Equal(t, models.ProductStatusSold, sold.Status)

	stored, err := s.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusSold, stored.Status)

	_, err = s.CreatePurchaseTx(ctx, newPurchase(product.ID, buyer.ID))
	assert.ErrorIs(t, err, ErrProductUnavailable)
}

func TestCreatePurchaseTxConcurrentBuyers(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seller := seedUser(t, s, "seller")
	product := seedProduct(t, s, seller.ID, models.ProductStatusApproved)

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < buyers; i++ {
		buyer := seedUser(t, s, fmt.Sprintf("buyer%d", i))
		wg.Add(1)
		go func(buyerID int64) {
			defer wg.Done()
			_, err := s.CreatePurchaseTx(ctx, newPurchase(product.ID, buyerID))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if assert.ErrorIs(t, err, ErrProductUnavailable) {
				conflicts++
			}
		}(buyer.ID)
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, buyers-1, conflicts)

	sales, err := s.ListPurchases(ctx, PurchaseFilter{SellerID: seller.ID})
	require.NoError(t, err)
	assert.Len(t, sales, 1)
}

func TestCreatePurchaseTxSelfPurchase(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seller := seedUser(t, s, "seller")
	product := seedProduct(t, s, seller.ID, models.ProductStatusApproved)

	_, err := s.CreatePurchaseTx(ctx, newPurchase(product.ID, seller.ID))
	assert.ErrorIs(t, err, ErrSelfPurchase)

	stored, err := s.GetProductByID(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusApproved, stored.Status)
}

func TestApproveProductCannotResurrectSold(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	seller := seedUser(t, s, "seller")
	sold := seedProduct(t, s, seller.ID, models.ProductStatusSold)

	_, err := s.ApproveProduct(ctx, sold.ID, time.Now())
	assert.ErrorIs(t, err, ErrConflict)

	pending := seedProduct(t, s, seller.ID, models.ProductStatusPending)
	approved, err := s.ApproveProduct(ctx, pending.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.ProductStatusApproved, approved.Status)
	assert.NotNil(t, approved.ApprovedAt)
}

func TestTransitionExchangeRequestIsTerminal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	requester := seedUser(t, s, "requester")
	product := seedProduct(t, s, owner.ID, models.ProductStatusApproved)

	req := &models.ExchangeRequest{
		TargetProductID: product.ID,
		ItemName:        "Bicycle",
		ItemCategory:    "Sports",
		ItemDescription: "Blue, 21 gears",
		ItemImage:       "/uploads/exchange-items/bike.png",
		RequesterID:     requester.ID,
		Status:          models.ExchangeStatusPending,
	}
	require.NoError(t, s.CreateExchangeRequest(ctx, req))

	require.NoError(t, s.TransitionExchangeRequest(ctx, req.ID, models.ExchangeStatusApproved, nil))

	reason := "changed my mind"
	err := s.TransitionExchangeRequest(ctx, req.ID, models.ExchangeStatusRejected, &reason)
	assert.ErrorIs(t, err, ErrConflict)

	err = s.TransitionExchangeRequest(ctx, req.ID+100000, models.ExchangeStatusRejected, &reason)
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := s.GetExchangeRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ExchangeStatusApproved, detail.Status)
	assert.Equal(t, owner.ID, detail.OwnerID)

	count, err := s.CountExchangeRequests(ctx, ExchangeFilter{OwnerID: owner.ID, Status: models.ExchangeStatusApproved})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestListProductsSortAndFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	owner := seedUser(t, s, "owner")
	cheap := seedProduct(t, s, owner.ID, models.ProductStatusApproved)
	_, err := s.GetDB().ExecContext(ctx, "UPDATE products SET price = 10 WHERE id = $1", cheap.ID)
	require.NoError(t, err)
	seedProduct(t, s, owner.ID, models.ProductStatusApproved)
	seedProduct(t, s, owner.ID, models.ProductStatusPending)

	products, err := s.ListProducts(ctx, ProductFilter{OwnerID: owner.ID, Status: models.ProductStatusApproved, Sort: SortPriceLow})
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, cheap.ID, products[0].ID)
	assert.Equal(t, owner.FirstName, products[0].OwnerFirstName)
}
