package service

import (
	"context"
	"io"
	"time"

	"careshare-service/internal/models"
	"careshare-service/internal/store"
)

// Notifier schedules a notification without blocking the caller
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// ListingCache is a versioned JSON cache for public listings
type ListingCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
	Version(ctx context.Context, namespace string) (int64, error)
	BumpVersion(ctx context.Context, namespace string) error
}

// TokenRevoker denylists access tokens on logout
type TokenRevoker interface {
	RevokeToken(ctx context.Context, tokenID string, ttl time.Duration) error
}

// Upload is an image received from a client
type Upload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByResetToken(ctx context.Context, token string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUserRole(ctx context.Context, id int64, isAdmin bool) (*models.User, error)
	DeleteUser(ctx context.Context, id int64) error
	CountUsers(ctx context.Context) (total, admins int64, err error)
	SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
}

type ProductStore interface {
	CreateProduct(ctx context.Context, product *models.Product) error
	GetProductByID(ctx context.Context, id int64) (*models.Product, error)
	GetProductWithOwner(ctx context.Context, id int64) (*models.ProductWithOwner, error)
	ListProducts(ctx context.Context, f store.ProductFilter) ([]models.ProductWithOwner, error)
	ApproveProduct(ctx context.Context, id int64, at time.Time) (*models.Product, error)
	RejectProduct(ctx context.Context, id int64, reason string, at time.Time) (*models.Product, error)
	CountProductsByStatus(ctx context.Context) (map[string]int64, error)
}

type ExchangeStore interface {
	CreateExchangeRequest(ctx context.Context, req *models.ExchangeRequest) error
	GetExchangeRequest(ctx context.Context, id int64) (*models.ExchangeRequestDetail, error)
	TransitionExchangeRequest(ctx context.Context, id int64, status string, reason *string) error
	DeleteExchangeRequest(ctx context.Context, id int64) error
	ListExchangeRequests(ctx context.Context, f store.ExchangeFilter) ([]models.ExchangeRequestDetail, error)
	CountExchangeRequests(ctx context.Context, f store.ExchangeFilter) (int64, error)
}

type PurchaseStore interface {
	CreatePurchaseTx(ctx context.Context, purchase *models.Purchase) (*models.Product, error)
	GetPurchase(ctx context.Context, id int64) (*models.PurchaseDetail, error)
	UpdatePurchaseStatus(ctx context.Context, id int64, status string, at time.Time) error
	ListPurchases(ctx context.Context, f store.PurchaseFilter) ([]models.PurchaseDetail, error)
	CountPurchases(ctx context.Context) (int64, error)
}

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.Notification) {}
