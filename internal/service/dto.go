package service

import (
	"time"

	"careshare-service/internal/models"

	"github.com/shopspring/decimal"
)

// UserSummary is the public projection of a related user
type UserSummary struct {
	ID        int64  `json:"id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email,omitempty"`
}

// ProductRef is the projection of a product referenced by a request
type ProductRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	ImagePath string `json:"imagePath"`
}

type UserView struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Roles     []string  `json:"roles"`
	IsAdmin   bool      `json:"isAdmin"`
	CreatedAt time.Time `json:"createdAt"`
}

type ProductView struct {
	ID              int64           `json:"id"`
	Name            string          `json:"name"`
	Price           decimal.Decimal `json:"price"`
	Category        string          `json:"category"`
	Type            string          `json:"type"`
	Description     string          `json:"description"`
	ImagePath       string          `json:"imagePath"`
	Condition       string          `json:"condition"`
	Status          string          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	ApprovedAt      *time.Time      `json:"approvedAt,omitempty"`
	RejectedAt      *time.Time      `json:"rejectedAt,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	Owner           *UserSummary    `json:"owner,omitempty"`
}

type ExchangeRequestView struct {
	ID                int64       `json:"id"`
	Status            string      `json:"status"`
	ItemName          string      `json:"exchangeItemName"`
	ItemCategory      string      `json:"exchangeItemCategory"`
	ItemDescription   string      `json:"exchangeItemDescription"`
	ItemImage         string      `json:"exchangeItemImage"`
	AdditionalMessage string      `json:"additionalMessage,omitempty"`
	RejectionReason   string      `json:"rejectionReason,omitempty"`
	CreatedAt         time.Time   `json:"createdAt"`
	Product           ProductRef  `json:"targetProduct"`
	Owner             UserSummary `json:"owner"`
	Requester         UserSummary `json:"requester"`
}

type PurchaseView struct {
	ID              int64           `json:"id"`
	Status          string          `json:"status"`
	Amount          decimal.Decimal `json:"amount"`
	PaymentMethod   string          `json:"paymentMethod"`
	FullName        string          `json:"fullName"`
	Email           string          `json:"email"`
	Phone           string          `json:"phone"`
	ShippingAddress string          `json:"shippingAddress"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       *time.Time      `json:"updatedAt,omitempty"`
	Product         ProductRef      `json:"product"`
	Seller          UserSummary     `json:"seller"`
	Buyer           UserSummary     `json:"buyer"`
}

// PurchaseResult is returned to the buyer right after a purchase
type PurchaseResult struct {
	PurchaseID    int64           `json:"purchaseId"`
	ProductName   string          `json:"productName"`
	SellerName    string          `json:"sellerName"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"paymentMethod"`
	CreatedAt     time.Time       `json:"createdAt"`
	Message       string          `json:"message"`
}

type ProductStats struct {
	Pending  int64 `json:"pendingProducts"`
	Approved int64 `json:"approvedProducts"`
	Rejected int64 `json:"rejectedProducts"`
	Sold     int64 `json:"soldProducts"`
	Total    int64 `json:"totalProducts"`
}

type ExchangeStats struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

type AdminStats struct {
	TotalUsers        int64        `json:"totalUsers"`
	AdminUsers        int64        `json:"adminUsers"`
	RegularUsers      int64        `json:"regularUsers"`
	PendingExchanges  int64        `json:"pendingExchanges"`
	ApprovedExchanges int64        `json:"approvedExchanges"`
	RejectedExchanges int64        `json:"rejectedExchanges"`
	TotalExchanges    int64        `json:"totalExchanges"`
	Products          ProductStats `json:"products"`
	TotalPurchases    int64        `json:"totalPurchases"`
}

func newUserView(u *models.User) UserView {
	roles := []string(u.Roles)
	if roles == nil {
		roles = []string{}
	}
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     roles,
		IsAdmin:   u.IsAdmin,
		CreatedAt: u.CreatedAt,
	}
}

func newProductView(p *models.Product) ProductView {
	v := ProductView{
		ID:          p.ID,
		Name:        p.Name,
		Price:       p.Price,
		Category:    p.Category,
		Type:        p.Type,
		Description: p.Description,
		ImagePath:   p.ImagePath,
		Condition:   p.Condition,
		Status:      p.Status,
		CreatedAt:   p.CreatedAt,
		ApprovedAt:  p.ApprovedAt,
		RejectedAt:  p.RejectedAt,
	}
	if p.RejectionReason != nil {
		v.RejectionReason = *p.RejectionReason
	}
	return v
}

func newProductViewWithOwner(p *models.ProductWithOwner) ProductView {
	v := newProductView(&p.Product)
	v.Owner = &UserSummary{ID: p.UserID, FirstName: p.OwnerFirstName, LastName: p.OwnerLastName}
	return v
}

func newExchangeRequestView(d *models.ExchangeRequestDetail) ExchangeRequestView {
	v := ExchangeRequestView{
		ID:                d.ID,
		Status:            d.Status,
		ItemName:          d.ItemName,
		ItemCategory:      d.ItemCategory,
		ItemDescription:   d.ItemDescription,
		ItemImage:         d.ItemImage,
		AdditionalMessage: d.AdditionalMessage,
		CreatedAt:         d.CreatedAt,
		Product:           ProductRef{ID: d.TargetProductID, Name: d.ProductName, ImagePath: d.ProductImage},
		Owner: UserSummary{
			ID: d.OwnerID, FirstName: d.OwnerFirstName, LastName: d.OwnerLastName, Email: d.OwnerEmail,
		},
		Requester: UserSummary{
			ID: d.RequesterID, FirstName: d.RequesterFirstName, LastName: d.RequesterLastName, Email: d.RequesterEmail,
		},
	}
	if d.RejectionReason != nil {
		v.RejectionReason = *d.RejectionReason
	}
	return v
}

func newPurchaseView(d *models.PurchaseDetail) PurchaseView {
	return PurchaseView{
		ID:              d.ID,
		Status:          d.Status,
		Amount:          d.Amount,
		PaymentMethod:   d.PaymentMethod,
		FullName:        d.FullName,
		Email:           d.Email,
		Phone:           d.Phone,
		ShippingAddress: d.ShippingAddress,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		Product:         ProductRef{ID: d.ProductID, Name: d.ProductName, ImagePath: d.ProductImage},
		Seller: UserSummary{
			ID: d.SellerID, FirstName: d.SellerFirstName, LastName: d.SellerLastName, Email: d.SellerEmail,
		},
		Buyer: UserSummary{
			ID: d.BuyerID, FirstName: d.BuyerFirstName, LastName: d.BuyerLastName, Email: d.BuyerEmail,
		},
	}
}
