package models

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// User is a registered account
type User struct {
	ID               int64          `db:"id" json:"id"`
	Email            string         `db:"email" json:"email"`
	PasswordHash     string         `db:"password_hash" json:"-"`
	FirstName        string         `db:"first_name" json:"first_name"`
	LastName         string         `db:"last_name" json:"last_name"`
	Roles            pq.StringArray `db:"roles" json:"roles"`
	IsAdmin          bool           `db:"is_admin" json:"is_admin"`
	ResetToken       *string        `db:"reset_token" json:"-"`
	ResetTokenExpiry *time.Time     `db:"reset_token_expiry" json:"-"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
}

// DisplayName is first and last name joined by a space
func (u *User) DisplayName() string {
	return u.FirstName + " " + u.LastName
}

// Product is a listed item
type Product struct {
	ID              int64           `db:"id" json:"id"`
	Name            string          `db:"name" json:"name"`
	Price           decimal.Decimal `db:"price" json:"price"`
	Category        string          `db:"category" json:"category"`
	Type            string          `db:"type" json:"type"`
	Description     string          `db:"description" json:"description"`
	ImagePath       string          `db:"image_path" json:"image_path"`
	Condition       string          `db:"condition" json:"condition"`
	Status          string          `db:"status" json:"status"`
	UserID          int64           `db:"user_id" json:"user_id"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	ApprovedAt      *time.Time      `db:"approved_at" json:"approved_at,omitempty"`
	RejectedAt      *time.Time      `db:"rejected_at" json:"rejected_at,omitempty"`
	RejectionReason *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
}

// ProductWithOwner is a product joined with its owner's public fields
type ProductWithOwner struct {
	Product
	OwnerFirstName string `db:"owner_first_name"`
	OwnerLastName  string `db:"owner_last_name"`
	OwnerEmail     string `db:"owner_email"`
}

// ExchangeRequest offers an item description in exchange for a listed product
type ExchangeRequest struct {
	ID                int64     `db:"id" json:"id"`
	TargetProductID   int64     `db:"target_product_id" json:"target_product_id"`
	ItemName          string    `db:"exchange_item_name" json:"exchange_item_name"`
	ItemCategory      string    `db:"exchange_item_category" json:"exchange_item_category"`
	ItemDescription   string    `db:"exchange_item_description" json:"exchange_item_description"`
	ItemImage         string    `db:"exchange_item_image" json:"exchange_item_image"`
	AdditionalMessage string    `db:"additional_message" json:"additional_message"`
	RequesterID       int64     `db:"requester_id" json:"requester_id"`
	Status            string    `db:"status" json:"status"`
	RejectionReason   *string   `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}

// ExchangeRequestDetail is an exchange request joined with its target product,
// the product owner and the requester
type ExchangeRequestDetail struct {
	ExchangeRequest
	ProductName        string `db:"product_name"`
	ProductImage       string `db:"product_image"`
	OwnerID            int64  `db:"owner_id"`
	OwnerEmail         string `db:"owner_email"`
	OwnerFirstName     string `db:"owner_first_name"`
	OwnerLastName      string `db:"owner_last_name"`
	RequesterEmail     string `db:"requester_email"`
	RequesterFirstName string `db:"requester_first_name"`
	RequesterLastName  string `db:"requester_last_name"`
}

// Purchase is a buyer's commitment to acquire a product at its listed price
type Purchase struct {
	ID              int64           `db:"id" json:"id"`
	ProductID       int64           `db:"product_id" json:"product_id"`
	BuyerID         int64           `db:"buyer_id" json:"buyer_id"`
	FullName        string          `db:"full_name" json:"full_name"`
	Email           string          `db:"email" json:"email"`
	Phone           string          `db:"phone" json:"phone"`
	ShippingAddress string          `db:"shipping_address" json:"shipping_address"`
	PaymentMethod   string          `db:"payment_method" json:"payment_method"`
	Amount          decimal.Decimal `db:"amount" json:"amount"`
	Status          string          `db:"status" json:"status"`
	CreatedAt       time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt       *time.Time      `db:"updated_at" json:"updated_at,omitempty"`
}

// PurchaseDetail is a purchase joined with its product, seller and buyer account
type PurchaseDetail struct {
	Purchase
	ProductName     string `db:"product_name"`
	ProductImage    string `db:"product_image"`
	ProductCategory string `db:"product_category"`
	SellerID        int64  `db:"seller_id"`
	SellerEmail     string `db:"seller_email"`
	SellerFirstName string `db:"seller_first_name"`
	SellerLastName  string `db:"seller_last_name"`
	BuyerEmail      string `db:"buyer_email"`
	BuyerFirstName  string `db:"buyer_first_name"`
	BuyerLastName   string `db:"buyer_last_name"`
}

// Identity is the authenticated caller of an operation
type Identity struct {
	UserID  int64
	Email   string
	IsAdmin bool
}

// Roles
const (
	RoleUser  = "ROLE_USER"
	RoleAdmin = "ROLE_ADMIN"
)

// Product statuses
const (
	ProductStatusPending  = "PENDING"
	ProductStatusApproved = "APPROVED"
	ProductStatusRejected = "REJECTED"
	ProductStatusSold     = "SOLD"
)

// Product types
const (
	ProductTypeDonate   = "Donate"
	ProductTypeExchange = "Exchange"
	ProductTypeResell   = "Resell"
)

// DefaultCondition is applied when a listing omits its condition
const DefaultCondition = "Good"

// Exchange request statuses
const (
	ExchangeStatusPending  = "PENDING"
	ExchangeStatusApproved = "APPROVED"
	ExchangeStatusRejected = "REJECTED"
)

// Purchase statuses
const (
	PurchaseStatusPending    = "PENDING"
	PurchaseStatusConfirmed  = "CONFIRMED"
	PurchaseStatusProcessing = "PROCESSING"
	PurchaseStatusShipped    = "SHIPPED"
	PurchaseStatusDelivered  = "DELIVERED"
	PurchaseStatusCompleted  = "COMPLETED"
	PurchaseStatusCancelled  = "CANCELLED"
)

// Payment methods
const (
	PaymentMethodUPI        = "UPI"
	PaymentMethodCard       = "CARD"
	PaymentMethodNetBanking = "NETBANKING"
	PaymentMethodCOD        = "COD"
)

var (
	productStatuses = []string{ProductStatusPending, ProductStatusApproved, ProductStatusRejected, ProductStatusSold}
	productTypes    = []string{ProductTypeDonate, ProductTypeExchange, ProductTypeResell}
	conditions      = []string{"New", "Like New", "Good", "Fair", "Poor"}
	exchangeStatus  = []string{ExchangeStatusPending, ExchangeStatusApproved, ExchangeStatusRejected}
	purchaseStatus  = []string{
		PurchaseStatusPending, PurchaseStatusConfirmed, PurchaseStatusProcessing,
		PurchaseStatusShipped, PurchaseStatusDelivered, PurchaseStatusCompleted, PurchaseStatusCancelled,
	}
	paymentMethods = []string{PaymentMethodUPI, PaymentMethodCard, PaymentMethodNetBanking, PaymentMethodCOD}
)

// PurchaseTransitions is the optional strict transition table for purchase statuses.
var PurchaseTransitions = map[string][]string{
	PurchaseStatusPending:    {PurchaseStatusConfirmed, PurchaseStatusProcessing, PurchaseStatusCancelled},
	PurchaseStatusConfirmed:  {PurchaseStatusProcessing, PurchaseStatusShipped, PurchaseStatusCancelled},
	PurchaseStatusProcessing: {PurchaseStatusShipped, PurchaseStatusCancelled},
	PurchaseStatusShipped:    {PurchaseStatusDelivered},
	PurchaseStatusDelivered:  {PurchaseStatusCompleted},
}

func IsProductStatus(s string) bool  { return contains(productStatuses, s) }
func IsProductType(s string) bool    { return contains(productTypes, s) }
func IsCondition(s string) bool      { return contains(conditions, s) }
func IsExchangeStatus(s string) bool { return contains(exchangeStatus, s) }
func IsPurchaseStatus(s string) bool { return contains(purchaseStatus, s) }
func IsPaymentMethod(s string) bool  { return contains(paymentMethods, s) }

// CanTransitionPurchase reports whether the strict table allows from -> to.
func CanTransitionPurchase(from, to string) bool {
	return contains(PurchaseTransitions[from], to)
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
