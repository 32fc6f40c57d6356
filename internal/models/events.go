package models

import "time"

// Event types
const (
	EventTypePurchaseCreated       = "PURCHASE_CREATED"
	EventTypePurchaseStatusUpdated = "PURCHASE_STATUS_UPDATED"
	EventTypeExchangeSubmitted     = "EXCHANGE_SUBMITTED"
	EventTypeExchangeStatusUpdated = "EXCHANGE_STATUS_UPDATED"
	EventTypePasswordReset         = "PASSWORD_RESET"
)

// Audiences
const (
	AudienceBuyer     = "BUYER"
	AudienceSeller    = "SELLER"
	AudienceOwner     = "OWNER"
	AudienceRequester = "REQUESTER"
	AudienceUser      = "USER"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// Notification is a single message to a single recipient
type Notification struct {
	BaseEvent
	Audience      string `json:"audience"`
	ToEmail       string `json:"to_email"`
	ToName        string `json:"to_name"`
	ReferenceID   int64  `json:"reference_id,omitempty"`
	ProductName   string `json:"product_name,omitempty"`
	CounterParty  string `json:"counter_party,omitempty"`
	Amount        string `json:"amount,omitempty"`
	PaymentMethod string `json:"payment_method,omitempty"`
	Status        string `json:"status,omitempty"`
	Reason        string `json:"reason,omitempty"`
	ItemName      string `json:"item_name,omitempty"`
	Message       string `json:"message,omitempty"`
	Link          string `json:"link,omitempty"`
}

// ProcessedEvent for idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
