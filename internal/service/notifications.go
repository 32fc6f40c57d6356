package service

import (
	"time"

	"careshare-service/internal/models"

	"github.com/google/uuid"
)

func newNotification(eventType, audience, toEmail, toName string) models.Notification {
	return models.Notification{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: eventType,
			Timestamp: time.Now(),
		},
		Audience: audience,
		ToEmail:  toEmail,
		ToName:   toName,
	}
}

// exchangeNotifications builds the owner and requester messages for an exchange event
func exchangeNotifications(eventType string, d *models.ExchangeRequestDetail, status, reason string) []models.Notification {
	owner := newNotification(eventType, models.AudienceOwner, d.OwnerEmail, d.OwnerFirstName+" "+d.OwnerLastName)
	requester := newNotification(eventType, models.AudienceRequester, d.RequesterEmail, d.RequesterFirstName+" "+d.RequesterLastName)

	for _, n := range []*models.Notification{&owner, &requester} {
		n.ReferenceID = d.ID
		n.ProductName = d.ProductName
		n.ItemName = d.ItemName
		n.Status = status
		n.Reason = reason
		n.Message = d.AdditionalMessage
	}
	owner.CounterParty = requester.ToName
	requester.CounterParty = owner.ToName

	return []models.Notification{owner, requester}
}

// purchaseNotifications builds the buyer and seller messages for a new purchase
func purchaseNotifications(d *models.PurchaseDetail) []models.Notification {
	sellerName := d.SellerFirstName + " " + d.SellerLastName

	buyer := newNotification(models.EventTypePurchaseCreated, models.AudienceBuyer, d.Email, d.FullName)
	buyer.CounterParty = sellerName
	seller := newNotification(models.EventTypePurchaseCreated, models.AudienceSeller, d.SellerEmail, sellerName)
	seller.CounterParty = d.FullName

	for _, n := range []*models.Notification{&buyer, &seller} {
		n.ReferenceID = d.ID
		n.ProductName = d.ProductName
		n.Amount = d.Amount.StringFixed(2)
		n.PaymentMethod = d.PaymentMethod
		n.Status = d.Status
	}
	seller.Message = d.ShippingAddress + " / " + d.Phone

	return []models.Notification{buyer, seller}
}
