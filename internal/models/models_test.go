package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVocabularies(t *testing.T) {
	assert.True(t, IsProductType("Resell"))
	assert.False(t, IsProductType("resell"))
	assert.True(t, IsCondition("Like New"))
	assert.True(t, IsPaymentMethod("COD"))
	assert.False(t, IsPaymentMethod("CASH"))
	assert.True(t, IsPurchaseStatus("SHIPPED"))
	assert.False(t, IsPurchaseStatus("LOST"))
	assert.True(t, IsExchangeStatus("REJECTED"))
	assert.True(t, IsProductStatus("SOLD"))
}

func TestCanTransitionPurchase(t *testing.T) {
	assert.True(t, CanTransitionPurchase(PurchaseStatusPending, PurchaseStatusConfirmed))
	assert.True(t, CanTransitionPurchase(PurchaseStatusShipped, PurchaseStatusDelivered))
	assert.False(t, CanTransitionPurchase(PurchaseStatusDelivered, PurchaseStatusPending))
	assert.False(t, CanTransitionPurchase(PurchaseStatusCompleted, PurchaseStatusCancelled))
}

func TestDisplayName(t *testing.T) {
	u := &User{FirstName: "Asha", LastName: "Rao"}
	assert.Equal(t, "Asha Rao", u.DisplayName())
}
