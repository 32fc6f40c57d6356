package api

import (
	"net/http"

	"careshare-service/internal/service"

	"github.com/gin-gonic/gin"
)

// purchaseRequest carries the JSON shape only. The binding rules live on
// service.CreatePurchaseRequest and run after the input is normalized.
type purchaseRequest struct {
	ProductID       int64  `json:"productId"`
	FullName        string `json:"fullName"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	ShippingAddress string `json:"shippingAddress"`
	PaymentMethod   string `json:"paymentMethod"`
}

func (h *Handler) createPurchase(c *gin.Context) {
	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	result, err := h.purchases.Create(c.Request.Context(), identityFrom(c), service.CreatePurchaseRequest(req))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, result.Message, gin.H{"purchase": result})
}

func (h *Handler) myPurchases(c *gin.Context) {
	purchases, err := h.purchases.ListMyPurchases(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Purchases retrieved successfully", gin.H{
		"purchases": purchases,
		"count":     len(purchases),
	})
}

func (h *Handler) mySales(c *gin.Context) {
	sales, err := h.purchases.ListMySales(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Sales retrieved successfully", gin.H{
		"sales": sales,
		"count": len(sales),
	})
}

func (h *Handler) updatePurchaseStatus(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	purchase, err := h.purchases.UpdateStatus(c.Request.Context(), identityFrom(c), id, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Purchase status updated successfully", gin.H{"purchase": purchase})
}
