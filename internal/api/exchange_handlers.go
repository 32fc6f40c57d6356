package api

import (
	"net/http"
	"strconv"
	"strings"

	"careshare-service/internal/apperr"
	"careshare-service/internal/service"

	"github.com/gin-gonic/gin"
)

type reasonRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) submitExchangeRequest(c *gin.Context) {
	productID, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("productId")), 10, 64)
	if err != nil || productID <= 0 {
		respondError(c, apperr.Validation("Product ID is required"))
		return
	}

	item := service.OfferedItem{
		Name:              c.PostForm("exchangeItemName"),
		Category:          c.PostForm("exchangeItemCategory"),
		Description:       c.PostForm("exchangeItemDescription"),
		AdditionalMessage: c.PostForm("additionalMessage"),
	}

	image, closeImage, err := formUpload(c, "exchangeItemImage")
	if err != nil {
		respondError(c, err)
		return
	}
	defer closeImage()

	req, err := h.exchanges.Submit(c.Request.Context(), identityFrom(c), productID, item, image)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusCreated, "Exchange request submitted successfully", gin.H{"exchangeRequest": req})
}

func (h *Handler) myExchangeRequests(c *gin.Context) {
	reqs, err := h.exchanges.ListMine(c.Request.Context(), identityFrom(c), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange requests retrieved successfully", gin.H{
		"exchangeRequests": reqs,
		"count":            len(reqs),
	})
}

func (h *Handler) receivedExchangeRequests(c *gin.Context) {
	reqs, err := h.exchanges.ListReceived(c.Request.Context(), identityFrom(c), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange requests retrieved successfully", gin.H{
		"exchangeRequests": reqs,
		"count":            len(reqs),
	})
}

func (h *Handler) acceptExchangeRequest(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	req, err := h.exchanges.Accept(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange request accepted", gin.H{"exchangeRequest": req})
}

func (h *Handler) declineExchangeRequest(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	reason, err := optionalReason(c)
	if err != nil {
		respondError(c, err)
		return
	}

	req, err := h.exchanges.Decline(c.Request.Context(), identityFrom(c), id, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange request declined", gin.H{"exchangeRequest": req})
}

// optionalReason reads {"reason": "..."} and tolerates an empty body
func optionalReason(c *gin.Context) (string, error) {
	if c.Request.ContentLength == 0 {
		return "", nil
	}
	var body reasonRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		return "", apperr.Validation("Invalid request body")
	}
	return body.Reason, nil
}
