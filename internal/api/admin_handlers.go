package api

import (
	"net/http"

	"careshare-service/internal/apperr"
	"careshare-service/internal/models"

	"github.com/gin-gonic/gin"
)

type roleRequest struct {
	IsAdmin *bool `json:"isAdmin" binding:"required"`
}

func (h *Handler) adminListUsers(c *gin.Context) {
	users, err := h.admin.ListUsers(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Users retrieved successfully", gin.H{
		"users": users,
		"count": len(users),
	})
}

func (h *Handler) adminUpdateUserRole(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("isAdmin is required"))
		return
	}

	user, err := h.admin.UpdateUserRole(c.Request.Context(), identityFrom(c), id, *req.IsAdmin)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User role updated successfully", gin.H{"user": user})
}

func (h *Handler) adminDeleteUser(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.admin.DeleteUser(c.Request.Context(), identityFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User deleted successfully", nil)
}

func (h *Handler) adminStats(c *gin.Context) {
	stats, err := h.admin.Stats(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Statistics retrieved successfully", gin.H{"stats": stats})
}

func (h *Handler) adminListExchangeRequests(c *gin.Context) {
	h.listExchangeRequests(c, c.Query("status"))
}

func (h *Handler) adminPendingExchangeRequests(c *gin.Context) {
	h.listExchangeRequests(c, models.ExchangeStatusPending)
}

func (h *Handler) listExchangeRequests(c *gin.Context, status string) {
	reqs, err := h.admin.ListExchangeRequests(c.Request.Context(), identityFrom(c), status)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange requests retrieved successfully", gin.H{
		"exchangeRequests": reqs,
		"count":            len(reqs),
	})
}

func (h *Handler) adminCountExchangeRequests(c *gin.Context) {
	count, err := h.admin.CountExchangeRequests(c.Request.Context(), identityFrom(c), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange request count retrieved successfully", gin.H{"count": count})
}

func (h *Handler) adminExchangeStats(c *gin.Context) {
	stats, err := h.admin.ExchangeStats(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange statistics retrieved successfully", gin.H{"stats": stats})
}

func (h *Handler) adminApproveExchangeRequest(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	req, err := h.admin.ApproveExchangeRequest(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange request approved", gin.H{"exchangeRequest": req})
}

func (h *Handler) adminRejectExchangeRequest(c *gin.Context) {
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

	req, err := h.admin.RejectExchangeRequest(c.Request.Context(), identityFrom(c), id, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange request rejected", gin.H{"exchangeRequest": req})
}

func (h *Handler) adminDeleteExchangeRequest(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	if err := h.admin.DeleteExchangeRequest(c.Request.Context(), identityFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Exchange request deleted successfully", nil)
}

func (h *Handler) adminPendingProducts(c *gin.Context) {
	products, err := h.admin.PendingProducts(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Pending products retrieved successfully", gin.H{
		"products": products,
		"count":    len(products),
	})
}

func (h *Handler) adminApproveProduct(c *gin.Context) {
	id, err := parseID(c, "id")
	if err != nil {
		respondError(c, err)
		return
	}

	product, err := h.admin.ApproveProduct(c.Request.Context(), identityFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product approved successfully", gin.H{"product": product})
}

func (h *Handler) adminRejectProduct(c *gin.Context) {
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

	product, err := h.admin.RejectProduct(c.Request.Context(), identityFrom(c), id, reason)
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product rejected successfully", gin.H{"product": product})
}

func (h *Handler) adminProductStats(c *gin.Context) {
	stats, err := h.admin.ProductStats(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Product statistics retrieved successfully", gin.H{"stats": stats})
}
