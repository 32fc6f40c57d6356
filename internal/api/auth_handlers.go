package api

import (
	"net/http"
	"time"

	"careshare-service/internal/apperr"
	"careshare-service/internal/service"

	"github.com/gin-gonic/gin"
)

// registerRequest is validated by the service once emails and names are trimmed
type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token           string `json:"token" binding:"required"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.Registration(req))
	if err != nil {
		respondError(c, err)
		return
	}

	respond(c, http.StatusCreated, "User registered successfully!", gin.H{"user": user})
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid request body"))
		return
	}

	token, user, err := h.users.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	maxAge := int(time.Until(token.ExpiresAt).Seconds())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookieName, token.Token, maxAge, "/", "", h.cookieSecure, true)

	respond(c, http.StatusOK, "Login successful", gin.H{
		"token":     token.Token,
		"expiresAt": token.ExpiresAt,
		"user":      user,
	})
}

func (h *Handler) logout(c *gin.Context) {
	if err := h.users.Logout(c.Request.Context(), claimsFrom(c)); err != nil {
		respondError(c, err)
		return
	}

	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(authCookieName, "", -1, "/", "", h.cookieSecure, true)
	respond(c, http.StatusOK, "Logged out successfully", nil)
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.Me(c.Request.Context(), identityFrom(c))
	if err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "User retrieved successfully", gin.H{"user": user})
}

func (h *Handler) forgotPassword(c *gin.Context) {
	var req forgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.Validation("Invalid request body"))
		return
	}

	if err := h.users.ForgotPassword(c.Request.Context(), req.Email, h.baseURL); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, service.ForgotPasswordNote, nil)
}

func (h *Handler) validateResetToken(c *gin.Context) {
	valid, err := h.users.ValidateResetToken(c.Request.Context(), c.Query("token"))
	if err != nil {
		respondError(c, err)
		return
	}
	if !valid {
		respondError(c, apperr.Validation("Invalid or expired reset token"))
		return
	}
	respond(c, http.StatusOK, "Token is valid", gin.H{"valid": true})
}

func (h *Handler) resetPassword(c *gin.Context) {
	var req resetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, bindError(err))
		return
	}

	if err := h.users.ResetPassword(c.Request.Context(), req.Token, req.Password, req.ConfirmPassword); err != nil {
		respondError(c, err)
		return
	}
	respond(c, http.StatusOK, "Password has been reset successfully", nil)
}
