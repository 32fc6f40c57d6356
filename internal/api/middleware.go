package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"careshare-service/internal/apperr"
	"careshare-service/internal/auth"
	"careshare-service/internal/models"
	"careshare-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	authCookieName = "jwtToken"
	identityKey    = "identity"
	claimsKey      = "claims"
)

// TokenDenylist reports whether a token was revoked at logout
type TokenDenylist interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// RateLimiter admits at most limit calls per key per window
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, int64, time.Duration, error)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
		).Inc()
	}
}

// requestLogger logs one structured line per request
func requestLogger() gin.HandlerFunc {
	logger := util.Component("http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			logger.Warn("Request completed", fields...)
			return
		}
		logger.Debug("Request completed", fields...)
	}
}

// requireAuth resolves the caller from a Bearer token or the jwtToken cookie
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c)
		if raw == "" {
			respondError(c, apperr.Unauthenticated("Authentication required"))
			return
		}

		claims, err := h.tokens.Parse(raw)
		if err != nil {
			respondError(c, apperr.Unauthenticated("Invalid or expired token"))
			return
		}

		if h.denylist != nil {
			revoked, err := h.denylist.IsTokenRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				h.logger.Warn("Token denylist lookup failed", zap.Error(err))
			} else if revoked {
				respondError(c, apperr.Unauthenticated("Token has been revoked"))
				return
			}
		}

		identity, err := claims.Identity()
		if err != nil {
			respondError(c, apperr.Unauthenticated("Invalid or expired token"))
			return
		}

		c.Set(claimsKey, claims)
		c.Set(identityKey, identity)
		c.Next()
	}
}

// requireAdmin rejects callers whose token does not claim admin. The admin
// service re-checks the flag against the database.
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !identityFrom(c).IsAdmin {
			respondError(c, apperr.Forbidden("Admin access required"))
			return
		}
		c.Next()
	}
}

// rateLimit limits requests per client IP for one route
func (h *Handler) rateLimit(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.limiter == nil || h.rateLimitPerMinute <= 0 {
			c.Next()
			return
		}

		key := name + ":" + c.ClientIP()
		allowed, remaining, ttl, err := h.limiter.Allow(c.Request.Context(), key, h.rateLimitPerMinute, time.Minute)
		if err != nil {
			h.logger.Warn("Rate limiter unavailable", zap.String("route", name), zap.Error(err))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(h.rateLimitPerMinute))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			util.RateLimitedTotal.WithLabelValues(name).Inc()
			c.Header("Retry-After", strconv.Itoa(int(ttl.Seconds()+0.5)))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success": false,
				"message": "Too many requests, please try again later",
				"code":    "RATE_LIMITED",
			})
			return
		}
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if cookie, err := c.Cookie(authCookieName); err == nil {
		return cookie
	}
	return ""
}

func identityFrom(c *gin.Context) models.Identity {
	if v, ok := c.Get(identityKey); ok {
		if identity, ok := v.(models.Identity); ok {
			return identity
		}
	}
	return models.Identity{}
}

func claimsFrom(c *gin.Context) *auth.Claims {
	if v, ok := c.Get(claimsKey); ok {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}
