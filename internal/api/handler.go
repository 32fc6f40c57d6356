package api

import (
	"context"
	"net/http"
	"time"

	"careshare-service/internal/auth"
	"careshare-service/internal/service"
	"careshare-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by /ready
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options carries the handler's collaborators and settings
type Options struct {
	Users     *service.UserService
	Listings  *service.ListingService
	Exchanges *service.ExchangeService
	Purchases *service.PurchaseService
	Admin     *service.AdminService

	Tokens   *auth.TokenManager
	Denylist TokenDenylist
	Limiter  RateLimiter

	// Readiness maps a dependency name to its health check
	Readiness map[string]Pinger

	BaseURL            string
	CookieSecure       bool
	RateLimitPerMinute int
	UploadDir          string
}

// Handler contains HTTP handlers
type Handler struct {
	users     *service.UserService
	listings  *service.ListingService
	exchanges *service.ExchangeService
	purchases *service.PurchaseService
	admin     *service.AdminService

	tokens   *auth.TokenManager
	denylist TokenDenylist
	limiter  RateLimiter

	readiness map[string]Pinger

	baseURL            string
	cookieSecure       bool
	rateLimitPerMinute int
	uploadDir          string

	logger *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(opts Options) *Handler {
	return &Handler{
		users:              opts.Users,
		listings:           opts.Listings,
		exchanges:          opts.Exchanges,
		purchases:          opts.Purchases,
		admin:              opts.Admin,
		tokens:             opts.Tokens,
		denylist:           opts.Denylist,
		limiter:            opts.Limiter,
		readiness:          opts.Readiness,
		baseURL:            opts.BaseURL,
		cookieSecure:       opts.CookieSecure,
		rateLimitPerMinute: opts.RateLimitPerMinute,
		uploadDir:          opts.UploadDir,
		logger:             util.Component("api"),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if h.uploadDir != "" {
		router.Static("/uploads", h.uploadDir)
	}

	api := router.Group("/api")

	authRoutes := api.Group("/auth")
	{
		authRoutes.POST("/register", h.register)
		authRoutes.POST("/login", h.rateLimit("login"), h.login)
		authRoutes.POST("/logout", h.requireAuth(), h.logout)
		authRoutes.POST("/forgot-password", h.rateLimit("forgot-password"), h.forgotPassword)
		authRoutes.POST("/reset-password", h.resetPassword)
		authRoutes.GET("/validate-reset-token", h.validateResetToken)
		authRoutes.GET("/me", h.requireAuth(), h.me)
	}

	products := api.Group("/products")
	{
		products.GET("/available", h.availableProducts)
		products.GET("/available/:type", h.availableProductsByType)
		products.GET("/:id", h.getProduct)
		products.POST("/add", h.requireAuth(), h.addProduct)
		products.GET("/my-products", h.requireAuth(), h.myProducts)
		products.GET("/my-products/:status", h.requireAuth(), h.myProducts)
	}

	purchases := api.Group("/purchases", h.requireAuth())
	{
		purchases.POST("/create", h.createPurchase)
		purchases.GET("/my-purchases", h.myPurchases)
		purchases.GET("/my-sales", h.mySales)
		purchases.PUT("/:id/status", h.updatePurchaseStatus)
	}

	exchanges := api.Group("/exchange-requests", h.requireAuth())
	{
		exchanges.POST("/submit", h.submitExchangeRequest)
		exchanges.GET("/my-requests", h.myExchangeRequests)
		exchanges.GET("/received", h.receivedExchangeRequests)
		exchanges.PUT("/:id/accept", h.acceptExchangeRequest)
		exchanges.PUT("/:id/decline", h.declineExchangeRequest)
	}

	admin := api.Group("/admin", h.requireAuth(), requireAdmin())
	{
		admin.GET("/users", h.adminListUsers)
		admin.PUT("/users/:id/role", h.adminUpdateUserRole)
		admin.DELETE("/users/:id", h.adminDeleteUser)
		admin.GET("/stats", h.adminStats)

		admin.GET("/exchange-requests", h.adminListExchangeRequests)
		admin.GET("/exchange-requests/pending", h.adminPendingExchangeRequests)
		admin.GET("/exchange-requests/count", h.adminCountExchangeRequests)
		admin.GET("/exchange-requests/stats", h.adminExchangeStats)
		admin.PUT("/exchange-requests/:id/approve", h.adminApproveExchangeRequest)
		admin.PUT("/exchange-requests/:id/reject", h.adminRejectExchangeRequest)
		admin.DELETE("/exchange-requests/:id", h.adminDeleteExchangeRequest)

		admin.GET("/products/pending", h.adminPendingProducts)
		admin.PUT("/products/:id/approve", h.adminApproveProduct)
		admin.PUT("/products/:id/reject", h.adminRejectProduct)
		admin.GET("/products/stats", h.adminProductStats)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency and reports 503 if any is down
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	checks := gin.H{}
	ready := true
	for name, p := range h.readiness {
		if err := p.Ping(ctx); err != nil {
			h.logger.Warn("Readiness check failed", zap.String("dependency", name), zap.Error(err))
			checks[name] = "down"
			ready = false
			continue
		}
		checks[name] = "up"
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status": status,
		"checks": checks,
		"time":   time.Now().Unix(),
	})
}
