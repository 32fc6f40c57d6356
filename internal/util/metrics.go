package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ProductsSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "products_submitted_total",
		Help: "Total number of listings submitted for moderation",
	}, []string{"type"})

	ProductsModeratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "products_moderated_total",
		Help: "Total number of listing moderation decisions",
	}, []string{"decision"})

	PurchasesCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_created_total",
		Help: "Total number of purchases created",
	}, []string{"payment_method"})

	PurchasesFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_failed_total",
		Help: "Total number of rejected or failed purchase attempts",
	}, []string{"reason"})

	PurchaseStatusUpdatesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_status_updates_total",
		Help: "Total number of seller-driven purchase status changes",
	}, []string{"status"})

	PurchaseTxLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "purchase_tx_latency_seconds",
		Help:    "Latency of the purchase-and-mark-sold transaction",
		Buckets: prometheus.DefBuckets,
	})

	ExchangeTransitionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exchange_transitions_total",
		Help: "Total number of exchange request state changes",
	}, []string{"status", "actor"})

	NotificationsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_sent_total",
		Help: "Total number of notifications delivered to a sender",
	}, []string{"type"})

	NotificationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_failed_total",
		Help: "Total number of notifications whose delivery failed",
	}, []string{"type"})

	NotificationsDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifications_dropped_total",
		Help: "Total number of notifications dropped because the queue was full",
	}, []string{"type"})

	ListingCacheTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "listing_cache_requests_total",
		Help: "Available-listing cache lookups",
	}, []string{"result"})

	RateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rate_limited_requests_total",
		Help: "Total number of requests rejected by the rate limiter",
	}, []string{"path"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
