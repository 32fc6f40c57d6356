package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"careshare-service/config"
	"careshare-service/internal/api"
	"careshare-service/internal/auth"
	"careshare-service/internal/broker"
	"careshare-service/internal/notify"
	"careshare-service/internal/redisclient"
	"careshare-service/internal/service"
	"careshare-service/internal/storage"
	"careshare-service/internal/store"
	"careshare-service/internal/util"
	"careshare-service/internal/worker"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting care & share service", zap.String("env", cfg.Server.Env))

	tp, err := util.InitTracer("careshare-service", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			logger.Warn("Error shutting down tracer", zap.Error(err))
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connected")

	if cfg.Database.Migrate {
		migrateCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := db.Migrate(migrateCtx)
		cancel()
		if err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		logger.Info("Database schema up to date")
	}

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	logger.Info("Redis connected")

	files, uploadDir, err := newStorage(cfg.Storage)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}

	mailer, err := notify.NewMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	if err != nil {
		log.Fatalf("Failed to initialize mailer: %v", err)
	}

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	// Notifications go straight to SMTP, or through Kafka to the notification worker
	var sender notify.Sender = mailer
	var producer *broker.Producer
	var notificationWorker *worker.NotificationWorker
	if cfg.Notify.Transport == "kafka" {
		producer = broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications)
		sender = broker.NewNotificationPublisher(producer)
		logger.Info("Kafka producer initialized", zap.String("topic", cfg.Kafka.TopicNotifications))

		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicNotifications, cfg.Kafka.ConsumerGroup)
		notificationWorker = worker.NewNotificationWorker(consumer, db, mailer)
		go func() {
			if err := notificationWorker.Start(workerCtx); err != nil {
				logger.Error("Notification worker error", zap.Error(err))
			}
		}()
	}

	dispatcher := notify.NewDispatcher(
		sender,
		cfg.Notify.QueueSize,
		cfg.Notify.Workers,
		time.Duration(cfg.Notify.TimeoutSeconds)*time.Second,
	)
	dispatcher.Start()

	maintenance := worker.NewMaintenanceWorker(db, cfg.Business.TokenPurgeSchedule)
	if err := maintenance.Start(); err != nil {
		log.Fatalf("Failed to start maintenance worker: %v", err)
	}

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.TokenTTLMinutes)*time.Minute)
	cacheTTL := time.Duration(cfg.Business.ListingCacheTTLSeconds) * time.Second

	userService := service.NewUserService(
		db,
		tokens,
		redisClient,
		dispatcher,
		cfg.Auth.BcryptCost,
		time.Duration(cfg.Auth.ResetTokenExpiryMinutes)*time.Minute,
	)
	listingService := service.NewListingService(db, files, redisClient, cacheTTL)
	exchangeService := service.NewExchangeService(db, db, files, dispatcher)
	purchaseService := service.NewPurchaseService(db, db, db, dispatcher, redisClient, cfg.Business.StrictPurchaseTransitions)
	adminService := service.NewAdminService(db, listingService, exchangeService, purchaseService)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(api.Options{
		Users:     userService,
		Listings:  listingService,
		Exchanges: exchangeService,
		Purchases: purchaseService,
		Admin:     adminService,
		Tokens:    tokens,
		Denylist:  redisClient,
		Limiter:   redisClient,
		Readiness: map[string]api.Pinger{
			"postgres": db,
			"redis":    redisClient,
		},
		BaseURL:            cfg.Server.BaseURL,
		CookieSecure:       cfg.Auth.CookieSecure,
		RateLimitPerMinute: cfg.Auth.RateLimitPerMinute,
		UploadDir:          uploadDir,
	})
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Server forced to shutdown", zap.Error(err))
	}

	if err := dispatcher.Stop(shutdownCtx); err != nil {
		logger.Warn("Notification dispatcher did not drain", zap.Error(err))
	}

	workerCancel()
	maintenance.Stop()
	if notificationWorker != nil {
		if err := notificationWorker.Stop(); err != nil {
			logger.Warn("Error stopping notification worker", zap.Error(err))
		}
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Warn("Error closing Kafka producer", zap.Error(err))
		}
	}

	logger.Info("Server exited")
}

// newStorage picks the image backend. The upload dir is returned only for the
// local driver so that the router serves it under /uploads.
func newStorage(cfg config.StorageConfig) (storage.Storage, string, error) {
	switch cfg.Driver {
	case "cloudinary":
		s, err := storage.NewCloudinaryStorage(cfg.CloudinaryURL, cfg.Folder)
		return s, "", err
	case "local", "":
		s, err := storage.NewLocalStorage(cfg.UploadDir)
		if err != nil {
			return nil, "", err
		}
		return s, s.Dir(), nil
	default:
		return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
