package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/config"
	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/handlers"
	"github.com/harentsoaR/tour-booking-api/internal/media"
	"github.com/harentsoaR/tour-booking-api/internal/middleware"
	"github.com/harentsoaR/tour-booking-api/internal/payments"
	"github.com/harentsoaR/tour-booking-api/internal/routes"
	"github.com/harentsoaR/tour-booking-api/internal/services"
	"github.com/harentsoaR/tour-booking-api/internal/store"
	"github.com/harentsoaR/tour-booking-api/internal/utils"
	"github.com/harentsoaR/tour-booking-api/internal/views"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger, err := newLogger(cfg.IsProduction())
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	// --- Database Connection ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	if err := client.Ping(ctx, nil); err != nil {
		logger.Fatal("MongoDB is unreachable", zap.Error(err))
	}
	db := store.New(client.Database(cfg.MongoDatabase))
	if err := db.EnsureIndexes(ctx); err != nil {
		logger.Fatal("Failed to create indexes", zap.Error(err))
	}
	logger.Info("Successfully connected to MongoDB", zap.String("database", cfg.MongoDatabase))

	// --- Optional infrastructure ---
	var locks services.Locker = services.NewKeyedMutex()
	limiter := middleware.NewMemoryLimiter(cfg.RateLimitMax, cfg.RateLimitWindow)
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Fatal("Redis is unreachable", zap.Error(err))
		}
		locks = services.NewRedisLocker(rdb, logger)
		if limiter, err = middleware.NewRedisLimiter(rdb, cfg.RateLimitMax, cfg.RateLimitWindow); err != nil {
			logger.Fatal("Failed to set up rate limiting", zap.Error(err))
		}
		logger.Info("Using Redis for rate limits and rating locks")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.RabbitURL != "" {
		p, err := events.NewPublisher(cfg.RabbitURL, cfg.EventsExchange)
		if err != nil {
			logger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
		}
		defer func() { _ = p.Close() }()
		publisher = p
		logger.Info("Publishing events", zap.String("exchange", cfg.EventsExchange))
	}

	var provider payments.Provider
	if cfg.StripeSecretKey != "" {
		provider = payments.NewStripe(cfg.StripeSecretKey, cfg.StripeWebhookSecret, cfg.StripeCurrency)
	} else {
		logger.Warn("STRIPE_SECRET_KEY is not set, checkout is disabled")
	}

	var storage media.Storage = media.NewDiskStorage(cfg.ImageDir)
	if cfg.S3Bucket != "" {
		storage = media.NewS3Storage(cfg.S3Region, cfg.S3Bucket, cfg.AWSAccessKeyID, cfg.AWSSecretAccessKey)
	}

	// --- Initialize Services ---
	notifier := services.NewNotificationService(newMailer(cfg, logger))
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiresIn)
	auth := services.NewAuthService(db.Users, tokens, notifier, logger)
	ratings := services.NewAggregator(db.Reviews, db.Tours, locks)
	reviews := services.NewReviewService(db.Reviews, ratings, publisher, logger)

	// --- Initialize Handlers ---
	h := handlers.NewHandler(handlers.Handler{
		Auth:       auth,
		Users:      db.Users,
		AllUsers:   db.Users.WithInactive(),
		Tours:      db.Tours,
		Reviews:    reviews,
		Bookings:   db.Bookings,
		Images:     media.NewProcessor(storage, cfg.PhotoFormat),
		Payments:   provider,
		Events:     publisher,
		Log:        logger,
		Production: cfg.IsProduction(),
		CookieTTL:  cfg.CookieTTL(),
	})

	// --- Gin Router ---
	tmpl, err := views.Templates()
	if err != nil {
		logger.Fatal("Failed to parse templates", zap.Error(err))
	}
	r := gin.New()
	r.SetHTMLTemplate(tmpl)
	routes.RegisterRoutes(r, h, logger, routes.Options{
		Production:     cfg.IsProduction(),
		CORSOrigins:    cfg.CORSOrigins,
		Limiter:        limiter,
		BodyLimitBytes: cfg.BodyLimitBytes,
		StaticDir:      cfg.StaticDir,
		ImageDir:       cfg.ImageDir,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting server", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Forced shutdown", zap.Error(err))
	}
}

func newLogger(production bool) (*zap.Logger, error) {
	if production {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func newMailer(cfg *config.Config, logger *zap.Logger) services.Mailer {
	if cfg.SMTPHost == "" {
		logger.Warn("SMTP_HOST is not set, emails are only logged")
		return services.NewLogMailer(logger)
	}
	return services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
}
