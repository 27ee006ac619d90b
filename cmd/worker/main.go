package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/harentsoaR/tour-booking-api/internal/config"
	"github.com/harentsoaR/tour-booking-api/internal/events"
	"github.com/harentsoaR/tour-booking-api/internal/services"
	"github.com/harentsoaR/tour-booking-api/internal/store"
	"github.com/harentsoaR/tour-booking-api/internal/worker"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()
	if cfg.RabbitURL == "" {
		logger.Fatal("RABBIT_URL is required for the worker")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	connectCtx, stop := context.WithTimeout(ctx, 10*time.Second)
	defer stop()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Fatal("Failed to connect to MongoDB", zap.Error(err))
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := store.New(client.Database(cfg.MongoDatabase))

	var locks services.Locker = services.NewKeyedMutex()
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Fatal("Invalid REDIS_URL", zap.Error(err))
		}
		rdb := redis.NewClient(opt)
		defer func() { _ = rdb.Close() }()
		locks = services.NewRedisLocker(rdb, logger)
	}

	var mailer services.Mailer = services.NewLogMailer(logger)
	if cfg.SMTPHost != "" {
		mailer = services.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.EmailFrom)
	}

	w := worker.New(
		services.NewAggregator(db.Reviews, db.Tours, locks),
		db.Users,
		db.Tours,
		services.NewNotificationService(mailer),
		logger,
	)

	var consumer *events.Consumer
	for {
		consumer, err = events.NewConsumer(cfg.RabbitURL, cfg.EventsExchange, cfg.WorkerQueue, worker.Keys)
		if err == nil {
			break
		}
		logger.Warn("RabbitMQ connect failed, retrying in 2s", zap.Error(err))
		select {
		case <-ctx.Done():
			return
		case <-time.After(2 * time.Second):
		}
	}
	defer func() { _ = consumer.Close() }()

	msgs, err := consumer.Deliveries(ctx)
	if err != nil {
		logger.Fatal("Failed to consume", zap.Error(err))
	}
	logger.Info("Worker started", zap.String("queue", cfg.WorkerQueue), zap.Strings("keys", worker.Keys))
	if err := w.Run(ctx, msgs); err != nil {
		logger.Error("Worker failed", zap.Error(err))
	}
	logger.Info("Worker stopped")
}
