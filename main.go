package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tokocheckout/internal/config"
	"tokocheckout/internal/database"
	"tokocheckout/internal/repositories"
	"tokocheckout/pkg/logger"
	"tokocheckout/pkg/rabbitmq"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load(viper.New())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	db, err := database.Open(cfg.Database, log)
	if err != nil {
		return err
	}
	if err := database.Migrate(db); err != nil {
		return err
	}
	if err := seedCatalog(db, log); err != nil {
		return fmt.Errorf("failed to seed catalogue: %w", err)
	}

	b := backends{db: db, idempotency: repositories.NewMemoryIdempotencyStore()}

	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			return fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		b.idempotency = repositories.NewRedisIdempotencyStore(rdb)
		log.Info("idempotency keys stored in redis", zap.String("addr", cfg.Redis.Addr))
	} else {
		log.Info("REDIS_ADDR not set, idempotency keys kept in memory")
	}

	if cfg.RabbitMQ.URL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQ.URL}, log)
		if err != nil {
			log.Warn("events disabled", zap.Error(err))
		} else {
			defer mqClient.Close()
			b.publisher = mqClient
			if err := mqClient.ConsumeEvents(logEvent(log)); err != nil {
				log.Warn("event consumer not started", zap.Error(err))
			}
		}
	} else {
		log.Info("RABBITMQ_URL not set, events disabled")
	}

	app := newApp(cfg, b, log)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.App.Port), zap.String("env", cfg.App.Environment))
		serverErr <- app.Listen(cfg.App.Port)
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-quit:
		log.Info("shutting down server", zap.String("signal", sig.String()))
	}

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error("error during shutdown", zap.Error(err))
	}
	log.Info("server gracefully stopped")
	return nil
}

// logEvent records every order and payment event seen on the events queue.
func logEvent(log *zap.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		log.Info("event received",
			zap.String("exchange", msg.Exchange),
			zap.String("routing_key", msg.RoutingKey),
			zap.ByteString("body", msg.Body))
		return nil
	}
}
