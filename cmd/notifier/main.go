package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wyfcoding/bookstore/internal/notification/application"
	"github.com/wyfcoding/bookstore/internal/notification/domain"
	notificationmysql "github.com/wyfcoding/bookstore/internal/notification/infrastructure/persistence/mysql"
	"github.com/wyfcoding/bookstore/internal/notification/infrastructure/sender"
	"github.com/wyfcoding/bookstore/internal/notification/interfaces/consumer"
	usermysql "github.com/wyfcoding/bookstore/internal/user/infrastructure/persistence/mysql"
	"github.com/wyfcoding/bookstore/pkg/config"
	"github.com/wyfcoding/bookstore/pkg/db"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/metrics"
	"github.com/wyfcoding/bookstore/pkg/mq"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/notifier/config.toml", "path to config file")
	flag.Parse()

	// 1. Config
	cfg, err := config.Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("load config failed: %v", err))
	}
	if err := cfg.Validate(); err != nil {
		panic(fmt.Sprintf("invalid config: %v", err))
	}

	// 2. Logger
	if err := logger.Init(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		Output:     cfg.Logger.Output,
		FilePath:   cfg.Logger.FilePath,
		MaxSize:    cfg.Logger.MaxSize,
		MaxBackups: cfg.Logger.MaxBackups,
		MaxAge:     cfg.Logger.MaxAge,
		Compress:   cfg.Logger.Compress,
		WithCaller: cfg.Logger.WithCaller,
	}); err != nil {
		panic(fmt.Sprintf("init logger failed: %v", err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger.Info(ctx, "starting notifier service", "version", cfg.Version)

	// 3. Database
	database, err := db.Init(db.Config{
		Driver:             cfg.Database.Driver,
		DSN:                cfg.Database.DSN,
		MaxOpenConns:       cfg.Database.MaxOpenConns,
		MaxIdleConns:       cfg.Database.MaxIdleConns,
		ConnMaxLifetime:    cfg.Database.ConnMaxLifetime,
		LogEnabled:         cfg.Database.LogEnabled,
		SlowQueryThreshold: cfg.Database.SlowQueryThreshold,
	})
	if err != nil {
		logger.Fatal(ctx, "init database failed", "error", err)
	}
	defer database.Close()

	// 4. Metrics
	m := metrics.New(cfg.ServiceName)
	if cfg.Metrics.Enabled {
		if err := m.Register(); err != nil {
			logger.Fatal(ctx, "register metrics failed", "error", err)
		}
		go func() {
			if err := metrics.StartHTTPServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
				logger.Error(ctx, "metrics server stopped", "error", err)
			}
		}()
	}

	// 5. Services
	notificationRepo := notificationmysql.NewNotificationRepository(database.DB)
	userRepo := usermysql.NewUserRepository(database.DB)
	senders := []domain.Sender{
		sender.NewMockEmailSender(),
		sender.NewWebhookSender(config.GetEnv("APP_NOTIFIER_WEBHOOK_URL", "")),
	}
	notificationService := application.NewNotificationService(notificationRepo, userRepo, senders, m)

	// 6. Kafka consumer
	kafkaConsumer, err := mq.NewConsumer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		GroupID:      cfg.Kafka.GroupID,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	}, cfg.Kafka.OrderEventsTopic)
	if err != nil {
		logger.Fatal(ctx, "init kafka consumer failed", "error", err)
	}
	defer kafkaConsumer.Close()

	events := consumer.NewOrderEventsConsumer(kafkaConsumer, notificationService)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := events.Run(ctx); err != nil {
			logger.Error(ctx, "order events consumer exited", "error", err)
		}
	}()

	// 7. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down...")

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn(context.Background(), "consumer did not stop in time")
	}
	logger.Info(context.Background(), "notifier exited")
}
