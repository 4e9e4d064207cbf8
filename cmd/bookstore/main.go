package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	cartapp "github.com/wyfcoding/bookstore/internal/cart/application"
	cartdomain "github.com/wyfcoding/bookstore/internal/cart/domain"
	cartmysql "github.com/wyfcoding/bookstore/internal/cart/infrastructure/persistence/mysql"
	carthttp "github.com/wyfcoding/bookstore/internal/cart/interfaces/http"
	catalogapp "github.com/wyfcoding/bookstore/internal/catalog/application"
	catalogdomain "github.com/wyfcoding/bookstore/internal/catalog/domain"
	catalogmysql "github.com/wyfcoding/bookstore/internal/catalog/infrastructure/persistence/mysql"
	catalogredis "github.com/wyfcoding/bookstore/internal/catalog/infrastructure/persistence/redis"
	cataloghttp "github.com/wyfcoding/bookstore/internal/catalog/interfaces/http"
	notificationapp "github.com/wyfcoding/bookstore/internal/notification/application"
	notificationdomain "github.com/wyfcoding/bookstore/internal/notification/domain"
	notificationmysql "github.com/wyfcoding/bookstore/internal/notification/infrastructure/persistence/mysql"
	notificationhttp "github.com/wyfcoding/bookstore/internal/notification/interfaces/http"
	orderapp "github.com/wyfcoding/bookstore/internal/order/application"
	orderdomain "github.com/wyfcoding/bookstore/internal/order/domain"
	"github.com/wyfcoding/bookstore/internal/order/infrastructure/messaging"
	ordermysql "github.com/wyfcoding/bookstore/internal/order/infrastructure/persistence/mysql"
	orderhttp "github.com/wyfcoding/bookstore/internal/order/interfaces/http"
	paymentapp "github.com/wyfcoding/bookstore/internal/payment/application"
	paymentdomain "github.com/wyfcoding/bookstore/internal/payment/domain"
	paymentmysql "github.com/wyfcoding/bookstore/internal/payment/infrastructure/persistence/mysql"
	paymenthttp "github.com/wyfcoding/bookstore/internal/payment/interfaces/http"
	revenueapp "github.com/wyfcoding/bookstore/internal/revenue/application"
	revenuedomain "github.com/wyfcoding/bookstore/internal/revenue/domain"
	revenuemysql "github.com/wyfcoding/bookstore/internal/revenue/infrastructure/persistence/mysql"
	revenuehttp "github.com/wyfcoding/bookstore/internal/revenue/interfaces/http"
	userapp "github.com/wyfcoding/bookstore/internal/user/application"
	userdomain "github.com/wyfcoding/bookstore/internal/user/domain"
	usermysql "github.com/wyfcoding/bookstore/internal/user/infrastructure/persistence/mysql"
	userredis "github.com/wyfcoding/bookstore/internal/user/infrastructure/persistence/redis"
	userhttp "github.com/wyfcoding/bookstore/internal/user/interfaces/http"
	"github.com/wyfcoding/bookstore/pkg/cache"
	"github.com/wyfcoding/bookstore/pkg/config"
	"github.com/wyfcoding/bookstore/pkg/db"
	"github.com/wyfcoding/bookstore/pkg/logger"
	"github.com/wyfcoding/bookstore/pkg/metrics"
	"github.com/wyfcoding/bookstore/pkg/middleware"
	"github.com/wyfcoding/bookstore/pkg/mq"
	"github.com/wyfcoding/bookstore/pkg/ratelimit"
	"github.com/wyfcoding/bookstore/pkg/utils"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "configs/bookstore/config.toml", "path to config file")
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

	ctx := context.Background()
	logger.Info(ctx, "starting bookstore service", "version", cfg.Version, "environment", cfg.Environment)

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

	if err := database.AutoMigrate(
		&userdomain.User{},
		&catalogdomain.Book{},
		&cartdomain.CartLine{},
		&orderdomain.Order{},
		&orderdomain.OrderLine{},
		&messaging.OutboxMessage{},
		&notificationdomain.Notification{},
		&paymentdomain.SavedCard{},
		&revenuedomain.DailyRevenue{},
	); err != nil {
		logger.Fatal(ctx, "migrate database failed", "error", err)
	}

	// 4. Redis
	redisCache, err := cache.New(cache.Config{
		Host:         cfg.Redis.Host,
		Port:         cfg.Redis.Port,
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxPoolSize:  cfg.Redis.MaxPoolSize,
		ConnTimeout:  cfg.Redis.ConnTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
	})
	if err != nil {
		logger.Fatal(ctx, "init redis failed", "error", err)
	}
	defer redisCache.Close()

	// 5. Kafka producer + outbox relay
	producer, err := mq.NewProducer(mq.KafkaConfig{
		Brokers:      cfg.Kafka.Brokers,
		MaxRetries:   cfg.Kafka.MaxRetries,
		RetryBackoff: cfg.Kafka.RetryBackoff,
	})
	if err != nil {
		logger.Fatal(ctx, "init kafka producer failed", "error", err)
	}
	defer producer.Close()

	relayCtx, stopRelay := context.WithCancel(ctx)
	defer stopRelay()
	relay := messaging.NewOutboxRelay(
		database.DB,
		producer,
		cfg.Kafka.OrderEventsTopic,
		time.Duration(cfg.Store.OutboxPollInterval)*time.Millisecond,
	)
	go relay.Start(relayCtx)

	// 6. Metrics
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

	// 7. Repositories
	userRepo := usermysql.NewUserRepository(database.DB)
	sessionRepo := userredis.NewSessionRepository(redisCache.GetClient())
	bookRepo := catalogmysql.NewBookRepository(database.DB)
	ledger := catalogmysql.NewInventoryLedger(database.DB)
	bookCache := catalogredis.NewBookCache(redisCache)
	cartRepo := cartmysql.NewCartRepository(database.DB)
	orderRepo := ordermysql.NewOrderRepository(database.DB)
	notificationRepo := notificationmysql.NewNotificationRepository(database.DB)
	cardRepo := paymentmysql.NewCardRepository(database.DB)
	revenueRepo := revenuemysql.NewRevenueRepository(database.DB)
	eventPublisher := messaging.NewOutboxEventPublisher()

	// 8. Application services
	userService := userapp.NewUserService(userRepo, sessionRepo, cfg.Session.TTL)
	catalogCommand := catalogapp.NewCatalogCommandService(bookRepo, bookCache)
	catalogQuery := catalogapp.NewCatalogQueryService(bookRepo, bookCache)
	cartService := cartapp.NewCartService(cartRepo, bookRepo, ledger)
	orderNumbers := utils.NewOrderNumberGenerator(cfg.Store.OrderNumberPrefix, cfg.Store.NodeID)
	orderCommand := orderapp.NewOrderCommandService(
		orderRepo, cartRepo, cartService, bookRepo, ledger, userRepo,
		eventPublisher, database, orderNumbers,
		time.Duration(cfg.Store.CheckoutTimeout)*time.Second, m,
	)
	orderQuery := orderapp.NewOrderQueryService(orderRepo)
	orderService := orderapp.NewOrderService(orderCommand, orderQuery)
	notificationService := notificationapp.NewNotificationService(notificationRepo, userRepo, nil, m)
	cardService := paymentapp.NewCardService(cardRepo)
	revenueService := revenueapp.NewRevenueService(revenueRepo, orderRepo)

	// 9. HTTP server
	if cfg.Environment == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(
		middleware.GinLoggingMiddleware(),
		middleware.GinRecoveryMiddleware(),
		middleware.GinCORSMiddleware(),
	)
	if cfg.Metrics.Enabled {
		engine.Use(middleware.GinMetricsMiddleware(m))
	}
	if cfg.RateLimit.Enabled {
		limiter := ratelimit.NewRedisRateLimiter(redisCache.GetClient())
		engine.Use(middleware.RateLimitMiddleware(limiter, cfg.RateLimit))
	}

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "service": cfg.ServiceName})
	})

	userHandler := userhttp.NewHandler(userService, cfg.Session.CookieName, cfg.Session.TTL)
	catalogHandler := cataloghttp.NewHandler(catalogCommand, catalogQuery)
	cartHandler := carthttp.NewHandler(cartService)
	orderHandler := orderhttp.NewHandler(orderService, cardService)
	notificationHandler := notificationhttp.NewHandler(notificationService)
	cardHandler := paymenthttp.NewHandler(cardService)
	revenueHandler := revenuehttp.NewHandler(revenueService)

	api := engine.Group("/api/v1")
	userHandler.RegisterPublicRoutes(api)
	catalogHandler.RegisterPublicRoutes(api)

	authed := api.Group("")
	authed.Use(userhttp.AuthMiddleware(userService, cfg.Session.CookieName, true))
	{
		userHandler.RegisterRoutes(authed)
		catalogHandler.RegisterRoutes(authed)
		cartHandler.RegisterRoutes(authed)
		orderHandler.RegisterRoutes(authed)
		notificationHandler.RegisterRoutes(authed)
		cardHandler.RegisterRoutes(authed)
		revenueHandler.RegisterRoutes(authed)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      engine,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info(ctx, "HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "HTTP server failed", "error", err)
		}
	}()

	// 10. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info(ctx, "shutting down...")

	stopRelay()
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "server shutdown failed", "error", err)
	}
	logger.Info(ctx, "server exited")
}
