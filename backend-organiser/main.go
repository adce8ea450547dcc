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

	"github.com/gin-gonic/gin"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/di"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/metrics"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/service"
	"github.com/owya490/social-sports-sub003/pkg/config"
	"github.com/owya490/social-sports-sub003/pkg/database"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	"github.com/owya490/social-sports-sub003/pkg/middleware"
	pkgredis "github.com/owya490/social-sports-sub003/pkg/redis"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
)

const serviceName = "organiser-service"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateOrganiserDatabase(); err != nil {
		log.Fatalf("Invalid database config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: serviceName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Organiser Service...")

	ctx := context.Background()

	// Initialize telemetry
	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    cfg.OTel.ServiceName,
		ServiceVersion: cfg.App.Version,
		Environment:    cfg.App.Environment,
		CollectorAddr:  cfg.OTel.CollectorAddr,
		SampleRatio:    cfg.OTel.SampleRatio,
	}); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry disabled: %v", err))
	}
	if err := metrics.Init(); err != nil {
		appLog.Warn(fmt.Sprintf("Failed to register metrics: %v", err))
	}

	// Initialize database connection
	dbCfg := &database.PostgresConfig{
		Host:            cfg.OrganiserDatabase.Host,
		Port:            cfg.OrganiserDatabase.Port,
		User:            cfg.OrganiserDatabase.User,
		Password:        cfg.OrganiserDatabase.Password,
		Database:        cfg.OrganiserDatabase.DBName,
		SSLMode:         cfg.OrganiserDatabase.SSLMode,
		MaxConns:        int32(cfg.OrganiserDatabase.MaxOpenConns),
		MinConns:        int32(cfg.OrganiserDatabase.MinConns),
		MaxConnLifetime: cfg.OrganiserDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.OrganiserDatabase.ConnMaxIdleTime,
		ConnectTimeout:  5 * time.Second,
		MaxRetries:      3,
		RetryInterval:   time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	}
	db, err := database.NewPostgres(ctx, dbCfg)
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Database connection failed: %v", err))
	}
	defer db.Close()
	appLog.Info(fmt.Sprintf("Database connected (pool: min=%d, max=%d)", dbCfg.MinConns, dbCfg.MaxConns))

	// Redis backs the metadata cache and idempotency keys. The service
	// still runs against Postgres alone when it is unreachable.
	redisClient, err := pkgredis.NewClient(ctx, &pkgredis.Config{
		Host:          cfg.Redis.Host,
		Port:          cfg.Redis.Port,
		Password:      cfg.Redis.Password,
		DB:            cfg.Redis.DB,
		PoolSize:      cfg.Redis.PoolSize,
		MinIdleConns:  cfg.Redis.MinIdleConns,
		DialTimeout:   cfg.Redis.DialTimeout,
		ReadTimeout:   cfg.Redis.ReadTimeout,
		WriteTimeout:  cfg.Redis.WriteTimeout,
		MaxRetries:    3,
		RetryInterval: 100 * time.Millisecond,
		EnableTracing: cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Warn(fmt.Sprintf("Redis connection failed, running without cache: %v", err))
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	// Build dependency injection container
	container := di.NewContainer(&di.ContainerConfig{
		DB:       db,
		Redis:    redisClient,
		CacheTTL: cfg.Redis.CacheTTL,
		OrderServiceConfig: &service.OrderServiceConfig{
			TicketFetchConcurrency: 8,
		},
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(serviceName))
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(appLog))

	// Health check endpoints
	router.GET("/health", container.HealthHandler.Health)
	router.GET("/ready", container.HealthHandler.Ready)

	v1 := router.Group("/api/v1")
	v1.Use(middleware.JWTMiddleware(&middleware.JWTConfig{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
	}))
	v1.Use(middleware.RequireRole(middleware.RoleOrganiser, middleware.RoleAdmin))
	{
		createOrder := []gin.HandlerFunc{container.OrderHandler.Create}
		if redisClient != nil {
			idempotency := middleware.IdempotencyMiddleware(middleware.DefaultIdempotencyConfig(redisClient))
			createOrder = append([]gin.HandlerFunc{idempotency}, createOrder...)
		}

		events := v1.Group("/events/:id")
		{
			events.GET("/statistics", container.StatisticsHandler.GetEventStatistics)

			events.GET("/orders", container.OrderHandler.List)
			events.GET("/orders/:orderId", container.OrderHandler.Get)
			events.POST("/orders", createOrder...)

			events.GET("/attendees", container.AttendeeHandler.GetMetadata)
			events.POST("/attendees", container.AttendeeHandler.Add)
			events.PUT("/attendees/tickets", container.AttendeeHandler.SetTickets)
			events.DELETE("/attendees", container.AttendeeHandler.Remove)
			events.POST("/metadata/recalculate", container.AttendeeHandler.Recalculate)
		}

		v1.PUT("/orders/:orderId/status", container.OrderHandler.UpdateStatus)
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		appLog.Info(fmt.Sprintf("Organiser Service listening on %s", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLog.Fatal(fmt.Sprintf("Failed to start server: %v", err))
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLog.Error(fmt.Sprintf("Server forced to shutdown: %v", err))
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry shutdown: %v", err))
	}

	appLog.Info("Server exited gracefully")
}
