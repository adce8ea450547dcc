package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/consumer"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/di"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/metrics"
	"github.com/owya490/social-sports-sub003/pkg/config"
	"github.com/owya490/social-sports-sub003/pkg/database"
	"github.com/owya490/social-sports-sub003/pkg/kafka"
	"github.com/owya490/social-sports-sub003/pkg/logger"
	pkgredis "github.com/owya490/social-sports-sub003/pkg/redis"
	"github.com/owya490/social-sports-sub003/pkg/retry"
	"github.com/owya490/social-sports-sub003/pkg/telemetry"
)

const workerName = "organiser-order-worker"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.ValidateOrganiserDatabase(); err != nil {
		log.Fatalf("Invalid database config: %v", err)
	}
	if err := cfg.ValidateKafka(); err != nil {
		log.Fatalf("Invalid kafka config: %v", err)
	}

	// Initialize logger
	logCfg := &logger.Config{
		Level:       cfg.App.Environment,
		ServiceName: workerName,
		Development: cfg.IsDevelopment(),
	}
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	appLog := logger.Get()
	appLog.Info("Starting Order Worker...")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if _, err := telemetry.Init(ctx, &telemetry.Config{
		Enabled:        cfg.OTel.Enabled,
		ServiceName:    workerName,
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
	db, err := database.NewPostgres(ctx, &database.PostgresConfig{
		Host:            cfg.OrganiserDatabase.Host,
		Port:            cfg.OrganiserDatabase.Port,
		User:            cfg.OrganiserDatabase.User,
		Password:        cfg.OrganiserDatabase.Password,
		Database:        cfg.OrganiserDatabase.DBName,
		SSLMode:         cfg.OrganiserDatabase.SSLMode,
		MaxConns:        10,
		MinConns:        2,
		MaxConnLifetime: cfg.OrganiserDatabase.ConnMaxLifetime,
		MaxConnIdleTime: cfg.OrganiserDatabase.ConnMaxIdleTime,
		MaxRetries:      3,
		RetryInterval:   2 * time.Second,
		EnableTracing:   cfg.OTel.Enabled,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to connect to database: %v", err))
	}
	defer db.Close()
	appLog.Info("Database connected")

	// Writes go through the cache so API readers never see stale metadata
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
		appLog.Warn(fmt.Sprintf("Redis connection failed, cache invalidation disabled: %v", err))
	} else {
		defer redisClient.Close()
		appLog.Info("Redis connected")
	}

	container := di.NewContainer(&di.ContainerConfig{
		DB:       db,
		Redis:    redisClient,
		CacheTTL: cfg.Redis.CacheTTL,
	})

	// Initialize Kafka consumer
	kafkaConsumer, err := kafka.NewConsumer(ctx, &kafka.ConsumerConfig{
		Brokers:        cfg.Kafka.Brokers,
		GroupID:        cfg.Kafka.ConsumerGroup,
		Topics:         []string{cfg.Kafka.OrderCompletedTopic},
		ClientID:       cfg.Kafka.ClientID + "-order-worker",
		MaxRetries:     3,
		RetryInterval:  2 * time.Second,
		SessionTimeout: 30 * time.Second,
	})
	if err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to create Kafka consumer: %v", err))
	}
	appLog.Info("Kafka consumer connected")

	// Initialize Kafka producer for the dead letter queue
	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:  cfg.Kafka.Brokers,
		ClientID: cfg.Kafka.ClientID + "-dlq-producer",
	})
	if err != nil {
		kafkaConsumer.Close()
		appLog.Fatal(fmt.Sprintf("Failed to create Kafka producer: %v", err))
	}
	defer producer.Close()
	appLog.Info("Kafka producer connected")

	dlqPublisher := retry.NewKafkaDLQPublisher(producer, &retry.DLQConfig{
		TopicSuffix: cfg.Kafka.DLQSuffix,
		Source:      workerName,
	})

	worker := consumer.NewOrderCompletedConsumer(kafkaConsumer, dlqPublisher, container.AttendeeService, &consumer.OrderCompletedConsumerConfig{
		Source:         workerName,
		WorkerCount:    cfg.Worker.Count,
		MaxRetries:     cfg.Worker.MaxRetries,
		RetryInterval:  cfg.Worker.RetryInterval,
		ProcessTimeout: cfg.Worker.ProcessTimeout,
	})
	if err := worker.Start(ctx); err != nil {
		appLog.Fatal(fmt.Sprintf("Failed to start worker: %v", err))
	}
	appLog.Info(fmt.Sprintf("Order Worker consuming %s with %d workers", cfg.Kafka.OrderCompletedTopic, cfg.Worker.Count))

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info("Shutting down worker...")
	if err := worker.Stop(); err != nil {
		appLog.Error(fmt.Sprintf("Worker stop: %v", err))
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		appLog.Warn(fmt.Sprintf("Telemetry shutdown: %v", err))
	}

	appLog.Info("Worker exited gracefully")
}
