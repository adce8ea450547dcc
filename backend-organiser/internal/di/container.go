package di

import (
	"time"

	"github.com/owya490/social-sports-sub003/backend-organiser/internal/handler"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/repository"
	"github.com/owya490/social-sports-sub003/backend-organiser/internal/service"
	"github.com/owya490/social-sports-sub003/pkg/database"
	"github.com/owya490/social-sports-sub003/pkg/redis"
)

// Container holds all dependencies for the organiser service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	OrderRepo    repository.OrderRepository
	TicketRepo   repository.TicketRepository
	MetadataRepo repository.EventMetadataRepository

	// Services
	OrderService      service.OrderService
	StatisticsService service.StatisticsService
	AttendeeService   service.AttendeeService

	// Handlers
	HealthHandler     *handler.HealthHandler
	OrderHandler      *handler.OrderHandler
	StatisticsHandler *handler.StatisticsHandler
	AttendeeHandler   *handler.AttendeeHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB *database.PostgresDB
	// Redis enables the event metadata cache when set
	Redis              *redis.Client
	CacheTTL           time.Duration
	OrderServiceConfig *service.OrderServiceConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:    cfg.DB,
		Redis: cfg.Redis,
	}

	// Initialize repositories
	pool := c.DB.Pool()
	c.OrderRepo = repository.NewPostgresOrderRepository(pool)
	c.TicketRepo = repository.NewPostgresTicketRepository(pool)

	var metadataRepo repository.EventMetadataRepository = repository.NewPostgresEventMetadataRepository(pool)
	if c.Redis != nil {
		metadataRepo = repository.NewCachedEventMetadataRepository(metadataRepo, c.Redis, cfg.CacheTTL)
	}
	c.MetadataRepo = metadataRepo

	// Initialize services
	c.OrderService = service.NewOrderService(c.OrderRepo, c.TicketRepo, c.MetadataRepo, cfg.OrderServiceConfig)
	c.StatisticsService = service.NewStatisticsService(c.OrderService, c.MetadataRepo)
	c.AttendeeService = service.NewAttendeeService(c.MetadataRepo)

	// Initialize handlers
	components := map[string]handler.HealthChecker{"database": c.DB, "redis": nil}
	if c.Redis != nil {
		components["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(components)
	c.OrderHandler = handler.NewOrderHandler(c.OrderService)
	c.StatisticsHandler = handler.NewStatisticsHandler(c.StatisticsService)
	c.AttendeeHandler = handler.NewAttendeeHandler(c.AttendeeService)

	return c
}
