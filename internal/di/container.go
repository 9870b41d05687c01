package di

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Wardenfar/parkingsystem/internal/allocator"
	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/internal/fare"
	"github.com/Wardenfar/parkingsystem/internal/handler"
	"github.com/Wardenfar/parkingsystem/internal/metrics"
	"github.com/Wardenfar/parkingsystem/internal/repository"
	"github.com/Wardenfar/parkingsystem/internal/service"
	"github.com/Wardenfar/parkingsystem/internal/worker"
	"github.com/Wardenfar/parkingsystem/pkg/database"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
	"github.com/Wardenfar/parkingsystem/pkg/redis"
)

// Container holds all dependencies for the parking service
type Container struct {
	// Infrastructure
	DB    *database.PostgresDB
	Redis *redis.Client

	// Repositories
	TicketRepo repository.TicketRepository

	// Publishers
	EventPublisher service.EventPublisher

	// Core
	Spots          *allocator.SpotAllocator
	ParkingService service.ParkingService

	// Observability
	Registry *prometheus.Registry

	// Workers
	AvailabilitySyncer *worker.AvailabilitySyncer

	// Handlers
	HealthHandler  *handler.HealthHandler
	ParkingHandler *handler.ParkingHandler
	FareHandler    *handler.FareHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB               *database.PostgresDB
	Redis            *redis.Client
	TicketRepo       repository.TicketRepository
	Inventory        []domain.ParkingSpot
	EventPublisher   service.EventPublisher
	ServiceConfig    *service.ParkingServiceConfig
	AvailabilitySync time.Duration
	Logger           *logger.Logger
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	spots, err := allocator.New(cfg.Inventory)
	if err != nil {
		return nil, fmt.Errorf("failed to build spot allocator: %w", err)
	}

	c := &Container{
		DB:             cfg.DB,
		Redis:          cfg.Redis,
		TicketRepo:     cfg.TicketRepo,
		EventPublisher: cfg.EventPublisher,
		Spots:          spots,
	}

	serviceCfg := cfg.ServiceConfig
	if serviceCfg == nil {
		serviceCfg = &service.ParkingServiceConfig{}
	}
	if serviceCfg.EventPublisher == nil {
		serviceCfg.EventPublisher = c.EventPublisher
	}

	// Initialize services
	c.ParkingService = service.NewParkingService(c.TicketRepo, c.Spots, fare.NewCalculator(), serviceCfg)

	// Prometheus registry with runtime collectors and live pool state
	c.Registry = prometheus.NewRegistry()
	c.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewOccupancyCollector(c.Spots),
	)

	// Workers
	if c.Redis != nil {
		c.AvailabilitySyncer = worker.NewAvailabilitySyncer(&worker.AvailabilitySyncerConfig{
			Interval: cfg.AvailabilitySync,
		}, c.Spots, c.Redis, cfg.Logger)
	}

	// Initialize handlers
	deps := map[string]handler.Pinger{}
	if c.DB != nil {
		deps["postgres"] = c.DB
	}
	if c.Redis != nil {
		deps["redis"] = c.Redis
	}
	if c.AvailabilitySyncer != nil {
		deps["availability_sync"] = c.AvailabilitySyncer
	}
	c.HealthHandler = handler.NewHealthHandler(deps)
	c.ParkingHandler = handler.NewParkingHandler(c.ParkingService)
	c.FareHandler = handler.NewFareHandler(c.ParkingService)

	return c, nil
}
