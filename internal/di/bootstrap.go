package di

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/internal/metrics"
	"github.com/Wardenfar/parkingsystem/internal/repository"
	"github.com/Wardenfar/parkingsystem/internal/service"
	"github.com/Wardenfar/parkingsystem/migrations"
	"github.com/Wardenfar/parkingsystem/pkg/clock"
	"github.com/Wardenfar/parkingsystem/pkg/config"
	"github.com/Wardenfar/parkingsystem/pkg/database"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
	pkgredis "github.com/Wardenfar/parkingsystem/pkg/redis"
)

// Bootstrap connects the infrastructure selected by cfg, builds the container
// and restores allocator occupancy from open tickets. The returned cleanup
// closes every connection that was opened.
func Bootstrap(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Container, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
	fail := func(err error) (*Container, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	if err := metrics.Init(); err != nil {
		log.Warn("Failed to initialize workflow metrics", zap.Error(err))
	}

	var db *database.PostgresDB
	if cfg.UsesPostgres() {
		dbCfg := database.DefaultPostgresConfig()
		dbCfg.Host = cfg.Database.Host
		dbCfg.Port = cfg.Database.Port
		dbCfg.User = cfg.Database.User
		dbCfg.Password = cfg.Database.Password
		dbCfg.Database = cfg.Database.DBName
		dbCfg.SSLMode = cfg.Database.SSLMode
		dbCfg.MaxConns = cfg.Database.MaxConns
		dbCfg.MinConns = cfg.Database.MinConns
		dbCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
		dbCfg.MaxConnIdleTime = cfg.Database.ConnMaxIdleTime
		dbCfg.EnableTracing = cfg.OTel.Enabled

		var err error
		db, err = database.NewPostgres(ctx, dbCfg)
		if err != nil {
			return fail(fmt.Errorf("database connection failed: %w", err))
		}
		closers = append(closers, db.Close)
		log.Info("Database connected",
			zap.Int32("min_conns", dbCfg.MinConns),
			zap.Int32("max_conns", dbCfg.MaxConns),
		)

		applied, err := migrations.Apply(ctx, db.Pool())
		if err != nil {
			return fail(fmt.Errorf("failed to apply migrations: %w", err))
		}
		log.Info("Database schema ready", zap.Int("migrations", applied))
	}

	var redisClient *pkgredis.Client
	if cfg.Redis.Enabled {
		redisCfg := pkgredis.DefaultConfig()
		redisCfg.Host = cfg.Redis.Host
		redisCfg.Port = cfg.Redis.Port
		redisCfg.Password = cfg.Redis.Password
		redisCfg.DB = cfg.Redis.DB
		redisCfg.PoolSize = cfg.Redis.PoolSize
		redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
		redisCfg.DialTimeout = cfg.Redis.DialTimeout
		redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
		redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

		var err error
		redisClient, err = pkgredis.NewClient(ctx, redisCfg)
		if err != nil {
			return fail(fmt.Errorf("redis connection failed: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })
		log.Info("Redis connected", zap.String("addr", redisCfg.Addr()))
	}

	ticketRepo, inventory, err := buildStore(ctx, cfg, db, redisClient, log)
	if err != nil {
		return fail(err)
	}

	var eventPublisher service.EventPublisher = service.NewNoOpEventPublisher()
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := service.NewKafkaEventPublisher(ctx, &service.EventPublisherConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			ServiceName: cfg.App.Name,
			ClientID:    cfg.Kafka.ClientID,
		})
		if err != nil {
			log.Warn("Kafka connection failed, using no-op publisher", zap.Error(err))
		} else {
			eventPublisher = kafkaPublisher
			log.Info("Kafka event publisher connected", zap.String("topic", cfg.Kafka.Topic))
		}
	}
	closers = append(closers, func() { _ = eventPublisher.Close() })

	container, err := NewContainer(&ContainerConfig{
		DB:             db,
		Redis:          redisClient,
		TicketRepo:     ticketRepo,
		Inventory:      inventory,
		EventPublisher: eventPublisher,
		ServiceConfig: &service.ParkingServiceConfig{
			Clock:               clock.NewSystem(),
			Logger:              log,
			EventPublishTimeout: cfg.Parking.EventPublishTimeout,
		},
		AvailabilitySync: cfg.Parking.AvailabilitySync,
		Logger:           log,
	})
	if err != nil {
		return fail(err)
	}

	restored, err := container.ParkingService.RestoreOccupancy(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to restore occupancy: %w", err))
	}
	log.Info("Spot occupancy restored",
		zap.Int("open_tickets", restored),
		zap.String("ticket_store", cfg.Parking.TicketStore),
	)

	return container, cleanup, nil
}

// buildStore picks the ticket store and loads the spot inventory
func buildStore(
	ctx context.Context,
	cfg *config.Config,
	db *database.PostgresDB,
	redisClient *pkgredis.Client,
	log *logger.Logger,
) (repository.TicketRepository, []domain.ParkingSpot, error) {
	configured := domain.BuildInventory(cfg.Parking.CarSpots, cfg.Parking.BikeSpots)

	switch cfg.Parking.TicketStore {
	case config.StorePostgres:
		spotRepo := repository.NewPostgresSpotRepository(db.Pool())
		if cfg.Parking.SeedInventory {
			if err := spotRepo.SeedInventory(ctx, configured); err != nil {
				return nil, nil, fmt.Errorf("failed to seed spot inventory: %w", err)
			}
		}
		inventory, err := spotRepo.LoadInventory(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load spot inventory: %w", err)
		}
		if len(inventory) == 0 {
			return nil, nil, errors.New("spot inventory is empty, enable PARKING_SEED_INVENTORY or populate the parking table")
		}
		// occupancy is rebuilt from open tickets
		for i := range inventory {
			inventory[i].Available = true
		}
		return repository.NewPostgresTicketRepository(db.Pool()), inventory, nil

	case config.StoreRedis:
		repo := repository.NewRedisTicketRepository(redisClient)
		if err := repo.LoadScripts(ctx); err != nil {
			log.Warn("Failed to pre-load Lua scripts", zap.Error(err))
		} else {
			log.Info("Lua scripts pre-loaded into Redis")
		}
		return repo, configured, nil

	default:
		return repository.NewMemoryTicketRepository(), configured, nil
	}
}
