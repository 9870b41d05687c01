package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
	pkgredis "github.com/Wardenfar/parkingsystem/pkg/redis"
)

// AvailabilityKey is the Redis hash holding per-category totals and free counts
const AvailabilityKey = "parking:availability"

// Snapshotter reports current pool occupancy
type Snapshotter interface {
	Snapshot() []domain.PoolStatus
}

// AvailabilitySyncerConfig holds configuration for the availability syncer
type AvailabilitySyncerConfig struct {
	Interval time.Duration
	Key      string
}

// AvailabilitySyncer mirrors allocator occupancy into Redis for read-only consumers
type AvailabilitySyncer struct {
	config *AvailabilitySyncerConfig
	source Snapshotter
	log    *logger.Logger
	write  func(ctx context.Context, key string, fields map[string]any) error

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	lastErr error
	syncs   int
}

// NewAvailabilitySyncer creates a new availability syncer
func NewAvailabilitySyncer(cfg *AvailabilitySyncerConfig, source Snapshotter, client *pkgredis.Client, log *logger.Logger) *AvailabilitySyncer {
	if cfg == nil {
		cfg = &AvailabilitySyncerConfig{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Second
	}
	if cfg.Key == "" {
		cfg.Key = AvailabilityKey
	}
	if log == nil {
		log = logger.Get()
	}

	return &AvailabilitySyncer{
		config: cfg,
		source: source,
		log:    log,
		write: func(ctx context.Context, key string, fields map[string]any) error {
			pipe := client.TxPipeline()
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, fields)
			_, err := pipe.Exec(ctx)
			return err
		},
	}
}

// Start runs the sync loop in the background until Stop or ctx is done
func (s *AvailabilitySyncer) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.run(ctx, s.done)

	s.log.Info("Availability syncer started",
		zap.String("key", s.config.Key),
		zap.Duration("interval", s.config.Interval),
	)
}

// Stop ends the loop and waits for the final sync
func (s *AvailabilitySyncer) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	s.log.Info("Availability syncer stopped")
}

func (s *AvailabilitySyncer) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	s.SyncOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			// final write with the state at shutdown
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
			s.SyncOnce(flushCtx)
			cancel()
			return
		case <-ticker.C:
			s.SyncOnce(ctx)
		}
	}
}

// SyncOnce writes the current snapshot. Failures are logged and retried on the next tick.
func (s *AvailabilitySyncer) SyncOnce(ctx context.Context) error {
	fields := availabilityFields(s.source.Snapshot(), time.Now())
	err := s.write(ctx, s.config.Key, fields)

	s.mu.Lock()
	s.lastErr = err
	if err == nil {
		s.syncs++
	}
	s.mu.Unlock()

	if err != nil {
		s.log.Warn("Failed to sync availability", zap.String("key", s.config.Key), zap.Error(err))
		return fmt.Errorf("failed to sync availability: %w", err)
	}
	return nil
}

// LastError returns the outcome of the most recent write, nil once a write succeeds
func (s *AvailabilitySyncer) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// HealthCheck reports the last write failure so readiness reflects a stale mirror
func (s *AvailabilitySyncer) HealthCheck(ctx context.Context) error {
	if err := s.LastError(); err != nil {
		return fmt.Errorf("availability mirror is stale: %w", err)
	}
	return nil
}

// Syncs returns the number of successful writes
func (s *AvailabilitySyncer) Syncs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.syncs
}

// availabilityFields flattens a snapshot to hash fields like CAR:total, CAR:available
func availabilityFields(pools []domain.PoolStatus, at time.Time) map[string]any {
	fields := make(map[string]any, len(pools)*2+1)
	for _, p := range pools {
		prefix := string(p.Category)
		fields[prefix+":total"] = strconv.Itoa(p.Total)
		fields[prefix+":available"] = strconv.Itoa(p.Available)
	}
	fields["updated_at"] = at.UTC().Format(time.RFC3339)
	return fields
}
