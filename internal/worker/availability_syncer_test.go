package worker

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wardenfar/parkingsystem/internal/allocator"
	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
	pkgredis "github.com/Wardenfar/parkingsystem/pkg/redis"
)

type recordedWrite struct {
	key    string
	fields map[string]any
}

type fakeSink struct {
	mu     sync.Mutex
	writes []recordedWrite
	err    error
}

func (f *fakeSink) write(ctx context.Context, key string, fields map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.writes = append(f.writes, recordedWrite{key: key, fields: fields})
	return nil
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func newTestSyncer(t *testing.T, interval time.Duration) (*AvailabilitySyncer, *allocator.SpotAllocator, *fakeSink) {
	t.Helper()
	spots, err := allocator.New(domain.BuildInventory(3, 2))
	require.NoError(t, err)

	sink := &fakeSink{}
	s := NewAvailabilitySyncer(&AvailabilitySyncerConfig{Interval: interval}, spots, nil, logger.NewNop())
	s.write = sink.write
	return s, spots, sink
}

func TestAvailabilityFields(t *testing.T) {
	at := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	fields := availabilityFields([]domain.PoolStatus{
		{Category: domain.CategoryCar, Total: 3, Available: 1},
		{Category: domain.CategoryBike, Total: 2, Available: 2},
	}, at)

	assert.Equal(t, map[string]any{
		"CAR:total":      "3",
		"CAR:available":  "1",
		"BIKE:total":     "2",
		"BIKE:available": "2",
		"updated_at":     "2024-03-01T08:00:00Z",
	}, fields)
}

func TestAvailabilitySyncer_SyncOnce(t *testing.T) {
	s, spots, sink := newTestSyncer(t, time.Hour)

	_, err := spots.Assign(domain.CategoryCar)
	require.NoError(t, err)

	require.NoError(t, s.SyncOnce(context.Background()))
	require.Equal(t, 1, sink.count())
	assert.Equal(t, AvailabilityKey, sink.writes[0].key)
	assert.Equal(t, "2", sink.writes[0].fields["CAR:available"])
	assert.Equal(t, 1, s.Syncs())

	sink.err = errors.New("redis unavailable")
	assert.Error(t, s.SyncOnce(context.Background()))
	assert.Equal(t, 1, s.Syncs())
}

func TestAvailabilitySyncer_LastError(t *testing.T) {
	s, _, sink := newTestSyncer(t, time.Hour)
	ctx := context.Background()

	assert.NoError(t, s.LastError())
	assert.NoError(t, s.HealthCheck(ctx))

	sink.err = errors.New("redis unavailable")
	require.Error(t, s.SyncOnce(ctx))
	assert.ErrorIs(t, s.LastError(), sink.err)
	assert.ErrorContains(t, s.HealthCheck(ctx), "redis unavailable")

	sink.err = nil
	require.NoError(t, s.SyncOnce(ctx))
	assert.NoError(t, s.LastError())
	assert.NoError(t, s.HealthCheck(ctx))
}

func TestAvailabilitySyncer_StartStop(t *testing.T) {
	s, _, sink := newTestSyncer(t, 10*time.Millisecond)

	s.Start(context.Background())
	s.Start(context.Background())

	assert.Eventually(t, func() bool { return sink.count() >= 3 }, time.Second, 5*time.Millisecond)

	s.Stop()
	after := sink.count()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sink.count(), "no writes after Stop")

	s.Stop()
}

func TestAvailabilitySyncer_StopsWithContext(t *testing.T) {
	s, _, sink := newTestSyncer(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	s.Start(ctx)
	assert.Eventually(t, func() bool { return sink.count() >= 1 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.Eventually(t, func() bool { return sink.count() >= 2 }, time.Second, 5*time.Millisecond,
		"final sync on cancellation")
	s.Stop()
}

func TestAvailabilitySyncer_Redis(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run.")
	}

	port := 6379
	if v := os.Getenv("TEST_REDIS_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		require.NoError(t, err)
		port = p
	}
	host := os.Getenv("TEST_REDIS_HOST")
	if host == "" {
		host = "localhost"
	}

	cfg := pkgredis.DefaultConfig()
	cfg.Host = host
	cfg.Port = port
	cfg.DB = 15

	ctx := context.Background()
	client, err := pkgredis.NewClient(ctx, cfg)
	require.NoError(t, err)
	defer client.Close()

	spots, err := allocator.New(domain.BuildInventory(3, 2))
	require.NoError(t, err)
	_, err = spots.Assign(domain.CategoryBike)
	require.NoError(t, err)

	key := "parking:availability:test"
	s := NewAvailabilitySyncer(&AvailabilitySyncerConfig{Key: key}, spots, client, logger.NewNop())
	require.NoError(t, s.SyncOnce(ctx))
	defer client.Del(ctx, key)

	got, err := client.HGetAll(ctx, key).Result()
	require.NoError(t, err)
	assert.Equal(t, "3", got["CAR:available"])
	assert.Equal(t, "1", got["BIKE:available"])
	assert.Equal(t, "2", got["BIKE:total"])
}
