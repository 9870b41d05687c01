package repository

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

var (
	carSpot  = domain.ParkingSpot{ID: 1, Category: domain.CategoryCar, Available: true}
	carSpot2 = domain.ParkingSpot{ID: 2, Category: domain.CategoryCar, Available: true}
	bikeSpot = domain.ParkingSpot{ID: 4, Category: domain.CategoryBike, Available: true}
	entryAt  = time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
)

// testTicketRepository runs the behaviour every TicketRepository must share.
// newRepo must return an empty store whose inventory contains spots 1..5.
func testTicketRepository(t *testing.T, newRepo func(t *testing.T) TicketRepository) {
	t.Run("save and find open ticket", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ticket := domain.NewTicket("AB-123-CD", carSpot, entryAt)
		require.NoError(t, repo.Save(ctx, ticket))

		got, err := repo.FindOpenTicketByRegistration(ctx, "AB-123-CD")
		require.NoError(t, err)
		assert.Equal(t, ticket.ID, got.ID)
		assert.Equal(t, carSpot.ID, got.SpotID)
		assert.Equal(t, domain.CategoryCar, got.Category)
		assert.True(t, got.EntryTime.Equal(entryAt))
		assert.True(t, got.IsOpen())
	})

	t.Run("unknown registration is not found", func(t *testing.T) {
		repo := newRepo(t)

		_, err := repo.FindOpenTicketByRegistration(context.Background(), "NOPE")
		assert.ErrorIs(t, err, domain.ErrTicketNotFound)
	})

	t.Run("closing removes the open ticket", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ticket := domain.NewTicket("AB-123-CD", carSpot, entryAt)
		require.NoError(t, repo.Save(ctx, ticket))
		require.NoError(t, ticket.Close(entryAt.Add(2*time.Hour), 3.0))
		require.NoError(t, repo.Save(ctx, ticket))

		_, err := repo.FindOpenTicketByRegistration(ctx, "AB-123-CD")
		assert.ErrorIs(t, err, domain.ErrTicketNotFound)

		open, err := repo.ListOpenTickets(ctx)
		require.NoError(t, err)
		assert.Empty(t, open)
	})

	t.Run("second open ticket for a registration is rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Save(ctx, domain.NewTicket("AB-123-CD", carSpot, entryAt)))
		err := repo.Save(ctx, domain.NewTicket("AB-123-CD", carSpot2, entryAt))
		assert.ErrorIs(t, err, domain.ErrVehicleAlreadyParked)
	})

	t.Run("history excludes the given ticket", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		has, err := repo.HasAnyTicketFor(ctx, "AB-123-CD", "")
		require.NoError(t, err)
		assert.False(t, has)

		first := domain.NewTicket("AB-123-CD", carSpot, entryAt)
		require.NoError(t, repo.Save(ctx, first))

		has, err = repo.HasAnyTicketFor(ctx, "AB-123-CD", first.ID)
		require.NoError(t, err)
		assert.False(t, has, "the ticket being closed is not history")

		has, err = repo.HasAnyTicketFor(ctx, "AB-123-CD", "")
		require.NoError(t, err)
		assert.True(t, has)

		require.NoError(t, first.Close(entryAt.Add(time.Hour), 1.5))
		require.NoError(t, repo.Save(ctx, first))
		second := domain.NewTicket("AB-123-CD", carSpot2, entryAt.Add(24*time.Hour))
		require.NoError(t, repo.Save(ctx, second))

		has, err = repo.HasAnyTicketFor(ctx, "AB-123-CD", second.ID)
		require.NoError(t, err)
		assert.True(t, has)

		has, err = repo.HasAnyTicketFor(ctx, "ZZ-999-ZZ", "")
		require.NoError(t, err)
		assert.False(t, has)
	})

	t.Run("list open tickets ordered by spot", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		require.NoError(t, repo.Save(ctx, domain.NewTicket("BIKE-1", bikeSpot, entryAt)))
		require.NoError(t, repo.Save(ctx, domain.NewTicket("CAR-1", carSpot, entryAt)))
		closed := domain.NewTicket("CAR-2", carSpot2, entryAt)
		require.NoError(t, repo.Save(ctx, closed))
		require.NoError(t, closed.Close(entryAt.Add(time.Hour), 1.5))
		require.NoError(t, repo.Save(ctx, closed))

		open, err := repo.ListOpenTickets(ctx)
		require.NoError(t, err)
		require.Len(t, open, 2)
		assert.Equal(t, carSpot.ID, open[0].SpotID)
		assert.Equal(t, bikeSpot.ID, open[1].SpotID)
	})

	t.Run("second close is rejected", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		first := closeTwice(t, repo)

		reopen := first.Clone()
		reopen.ExitTime = nil
		assert.ErrorIs(t, repo.Save(ctx, reopen), domain.ErrTicketAlreadyClosed)

		_, err := repo.FindOpenTicketByRegistration(ctx, "AB-123-CD")
		assert.ErrorIs(t, err, domain.ErrTicketNotFound)

		// the next vehicle on the spot is untouched by the late write
		next := domain.NewTicket("EF-456-GH", carSpot, entryAt.Add(150*time.Minute))
		require.NoError(t, repo.Save(ctx, next))
		open, err := repo.ListOpenTickets(ctx)
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, next.ID, open[0].ID)
	})

	t.Run("closed ticket keeps its price", func(t *testing.T) {
		repo := newRepo(t)
		ctx := context.Background()

		ticket := domain.NewTicket("AB-123-CD", carSpot, entryAt)
		require.NoError(t, repo.Save(ctx, ticket))
		require.NoError(t, ticket.Close(entryAt.Add(time.Hour), 1.5))
		require.NoError(t, repo.Save(ctx, ticket))

		reopened := domain.NewTicket("AB-123-CD", carSpot, entryAt.Add(2*time.Hour))
		require.NoError(t, repo.Save(ctx, reopened), "a closed ticket does not block a new entry")
	})
}

// closeTwice opens a ticket, closes it at 2.25 and then replays a late close
// of the same open copy at 3.75, which the store must refuse
func closeTwice(t *testing.T, repo TicketRepository) *domain.Ticket {
	t.Helper()
	ctx := context.Background()

	ticket := domain.NewTicket("AB-123-CD", carSpot, entryAt)
	require.NoError(t, repo.Save(ctx, ticket))

	first := ticket.Clone()
	require.NoError(t, first.Close(entryAt.Add(2*time.Hour), 2.25))
	require.NoError(t, repo.Save(ctx, first))

	late := ticket.Clone()
	require.NoError(t, late.Close(entryAt.Add(3*time.Hour), 3.75))
	require.ErrorIs(t, repo.Save(ctx, late), domain.ErrTicketAlreadyClosed)
	return first
}

func assertSameClose(t *testing.T, want, got *domain.Ticket) {
	t.Helper()
	assert.Equal(t, want.Price, got.Price)
	require.NotNil(t, got.ExitTime)
	assert.True(t, want.ExitTime.Equal(*got.ExitTime))
}

func TestMemoryTicketRepository(t *testing.T) {
	testTicketRepository(t, func(t *testing.T) TicketRepository {
		return NewMemoryTicketRepository()
	})
}

func TestMemoryTicketRepository_StoresCopies(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()

	ticket := domain.NewTicket("AB-123-CD", carSpot, entryAt)
	require.NoError(t, repo.Save(ctx, ticket))

	ticket.SpotID = 99
	got, err := repo.FindOpenTicketByRegistration(ctx, "AB-123-CD")
	require.NoError(t, err)
	assert.Equal(t, carSpot.ID, got.SpotID)

	got.Price = 42
	again, err := repo.FindOpenTicketByRegistration(ctx, "AB-123-CD")
	require.NoError(t, err)
	assert.Zero(t, again.Price)
	assert.Equal(t, 1, repo.Count())
}

func TestMemoryTicketRepository_LateCloseKeepsFirstClose(t *testing.T) {
	repo := NewMemoryTicketRepository()

	first := closeTwice(t, repo)

	assertSameClose(t, first, repo.tickets[first.ID])
}

func TestMemoryTicketRepository_ConcurrentEntriesForSameVehicle(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()

	const workers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := repo.Save(ctx, domain.NewTicket("AB-123-CD", carSpot, entryAt))
			if err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
				return
			}
			if !errors.Is(err, domain.ErrVehicleAlreadyParked) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, accepted)
}
