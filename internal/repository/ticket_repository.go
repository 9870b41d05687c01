package repository

import (
	"context"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

// TicketRepository persists tickets and answers the history questions the
// entry and exit workflows ask.
type TicketRepository interface {
	// Save inserts or updates a ticket by id. Saving an open ticket for a
	// registration that already holds a different open ticket fails with
	// domain.ErrVehicleAlreadyParked.
	Save(ctx context.Context, ticket *domain.Ticket) error

	// FindOpenTicketByRegistration returns the ticket with no exit time for reg,
	// or domain.ErrTicketNotFound.
	FindOpenTicketByRegistration(ctx context.Context, reg string) (*domain.Ticket, error)

	// HasAnyTicketFor reports whether reg has at least one ticket other than
	// excludeTicketID. Pass "" to consider every ticket.
	HasAnyTicketFor(ctx context.Context, reg, excludeTicketID string) (bool, error)

	// ListOpenTickets returns every ticket still without an exit time
	ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error)
}

// SpotRepository loads the spot inventory from durable storage
type SpotRepository interface {
	// LoadInventory returns every configured spot ordered by number
	LoadInventory(ctx context.Context) ([]domain.ParkingSpot, error)

	// SeedInventory inserts spots that do not exist yet and leaves others untouched
	SeedInventory(ctx context.Context, spots []domain.ParkingSpot) error
}
