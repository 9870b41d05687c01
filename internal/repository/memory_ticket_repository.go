package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

// MemoryTicketRepository keeps tickets in process memory. It is the default
// store and the one used by the interactive shell.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket // by id
	byReg   map[string][]string       // registration -> ticket ids
	open    map[string]string         // registration -> open ticket id
}

// NewMemoryTicketRepository creates an empty in-memory store
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{
		tickets: make(map[string]*domain.Ticket),
		byReg:   make(map[string][]string),
		open:    make(map[string]string),
	}
}

// Save stores a copy of ticket. A ticket that is already closed in the store
// cannot be written again.
func (r *MemoryTicketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	reg := ticket.RegistrationNumber
	if prev, exists := r.tickets[ticket.ID]; exists && !prev.IsOpen() {
		return domain.ErrTicketAlreadyClosed
	}
	if ticket.IsOpen() {
		if openID, ok := r.open[reg]; ok && openID != ticket.ID {
			return domain.ErrVehicleAlreadyParked
		}
	}

	if prev, exists := r.tickets[ticket.ID]; !exists {
		r.byReg[reg] = append(r.byReg[reg], ticket.ID)
	} else if prev.RegistrationNumber != reg {
		r.unindex(prev.RegistrationNumber, ticket.ID)
		r.byReg[reg] = append(r.byReg[reg], ticket.ID)
	}

	r.tickets[ticket.ID] = ticket.Clone()
	if ticket.IsOpen() {
		r.open[reg] = ticket.ID
	} else if r.open[reg] == ticket.ID {
		delete(r.open, reg)
	}
	return nil
}

func (r *MemoryTicketRepository) unindex(reg, id string) {
	ids := r.byReg[reg]
	for i, v := range ids {
		if v == id {
			r.byReg[reg] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if r.open[reg] == id {
		delete(r.open, reg)
	}
}

// FindOpenTicketByRegistration returns a copy of the open ticket for reg
func (r *MemoryTicketRepository) FindOpenTicketByRegistration(ctx context.Context, reg string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.open[reg]
	if !ok {
		return nil, domain.ErrTicketNotFound
	}
	return r.tickets[id].Clone(), nil
}

// HasAnyTicketFor reports whether reg has a ticket other than excludeTicketID
func (r *MemoryTicketRepository) HasAnyTicketFor(ctx context.Context, reg, excludeTicketID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.byReg[reg] {
		if id != excludeTicketID {
			return true, nil
		}
	}
	return false, nil
}

// ListOpenTickets returns copies of all open tickets ordered by spot
func (r *MemoryTicketRepository) ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*domain.Ticket, 0, len(r.open))
	for _, id := range r.open {
		out = append(out, r.tickets[id].Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SpotID < out[j].SpotID })
	return out, nil
}

// Count returns the number of stored tickets
func (r *MemoryTicketRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tickets)
}
