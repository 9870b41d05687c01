package domain

import (
	"time"

	"github.com/google/uuid"
)

// Ticket records one stay of a vehicle in a spot
type Ticket struct {
	ID                 string          `json:"id"`
	RegistrationNumber string          `json:"registration_number"`
	SpotID             int             `json:"spot_id"`
	Category           VehicleCategory `json:"category"`
	EntryTime          time.Time       `json:"entry_time"`
	ExitTime           *time.Time      `json:"exit_time,omitempty"`
	Price              float64         `json:"price"`
}

// NewTicket creates an open ticket
func NewTicket(reg string, spot ParkingSpot, entry time.Time) *Ticket {
	return &Ticket{
		ID:                 uuid.New().String(),
		RegistrationNumber: reg,
		SpotID:             spot.ID,
		Category:           spot.Category,
		EntryTime:          entry,
	}
}

// IsOpen reports whether the vehicle is still parked
func (t *Ticket) IsOpen() bool {
	return t.ExitTime == nil
}

// Close sets exit time and price. A ticket is closed at most once.
func (t *Ticket) Close(exit time.Time, price float64) error {
	if !t.IsOpen() {
		return ErrTicketAlreadyClosed
	}
	t.ExitTime = &exit
	t.Price = price
	return nil
}

// Clone returns a deep copy
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.ExitTime != nil {
		exit := *t.ExitTime
		c.ExitTime = &exit
	}
	return &c
}

// Duration returns the parked duration, up to now for open tickets
func (t *Ticket) Duration(now time.Time) time.Duration {
	if t.ExitTime != nil {
		return t.ExitTime.Sub(t.EntryTime)
	}
	return now.Sub(t.EntryTime)
}
