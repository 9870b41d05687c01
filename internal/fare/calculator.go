// Package fare holds the parking fare rule set.
//
// A stay is billed by the fractional hour at the category rate,
// after the first half hour which is free. Returning customers get 5% off
// the rated amount. Amounts are rounded to cents, halves away from zero.
package fare

import (
	"fmt"
	"math"
	"time"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

const (
	CarRatePerHour  = 1.5
	BikeRatePerHour = 1.0

	// FreeThresholdHours is deducted from every stay before rating
	FreeThresholdHours = 0.5

	// RecurrentDiscount is applied after rating
	RecurrentDiscount = 0.05
)

// Calculator computes fares. The zero value is ready to use and safe for concurrent calls.
type Calculator struct{}

// NewCalculator creates a fare calculator
func NewCalculator() *Calculator {
	return &Calculator{}
}

// RatePerHour returns the hourly rate of a category
func RatePerHour(category domain.VehicleCategory) (float64, error) {
	switch category {
	case domain.CategoryCar:
		return CarRatePerHour, nil
	case domain.CategoryBike:
		return BikeRatePerHour, nil
	default:
		return 0, fmt.Errorf("%w: %q", domain.ErrUnknownCategory, string(category))
	}
}

// Compute returns the amount owed for a stay between entry and exit
func (c *Calculator) Compute(entry, exit time.Time, category domain.VehicleCategory, recurrent bool) (float64, error) {
	if entry.IsZero() {
		return 0, domain.ErrMissingEntryTime
	}
	if exit.IsZero() {
		return 0, domain.ErrMissingExitTime
	}
	if exit.Before(entry) {
		return 0, fmt.Errorf("%w: entry %s, exit %s", domain.ErrExitBeforeEntry,
			entry.Format(time.RFC3339), exit.Format(time.RFC3339))
	}

	rate, err := RatePerHour(category)
	if err != nil {
		return 0, err
	}

	billable := math.Max(exit.Sub(entry).Hours()-FreeThresholdHours, 0)
	price := billable * rate
	if recurrent {
		price *= 1 - RecurrentDiscount
	}

	return roundCents(price), nil
}

// ApplyToTicket computes the fare of a ticket that has an exit time and stores it as the ticket price
func (c *Calculator) ApplyToTicket(ticket *domain.Ticket, recurrent bool) error {
	if ticket == nil || ticket.ExitTime == nil {
		return domain.ErrMissingExitTime
	}

	price, err := c.Compute(ticket.EntryTime, *ticket.ExitTime, ticket.Category, recurrent)
	if err != nil {
		return err
	}
	ticket.Price = price
	return nil
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
