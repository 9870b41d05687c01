package dto

import (
	"time"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/internal/service"
)

// EntryRequest represents request to check a vehicle in
type EntryRequest struct {
	RegistrationNumber string `json:"registration_number" binding:"required"`
	VehicleType        string `json:"vehicle_type" binding:"required"`
}

// EntryResponse represents response after a vehicle entered
type EntryResponse struct {
	TicketID    string    `json:"ticket_id"`
	SpotNumber  int       `json:"spot_number"`
	VehicleType string    `json:"vehicle_type"`
	EntryTime   time.Time `json:"entry_time"`
	Recurrent   bool      `json:"recurrent"`
}

// ExitRequest represents request to check a vehicle out
type ExitRequest struct {
	RegistrationNumber string `json:"registration_number" binding:"required"`
}

// ExitResponse represents response after a vehicle left
type ExitResponse struct {
	TicketID        string    `json:"ticket_id"`
	SpotNumber      int       `json:"spot_number"`
	VehicleType     string    `json:"vehicle_type"`
	EntryTime       time.Time `json:"entry_time"`
	ExitTime        time.Time `json:"exit_time"`
	Price           float64   `json:"price"`
	DiscountApplied bool      `json:"discount_applied"`
}

// TicketResponse represents a ticket in API response
type TicketResponse struct {
	ID                 string     `json:"id"`
	RegistrationNumber string     `json:"registration_number"`
	SpotNumber         int        `json:"spot_number"`
	VehicleType        string     `json:"vehicle_type"`
	EntryTime          time.Time  `json:"entry_time"`
	ExitTime           *time.Time `json:"exit_time,omitempty"`
	Price              float64    `json:"price"`
}

// PoolResponse is the availability of one category pool
type PoolResponse struct {
	VehicleType string `json:"vehicle_type"`
	Total       int    `json:"total"`
	Available   int    `json:"available"`
	Occupied    int    `json:"occupied"`
}

// SpotsResponse lists availability per category
type SpotsResponse struct {
	Pools []PoolResponse `json:"pools"`
}

// FareQuoteRequest represents request to price a stay
type FareQuoteRequest struct {
	VehicleType string     `json:"vehicle_type" binding:"required"`
	EntryTime   *time.Time `json:"entry_time"`
	ExitTime    *time.Time `json:"exit_time"`
	Recurrent   bool       `json:"recurrent"`
}

// FareQuoteResponse is the computed fare
type FareQuoteResponse struct {
	Price float64 `json:"price"`
}

// ToServiceRequest converts the body into a service request
func (r *EntryRequest) ToServiceRequest() (service.EntryRequest, error) {
	category, err := domain.ParseVehicleCategory(r.VehicleType)
	if err != nil {
		return service.EntryRequest{}, err
	}
	return service.EntryRequest{
		RegistrationNumber: r.RegistrationNumber,
		Category:           category,
	}, nil
}

// ToFareQuote converts the body into a quote. Missing times stay zero, which the calculator rejects.
func (r *FareQuoteRequest) ToFareQuote() (service.FareQuote, error) {
	category, err := domain.ParseVehicleCategory(r.VehicleType)
	if err != nil {
		return service.FareQuote{}, err
	}
	q := service.FareQuote{Category: category, Recurrent: r.Recurrent}
	if r.EntryTime != nil {
		q.EntryTime = *r.EntryTime
	}
	if r.ExitTime != nil {
		q.ExitTime = *r.ExitTime
	}
	return q, nil
}

// FromEntryResult converts an entry result to EntryResponse
func FromEntryResult(res *service.EntryResult) *EntryResponse {
	return &EntryResponse{
		TicketID:    res.Ticket.ID,
		SpotNumber:  res.Ticket.SpotID,
		VehicleType: res.Ticket.Category.String(),
		EntryTime:   res.Ticket.EntryTime,
		Recurrent:   res.Recurrent,
	}
}

// FromExitResult converts an exit result to ExitResponse
func FromExitResult(res *service.ExitResult) *ExitResponse {
	out := &ExitResponse{
		TicketID:        res.Ticket.ID,
		SpotNumber:      res.Ticket.SpotID,
		VehicleType:     res.Ticket.Category.String(),
		EntryTime:       res.Ticket.EntryTime,
		Price:           res.Price,
		DiscountApplied: res.DiscountApplied,
	}
	if res.Ticket.ExitTime != nil {
		out.ExitTime = *res.Ticket.ExitTime
	}
	return out
}

// FromTicket converts domain Ticket to TicketResponse
func FromTicket(t *domain.Ticket) *TicketResponse {
	return &TicketResponse{
		ID:                 t.ID,
		RegistrationNumber: t.RegistrationNumber,
		SpotNumber:         t.SpotID,
		VehicleType:        t.Category.String(),
		EntryTime:          t.EntryTime,
		ExitTime:           t.ExitTime,
		Price:              t.Price,
	}
}

// FromPoolStatuses converts allocator snapshots to SpotsResponse
func FromPoolStatuses(pools []domain.PoolStatus) *SpotsResponse {
	out := &SpotsResponse{Pools: make([]PoolResponse, 0, len(pools))}
	for _, p := range pools {
		out.Pools = append(out.Pools, PoolResponse{
			VehicleType: p.Category.String(),
			Total:       p.Total,
			Available:   p.Available,
			Occupied:    p.Occupied(),
		})
	}
	return out
}
