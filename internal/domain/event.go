package domain

import "time"

// ParkingEventType represents the type of parking event
type ParkingEventType string

const (
	EventVehicleEntered ParkingEventType = "parking.vehicle_entered"
	EventVehicleExited  ParkingEventType = "parking.vehicle_exited"
)

// ParkingEvent is published after an entry or exit has been committed
type ParkingEvent struct {
	EventID            string           `json:"event_id"`
	EventType          ParkingEventType `json:"event_type"`
	OccurredAt         time.Time        `json:"occurred_at"`
	TicketID           string           `json:"ticket_id"`
	RegistrationNumber string           `json:"registration_number"`
	SpotID             int              `json:"spot_id"`
	Category           VehicleCategory  `json:"category"`
	EntryTime          time.Time        `json:"entry_time"`
	ExitTime           *time.Time       `json:"exit_time,omitempty"`
	Price              float64          `json:"price,omitempty"`
	Recurrent          bool             `json:"recurrent"`
}

// NewParkingEvent builds an event from a ticket snapshot
func NewParkingEvent(eventType ParkingEventType, ticket *Ticket, eventID string, recurrent bool, at time.Time) *ParkingEvent {
	return &ParkingEvent{
		EventID:            eventID,
		EventType:          eventType,
		OccurredAt:         at,
		TicketID:           ticket.ID,
		RegistrationNumber: ticket.RegistrationNumber,
		SpotID:             ticket.SpotID,
		Category:           ticket.Category,
		EntryTime:          ticket.EntryTime,
		ExitTime:           ticket.ExitTime,
		Price:              ticket.Price,
		Recurrent:          recurrent,
	}
}

// Key returns the partition key, events of one vehicle stay ordered
func (e *ParkingEvent) Key() string {
	return e.RegistrationNumber
}
