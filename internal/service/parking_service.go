package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/internal/fare"
	"github.com/Wardenfar/parkingsystem/internal/metrics"
	"github.com/Wardenfar/parkingsystem/internal/repository"
	"github.com/Wardenfar/parkingsystem/pkg/clock"
	"github.com/Wardenfar/parkingsystem/pkg/logger"
	"github.com/Wardenfar/parkingsystem/pkg/telemetry"
)

// SpotAllocator is the part of the allocator the workflows drive
type SpotAllocator interface {
	Assign(category domain.VehicleCategory) (domain.ParkingSpot, error)
	Release(spotID int) error
	Occupy(spotID int) error
	Category(spotID int) (domain.VehicleCategory, error)
	Snapshot() []domain.PoolStatus
}

// EntryRequest identifies a vehicle at the entrance
type EntryRequest struct {
	RegistrationNumber string
	Category           domain.VehicleCategory
}

// EntryResult is the outcome of an admitted vehicle
type EntryResult struct {
	Ticket *domain.Ticket
	// Recurrent is true when the vehicle already had tickets before this one
	Recurrent bool
}

// ExitRequest identifies a vehicle at the exit
type ExitRequest struct {
	RegistrationNumber string
}

// ExitResult is the outcome of a checked-out vehicle
type ExitResult struct {
	Ticket          *domain.Ticket
	Price           float64
	// DiscountApplied is true when a recurrent vehicle paid a reduced fare
	DiscountApplied bool
}

// FareQuote is a what-if fare computation
type FareQuote struct {
	Category  domain.VehicleCategory
	EntryTime time.Time
	ExitTime  time.Time
	Recurrent bool
}

// ParkingService drives the entry and exit workflows
type ParkingService interface {
	// ProcessIncomingVehicle assigns a spot and opens a ticket
	ProcessIncomingVehicle(ctx context.Context, req EntryRequest) (*EntryResult, error)

	// ProcessExitingVehicle closes the open ticket, prices it and frees the spot
	ProcessExitingVehicle(ctx context.Context, req ExitRequest) (*ExitResult, error)

	// GetOpenTicket returns the open ticket of a registration
	GetOpenTicket(ctx context.Context, reg string) (*domain.Ticket, error)

	// Availability returns per-category totals and free counts
	Availability() []domain.PoolStatus

	// QuoteFare prices an arbitrary stay without touching state
	QuoteFare(q FareQuote) (float64, error)

	// RestoreOccupancy marks the spots of open tickets as occupied
	RestoreOccupancy(ctx context.Context) (int, error)
}

// ParkingServiceConfig contains configuration for parking service
type ParkingServiceConfig struct {
	Clock               clock.Clock
	Logger              *logger.Logger
	EventPublisher      EventPublisher
	EventPublishTimeout time.Duration
}

// parkingService implements ParkingService
type parkingService struct {
	tickets      repository.TicketRepository
	spots        SpotAllocator
	fares        *fare.Calculator
	clock        clock.Clock
	log          *logger.Logger
	publisher    EventPublisher
	publishLimit time.Duration
}

// NewParkingService creates a new parking service
func NewParkingService(
	tickets repository.TicketRepository,
	spots SpotAllocator,
	fares *fare.Calculator,
	cfg *ParkingServiceConfig,
) ParkingService {
	s := &parkingService{
		tickets:      tickets,
		spots:        spots,
		fares:        fares,
		clock:        clock.NewSystem(),
		log:          logger.Get(),
		publisher:    NewNoOpEventPublisher(),
		publishLimit: 3 * time.Second,
	}
	if s.fares == nil {
		s.fares = fare.NewCalculator()
	}
	if cfg != nil {
		if cfg.Clock != nil {
			s.clock = cfg.Clock
		}
		if cfg.Logger != nil {
			s.log = cfg.Logger
		}
		if cfg.EventPublisher != nil {
			s.publisher = cfg.EventPublisher
		}
		if cfg.EventPublishTimeout > 0 {
			s.publishLimit = cfg.EventPublishTimeout
		}
	}
	return s
}

// ProcessIncomingVehicle admits a vehicle. No ticket is created when the pool
// is full, and the spot is handed back when the ticket cannot be stored.
func (s *parkingService) ProcessIncomingVehicle(ctx context.Context, req EntryRequest) (*EntryResult, error) {
	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "service.parking.process_incoming")
	defer span.End()

	reg, err := domain.NormalizeRegistration(req.RegistrationNumber)
	if err != nil {
		return nil, s.rejectEntry(ctx, span, req.Category, err)
	}
	if !req.Category.IsValid() {
		return nil, s.rejectEntry(ctx, span, req.Category,
			fmt.Errorf("%w: %q", domain.ErrUnknownCategory, string(req.Category)))
	}
	span.SetAttributes(
		attribute.String("registration_number", reg),
		attribute.String("vehicle_type", req.Category.String()),
	)

	if _, err := s.tickets.FindOpenTicketByRegistration(ctx, reg); err == nil {
		return nil, s.rejectEntry(ctx, span, req.Category, domain.ErrVehicleAlreadyParked)
	} else if !errors.Is(err, domain.ErrTicketNotFound) {
		return nil, s.rejectEntry(ctx, span, req.Category, fmt.Errorf("failed to check open ticket: %w", err))
	}

	recurrent, err := s.tickets.HasAnyTicketFor(ctx, reg, "")
	if err != nil {
		return nil, s.rejectEntry(ctx, span, req.Category, fmt.Errorf("failed to check ticket history: %w", err))
	}

	spot, err := s.spots.Assign(req.Category)
	if err != nil {
		return nil, s.rejectEntry(ctx, span, req.Category, err)
	}
	span.SetAttributes(attribute.Int("spot_number", spot.ID))

	ticket := domain.NewTicket(reg, spot, s.clock.Now())
	if err := s.tickets.Save(ctx, ticket); err != nil {
		if relErr := s.spots.Release(spot.ID); relErr != nil {
			s.log.Error("Failed to release spot after ticket write failure",
				zap.Int("spot_number", spot.ID),
				zap.String("registration_number", reg),
				zap.Error(relErr),
			)
		}
		if !domain.IsInvalidStateError(err) {
			err = fmt.Errorf("failed to save ticket: %w", err)
		}
		return nil, s.rejectEntry(ctx, span, req.Category, err)
	}

	s.publish(ctx, domain.EventVehicleEntered, ticket, recurrent)
	metrics.RecordEntry(ctx, req.Category.String(), recurrent, time.Since(started).Seconds())
	span.SetStatus(codes.Ok, "")

	return &EntryResult{Ticket: ticket.Clone(), Recurrent: recurrent}, nil
}

func (s *parkingService) rejectEntry(ctx context.Context, span trace.Span, category domain.VehicleCategory, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.RecordEntryRejected(ctx, category.String(), reasonOf(err))
	return err
}

// ProcessExitingVehicle checks a vehicle out. The closed ticket is stored
// before the spot is released, so a failed write leaves both untouched.
func (s *parkingService) ProcessExitingVehicle(ctx context.Context, req ExitRequest) (*ExitResult, error) {
	started := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "service.parking.process_exiting")
	defer span.End()

	reg, err := domain.NormalizeRegistration(req.RegistrationNumber)
	if err != nil {
		return nil, s.rejectExit(ctx, span, err)
	}
	span.SetAttributes(attribute.String("registration_number", reg))

	ticket, err := s.tickets.FindOpenTicketByRegistration(ctx, reg)
	if err != nil {
		if !errors.Is(err, domain.ErrTicketNotFound) {
			err = fmt.Errorf("failed to load open ticket: %w", err)
		}
		return nil, s.rejectExit(ctx, span, err)
	}
	span.SetAttributes(
		attribute.String("ticket_id", ticket.ID),
		attribute.Int("spot_number", ticket.SpotID),
	)

	exitTime := s.clock.Now()

	recurrent, err := s.tickets.HasAnyTicketFor(ctx, reg, ticket.ID)
	if err != nil {
		return nil, s.rejectExit(ctx, span, fmt.Errorf("failed to check ticket history: %w", err))
	}

	category, err := s.spots.Category(ticket.SpotID)
	if err != nil {
		return nil, s.rejectExit(ctx, span, err)
	}

	closed := ticket.Clone()
	closed.Category = category
	if err := closed.Close(exitTime, 0); err != nil {
		return nil, s.rejectExit(ctx, span, err)
	}
	if err := s.fares.ApplyToTicket(closed, recurrent); err != nil {
		return nil, s.rejectExit(ctx, span, err)
	}

	// a ticket already closed by a concurrent exit is rejected here, before any release
	if err := s.tickets.Save(ctx, closed); err != nil {
		if !errors.Is(err, domain.ErrTicketAlreadyClosed) {
			err = fmt.Errorf("failed to save ticket: %w", err)
		}
		return nil, s.rejectExit(ctx, span, err)
	}

	if err := s.spots.Release(closed.SpotID); err != nil {
		s.log.Error("Ticket closed but spot release failed",
			zap.String("ticket_id", closed.ID),
			zap.Int("spot_number", closed.SpotID),
			zap.Error(err),
		)
		return nil, s.rejectExit(ctx, span, fmt.Errorf("ticket %s closed, spot %d: %w", closed.ID, closed.SpotID, err))
	}

	s.publish(ctx, domain.EventVehicleExited, closed, recurrent)
	metrics.RecordExit(ctx, category.String(), recurrent, closed.Price,
		closed.Duration(exitTime).Hours(), time.Since(started).Seconds())
	// a free stay has nothing to discount
	discounted := recurrent && closed.Price > 0
	span.SetAttributes(
		attribute.Float64("price", closed.Price),
		attribute.Bool("discount_applied", discounted),
	)
	span.SetStatus(codes.Ok, "")

	return &ExitResult{
		Ticket:          closed,
		Price:           closed.Price,
		DiscountApplied: discounted,
	}, nil
}

func (s *parkingService) rejectExit(ctx context.Context, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	metrics.RecordExitRejected(ctx, reasonOf(err))
	return err
}

// GetOpenTicket returns the open ticket of a registration
func (s *parkingService) GetOpenTicket(ctx context.Context, reg string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.get_open_ticket")
	defer span.End()

	reg, err := domain.NormalizeRegistration(reg)
	if err != nil {
		return nil, err
	}
	ticket, err := s.tickets.FindOpenTicketByRegistration(ctx, reg)
	if err != nil {
		if !errors.Is(err, domain.ErrTicketNotFound) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	return ticket, nil
}

// Availability returns per-category totals and free counts
func (s *parkingService) Availability() []domain.PoolStatus {
	return s.spots.Snapshot()
}

// QuoteFare prices an arbitrary stay
func (s *parkingService) QuoteFare(q FareQuote) (float64, error) {
	return s.fares.Compute(q.EntryTime, q.ExitTime, q.Category, q.Recurrent)
}

// RestoreOccupancy re-occupies the spot of every open ticket. Tickets that
// point at an unknown or already occupied spot are logged and skipped.
func (s *parkingService) RestoreOccupancy(ctx context.Context) (int, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.parking.restore_occupancy")
	defer span.End()

	open, err := s.tickets.ListOpenTickets(ctx)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return 0, fmt.Errorf("failed to list open tickets: %w", err)
	}

	restored := 0
	perCategory := make(map[domain.VehicleCategory]int64)
	for _, t := range open {
		if err := s.spots.Occupy(t.SpotID); err != nil {
			s.log.Error("Open ticket references an unusable spot",
				zap.String("ticket_id", t.ID),
				zap.String("registration_number", t.RegistrationNumber),
				zap.Int("spot_number", t.SpotID),
				zap.Error(err),
			)
			continue
		}
		restored++
		perCategory[t.Category]++
	}
	for cat, n := range perCategory {
		metrics.RecordRestored(ctx, cat.String(), n)
	}

	span.SetAttributes(attribute.Int("restored", restored))
	return restored, nil
}

func (s *parkingService) publish(ctx context.Context, eventType domain.ParkingEventType, ticket *domain.Ticket, recurrent bool) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishLimit)
	defer cancel()

	var err error
	switch eventType {
	case domain.EventVehicleEntered:
		err = s.publisher.PublishVehicleEntered(pubCtx, ticket, recurrent)
	case domain.EventVehicleExited:
		err = s.publisher.PublishVehicleExited(pubCtx, ticket, recurrent)
	}
	if err != nil {
		s.log.Warn("Failed to publish parking event",
			zap.String("event_type", string(eventType)),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err),
		)
		metrics.RecordEventFailure(ctx, string(eventType))
	}
}

// reasonOf maps an error to a low-cardinality metric label
func reasonOf(err error) string {
	switch {
	case domain.IsNoCapacityError(err):
		return "parking_full"
	case domain.IsNotFoundError(err):
		return "not_found"
	case errors.Is(err, domain.ErrVehicleAlreadyParked):
		return "already_parked"
	case domain.IsInvalidInputError(err):
		return "invalid_input"
	case domain.IsInvalidStateError(err):
		return "invalid_state"
	default:
		return "internal"
	}
}
