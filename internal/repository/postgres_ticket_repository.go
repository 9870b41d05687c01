package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/pkg/database"
	"github.com/Wardenfar/parkingsystem/pkg/telemetry"
)

const openTicketIndex = "ticket_open_vehicle_uidx"

// PostgresTicketRepository implements TicketRepository using PostgreSQL.
// The spot's available flag is written in the same transaction as the ticket.
type PostgresTicketRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresTicketRepository creates a new PostgresTicketRepository
func NewPostgresTicketRepository(pool *pgxpool.Pool) *PostgresTicketRepository {
	return &PostgresTicketRepository{pool: pool}
}

// Save upserts the ticket and flips the spot's availability. The upsert only
// matches a stored ticket that is still open, so a closed ticket is final.
func (r *PostgresTicketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket_id", ticket.ID),
		attribute.Int("spot_number", ticket.SpotID),
		attribute.Bool("open", ticket.IsOpen()),
	)

	err := database.InTx(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			INSERT INTO ticket (
				id, parking_number, vehicle_reg_number, vehicle_type, price, in_time, out_time
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (id) DO UPDATE SET
				parking_number = EXCLUDED.parking_number,
				vehicle_reg_number = EXCLUDED.vehicle_reg_number,
				vehicle_type = EXCLUDED.vehicle_type,
				price = EXCLUDED.price,
				in_time = EXCLUDED.in_time,
				out_time = EXCLUDED.out_time
			WHERE ticket.out_time IS NULL
		`,
			ticket.ID,
			ticket.SpotID,
			ticket.RegistrationNumber,
			ticket.Category.String(),
			ticket.Price,
			ticket.EntryTime,
			ticket.ExitTime,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrTicketAlreadyClosed
		}

		_, err = tx.Exec(ctx, `UPDATE parking SET available = $2 WHERE number = $1`,
			ticket.SpotID, !ticket.IsOpen())
		return err
	})
	if err != nil {
		err = translateTicketWriteError(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func translateTicketWriteError(err error) error {
	if errors.Is(err, domain.ErrTicketAlreadyClosed) {
		return err
	}
	if name, ok := database.ConstraintViolation(err, database.CodeUniqueViolation); ok && name == openTicketIndex {
		return domain.ErrVehicleAlreadyParked
	}
	if _, ok := database.ConstraintViolation(err, database.CodeForeignKeyViolation); ok {
		return domain.ErrUnknownSpot
	}
	return fmt.Errorf("failed to save ticket: %w", err)
}

// FindOpenTicketByRegistration returns the open ticket for reg
func (r *PostgresTicketRepository) FindOpenTicketByRegistration(ctx context.Context, reg string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.find_open")
	defer span.End()

	row := r.pool.QueryRow(ctx, `
		SELECT id::text, parking_number, vehicle_reg_number, vehicle_type, price, in_time, out_time
		FROM ticket
		WHERE vehicle_reg_number = $1 AND out_time IS NULL
	`, reg)

	ticket, err := scanTicket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTicketNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("failed to get open ticket: %w", err)
	}
	return ticket, nil
}

// HasAnyTicketFor reports whether reg has a ticket other than excludeTicketID
func (r *PostgresTicketRepository) HasAnyTicketFor(ctx context.Context, reg, excludeTicketID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.has_history")
	defer span.End()

	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM ticket
			WHERE vehicle_reg_number = $1 AND ($2::text = '' OR id::text <> $2::text)
		)
	`, reg, excludeTicketID).Scan(&exists)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("failed to check ticket history: %w", err)
	}
	return exists, nil
}

// ListOpenTickets returns every open ticket ordered by spot
func (r *PostgresTicketRepository) ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ticket.list_open")
	defer span.End()

	rows, err := r.pool.Query(ctx, `
		SELECT id::text, parking_number, vehicle_reg_number, vehicle_type, price, in_time, out_time
		FROM ticket
		WHERE out_time IS NULL
		ORDER BY parking_number
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}

func scanTicket(row pgx.Row) (*domain.Ticket, error) {
	var (
		t        domain.Ticket
		category string
		exitTime *time.Time
	)
	if err := row.Scan(
		&t.ID,
		&t.SpotID,
		&t.RegistrationNumber,
		&category,
		&t.Price,
		&t.EntryTime,
		&exitTime,
	); err != nil {
		return nil, err
	}
	t.Category = domain.VehicleCategory(category)
	t.EntryTime = t.EntryTime.UTC()
	if exitTime != nil {
		exit := exitTime.UTC()
		t.ExitTime = &exit
	}
	return &t, nil
}
