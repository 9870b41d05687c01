package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	pkgredis "github.com/Wardenfar/parkingsystem/pkg/redis"
	"github.com/Wardenfar/parkingsystem/pkg/telemetry"
)

//go:embed scripts/save_ticket.lua
var saveTicketScript string

const scriptSaveTicket = "save_ticket"

// save_ticket.lua result codes
const (
	saveVehicleAlreadyParked int64 = 0
	saveTicketAlreadyClosed  int64 = -1
)

const (
	keyTicket      = "parking:ticket:%s"
	keyOpenByReg   = "parking:open:%s"
	keyHistory     = "parking:history:%s"
	keyOpenTickets = "parking:open_tickets"
)

// RedisTicketRepository implements TicketRepository on Redis. Writes go
// through a Lua script so the open-ticket index stays consistent.
type RedisTicketRepository struct {
	client *pkgredis.Client
}

// NewRedisTicketRepository creates a new RedisTicketRepository
func NewRedisTicketRepository(client *pkgredis.Client) *RedisTicketRepository {
	client.RegisterScript(scriptSaveTicket, saveTicketScript)
	return &RedisTicketRepository{client: client}
}

// LoadScripts preloads the Lua scripts into the server cache
func (r *RedisTicketRepository) LoadScripts(ctx context.Context) error {
	return r.client.LoadScripts(ctx)
}

// Save writes the ticket and updates the open and history indexes atomically
func (r *RedisTicketRepository) Save(ctx context.Context, ticket *domain.Ticket) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ticket.save")
	defer span.End()
	span.SetAttributes(
		attribute.String("ticket_id", ticket.ID),
		attribute.Bool("open", ticket.IsOpen()),
	)

	payload, err := json.Marshal(ticket)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket: %w", err)
	}

	reg := ticket.RegistrationNumber
	keys := []string{
		fmt.Sprintf(keyTicket, ticket.ID),
		fmt.Sprintf(keyOpenByReg, reg),
		fmt.Sprintf(keyHistory, reg),
		keyOpenTickets,
	}
	open := "0"
	if ticket.IsOpen() {
		open = "1"
	}

	res, err := r.client.RunScript(ctx, scriptSaveTicket, keys, ticket.ID, string(payload), open).Int64()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to save ticket: %w", err)
	}
	switch res {
	case saveVehicleAlreadyParked:
		return domain.ErrVehicleAlreadyParked
	case saveTicketAlreadyClosed:
		return domain.ErrTicketAlreadyClosed
	}
	return nil
}

// FindOpenTicketByRegistration returns the open ticket for reg
func (r *RedisTicketRepository) FindOpenTicketByRegistration(ctx context.Context, reg string) (*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ticket.find_open")
	defer span.End()

	id, err := r.client.Get(ctx, fmt.Sprintf(keyOpenByReg, reg)).Result()
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get open ticket id: %w", err)
	}

	raw, err := r.client.Get(ctx, fmt.Sprintf(keyTicket, id)).Result()
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return nil, domain.ErrTicketNotFound
		}
		return nil, fmt.Errorf("failed to get ticket: %w", err)
	}
	return decodeTicket(raw)
}

// HasAnyTicketFor reports whether reg has a ticket other than excludeTicketID
func (r *RedisTicketRepository) HasAnyTicketFor(ctx context.Context, reg, excludeTicketID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ticket.has_history")
	defer span.End()

	key := fmt.Sprintf(keyHistory, reg)
	pipe := r.client.TxPipeline()
	card := pipe.SCard(ctx, key)
	member := pipe.SIsMember(ctx, key, excludeTicketID)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to check ticket history: %w", err)
	}

	n := card.Val()
	if excludeTicketID != "" && member.Val() {
		n--
	}
	return n > 0, nil
}

// ListOpenTickets returns every open ticket ordered by spot
func (r *RedisTicketRepository) ListOpenTickets(ctx context.Context) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.ticket.list_open")
	defer span.End()

	ids, err := r.client.SMembers(ctx, keyOpenTickets).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list open ticket ids: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = fmt.Sprintf(keyTicket, id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load open tickets: %w", err)
	}

	tickets := make([]*domain.Ticket, 0, len(values))
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		t, err := decodeTicket(raw)
		if err != nil {
			return nil, err
		}
		tickets = append(tickets, t)
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].SpotID < tickets[j].SpotID })
	return tickets, nil
}

func decodeTicket(raw string) (*domain.Ticket, error) {
	var t domain.Ticket
	if err := json.Unmarshal([]byte(raw), &t); err != nil {
		return nil, fmt.Errorf("failed to decode ticket: %w", err)
	}
	return &t, nil
}
