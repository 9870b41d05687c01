package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Wardenfar/parkingsystem/internal/domain"
)

func TestBuildEventMessage_Exited(t *testing.T) {
	ticket := domain.NewTicket("AB-123-CD", domain.ParkingSpot{ID: 2, Category: domain.CategoryCar}, openedAt)
	require.NoError(t, ticket.Close(openedAt.Add(time.Hour), 0.71))
	at := openedAt.Add(time.Hour)

	msg, err := buildEventMessage(context.Background(), "parking-events", "parking-system",
		domain.EventVehicleExited, ticket, true, at)
	require.NoError(t, err)

	assert.Equal(t, "parking-events", msg.Topic)
	assert.Equal(t, []byte("AB-123-CD"), msg.Key)
	assert.Equal(t, at, msg.Timestamp)
	assert.Equal(t, "parking.vehicle_exited", msg.Headers["event_type"])
	assert.Equal(t, "parking-system", msg.Headers["source"])
	assert.Equal(t, "application/json", msg.Headers["content_type"])
	assert.NotEmpty(t, msg.Headers["event_id"])

	var event domain.ParkingEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, msg.Headers["event_id"], event.EventID)
	assert.Equal(t, ticket.ID, event.TicketID)
	assert.Equal(t, 2, event.SpotID)
	assert.Equal(t, 0.71, event.Price)
	assert.True(t, event.Recurrent)
	require.NotNil(t, event.ExitTime)
	assert.True(t, at.Equal(*event.ExitTime))
}

func TestBuildEventMessage_EnteredOmitsExit(t *testing.T) {
	ticket := domain.NewTicket("BIKE-1", domain.ParkingSpot{ID: 4, Category: domain.CategoryBike}, openedAt)

	msg, err := buildEventMessage(context.Background(), "parking-events", "parking-system",
		domain.EventVehicleEntered, ticket, false, openedAt)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(msg.Value, &raw))
	assert.NotContains(t, raw, "exit_time")
	assert.NotContains(t, raw, "price")
	assert.Equal(t, "BIKE", raw["category"])
}

func TestNewKafkaEventPublisher_RequiresBrokers(t *testing.T) {
	_, err := NewKafkaEventPublisher(context.Background(), nil)
	assert.Error(t, err)

	_, err = NewKafkaEventPublisher(context.Background(), &EventPublisherConfig{})
	assert.Error(t, err)
}

func TestNoOpEventPublisher(t *testing.T) {
	p := NewNoOpEventPublisher()
	ticket := domain.NewTicket("AB-123-CD", domain.ParkingSpot{ID: 1, Category: domain.CategoryCar}, openedAt)

	assert.NoError(t, p.PublishVehicleEntered(context.Background(), ticket, false))
	assert.NoError(t, p.PublishVehicleExited(context.Background(), ticket, false))
	assert.NoError(t, p.Close())
}
