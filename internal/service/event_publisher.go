package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Wardenfar/parkingsystem/internal/domain"
	"github.com/Wardenfar/parkingsystem/pkg/kafka"
	"github.com/Wardenfar/parkingsystem/pkg/telemetry"
)

// EventPublisher announces committed entries and exits
type EventPublisher interface {
	// PublishVehicleEntered publishes a vehicle entered event
	PublishVehicleEntered(ctx context.Context, ticket *domain.Ticket, recurrent bool) error

	// PublishVehicleExited publishes a vehicle exited event
	PublishVehicleExited(ctx context.Context, ticket *domain.Ticket, recurrent bool) error

	// Close closes the event publisher
	Close() error
}

// KafkaEventPublisher implements EventPublisher using Kafka
type KafkaEventPublisher struct {
	producer    *kafka.Producer
	topic       string
	serviceName string
	now         func() time.Time
}

// EventPublisherConfig contains configuration for the event publisher
type EventPublisherConfig struct {
	Brokers     []string
	Topic       string
	ServiceName string
	ClientID    string
}

// NewKafkaEventPublisher creates a new Kafka event publisher
func NewKafkaEventPublisher(ctx context.Context, cfg *EventPublisherConfig) (*KafkaEventPublisher, error) {
	if cfg == nil {
		return nil, fmt.Errorf("event publisher config is required")
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}

	topic := cfg.Topic
	if topic == "" {
		topic = "parking-events"
	}
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "parking-system"
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = serviceName + "-producer"
	}

	producer, err := kafka.NewProducer(ctx, &kafka.ProducerConfig{
		Brokers:       cfg.Brokers,
		ClientID:      clientID,
		MaxRetries:    3,
		RetryInterval: 2 * time.Second,
		LingerMs:      5,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return &KafkaEventPublisher{
		producer:    producer,
		topic:       topic,
		serviceName: serviceName,
		now:         time.Now,
	}, nil
}

// PublishVehicleEntered publishes a vehicle entered event
func (p *KafkaEventPublisher) PublishVehicleEntered(ctx context.Context, ticket *domain.Ticket, recurrent bool) error {
	return p.publishEvent(ctx, domain.EventVehicleEntered, ticket, recurrent)
}

// PublishVehicleExited publishes a vehicle exited event
func (p *KafkaEventPublisher) PublishVehicleExited(ctx context.Context, ticket *domain.Ticket, recurrent bool) error {
	return p.publishEvent(ctx, domain.EventVehicleExited, ticket, recurrent)
}

// Close closes the event publisher
func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		p.producer.Close()
	}
	return nil
}

func (p *KafkaEventPublisher) publishEvent(ctx context.Context, eventType domain.ParkingEventType, ticket *domain.Ticket, recurrent bool) error {
	msg, err := buildEventMessage(ctx, p.topic, p.serviceName, eventType, ticket, recurrent, p.now())
	if err != nil {
		return err
	}
	if err := p.producer.Produce(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", eventType, err)
	}
	return nil
}

func buildEventMessage(ctx context.Context, topic, source string, eventType domain.ParkingEventType, ticket *domain.Ticket, recurrent bool, at time.Time) (*kafka.Message, error) {
	eventID := uuid.New().String()
	event := domain.NewParkingEvent(eventType, ticket, eventID, recurrent, at)

	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}

	headers := telemetry.InjectContext(ctx)
	headers["event_type"] = string(eventType)
	headers["event_id"] = eventID
	headers["source"] = source
	headers["content_type"] = "application/json"

	return &kafka.Message{
		Topic:     topic,
		Key:       []byte(event.Key()),
		Value:     value,
		Headers:   headers,
		Timestamp: at,
	}, nil
}

// NoOpEventPublisher drops every event
type NoOpEventPublisher struct{}

// NewNoOpEventPublisher creates a new no-op event publisher
func NewNoOpEventPublisher() *NoOpEventPublisher {
	return &NoOpEventPublisher{}
}

func (p *NoOpEventPublisher) PublishVehicleEntered(ctx context.Context, ticket *domain.Ticket, recurrent bool) error {
	return nil
}

func (p *NoOpEventPublisher) PublishVehicleExited(ctx context.Context, ticket *domain.Ticket, recurrent bool) error {
	return nil
}

func (p *NoOpEventPublisher) Close() error {
	return nil
}
