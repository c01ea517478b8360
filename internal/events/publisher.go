package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/precios-app/pricingservice/internal/pricing/domain"
)

// Event is the envelope published for every domain event
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Aggregate string                 `json:"aggregate"`
	Data      map[string]interface{} `json:"data"`
	Timestamp int64                  `json:"timestamp"`
	Version   int                    `json:"version"`
}

// Event types
const (
	TypeOrderConfirmed             = "order.confirmed"
	TypeSupplierDiscountRegistered = "supplier_discount.registered"
)

// Publisher defines the interface for publishing pricing domain events
type Publisher interface {
	// PublishOrderConfirmed announces that an order priced cleanly and was
	// confirmed.
	PublishOrderConfirmed(ctx context.Context, order domain.Order, lineCount int) error

	// PublishSupplierDiscountRegistered announces a provider recognition
	// registration for one item price.
	PublishSupplierDiscountRegistered(ctx context.Context, price domain.ItemPrice, pct decimal.Decimal, approver string) error

	// Close closes the publisher
	Close() error
}

// NewEvent creates a new event envelope
func NewEvent(eventType, aggregate string, data map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Aggregate: aggregate,
		Data:      data,
		Timestamp: time.Now().Unix(),
		Version:   1,
	}
}

// NoopPublisher discards events; used when Kafka is disabled and in tests
type NoopPublisher struct{}

func (NoopPublisher) PublishOrderConfirmed(ctx context.Context, order domain.Order, lineCount int) error {
	return nil
}

func (NoopPublisher) PublishSupplierDiscountRegistered(ctx context.Context, price domain.ItemPrice, pct decimal.Decimal, approver string) error {
	return nil
}

func (NoopPublisher) Close() error { return nil }

// KafkaPublisher publishes events to a Kafka topic via a sarama sync
// producer. Messages are keyed by aggregate ID so one aggregate's events
// stay ordered within a partition.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *zap.Logger
}

// NewKafkaPublisher creates a Kafka publisher connected to the given brokers
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Kafka producer: %w", err)
	}

	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}, nil
}

// NewKafkaPublisherWithProducer wraps an existing producer (used in tests
// with sarama's mock producer).
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topic: topic, logger: logger}
}

func (p *KafkaPublisher) publish(ctx context.Context, event *Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Aggregate),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to publish event %s: %w", event.ID, err)
	}

	p.logger.Info("Event published",
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
		zap.String("aggregate", event.Aggregate),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))

	return nil
}

// PublishOrderConfirmed implements Publisher for KafkaPublisher
func (p *KafkaPublisher) PublishOrderConfirmed(ctx context.Context, order domain.Order, lineCount int) error {
	event := NewEvent(TypeOrderConfirmed, order.ID.String(), map[string]interface{}{
		"order_id":    order.ID.String(),
		"company_id":  order.CompanyID.String(),
		"branch_id":   order.BranchID.String(),
		"gross_total": order.GrossTotal.String(),
		"line_count":  lineCount,
	})
	return p.publish(ctx, event)
}

// PublishSupplierDiscountRegistered implements Publisher for KafkaPublisher
func (p *KafkaPublisher) PublishSupplierDiscountRegistered(ctx context.Context, price domain.ItemPrice, pct decimal.Decimal, approver string) error {
	event := NewEvent(TypeSupplierDiscountRegistered, price.ID.String(), map[string]interface{}{
		"item_price_id":  price.ID.String(),
		"list_id":        price.ListID.String(),
		"item_id":        price.ItemID.String(),
		"recognized_pct": pct.String(),
		"approver":       approver,
	})
	return p.publish(ctx, event)
}

// Close closes the underlying producer
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
