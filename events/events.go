// Package events publishes order lifecycle events after they are committed.
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"food-marketplace-api/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

type EventType string

const (
	OrderPlaced        EventType = "order.placed"
	OrderStatusChanged EventType = "order.status_changed"
	OrderAssigned      EventType = "order.assigned"
	OrderRated         EventType = "order.rated"
)

type OrderEvent struct {
	ID                string             `json:"id"`
	Type              EventType          `json:"type"`
	OrderID           uint               `json:"order_id"`
	RestaurantID      uint               `json:"restaurant_id"`
	CustomerID        uint               `json:"customer_id"`
	DeliveryPartnerID *uint              `json:"delivery_partner_id,omitempty"`
	FromStatus        models.OrderStatus `json:"from_status,omitempty"`
	Status            models.OrderStatus `json:"status"`
	ActorID           uint               `json:"actor_id"`
	ActorRole         models.UserRole    `json:"actor_role"`
	Note              string             `json:"note,omitempty"`
	Total             float64            `json:"total"`
	OccurredAt        time.Time          `json:"occurred_at"`
}

// NewOrderEvent snapshots order as an event of the given type raised by actor.
func NewOrderEvent(t EventType, order *models.Order, actor models.Actor) OrderEvent {
	return OrderEvent{
		ID:                uuid.NewString(),
		Type:              t,
		OrderID:           order.ID,
		RestaurantID:      order.RestaurantID,
		CustomerID:        order.CustomerID,
		DeliveryPartnerID: order.DeliveryPartnerID,
		Status:            order.OrderStatus,
		ActorID:           actor.UserID,
		ActorRole:         actor.Role,
		Total:             order.Total,
		OccurredAt:        time.Now().UTC(),
	}
}

type Publisher interface {
	Publish(ctx context.Context, e OrderEvent) error
	Close() error
}

// KafkaPublisher writes one JSON message per event, keyed by order id so an order's events stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, log zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Error().Msgf("kafka writer: "+msg, args...)
		}),
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e OrderEvent) error {
	msg, err := toMessage(e)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessage(e OrderEvent) (kafka.Message, error) {
	value, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatUint(uint64(e.OrderID), 10)),
		Value: value,
		Time:  e.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(e.Type)},
		},
	}, nil
}

// LogPublisher is used when no broker is configured.
type LogPublisher struct {
	Log zerolog.Logger
}

func (p LogPublisher) Publish(_ context.Context, e OrderEvent) error {
	p.Log.Info().
		Str("event_id", e.ID).
		Str("event", string(e.Type)).
		Uint("order_id", e.OrderID).
		Str("status", string(e.Status)).
		Uint("actor_id", e.ActorID).
		Msg("order event")
	return nil
}

func (LogPublisher) Close() error { return nil }
