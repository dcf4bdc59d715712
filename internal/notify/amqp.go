package notify

import (
	"context"
	"fmt"

	"github.com/Freeeeeet/room_scheduler/internal/model"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// publisher часть *amqp.Channel для публикации
type publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQP публикует события в topic exchange; routing key = тип события
type AMQP struct {
	ch       publisher
	exchange string
}

// NewAMQP объявляет durable topic exchange на канале
func NewAMQP(ch *amqp.Channel, exchange string) (*AMQP, error) {
	err := ch.ExchangeDeclare(
		exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	return newAMQP(ch, exchange), nil
}

func newAMQP(ch publisher, exchange string) *AMQP {
	return &AMQP{ch: ch, exchange: exchange}
}

func (a *AMQP) Notify(ctx context.Context, event model.BookingEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal booking event: %w", err)
	}

	err = a.ch.PublishWithContext(ctx, a.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    event.OccurredAt,
		Type:         string(event.Type),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
