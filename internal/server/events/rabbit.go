package events

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type RabbitPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
}

// NewRabbitPublisher dials url and declares a durable topic exchange. Events
// are routed by their type, e.g. "invitation.accepted".
func NewRabbitPublisher(url, exchange string) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &RabbitPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (r *RabbitPublisher) PublishInvitation(ctx context.Context, e Invitation) error {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return r.ch.PublishWithContext(ctx, r.exchange, e.Type, false, false, amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		Timestamp:    e.OccurredAt,
		DeliveryMode: amqp.Persistent,
		MessageId:    e.InvitationID + ":" + e.Type,
	})
}

func (r *RabbitPublisher) Close() error {
	_ = r.ch.Close()
	if r.conn != nil {
		return r.conn.Close()
	}
	return nil
}
