// Package amqpad publishes booking events to RabbitMQ. Each event type goes
// to a durable queue of the same name on the default exchange.
package amqpad

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"

	"hotel_booking/internal/adapters/observability"
	"hotel_booking/internal/domain"
)

// channel is the subset of *amqp.Channel used for publishing.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type dialFunc func(url string) (channel, func() error, error)

type Publisher struct {
	url  string
	dial dialFunc
}

func New(url string) *Publisher {
	return &Publisher{url: url, dial: dialBroker}
}

func dialBroker(url string) (channel, func() error, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("amqp channel: %w", err)
	}
	return ch, conn.Close, nil
}

// Notify publishes ev as a persistent JSON message routed by ev.Type.
// A connection is opened per event; booking transitions are low volume.
func (p *Publisher) Notify(ctx context.Context, ev domain.BookingEvent) error {
	start := time.Now()
	err := p.publish(ctx, ev)
	status := 200
	if err != nil {
		status = 500
		log.Warn().Err(err).Str("queue", ev.Type).Str("booking", ev.BookingID).Msg("amqp publish failed")
	}
	observability.ObserveExternal("amqp", ev.Type, status, time.Since(start))
	return err
}

func (p *Publisher) publish(ctx context.Context, ev domain.BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ch, closeConn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	defer func() {
		_ = ch.Close()
		_ = closeConn()
	}()

	if _, err := ch.QueueDeclare(ev.Type, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare %s: %w", ev.Type, err)
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.Type + ":" + ev.BookingID,
		Timestamp:    ev.OccurredAt.UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", ev.Type, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}
