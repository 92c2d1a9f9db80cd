package broker

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher sends JSON messages to direct exchanges. Delivery is best effort,
// nothing is retried and failures are only logged.
type Publisher struct {
	channels ChannelProvider
}

func NewPublisher(p ChannelProvider) *Publisher {
	return &Publisher{channels: p}
}

// Publish declares exchange as a durable direct exchange and publishes
// payload under routingKey. It never returns an error to the caller.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, payload any, logMessage string) {
	if err := p.publish(ctx, exchange, routingKey, payload); err != nil {
		zap.L().Error("Failed to publish message",
			zap.String("exchange", exchange),
			zap.String("routing_key", routingKey),
			zap.Error(err))
		return
	}

	zap.L().Info(logMessage, zap.String("exchange", exchange), zap.String("routing_key", routingKey))
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	ch, err := p.channels.Channel()
	if err != nil {
		return err
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
		return err
	}

	return ch.PublishWithContext(ctx, exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	})
}
