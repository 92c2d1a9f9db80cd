// Package broker delivers lifecycle events to RabbitMQ
package broker

import (
	"context"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Channel is the part of *amqp.Channel the publisher needs
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// ChannelProvider hands out the process-wide channel
type ChannelProvider interface {
	Channel() (Channel, error)
}

// Connection owns the broker connection and one shared channel. It is created
// by main and closed on shutdown, the request path never tears it down.
type Connection struct {
	conn *amqp.Connection

	mu sync.Mutex
	ch *amqp.Channel
}

func Dial(endpoint string) (*Connection, error) {
	conn, err := amqp.Dial(endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq, %w", err)
	}

	zap.L().Info("Connected to rabbitmq")

	return &Connection{conn: conn}, nil
}

// Channel returns the shared channel, opening a new one on first use or
// after the broker closed the previous one
func (c *Connection) Channel() (Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil && !c.ch.IsClosed() {
		return c.ch, nil
	}

	ch, err := c.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open channel, %w", err)
	}

	c.ch = ch
	return ch, nil
}

func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.ch != nil {
		if err := c.ch.Close(); err != nil {
			zap.L().Warn("Failed to close channel", zap.Error(err))
		}
		c.ch = nil
	}

	return c.conn.Close()
}
