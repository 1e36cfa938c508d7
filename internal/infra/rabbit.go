package infra

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"fotolio/internal/config"
)

// DialRabbit opens a connection and channel and declares the durable
// gateway-events queue the relay publishes to.
func DialRabbit(cfg config.RabbitConfig) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("rabbit dial: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("rabbit channel: %w", err)
	}

	if _, err := channel.QueueDeclare(cfg.Queue, true, false, false, false, nil); err != nil {
		channel.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", cfg.Queue, err)
	}

	return conn, channel, nil
}
