package refundsink

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/agamariel/flowershop/internal/models"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	ExchangeName      = "refunds_topic"
	RoutingKeyRequest = "refund.requested"
)

// amqpChannel часть *amqp.Channel, нужная для публикации.
type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher публикует сообщения о возвратах в topic-обменник RabbitMQ.
type AMQPPublisher struct {
	conn    io.Closer
	channel amqpChannel
	timeout time.Duration
}

// DialAMQP подключается к брокеру и объявляет обменник.
func DialAMQP(url string) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		ExchangeName, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-delete
		false,        // internal
		false,        // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}

	return &AMQPPublisher{conn: conn, channel: ch, timeout: 5 * time.Second}, nil
}

// PublishRefundRequested публикует тело сообщения outbox с постоянной доставкой.
func (p *AMQPPublisher) PublishRefundRequested(ctx context.Context, msg *models.RefundOutboxMessage) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	return p.channel.PublishWithContext(ctx,
		ExchangeName,
		RoutingKeyRequest,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			MessageId:    msg.RefundID.String(),
			Body:         msg.Payload,
			Timestamp:    msg.CreatedAt,
		})
}

// Close закрывает канал и соединение.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		p.conn.Close()
		return err
	}
	return p.conn.Close()
}
