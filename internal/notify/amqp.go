package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPNotifier publishes notifications to a RabbitMQ exchange for an
// external mailer to consume.
type AMQPNotifier struct {
	Conn       *amqp.Connection
	Channel    *amqp.Channel
	Exchange   string
	RoutingKey string
}

func DialAMQP(url, exchange, routingKey string) (*AMQPNotifier, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		exchange,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("amqp exchange %s: %w", exchange, err)
	}
	return &AMQPNotifier{Conn: conn, Channel: ch, Exchange: exchange, RoutingKey: routingKey}, nil
}

func (n *AMQPNotifier) SendCancellation(ctx context.Context, m Cancellation) error {
	body, err := json.Marshal(m)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		ContentType:  "application/json",
		Type:         "order.cancelled",
		MessageId:    m.OrderID,
		Body:         body,
	}
	if err := n.Channel.PublishWithContext(ctx, n.Exchange, n.RoutingKey,
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

func (n *AMQPNotifier) Close() {
	if n.Channel != nil {
		_ = n.Channel.Close()
	}
	if n.Conn != nil {
		_ = n.Conn.Close()
	}
}
