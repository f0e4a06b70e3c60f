package queue

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
)

// AMQPQueue backs the Queue interface with RabbitMQ, for deployments
// where the audit trail is consumed by a separate process. Subscribers
// receive the raw JSON body as []byte.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func DialAMQP(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening amqp channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch}, nil
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	declared, err := q.declare(topic)
	if err != nil {
		return fmt.Errorf("declaring queue %s: %w", topic, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	return q.ch.Publish(
		"",
		declared.Name,
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	if _, err := q.declare(topic); err != nil {
		return fmt.Errorf("declaring queue %s: %w", topic, err)
	}

	msgs, err := q.ch.Consume(
		topic,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("registering consumer on %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				d.Nack(false, true) // requeue
				continue
			}
			d.Ack(false)
		}
	}()

	return nil
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		q.conn.Close()
		return err
	}
	return q.conn.Close()
}
