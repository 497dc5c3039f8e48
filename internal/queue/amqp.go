// internal/queue/amqp.go
package queue

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// AMQPQueue publishes and consumes jobs over RabbitMQ. Each topic is a
// durable queue; consumers ack manually and requeue failures a bounded
// number of times.
type AMQPQueue struct {
	conn       *amqp.Connection
	ch         *amqp.Channel
	maxRetries int
	log        zerolog.Logger
}

func DialAMQP(url string, log zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, maxRetries: 3, log: log}, nil
}

func (q *AMQPQueue) Close() {
	q.ch.Close()
	q.conn.Close()
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	declared, err := q.declare(topic)
	if err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return q.ch.Publish(
		"",
		declared.Name,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Subscribe consumes the topic until the channel closes. Handler errors
// requeue the delivery until the retry budget is spent, then the message is
// dropped with an error log.
func (q *AMQPQueue) Subscribe(topic string, handler func(body []byte) error) error {
	declared, err := q.declare(topic)
	if err != nil {
		return err
	}
	deliveries, err := q.ch.Consume(
		declared.Name,
		"",
		false, // manual ack
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range deliveries {
			if err := handler(d.Body); err != nil {
				retries := retryCount(d.Headers)
				if retries < q.maxRetries {
					q.log.Warn().Err(err).Str("topic", topic).Int("attempt", retries+1).
						Msg("job failed, requeueing")
					d.Nack(false, true)
					continue
				}
				q.log.Error().Err(err).Str("topic", topic).
					Msg("job permanently failed")
			}
			d.Ack(false)
		}
	}()
	return nil
}

func retryCount(headers amqp.Table) int {
	if headers == nil {
		return 0
	}
	switch v := headers["x-retry-count"].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	}
	return 0
}

var _ Queue = (*AMQPQueue)(nil)
