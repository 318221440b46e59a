package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"

	"github.com/unclebandit/partnerconnex-backend/internal/logger"
)

const retryHeader = "x-retry-count"

// AMQPQueue publishes JSON messages to durable queues. A topic maps to the
// queue in QueueNames, or to a queue of the same name.
// Subscribers receive the raw body as []byte.
type AMQPQueue struct {
	conn       *amqp.Connection
	mu         sync.Mutex
	ch         *amqp.Channel
	MaxRetries int32
	QueueNames map[string]string
}

func NewAMQPQueue(url string) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	return &AMQPQueue{conn: conn, ch: ch, MaxRetries: 3}, nil
}

func (q *AMQPQueue) queueName(topic string) string {
	if name, ok := q.QueueNames[topic]; ok && name != "" {
		return name
	}
	return topic
}

func (q *AMQPQueue) declare(topic string) error {
	_, err := q.ch.QueueDeclare(
		q.queueName(topic), // name
		true,               // durable
		false,              // delete when unused
		false,              // exclusive
		false,              // no-wait
		nil,                // arguments
	)
	return err
}

func (q *AMQPQueue) Publish(topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s payload: %w", topic, err)
	}
	return q.publish(topic, body, 0)
}

func (q *AMQPQueue) publish(topic string, body []byte, retries int32) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if err := q.declare(topic); err != nil {
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	return q.ch.Publish("", q.queueName(topic), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Headers:      amqp.Table{retryHeader: retries},
		Body:         body,
	})
}

// Subscribe consumes with manual acks. A failed delivery is republished with
// an incremented retry header until MaxRetries, then dropped.
func (q *AMQPQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	if err := q.declare(topic); err != nil {
		q.mu.Unlock()
		return fmt.Errorf("declare queue %s: %w", topic, err)
	}
	msgs, err := q.ch.Consume(
		q.queueName(topic),
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	q.mu.Unlock()
	if err != nil {
		return fmt.Errorf("register consumer for %s: %w", topic, err)
	}

	go func() {
		for d := range msgs {
			q.handleDelivery(topic, d, handler)
		}
		logger.GetLogger().WithField("topic", topic).Info("Consumer channel closed")
	}()
	return nil
}

func (q *AMQPQueue) handleDelivery(topic string, d amqp.Delivery, handler func(payload any) error) {
	log := logger.GetLogger().WithField("topic", topic)
	err := handler(d.Body)
	if err == nil {
		_ = d.Ack(false)
		return
	}

	retries := retryCount(d.Headers)
	log.WithFields(map[string]interface{}{"attempt": retries + 1, "error": err}).Warn("⚠️ Job failed")
	if retries < q.MaxRetries {
		if perr := q.publish(topic, d.Body, retries+1); perr != nil {
			log.WithField("error", perr).Error("❌ Requeue failed")
			_ = d.Nack(false, true)
			return
		}
	} else {
		log.Error("❌ Job permanently failed")
	}
	_ = d.Ack(false)
}

func retryCount(h amqp.Table) int32 {
	switch v := h[retryHeader].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

func (q *AMQPQueue) Close() error {
	if err := q.ch.Close(); err != nil {
		return err
	}
	return q.conn.Close()
}

var _ Queue = (*AMQPQueue)(nil)
