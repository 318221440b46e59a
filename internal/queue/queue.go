package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/unclebandit/partnerconnex-backend/internal/logger"
)

// Queue is the event bus between the HTTP service and notification handlers.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

type handlerFunc func(payload any) error

// InMemoryQueue delivers each event to every subscriber of its topic on its
// own goroutine. A failing handler is retried with linear backoff.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]handlerFunc
	inflight sync.WaitGroup

	MaxRetries int
	Backoff    time.Duration
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]handlerFunc),
		MaxRetries: 3,
		Backoff:    500 * time.Millisecond,
	}
}

// delivery is one event on its way to one handler.
type delivery struct {
	topic   string
	payload any
	attempt int
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

// Publish fails only when nobody listens on topic.
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := append([]handlerFunc(nil), q.handlers[topic]...)
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}
	for _, h := range handlers {
		q.inflight.Add(1)
		go q.deliver(h, delivery{topic: topic, payload: payload})
	}
	return nil
}

func (q *InMemoryQueue) deliver(h handlerFunc, d delivery) {
	defer q.inflight.Done()
	log := logger.GetLogger().WithField("topic", d.topic)

	for {
		d.attempt++
		err := h(d.payload)
		if err == nil {
			log.WithField("attempt", d.attempt).Debug("Event delivered")
			return
		}
		if d.attempt > q.MaxRetries {
			log.WithFields(map[string]interface{}{
				"attempts": d.attempt,
				"error":    err,
			}).Error("❌ Event dropped after retries")
			return
		}
		log.WithFields(map[string]interface{}{
			"attempt": d.attempt,
			"error":   err,
		}).Warn("⚠️ Event handler failed, retrying")
		time.Sleep(time.Duration(d.attempt) * q.Backoff)
	}
}

// Drain waits up to timeout for deliveries already published. It reports
// whether everything finished.
func (q *InMemoryQueue) Drain(timeout time.Duration) bool {
	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-time.After(timeout):
		return false
	}
}

var _ Queue = (*InMemoryQueue)(nil)
