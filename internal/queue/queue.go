package queue

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Queue is a minimal pub/sub used for fire-and-forget side channels
// (currently the audit sink). Payload handling is at-most-once from the
// caller's view: Publish never blocks the primary operation on delivery.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(payload any) error) error
}

// InMemoryQueue is the in-process default with bounded retry.
type InMemoryQueue struct {
	mu       sync.Mutex
	handlers map[string][]func(payload any) error
	log      zerolog.Logger
}

// NewInMemoryQueue creates a new queue
func NewInMemoryQueue(log zerolog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers: make(map[string][]func(payload any) error),
		log:      log.With().Str("component", "queue").Logger(),
	}
}

// jobPayload wraps a payload with retry info
type jobPayload struct {
	payload    any
	retryCount int
	maxRetries int
}

// Publish sends a message to all subscribers
func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	job := jobPayload{
		payload:    payload,
		maxRetries: 3,
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, job)
	}

	return nil
}

// processJob handles retries and errors
func (q *InMemoryQueue) processJob(topic string, handler func(payload any) error, job jobPayload) {
	for job.retryCount <= job.maxRetries {
		err := handler(job.payload)
		if err == nil {
			return // ACK
		}

		job.retryCount++
		if job.retryCount > job.maxRetries {
			q.log.Warn().Str("topic", topic).Int("attempts", job.maxRetries).Err(err).
				Msg("job permanently failed, dropping")
			return // No requeue
		}

		// Backoff before retry
		time.Sleep(time.Duration(job.retryCount*500) * time.Millisecond)
	}
}

// Subscribe adds a handler for a topic
func (q *InMemoryQueue) Subscribe(topic string, handler func(payload any) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}
