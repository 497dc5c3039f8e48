package queue

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DispatchJob asks a worker to drive the provider sends for one campaign.
// Dispatch is idempotent on the consumer side, so at-least-once delivery of
// the job is fine.
type DispatchJob struct {
	JobID      string `json:"job_id"`
	CampaignID int    `json:"campaign_id"`
}

func NewDispatchJob(campaignID int) DispatchJob {
	return DispatchJob{JobID: uuid.NewString(), CampaignID: campaignID}
}

// Queue decouples job submission from job execution. Payloads cross the
// boundary as JSON so the in-memory and AMQP implementations behave the
// same.
type Queue interface {
	Publish(topic string, payload any) error
	Subscribe(topic string, handler func(body []byte) error) error
}

// InMemoryQueue runs handlers in-process with retry. Used when no broker is
// configured and in tests.
type InMemoryQueue struct {
	mu         sync.Mutex
	handlers   map[string][]func(body []byte) error
	maxRetries int
	log        zerolog.Logger
}

func NewInMemoryQueue(log zerolog.Logger) *InMemoryQueue {
	return &InMemoryQueue{
		handlers:   make(map[string][]func(body []byte) error),
		maxRetries: 3,
		log:        log,
	}
}

func (q *InMemoryQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	handlers := q.handlers[topic]
	q.mu.Unlock()

	if len(handlers) == 0 {
		return fmt.Errorf("no subscribers for topic %s", topic)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	for _, handler := range handlers {
		go q.processJob(topic, handler, body)
	}
	return nil
}

func (q *InMemoryQueue) processJob(topic string, handler func(body []byte) error, body []byte) {
	for attempt := 0; ; attempt++ {
		err := handler(body)
		if err == nil {
			return
		}
		if attempt >= q.maxRetries {
			q.log.Error().Err(err).Str("topic", topic).Int("attempts", attempt+1).
				Msg("job permanently failed")
			return
		}
		q.log.Warn().Err(err).Str("topic", topic).Int("attempt", attempt+1).
			Msg("job failed, retrying")
		time.Sleep(time.Duration(attempt+1) * 500 * time.Millisecond)
	}
}

func (q *InMemoryQueue) Subscribe(topic string, handler func(body []byte) error) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[topic] = append(q.handlers[topic], handler)
	return nil
}

var _ Queue = (*InMemoryQueue)(nil)
