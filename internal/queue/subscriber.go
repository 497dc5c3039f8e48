// internal/queue/subscriber.go
package queue

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog"
)

// CampaignDispatcher is the consumer side of a dispatch job.
type CampaignDispatcher interface {
	Dispatch(ctx context.Context, campaignID int) error
}

// StartDispatchSubscriber wires dispatch jobs from the queue into the
// dispatcher. Undecodable jobs are dropped; dispatch errors propagate so the
// queue's retry policy applies.
func StartDispatchSubscriber(q Queue, topic string, d CampaignDispatcher, log zerolog.Logger) error {
	return q.Subscribe(topic, func(body []byte) error {
		var job DispatchJob
		if err := json.Unmarshal(body, &job); err != nil {
			log.Warn().Err(err).Msg("invalid dispatch job dropped")
			return nil
		}
		log.Info().Str("job_id", job.JobID).Int("campaign_id", job.CampaignID).
			Msg("dispatch job received")
		return d.Dispatch(context.Background(), job.CampaignID)
	})
}
