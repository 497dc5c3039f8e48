// internal/service/retention.go
package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
)

// RetentionSweeper bounds the inbound-event store by age and by count.
type RetentionSweeper struct {
	Responses repository.ResponseRepositoryInterface
	MaxAge    time.Duration
	MaxCount  int
	Log       zerolog.Logger
}

// Run sweeps on the given interval until the context is cancelled.
func (s *RetentionSweeper) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// Sweep applies both retention bounds once.
func (s *RetentionSweeper) Sweep() {
	if s.MaxAge > 0 {
		n, err := s.Responses.PurgeOlderThan(s.MaxAge)
		if err != nil {
			s.Log.Error().Err(err).Msg("response age purge failed")
		} else if n > 0 {
			s.Log.Info().Int64("purged", n).Msg("expired responses purged")
		}
	}
	if s.MaxCount > 0 {
		n, err := s.Responses.TrimToCount(s.MaxCount)
		if err != nil {
			s.Log.Error().Err(err).Msg("response count trim failed")
		} else if n > 0 {
			s.Log.Info().Int64("trimmed", n).Msg("excess responses trimmed")
		}
	}
}
