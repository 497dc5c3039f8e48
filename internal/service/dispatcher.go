// internal/service/dispatcher.go
package service

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	appErrors "github.com/aurangzaib-ai/whatsapp-project/internal/errors"
	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
	"github.com/aurangzaib-ai/whatsapp-project/internal/provider"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
)

// Dispatcher fans a campaign out into per-recipient ledger entries and
// drives provider sends for queued entries. It is the only component that
// moves a message out of `queued`.
type Dispatcher struct {
	Recipients repository.RecipientRepositoryInterface
	Ledger     repository.CampaignRepositoryInterface
	Provider   provider.Sender

	Workers    int
	RatePerSec int
	Log        zerolog.Logger
}

type CreateCampaignInput struct {
	Name         string
	TemplateName string
	Description  string
	LanguageCode string
	Filter       repository.SegmentFilter
}

// CreateCampaign selects the eligible recipient set at call time and
// persists the campaign plus one queued message per recipient atomically.
func (d *Dispatcher) CreateCampaign(ctx context.Context, in CreateCampaignInput) (*model.Campaign, error) {
	recipients, err := d.Recipients.ListEligible(in.Filter)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, appErrors.NewNoEligibleRecipients()
	}

	recipientIDs := make([]int, len(recipients))
	for i, r := range recipients {
		recipientIDs[i] = r.ID
	}

	campaign := &model.Campaign{
		Name:             in.Name,
		TemplateName:     in.TemplateName,
		Description:      in.Description,
		LanguageCode:     in.LanguageCode,
		Status:           model.CampaignQueued,
		StatusFilter:     in.Filter.Status,
		CityFilter:       in.Filter.City,
		PlanFilter:       in.Filter.Plan,
		ExpiryDaysFilter: in.Filter.ExpiryWithinDays,
	}
	if err := d.Ledger.CreateWithMessages(campaign, recipientIDs); err != nil {
		return nil, err
	}

	d.Log.Info().Int("campaign_id", campaign.ID).Int("target_count", campaign.TargetCount).
		Str("template", campaign.TemplateName).Msg("campaign created")
	return campaign, nil
}

// Dispatch drives provider sends for every message that is still queued at
// the start of the call. Messages that left `queued` are skipped by the
// conditional ledger updates, so re-invoking Dispatch on the same campaign
// resumes safely after a crash.
func (d *Dispatcher) Dispatch(ctx context.Context, campaignID int) error {
	campaign, err := d.Ledger.GetByID(campaignID)
	if err != nil {
		return err
	}

	if err := d.Ledger.MarkDispatched(campaignID); err != nil {
		return err
	}

	queued, err := d.Ledger.ListQueuedMessages(campaignID)
	if err != nil {
		return err
	}

	d.Log.Info().Int("campaign_id", campaignID).Int("queued", len(queued)).
		Msg("dispatch started")

	workers := d.Workers
	if workers <= 0 {
		workers = 4
	}
	rps := d.RatePerSec
	if rps <= 0 {
		rps = 10
	}
	limiter := rate.NewLimiter(rate.Limit(rps), rps)

	jobs := make(chan repository.QueuedMessage)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for msg := range jobs {
				if err := limiter.Wait(ctx); err != nil {
					return
				}
				d.sendOne(ctx, campaign, msg)
			}
		}()
	}

	for _, msg := range queued {
		jobs <- msg
	}
	close(jobs)
	wg.Wait()

	if err := d.Ledger.UpdateStatus(campaignID, model.CampaignSent); err != nil {
		return err
	}
	d.Log.Info().Int("campaign_id", campaignID).Msg("dispatch finished")
	return nil
}

// sendOne is one atomic unit of dispatch: a provider send followed by the
// matching ledger transition. Send failures are encoded into the message,
// never returned.
func (d *Dispatcher) sendOne(ctx context.Context, campaign *model.Campaign, msg repository.QueuedMessage) {
	providerID, err := d.Provider.Send(ctx, msg.Phone, campaign.TemplateName, campaign.LanguageCode, nil)
	if err != nil {
		applied, updErr := d.Ledger.MarkMessageFailed(msg.MessageID, campaign.ID, err.Error())
		if updErr != nil {
			d.Log.Error().Err(updErr).Int("message_id", msg.MessageID).
				Msg("failed to record send failure")
			return
		}
		if applied {
			d.Log.Warn().Err(err).Int("message_id", msg.MessageID).
				Int("campaign_id", campaign.ID).Msg("provider send failed")
		}
		return
	}

	applied, err := d.Ledger.MarkMessageSent(msg.MessageID, campaign.ID, msg.RecipientID, providerID)
	if err != nil {
		d.Log.Error().Err(err).Int("message_id", msg.MessageID).
			Msg("failed to record send")
		return
	}
	if !applied {
		// Another dispatch invocation got here first.
		d.Log.Debug().Int("message_id", msg.MessageID).Msg("message no longer queued, skipped")
		return
	}
	d.Log.Debug().Int("message_id", msg.MessageID).Str("provider_message_id", providerID).
		Msg("message sent")
}
