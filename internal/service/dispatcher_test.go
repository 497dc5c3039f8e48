package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/aurangzaib-ai/whatsapp-project/internal/errors"
	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
	"github.com/aurangzaib-ai/whatsapp-project/internal/provider"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
	"github.com/aurangzaib-ai/whatsapp-project/internal/service"
)

func newDispatcher(store *fakeStore, sender provider.Sender) *service.Dispatcher {
	return &service.Dispatcher{
		Recipients: recipientStore{store},
		Ledger:     ledgerStore{store},
		Provider:   sender,
		Workers:    2,
		RatePerSec: 1000,
		Log:        zerolog.Nop(),
	}
}

func seedRecipients(store *fakeStore) (a, b, c *model.Recipient) {
	a = store.addRecipient(model.Recipient{Phone: "+254700000001", Status: "active", City: "Nairobi", OptedIn: true})
	b = store.addRecipient(model.Recipient{Phone: "+254700000002", Status: "active", City: "Mombasa", OptedIn: true})
	c = store.addRecipient(model.Recipient{Phone: "+254700000003", Status: "expired", City: "Nairobi", OptedIn: true})
	return a, b, c
}

func TestCreateCampaignFansOutToEligibleRecipients(t *testing.T) {
	store := newFakeStore()
	seedRecipients(store)
	store.addRecipient(model.Recipient{Phone: "+254700000004", Status: "active", OptedIn: false})

	d := newDispatcher(store, newScriptedSender())
	campaign, err := d.CreateCampaign(context.Background(), service.CreateCampaignInput{
		Name:         "renewal",
		TemplateName: "renewal_reminder",
	})
	require.NoError(t, err)

	assert.Equal(t, 3, campaign.TargetCount, "opted-out recipient must be excluded")
	assert.Equal(t, model.CampaignQueued, campaign.Status)

	stats, _ := store.MessageStats(campaign.ID)
	assert.Equal(t, 3, stats[string(model.StatusQueued)])
}

func TestCreateCampaignAppliesSegmentFilter(t *testing.T) {
	store := newFakeStore()
	seedRecipients(store)

	d := newDispatcher(store, newScriptedSender())
	campaign, err := d.CreateCampaign(context.Background(), service.CreateCampaignInput{
		Name:         "nairobi-actives",
		TemplateName: "hello_world",
		Filter:       repository.SegmentFilter{Status: "active", City: "Nairobi"},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, campaign.TargetCount)
}

func TestCreateCampaignNoEligibleRecipients(t *testing.T) {
	store := newFakeStore()
	store.addRecipient(model.Recipient{Phone: "+254700000001", OptedIn: false})

	d := newDispatcher(store, newScriptedSender())
	_, err := d.CreateCampaign(context.Background(), service.CreateCampaignInput{
		Name:         "empty",
		TemplateName: "hello_world",
	})

	var noEligible *appErrors.ErrNoEligibleRecipients
	require.ErrorAs(t, err, &noEligible)
	assert.Empty(t, store.campaigns, "campaign must not be created")
	assert.Empty(t, store.messages)
}

func TestDispatchRecordsPartialFailure(t *testing.T) {
	store := newFakeStore()
	_, b, _ := seedRecipients(store)

	sender := newScriptedSender()
	sender.failFor(b.Phone, &provider.SendError{Kind: provider.KindRejected, Detail: "invalid number"})

	d := newDispatcher(store, sender)
	campaign, err := d.CreateCampaign(context.Background(), service.CreateCampaignInput{
		Name:         "renewal",
		TemplateName: "renewal_reminder",
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(context.Background(), campaign.ID))

	got, err := ledgerStore{store}.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.Equal(t, model.CampaignSent, got.Status)
	assert.LessOrEqual(t, got.SentCount+got.FailedCount, got.TargetCount)

	// The failed message carries the provider detail.
	var failed *model.Message
	for _, m := range store.messages {
		if m.Status == model.StatusFailed {
			failed = m
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, b.ID, failed.RecipientID)
	require.NotNil(t, failed.ErrorDetail)
	assert.Contains(t, *failed.ErrorDetail, "invalid number")
}

func TestDispatchIsIdempotent(t *testing.T) {
	store := newFakeStore()
	_, b, _ := seedRecipients(store)

	sender := newScriptedSender()
	sender.failFor(b.Phone, errors.New("timeout"))

	d := newDispatcher(store, sender)
	campaign, err := d.CreateCampaign(context.Background(), service.CreateCampaignInput{
		Name:         "renewal",
		TemplateName: "renewal_reminder",
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(context.Background(), campaign.ID))
	firstSends := sender.sendCount()

	// Re-dispatch only considers still-queued messages; the failed one is
	// not retried automatically.
	require.NoError(t, d.Dispatch(context.Background(), campaign.ID))

	got, err := ledgerStore{store}.GetByID(campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.SentCount)
	assert.Equal(t, 1, got.FailedCount)
	assert.Equal(t, firstSends, sender.sendCount(), "no message may be sent twice")
}

func TestDispatchRecordsProviderIDAndLastOutbound(t *testing.T) {
	store := newFakeStore()
	a := store.addRecipient(model.Recipient{Phone: "+254700000001", OptedIn: true})

	d := newDispatcher(store, newScriptedSender())

	first, err := d.CreateCampaign(context.Background(), service.CreateCampaignInput{Name: "one", TemplateName: "t1"})
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), first.ID))

	rec, err := store.GetByID(a.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.LastMessageID)
	firstPointer := *rec.LastMessageID

	msg, err := store.GetMessageByID(firstPointer)
	require.NoError(t, err)
	require.NotNil(t, msg.ProviderMessageID)
	assert.Contains(t, *msg.ProviderMessageID, "wamid.")

	// A later campaign overwrites the pointer: last write wins.
	second, err := d.CreateCampaign(context.Background(), service.CreateCampaignInput{Name: "two", TemplateName: "t2"})
	require.NoError(t, err)
	require.NoError(t, d.Dispatch(context.Background(), second.ID))

	rec, err = store.GetByID(a.ID)
	require.NoError(t, err)
	require.NotNil(t, rec.LastMessageID)
	assert.NotEqual(t, firstPointer, *rec.LastMessageID)
}
