package service_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/aurangzaib-ai/whatsapp-project/internal/errors"
	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
)

// fakeStore is an in-memory stand-in for all four repositories. It mirrors
// the conditional-update semantics of the SQL implementation so the engine's
// idempotency properties can be exercised without a database.
type fakeStore struct {
	mu         sync.Mutex
	recipients map[int]*model.Recipient
	campaigns  map[int]*model.Campaign
	messages   map[int]*model.Message
	responses  []model.Response
	optouts    []model.OptOut
	nextID     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		recipients: map[int]*model.Recipient{},
		campaigns:  map[int]*model.Campaign{},
		messages:   map[int]*model.Message{},
	}
}

func (s *fakeStore) id() int {
	s.nextID++
	return s.nextID
}

func (s *fakeStore) addRecipient(r model.Recipient) *model.Recipient {
	s.mu.Lock()
	defer s.mu.Unlock()
	r.ID = s.id()
	s.recipients[r.ID] = &r
	return &r
}

// ---- RecipientRepositoryInterface ----

func (s *fakeStore) Create(r *model.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.recipients {
		if existing.Phone == r.Phone {
			return appErrors.NewRecipientExists(r.Phone)
		}
	}
	r.ID = s.id()
	copied := *r
	s.recipients[r.ID] = &copied
	return nil
}

func (s *fakeStore) Update(r *model.Recipient) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recipients[r.ID]; !ok {
		return appErrors.NewRecipientNotFound(r.ID)
	}
	copied := *r
	s.recipients[r.ID] = &copied
	return nil
}

func (s *fakeStore) GetByID(id int) (*model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.recipients[id]
	if !ok {
		return nil, nil
	}
	copied := *r
	return &copied, nil
}

func (s *fakeStore) GetByPhone(phone string) (*model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.recipients {
		if r.Phone == phone {
			copied := *r
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) List(offset, limit int, f repository.ListFilter) ([]model.Recipient, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Recipient{}
	for _, r := range s.recipients {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.City != "" && r.City != f.City {
			continue
		}
		if f.Plan != "" && r.Plan != f.Plan {
			continue
		}
		if f.OptedIn != nil && r.OptedIn != *f.OptedIn {
			continue
		}
		out = append(out, *r)
	}
	return out, len(out), nil
}

func (s *fakeStore) ListEligible(f repository.SegmentFilter) ([]model.Recipient, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Recipient{}
	for _, r := range s.recipients {
		if !r.OptedIn {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.City != "" && r.City != f.City {
			continue
		}
		if f.Plan != "" && r.Plan != f.Plan {
			continue
		}
		if f.ExpiryWithinDays != nil {
			if r.ExpiryDate == nil {
				continue
			}
			cutoff := time.Now().AddDate(0, 0, *f.ExpiryWithinDays)
			if r.ExpiryDate.After(cutoff) {
				continue
			}
		}
		out = append(out, *r)
	}
	return out, nil
}

func (s *fakeStore) SetOptedOut(id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.recipients[id]; ok {
		r.OptedIn = false
	}
	return nil
}

// ---- CampaignRepositoryInterface ----

func (s *fakeStore) CreateWithMessages(c *model.Campaign, recipientIDs []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.ID = s.id()
	c.TargetCount = len(recipientIDs)
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignQueued
	}
	copied := *c
	s.campaigns[c.ID] = &copied
	for _, rid := range recipientIDs {
		m := &model.Message{
			ID:           s.id(),
			CampaignID:   c.ID,
			RecipientID:  rid,
			Status:       model.StatusQueued,
			TemplateName: c.TemplateName,
			CreatedAt:    c.CreatedAt,
		}
		s.messages[m.ID] = m
	}
	return nil
}

func (s *fakeStore) GetCampaign(id int) (*model.Campaign, error) { return s.GetByIDCampaign(id) }

func (s *fakeStore) GetByIDCampaign(id int) (*model.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	copied := *c
	return &copied, nil
}

func (s *fakeStore) ListCampaignsPage(offset, limit int, status string) ([]*model.Campaign, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.Campaign{}
	for _, c := range s.campaigns {
		if status != "" && c.Status != status {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	return out, len(out), nil
}

func (s *fakeStore) UpdateStatus(campaignID int, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[campaignID]; ok {
		c.Status = status
	}
	return nil
}

func (s *fakeStore) MarkDispatched(campaignID int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.campaigns[campaignID]; ok {
		c.Status = model.CampaignSending
		if c.DispatchedAt == nil {
			now := time.Now()
			c.DispatchedAt = &now
		}
	}
	return nil
}

func (s *fakeStore) ListQueuedMessages(campaignID int) ([]repository.QueuedMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []repository.QueuedMessage{}
	for _, m := range s.messages {
		if m.CampaignID != campaignID || m.Status != model.StatusQueued {
			continue
		}
		phone := ""
		if r, ok := s.recipients[m.RecipientID]; ok {
			phone = r.Phone
		}
		out = append(out, repository.QueuedMessage{
			MessageID:   m.ID,
			RecipientID: m.RecipientID,
			Phone:       phone,
		})
	}
	return out, nil
}

func (s *fakeStore) MarkMessageSent(msgID, campaignID, recipientID int, providerMessageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[msgID]
	if !ok || m.Status != model.StatusQueued {
		return false, nil
	}
	now := time.Now()
	m.Status = model.StatusSent
	m.ProviderMessageID = &providerMessageID
	m.SentAt = &now
	s.campaigns[campaignID].SentCount++
	if r, ok := s.recipients[recipientID]; ok {
		id := msgID
		r.LastMessageID = &id
	}
	return true, nil
}

func (s *fakeStore) MarkMessageFailed(msgID, campaignID int, detail string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[msgID]
	if !ok || m.Status != model.StatusQueued {
		return false, nil
	}
	now := time.Now()
	m.Status = model.StatusFailed
	m.ErrorDetail = &detail
	m.FailedAt = &now
	s.campaigns[campaignID].FailedCount++
	return true, nil
}

func (s *fakeStore) AdvanceMessageStatus(msgID, campaignID int, to model.MessageStatus, errorDetail string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[msgID]
	if !ok || !model.CanTransition(m.Status, to) {
		return false, nil
	}
	now := time.Now()
	m.Status = to
	switch to {
	case model.StatusSent:
		m.SentAt = &now
	case model.StatusDelivered:
		m.DeliveredAt = &now
		s.campaigns[campaignID].DeliveredCount++
	case model.StatusRead:
		m.ReadAt = &now
		s.campaigns[campaignID].ReadCount++
	case model.StatusFailed:
		m.ErrorDetail = &errorDetail
		m.FailedAt = &now
		s.campaigns[campaignID].FailedCount++
	}
	return true, nil
}

func (s *fakeStore) GetMessageByProviderID(providerMessageID string) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, m := range s.messages {
		if m.ProviderMessageID != nil && *m.ProviderMessageID == providerMessageID {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetMessageByID(id int) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.messages[id]
	if !ok {
		return nil, nil
	}
	copied := *m
	return &copied, nil
}

func (s *fakeStore) MessageStats(campaignID int) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := map[string]int{}
	for _, m := range s.messages {
		if m.CampaignID == campaignID {
			stats[string(m.Status)]++
		}
	}
	return stats, nil
}

// ---- ResponseRepositoryInterface ----

func (s *fakeStore) CreateResponse(resp *model.Response) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	resp.ID = s.id()
	if resp.ReceivedAt.IsZero() {
		resp.ReceivedAt = time.Now()
	}
	s.responses = append(s.responses, *resp)
	return nil
}

func (s *fakeStore) ListByCampaign(campaignID, offset, limit int) ([]model.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []model.Response{}
	for _, r := range s.responses {
		if r.CampaignID == campaignID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *fakeStore) PurgeOlderThan(maxAge time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := time.Now().Add(-maxAge)
	kept := s.responses[:0]
	var purged int64
	for _, r := range s.responses {
		if r.ReceivedAt.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	s.responses = kept
	return purged, nil
}

func (s *fakeStore) TrimToCount(maxCount int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.responses) <= maxCount {
		return 0, nil
	}
	trimmed := int64(len(s.responses) - maxCount)
	s.responses = s.responses[len(s.responses)-maxCount:]
	return trimmed, nil
}

// ---- OptOutRepositoryInterface ----

func (s *fakeStore) CreateOptOut(o *model.OptOut) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	o.ID = s.id()
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.optouts = append(s.optouts, *o)
	return nil
}

func (s *fakeStore) ListOptOuts(offset, limit int) ([]model.OptOut, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.OptOut{}, s.optouts...), nil
}

// The four repository interfaces have overlapping method names (Create,
// GetByID, List), so the store exposes one adapter per interface.

type recipientStore struct{ *fakeStore }

var _ repository.RecipientRepositoryInterface = recipientStore{}

type ledgerStore struct{ *fakeStore }

func (l ledgerStore) GetByID(id int) (*model.Campaign, error) { return l.GetByIDCampaign(id) }
func (l ledgerStore) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	return l.ListCampaignsPage(offset, limit, status)
}

var _ repository.CampaignRepositoryInterface = ledgerStore{}

type responseStore struct{ *fakeStore }

func (r responseStore) Create(resp *model.Response) error { return r.CreateResponse(resp) }

var _ repository.ResponseRepositoryInterface = responseStore{}

type optoutStore struct{ *fakeStore }

func (o optoutStore) Create(oo *model.OptOut) error { return o.CreateOptOut(oo) }
func (o optoutStore) List(offset, limit int) ([]model.OptOut, error) {
	return o.ListOptOuts(offset, limit)
}

var _ repository.OptOutRepositoryInterface = optoutStore{}

// scriptedSender returns canned outcomes per phone number; phones with no
// script entry succeed with a fresh provider id.
type scriptedSender struct {
	mu       sync.Mutex
	failures map[string]error
	sent     []string
}

func newScriptedSender() *scriptedSender {
	return &scriptedSender{failures: map[string]error{}}
}

func (f *scriptedSender) failFor(phone string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[phone] = err
}

func (f *scriptedSender) Send(ctx context.Context, phone, templateName, languageCode string, params []string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.failures[phone]; ok {
		return "", err
	}
	f.sent = append(f.sent, phone)
	return fmt.Sprintf("wamid.%s", uuid.NewString()), nil
}

func (f *scriptedSender) sendCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
