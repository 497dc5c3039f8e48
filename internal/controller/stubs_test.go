package controller_test

import (
	"context"

	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
	"github.com/aurangzaib-ai/whatsapp-project/internal/repository"
)

// Function-field stubs: each test wires only the methods its handler touches;
// an unexpected call panics through the embedded nil interface.

type stubRecipients struct {
	repository.RecipientRepositoryInterface
	create       func(r *model.Recipient) error
	update       func(r *model.Recipient) error
	getByID      func(id int) (*model.Recipient, error)
	getByPhone   func(phone string) (*model.Recipient, error)
	list         func(offset, limit int, f repository.ListFilter) ([]model.Recipient, int, error)
	listEligible func(f repository.SegmentFilter) ([]model.Recipient, error)
}

func (s *stubRecipients) Create(r *model.Recipient) error { return s.create(r) }
func (s *stubRecipients) Update(r *model.Recipient) error { return s.update(r) }
func (s *stubRecipients) GetByID(id int) (*model.Recipient, error) {
	return s.getByID(id)
}
func (s *stubRecipients) GetByPhone(phone string) (*model.Recipient, error) {
	return s.getByPhone(phone)
}
func (s *stubRecipients) List(offset, limit int, f repository.ListFilter) ([]model.Recipient, int, error) {
	return s.list(offset, limit, f)
}
func (s *stubRecipients) ListEligible(f repository.SegmentFilter) ([]model.Recipient, error) {
	return s.listEligible(f)
}

type stubLedger struct {
	repository.CampaignRepositoryInterface
	createWithMessages func(c *model.Campaign, recipientIDs []int) error
	getByID            func(id int) (*model.Campaign, error)
	list               func(offset, limit int, status string) ([]*model.Campaign, int, error)
	messageStats       func(campaignID int) (map[string]int, error)
}

func (s *stubLedger) CreateWithMessages(c *model.Campaign, recipientIDs []int) error {
	return s.createWithMessages(c, recipientIDs)
}
func (s *stubLedger) GetByID(id int) (*model.Campaign, error) { return s.getByID(id) }
func (s *stubLedger) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	return s.list(offset, limit, status)
}
func (s *stubLedger) MessageStats(campaignID int) (map[string]int, error) {
	return s.messageStats(campaignID)
}

type stubResponses struct {
	repository.ResponseRepositoryInterface
	listByCampaign func(campaignID, offset, limit int) ([]model.Response, error)
}

func (s *stubResponses) ListByCampaign(campaignID, offset, limit int) ([]model.Response, error) {
	return s.listByCampaign(campaignID, offset, limit)
}

type stubOptOuts struct {
	repository.OptOutRepositoryInterface
	list func(offset, limit int) ([]model.OptOut, error)
}

func (s *stubOptOuts) List(offset, limit int) ([]model.OptOut, error) {
	return s.list(offset, limit)
}

type stubQueue struct {
	published []string
	payloads  []any
	err       error
}

func (q *stubQueue) Publish(topic string, payload any) error {
	if q.err != nil {
		return q.err
	}
	q.published = append(q.published, topic)
	q.payloads = append(q.payloads, payload)
	return nil
}

func (q *stubQueue) Subscribe(topic string, handler func(body []byte) error) error {
	return nil
}

type stubSender struct{}

func (stubSender) Send(ctx context.Context, phone, templateName, languageCode string, params []string) (string, error) {
	return "wamid.stub", nil
}
