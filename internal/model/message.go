// internal/model/message.go
package model

import "time"

// MessageStatus is the lifecycle state of a single delivery attempt.
type MessageStatus string

const (
	StatusQueued    MessageStatus = "queued"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// allowedFrom lists, per target status, the states a message is allowed to
// leave. Anything else is a duplicate or out-of-order callback and must be
// ignored, never rejected. read and failed are terminal.
var allowedFrom = map[MessageStatus][]MessageStatus{
	StatusSent:      {StatusQueued},
	StatusDelivered: {StatusSent},
	StatusRead:      {StatusDelivered},
	StatusFailed:    {StatusQueued, StatusSent, StatusDelivered},
}

// ParseStatus maps a provider status string onto a known MessageStatus.
func ParseStatus(s string) (MessageStatus, bool) {
	switch MessageStatus(s) {
	case StatusQueued, StatusSent, StatusDelivered, StatusRead, StatusFailed:
		return MessageStatus(s), true
	}
	return "", false
}

// Terminal reports whether no further transition can leave this state.
func (s MessageStatus) Terminal() bool {
	return s == StatusRead || s == StatusFailed
}

// AllowedFrom returns the set of states from which a transition to the given
// target is a legal forward edge.
func AllowedFrom(to MessageStatus) []MessageStatus {
	return allowedFrom[to]
}

// CanTransition reports whether from -> to is a legal forward edge.
func CanTransition(from, to MessageStatus) bool {
	for _, s := range allowedFrom[to] {
		if s == from {
			return true
		}
	}
	return false
}

// Message is one per-recipient delivery attempt within a campaign. Exactly
// one exists per (campaign, recipient) pair.
type Message struct {
	ID                int           `db:"id" json:"id"`
	CampaignID        int           `db:"campaign_id" json:"campaign_id"`
	RecipientID       int           `db:"recipient_id" json:"recipient_id"`
	Status            MessageStatus `db:"status" json:"status"`
	TemplateName      string        `db:"template_name" json:"template_name"`
	ProviderMessageID *string       `db:"provider_message_id" json:"provider_message_id,omitempty"`
	ErrorDetail       *string       `db:"error_detail" json:"error_detail,omitempty"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	SentAt            *time.Time    `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt       *time.Time    `db:"delivered_at" json:"delivered_at,omitempty"`
	ReadAt            *time.Time    `db:"read_at" json:"read_at,omitempty"`
	FailedAt          *time.Time    `db:"failed_at" json:"failed_at,omitempty"`
}
