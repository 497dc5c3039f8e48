// internal/model/response.go
package model

import "time"

// Reply payload kinds as the provider reports them.
const (
	ReplyButton       = "button_reply"
	ReplyList         = "list_reply"
	ReplyLegacyButton = "button"
)

// Response is an inbound reply attributed to the recipient's most recent
// outbound message at receipt time. Append-only.
type Response struct {
	ID          int       `db:"id" json:"id"`
	MessageID   int       `db:"message_id" json:"message_id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	CampaignID  int       `db:"campaign_id" json:"campaign_id"`
	Kind        string    `db:"kind" json:"kind"`
	ButtonID    string    `db:"button_id" json:"button_id"`
	ButtonTitle string    `db:"button_title" json:"button_title"`
	ReceivedAt  time.Time `db:"received_at" json:"received_at"`
}
