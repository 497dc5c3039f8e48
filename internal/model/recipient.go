// internal/model/recipient.go
package model

import "time"

// Recipient is a registered contact. OptedIn is flipped to false only by the
// reconciler on a stop command; re-opt-in is an administrative action outside
// this service. LastMessageID is the last-write-wins pointer used to
// correlate inbound replies with the most recent outbound message.
type Recipient struct {
	ID            int        `db:"id" json:"id"`
	Phone         string     `db:"phone" json:"phone"`
	FullName      string     `db:"full_name" json:"full_name,omitempty"`
	Email         string     `db:"email" json:"email,omitempty"`
	Status        string     `db:"status" json:"status,omitempty"`
	City          string     `db:"city" json:"city,omitempty"`
	Plan          string     `db:"plan" json:"plan,omitempty"`
	ExpiryDate    *time.Time `db:"expiry_date" json:"expiry_date,omitempty"`
	OptedIn       bool       `db:"opted_in" json:"opted_in"`
	LastMessageID *int       `db:"last_message_id" json:"last_message_id,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}
