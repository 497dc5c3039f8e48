// internal/model/optout.go
package model

import "time"

// OptOut is an append-only audit record. One row is written per inbound stop
// command, even when the recipient's flag was already false.
type OptOut struct {
	ID          int       `db:"id" json:"id"`
	RecipientID int       `db:"recipient_id" json:"recipient_id"`
	Phone       string    `db:"phone" json:"phone"`
	Reason      string    `db:"reason" json:"reason"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}
