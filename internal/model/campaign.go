// internal/model/campaign.go
package model

import "time"

// Campaign lifecycle: queued -> sending -> sent, driven only by the
// dispatcher.
const (
	CampaignQueued  = "queued"
	CampaignSending = "sending"
	CampaignSent    = "sent"
)

type Campaign struct {
	ID           int    `db:"id" json:"id"`
	Name         string `db:"name" json:"name"`
	TemplateName string `db:"template_name" json:"template_name"`
	Description  string `db:"description" json:"description,omitempty"`
	LanguageCode string `db:"language_code" json:"language_code"`

	// TargetCount is fixed at fan-out time. The four counters only ever
	// grow: sent/failed at dispatch time, delivered/read/failed as
	// callbacks are reconciled.
	TargetCount    int `db:"target_count" json:"target_count"`
	SentCount      int `db:"sent_count" json:"sent_count"`
	DeliveredCount int `db:"delivered_count" json:"delivered_count"`
	ReadCount      int `db:"read_count" json:"read_count"`
	FailedCount    int `db:"failed_count" json:"failed_count"`

	StatusFilter     string `db:"status_filter" json:"status_filter,omitempty"`
	CityFilter       string `db:"city_filter" json:"city_filter,omitempty"`
	PlanFilter       string `db:"plan_filter" json:"plan_filter,omitempty"`
	ExpiryDaysFilter *int   `db:"expiry_days_filter" json:"expiry_days_filter,omitempty"`

	Status       string     `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DispatchedAt *time.Time `db:"dispatched_at" json:"dispatched_at,omitempty"`
}
