package repository

import (
	"database/sql"
	"time"

	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
)

type ResponseRepositoryInterface interface {
	Create(resp *model.Response) error
	ListByCampaign(campaignID, offset, limit int) ([]model.Response, error)
	PurgeOlderThan(maxAge time.Duration) (int64, error)
	TrimToCount(maxCount int) (int64, error)
}

// ResponseRepository is an append-ordered store of inbound replies with a
// bounded retention policy enforced by the purge sweep.
type ResponseRepository struct {
	DB *sql.DB
}

func (r *ResponseRepository) Create(resp *model.Response) error {
	if resp.ReceivedAt.IsZero() {
		resp.ReceivedAt = time.Now()
	}
	query := `
        INSERT INTO responses (message_id, recipient_id, campaign_id, kind, button_id, button_title, received_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		resp.MessageID, resp.RecipientID, resp.CampaignID,
		resp.Kind, resp.ButtonID, resp.ButtonTitle, resp.ReceivedAt,
	).Scan(&resp.ID)
}

func (r *ResponseRepository) ListByCampaign(campaignID, offset, limit int) ([]model.Response, error) {
	query := `
        SELECT id, message_id, recipient_id, campaign_id, kind, button_id, button_title, received_at
        FROM responses
        WHERE campaign_id=$1
        ORDER BY id DESC
        LIMIT $2 OFFSET $3
    `
	rows, err := r.DB.Query(query, campaignID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	responses := []model.Response{}
	for rows.Next() {
		var resp model.Response
		if err := rows.Scan(
			&resp.ID, &resp.MessageID, &resp.RecipientID, &resp.CampaignID,
			&resp.Kind, &resp.ButtonID, &resp.ButtonTitle, &resp.ReceivedAt,
		); err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, rows.Err()
}

// PurgeOlderThan deletes responses received before now-maxAge.
func (r *ResponseRepository) PurgeOlderThan(maxAge time.Duration) (int64, error) {
	res, err := r.DB.Exec(`DELETE FROM responses WHERE received_at < $1`, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// TrimToCount keeps only the newest maxCount responses.
func (r *ResponseRepository) TrimToCount(maxCount int) (int64, error) {
	res, err := r.DB.Exec(`
        DELETE FROM responses
        WHERE id NOT IN (SELECT id FROM responses ORDER BY id DESC LIMIT $1)
    `, maxCount)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

var _ ResponseRepositoryInterface = (*ResponseRepository)(nil)
