package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	appErrors "github.com/aurangzaib-ai/whatsapp-project/internal/errors"
	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
)

// QueuedMessage is one unit of work for the dispatcher: a still-queued
// message joined with the recipient's phone.
type QueuedMessage struct {
	MessageID   int
	RecipientID int
	Phone       string
}

type CampaignRepositoryInterface interface {
	// Campaign side
	CreateWithMessages(c *model.Campaign, recipientIDs []int) error
	GetByID(id int) (*model.Campaign, error)
	List(offset, limit int, status string) ([]*model.Campaign, int, error)
	UpdateStatus(campaignID int, status string) error
	MarkDispatched(campaignID int) error

	// Message ledger
	ListQueuedMessages(campaignID int) ([]QueuedMessage, error)
	MarkMessageSent(msgID, campaignID, recipientID int, providerMessageID string) (bool, error)
	MarkMessageFailed(msgID, campaignID int, detail string) (bool, error)
	AdvanceMessageStatus(msgID, campaignID int, to model.MessageStatus, errorDetail string) (bool, error)
	GetMessageByProviderID(providerMessageID string) (*model.Message, error)
	GetMessageByID(id int) (*model.Message, error)
	MessageStats(campaignID int) (map[string]int, error)
}

// CampaignRepository owns the campaign aggregate and its message ledger.
// Counter updates are plain SQL increments so they stay correct under
// concurrent workers, and every status change is a conditional UPDATE keyed
// on the allowed previous states.
type CampaignRepository struct {
	DB *sql.DB
}

const campaignColumns = `id, name, template_name, description, language_code,
        target_count, sent_count, delivered_count, read_count, failed_count,
        status_filter, city_filter, plan_filter, expiry_days_filter,
        status, created_at, dispatched_at`

func scanCampaign(row interface{ Scan(...any) error }) (*model.Campaign, error) {
	var c model.Campaign
	err := row.Scan(
		&c.ID, &c.Name, &c.TemplateName, &c.Description, &c.LanguageCode,
		&c.TargetCount, &c.SentCount, &c.DeliveredCount, &c.ReadCount, &c.FailedCount,
		&c.StatusFilter, &c.CityFilter, &c.PlanFilter, &c.ExpiryDaysFilter,
		&c.Status, &c.CreatedAt, &c.DispatchedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ====================== Campaign ======================

// CreateWithMessages persists the campaign and one queued message per
// recipient in a single transaction. A crash mid-insert leaves nothing
// behind, so target_count can never disagree with the message set.
func (r *CampaignRepository) CreateWithMessages(c *model.Campaign, recipientIDs []int) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.CampaignQueued
	}
	c.TargetCount = len(recipientIDs)

	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO campaigns (name, template_name, description, language_code, target_count,
                               status_filter, city_filter, plan_filter, expiry_days_filter,
                               status, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id
    `
	err = tx.QueryRow(
		query,
		c.Name, c.TemplateName, c.Description, c.LanguageCode, c.TargetCount,
		c.StatusFilter, c.CityFilter, c.PlanFilter, c.ExpiryDaysFilter,
		c.Status, c.CreatedAt,
	).Scan(&c.ID)
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
        INSERT INTO messages (campaign_id, recipient_id, status, template_name, created_at)
        VALUES ($1, $2, $3, $4, $5)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, recipientID := range recipientIDs {
		if _, err := stmt.Exec(c.ID, recipientID, model.StatusQueued, c.TemplateName, c.CreatedAt); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *CampaignRepository) GetByID(id int) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id=$1`
	c, err := scanCampaign(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}
	return c, nil
}

func (r *CampaignRepository) List(offset, limit int, status string) ([]*model.Campaign, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM campaigns`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + campaignColumns + ` FROM campaigns` + where +
		fmt.Sprintf(" ORDER BY id DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

func (r *CampaignRepository) UpdateStatus(campaignID int, status string) error {
	_, err := r.DB.Exec(`UPDATE campaigns SET status=$1 WHERE id=$2`, status, campaignID)
	return err
}

// MarkDispatched stamps the first dispatch time; later re-dispatches keep
// the original stamp.
func (r *CampaignRepository) MarkDispatched(campaignID int) error {
	_, err := r.DB.Exec(
		`UPDATE campaigns SET status=$1, dispatched_at=COALESCE(dispatched_at, NOW()) WHERE id=$2`,
		model.CampaignSending, campaignID,
	)
	return err
}

// ====================== Message ledger ======================

// ListQueuedMessages snapshots the still-queued messages of a campaign.
// Messages that leave `queued` after this call are skipped by the
// conditional updates below, which is what makes re-dispatch idempotent.
func (r *CampaignRepository) ListQueuedMessages(campaignID int) ([]QueuedMessage, error) {
	query := `
        SELECT m.id, m.recipient_id, r.phone
        FROM messages m
        JOIN recipients r ON r.id = m.recipient_id
        WHERE m.campaign_id=$1 AND m.status=$2
        ORDER BY m.id
    `
	rows, err := r.DB.Query(query, campaignID, model.StatusQueued)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	queued := []QueuedMessage{}
	for rows.Next() {
		var q QueuedMessage
		if err := rows.Scan(&q.MessageID, &q.RecipientID, &q.Phone); err != nil {
			return nil, err
		}
		queued = append(queued, q)
	}
	return queued, rows.Err()
}

// MarkMessageSent records a successful provider send as one atomic unit:
// the queued->sent transition, the sent counter, the provider-id index and
// the recipient's last-outbound pointer all land in the same transaction.
// Returns false when the message already left `queued`.
func (r *CampaignRepository) MarkMessageSent(msgID, campaignID, recipientID int, providerMessageID string) (bool, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
        UPDATE messages
        SET status=$1, provider_message_id=$2, sent_at=NOW()
        WHERE id=$3 AND status=$4
    `, model.StatusSent, providerMessageID, msgID, model.StatusQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE campaigns SET sent_count=sent_count+1 WHERE id=$1`, campaignID); err != nil {
		return false, err
	}

	// Last write wins: a newer send for the same recipient overwrites the
	// reply-correlation pointer.
	if _, err := tx.Exec(`UPDATE recipients SET last_message_id=$1, updated_at=NOW() WHERE id=$2`, msgID, recipientID); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// MarkMessageFailed records a failed provider send. Only a still-queued
// message can fail at dispatch time; callback-reported failures go through
// AdvanceMessageStatus.
func (r *CampaignRepository) MarkMessageFailed(msgID, campaignID int, detail string) (bool, error) {
	tx, err := r.DB.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
        UPDATE messages
        SET status=$1, error_detail=$2, failed_at=NOW()
        WHERE id=$3 AND status=$4
    `, model.StatusFailed, detail, msgID, model.StatusQueued)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	if _, err := tx.Exec(`UPDATE campaigns SET failed_count=failed_count+1 WHERE id=$1`, campaignID); err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// AdvanceMessageStatus applies a callback transition if and only if it is a
// forward edge from the current state, and bumps the matching campaign
// counter exactly once. Duplicate or out-of-order callbacks affect zero rows
// and return false.
func (r *CampaignRepository) AdvanceMessageStatus(msgID, campaignID int, to model.MessageStatus, errorDetail string) (bool, error) {
	allowed := model.AllowedFrom(to)
	if len(allowed) == 0 {
		return false, nil
	}
	from := make([]string, len(allowed))
	for i, s := range allowed {
		from[i] = string(s)
	}

	var set string
	switch to {
	case model.StatusSent:
		set = `status=$1, sent_at=NOW()`
	case model.StatusDelivered:
		set = `status=$1, delivered_at=NOW()`
	case model.StatusRead:
		set = `status=$1, read_at=NOW()`
	case model.StatusFailed:
		set = `status=$1, error_detail=$4, failed_at=NOW()`
	default:
		return false, nil
	}

	tx, err := r.DB.Begin()
	if err != nil {
		return false, err
	}
	defer tx.Rollback()

	query := `UPDATE messages SET ` + set + ` WHERE id=$2 AND status = ANY($3)`
	args := []any{string(to), msgID, pq.Array(from)}
	if to == model.StatusFailed {
		args = append(args, errorDetail)
	}

	res, err := tx.Exec(query, args...)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n == 0 {
		return false, nil
	}

	// The dispatcher already counted `sent` at send time; a sent callback
	// only stamps the timestamp.
	var counter string
	switch to {
	case model.StatusDelivered:
		counter = "delivered_count"
	case model.StatusRead:
		counter = "read_count"
	case model.StatusFailed:
		counter = "failed_count"
	}
	if counter != "" {
		if _, err := tx.Exec(`UPDATE campaigns SET `+counter+`=`+counter+`+1 WHERE id=$1`, campaignID); err != nil {
			return false, err
		}
	}

	return true, tx.Commit()
}

const messageColumns = `id, campaign_id, recipient_id, status, template_name,
        provider_message_id, error_detail, created_at, sent_at, delivered_at, read_at, failed_at`

func scanMessage(row interface{ Scan(...any) error }) (*model.Message, error) {
	var m model.Message
	err := row.Scan(
		&m.ID, &m.CampaignID, &m.RecipientID, &m.Status, &m.TemplateName,
		&m.ProviderMessageID, &m.ErrorDetail, &m.CreatedAt,
		&m.SentAt, &m.DeliveredAt, &m.ReadAt, &m.FailedAt,
	)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetMessageByProviderID is the idempotency-index lookup used by the
// callback reconciler. Unknown ids return nil, not an error.
func (r *CampaignRepository) GetMessageByProviderID(providerMessageID string) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE provider_message_id=$1`
	m, err := scanMessage(r.DB.QueryRow(query, providerMessageID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *CampaignRepository) GetMessageByID(id int) (*model.Message, error) {
	query := `SELECT ` + messageColumns + ` FROM messages WHERE id=$1`
	m, err := scanMessage(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

func (r *CampaignRepository) MessageStats(campaignID int) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM messages WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{
		string(model.StatusQueued):    0,
		string(model.StatusSent):      0,
		string(model.StatusDelivered): 0,
		string(model.StatusRead):      0,
		string(model.StatusFailed):    0,
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
