package repository

import (
	"database/sql"
	"fmt"
	"time"

	appErrors "github.com/aurangzaib-ai/whatsapp-project/internal/errors"
	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
)

// SegmentFilter selects recipients for a fan-out. Empty fields match
// everything; ExpiryWithinDays keeps recipients whose expiry_date falls
// within the next N days.
type SegmentFilter struct {
	Status           string
	City             string
	Plan             string
	ExpiryWithinDays *int
}

// ListFilter narrows the recipient listing endpoint.
type ListFilter struct {
	Status  string
	City    string
	Plan    string
	OptedIn *bool
}

type RecipientRepositoryInterface interface {
	Create(r *model.Recipient) error
	Update(r *model.Recipient) error
	GetByID(id int) (*model.Recipient, error)
	GetByPhone(phone string) (*model.Recipient, error)
	List(offset, limit int, f ListFilter) ([]model.Recipient, int, error)
	ListEligible(f SegmentFilter) ([]model.Recipient, error)
	SetOptedOut(id int) error
}

type RecipientRepository struct {
	DB *sql.DB
}

const recipientColumns = `id, phone, full_name, email, status, city, plan, expiry_date, opted_in, last_message_id, created_at, updated_at`

func scanRecipient(row interface{ Scan(...any) error }) (*model.Recipient, error) {
	var r model.Recipient
	err := row.Scan(
		&r.ID, &r.Phone, &r.FullName, &r.Email, &r.Status, &r.City, &r.Plan,
		&r.ExpiryDate, &r.OptedIn, &r.LastMessageID, &r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func (r *RecipientRepository) Create(rec *model.Recipient) error {
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	query := `
        INSERT INTO recipients (phone, full_name, email, status, city, plan, expiry_date, opted_in, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
        RETURNING id
    `
	return r.DB.QueryRow(
		query,
		rec.Phone, rec.FullName, rec.Email, rec.Status, rec.City, rec.Plan,
		rec.ExpiryDate, rec.OptedIn, rec.CreatedAt, rec.UpdatedAt,
	).Scan(&rec.ID)
}

func (r *RecipientRepository) Update(rec *model.Recipient) error {
	query := `
        UPDATE recipients
        SET full_name=$1, email=$2, status=$3, city=$4, plan=$5, expiry_date=$6, opted_in=$7, updated_at=NOW()
        WHERE id=$8
    `
	res, err := r.DB.Exec(
		query,
		rec.FullName, rec.Email, rec.Status, rec.City, rec.Plan,
		rec.ExpiryDate, rec.OptedIn, rec.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewRecipientNotFound(rec.ID)
	}
	return nil
}

func (r *RecipientRepository) GetByID(id int) (*model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE id=$1`
	rec, err := scanRecipient(r.DB.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecipientRepository) GetByPhone(phone string) (*model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE phone=$1`
	rec, err := scanRecipient(r.DB.QueryRow(query, phone))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return rec, nil
}

func (r *RecipientRepository) List(offset, limit int, f ListFilter) ([]model.Recipient, int, error) {
	where := ` WHERE 1=1`
	args := []any{}
	argPos := 1

	if f.Status != "" {
		where += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, f.Status)
		argPos++
	}
	if f.City != "" {
		where += fmt.Sprintf(" AND city=$%d", argPos)
		args = append(args, f.City)
		argPos++
	}
	if f.Plan != "" {
		where += fmt.Sprintf(" AND plan=$%d", argPos)
		args = append(args, f.Plan)
		argPos++
	}
	if f.OptedIn != nil {
		where += fmt.Sprintf(" AND opted_in=$%d", argPos)
		args = append(args, *f.OptedIn)
		argPos++
	}

	var total int
	if err := r.DB.QueryRow(`SELECT COUNT(*) FROM recipients`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + recipientColumns + ` FROM recipients` + where +
		fmt.Sprintf(" ORDER BY id LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, 0, err
		}
		recipients = append(recipients, *rec)
	}
	return recipients, total, rows.Err()
}

// ListEligible returns opted-in recipients matching the segment filter. The
// opted_in predicate is applied here, in one place, so a fan-out can never
// include an opted-out recipient.
func (r *RecipientRepository) ListEligible(f SegmentFilter) ([]model.Recipient, error) {
	query := `SELECT ` + recipientColumns + ` FROM recipients WHERE opted_in=TRUE`
	args := []any{}
	argPos := 1

	if f.Status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, f.Status)
		argPos++
	}
	if f.City != "" {
		query += fmt.Sprintf(" AND city=$%d", argPos)
		args = append(args, f.City)
		argPos++
	}
	if f.Plan != "" {
		query += fmt.Sprintf(" AND plan=$%d", argPos)
		args = append(args, f.Plan)
		argPos++
	}
	if f.ExpiryWithinDays != nil {
		query += fmt.Sprintf(" AND expiry_date IS NOT NULL AND expiry_date <= NOW() + ($%d * INTERVAL '1 day')", argPos)
		args = append(args, *f.ExpiryWithinDays)
		argPos++
	}
	query += " ORDER BY id"

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	recipients := []model.Recipient{}
	for rows.Next() {
		rec, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, *rec)
	}
	return recipients, rows.Err()
}

// SetOptedOut flips the opt-in flag to false. Setting it when already false
// is a no-op by construction.
func (r *RecipientRepository) SetOptedOut(id int) error {
	_, err := r.DB.Exec(`UPDATE recipients SET opted_in=FALSE, updated_at=NOW() WHERE id=$1`, id)
	return err
}

var _ RecipientRepositoryInterface = (*RecipientRepository)(nil)
