package repository

import (
	"database/sql"
	"time"

	"github.com/aurangzaib-ai/whatsapp-project/internal/model"
)

type OptOutRepositoryInterface interface {
	Create(o *model.OptOut) error
	List(offset, limit int) ([]model.OptOut, error)
}

// OptOutRepository is the append-only opt-out audit trail. Recording is
// idempotent in effect, not in storage: a stop command from an already
// opted-out recipient still appends a row.
type OptOutRepository struct {
	DB *sql.DB
}

func (r *OptOutRepository) Create(o *model.OptOut) error {
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	query := `
        INSERT INTO optouts (recipient_id, phone, reason, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	return r.DB.QueryRow(query, o.RecipientID, o.Phone, o.Reason, o.CreatedAt).Scan(&o.ID)
}

func (r *OptOutRepository) List(offset, limit int) ([]model.OptOut, error) {
	query := `
        SELECT id, recipient_id, phone, reason, created_at
        FROM optouts
        ORDER BY id DESC
        LIMIT $1 OFFSET $2
    `
	rows, err := r.DB.Query(query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	optouts := []model.OptOut{}
	for rows.Next() {
		var o model.OptOut
		if err := rows.Scan(&o.ID, &o.RecipientID, &o.Phone, &o.Reason, &o.CreatedAt); err != nil {
			return nil, err
		}
		optouts = append(optouts, o)
	}
	return optouts, rows.Err()
}

var _ OptOutRepositoryInterface = (*OptOutRepository)(nil)
