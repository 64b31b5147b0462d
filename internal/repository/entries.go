package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"timemachine/internal/models"
)

type Entries struct {
	db *sqlx.DB
}

func NewEntries(db *sqlx.DB) *Entries {
	return &Entries{db: db}
}

func (r *Entries) Create(ctx context.Context, e *models.Entry) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO entries (user_id, date_created) VALUES ($1, $2) RETURNING id`,
		e.UserID, e.DateCreated).Scan(&e.ID)
	return mapError("create entry", err)
}

// GetOrCreate returns the user's Entry for date, inserting it if needed.
func (r *Entries) GetOrCreate(ctx context.Context, userID int, date time.Time) (*models.Entry, error) {
	var e models.Entry
	err := r.db.QueryRowxContext(ctx, `INSERT INTO entries (user_id, date_created)
		VALUES ($1, $2)
		ON CONFLICT (user_id, date_created)
		DO UPDATE SET date_created = EXCLUDED.date_created
		RETURNING id, user_id, date_created`, userID, date).StructScan(&e)
	if err != nil {
		return nil, mapError("get or create entry", err)
	}
	return &e, nil
}

func (r *Entries) GetByID(ctx context.Context, id int) (*models.Entry, error) {
	var e models.Entry
	if err := r.db.GetContext(ctx, &e, `SELECT id, user_id, date_created FROM entries WHERE id=$1`, id); err != nil {
		return nil, mapError("get entry", err)
	}
	return &e, nil
}

func (r *Entries) GetByUserAndDate(ctx context.Context, userID int, date time.Time) (*models.Entry, error) {
	var e models.Entry
	if err := r.db.GetContext(ctx, &e,
		`SELECT id, user_id, date_created FROM entries WHERE user_id=$1 AND date_created=$2`, userID, date); err != nil {
		return nil, mapError("get entry by date", err)
	}
	return &e, nil
}

// List returns the newest entries first, optionally bounded by date.
func (r *Entries) List(ctx context.Context, userID int, from, to *time.Time) ([]models.Entry, error) {
	where := "WHERE user_id=$1"
	args := []interface{}{userID}

	if from != nil {
		args = append(args, *from)
		where += fmt.Sprintf(" AND date_created >= $%d", len(args))
	}
	if to != nil {
		args = append(args, *to)
		where += fmt.Sprintf(" AND date_created <= $%d", len(args))
	}

	out := []models.Entry{}
	query := "SELECT id, user_id, date_created FROM entries " + where + " ORDER BY date_created DESC LIMIT 100"
	if err := r.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, mapError("list entries", err)
	}
	return out, nil
}

// Delete fails with models.ErrEntryInUse while child rows reference the entry.
func (r *Entries) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM entries WHERE id=$1`, id)
	if err != nil {
		return mapError("delete entry", err)
	}
	return expectOneRow("delete entry", res)
}
