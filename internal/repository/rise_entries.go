package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"timemachine/internal/models"
)

const riseColumns = `id, entry_id, value, hours_worked, rise_entry_id, rise_assignment_id,
	rise_assignment_name, last_synced_at, log_type`

type RiseEntries struct {
	db *sqlx.DB
}

func NewRiseEntries(db *sqlx.DB) *RiseEntries {
	return &RiseEntries{db: db}
}

func (r *RiseEntries) Create(ctx context.Context, e *models.RiseEntry) error {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO rise_entries
		(entry_id, value, hours_worked, rise_entry_id, rise_assignment_id, rise_assignment_name, last_synced_at, log_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		e.EntryID, e.Value, e.HoursWorked, e.RemoteID, e.AssignmentID, e.AssignmentName, e.LastSyncedAt, e.LogType).Scan(&e.ID)
	return mapError("create rise entry", err)
}

func (r *RiseEntries) GetByID(ctx context.Context, id int) (*models.RiseEntry, error) {
	var e models.RiseEntry
	if err := r.db.GetContext(ctx, &e, `SELECT `+riseColumns+` FROM rise_entries WHERE id=$1`, id); err != nil {
		return nil, mapError("get rise entry", err)
	}
	return &e, nil
}

func (r *RiseEntries) GetByEntry(ctx context.Context, entryID int) (*models.RiseEntry, error) {
	var e models.RiseEntry
	if err := r.db.GetContext(ctx, &e, `SELECT `+riseColumns+` FROM rise_entries WHERE entry_id=$1`, entryID); err != nil {
		return nil, mapError("get rise entry by entry", err)
	}
	return &e, nil
}

func (r *RiseEntries) Update(ctx context.Context, e *models.RiseEntry) error {
	res, err := r.db.ExecContext(ctx, `UPDATE rise_entries SET
		value=$1, hours_worked=$2, rise_entry_id=$3, rise_assignment_id=$4,
		rise_assignment_name=$5, last_synced_at=$6, log_type=$7
		WHERE id=$8`,
		e.Value, e.HoursWorked, e.RemoteID, e.AssignmentID, e.AssignmentName, e.LastSyncedAt, e.LogType, e.ID)
	if err != nil {
		return mapError("update rise entry", err)
	}
	return expectOneRow("update rise entry", res)
}

func (r *RiseEntries) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM rise_entries WHERE id=$1`, id)
	if err != nil {
		return mapError("delete rise entry", err)
	}
	return expectOneRow("delete rise entry", res)
}
