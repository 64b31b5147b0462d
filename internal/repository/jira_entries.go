package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"timemachine/internal/models"
)

const jiraColumns = `id, entry_id, jira_issue_number, minutes_spent, description, jira_entry_id, last_synced_at`

type JiraEntries struct {
	db *sqlx.DB
}

func NewJiraEntries(db *sqlx.DB) *JiraEntries {
	return &JiraEntries{db: db}
}

func (r *JiraEntries) Create(ctx context.Context, e *models.JiraEntry) error {
	err := r.db.QueryRowxContext(ctx, `INSERT INTO jira_entries
		(entry_id, jira_issue_number, minutes_spent, description, jira_entry_id, last_synced_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		e.EntryID, e.IssueNumber, e.MinutesSpent, e.Description, e.RemoteID, e.LastSyncedAt).Scan(&e.ID)
	return mapError("create jira entry", err)
}

func (r *JiraEntries) GetByID(ctx context.Context, id int) (*models.JiraEntry, error) {
	var e models.JiraEntry
	if err := r.db.GetContext(ctx, &e, `SELECT `+jiraColumns+` FROM jira_entries WHERE id=$1`, id); err != nil {
		return nil, mapError("get jira entry", err)
	}
	return &e, nil
}

func (r *JiraEntries) ListByEntry(ctx context.Context, entryID int) ([]models.JiraEntry, error) {
	out := []models.JiraEntry{}
	if err := r.db.SelectContext(ctx, &out,
		`SELECT `+jiraColumns+` FROM jira_entries WHERE entry_id=$1 ORDER BY id`, entryID); err != nil {
		return nil, mapError("list jira entries", err)
	}
	return out, nil
}

func (r *JiraEntries) Update(ctx context.Context, e *models.JiraEntry) error {
	res, err := r.db.ExecContext(ctx, `UPDATE jira_entries SET
		minutes_spent=$1, description=$2, jira_entry_id=$3, last_synced_at=$4
		WHERE id=$5`,
		e.MinutesSpent, e.Description, e.RemoteID, e.LastSyncedAt, e.ID)
	if err != nil {
		return mapError("update jira entry", err)
	}
	return expectOneRow("update jira entry", res)
}

func (r *JiraEntries) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM jira_entries WHERE id=$1`, id)
	if err != nil {
		return mapError("delete jira entry", err)
	}
	return expectOneRow("delete jira entry", res)
}
