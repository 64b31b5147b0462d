package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type User struct {
	ID           int       `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	FirstName    *string   `db:"first_name" json:"first_name,omitempty"`
	LastName     *string   `db:"last_name" json:"last_name,omitempty"`
	IsAdmin      bool      `db:"is_admin" json:"is_admin"`

	RiseAPIKey       string `db:"rise_api_key" json:"-"` // Encrypted in DB
	RiseUserID       *int   `db:"rise_user_id" json:"-"`
	JiraAPIKey       string `db:"jira_api_key" json:"-"`       // Encrypted in DB
	JiraEmailAddress string `db:"jira_email_address" json:"-"` // Encrypted in DB
	JiraURL          string `db:"jira_url" json:"-"`
}

// Entry is one user's working day. It has no remote counterpart.
type Entry struct {
	ID          int       `db:"id" json:"id"`
	UserID      int       `db:"user_id" json:"user_id"`
	DateCreated time.Time `db:"date_created" json:"date_created"`
}

// JiraEntry is a worklog against one Jira issue on the day of its Entry.
type JiraEntry struct {
	ID           int        `db:"id" json:"id"`
	EntryID      int        `db:"entry_id" json:"entry_id"`
	IssueNumber  string     `db:"jira_issue_number" json:"jira_issue_number"`
	MinutesSpent int        `db:"minutes_spent" json:"minutes_spent"`
	Description  string     `db:"description" json:"description"`
	RemoteID     string     `db:"jira_entry_id" json:"jira_entry_id"`
	LastSyncedAt *time.Time `db:"last_synced_at" json:"last_synced_at"`
}

// Synced reports whether Jira has acknowledged the worklog.
func (e JiraEntry) Synced() bool {
	return e.RemoteID != ""
}

type LogType string

const (
	LogTypeAssignment LogType = "assignment"
	LogTypeProject    LogType = "project"
)

// DefaultHoursWorked is a full working day.
var DefaultHoursWorked = decimal.NewFromInt(8)

// RiseEntry is the single Rise timesheet log for an Entry.
type RiseEntry struct {
	ID             int             `db:"id" json:"id"`
	EntryID        int             `db:"entry_id" json:"entry_id"`
	Value          string          `db:"value" json:"value"`
	HoursWorked    decimal.Decimal `db:"hours_worked" json:"hours_worked"`
	RemoteID       string          `db:"rise_entry_id" json:"rise_entry_id"`
	AssignmentID   string          `db:"rise_assignment_id" json:"rise_assignment_id"`
	AssignmentName string          `db:"rise_assignment_name" json:"rise_assignment_name"`
	LastSyncedAt   *time.Time      `db:"last_synced_at" json:"last_synced_at"`
	LogType        LogType         `db:"log_type" json:"log_type"`
}

// Synced reports whether Rise has acknowledged the log.
func (e RiseEntry) Synced() bool {
	return e.RemoteID != ""
}

// EntryDetail is an Entry together with its child records.
type EntryDetail struct {
	Entry
	JiraEntries []JiraEntry `json:"jira_entries"`
	RiseEntry   *RiseEntry  `json:"rise_entry"`
}
