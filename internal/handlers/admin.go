package handlers

import (
	"errors"
	"net/http"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"timemachine/internal/models"
	"timemachine/internal/repository"
)

type AdminHandler struct {
	db     *sqlx.DB
	users  repository.UserRepository
	logger *zap.Logger
}

func NewAdminHandler(db *sqlx.DB, users repository.UserRepository, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{db: db, users: users, logger: logger}
}

type adminOverview struct {
	TotalUsers          int `json:"total_users" db:"total_users"`
	TotalEntries        int `json:"total_entries" db:"total_entries"`
	TotalJiraEntries    int `json:"total_jira_entries" db:"total_jira_entries"`
	TotalRiseEntries    int `json:"total_rise_entries" db:"total_rise_entries"`
	UnsyncedJiraEntries int `json:"unsynced_jira_entries" db:"unsynced_jira_entries"`
	UnsyncedRiseEntries int `json:"unsynced_rise_entries" db:"unsynced_rise_entries"`
	ActiveUsersThisWeek int `json:"active_users_this_week" db:"active_users_this_week"`
}

// mustBeAdmin checks the current user is admin
func (h *AdminHandler) mustBeAdmin(r *http.Request) (bool, error) {
	u, err := h.users.GetByID(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return u.IsAdmin, nil
}

// Overview returns sync health across all users (admin only).
func (h *AdminHandler) Overview(w http.ResponseWriter, r *http.Request) {
	if ok, err := h.mustBeAdmin(r); err != nil {
		writeError(w, h.logger, err)
		return
	} else if !ok {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	var out adminOverview
	err := h.db.GetContext(r.Context(), &out, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COUNT(*) FROM entries) AS total_entries,
			(SELECT COUNT(*) FROM jira_entries) AS total_jira_entries,
			(SELECT COUNT(*) FROM rise_entries) AS total_rise_entries,
			(SELECT COUNT(*) FROM jira_entries WHERE jira_entry_id = '') AS unsynced_jira_entries,
			(SELECT COUNT(*) FROM rise_entries WHERE rise_entry_id = '') AS unsynced_rise_entries,
			(SELECT COUNT(DISTINCT user_id) FROM entries
				WHERE date_created >= date_trunc('week', CURRENT_DATE) AND date_created <= CURRENT_DATE) AS active_users_this_week`)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, out)
}
