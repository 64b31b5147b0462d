package handlers

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewDashboardHandler(db *sqlx.DB, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{db: db, logger: logger}
}

type trendPoint struct {
	Date        string          `json:"date" db:"d"`
	Minutes     int             `json:"jira_minutes" db:"minutes"`
	HoursWorked decimal.Decimal `json:"rise_hours" db:"hours"`
}

type dashboardResponse struct {
	ReferenceDate      string          `json:"reference_date"`
	HasTodayEntry      bool            `json:"has_today_entry"`
	DayMinutes         int             `json:"day_jira_minutes"`
	WeekMinutes        int             `json:"week_jira_minutes"`
	MonthMinutes       int             `json:"month_jira_minutes"`
	DayHours           decimal.Decimal `json:"day_rise_hours"`
	WeekHours          decimal.Decimal `json:"week_rise_hours"`
	MonthHours         decimal.Decimal `json:"month_rise_hours"`
	PendingJiraEntries int             `json:"pending_jira_entries"`
	PendingRiseEntries int             `json:"pending_rise_entries"`
	Last7DaysTrend     []trendPoint    `json:"last7_days_trend"`
}

// Get aggregates logged time and pending sync counts.
// Accepts optional query param: local_date=YYYY-MM-DD to use as the user's "today".
func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	uid := userID(r)

	refDate, err := parseDateParam(r.URL.Query().Get("local_date"))
	if err != nil {
		badRequest(w, "invalid local_date format; expected YYYY-MM-DD")
		return
	}
	if refDate == nil {
		var today time.Time
		// Use database's CURRENT_DATE as canonical reference
		if err := h.db.QueryRowxContext(ctx, "SELECT CURRENT_DATE").Scan(&today); err != nil {
			writeError(w, h.logger, err)
			return
		}
		refDate = &today
	}

	resp := dashboardResponse{ReferenceDate: refDate.Format(dateLayout)}

	jiraAgg := `
		SELECT
			COALESCE(SUM(j.minutes_spent) FILTER (WHERE e.date_created = $2), 0),
			COALESCE(SUM(j.minutes_spent) FILTER (WHERE e.date_created >= date_trunc('week', $2::timestamp)::date AND e.date_created <= $2), 0),
			COALESCE(SUM(j.minutes_spent) FILTER (WHERE date_trunc('month', e.date_created) = date_trunc('month', $2::date)), 0),
			COUNT(*) FILTER (WHERE j.jira_entry_id = '')
		FROM jira_entries j
		JOIN entries e ON e.id = j.entry_id
		WHERE e.user_id = $1`
	if err := h.db.QueryRowxContext(ctx, jiraAgg, uid, *refDate).Scan(
		&resp.DayMinutes, &resp.WeekMinutes, &resp.MonthMinutes, &resp.PendingJiraEntries); err != nil {
		writeError(w, h.logger, err)
		return
	}

	riseAgg := `
		SELECT
			COALESCE(SUM(r.hours_worked) FILTER (WHERE e.date_created = $2), 0),
			COALESCE(SUM(r.hours_worked) FILTER (WHERE e.date_created >= date_trunc('week', $2::timestamp)::date AND e.date_created <= $2), 0),
			COALESCE(SUM(r.hours_worked) FILTER (WHERE date_trunc('month', e.date_created) = date_trunc('month', $2::date)), 0),
			COUNT(*) FILTER (WHERE r.rise_entry_id = '')
		FROM rise_entries r
		JOIN entries e ON e.id = r.entry_id
		WHERE e.user_id = $1`
	if err := h.db.QueryRowxContext(ctx, riseAgg, uid, *refDate).Scan(
		&resp.DayHours, &resp.WeekHours, &resp.MonthHours, &resp.PendingRiseEntries); err != nil {
		writeError(w, h.logger, err)
		return
	}

	if err := h.db.QueryRowxContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM entries WHERE user_id=$1 AND date_created=$2)`,
		uid, *refDate).Scan(&resp.HasTodayEntry); err != nil {
		writeError(w, h.logger, err)
		return
	}

	// Last 7 days ending at reference date (inclusive)
	var rows []struct {
		D       time.Time       `db:"d"`
		Minutes int             `db:"minutes"`
		Hours   decimal.Decimal `db:"hours"`
	}
	err = h.db.SelectContext(ctx, &rows, `
		SELECT d::date AS d,
			COALESCE((SELECT SUM(j.minutes_spent) FROM jira_entries j WHERE j.entry_id = e.id), 0) AS minutes,
			COALESCE((SELECT r.hours_worked FROM rise_entries r WHERE r.entry_id = e.id), 0) AS hours
		FROM generate_series($2::date - INTERVAL '6 days', $2::date, INTERVAL '1 day') AS d
		LEFT JOIN entries e ON e.user_id = $1 AND e.date_created = d::date
		ORDER BY d`, uid, *refDate)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	resp.Last7DaysTrend = make([]trendPoint, 0, len(rows))
	for _, row := range rows {
		resp.Last7DaysTrend = append(resp.Last7DaysTrend, trendPoint{
			Date:        row.D.Format(dateLayout),
			Minutes:     row.Minutes,
			HoursWorked: row.Hours,
		})
	}

	writeJSON(w, http.StatusOK, resp)
}
