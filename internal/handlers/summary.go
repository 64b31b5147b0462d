package handlers

import (
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type SummaryHandler struct {
	db     *sqlx.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewSummaryHandler(db *sqlx.DB, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{db: db, logger: logger, now: time.Now}
}

type periodTotals struct {
	JiraMinutes int             `json:"jira_minutes"`
	RiseHours   decimal.Decimal `json:"rise_hours"`
}

type summaryResponse struct {
	Today     periodTotals `json:"today"`
	ThisWeek  periodTotals `json:"this_week"`
	ThisMonth periodTotals `json:"this_month"`
}

// GetSummary totals logged time for today, this week (from Monday) and this month.
func (h *SummaryHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	now := h.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := today.AddDate(0, 0, -((int(today.Weekday()) + 6) % 7))
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	var res summaryResponse
	periods := []struct {
		from time.Time
		out  *periodTotals
	}{
		{today, &res.Today},
		{weekStart, &res.ThisWeek},
		{monthStart, &res.ThisMonth},
	}
	for _, p := range periods {
		err := h.db.QueryRowxContext(r.Context(), `
			SELECT
				COALESCE((SELECT SUM(j.minutes_spent) FROM jira_entries j JOIN entries e ON e.id = j.entry_id
					WHERE e.user_id = $1 AND e.date_created BETWEEN $2 AND $3), 0),
				COALESCE((SELECT SUM(r.hours_worked) FROM rise_entries r JOIN entries e ON e.id = r.entry_id
					WHERE e.user_id = $1 AND e.date_created BETWEEN $2 AND $3), 0)`,
			uid, p.from, today).Scan(&p.out.JiraMinutes, &p.out.RiseHours)
		if err != nil {
			writeError(w, h.logger, err)
			return
		}
	}

	writeJSON(w, http.StatusOK, res)
}
