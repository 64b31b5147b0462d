package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"timemachine/internal/models"
	"timemachine/internal/rise"
	"timemachine/internal/services"
)

// EntryCommands is the slice of services.EntryService the HTTP layer uses.
type EntryCommands interface {
	CreateEntry(ctx context.Context, userID int, date time.Time) (*models.Entry, error)
	GetEntry(ctx context.Context, userID, id int) (*models.EntryDetail, error)
	ListEntries(ctx context.Context, userID int, from, to *time.Time) ([]models.Entry, error)
	DeleteEntry(ctx context.Context, userID, id int) error
	SyncPending(ctx context.Context, userID, entryID int) (*services.SyncResult, error)
	SaveJiraEntry(ctx context.Context, userID int, in services.JiraEntryInput) (*services.JiraSaveResult, error)
	DeleteJiraEntry(ctx context.Context, userID, id int) (*services.DeleteResult, error)
	SaveRiseEntry(ctx context.Context, userID int, in services.RiseEntryInput) (*services.RiseSaveResult, error)
	DeleteRiseEntry(ctx context.Context, userID, id int) (*services.DeleteResult, error)
	ListAssignments(ctx context.Context, userID int, q string) ([]rise.Choice, error)
}

type EntryHandler struct {
	svc    EntryCommands
	logger *zap.Logger
}

func NewEntryHandler(svc EntryCommands, logger *zap.Logger) *EntryHandler {
	return &EntryHandler{svc: svc, logger: logger}
}

func idParam(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	return id, err == nil && id > 0
}

// List accepts optional start_date and end_date (YYYY-MM-DD).
func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDateParam(q.Get("start_date"))
	if err != nil {
		badRequest(w, "invalid start_date format; expected YYYY-MM-DD")
		return
	}
	to, err := parseDateParam(q.Get("end_date"))
	if err != nil {
		badRequest(w, "invalid end_date format; expected YYYY-MM-DD")
		return
	}

	entries, err := h.svc.ListEntries(r.Context(), userID(r), from, to)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	out := make([]EntryDTO, 0, len(entries))
	for _, e := range entries {
		out = append(out, ToEntryDTO(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *EntryHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DateCreated string `json:"date_created"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	d, err := time.Parse(dateLayout, body.DateCreated)
	if err != nil {
		badRequest(w, "invalid date_created format; expected YYYY-MM-DD")
		return
	}

	e, err := h.svc.CreateEntry(r.Context(), userID(r), d)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ToEntryDTO(*e))
}

func (h *EntryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	d, err := h.svc.GetEntry(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ToEntryDetailDTO(*d))
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	if err := h.svc.DeleteEntry(r.Context(), userID(r), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Sync retries the remote create for every unsynced child of the entry.
func (h *EntryHandler) Sync(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	res, err := h.svc.SyncPending(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type jiraEntryRequest struct {
	DateCreated  string `json:"date_created"`
	IssueNumber  string `json:"jira_issue_number"`
	MinutesSpent int    `json:"minutes_spent"`
	Description  string `json:"description"`
}

func (h *EntryHandler) CreateJiraEntry(w http.ResponseWriter, r *http.Request) {
	var body jiraEntryRequest
	if err := decode(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	d, err := time.Parse(dateLayout, body.DateCreated)
	if err != nil {
		badRequest(w, "invalid date_created format; expected YYYY-MM-DD")
		return
	}

	res, err := h.svc.SaveJiraEntry(r.Context(), userID(r), services.JiraEntryInput{
		Date:         d,
		IssueNumber:  body.IssueNumber,
		MinutesSpent: body.MinutesSpent,
		Description:  body.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (h *EntryHandler) UpdateJiraEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	var body jiraEntryRequest
	if err := decode(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}

	res, err := h.svc.SaveJiraEntry(r.Context(), userID(r), services.JiraEntryInput{
		ID:           id,
		IssueNumber:  body.IssueNumber,
		MinutesSpent: body.MinutesSpent,
		Description:  body.Description,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *EntryHandler) DeleteJiraEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	res, err := h.svc.DeleteJiraEntry(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// SaveRiseEntry upserts the Rise log for date_created.
func (h *EntryHandler) SaveRiseEntry(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DateCreated  string           `json:"date_created"`
		Value        string           `json:"value"`
		HoursWorked  *decimal.Decimal `json:"hours_worked"`
		AssignmentID string           `json:"rise_assignment_id"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	d, err := time.Parse(dateLayout, body.DateCreated)
	if err != nil {
		badRequest(w, "invalid date_created format; expected YYYY-MM-DD")
		return
	}

	res, err := h.svc.SaveRiseEntry(r.Context(), userID(r), services.RiseEntryInput{
		Date:         d,
		Value:        body.Value,
		HoursWorked:  body.HoursWorked,
		AssignmentID: body.AssignmentID,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *EntryHandler) DeleteRiseEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		badRequest(w, "invalid id")
		return
	}
	res, err := h.svc.DeleteRiseEntry(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Assignments is the searchable dropdown source; q filters labels.
func (h *EntryHandler) Assignments(w http.ResponseWriter, r *http.Request) {
	choices, err := h.svc.ListAssignments(r.Context(), userID(r), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, choices)
}
