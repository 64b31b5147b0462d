package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"timemachine/internal/httpclient"
	"timemachine/internal/models"
	"timemachine/internal/repository"
	"timemachine/internal/rise"
)

// JiraSyncer forwards JiraEntry changes to Jira.
type JiraSyncer interface {
	CheckCredentials(user *models.User) error
	Create(ctx context.Context, je *models.JiraEntry) error
	Update(ctx context.Context, je *models.JiraEntry) error
	Delete(ctx context.Context, je *models.JiraEntry) error
}

// RiseSyncer forwards RiseEntry changes to Rise.
type RiseSyncer interface {
	CheckCredentials(user *models.User) error
	ListAssignments(ctx context.Context, user *models.User) ([]rise.Choice, error)
	GetAssignment(ctx context.Context, user *models.User, id string) (rise.Assignment, error)
	Create(ctx context.Context, re *models.RiseEntry) error
	Update(ctx context.Context, re *models.RiseEntry) error
	Delete(ctx context.Context, re *models.RiseEntry) error
}

var maxHoursWorked = decimal.NewFromInt(24)

// JiraEntryInput is a create (ID == 0) or an edit of a JiraEntry.
type JiraEntryInput struct {
	ID           int
	Date         time.Time
	IssueNumber  string
	MinutesSpent int
	Description  string
}

// RiseEntryInput upserts the RiseEntry for the given day.
type RiseEntryInput struct {
	Date         time.Time
	Value        string
	HoursWorked  *decimal.Decimal
	AssignmentID string
}

// JiraSaveResult is the stored row plus the sync outcome. A non-empty
// SyncWarning means the row was saved but Jira was not updated.
type JiraSaveResult struct {
	Entry       models.JiraEntry `json:"entry"`
	SyncWarning string           `json:"sync_warning,omitempty"`
}

type RiseSaveResult struct {
	Entry       models.RiseEntry `json:"entry"`
	SyncWarning string           `json:"sync_warning,omitempty"`
}

// DeleteResult reports a failed remote delete. The local row is gone either way.
type DeleteResult struct {
	RemoteWarning string `json:"remote_warning,omitempty"`
}

// SyncResult summarises a SyncPending run.
type SyncResult struct {
	Attempted int      `json:"attempted"`
	Synced    int      `json:"synced"`
	Warnings  []string `json:"warnings,omitempty"`
}

// EntryService owns the Entry aggregate: local persistence first, then one
// remote call per changed child.
type EntryService struct {
	users       repository.UserRepository
	entries     repository.EntryRepository
	jiraEntries repository.JiraEntryRepository
	riseEntries repository.RiseEntryRepository
	jira        JiraSyncer
	rise        RiseSyncer
	logger      *zap.Logger
}

func NewEntryService(
	users repository.UserRepository,
	entries repository.EntryRepository,
	jiraEntries repository.JiraEntryRepository,
	riseEntries repository.RiseEntryRepository,
	jiraSync JiraSyncer,
	riseSync RiseSyncer,
	logger *zap.Logger,
) *EntryService {
	return &EntryService{
		users:       users,
		entries:     entries,
		jiraEntries: jiraEntries,
		riseEntries: riseEntries,
		jira:        jiraSync,
		rise:        riseSync,
		logger:      logger,
	}
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ownedEntry loads an Entry and hides it from anyone but its owner.
func (s *EntryService) ownedEntry(ctx context.Context, userID, id int) (*models.Entry, error) {
	e, err := s.entries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.UserID != userID {
		return nil, models.ErrNotFound
	}
	return e, nil
}

func (s *EntryService) CreateEntry(ctx context.Context, userID int, date time.Time) (*models.Entry, error) {
	if date.IsZero() {
		return nil, models.NewValidationError("date_created", "is required")
	}
	e := &models.Entry{UserID: userID, DateCreated: truncateDay(date)}
	if err := s.entries.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

// GetEntry returns the Entry with its Jira and Rise children.
func (s *EntryService) GetEntry(ctx context.Context, userID, id int) (*models.EntryDetail, error) {
	e, err := s.ownedEntry(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return s.detail(ctx, e)
}

func (s *EntryService) detail(ctx context.Context, e *models.Entry) (*models.EntryDetail, error) {
	jes, err := s.jiraEntries.ListByEntry(ctx, e.ID)
	if err != nil {
		return nil, err
	}
	out := &models.EntryDetail{Entry: *e, JiraEntries: jes}
	re, err := s.riseEntries.GetByEntry(ctx, e.ID)
	switch {
	case err == nil:
		out.RiseEntry = re
	case !errors.Is(err, models.ErrNotFound):
		return nil, err
	}
	return out, nil
}

func (s *EntryService) ListEntries(ctx context.Context, userID int, from, to *time.Time) ([]models.Entry, error) {
	if from != nil && to != nil && to.Before(*from) {
		return nil, models.NewValidationError("end_date", "must not be before start_date")
	}
	return s.entries.List(ctx, userID, from, to)
}

// DeleteEntry removes an Entry that has no children left.
func (s *EntryService) DeleteEntry(ctx context.Context, userID, id int) error {
	if _, err := s.ownedEntry(ctx, userID, id); err != nil {
		return err
	}
	return s.entries.Delete(ctx, id)
}

func validateJiraInput(in JiraEntryInput) error {
	if in.MinutesSpent <= 0 {
		return models.NewValidationError("minutes_spent", "must be greater than zero")
	}
	if strings.TrimSpace(in.Description) == "" {
		return models.NewValidationError("description", "is required")
	}
	return nil
}

// SaveJiraEntry creates or edits a JiraEntry and then pushes it to Jira.
func (s *EntryService) SaveJiraEntry(ctx context.Context, userID int, in JiraEntryInput) (*JiraSaveResult, error) {
	in.IssueNumber = strings.TrimSpace(in.IssueNumber)
	if err := validateJiraInput(in); err != nil {
		return nil, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.jira.CheckCredentials(user); err != nil {
		return nil, credentialFieldError("issue_number", err)
	}

	if in.ID == 0 {
		return s.createJiraEntry(ctx, userID, in)
	}
	return s.updateJiraEntry(ctx, userID, in)
}

func (s *EntryService) createJiraEntry(ctx context.Context, userID int, in JiraEntryInput) (*JiraSaveResult, error) {
	if in.IssueNumber == "" {
		return nil, models.NewValidationError("issue_number", "is required")
	}
	if in.Date.IsZero() {
		return nil, models.NewValidationError("date_created", "is required")
	}

	entry, created, err := s.entryForDay(ctx, userID, truncateDay(in.Date))
	if err != nil {
		return nil, err
	}
	je := models.JiraEntry{
		EntryID:      entry.ID,
		IssueNumber:  in.IssueNumber,
		MinutesSpent: in.MinutesSpent,
		Description:  in.Description,
	}
	if err := s.jiraEntries.Create(ctx, &je); err != nil {
		s.discardEntry(ctx, entry, created)
		return nil, err
	}

	res := &JiraSaveResult{Entry: je}
	if err := s.jira.Create(ctx, &je); err != nil {
		res.SyncWarning = s.syncWarning("jira create", je.ID, err)
		return res, nil
	}
	res.Entry = je
	return res, nil
}

func (s *EntryService) updateJiraEntry(ctx context.Context, userID int, in JiraEntryInput) (*JiraSaveResult, error) {
	existing, err := s.jiraEntries.GetByID(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedEntry(ctx, userID, existing.EntryID); err != nil {
		return nil, err
	}
	if in.IssueNumber != "" && in.IssueNumber != existing.IssueNumber {
		return nil, models.NewValidationError("issue_number", "is read-only once saved")
	}

	changed := in.Description != existing.Description || in.MinutesSpent != existing.MinutesSpent
	je := *existing
	je.Description = in.Description
	je.MinutesSpent = in.MinutesSpent
	if changed {
		if err := s.jiraEntries.Update(ctx, &je); err != nil {
			return nil, err
		}
	}

	res := &JiraSaveResult{Entry: je}
	var syncErr error
	switch {
	case !je.Synced():
		syncErr = s.jira.Create(ctx, &je)
	case changed:
		syncErr = s.jira.Update(ctx, &je)
	default:
		return res, nil
	}
	if syncErr != nil {
		res.SyncWarning = s.syncWarning("jira sync", je.ID, syncErr)
		return res, nil
	}
	res.Entry = je
	return res, nil
}

// DeleteJiraEntry deletes the remote worklog (when synced) and then the row.
func (s *EntryService) DeleteJiraEntry(ctx context.Context, userID, id int) (*DeleteResult, error) {
	je, err := s.jiraEntries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedEntry(ctx, userID, je.EntryID); err != nil {
		return nil, err
	}

	res := &DeleteResult{}
	if je.Synced() {
		if err := s.jira.Delete(ctx, je); httpclient.IsNotFound(err) {
			s.logger.Info("jira worklog already gone", zap.Int("jira_entry_id", je.ID), zap.String("worklog_id", je.RemoteID))
		} else if err != nil {
			s.logger.Warn("jira worklog delete failed, removing local row anyway",
				zap.Int("jira_entry_id", je.ID), zap.String("worklog_id", je.RemoteID),
				zap.String("reason", string(httpclient.ReasonForError(err))), zap.Error(err))
			res.RemoteWarning = err.Error()
		}
	}
	if err := s.jiraEntries.Delete(ctx, id); err != nil {
		return nil, err
	}
	return res, nil
}

// SaveRiseEntry upserts the RiseEntry for in.Date and pushes it to Rise.
func (s *EntryService) SaveRiseEntry(ctx context.Context, userID int, in RiseEntryInput) (*RiseSaveResult, error) {
	if in.Date.IsZero() {
		return nil, models.NewValidationError("date_created", "is required")
	}
	if strings.TrimSpace(in.Value) == "" {
		return nil, models.NewValidationError("value", "is required")
	}
	hours := models.DefaultHoursWorked
	if in.HoursWorked != nil {
		hours = in.HoursWorked.Round(2)
	}
	if !hours.IsPositive() || hours.GreaterThan(maxHoursWorked) {
		return nil, models.NewValidationError("hours_worked", "must be greater than 0 and at most 24")
	}
	in.AssignmentID = strings.TrimSpace(in.AssignmentID)
	if in.AssignmentID == "" {
		return nil, models.NewValidationError("rise_assignment_id", "is required")
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.rise.CheckCredentials(user); err != nil {
		return nil, credentialFieldError("rise_assignment_id", err)
	}

	day := truncateDay(in.Date)
	entry, err := s.entries.GetByUserAndDate(ctx, userID, day)
	if errors.Is(err, models.ErrNotFound) {
		entry = nil
	} else if err != nil {
		return nil, err
	}

	var existing *models.RiseEntry
	if entry != nil {
		existing, err = s.riseEntries.GetByEntry(ctx, entry.ID)
		if err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}
	}

	var re models.RiseEntry
	if existing != nil {
		re = *existing
	}

	if existing == nil || existing.AssignmentID != in.AssignmentID {
		if existing != nil && existing.Synced() {
			return nil, models.NewValidationError("rise_assignment_id", "is read-only once synced")
		}
		a, err := s.rise.GetAssignment(ctx, user, in.AssignmentID)
		if err != nil {
			if errors.Is(err, rise.ErrAssignmentNotFound) {
				return nil, models.NewValidationError("rise_assignment_id", "assignment %s does not exist", in.AssignmentID)
			}
			return nil, credentialFieldError("rise_assignment_id", err)
		}
		if !a.Covers(day) {
			return nil, models.NewValidationError("rise_assignment_id",
				"date %s is outside the assignment's date range", day.Format("2006-01-02"))
		}
		re.AssignmentID = a.ID
		re.AssignmentName = a.Name
		re.LogType = a.LogType()
	}

	changed := existing == nil || in.Value != existing.Value || !hours.Equal(existing.HoursWorked)
	re.Value = in.Value
	re.HoursWorked = hours

	if existing == nil {
		created := false
		if entry == nil {
			if entry, created, err = s.entryForDay(ctx, userID, day); err != nil {
				return nil, err
			}
		}
		re.EntryID = entry.ID
		if err := s.riseEntries.Create(ctx, &re); err != nil {
			s.discardEntry(ctx, entry, created)
			return nil, err
		}
	} else if changed || re.AssignmentID != existing.AssignmentID {
		if err := s.riseEntries.Update(ctx, &re); err != nil {
			return nil, err
		}
	}

	res := &RiseSaveResult{Entry: re}
	var syncErr error
	switch {
	case !re.Synced():
		syncErr = s.rise.Create(ctx, &re)
	case changed:
		syncErr = s.rise.Update(ctx, &re)
	default:
		return res, nil
	}
	if syncErr != nil {
		res.SyncWarning = s.syncWarning("rise sync", re.ID, syncErr)
		return res, nil
	}
	res.Entry = re
	return res, nil
}

func (s *EntryService) DeleteRiseEntry(ctx context.Context, userID, id int) (*DeleteResult, error) {
	re, err := s.riseEntries.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedEntry(ctx, userID, re.EntryID); err != nil {
		return nil, err
	}

	res := &DeleteResult{}
	if re.Synced() {
		if err := s.rise.Delete(ctx, re); httpclient.IsNotFound(err) {
			s.logger.Info("rise log already gone", zap.Int("rise_entry_id", re.ID), zap.String("remote_id", re.RemoteID))
		} else if err != nil {
			s.logger.Warn("rise log delete failed, removing local row anyway",
				zap.Int("rise_entry_id", re.ID), zap.String("remote_id", re.RemoteID),
				zap.String("reason", string(httpclient.ReasonForError(err))), zap.Error(err))
			res.RemoteWarning = err.Error()
		}
	}
	if err := s.riseEntries.Delete(ctx, id); err != nil {
		return nil, err
	}
	return res, nil
}

// SyncPending retries the remote create for every unsynced child of an Entry.
func (s *EntryService) SyncPending(ctx context.Context, userID, entryID int) (*SyncResult, error) {
	e, err := s.ownedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}
	d, err := s.detail(ctx, e)
	if err != nil {
		return nil, err
	}

	res := &SyncResult{}
	for i := range d.JiraEntries {
		je := d.JiraEntries[i]
		if je.Synced() {
			continue
		}
		res.Attempted++
		if err := s.jira.Create(ctx, &je); err != nil {
			res.Warnings = append(res.Warnings, s.syncWarning("jira create", je.ID, err))
			continue
		}
		res.Synced++
	}
	if re := d.RiseEntry; re != nil && !re.Synced() {
		res.Attempted++
		if err := s.rise.Create(ctx, re); err != nil {
			res.Warnings = append(res.Warnings, s.syncWarning("rise create", re.ID, err))
		} else {
			res.Synced++
		}
	}
	return res, nil
}

// ListAssignments returns the user's Rise choices whose label contains q,
// ignoring case. The placeholder choice is always kept first.
func (s *EntryService) ListAssignments(ctx context.Context, userID int, q string) ([]rise.Choice, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	choices, err := s.rise.ListAssignments(ctx, user)
	if err != nil {
		return nil, err
	}
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return choices, nil
	}
	out := make([]rise.Choice, 0, len(choices))
	for _, c := range choices {
		if c.Value == "" || strings.Contains(strings.ToLower(c.Label), q) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *EntryService) syncWarning(op string, id int, err error) string {
	s.logger.Warn(op+" failed, record left unsynced",
		zap.Int("id", id), zap.String("reason", string(httpclient.ReasonForError(err))), zap.Error(err))
	return err.Error()
}

// entryForDay returns the user's Entry for day and whether this call created it.
func (s *EntryService) entryForDay(ctx context.Context, userID int, day time.Time) (*models.Entry, bool, error) {
	e, err := s.entries.GetByUserAndDate(ctx, userID, day)
	if err == nil {
		return e, false, nil
	}
	if !errors.Is(err, models.ErrNotFound) {
		return nil, false, err
	}
	e, err = s.entries.GetOrCreate(ctx, userID, day)
	if err != nil {
		return nil, false, err
	}
	return e, true, nil
}

// discardEntry removes an Entry created for a child whose insert then failed.
func (s *EntryService) discardEntry(ctx context.Context, e *models.Entry, created bool) {
	if !created {
		return
	}
	if err := s.entries.Delete(ctx, e.ID); err != nil {
		s.logger.Warn("could not remove empty entry", zap.Int("entry_id", e.ID), zap.Error(err))
	}
}

// credentialFieldError renders a credential problem as a field validation error.
func credentialFieldError(field string, err error) error {
	var credErr *models.CredentialError
	if errors.As(err, &credErr) {
		return models.NewValidationError(field, "%s", credErr.Error())
	}
	return err
}
