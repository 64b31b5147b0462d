package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"timemachine/internal/models"
	"timemachine/internal/rise"
)

// store backs the in-memory repositories used by the service tests.
type store struct {
	mu     sync.Mutex
	nextID int
	users  map[int]*models.User
	entry  map[int]*models.Entry
	jira   map[int]*models.JiraEntry
	rise   map[int]*models.RiseEntry

	// createErr and updateErr fail child-record writes when set.
	createErr error
	updateErr error
}

func newStore() *store {
	return &store{
		nextID: 100,
		users:  map[int]*models.User{},
		entry:  map[int]*models.Entry{},
		jira:   map[int]*models.JiraEntry{},
		rise:   map[int]*models.RiseEntry{},
	}
}

func (s *store) id() int {
	s.nextID++
	return s.nextID
}

type fakeUsers struct{ *store }

func (f fakeUsers) Create(_ context.Context, u *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u.ID = f.id()
	cp := *u
	f.users[u.ID] = &cp
	return nil
}

func (f fakeUsers) GetByID(_ context.Context, id int) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (f fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f fakeUsers) UpdateProfile(_ context.Context, id int, first, last *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return models.ErrNotFound
	}
	u.FirstName, u.LastName = first, last
	return nil
}

func (f fakeUsers) UpdateCredentials(_ context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *user
	f.users[user.ID] = &cp
	return nil
}

type fakeEntries struct{ *store }

func (f fakeEntries) find(userID int, date time.Time) *models.Entry {
	for _, e := range f.entry {
		if e.UserID == userID && e.DateCreated.Equal(date) {
			return e
		}
	}
	return nil
}

func (f fakeEntries) Create(_ context.Context, e *models.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.find(e.UserID, e.DateCreated) != nil {
		return models.ErrAlreadyExists
	}
	e.ID = f.id()
	cp := *e
	f.entry[e.ID] = &cp
	return nil
}

func (f fakeEntries) GetOrCreate(_ context.Context, userID int, date time.Time) (*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.find(userID, date); e != nil {
		cp := *e
		return &cp, nil
	}
	e := &models.Entry{ID: f.id(), UserID: userID, DateCreated: date}
	f.entry[e.ID] = e
	cp := *e
	return &cp, nil
}

func (f fakeEntries) GetByID(_ context.Context, id int) (*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entry[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f fakeEntries) GetByUserAndDate(_ context.Context, userID int, date time.Time) (*models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if e := f.find(userID, date); e != nil {
		cp := *e
		return &cp, nil
	}
	return nil, models.ErrNotFound
}

func (f fakeEntries) List(_ context.Context, userID int, from, to *time.Time) ([]models.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Entry
	for _, e := range f.entry {
		if e.UserID != userID {
			continue
		}
		if from != nil && e.DateCreated.Before(*from) {
			continue
		}
		if to != nil && e.DateCreated.After(*to) {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (f fakeEntries) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entry[id]; !ok {
		return models.ErrNotFound
	}
	for _, je := range f.jira {
		if je.EntryID == id {
			return models.ErrEntryInUse
		}
	}
	for _, re := range f.rise {
		if re.EntryID == id {
			return models.ErrEntryInUse
		}
	}
	delete(f.entry, id)
	return nil
}

type fakeJiraEntries struct{ *store }

func (f fakeJiraEntries) Create(_ context.Context, e *models.JiraEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, je := range f.jira {
		if je.EntryID == e.EntryID && je.IssueNumber == e.IssueNumber {
			return models.ErrAlreadyExists
		}
	}
	e.ID = f.id()
	cp := *e
	f.jira[e.ID] = &cp
	return nil
}

func (f fakeJiraEntries) GetByID(_ context.Context, id int) (*models.JiraEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.jira[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f fakeJiraEntries) ListByEntry(_ context.Context, entryID int) ([]models.JiraEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.JiraEntry
	for _, e := range f.jira {
		if e.EntryID == entryID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (f fakeJiraEntries) Update(_ context.Context, e *models.JiraEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.jira[e.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *e
	f.jira[e.ID] = &cp
	return nil
}

func (f fakeJiraEntries) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.jira[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.jira, id)
	return nil
}

type fakeRiseEntries struct{ *store }

func (f fakeRiseEntries) Create(_ context.Context, e *models.RiseEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	for _, re := range f.rise {
		if re.EntryID == e.EntryID {
			return models.ErrAlreadyExists
		}
	}
	e.ID = f.id()
	cp := *e
	f.rise[e.ID] = &cp
	return nil
}

func (f fakeRiseEntries) GetByID(_ context.Context, id int) (*models.RiseEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.rise[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (f fakeRiseEntries) GetByEntry(_ context.Context, entryID int) (*models.RiseEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.rise {
		if e.EntryID == entryID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, models.ErrNotFound
}

func (f fakeRiseEntries) Update(_ context.Context, e *models.RiseEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.rise[e.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *e
	f.rise[e.ID] = &cp
	return nil
}

func (f fakeRiseEntries) Delete(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.rise[id]; !ok {
		return models.ErrNotFound
	}
	delete(f.rise, id)
	return nil
}

// recorder is a JiraSyncer and RiseSyncer that records calls and assigns
// remote ids on create.
type recorder struct {
	calls       []string
	credErr     error
	err         error
	deleteErr   error
	assignments map[string]rise.Assignment
	choices     []rise.Choice
	now         time.Time
}

func (r *recorder) CheckCredentials(*models.User) error { return r.credErr }

func (r *recorder) record(call string) error {
	r.calls = append(r.calls, call)
	return r.err
}

func (r *recorder) stamp() *time.Time {
	t := r.now
	return &t
}

type jiraRecorder struct {
	*recorder
	repo fakeJiraEntries
}

func (j jiraRecorder) Create(ctx context.Context, je *models.JiraEntry) error {
	if err := j.record("create"); err != nil {
		return err
	}
	je.RemoteID = "10042"
	je.LastSyncedAt = j.stamp()
	return j.repo.Update(ctx, je)
}

func (j jiraRecorder) Update(ctx context.Context, je *models.JiraEntry) error {
	if err := j.record("update"); err != nil {
		return err
	}
	je.LastSyncedAt = j.stamp()
	return j.repo.Update(ctx, je)
}

func (j jiraRecorder) Delete(context.Context, *models.JiraEntry) error {
	j.calls = append(j.calls, "delete")
	return j.deleteErr
}

type riseRecorder struct {
	*recorder
	repo fakeRiseEntries
}

func (r riseRecorder) ListAssignments(context.Context, *models.User) ([]rise.Choice, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.choices, nil
}

func (r riseRecorder) GetAssignment(_ context.Context, _ *models.User, id string) (rise.Assignment, error) {
	r.calls = append(r.calls, "get_assignment")
	if r.credErr != nil {
		return rise.Assignment{}, r.credErr
	}
	a, ok := r.assignments[id]
	if !ok {
		return rise.Assignment{}, rise.ErrAssignmentNotFound
	}
	return a, nil
}

func (r riseRecorder) Create(ctx context.Context, re *models.RiseEntry) error {
	if err := r.record("create"); err != nil {
		return err
	}
	re.RemoteID = "555"
	re.LastSyncedAt = r.stamp()
	return r.repo.Update(ctx, re)
}

func (r riseRecorder) Update(ctx context.Context, re *models.RiseEntry) error {
	if err := r.record("update"); err != nil {
		return err
	}
	re.LastSyncedAt = r.stamp()
	return r.repo.Update(ctx, re)
}

func (r riseRecorder) Delete(context.Context, *models.RiseEntry) error {
	r.calls = append(r.calls, "delete")
	return r.deleteErr
}

func date(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func testKey() []byte {
	return []byte(strings.Repeat("k", 32))
}
