package rise

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timemachine/internal/httpclient"
	"timemachine/internal/models"
)

const dashboardJSON = `{
  "tables": {
    "assignments": [
      {"id": 5, "start_date": "2024-01-01", "end_date": "2024-02-01", "milestone": {"project": {"name": "Acme"}}}
    ],
    "global_projects": [
      {"id": 9, "name": "Internal", "is_global": true}
    ]
  }
}`

type call struct {
	method string
	path   string
	query  string
	auth   string
	body   map[string]interface{}
}

func newServer(t *testing.T, status int, resp string) (*httptest.Server, *[]call) {
	t.Helper()
	var calls []call
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c := call{method: r.Method, path: r.URL.Path, query: r.URL.RawQuery, auth: r.Header.Get("Authorization")}
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &c.body)
		}
		calls = append(calls, c)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, url string, userID int) *Client {
	t.Helper()
	c, err := NewClient(url, Credentials{APIKey: "rk", UserID: userID})
	require.NoError(t, err)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC) }
	return c
}

func TestNewClient_MissingKey(t *testing.T) {
	_, err := NewClient("http://rise", Credentials{UserID: 1})
	var ce *models.CredentialError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "rise_api_key", ce.Field)
}

func TestListAssignments(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, dashboardJSON)
	c := newTestClient(t, srv.URL, 42)

	got, err := c.ListAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Choice{
		{Value: "", Label: Placeholder},
		{Value: "5", Label: "Acme"},
		{Value: "9", Label: "Internal"},
	}, got)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/employees/dashboards/me/", (*calls)[0].path)
	assert.Equal(t, "from_date=2024-03-01&to_date=2024-03-08", (*calls)[0].query)
	assert.Equal(t, "Token rk", (*calls)[0].auth)
}

func TestListAssignments_EmptyIsNotUnavailable(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"tables": {"assignments": [], "global_projects": []}}`)
	c := newTestClient(t, srv.URL, 42)

	got, err := c.ListAssignments(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Choice{{Value: "", Label: Placeholder}}, got)
}

func TestListAssignments_Unavailable(t *testing.T) {
	srv, _ := newServer(t, http.StatusUnauthorized, `{"detail":"Invalid token."}`)
	c := newTestClient(t, srv.URL, 42)

	got, err := c.ListAssignments(context.Background())
	assert.Nil(t, got)
	assert.ErrorIs(t, err, httpclient.ErrRemoteUnavailable)
}

func TestListAssignments_Malformed(t *testing.T) {
	tests := map[string]string{
		"no tables":     `{}`,
		"no milestone":  `{"tables": {"assignments": [{"id": 5}]}}`,
		"no id":         `{"tables": {"global_projects": [{"name": "x"}]}}`,
		"bad date":      `{"tables": {"global_projects": [{"id": 1, "start_date": "soon"}]}}`,
		"not even json": `<html>`,
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			srv, _ := newServer(t, http.StatusOK, body)
			c := newTestClient(t, srv.URL, 42)

			_, err := c.ListAssignments(context.Background())
			var me *httpclient.MalformedResponseError
			assert.ErrorAs(t, err, &me)
		})
	}
}

func TestGetAssignment(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, dashboardJSON)
	c := newTestClient(t, srv.URL, 42)

	a, err := c.GetAssignment(context.Background(), "5")
	require.NoError(t, err)
	assert.Equal(t, "Acme", a.Name)
	assert.False(t, a.Global)
	assert.Equal(t, models.LogTypeAssignment, a.LogType())
	require.NotNil(t, a.StartDate)
	assert.Equal(t, "2024-01-01", a.StartDate.Format(dateLayout))

	p, err := c.GetAssignment(context.Background(), "9")
	require.NoError(t, err)
	assert.True(t, p.Global)
	assert.Equal(t, models.LogTypeProject, p.LogType())

	_, err = c.GetAssignment(context.Background(), "404")
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestGetAssignment_PrefersAssignmentOverProject(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"tables": {
		"assignments": [{"id": 7, "milestone": {"project": {"name": "Client work"}}}],
		"global_projects": [{"id": "7", "name": "Leave"}]}}`)
	c := newTestClient(t, srv.URL, 42)

	a, err := c.GetAssignment(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, "Client work", a.Name)
	assert.False(t, a.Global)
}

func TestAssignment_Covers(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	a := Assignment{StartDate: &start, EndDate: &end}

	assert.False(t, a.Covers(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)))
	assert.True(t, a.Covers(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)))
	assert.True(t, a.Covers(start))
	assert.True(t, a.Covers(end))
	assert.True(t, Assignment{}.Covers(end))
}

func TestCreateLog(t *testing.T) {
	srv, calls := newServer(t, http.StatusCreated, `{"id": 311}`)
	c := newTestClient(t, srv.URL, 42)

	id, err := c.CreateLog(context.Background(), LogInput{
		Day:          time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		Hours:        decimal.NewFromInt(8),
		Description:  "sprint work",
		AssignmentID: "5",
		LogType:      models.LogTypeAssignment,
	})
	require.NoError(t, err)
	assert.Equal(t, "311", id)

	require.Len(t, *calls, 1)
	assert.Equal(t, "/employees/42/actions/log/", (*calls)[0].path)
	assert.Equal(t, map[string]interface{}{
		"day": "2024-01-15", "hours": "8.00", "description": "sprint work", "assignment": "5",
	}, (*calls)[0].body)
}

func TestCreateLog_GlobalProject(t *testing.T) {
	srv, calls := newServer(t, http.StatusCreated, `{"id": "312"}`)
	c := newTestClient(t, srv.URL, 42)

	_, err := c.CreateLog(context.Background(), LogInput{
		Day: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), Hours: decimal.RequireFromString("7.5"),
		AssignmentID: "9", LogType: models.LogTypeProject,
	})
	require.NoError(t, err)
	assert.Equal(t, "9", (*calls)[0].body["project"])
	assert.Equal(t, "7.50", (*calls)[0].body["hours"])
	assert.NotContains(t, (*calls)[0].body, "assignment")
}

func TestCreateLog_MissingUserID(t *testing.T) {
	srv, calls := newServer(t, http.StatusCreated, `{"id": 1}`)
	c := newTestClient(t, srv.URL, 0)

	_, err := c.CreateLog(context.Background(), LogInput{})
	var ce *models.CredentialError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "rise_user_id", ce.Field)
	assert.Empty(t, *calls)
}

func TestUpdateAndDeleteLog(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{}`)
	c := newTestClient(t, srv.URL, 42)

	require.NoError(t, c.UpdateLog(context.Background(), "311", decimal.NewFromInt(6), "less"))
	require.NoError(t, c.DeleteLog(context.Background(), "311"))

	require.Len(t, *calls, 2)
	assert.Equal(t, "/timesheets/311/actions/edit_log/", (*calls)[0].path)
	assert.Equal(t, map[string]interface{}{"hours_recorded": "6.00", "description": "less"}, (*calls)[0].body)
	assert.Equal(t, http.MethodPost, (*calls)[1].method)
	assert.Equal(t, "/timesheets/311/actions/delete/", (*calls)[1].path)
}
