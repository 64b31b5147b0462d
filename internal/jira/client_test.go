package jira

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"timemachine/internal/httpclient"
	"timemachine/internal/models"
)

type recorded struct {
	method string
	path   string
	body   map[string]interface{}
	user   string
	pass   string
}

func newServer(t *testing.T, status int, resp string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{method: r.Method, path: r.URL.Path}
		rec.user, rec.pass, _ = r.BasicAuth()
		if b, _ := io.ReadAll(r.Body); len(b) > 0 {
			_ = json.Unmarshal(b, &rec.body)
		}
		calls = append(calls, rec)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(resp))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	c, err := NewClient(Credentials{BaseURL: url + "/", Email: "dev@acme.test", APIKey: "tok"})
	require.NoError(t, err)
	loc := time.FixedZone("SAST", 2*60*60)
	c.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, loc) }
	return c
}

func TestNewClient_MissingCredentials(t *testing.T) {
	tests := []struct {
		creds Credentials
		field string
	}{
		{Credentials{Email: "a", APIKey: "b"}, "jira_url"},
		{Credentials{BaseURL: "u", APIKey: "b"}, "jira_email_address"},
		{Credentials{BaseURL: "u", Email: "a"}, "jira_api_key"},
	}
	for _, tt := range tests {
		_, err := NewClient(tt.creds)
		var ce *models.CredentialError
		require.ErrorAs(t, err, &ce)
		assert.Equal(t, tt.field, ce.Field)
	}
}

func TestCreateWorklog(t *testing.T) {
	srv, calls := newServer(t, http.StatusCreated, `{"id":"10042","timeSpentSeconds":1800}`)
	c := newTestClient(t, srv.URL)

	id, err := c.CreateWorklog(context.Background(), WorklogInput{IssueNumber: "ABC-1", MinutesSpent: 30, Description: "standup"})
	require.NoError(t, err)
	assert.Equal(t, "10042", id)

	require.Len(t, *calls, 1)
	call := (*calls)[0]
	assert.Equal(t, http.MethodPost, call.method)
	assert.Equal(t, "/rest/api/3/issue/ABC-1/worklog", call.path)
	assert.Equal(t, "dev@acme.test", call.user)
	assert.Equal(t, "tok", call.pass)
	assert.Equal(t, "2024-03-01T09:30:00.000+0200", call.body["started"])
	assert.EqualValues(t, 1800, call.body["timeSpentSeconds"])

	comment := call.body["comment"].(map[string]interface{})
	assert.Equal(t, "doc", comment["type"])
	assert.EqualValues(t, 1, comment["version"])
	para := comment["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "paragraph", para["type"])
	text := para["content"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, map[string]interface{}{"type": "text", "text": "standup"}, text)
}

func TestCreateWorklog_Rejected(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadRequest, `{"errorMessages":["bad"]}`)
	c := newTestClient(t, srv.URL)

	_, err := c.CreateWorklog(context.Background(), WorklogInput{IssueNumber: "ABC-1", MinutesSpent: 30})
	assert.ErrorIs(t, err, httpclient.ErrRemoteUnavailable)
}

func TestCreateWorklog_MissingID(t *testing.T) {
	srv, _ := newServer(t, http.StatusCreated, `{}`)
	c := newTestClient(t, srv.URL)

	_, err := c.CreateWorklog(context.Background(), WorklogInput{IssueNumber: "ABC-1", MinutesSpent: 30})
	var me *httpclient.MalformedResponseError
	assert.ErrorAs(t, err, &me)
}

func TestUpdateWorklog(t *testing.T) {
	srv, calls := newServer(t, http.StatusOK, `{"id":"10042"}`)
	c := newTestClient(t, srv.URL)

	err := c.UpdateWorklog(context.Background(), "10042", WorklogInput{IssueNumber: "ABC-1", MinutesSpent: 45, Description: "longer"})
	require.NoError(t, err)

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodPut, (*calls)[0].method)
	assert.Equal(t, "/rest/api/3/issue/ABC-1/worklog/10042", (*calls)[0].path)
	assert.EqualValues(t, 2700, (*calls)[0].body["timeSpentSeconds"])
}

func TestDeleteWorklog(t *testing.T) {
	srv, calls := newServer(t, http.StatusNotFound, ``)
	c := newTestClient(t, srv.URL)

	err := c.DeleteWorklog(context.Background(), "ABC-1", "10042")
	assert.True(t, httpclient.IsNotFound(err))

	require.Len(t, *calls, 1)
	assert.Equal(t, http.MethodDelete, (*calls)[0].method)
	assert.Equal(t, "/rest/api/3/issue/ABC-1/worklog/10042", (*calls)[0].path)
}
