// Package jira logs work against Jira Cloud issues through the v3 worklog API.
package jira

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"timemachine/internal/httpclient"
	"timemachine/internal/models"
)

// StartedLayout is the timestamp format Jira expects in "started".
const StartedLayout = "2006-01-02T15:04:05.000-0700"

type Credentials struct {
	BaseURL string
	Email   string
	APIKey  string
}

type WorklogInput struct {
	IssueNumber  string
	MinutesSpent int
	Description  string
}

type Client struct {
	http *httpclient.Client
	now  func() time.Time
}

// NewClient authenticates with HTTP Basic (account email, API token).
func NewClient(creds Credentials, cfs ...httpclient.ClientFunc) (*Client, error) {
	switch {
	case creds.BaseURL == "":
		return nil, &models.CredentialError{Service: "jira", Field: "jira_url"}
	case creds.Email == "":
		return nil, &models.CredentialError{Service: "jira", Field: "jira_email_address"}
	case creds.APIKey == "":
		return nil, &models.CredentialError{Service: "jira", Field: "jira_api_key"}
	}

	base := []httpclient.ClientFunc{
		httpclient.SetBaseURL(strings.TrimRight(creds.BaseURL, "/")),
		httpclient.SetBasicAuth(creds.Email, creds.APIKey),
	}
	return &Client{
		http: httpclient.New(append(base, cfs...)...),
		now:  time.Now,
	}, nil
}

// adfNode is a node of an Atlassian Document Format tree.
type adfNode struct {
	Type    string    `json:"type"`
	Version int       `json:"version,omitempty"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

type worklogRequest struct {
	Comment          adfNode `json:"comment"`
	Started          string  `json:"started"`
	TimeSpentSeconds int     `json:"timeSpentSeconds"`
}

type worklogResponse struct {
	ID httpclient.RemoteID `json:"id"`
}

func (c *Client) newWorklogRequest(in WorklogInput) worklogRequest {
	return worklogRequest{
		Comment: adfNode{
			Type:    "doc",
			Version: 1,
			Content: []adfNode{{
				Type:    "paragraph",
				Content: []adfNode{{Type: "text", Text: in.Description}},
			}},
		},
		Started:          c.now().Format(StartedLayout),
		TimeSpentSeconds: in.MinutesSpent * 60,
	}
}

func worklogPath(issue string) string {
	return fmt.Sprintf("/rest/api/3/issue/%s/worklog", url.PathEscape(issue))
}

// CreateWorklog returns the id Jira assigned to the new worklog.
func (c *Client) CreateWorklog(ctx context.Context, in WorklogInput) (string, error) {
	path := worklogPath(in.IssueNumber)
	res, err := c.http.Post(ctx, path, httpclient.WithBody(c.newWorklogRequest(in)))
	if err != nil {
		return "", err
	}

	var out worklogResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return "", &httpclient.MalformedResponseError{Endpoint: path, Err: err}
	}
	if out.ID == "" {
		return "", &httpclient.MalformedResponseError{Endpoint: path, Err: fmt.Errorf("missing worklog id")}
	}
	return out.ID.String(), nil
}

func (c *Client) UpdateWorklog(ctx context.Context, remoteID string, in WorklogInput) error {
	path := worklogPath(in.IssueNumber) + "/" + url.PathEscape(remoteID)
	_, err := c.http.Put(ctx, path, httpclient.WithBody(c.newWorklogRequest(in)))
	return err
}

func (c *Client) DeleteWorklog(ctx context.Context, issueNumber, remoteID string) error {
	path := worklogPath(issueNumber) + "/" + url.PathEscape(remoteID)
	_, err := c.http.Delete(ctx, path)
	return err
}
