// Package rise talks to the Rise resourcing API: the assignment dashboard and
// the timesheet log endpoints.
package rise

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"timemachine/internal/httpclient"
	"timemachine/internal/models"
)

const (
	dateLayout  = "2006-01-02"
	Placeholder = "Select A Project"

	// lookAheadDays is how far past today the dashboard is queried.
	lookAheadDays = 7
)

var ErrAssignmentNotFound = errors.New("rise assignment not found")

type Credentials struct {
	APIKey string
	UserID int
}

// Choice is one option of the assignment dropdown.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Assignment is either a dated project assignment or a global project.
// StartDate and EndDate are nil when Rise does not bound the assignment.
type Assignment struct {
	ID        string
	Name      string
	StartDate *time.Time
	EndDate   *time.Time
	Global    bool
}

// Covers reports whether day falls within the assignment's date range.
func (a Assignment) Covers(day time.Time) bool {
	d := truncateDay(day)
	if a.StartDate != nil && d.Before(truncateDay(*a.StartDate)) {
		return false
	}
	if a.EndDate != nil && d.After(truncateDay(*a.EndDate)) {
		return false
	}
	return true
}

// LogType derives which Rise field a log for this assignment is filed under.
func (a Assignment) LogType() models.LogType {
	if a.Global {
		return models.LogTypeProject
	}
	return models.LogTypeAssignment
}

type LogInput struct {
	Day          time.Time
	Hours        decimal.Decimal
	Description  string
	AssignmentID string
	LogType      models.LogType
}

type Client struct {
	http   *httpclient.Client
	userID int
	now    func() time.Time
}

func NewClient(baseURL string, creds Credentials, cfs ...httpclient.ClientFunc) (*Client, error) {
	if creds.APIKey == "" {
		return nil, &models.CredentialError{Service: "rise", Field: "rise_api_key"}
	}

	base := []httpclient.ClientFunc{
		httpclient.SetBaseURL(baseURL),
		httpclient.SetTokenAuth(creds.APIKey),
	}
	return &Client{
		http:   httpclient.New(append(base, cfs...)...),
		userID: creds.UserID,
		now:    time.Now,
	}, nil
}

const dashboardPath = "/employees/dashboards/me/"

type dashboardResponse struct {
	Tables *struct {
		Assignments    []assignmentPayload `json:"assignments"`
		GlobalProjects []projectPayload    `json:"global_projects"`
	} `json:"tables"`
}

type assignmentPayload struct {
	ID        httpclient.RemoteID `json:"id"`
	StartDate *string             `json:"start_date"`
	EndDate   *string             `json:"end_date"`
	Milestone *struct {
		Project *struct {
			Name string `json:"name"`
		} `json:"project"`
	} `json:"milestone"`
}

type projectPayload struct {
	ID        httpclient.RemoteID `json:"id"`
	Name      string              `json:"name"`
	StartDate *string             `json:"start_date"`
	EndDate   *string             `json:"end_date"`
}

func (c *Client) fetchDashboard(ctx context.Context) ([]Assignment, []Assignment, error) {
	today := c.now()
	res, err := c.http.Get(ctx, dashboardPath, httpclient.WithQuery(map[string]string{
		"from_date": today.Format(dateLayout),
		"to_date":   today.AddDate(0, 0, lookAheadDays).Format(dateLayout),
	}))
	if err != nil {
		return nil, nil, err
	}

	malformed := func(err error) error {
		return &httpclient.MalformedResponseError{Endpoint: dashboardPath, Err: err}
	}

	var payload dashboardResponse
	if err := json.Unmarshal(res.Body(), &payload); err != nil {
		return nil, nil, malformed(err)
	}
	if payload.Tables == nil {
		return nil, nil, malformed(errors.New(`missing "tables"`))
	}

	assignments := make([]Assignment, 0, len(payload.Tables.Assignments))
	for i, a := range payload.Tables.Assignments {
		if a.ID == "" {
			return nil, nil, malformed(fmt.Errorf("assignment %d: missing id", i))
		}
		if a.Milestone == nil || a.Milestone.Project == nil {
			return nil, nil, malformed(fmt.Errorf("assignment %s: missing milestone.project", a.ID))
		}
		start, end, err := parseRange(a.StartDate, a.EndDate)
		if err != nil {
			return nil, nil, malformed(fmt.Errorf("assignment %s: %w", a.ID, err))
		}
		assignments = append(assignments, Assignment{
			ID: a.ID.String(), Name: a.Milestone.Project.Name, StartDate: start, EndDate: end,
		})
	}

	projects := make([]Assignment, 0, len(payload.Tables.GlobalProjects))
	for i, p := range payload.Tables.GlobalProjects {
		if p.ID == "" {
			return nil, nil, malformed(fmt.Errorf("global project %d: missing id", i))
		}
		start, end, err := parseRange(p.StartDate, p.EndDate)
		if err != nil {
			return nil, nil, malformed(fmt.Errorf("global project %s: %w", p.ID, err))
		}
		projects = append(projects, Assignment{
			ID: p.ID.String(), Name: p.Name, StartDate: start, EndDate: end, Global: true,
		})
	}

	return assignments, projects, nil
}

// ListAssignments builds the dropdown: the placeholder, then assignments,
// then global projects. A failed call returns an error, never an empty list.
func (c *Client) ListAssignments(ctx context.Context) ([]Choice, error) {
	assignments, projects, err := c.fetchDashboard(ctx)
	if err != nil {
		return nil, err
	}

	choices := []Choice{{Value: "", Label: Placeholder}}
	for _, a := range assignments {
		choices = append(choices, Choice{Value: a.ID, Label: a.Name})
	}
	for _, p := range projects {
		choices = append(choices, Choice{Value: p.ID, Label: p.Name})
	}
	return choices, nil
}

// GetAssignment looks id up among assignments first, then global projects.
func (c *Client) GetAssignment(ctx context.Context, id string) (Assignment, error) {
	assignments, projects, err := c.fetchDashboard(ctx)
	if err != nil {
		return Assignment{}, err
	}

	for _, a := range assignments {
		if a.ID == id {
			return a, nil
		}
	}
	for _, p := range projects {
		if p.ID == id {
			return p, nil
		}
	}
	return Assignment{}, ErrAssignmentNotFound
}

type logResponse struct {
	ID httpclient.RemoteID `json:"id"`
}

// CreateLog files a timesheet log and returns the Rise entry id.
func (c *Client) CreateLog(ctx context.Context, in LogInput) (string, error) {
	if c.userID == 0 {
		return "", &models.CredentialError{Service: "rise", Field: "rise_user_id"}
	}

	body := map[string]string{
		"day":         in.Day.Format(dateLayout),
		"hours":       in.Hours.StringFixed(2),
		"description": in.Description,
	}
	if in.LogType == models.LogTypeProject {
		body["project"] = in.AssignmentID
	} else {
		body["assignment"] = in.AssignmentID
	}

	path := "/employees/" + strconv.Itoa(c.userID) + "/actions/log/"
	res, err := c.http.Post(ctx, path, httpclient.WithBody(body))
	if err != nil {
		return "", err
	}

	var out logResponse
	if err := json.Unmarshal(res.Body(), &out); err != nil {
		return "", &httpclient.MalformedResponseError{Endpoint: path, Err: err}
	}
	if out.ID == "" {
		return "", &httpclient.MalformedResponseError{Endpoint: path, Err: errors.New("missing log id")}
	}
	return out.ID.String(), nil
}

func (c *Client) UpdateLog(ctx context.Context, remoteID string, hours decimal.Decimal, description string) error {
	path := "/timesheets/" + url.PathEscape(remoteID) + "/actions/edit_log/"
	_, err := c.http.Post(ctx, path, httpclient.WithBody(map[string]string{
		"hours_recorded": hours.StringFixed(2),
		"description":    description,
	}))
	return err
}

func (c *Client) DeleteLog(ctx context.Context, remoteID string) error {
	path := "/timesheets/" + url.PathEscape(remoteID) + "/actions/delete/"
	_, err := c.http.Post(ctx, path, httpclient.WithBody(map[string]string{}))
	return err
}

func parseRange(start, end *string) (*time.Time, *time.Time, error) {
	s, err := parseDate(start)
	if err != nil {
		return nil, nil, fmt.Errorf("start_date: %w", err)
	}
	e, err := parseDate(end)
	if err != nil {
		return nil, nil, fmt.Errorf("end_date: %w", err)
	}
	return s, e, nil
}

// parseDate accepts plain dates and full timestamps, keeping the date part.
func parseDate(v *string) (*time.Time, error) {
	if v == nil || *v == "" {
		return nil, nil
	}
	s := *v
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
