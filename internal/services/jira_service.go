package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"timemachine/internal/httpclient"
	"timemachine/internal/jira"
	"timemachine/internal/models"
	"timemachine/internal/repository"
)

// JiraService pushes JiraEntry changes to the owning user's Jira site.
type JiraService struct {
	users       repository.UserRepository
	entries     repository.EntryRepository
	jiraEntries repository.JiraEntryRepository
	encSvc      *EncryptionService
	httpOpts    []httpclient.ClientFunc
	logger      *zap.Logger
	now         func() time.Time
}

func NewJiraService(
	users repository.UserRepository,
	entries repository.EntryRepository,
	jiraEntries repository.JiraEntryRepository,
	encSvc *EncryptionService,
	logger *zap.Logger,
	httpOpts ...httpclient.ClientFunc,
) *JiraService {
	return &JiraService{
		users:       users,
		entries:     entries,
		jiraEntries: jiraEntries,
		encSvc:      encSvc,
		httpOpts:    httpOpts,
		logger:      logger,
		now:         time.Now,
	}
}

// NewClient builds a Jira client for user, failing with a CredentialError
// when the stored credentials are missing or unreadable.
func (s *JiraService) NewClient(user *models.User) (*jira.Client, error) {
	creds, err := s.encSvc.DecryptJiraCredentials(*user)
	if err != nil {
		return nil, err
	}
	return jira.NewClient(creds, s.httpOpts...)
}

func (s *JiraService) clientFor(ctx context.Context, je *models.JiraEntry) (*jira.Client, error) {
	entry, err := s.entries.GetByID(ctx, je.EntryID)
	if err != nil {
		return nil, err
	}
	user, err := s.users.GetByID(ctx, entry.UserID)
	if err != nil {
		return nil, err
	}
	return s.NewClient(user)
}

func worklogInput(je *models.JiraEntry) jira.WorklogInput {
	return jira.WorklogInput{
		IssueNumber:  je.IssueNumber,
		MinutesSpent: je.MinutesSpent,
		Description:  je.Description,
	}
}

// Create logs je in Jira and stores the worklog id and sync time. On failure
// je is left untouched.
func (s *JiraService) Create(ctx context.Context, je *models.JiraEntry) error {
	c, err := s.clientFor(ctx, je)
	if err != nil {
		return err
	}

	id, err := c.CreateWorklog(ctx, worklogInput(je))
	if err != nil {
		s.logger.Warn("jira worklog create failed",
			zap.Int("jira_entry_id", je.ID), zap.String("issue", je.IssueNumber), zap.Error(err))
		return err
	}

	synced := *je
	synced.RemoteID = id
	now := s.now()
	synced.LastSyncedAt = &now
	if err := s.jiraEntries.Update(ctx, &synced); err != nil {
		s.logger.Error("jira worklog created but not recorded locally, reconcile by hand",
			zap.Int("jira_entry_id", je.ID), zap.String("issue", je.IssueNumber),
			zap.String("worklog_id", id), zap.Error(err))
		return err
	}
	*je = synced

	s.logger.Info("jira worklog created",
		zap.Int("jira_entry_id", je.ID), zap.String("issue", je.IssueNumber), zap.String("worklog_id", id))
	return nil
}

// Update pushes the current minutes and description of a synced entry.
func (s *JiraService) Update(ctx context.Context, je *models.JiraEntry) error {
	c, err := s.clientFor(ctx, je)
	if err != nil {
		return err
	}

	if err := c.UpdateWorklog(ctx, je.RemoteID, worklogInput(je)); err != nil {
		s.logger.Warn("jira worklog update failed",
			zap.Int("jira_entry_id", je.ID), zap.String("worklog_id", je.RemoteID), zap.Error(err))
		return err
	}

	synced := *je
	now := s.now()
	synced.LastSyncedAt = &now
	if err := s.jiraEntries.Update(ctx, &synced); err != nil {
		return err
	}
	*je = synced

	s.logger.Info("jira worklog updated", zap.Int("jira_entry_id", je.ID), zap.String("worklog_id", je.RemoteID))
	return nil
}

// Delete removes the remote worklog. The local row is not touched.
func (s *JiraService) Delete(ctx context.Context, je *models.JiraEntry) error {
	c, err := s.clientFor(ctx, je)
	if err != nil {
		return err
	}
	return c.DeleteWorklog(ctx, je.IssueNumber, je.RemoteID)
}

// CheckCredentials reports whether user has usable Jira credentials.
func (s *JiraService) CheckCredentials(user *models.User) error {
	_, err := s.NewClient(user)
	return err
}
