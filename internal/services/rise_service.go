package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"timemachine/internal/httpclient"
	"timemachine/internal/models"
	"timemachine/internal/repository"
	"timemachine/internal/rise"
)

// RiseService pushes RiseEntry changes to Rise and reads the user's
// assignments for the project picker.
type RiseService struct {
	baseURL     string
	users       repository.UserRepository
	entries     repository.EntryRepository
	riseEntries repository.RiseEntryRepository
	encSvc      *EncryptionService
	httpOpts    []httpclient.ClientFunc
	logger      *zap.Logger
	now         func() time.Time
}

func NewRiseService(
	baseURL string,
	users repository.UserRepository,
	entries repository.EntryRepository,
	riseEntries repository.RiseEntryRepository,
	encSvc *EncryptionService,
	logger *zap.Logger,
	httpOpts ...httpclient.ClientFunc,
) *RiseService {
	return &RiseService{
		baseURL:     baseURL,
		users:       users,
		entries:     entries,
		riseEntries: riseEntries,
		encSvc:      encSvc,
		httpOpts:    httpOpts,
		logger:      logger,
		now:         time.Now,
	}
}

func (s *RiseService) NewClient(user *models.User) (*rise.Client, error) {
	creds, err := s.encSvc.DecryptRiseCredentials(*user)
	if err != nil {
		return nil, err
	}
	return rise.NewClient(s.baseURL, creds, s.httpOpts...)
}

// CheckCredentials reports whether user can both read assignments and file
// logs, which needs the Rise user id as well as the API key.
func (s *RiseService) CheckCredentials(user *models.User) error {
	if _, err := s.NewClient(user); err != nil {
		return err
	}
	if user.RiseUserID == nil || *user.RiseUserID == 0 {
		return &models.CredentialError{Service: "rise", Field: "rise_user_id"}
	}
	return nil
}

// ListAssignments returns the dropdown choices for user.
func (s *RiseService) ListAssignments(ctx context.Context, user *models.User) ([]rise.Choice, error) {
	c, err := s.NewClient(user)
	if err != nil {
		return nil, err
	}
	return c.ListAssignments(ctx)
}

func (s *RiseService) GetAssignment(ctx context.Context, user *models.User, id string) (rise.Assignment, error) {
	c, err := s.NewClient(user)
	if err != nil {
		return rise.Assignment{}, err
	}
	return c.GetAssignment(ctx, id)
}

// entryFor loads the parent Entry and its owner.
func (s *RiseService) entryFor(ctx context.Context, re *models.RiseEntry) (*models.Entry, *rise.Client, error) {
	entry, err := s.entries.GetByID(ctx, re.EntryID)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetByID(ctx, entry.UserID)
	if err != nil {
		return nil, nil, err
	}
	c, err := s.NewClient(user)
	if err != nil {
		return nil, nil, err
	}
	return entry, c, nil
}

// Create files re in Rise and stores the remote id and sync time. On
// failure re is left untouched.
func (s *RiseService) Create(ctx context.Context, re *models.RiseEntry) error {
	entry, c, err := s.entryFor(ctx, re)
	if err != nil {
		return err
	}

	id, err := c.CreateLog(ctx, rise.LogInput{
		Day:          entry.DateCreated,
		Hours:        re.HoursWorked,
		Description:  re.Value,
		AssignmentID: re.AssignmentID,
		LogType:      re.LogType,
	})
	if err != nil {
		s.logger.Warn("rise log create failed", zap.Int("rise_entry_id", re.ID), zap.Error(err))
		return err
	}

	synced := *re
	synced.RemoteID = id
	now := s.now()
	synced.LastSyncedAt = &now
	if err := s.riseEntries.Update(ctx, &synced); err != nil {
		s.logger.Error("rise log created but not recorded locally, reconcile by hand",
			zap.Int("rise_entry_id", re.ID), zap.String("remote_id", id), zap.Error(err))
		return err
	}
	*re = synced

	s.logger.Info("rise log created", zap.Int("rise_entry_id", re.ID), zap.String("remote_id", id))
	return nil
}

func (s *RiseService) Update(ctx context.Context, re *models.RiseEntry) error {
	_, c, err := s.entryFor(ctx, re)
	if err != nil {
		return err
	}

	if err := c.UpdateLog(ctx, re.RemoteID, re.HoursWorked, re.Value); err != nil {
		s.logger.Warn("rise log update failed",
			zap.Int("rise_entry_id", re.ID), zap.String("remote_id", re.RemoteID), zap.Error(err))
		return err
	}

	synced := *re
	now := s.now()
	synced.LastSyncedAt = &now
	if err := s.riseEntries.Update(ctx, &synced); err != nil {
		return err
	}
	*re = synced

	s.logger.Info("rise log updated", zap.Int("rise_entry_id", re.ID), zap.String("remote_id", re.RemoteID))
	return nil
}

// Delete removes the remote log. The local row is not touched.
func (s *RiseService) Delete(ctx context.Context, re *models.RiseEntry) error {
	_, c, err := s.entryFor(ctx, re)
	if err != nil {
		return err
	}
	return c.DeleteLog(ctx, re.RemoteID)
}
