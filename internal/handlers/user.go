package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"timemachine/internal/repository"
	"timemachine/internal/services"
)

type UserHandler struct {
	users  repository.UserRepository
	encSvc *services.EncryptionService
	logger *zap.Logger
}

func NewUserHandler(users repository.UserRepository, encSvc *services.EncryptionService, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, encSvc: encSvc, logger: logger}
}

// GetMe returns the current user's profile
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetByID(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ToUserDTO(*u))
}

// UpdateMe updates provided name fields on the current user's profile
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	var body struct {
		FirstName *string `json:"first_name"`
		LastName  *string `json:"last_name"`
	}
	if err := decode(r, &body); err != nil {
		badRequest(w, "invalid body")
		return
	}
	if body.FirstName == nil && body.LastName == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.users.UpdateProfile(r.Context(), userID(r), body.FirstName, body.LastName); err != nil {
		writeError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCredentials encrypts and stores the vendor credentials that were sent.
func (h *UserHandler) UpdateCredentials(w http.ResponseWriter, r *http.Request) {
	var in services.CredentialsInput
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid body")
		return
	}

	u, err := h.users.GetByID(r.Context(), userID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.encSvc.EncryptCredentials(u, in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	if err := h.users.UpdateCredentials(r.Context(), u); err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("credentials updated", zap.Int("user_id", u.ID))
	writeJSON(w, http.StatusOK, ToUserDTO(*u))
}
