package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"timemachine/internal/httpclient"
	mw "timemachine/internal/middleware"
	"timemachine/internal/models"
)

const dateLayout = "2006-01-02"

type errorResponse struct {
	Error  string            `json:"error"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var (
		vErr    *models.ValidationError
		credErr *models.CredentialError
	)
	switch {
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Errors: map[string]string{vErr.Field: vErr.Message},
		})
	case errors.As(err, &credErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:  "validation failed",
			Errors: map[string]string{credErr.Field: credErr.Error()},
		})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "not found"})
	case errors.Is(err, models.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "already exists"})
	case errors.Is(err, models.ErrEntryInUse):
		writeJSON(w, http.StatusConflict, errorResponse{Error: models.ErrEntryInUse.Error()})
	case errors.Is(err, httpclient.ErrRemoteUnavailable):
		logger.Warn("remote service unavailable", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		var malformed *httpclient.MalformedResponseError
		if errors.As(err, &malformed) {
			logger.Warn("malformed remote response", zap.Error(err))
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
			return
		}
		logger.Error("request failed", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "server error"})
	}
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg})
}

func decode(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func userID(r *http.Request) int {
	id, _ := mw.UserID(r.Context())
	return id
}

// parseDateParam parses an optional YYYY-MM-DD value.
func parseDateParam(v string) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, v)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
