package handlers

import (
	"time"

	"timemachine/internal/models"
)

// UserDTO never carries credential values, only whether each is set.
type UserDTO struct {
	ID                  int     `json:"id"`
	Email               string  `json:"email"`
	CreatedAt           string  `json:"created_at"`
	FirstName           *string `json:"first_name,omitempty"`
	LastName            *string `json:"last_name,omitempty"`
	IsAdmin             bool    `json:"is_admin"`
	HasRiseAPIKey       bool    `json:"has_rise_api_key"`
	RiseUserID          *int    `json:"rise_user_id,omitempty"`
	HasJiraAPIKey       bool    `json:"has_jira_api_key"`
	HasJiraEmailAddress bool    `json:"has_jira_email_address"`
	JiraURL             string  `json:"jira_url,omitempty"`
}

func ToUserDTO(u models.User) UserDTO {
	return UserDTO{
		ID:                  u.ID,
		Email:               u.Email,
		CreatedAt:           u.CreatedAt.Format(time.RFC3339),
		FirstName:           u.FirstName,
		LastName:            u.LastName,
		IsAdmin:             u.IsAdmin,
		HasRiseAPIKey:       u.RiseAPIKey != "",
		RiseUserID:          u.RiseUserID,
		HasJiraAPIKey:       u.JiraAPIKey != "",
		HasJiraEmailAddress: u.JiraEmailAddress != "",
		JiraURL:             u.JiraURL,
	}
}

// EntryDTO renders an Entry with a date-only date_created.
type EntryDTO struct {
	ID          int    `json:"id"`
	DateCreated string `json:"date_created"`
}

func ToEntryDTO(e models.Entry) EntryDTO {
	return EntryDTO{ID: e.ID, DateCreated: e.DateCreated.Format(dateLayout)}
}

type EntryDetailDTO struct {
	EntryDTO
	JiraEntries []models.JiraEntry `json:"jira_entries"`
	RiseEntry   *models.RiseEntry  `json:"rise_entry"`
}

func ToEntryDetailDTO(d models.EntryDetail) EntryDetailDTO {
	jes := d.JiraEntries
	if jes == nil {
		jes = []models.JiraEntry{}
	}
	return EntryDetailDTO{EntryDTO: ToEntryDTO(d.Entry), JiraEntries: jes, RiseEntry: d.RiseEntry}
}
