package services

import (
	"timemachine/internal/crypto"
	"timemachine/internal/jira"
	"timemachine/internal/models"
	"timemachine/internal/rise"
)

// EncryptionService wraps the credential cipher with domain-specific methods
type EncryptionService struct {
	cipher *crypto.Cipher
}

// NewEncryptionService creates a new encryption service
func NewEncryptionService(encryptionKey []byte) (*EncryptionService, error) {
	c, err := crypto.NewCipher(encryptionKey)
	if err != nil {
		return nil, err
	}
	return &EncryptionService{cipher: c}, nil
}

// CredentialsInput carries plaintext vendor credentials. Nil fields are left
// untouched; an empty string clears the stored value.
type CredentialsInput struct {
	RiseAPIKey       *string `json:"rise_api_key"`
	RiseUserID       *int    `json:"rise_user_id"`
	JiraAPIKey       *string `json:"jira_api_key"`
	JiraEmailAddress *string `json:"jira_email_address"`
	JiraURL          *string `json:"jira_url"`
}

// EncryptCredentials encrypts sensitive user fields before storing in DB
func (s *EncryptionService) EncryptCredentials(user *models.User, in CredentialsInput) error {
	encrypt := func(dst *string, plain *string) error {
		if plain == nil {
			return nil
		}
		v, err := s.cipher.Encrypt(*plain)
		if err != nil {
			return err
		}
		*dst = v
		return nil
	}

	if err := encrypt(&user.RiseAPIKey, in.RiseAPIKey); err != nil {
		return err
	}
	if err := encrypt(&user.JiraAPIKey, in.JiraAPIKey); err != nil {
		return err
	}
	if err := encrypt(&user.JiraEmailAddress, in.JiraEmailAddress); err != nil {
		return err
	}

	if in.RiseUserID != nil {
		if *in.RiseUserID == 0 {
			user.RiseUserID = nil
		} else {
			id := *in.RiseUserID
			user.RiseUserID = &id
		}
	}
	if in.JiraURL != nil {
		user.JiraURL = *in.JiraURL
	}
	return nil
}

func (s *EncryptionService) decryptField(service, field, value string) (string, error) {
	plain, err := s.cipher.Decrypt(value)
	if err != nil {
		return "", &models.CredentialError{Service: service, Field: field, Err: err}
	}
	return plain, nil
}

// DecryptJiraCredentials decrypts the Jira token and account email.
func (s *EncryptionService) DecryptJiraCredentials(user models.User) (jira.Credentials, error) {
	key, err := s.decryptField("jira", "jira_api_key", user.JiraAPIKey)
	if err != nil {
		return jira.Credentials{}, err
	}
	email, err := s.decryptField("jira", "jira_email_address", user.JiraEmailAddress)
	if err != nil {
		return jira.Credentials{}, err
	}
	return jira.Credentials{BaseURL: user.JiraURL, Email: email, APIKey: key}, nil
}

// DecryptRiseCredentials decrypts the Rise token.
func (s *EncryptionService) DecryptRiseCredentials(user models.User) (rise.Credentials, error) {
	key, err := s.decryptField("rise", "rise_api_key", user.RiseAPIKey)
	if err != nil {
		return rise.Credentials{}, err
	}
	creds := rise.Credentials{APIKey: key}
	if user.RiseUserID != nil {
		creds.UserID = *user.RiseUserID
	}
	return creds, nil
}
