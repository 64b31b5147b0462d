package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	// ErrEntryInUse blocks deleting an Entry that still has child records.
	ErrEntryInUse = errors.New("entry still has jira or rise entries")
)

// ValidationError rejects a save on a single field. Nothing is persisted.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// CredentialError reports a missing or unreadable vendor credential.
// Err is crypto.ErrDecryption when the stored value cannot be decrypted.
type CredentialError struct {
	Service string
	Field   string
	Err     error
}

func (e *CredentialError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s credentials: %s: %v", e.Service, e.Field, e.Err)
	}
	return fmt.Sprintf("%s credentials: %s is not configured", e.Service, e.Field)
}

func (e *CredentialError) Unwrap() error {
	return e.Err
}
