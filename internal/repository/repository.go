// Package repository persists users, entries and their Jira/Rise children in
// Postgres through sqlx.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"timemachine/internal/models"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, id int, firstName, lastName *string) error
	UpdateCredentials(ctx context.Context, user *models.User) error
}

type EntryRepository interface {
	Create(ctx context.Context, e *models.Entry) error
	GetOrCreate(ctx context.Context, userID int, date time.Time) (*models.Entry, error)
	GetByID(ctx context.Context, id int) (*models.Entry, error)
	GetByUserAndDate(ctx context.Context, userID int, date time.Time) (*models.Entry, error)
	List(ctx context.Context, userID int, from, to *time.Time) ([]models.Entry, error)
	Delete(ctx context.Context, id int) error
}

type JiraEntryRepository interface {
	Create(ctx context.Context, e *models.JiraEntry) error
	GetByID(ctx context.Context, id int) (*models.JiraEntry, error)
	ListByEntry(ctx context.Context, entryID int) ([]models.JiraEntry, error)
	Update(ctx context.Context, e *models.JiraEntry) error
	Delete(ctx context.Context, id int) error
}

type RiseEntryRepository interface {
	Create(ctx context.Context, e *models.RiseEntry) error
	GetByID(ctx context.Context, id int) (*models.RiseEntry, error)
	GetByEntry(ctx context.Context, entryID int) (*models.RiseEntry, error)
	Update(ctx context.Context, e *models.RiseEntry) error
	Delete(ctx context.Context, id int) error
}

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// mapError translates driver errors into the model sentinels.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%s: %w", op, models.ErrAlreadyExists)
		case pgForeignKeyViolation:
			return fmt.Errorf("%s: %w", op, models.ErrEntryInUse)
		}
	}
	return fmt.Errorf("%s: db error: %w", op, err)
}

func expectOneRow(op string, res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return mapError(op, err)
	}
	if n == 0 {
		return models.ErrNotFound
	}
	return nil
}
