package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"timemachine/internal/models"
)

const userColumns = `id, email, password_hash, created_at, first_name, last_name, is_admin,
	rise_api_key, rise_user_id, jira_api_key, jira_email_address, jira_url`

type Users struct {
	db *sqlx.DB
}

func NewUsers(db *sqlx.DB) *Users {
	return &Users{db: db}
}

func (r *Users) Create(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO users (email, password_hash) VALUES ($1, $2) RETURNING id, created_at`,
		user.Email, user.PasswordHash).Scan(&user.ID, &user.CreatedAt)
	return mapError("create user", err)
}

func (r *Users) GetByID(ctx context.Context, id int) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE id=$1`, id); err != nil {
		return nil, mapError("get user", err)
	}
	return &u, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM users WHERE email=$1`, email); err != nil {
		return nil, mapError("get user by email", err)
	}
	return &u, nil
}

// UpdateProfile sets only the non-nil name fields.
func (r *Users) UpdateProfile(ctx context.Context, id int, firstName, lastName *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET first_name=COALESCE($1, first_name), last_name=COALESCE($2, last_name) WHERE id=$3`,
		firstName, lastName, id)
	if err != nil {
		return mapError("update profile", err)
	}
	return expectOneRow("update profile", res)
}

// UpdateCredentials stores the already-encrypted vendor credentials.
func (r *Users) UpdateCredentials(ctx context.Context, user *models.User) error {
	res, err := r.db.NamedExecContext(ctx, `UPDATE users SET
		rise_api_key=:rise_api_key,
		rise_user_id=:rise_user_id,
		jira_api_key=:jira_api_key,
		jira_email_address=:jira_email_address,
		jira_url=:jira_url
		WHERE id=:id`, user)
	if err != nil {
		return mapError("update credentials", err)
	}
	return expectOneRow("update credentials", res)
}
