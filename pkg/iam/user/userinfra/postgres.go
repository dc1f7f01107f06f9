package userinfra

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Abraxas-365/jobgrid/pkg/iam/user"
	"github.com/Abraxas-365/jobgrid/pkg/kernel"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const userColumns = `id, external_id, email, name, avatar_url, type, created_at, updated_at`

type PostgresUserRepository struct {
	db *sqlx.DB
}

func NewPostgresUserRepository(db *sqlx.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) FindByExternalID(ctx context.Context, ext kernel.ExternalID) (*user.User, error) {
	var u user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	if err := r.db.GetContext(ctx, &u, query, ext); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound().WithDetail("external_id", ext)
		}
		return nil, user.ErrStore("find by external id", err).
			WithDetail("external_id", ext)
	}
	return &u, nil
}

func (r *PostgresUserRepository) FindByEmail(ctx context.Context, email string) (*user.User, error) {
	var u user.User
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &u, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, user.ErrUserNotFound().WithDetail("email", email)
		}
		return nil, user.ErrStore("find by email", err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) Create(ctx context.Context, u *user.User) error {
	query := `
		INSERT INTO users (` + userColumns + `)
		VALUES (:id, :external_id, :email, :name, :avatar_url, :type, :created_at, :updated_at)`

	if _, err := r.db.NamedExecContext(ctx, query, u); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return user.ErrUserAlreadyExists().
				WithDetail("constraint", pqErr.Constraint).
				WithCause(err)
		}
		return user.ErrStore("create", err).
			WithDetail("user_id", u.ID)
	}
	return nil
}

func (r *PostgresUserRepository) UpdateProfile(ctx context.Context, id kernel.UserID, upd user.ProfileUpdate) error {
	query := `
		UPDATE users SET
			name = COALESCE($2, name),
			avatar_url = COALESCE($3, avatar_url),
			updated_at = $4
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, upd.Name, upd.AvatarURL, time.Now())
	if err != nil {
		return user.ErrStore("update profile", err).
			WithDetail("user_id", id)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return user.ErrStore("update profile rows affected", err)
	}
	if rows == 0 {
		return user.ErrUserNotFound().WithDetail("user_id", id)
	}
	return nil
}
