// Package store implements the core persistence ports on PostgreSQL.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JonMunkholm/userimport/internal/core"
	"github.com/JonMunkholm/userimport/internal/database"
)

// Store rejections. Their text is shown to users as-is in import summaries.
var (
	ErrLoginTaken = errors.New("Sorry, that username already exists!")
	ErrEmailTaken = errors.New("Sorry, that email address is already used!")
	ErrTooLong    = errors.New("Sorry, a value is longer than the field allows!")
)

const (
	uniqueViolation = "23505"
	valueTooLong    = "22001"
)

const userColumns = `id, login, email, password_hash, role, first_name, last_name,
	display_name, nickname, description, url, created_at, updated_at`

// Users is the PostgreSQL core.UserStore.
type Users struct {
	db *database.DB
}

// NewUsers creates a Users store.
func NewUsers(db *database.DB) *Users {
	return &Users{db: db}
}

var _ core.UserStore = (*Users)(nil)

func scanUser(row pgx.Row) (*core.User, error) {
	var u core.User
	var role string
	err := row.Scan(
		&u.ID, &u.Login, &u.Email, &u.PasswordHash, &role, &u.FirstName, &u.LastName,
		&u.DisplayName, &u.Nickname, &u.Description, &u.URL, &u.CreatedAt, &u.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, core.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	u.Role = core.Role(role)
	return &u, nil
}

// FindByEmail looks an account up by email, ignoring case.
func (s *Users) FindByEmail(ctx context.Context, email string) (*core.User, error) {
	u, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE lower(email) = lower($1)
	`, email))
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return u, err
}

// FindByID returns the account with the given id.
func (s *Users) FindByID(ctx context.Context, id int64) (*core.User, error) {
	u, err := scanUser(s.db.Pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users WHERE id = $1
	`, id))
	if err != nil && !errors.Is(err, core.ErrUserNotFound) {
		return nil, fmt.Errorf("find user %d: %w", id, err)
	}
	return u, err
}

// LoginExists reports whether login is taken.
func (s *Users) LoginExists(ctx context.Context, login string) (bool, error) {
	var exists bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)
	`, login).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check login: %w", err)
	}
	return exists, nil
}

// CreateUser inserts an account. An empty display name defaults to the login.
func (s *Users) CreateUser(ctx context.Context, nu core.NewUser) (int64, error) {
	var id int64
	err := s.db.Pool.QueryRow(ctx, `
		INSERT INTO users (login, email, password_hash, role, first_name, last_name,
			display_name, nickname, description, url)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE(NULLIF($7, ''), $1), $8, $9, $10)
		RETURNING id
	`, nu.Login, nu.Email, nu.PasswordHash, string(nu.Role), nu.FirstName, nu.LastName,
		nu.DisplayName, nu.Nickname, nu.Description, nu.URL).Scan(&id)
	if err != nil {
		return 0, mapWriteError(err)
	}
	return id, nil
}

// UpdateUser writes the profile fields of an existing account.
func (s *Users) UpdateUser(ctx context.Context, u *core.User) error {
	tag, err := s.db.Pool.Exec(ctx, `
		UPDATE users SET
			first_name = $2, last_name = $3, display_name = $4, nickname = $5,
			description = $6, url = $7, role = $8, updated_at = NOW()
		WHERE id = $1
	`, u.ID, u.FirstName, u.LastName, u.DisplayName, u.Nickname, u.Description, u.URL, string(u.Role))
	if err != nil {
		return mapWriteError(err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrUserNotFound
	}
	return nil
}

// mapWriteError turns unique-constraint and length failures into the
// matching store rejection.
func mapWriteError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case uniqueViolation:
		if pgErr.ConstraintName == "idx_users_email_lower" {
			return ErrEmailTaken
		}
		return ErrLoginTaken
	case valueTooLong:
		return ErrTooLong
	}
	return err
}
