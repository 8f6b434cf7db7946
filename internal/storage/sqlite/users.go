package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"synergysphere/internal/models"
)

const userColumns = `id, email, password_hash, name, role, avatar, bio, skills, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	var skills string
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Name, &u.Role, &u.Avatar, &u.Bio, &skills, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return models.User{}, err
	}
	u.Skills = decodeList(skills)
	return u, nil
}

// CreateUser registers a new account with a pre-hashed password.
func (s *Store) CreateUser(ctx context.Context, email, passwordHash, name string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.User{}, fmt.Errorf("email must not be empty")
	}
	if strings.TrimSpace(name) == "" {
		return models.User{}, fmt.Errorf("name must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users(email, password_hash, name) VALUES(?, ?, ?)`,
		email, passwordHash, strings.TrimSpace(name))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return models.User{}, ErrEmailTaken
		}
		return models.User{}, fmt.Errorf("insert user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return models.User{}, fmt.Errorf("user id: %w", err)
	}
	return s.GetUser(ctx, id)
}

// GetUser fetches a user by id.
func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %w", ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUserByEmail resolves an account by its lowercased email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, fmt.Errorf("user %w", ErrNotFound)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns every registered user ordered by name.
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UpdateProfile replaces the mutable profile fields. Name is required;
// bio and skills are replaced wholesale, matching the PATCH semantics.
func (s *Store) UpdateProfile(ctx context.Context, id int64, name, bio string, skills []string) (models.User, error) {
	if strings.TrimSpace(name) == "" {
		return models.User{}, fmt.Errorf("name must not be empty")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET name = ?, bio = ?, skills = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		strings.TrimSpace(name), strings.TrimSpace(bio), encodeList(skills), id)
	if err != nil {
		return models.User{}, fmt.Errorf("update profile: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return models.User{}, err
	}
	if affected == 0 {
		return models.User{}, fmt.Errorf("user %w", ErrNotFound)
	}
	return s.GetUser(ctx, id)
}

// CreateSession persists a new session token for the user.
func (s *Store) CreateSession(ctx context.Context, userID int64, token string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions(user_id, token, expires_at) VALUES(?, ?, ?)`,
		userID, token, expiresAt.UTC())
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// UserForSession resolves a session token to its user. Expired or unknown
// tokens yield ErrSessionInvalid; a dangling user reference does too, since
// the caller cannot distinguish the two states usefully.
func (s *Store) UserForSession(ctx context.Context, token string) (models.User, error) {
	var userID int64
	var expiresAt time.Time
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, expires_at FROM sessions WHERE token = ?`, token).
		Scan(&userID, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrSessionInvalid
	}
	if err != nil {
		return models.User{}, fmt.Errorf("get session: %w", err)
	}
	if time.Now().After(expiresAt) {
		return models.User{}, ErrSessionInvalid
	}

	u, err := s.GetUser(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return models.User{}, ErrSessionInvalid
	}
	return u, err
}

// DeleteSession revokes a session token. Unknown tokens are not an error.
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE token = ?`, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
