package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"careshare-service/internal/models"

	"github.com/lib/pq"
)

// CreateUser inserts a new user. Emails are stored lowercased.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	if len(user.Roles) == 0 {
		user.Roles = []string{models.RoleUser}
	}

	query := `
		INSERT INTO users (email, password_hash, first_name, last_name, roles, is_admin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := s.db.GetContext(ctx, user, query,
		user.Email, user.PasswordHash, user.FirstName, user.LastName, user.Roles, user.IsAdmin)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	return err
}

// GetUserByID retrieves a user by ID
func (s *Store) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user %d: %w", id, err)
	}
	return &user, nil
}

// GetUserByEmail retrieves a user by email, case-insensitively
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE email = $1",
		strings.ToLower(strings.TrimSpace(email)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetUserByResetToken retrieves the user holding a password-reset token
func (s *Store) GetUserByResetToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	err := s.db.GetContext(ctx, &user, "SELECT * FROM users WHERE reset_token = $1", token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by reset token: %w", err)
	}
	return &user, nil
}

// ListUsers returns every user, oldest first
func (s *Store) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := s.db.SelectContext(ctx, &users, "SELECT * FROM users ORDER BY id")
	return users, err
}

// UpdateUserRole sets the admin flag and the matching role set
func (s *Store) UpdateUserRole(ctx context.Context, id int64, isAdmin bool) (*models.User, error) {
	roles := pq.StringArray{models.RoleUser}
	if isAdmin {
		roles = append(roles, models.RoleAdmin)
	}

	var user models.User
	err := s.db.GetContext(ctx, &user,
		"UPDATE users SET is_admin = $1, roles = $2 WHERE id = $3 RETURNING *",
		isAdmin, roles, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update role for user %d: %w", id, err)
	}
	return &user, nil
}

// DeleteUser hard-deletes a user and, through cascades, everything they own
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete user %d: %w", id, err)
	}
	return expectOneRow(res)
}

// CountUsers returns the total number of users and how many are admins
func (s *Store) CountUsers(ctx context.Context) (total, admins int64, err error) {
	var row struct {
		Total  int64 `db:"total"`
		Admins int64 `db:"admins"`
	}
	err = s.db.GetContext(ctx, &row,
		"SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE is_admin) AS admins FROM users")
	return row.Total, row.Admins, err
}

// SetResetToken stores a password-reset token and its expiry
func (s *Store) SetResetToken(ctx context.Context, id int64, token string, expiry time.Time) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET reset_token = $1, reset_token_expiry = $2 WHERE id = $3",
		token, expiry, id)
	if err != nil {
		return fmt.Errorf("failed to set reset token: %w", err)
	}
	return expectOneRow(res)
}

// UpdatePassword replaces the credential hash and clears any reset token
func (s *Store) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET password_hash = $1, reset_token = NULL, reset_token_expiry = NULL WHERE id = $2",
		passwordHash, id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOneRow(res)
}

// PurgeExpiredResetTokens clears reset tokens that expired before now
func (s *Store) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE users SET reset_token = NULL, reset_token_expiry = NULL WHERE reset_token_expiry < $1",
		now)
	if err != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", err)
	}
	return res.RowsAffected()
}
