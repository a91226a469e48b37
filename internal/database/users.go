package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/benvon/smart-bookmarks/internal/models"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

const userColumns = `id, email, name, password, status, created_at, updated_at`

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures
const uniqueViolation = "23505"

// UserRepository handles user database operations
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var name sql.NullString
	var status string
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&name,
		&user.PasswordHash,
		&status,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if name.Valid {
		user.Name = &name.String
	}
	user.Status = models.UserStatus(status)
	return user, nil
}

// isUniqueViolation reports whether err is a Postgres unique constraint failure
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.Status == "" {
		user.Status = models.UserStatusActive
	}
	now := time.Now()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, name, password, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`, user.ID, user.Email, user.Name, user.PasswordHash, string(user.Status), now, now,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return models.NewDomainError(models.ErrConflict, "User with this email already exists")
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user with email: %w", models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// List returns all users with their bookmark counts
func (r *UserRepository) List(ctx context.Context) ([]*models.UserWithCount, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT u.id, u.email, u.name, u.password, u.status, u.created_at, u.updated_at,
		       COUNT(b.id) AS bookmark_count
		FROM users u
		LEFT JOIN bookmarks b ON b.user_id = u.id
		GROUP BY u.id
		ORDER BY u.created_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var users []*models.UserWithCount
	for rows.Next() {
		uc := &models.UserWithCount{}
		var name sql.NullString
		var status string
		if err := rows.Scan(
			&uc.ID, &uc.Email, &name, &uc.PasswordHash, &status, &uc.CreatedAt, &uc.UpdatedAt,
			&uc.BookmarkCount,
		); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		if name.Valid {
			uc.Name = &name.String
		}
		uc.Status = models.UserStatus(status)
		users = append(users, uc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

// Update persists email, name and password hash changes
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	err := r.db.QueryRowContext(ctx, `
		UPDATE users SET email = $1, name = $2, password = $3, updated_at = $4
		WHERE id = $5
		RETURNING updated_at
	`, user.Email, user.Name, user.PasswordHash, time.Now(), user.ID).Scan(&user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %s: %w", user.ID, models.ErrNotFound)
		}
		if isUniqueViolation(err) {
			return models.NewDomainError(models.ErrConflict, "User with this email already exists")
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of a user and returns the updated row
func (r *UserRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.UserStatus) (*models.User, error) {
	row := r.db.QueryRowContext(ctx, `
		UPDATE users SET status = $1, updated_at = $2
		WHERE id = $3
		RETURNING `+userColumns, string(status), time.Now(), id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to update user status: %w", err)
	}
	return user, nil
}

// UpdatePassword replaces the stored password hash
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password = $1, updated_at = $2 WHERE id = $3
	`, passwordHash, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("user %s", id))
}

// Delete removes a user; bookmarks cascade
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOneRow(res, fmt.Sprintf("user %s", id))
}

func expectOneRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, models.ErrNotFound)
	}
	return nil
}
