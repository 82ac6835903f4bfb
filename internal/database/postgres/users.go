package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/attendai/internal/database"
)

// UserRepository provides PostgreSQL-backed login accounts.
type UserRepository struct {
	pool *Pool
}

// NewUserRepository creates a new PostgreSQL user repository.
func NewUserRepository(pool *Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

const userColumns = "id, username, password_hash, role, email, full_name, department, subject, phone, student_id, created_at"

func scanUser(row interface{ Scan(...any) error }) (*database.User, error) {
	var u database.User
	var role string
	var studentID sql.NullInt64
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &role, &u.Email, &u.FullName, &u.Department, &u.Subject, &u.Phone, &studentID, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = database.Role(role)
	if studentID.Valid {
		u.StudentID = &studentID.Int64
	}
	return &u, nil
}

// GetUserByUsername returns the user or nil if not found.
func (r *UserRepository) GetUserByUsername(ctx context.Context, username string) (*database.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// GetUser returns the user or nil if not found.
func (r *UserRepository) GetUser(ctx context.Context, id int64) (*database.User, error) {
	u, err := scanUser(r.pool.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// CreateUser inserts a user and fills in ID and CreatedAt.
func (r *UserRepository) CreateUser(ctx context.Context, u *database.User) error {
	query := `
		INSERT INTO users (username, password_hash, role, email, full_name, department, subject, phone, student_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query,
		u.Username, u.PasswordHash, string(u.Role), u.Email, u.FullName, u.Department, u.Subject, u.Phone, u.StudentID,
	).Scan(&u.ID, &u.CreatedAt)
	if isUniqueViolation(err, "users_username_key") {
		return database.ErrDuplicateUsername
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the password hash of a user.
func (r *UserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	result, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $2 WHERE id = $1", id, passwordHash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return database.ErrNotFound
	}
	return nil
}
