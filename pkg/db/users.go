package db

import (
	"context"
	"errors"
	"fmt"

	"housing-data-go/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ErrUserNotFound is returned when a lookup matches no user.
var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, username, email, api_key, role, is_approved, created_at, updated_at`

func scanUser(row pgx.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.APIKey,
		&user.Role,
		&user.IsApproved,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return &user, nil
}

// GetUserByAPIKey retrieves a user by their API key
func (db *DB) GetUserByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	return scanUser(db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE api_key = $1`,
		apiKey,
	))
}

// GetUserByID retrieves a user by id
func (db *DB) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(db.Pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`,
		id,
	))
}

// CreateUser creates a new user with a fresh API key
func (db *DB) CreateUser(ctx context.Context, create models.UserCreate, apiKey string) (*models.User, error) {
	role := create.Role
	if role == "" {
		role = models.RoleUser
	}
	user, err := scanUser(db.Pool.QueryRow(ctx,
		`INSERT INTO users (username, email, api_key, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+userColumns,
		create.Username, create.Email, apiKey, role,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// UpdateUser applies the non-nil fields of update to a user
func (db *DB) UpdateUser(ctx context.Context, id uuid.UUID, update models.UserUpdate) (*models.User, error) {
	user, err := scanUser(db.Pool.QueryRow(ctx,
		`UPDATE users
		 SET role = COALESCE($2, role),
		     is_approved = COALESCE($3, is_approved),
		     updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+userColumns,
		id, update.Role, update.IsApproved,
	))
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser removes a user; chat data cascades
func (db *DB) DeleteUser(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListUsers returns all users ordered by creation time
func (db *DB) ListUsers(ctx context.Context) ([]models.User, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

// CountAdmins returns the number of admin users
func (db *DB) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := db.Pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM users WHERE role = $1`, models.RoleAdmin,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return count, nil
}
