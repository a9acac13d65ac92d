package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/timevault/timevault-go/internal/model"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrDuplicateEmail = errors.New("email already exists")
)

// UserRepository handles user directory persistence operations.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, auth_hash, role, is_banned, created_at, updated_at`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Email, &u.AuthHash, &u.Role, &u.Banned, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// Create inserts a new user and sets the generated ID on the user struct.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO users (email, auth_hash, role) VALUES (?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query, user.Email, user.AuthHash, user.Role)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrDuplicateEmail
		}
		return err
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}

	user.ID = id
	return nil
}

// GetByEmail retrieves a user by their email address.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, email))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// GetByID retrieves a user by their ID.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`

	user, err := scanUser(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// List retrieves users, optionally narrowed by status: "active" or "banned".
func (r *UserRepository) List(ctx context.Context, status string) ([]model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + userColumns + ` FROM users`
	switch status {
	case "active":
		query += ` WHERE is_banned = FALSE`
	case "banned":
		query += ` WHERE is_banned = TRUE`
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}

	return users, rows.Err()
}

// SetBanned updates a user's ban flag. Setting the flag to its current value
// is a no-op, not an error.
func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `UPDATE users SET is_banned = ? WHERE id = ?`, banned, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM users WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrUserNotFound
		}
	}

	return nil
}

// Delete removes a user. Their capsules are removed by the schema's cascade.
func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// Counts returns aggregate user numbers.
func (r *UserRepository) Counts(ctx context.Context) (model.UserCounts, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var counts model.UserCounts

	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&counts.Total); err != nil {
		return model.UserCounts{}, err
	}
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE is_banned = TRUE`).Scan(&counts.Banned); err != nil {
		return model.UserCounts{}, err
	}

	return counts, nil
}

// isDuplicateEntryError checks if a MySQL error is a duplicate entry error (code 1062).
func isDuplicateEntryError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "Duplicate entry")
}
