package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/timevault/timevault-go/internal/model"
)

var ErrCapsuleNotFound = errors.New("capsule not found")

// queryTimeout bounds every store call so a stalled database surfaces as a
// deadline error instead of hanging the request.
const queryTimeout = 5 * time.Second

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// CapsuleRepository handles capsule persistence operations. The report count
// is always derived from the capsule_reports ledger, never stored.
type CapsuleRepository struct {
	db *sql.DB
}

// NewCapsuleRepository creates a new CapsuleRepository.
func NewCapsuleRepository(db *sql.DB) *CapsuleRepository {
	return &CapsuleRepository{db: db}
}

const capsuleColumns = `c.id, c.owner_id, c.title, c.message, c.ciphertext, c.nonce,
	c.media_key, c.media_type, c.unlock_at, c.is_public, c.is_encrypted,
	c.is_reviewed, c.unlock_notified, c.created_at,
	(SELECT COUNT(*) FROM capsule_reports r WHERE r.capsule_id = c.id)`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCapsule(row rowScanner) (*model.Capsule, error) {
	c := &model.Capsule{}
	err := row.Scan(
		&c.ID, &c.OwnerID, &c.Title, &c.Message, &c.Ciphertext, &c.Nonce,
		&c.MediaKey, &c.MediaType, &c.UnlockAt, &c.Public, &c.Encrypted,
		&c.Reviewed, &c.UnlockNotified, &c.CreatedAt,
		&c.ReportCount,
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a new capsule record.
func (r *CapsuleRepository) Create(ctx context.Context, c *model.Capsule) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `INSERT INTO capsules
		(id, owner_id, title, message, ciphertext, nonce, media_key, media_type,
		 unlock_at, is_public, is_encrypted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.OwnerID, c.Title, c.Message, c.Ciphertext, c.Nonce,
		c.MediaKey, c.MediaType, c.UnlockAt.UTC(), c.Public, c.Encrypted,
	)
	return err
}

// GetByID retrieves a capsule by its ID.
func (r *CapsuleRepository) GetByID(ctx context.Context, id string) (*model.Capsule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	query := `SELECT ` + capsuleColumns + ` FROM capsules c WHERE c.id = ?`

	c, err := scanCapsule(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCapsuleNotFound
		}
		return nil, err
	}
	return c, nil
}

// ListByOwner retrieves all capsules owned by a user, newest first.
func (r *CapsuleRepository) ListByOwner(ctx context.Context, ownerID int64) ([]model.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules c
		WHERE c.owner_id = ? ORDER BY c.created_at DESC`
	return r.queryCapsules(ctx, query, ownerID)
}

// ListPublicUnlocked retrieves capsules that are public and whose unlock time
// has passed at the caller-supplied instant. The caller passes now so the
// lock state is recomputed on every call rather than read from a cached flag.
func (r *CapsuleRepository) ListPublicUnlocked(ctx context.Context, now time.Time) ([]model.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules c
		WHERE c.is_public = TRUE AND c.unlock_at <= ? ORDER BY c.unlock_at DESC`
	return r.queryCapsules(ctx, query, now.UTC())
}

// List retrieves capsules for moderation, optionally narrowed by filter:
// "locked", "unlocked", "reported" or "reviewed". An empty filter returns
// everything, newest first.
func (r *CapsuleRepository) List(ctx context.Context, filter string, now time.Time) ([]model.Capsule, error) {
	query := `SELECT ` + capsuleColumns + ` FROM capsules c`
	var args []any

	switch filter {
	case "locked":
		query += ` WHERE c.unlock_at > ?`
		args = append(args, now.UTC())
	case "unlocked":
		query += ` WHERE c.unlock_at <= ?`
		args = append(args, now.UTC())
	case "reported":
		query += ` WHERE EXISTS (SELECT 1 FROM capsule_reports r WHERE r.capsule_id = c.id)`
	case "reviewed":
		query += ` WHERE c.is_reviewed = TRUE`
	}

	query += ` ORDER BY c.created_at DESC`
	return r.queryCapsules(ctx, query, args...)
}

func (r *CapsuleRepository) queryCapsules(ctx context.Context, query string, args ...any) ([]model.Capsule, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var capsules []model.Capsule
	for rows.Next() {
		c, err := scanCapsule(rows)
		if err != nil {
			return nil, err
		}
		capsules = append(capsules, *c)
	}

	return capsules, rows.Err()
}

// SetReviewed marks a capsule as reviewed by a moderator. The report count is
// left untouched.
func (r *CapsuleRepository) SetReviewed(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `UPDATE capsules SET is_reviewed = TRUE WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		// MySQL reports zero affected rows for a no-op update, so an
		// already-reviewed capsule needs an existence check.
		return r.checkExists(ctx, id)
	}

	return nil
}

// MarkUnlockNotified flips the one-time unlock notification flag and reports
// whether this call won the flip. The conditional update is what makes
// notification emission idempotent under racing reads.
func (r *CapsuleRepository) MarkUnlockNotified(ctx context.Context, id string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx,
		`UPDATE capsules SET unlock_notified = TRUE WHERE id = ? AND unlock_notified = FALSE`, id)
	if err != nil {
		return false, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Delete removes a capsule. Deleting a missing ID returns ErrCapsuleNotFound,
// which callers treat as an idempotent "already gone" signal rather than a
// failure.
func (r *CapsuleRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	result, err := r.db.ExecContext(ctx, `DELETE FROM capsules WHERE id = ?`, id)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrCapsuleNotFound
	}

	return nil
}

// Counts returns aggregate capsule numbers at the given instant.
func (r *CapsuleRepository) Counts(ctx context.Context, now time.Time) (model.CapsuleCounts, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var counts model.CapsuleCounts

	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM capsules`).Scan(&counts.Total)
	if err != nil {
		return model.CapsuleCounts{}, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM capsules WHERE unlock_at <= ?`, now.UTC()).Scan(&counts.Unlocked)
	if err != nil {
		return model.CapsuleCounts{}, err
	}

	err = r.db.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT capsule_id) FROM capsule_reports`).Scan(&counts.Reported)
	if err != nil {
		return model.CapsuleCounts{}, err
	}

	return counts, nil
}

func (r *CapsuleRepository) checkExists(ctx context.Context, id string) error {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM capsules WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCapsuleNotFound
	}
	return nil
}
