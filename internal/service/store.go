package service

import (
	"context"
	"io"
	"time"

	"github.com/timevault/timevault-go/internal/model"
)

// CapsuleStore is the slice of the capsule repository the services consume.
type CapsuleStore interface {
	Create(ctx context.Context, c *model.Capsule) error
	GetByID(ctx context.Context, id string) (*model.Capsule, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]model.Capsule, error)
	ListPublicUnlocked(ctx context.Context, now time.Time) ([]model.Capsule, error)
	List(ctx context.Context, filter string, now time.Time) ([]model.Capsule, error)
	SetReviewed(ctx context.Context, id string) error
	MarkUnlockNotified(ctx context.Context, id string) (bool, error)
	Delete(ctx context.Context, id string) error
	Counts(ctx context.Context, now time.Time) (model.CapsuleCounts, error)
}

// ReportStore is the deduplicating (capsule, reporter) report ledger.
type ReportStore interface {
	Add(ctx context.Context, capsuleID string, reporterID int64, reason string) (bool, error)
	Count(ctx context.Context, capsuleID string) (int, error)
}

// UserDirectory resolves actor identity, role and ban status, and carries the
// admin user-management operations.
type UserDirectory interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, status string) ([]model.User, error)
	SetBanned(ctx context.Context, id int64, banned bool) error
	Delete(ctx context.Context, id int64) error
	Counts(ctx context.Context) (model.UserCounts, error)
}

// MediaStore stores binary capsule media under opaque keys.
type MediaStore interface {
	Put(ctx context.Context, key, contentType string, body io.Reader) error
	URL(key string) string
}
