package service

import (
	"context"
	"errors"

	"github.com/timevault/timevault-go/internal/repository"
)

// The service error taxonomy. The access controller re-maps everything below
// it into these values so store-specific errors never leak to the API
// boundary. A locked capsule is not an error; it is a valid reveal result.
var (
	ErrNotFound       = errors.New("capsule not found")
	ErrForbidden      = errors.New("forbidden")
	ErrActorBanned    = errors.New("account is banned")
	ErrCorruptPayload = errors.New("capsule payload is corrupt")
	ErrConflict       = errors.New("concurrent modification conflict")
	ErrStoreTimeout   = errors.New("store operation timed out")
)

// mapStoreErr translates repository and context errors into the taxonomy.
func mapStoreErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrCapsuleNotFound), errors.Is(err, repository.ErrUserNotFound):
		return ErrNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return ErrStoreTimeout
	default:
		return err
	}
}
