// Package lifecycle implements the capsule state machine. The locked/unlocked
// distinction is a pure function of the unlock timestamp and the current time,
// recomputed on every read; no background job flips a stored flag.
package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/timevault/timevault-go/internal/crypto"
	"github.com/timevault/timevault-go/internal/model"
)

// State of a capsule at a given instant. Unlocked is terminal.
type State int

const (
	Locked State = iota
	Unlocked
)

func (s State) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// StateAt computes the capsule state for the given unlock timestamp and clock
// reading. A capsule whose unlock time has arrived is unlocked, including one
// created with an unlock time in the past.
func StateAt(unlockAt, now time.Time) State {
	if now.Before(unlockAt) {
		return Locked
	}
	return Unlocked
}

var (
	ErrForbidden      = errors.New("capsule is not visible to requester")
	ErrCorruptPayload = errors.New("capsule payload is corrupt")
)

// Store is the slice of the capsule store the engine needs to guarantee
// at-most-once unlock notification.
type Store interface {
	// MarkUnlockNotified flips the one-time notification flag and reports
	// whether this call was the one that flipped it.
	MarkUnlockNotified(ctx context.Context, id string) (bool, error)
}

// Notifier consumes unlock events. Delivery is fire-and-forget.
type Notifier interface {
	CapsuleUnlocked(ctx context.Context, ownerID int64, capsuleID, title string)
}

// RevealedView is the outcome of a reveal. When Locked is true only UnlockAt
// is populated; payload fields stay empty for every requester.
type RevealedView struct {
	Locked    bool
	UnlockAt  time.Time
	Message   string
	MediaKey  string
	MediaType string
}

// Engine enforces lock/unlock transitions and the reveal contract.
type Engine struct {
	store    Store
	notifier Notifier
	key      []byte
	now      func() time.Time
}

// NewEngine creates a lifecycle engine. key is the envelope key used to open
// encrypted payloads.
func NewEngine(store Store, notifier Notifier, key []byte) *Engine {
	return &Engine{store: store, notifier: notifier, key: key, now: time.Now}
}

// State returns the capsule's state at the current instant.
func (e *Engine) State(c *model.Capsule) State {
	return StateAt(c.UnlockAt, e.now())
}

// Now exposes the engine clock so list queries recompute state consistently.
func (e *Engine) Now() time.Time {
	return e.now()
}

// Reveal applies the read contract:
//   - locked: a Locked view carrying only the unlock time, owner included;
//   - unlocked: visibility gate (non-owners need a public capsule), then
//     decryption for encrypted payloads, failing closed on a bad tag.
//
// Observing an unlocked capsule also triggers the one-time unlock
// notification, before the visibility gate so a racing non-owner read still
// emits it.
func (e *Engine) Reveal(ctx context.Context, c *model.Capsule, requesterID int64) (RevealedView, error) {
	if e.State(c) == Locked {
		return RevealedView{Locked: true, UnlockAt: c.UnlockAt}, nil
	}

	e.observeUnlock(ctx, c)

	if requesterID != c.OwnerID && !c.Public {
		return RevealedView{}, ErrForbidden
	}

	message := c.Message
	if c.Encrypted {
		plaintext, err := crypto.Open(c.Ciphertext, c.Nonce, e.key)
		if err != nil {
			slog.Error("capsule payload failed authentication", "capsule_id", c.ID)
			return RevealedView{}, ErrCorruptPayload
		}
		message = string(plaintext)
	}

	return RevealedView{
		UnlockAt:  c.UnlockAt,
		Message:   message,
		MediaKey:  c.MediaKey,
		MediaType: c.MediaType,
	}, nil
}

// observeUnlock emits the unlock event at most once. The store update is the
// arbiter: only the request that flips unlock_notified calls the notifier,
// so racing reads cannot double-send.
func (e *Engine) observeUnlock(ctx context.Context, c *model.Capsule) {
	if c.UnlockNotified {
		return
	}

	first, err := e.store.MarkUnlockNotified(ctx, c.ID)
	if err != nil {
		slog.Warn("marking unlock notification failed", "capsule_id", c.ID, "error", err)
		return
	}

	c.UnlockNotified = true
	if first && e.notifier != nil {
		e.notifier.CapsuleUnlocked(ctx, c.OwnerID, c.ID, c.Title)
	}
}
