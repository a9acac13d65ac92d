package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/timevault/timevault-go/internal/crypto"
	"github.com/timevault/timevault-go/internal/lifecycle"
	"github.com/timevault/timevault-go/internal/model"
)

var (
	ErrTitleRequired    = errors.New("title is required")
	ErrTitleTooLong     = errors.New("title must be at most 100 characters")
	ErrUnlockRequired   = errors.New("unlock time is required")
	ErrPayloadRequired  = errors.New("message or media is required")
	ErrMediaUnavailable = errors.New("media storage is unavailable")
)

// MediaUpload carries an incoming media file for a capsule.
type MediaUpload struct {
	ContentType string
	Body        io.Reader
}

// CapsuleService handles capsule creation and read paths. Authorization lives
// in the Access controller; this service assumes the actor has already been
// cleared to perform the operation.
type CapsuleService struct {
	store  CapsuleStore
	media  MediaStore
	engine *lifecycle.Engine
	key    []byte
}

// NewCapsuleService creates a new CapsuleService. media may be nil when no
// media store is configured; capsules with uploads are then rejected.
func NewCapsuleService(store CapsuleStore, media MediaStore, engine *lifecycle.Engine, key []byte) *CapsuleService {
	return &CapsuleService{store: store, media: media, engine: engine, key: key}
}

// Create stores a new capsule for ownerID. The unlock time and encryption
// flag are fixed here for the capsule's lifetime. An encrypted capsule stores
// ciphertext and nonce only; the plaintext message never touches the store.
func (s *CapsuleService) Create(ctx context.Context, ownerID int64, req model.CreateCapsuleRequest, upload *MediaUpload) (model.CapsuleView, error) {
	if req.Title == "" {
		return model.CapsuleView{}, ErrTitleRequired
	}
	if len(req.Title) > 100 {
		return model.CapsuleView{}, ErrTitleTooLong
	}
	if req.UnlockAt.IsZero() {
		return model.CapsuleView{}, ErrUnlockRequired
	}
	if req.Message == "" && upload == nil {
		return model.CapsuleView{}, ErrPayloadRequired
	}

	c := &model.Capsule{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Title:    req.Title,
		UnlockAt: req.UnlockAt.UTC(),
		Public:   req.Public,
	}

	if req.Encrypted {
		ciphertext, nonce, err := crypto.Seal([]byte(req.Message), s.key)
		if err != nil {
			return model.CapsuleView{}, fmt.Errorf("sealing payload: %w", err)
		}
		c.Ciphertext = ciphertext
		c.Nonce = nonce
		c.Encrypted = true
	} else {
		c.Message = req.Message
	}

	if upload != nil {
		if s.media == nil {
			return model.CapsuleView{}, ErrMediaUnavailable
		}
		key := "media/" + c.ID
		if err := s.media.Put(ctx, key, upload.ContentType, upload.Body); err != nil {
			return model.CapsuleView{}, fmt.Errorf("storing media: %w", err)
		}
		c.MediaKey = key
		c.MediaType = upload.ContentType
	}

	if err := s.store.Create(ctx, c); err != nil {
		return model.CapsuleView{}, mapStoreErr(err)
	}
	c.CreatedAt = time.Now().UTC()

	return s.View(ctx, c, ownerID)
}

// View runs the lifecycle reveal for requesterID and shapes the result for
// the API. Locked capsules yield a view with no payload fields.
func (s *CapsuleService) View(ctx context.Context, c *model.Capsule, requesterID int64) (model.CapsuleView, error) {
	revealed, err := s.engine.Reveal(ctx, c, requesterID)
	if err != nil {
		switch {
		case errors.Is(err, lifecycle.ErrForbidden):
			return model.CapsuleView{}, ErrForbidden
		case errors.Is(err, lifecycle.ErrCorruptPayload):
			return model.CapsuleView{}, ErrCorruptPayload
		default:
			return model.CapsuleView{}, err
		}
	}

	view := model.CapsuleView{
		ID:        c.ID,
		OwnerID:   c.OwnerID,
		Title:     c.Title,
		UnlockAt:  c.UnlockAt,
		Unlocked:  !revealed.Locked,
		Public:    c.Public,
		Encrypted: c.Encrypted,
		CreatedAt: c.CreatedAt,
	}

	if !revealed.Locked {
		view.Message = revealed.Message
		if revealed.MediaKey != "" && s.media != nil {
			view.MediaURL = s.media.URL(revealed.MediaKey)
			view.MediaType = revealed.MediaType
		}
	}

	return view, nil
}

// ListOwned returns all of a user's capsules, locked ones as locked views.
func (s *CapsuleService) ListOwned(ctx context.Context, ownerID int64) ([]model.CapsuleView, error) {
	capsules, err := s.store.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return s.views(ctx, capsules, ownerID), nil
}

// ListPublic returns every public capsule whose unlock time has passed,
// recomputed against the engine clock at call time.
func (s *CapsuleService) ListPublic(ctx context.Context, requesterID int64) ([]model.CapsuleView, error) {
	capsules, err := s.store.ListPublicUnlocked(ctx, s.engine.Now())
	if err != nil {
		return nil, mapStoreErr(err)
	}
	return s.views(ctx, capsules, requesterID), nil
}

// views converts capsules to API views, dropping entries that fail to reveal
// so one corrupt payload cannot take down a whole listing.
func (s *CapsuleService) views(ctx context.Context, capsules []model.Capsule, requesterID int64) []model.CapsuleView {
	result := make([]model.CapsuleView, 0, len(capsules))
	for i := range capsules {
		view, err := s.View(ctx, &capsules[i], requesterID)
		if err != nil {
			slog.Warn("skipping capsule in listing", "capsule_id", capsules[i].ID, "error", err)
			continue
		}
		result = append(result, view)
	}
	return result
}

// Delete removes a capsule. A missing ID maps to ErrNotFound, which callers
// treat as an idempotent outcome rather than a failure.
func (s *CapsuleService) Delete(ctx context.Context, id string) error {
	return mapStoreErr(s.store.Delete(ctx, id))
}
