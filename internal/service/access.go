package service

import (
	"context"
	"errors"

	"github.com/timevault/timevault-go/internal/model"
	"github.com/timevault/timevault-go/internal/repository"
)

// Access is the single entry point the API layer uses for capsule and
// moderation operations. It composes the capsule service, the moderation
// service and the lifecycle engine, and owns the authorization order:
// actor ban check, ownership/role, lifecycle state, visibility, decryption.
// Any ambiguous or error condition resolves to denial, never to payload
// exposure.
type Access struct {
	capsules CapsuleStore
	users    UserDirectory
	caps     *CapsuleService
	mod      *ModerationService
}

// NewAccess creates the access controller.
func NewAccess(capsules CapsuleStore, users UserDirectory, caps *CapsuleService, mod *ModerationService) *Access {
	return &Access{capsules: capsules, users: users, caps: caps, mod: mod}
}

// requireActiveActor loads the actor and rejects banned accounts. A missing
// actor resolves to ErrForbidden: failing closed beats explaining.
func (a *Access) requireActiveActor(ctx context.Context, actorID int64) (*model.User, error) {
	user, err := a.users.GetByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrForbidden
		}
		return nil, mapStoreErr(err)
	}
	if user.Banned {
		return nil, ErrActorBanned
	}
	return user, nil
}

// requireModerator loads the actor and verifies an unbanned admin role
// against the directory; the token role alone is never trusted for writes.
func (a *Access) requireModerator(ctx context.Context, actorID int64) (*model.User, error) {
	user, err := a.requireActiveActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if user.Role != model.RoleAdmin {
		return nil, ErrForbidden
	}
	return user, nil
}

// CanRead reports whether the actor may call a reveal on the capsule. Reads
// are not a write, so a ban does not revoke them; a locked capsule is still
// "readable" in the sense that the actor gets the locked view.
func (a *Access) CanRead(ctx context.Context, actorID int64, capsuleID string) (bool, error) {
	c, err := a.capsules.GetByID(ctx, capsuleID)
	if err != nil {
		return false, mapStoreErr(err)
	}
	return c.OwnerID == actorID || c.Public, nil
}

// CanDelete reports whether the actor may delete the capsule: its owner, or
// an unbanned moderator.
func (a *Access) CanDelete(ctx context.Context, actorID int64, capsuleID string) (bool, error) {
	c, err := a.capsules.GetByID(ctx, capsuleID)
	if err != nil {
		return false, mapStoreErr(err)
	}
	if c.OwnerID == actorID {
		return true, nil
	}
	return a.CanModerate(ctx, actorID)
}

// CanModerate reports whether the actor is an unbanned admin.
func (a *Access) CanModerate(ctx context.Context, actorID int64) (bool, error) {
	_, err := a.requireModerator(ctx, actorID)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrActorBanned):
		return false, nil
	default:
		return false, err
	}
}

// CreateCapsule stores a new capsule for the actor. Banned actors cannot
// create.
func (a *Access) CreateCapsule(ctx context.Context, actorID int64, req model.CreateCapsuleRequest, upload *MediaUpload) (model.CapsuleView, error) {
	if _, err := a.requireActiveActor(ctx, actorID); err != nil {
		return model.CapsuleView{}, err
	}
	return a.caps.Create(ctx, actorID, req, upload)
}

// RevealFor loads a capsule and applies the full reveal contract for the
// actor. Locked capsules come back as locked views, never as errors.
func (a *Access) RevealFor(ctx context.Context, actorID int64, capsuleID string) (model.CapsuleView, error) {
	c, err := a.capsules.GetByID(ctx, capsuleID)
	if err != nil {
		return model.CapsuleView{}, mapStoreErr(err)
	}
	return a.caps.View(ctx, c, actorID)
}

// GetCapsule is the API-facing name for RevealFor.
func (a *Access) GetCapsule(ctx context.Context, actorID int64, capsuleID string) (model.CapsuleView, error) {
	return a.RevealFor(ctx, actorID, capsuleID)
}

// ListOwned returns the actor's capsules.
func (a *Access) ListOwned(ctx context.Context, actorID int64) ([]model.CapsuleView, error) {
	return a.caps.ListOwned(ctx, actorID)
}

// ListPublic returns public unlocked capsules. actorID may be zero for an
// anonymous requester; the visibility gate already admits anyone to public
// unlocked content.
func (a *Access) ListPublic(ctx context.Context, actorID int64) ([]model.CapsuleView, error) {
	return a.caps.ListPublic(ctx, actorID)
}

// DeleteCapsule removes a capsule when the actor is its owner or a
// moderator. Deleting an already-deleted capsule returns ErrNotFound, which
// callers treat as an idempotent outcome, so bulk deletes that partially
// fail leave every remaining capsule individually consistent.
func (a *Access) DeleteCapsule(ctx context.Context, actorID int64, capsuleID string) error {
	c, err := a.capsules.GetByID(ctx, capsuleID)
	if err != nil {
		return mapStoreErr(err)
	}

	if c.OwnerID != actorID {
		if _, err := a.requireModerator(ctx, actorID); err != nil {
			return err
		}
	}

	return a.caps.Delete(ctx, capsuleID)
}

// ReportCapsule records a report by the actor. Banned actors cannot report.
func (a *Access) ReportCapsule(ctx context.Context, actorID int64, capsuleID, reason string) (model.ReportResponse, error) {
	if _, err := a.requireActiveActor(ctx, actorID); err != nil {
		return model.ReportResponse{}, err
	}
	return a.mod.Report(ctx, capsuleID, actorID, reason)
}

// ReviewCapsule marks a capsule reviewed. Moderator only.
func (a *Access) ReviewCapsule(ctx context.Context, actorID int64, capsuleID string) error {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return err
	}
	return a.mod.Review(ctx, capsuleID)
}

// AdminDeleteCapsule removes any capsule, bypassing ownership. Moderator only.
func (a *Access) AdminDeleteCapsule(ctx context.Context, actorID int64, capsuleID string) error {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return err
	}
	return a.mod.DeleteCapsule(ctx, capsuleID)
}

// AdminListCapsules returns the moderation listing. Moderator only.
func (a *Access) AdminListCapsules(ctx context.Context, actorID int64, filter string) ([]model.AdminCapsuleView, error) {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return nil, err
	}
	return a.mod.ListCapsules(ctx, filter)
}

// AdminStats returns dashboard statistics. Moderator only.
func (a *Access) AdminStats(ctx context.Context, actorID int64) (model.Stats, error) {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return model.Stats{}, err
	}
	return a.mod.Stats(ctx)
}

// AdminListUsers returns directory entries. Moderator only.
func (a *Access) AdminListUsers(ctx context.Context, actorID int64, status string) ([]model.UserResponse, error) {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return nil, err
	}
	return a.mod.ListUsers(ctx, status)
}

// AdminGetUser returns one user and their capsules. Moderator only.
func (a *Access) AdminGetUser(ctx context.Context, actorID, userID int64) (model.UserResponse, []model.AdminCapsuleView, error) {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return model.UserResponse{}, nil, err
	}
	return a.mod.GetUser(ctx, userID)
}

// AdminSetUserBanned bans or unbans a user. Moderator only; moderators cannot
// ban themselves.
func (a *Access) AdminSetUserBanned(ctx context.Context, actorID, userID int64, banned bool) error {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return err
	}
	if actorID == userID {
		return ErrForbidden
	}
	return a.mod.SetUserBanned(ctx, userID, banned)
}

// AdminDeleteUser removes a user. Moderator only; moderators cannot delete
// themselves.
func (a *Access) AdminDeleteUser(ctx context.Context, actorID, userID int64) error {
	if _, err := a.requireModerator(ctx, actorID); err != nil {
		return err
	}
	if actorID == userID {
		return ErrForbidden
	}
	return a.mod.DeleteUser(ctx, userID)
}
