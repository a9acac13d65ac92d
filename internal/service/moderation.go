package service

import (
	"context"

	"github.com/timevault/timevault-go/internal/lifecycle"
	"github.com/timevault/timevault-go/internal/model"
	"github.com/timevault/timevault-go/internal/notify"
)

// ModerationService tracks reports and review state and carries the admin
// user-management operations. Moderator authorization is enforced by the
// Access controller before any of these are reached.
type ModerationService struct {
	capsules CapsuleStore
	reports  ReportStore
	users    UserDirectory
	engine   *lifecycle.Engine
	notifier notify.Notifier
}

// NewModerationService creates a new ModerationService.
func NewModerationService(capsules CapsuleStore, reports ReportStore, users UserDirectory, engine *lifecycle.Engine, notifier notify.Notifier) *ModerationService {
	return &ModerationService{
		capsules: capsules,
		reports:  reports,
		users:    users,
		engine:   engine,
		notifier: notifier,
	}
}

// Report records a report by reporterID. At most one report per
// (capsule, reporter) pair is counted; a repeat report returns the unchanged
// count. The reason of the first report is the one kept in the ledger.
func (s *ModerationService) Report(ctx context.Context, capsuleID string, reporterID int64, reason string) (model.ReportResponse, error) {
	c, err := s.capsules.GetByID(ctx, capsuleID)
	if err != nil {
		return model.ReportResponse{}, mapStoreErr(err)
	}

	counted, err := s.reports.Add(ctx, c.ID, reporterID, reason)
	if err != nil {
		return model.ReportResponse{}, mapStoreErr(err)
	}

	count, err := s.reports.Count(ctx, c.ID)
	if err != nil {
		return model.ReportResponse{}, mapStoreErr(err)
	}

	if counted && s.notifier != nil {
		s.notifier.CapsuleReported(ctx, c.ID, reason, count)
	}

	return model.ReportResponse{CapsuleID: c.ID, ReportCount: count}, nil
}

// Review marks a capsule as reviewed. The report count is left intact so the
// history of how often a capsule was flagged survives the review.
func (s *ModerationService) Review(ctx context.Context, capsuleID string) error {
	return mapStoreErr(s.capsules.SetReviewed(ctx, capsuleID))
}

// DeleteCapsule removes a capsule regardless of ownership.
func (s *ModerationService) DeleteCapsule(ctx context.Context, capsuleID string) error {
	return mapStoreErr(s.capsules.Delete(ctx, capsuleID))
}

// ListCapsules returns the moderation listing, lock state recomputed at call
// time. Payloads are never included here, locked or not.
func (s *ModerationService) ListCapsules(ctx context.Context, filter string) ([]model.AdminCapsuleView, error) {
	now := s.engine.Now()
	capsules, err := s.capsules.List(ctx, filter, now)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	views := make([]model.AdminCapsuleView, len(capsules))
	for i, c := range capsules {
		views[i] = model.AdminCapsuleView{
			ID:          c.ID,
			OwnerID:     c.OwnerID,
			Title:       c.Title,
			UnlockAt:    c.UnlockAt,
			Unlocked:    lifecycle.StateAt(c.UnlockAt, now) == lifecycle.Unlocked,
			Public:      c.Public,
			Encrypted:   c.Encrypted,
			Reviewed:    c.Reviewed,
			ReportCount: c.ReportCount,
			CreatedAt:   c.CreatedAt,
		}
	}
	return views, nil
}

// Stats assembles the admin dashboard numbers.
func (s *ModerationService) Stats(ctx context.Context) (model.Stats, error) {
	userCounts, err := s.users.Counts(ctx)
	if err != nil {
		return model.Stats{}, mapStoreErr(err)
	}

	capsuleCounts, err := s.capsules.Counts(ctx, s.engine.Now())
	if err != nil {
		return model.Stats{}, mapStoreErr(err)
	}

	return model.Stats{
		TotalUsers:       userCounts.Total,
		ActiveUsers:      userCounts.Total - userCounts.Banned,
		BannedUsers:      userCounts.Banned,
		TotalCapsules:    capsuleCounts.Total,
		LockedCapsules:   capsuleCounts.Total - capsuleCounts.Unlocked,
		UnlockedCapsules: capsuleCounts.Unlocked,
		ReportedCapsules: capsuleCounts.Reported,
	}, nil
}

// ListUsers returns directory entries, optionally filtered by ban status.
func (s *ModerationService) ListUsers(ctx context.Context, status string) ([]model.UserResponse, error) {
	users, err := s.users.List(ctx, status)
	if err != nil {
		return nil, mapStoreErr(err)
	}

	result := make([]model.UserResponse, len(users))
	for i := range users {
		result[i] = users[i].ToResponse()
	}
	return result, nil
}

// GetUser returns one directory entry together with the user's capsules as
// moderation views.
func (s *ModerationService) GetUser(ctx context.Context, userID int64) (model.UserResponse, []model.AdminCapsuleView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, nil, mapStoreErr(err)
	}

	capsules, err := s.capsules.ListByOwner(ctx, userID)
	if err != nil {
		return model.UserResponse{}, nil, mapStoreErr(err)
	}

	now := s.engine.Now()
	views := make([]model.AdminCapsuleView, len(capsules))
	for i, c := range capsules {
		views[i] = model.AdminCapsuleView{
			ID:          c.ID,
			OwnerID:     c.OwnerID,
			Title:       c.Title,
			UnlockAt:    c.UnlockAt,
			Unlocked:    lifecycle.StateAt(c.UnlockAt, now) == lifecycle.Unlocked,
			Public:      c.Public,
			Encrypted:   c.Encrypted,
			Reviewed:    c.Reviewed,
			ReportCount: c.ReportCount,
			CreatedAt:   c.CreatedAt,
		}
	}

	return user.ToResponse(), views, nil
}

// SetUserBanned flips a user's ban flag. Banning blocks future writes
// (create, report, login) only: the user's already-public unlocked capsules
// stay visible, and nothing is deleted or hidden retroactively.
func (s *ModerationService) SetUserBanned(ctx context.Context, userID int64, banned bool) error {
	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return mapStoreErr(err)
	}
	if banned && s.notifier != nil {
		s.notifier.UserBanned(ctx, userID)
	}
	return nil
}

// DeleteUser removes a user and, via the schema cascade, their capsules.
func (s *ModerationService) DeleteUser(ctx context.Context, userID int64) error {
	return mapStoreErr(s.users.Delete(ctx, userID))
}
