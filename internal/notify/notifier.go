// Package notify delivers lifecycle events to external channels. Delivery is
// fire-and-forget: a failed notification is logged and dropped, it never
// fails the operation that produced it.
package notify

import (
	"context"
	"log/slog"
)

// Notifier consumes unlock, report and ban events.
type Notifier interface {
	CapsuleUnlocked(ctx context.Context, ownerID int64, capsuleID, title string)
	CapsuleReported(ctx context.Context, capsuleID, reason string, reportCount int)
	UserBanned(ctx context.Context, userID int64)
}

// LogNotifier writes events to the structured log. It is the fallback when no
// mail transport is configured.
type LogNotifier struct{}

func (LogNotifier) CapsuleUnlocked(ctx context.Context, ownerID int64, capsuleID, title string) {
	slog.InfoContext(ctx, "capsule unlocked", "capsule_id", capsuleID, "owner_id", ownerID, "title", title)
}

func (LogNotifier) CapsuleReported(ctx context.Context, capsuleID, reason string, reportCount int) {
	slog.InfoContext(ctx, "capsule reported", "capsule_id", capsuleID, "reason", reason, "report_count", reportCount)
}

func (LogNotifier) UserBanned(ctx context.Context, userID int64) {
	slog.InfoContext(ctx, "user banned", "user_id", userID)
}
