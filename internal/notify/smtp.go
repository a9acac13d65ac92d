package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"time"

	"github.com/timevault/timevault-go/internal/model"
)

// Directory resolves user IDs to addresses for mail delivery.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
}

// Mailer sends lifecycle event mail over SMTP. Sends are synchronous and
// best-effort; errors are logged and swallowed.
type Mailer struct {
	addr  string
	auth  smtp.Auth
	from  string
	users Directory
}

// NewMailer creates an SMTP notifier.
func NewMailer(host, port, user, pass, from string, users Directory) *Mailer {
	return &Mailer{
		addr:  host + ":" + port,
		auth:  smtp.PlainAuth("", user, pass, host),
		from:  from,
		users: users,
	}
}

func (m *Mailer) CapsuleUnlocked(ctx context.Context, ownerID int64, capsuleID, title string) {
	owner, err := m.users.GetByID(ctx, ownerID)
	if err != nil {
		slog.Warn("unlock mail skipped: owner lookup failed", "capsule_id", capsuleID, "error", err)
		return
	}

	subject := "Your time capsule has unlocked"
	body := fmt.Sprintf("Your capsule %q unlocked on %s. Log in to read it.",
		title, time.Now().UTC().Format(time.RFC1123))
	m.send(owner.Email, subject, body, "capsule_id", capsuleID)
}

func (m *Mailer) CapsuleReported(ctx context.Context, capsuleID, reason string, reportCount int) {
	// Report events go to the operations address, not to users.
	subject := "Capsule reported"
	body := fmt.Sprintf("Capsule %s was reported (%d distinct reporters). Reason: %s",
		capsuleID, reportCount, reason)
	m.send(m.from, subject, body, "capsule_id", capsuleID)
}

func (m *Mailer) UserBanned(ctx context.Context, userID int64) {
	user, err := m.users.GetByID(ctx, userID)
	if err != nil {
		slog.Warn("ban mail skipped: user lookup failed", "user_id", userID, "error", err)
		return
	}

	subject := "Your account has been suspended"
	body := "Your account was suspended by a moderator. Existing public capsules remain visible."
	m.send(user.Email, subject, body, "user_id", userID)
}

func (m *Mailer) send(recipient, subject, body string, logArgs ...any) {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nContent-Type: text/plain; charset=UTF-8\r\n\r\n%s\r\n",
		m.from, recipient, subject, body)

	if err := smtp.SendMail(m.addr, m.auth, m.from, []string{recipient}, []byte(msg)); err != nil {
		slog.Warn("notification mail failed", append(logArgs, "error", err)...)
		return
	}
	slog.Info("notification mail sent", append(logArgs, "recipient", recipient)...)
}
