package service

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLockedCapsuleHiddenFromEveryone(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	other := env.addUser(t, "other@example.com", "user", false)
	id := env.addCapsule(t, owner, "sealed", time.Now().Add(time.Hour), true, false)

	for name, actor := range map[string]int64{"owner": owner, "stranger": other} {
		view, err := env.access.GetCapsule(context.Background(), actor, id)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if view.Unlocked {
			t.Errorf("%s: capsule reported unlocked before its unlock time", name)
		}
		if view.Message != "" || view.MediaURL != "" {
			t.Errorf("%s: locked view leaked payload: message=%q media=%q", name, view.Message, view.MediaURL)
		}
		if view.UnlockAt.IsZero() {
			t.Errorf("%s: locked view missing unlock time", name)
		}
	}
}

func TestPrivateCapsuleForbiddenForNonOwner(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	other := env.addUser(t, "other@example.com", "user", false)
	id := env.addCapsule(t, owner, "diary", time.Now().Add(-time.Hour), false, false)

	if _, err := env.access.GetCapsule(context.Background(), owner, id); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}

	_, err := env.access.GetCapsule(context.Background(), other, id)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner read of private capsule: got %v, want ErrForbidden", err)
	}
}

func TestPublicUnlockedCapsuleVisibleToAnyone(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	other := env.addUser(t, "other@example.com", "user", false)
	id := env.addCapsule(t, owner, "open letter", time.Now().Add(-time.Hour), true, false)

	view, err := env.access.GetCapsule(context.Background(), other, id)
	if err != nil {
		t.Fatalf("public read failed: %v", err)
	}
	if !view.Unlocked {
		t.Error("capsule past its unlock time reported locked")
	}
	if view.Message != "message of open letter" {
		t.Errorf("message = %q", view.Message)
	}
}

func TestEncryptedCapsuleRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	id := env.addCapsule(t, owner, "secret", time.Now().Add(-time.Minute), false, true)

	stored, err := env.store.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("loading stored capsule: %v", err)
	}
	if stored.Message != "" {
		t.Error("encrypted capsule stored plaintext message")
	}
	if len(stored.Ciphertext) == 0 || len(stored.Nonce) == 0 {
		t.Fatal("encrypted capsule stored without ciphertext or nonce")
	}

	view, err := env.access.GetCapsule(context.Background(), owner, id)
	if err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if view.Message != "message of secret" {
		t.Errorf("decrypted message = %q", view.Message)
	}
}

func TestCorruptPayloadFailsClosed(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	id := env.addCapsule(t, owner, "secret", time.Now().Add(-time.Minute), false, true)

	env.store.tamper(id)

	_, err := env.access.GetCapsule(context.Background(), owner, id)
	if !errors.Is(err, ErrCorruptPayload) {
		t.Fatalf("tampered payload: got %v, want ErrCorruptPayload", err)
	}
}

func TestBannedActorBlockedFromWritesNotReads(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	id := env.addCapsule(t, owner, "kept", time.Now().Add(-time.Hour), true, false)

	if err := env.users.SetBanned(context.Background(), owner, true); err != nil {
		t.Fatalf("banning owner: %v", err)
	}

	_, err := env.access.CreateCapsule(context.Background(), owner, capsuleReq("new one", time.Now().Add(time.Hour)), nil)
	if !errors.Is(err, ErrActorBanned) {
		t.Fatalf("banned create: got %v, want ErrActorBanned", err)
	}

	_, err = env.access.ReportCapsule(context.Background(), owner, id, "spam")
	if !errors.Is(err, ErrActorBanned) {
		t.Fatalf("banned report: got %v, want ErrActorBanned", err)
	}

	// Reads are not revoked by a ban.
	if _, err := env.access.GetCapsule(context.Background(), owner, id); err != nil {
		t.Fatalf("banned owner read: %v", err)
	}
}

func TestBanDoesNotHideExistingPublicCapsules(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	viewer := env.addUser(t, "viewer@example.com", "user", false)
	id := env.addCapsule(t, owner, "still here", time.Now().Add(-time.Hour), true, false)

	if err := env.users.SetBanned(context.Background(), owner, true); err != nil {
		t.Fatalf("banning owner: %v", err)
	}

	listed, err := env.access.ListPublic(context.Background(), viewer)
	if err != nil {
		t.Fatalf("listing public capsules: %v", err)
	}
	found := false
	for _, v := range listed {
		if v.ID == id {
			found = true
		}
	}
	if !found {
		t.Error("banned owner's public capsule dropped from the public listing")
	}
}

func TestDeleteCapsuleOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	other := env.addUser(t, "other@example.com", "user", false)
	admin := env.addUser(t, "admin@example.com", "admin", false)

	id := env.addCapsule(t, owner, "deleteme", time.Now().Add(time.Hour), true, false)
	if err := env.access.DeleteCapsule(context.Background(), other, id); !errors.Is(err, ErrForbidden) {
		t.Fatalf("non-owner delete: got %v, want ErrForbidden", err)
	}
	if err := env.access.DeleteCapsule(context.Background(), owner, id); err != nil {
		t.Fatalf("owner delete: %v", err)
	}

	id = env.addCapsule(t, owner, "modtarget", time.Now().Add(time.Hour), true, false)
	if err := env.access.DeleteCapsule(context.Background(), admin, id); err != nil {
		t.Fatalf("moderator delete: %v", err)
	}
}

func TestDeleteCapsuleIdempotent(t *testing.T) {
	env := newTestEnv(t)
	owner := env.addUser(t, "owner@example.com", "user", false)
	id := env.addCapsule(t, owner, "once", time.Now().Add(time.Hour), false, false)

	if err := env.access.DeleteCapsule(context.Background(), owner, id); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := env.access.DeleteCapsule(context.Background(), owner, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: got %v, want ErrNotFound", err)
	}
}

func TestAdminOperationsRequireModerator(t *testing.T) {
	env := newTestEnv(t)
	user := env.addUser(t, "user@example.com", "user", false)
	bannedAdmin := env.addUser(t, "exadmin@example.com", "admin", true)

	if _, err := env.access.AdminStats(context.Background(), user); !errors.Is(err, ErrForbidden) {
		t.Errorf("stats as user: got %v, want ErrForbidden", err)
	}
	if _, err := env.access.AdminStats(context.Background(), bannedAdmin); !errors.Is(err, ErrActorBanned) {
		t.Errorf("stats as banned admin: got %v, want ErrActorBanned", err)
	}
	if _, err := env.access.AdminStats(context.Background(), 9999); !errors.Is(err, ErrForbidden) {
		t.Errorf("stats as unknown actor: got %v, want ErrForbidden", err)
	}
}

func TestAdminCannotBanOrDeleteSelf(t *testing.T) {
	env := newTestEnv(t)
	admin := env.addUser(t, "admin@example.com", "admin", false)

	if err := env.access.AdminSetUserBanned(context.Background(), admin, admin, true); !errors.Is(err, ErrForbidden) {
		t.Errorf("self ban: got %v, want ErrForbidden", err)
	}
	if err := env.access.AdminDeleteUser(context.Background(), admin, admin); !errors.Is(err, ErrForbidden) {
		t.Errorf("self delete: got %v, want ErrForbidden", err)
	}
}
