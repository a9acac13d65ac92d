package service

import (
	"context"
	"errors"
	"testing"

	"github.com/timevault/timevault-go/internal/model"
)

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)

	reg, err := env.auth.Register(context.Background(), model.CreateUserRequest{
		Email:    "user@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if reg.Token == "" {
		t.Error("register returned empty token")
	}
	if reg.User.Role != model.RoleUser {
		t.Errorf("registered role = %q, want %q", reg.User.Role, model.RoleUser)
	}

	login, err := env.auth.Login(context.Background(), model.LoginRequest{
		Email:    "user@example.com",
		Password: "correct horse",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.User.ID != reg.User.ID {
		t.Errorf("login user id = %d, want %d", login.User.ID, reg.User.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.auth.Register(context.Background(), model.CreateUserRequest{Password: "pw"})
	if !errors.Is(err, ErrEmailRequired) {
		t.Errorf("missing email: got %v, want ErrEmailRequired", err)
	}

	_, err = env.auth.Register(context.Background(), model.CreateUserRequest{Email: "a@b.com"})
	if !errors.Is(err, ErrPasswordRequired) {
		t.Errorf("missing password: got %v, want ErrPasswordRequired", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)

	req := model.CreateUserRequest{Email: "user@example.com", Password: "pw"}
	if _, err := env.auth.Register(context.Background(), req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := env.auth.Register(context.Background(), req); !errors.Is(err, ErrEmailTaken) {
		t.Fatalf("duplicate register: got %v, want ErrEmailTaken", err)
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	env := newTestEnv(t)

	if _, err := env.auth.Register(context.Background(), model.CreateUserRequest{
		Email:    "user@example.com",
		Password: "right",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, err := env.auth.Login(context.Background(), model.LoginRequest{Email: "user@example.com", Password: "wrong"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("wrong password: got %v, want ErrInvalidCredentials", err)
	}

	_, err = env.auth.Login(context.Background(), model.LoginRequest{Email: "ghost@example.com", Password: "any"})
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("unknown email: got %v, want ErrInvalidCredentials", err)
	}
}

func TestLoginRejectsBannedUser(t *testing.T) {
	env := newTestEnv(t)

	reg, err := env.auth.Register(context.Background(), model.CreateUserRequest{
		Email:    "banned@example.com",
		Password: "pw",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := env.users.SetBanned(context.Background(), reg.User.ID, true); err != nil {
		t.Fatalf("banning user: %v", err)
	}

	_, err = env.auth.Login(context.Background(), model.LoginRequest{Email: "banned@example.com", Password: "pw"})
	if !errors.Is(err, ErrActorBanned) {
		t.Fatalf("banned login: got %v, want ErrActorBanned", err)
	}
}

func TestCreateAdminAssignsRole(t *testing.T) {
	env := newTestEnv(t)

	resp, err := env.auth.CreateAdmin(context.Background(), model.CreateUserRequest{
		Email:    "admin@example.com",
		Password: "pw",
	})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	if resp.User.Role != model.RoleAdmin {
		t.Errorf("role = %q, want %q", resp.User.Role, model.RoleAdmin)
	}
}
