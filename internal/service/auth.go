package service

import (
	"context"
	"errors"
	"time"

	"github.com/timevault/timevault-go/internal/crypto"
	"github.com/timevault/timevault-go/internal/model"
	"github.com/timevault/timevault-go/internal/repository"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailRequired      = errors.New("email is required")
	ErrPasswordRequired   = errors.New("password is required")
	ErrEmailTaken         = errors.New("email already taken")
)

// AuthService handles authentication against the user directory. A banned
// account cannot log in; its existing sessions are the API layer's problem
// and its writes are rejected by the access controller regardless.
type AuthService struct {
	users     UserDirectory
	jwtSecret string
	jwtExpiry time.Duration
}

// NewAuthService creates a new AuthService.
func NewAuthService(users UserDirectory, secret string, expiry time.Duration) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: secret,
		jwtExpiry: expiry,
	}
}

// Register creates a new user account and returns an auth token.
func (s *AuthService) Register(ctx context.Context, req model.CreateUserRequest) (model.AuthResponse, error) {
	return s.create(ctx, req, model.RoleUser)
}

// CreateAdmin creates an account with the admin role. The access controller
// restricts callers to existing moderators.
func (s *AuthService) CreateAdmin(ctx context.Context, req model.CreateUserRequest) (model.AuthResponse, error) {
	return s.create(ctx, req, model.RoleAdmin)
}

func (s *AuthService) create(ctx context.Context, req model.CreateUserRequest, role string) (model.AuthResponse, error) {
	if req.Email == "" {
		return model.AuthResponse{}, ErrEmailRequired
	}
	if req.Password == "" {
		return model.AuthResponse{}, ErrPasswordRequired
	}

	hash, err := crypto.HashPassword(req.Password)
	if err != nil {
		return model.AuthResponse{}, err
	}

	user := &model.User{
		Email:    req.Email,
		AuthHash: hash,
		Role:     role,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return model.AuthResponse{}, ErrEmailTaken
		}
		return model.AuthResponse{}, mapStoreErr(err)
	}

	token, err := crypto.GenerateToken(user.ID, user.Role, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{Token: token, User: user.ToResponse()}, nil
}

// Login authenticates a user and returns an auth token.
func (s *AuthService) Login(ctx context.Context, req model.LoginRequest) (model.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return model.AuthResponse{}, ErrInvalidCredentials
		}
		return model.AuthResponse{}, mapStoreErr(err)
	}

	match, err := crypto.VerifyPassword(req.Password, user.AuthHash)
	if err != nil {
		return model.AuthResponse{}, err
	}
	if !match {
		return model.AuthResponse{}, ErrInvalidCredentials
	}

	if user.Banned {
		return model.AuthResponse{}, ErrActorBanned
	}

	token, err := crypto.GenerateToken(user.ID, user.Role, s.jwtSecret, s.jwtExpiry)
	if err != nil {
		return model.AuthResponse{}, err
	}

	return model.AuthResponse{Token: token, User: user.ToResponse()}, nil
}

// GetUser retrieves a user by ID and returns safe user data.
func (s *AuthService) GetUser(ctx context.Context, userID int64) (model.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return model.UserResponse{}, mapStoreErr(err)
	}
	return user.ToResponse(), nil
}
