package model

import "time"

// User roles. Moderator-only operations require RoleAdmin.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the user directory.
type User struct {
	ID        int64
	Email     string
	AuthHash  string
	Role      string
	Banned    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateUserRequest represents a user registration request.
type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents a user login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents an authentication response with a JWT token and user info.
type AuthResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// UserResponse represents user data safe for API responses (no sensitive fields).
type UserResponse struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Banned    bool      `json:"is_banned"`
	CreatedAt time.Time `json:"created_at"`
}

// ToResponse converts a User to its API representation.
func (u *User) ToResponse() UserResponse {
	return UserResponse{
		ID:        u.ID,
		Email:     u.Email,
		Role:      u.Role,
		Banned:    u.Banned,
		CreatedAt: u.CreatedAt,
	}
}

// UserCounts holds aggregate user numbers for the admin dashboard.
type UserCounts struct {
	Total  int64
	Banned int64
}
