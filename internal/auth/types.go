package auth

import (
	"github.com/google/uuid"
)

// User is the authenticated identity attached to requests and tokens.
type User struct {
	ID       uuid.UUID
	Name     string
	Username string
	Email    string
	Rating   int
}

// TokenPair holds access and refresh tokens.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
}

// RegisterRequest for account registration.
type RegisterRequest struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// LoginRequest authenticates by email or username.
type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}
