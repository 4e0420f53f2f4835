package dto

import "time"

// RegisterRequest payload for new principals.
type RegisterRequest struct {
	Identifier string `json:"identifier" validate:"required,min=3,max=120"`
	Name       string `json:"name" validate:"required,max=200"`
	Password   string `json:"password" validate:"required,min=8,max=200"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// PrincipalResponse is the wire shape of a principal; the secret hash
// never leaves the service.
type PrincipalResponse struct {
	ID         string    `json:"id"`
	Identifier string    `json:"identifier"`
	Name       string    `json:"name"`
	Scope      []string  `json:"scope"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}
