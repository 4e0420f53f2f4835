package domain

import "time"

// Principal is an account capable of authenticating.
type Principal struct {
	ID         string
	Identifier string
	Name       string
	SecretHash string
	Scope      Scope
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
