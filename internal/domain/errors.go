package domain

import "errors"

var (
	// ErrInvalidCredentials covers both unknown identifiers and wrong
	// secrets so that login failures do not reveal account existence.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAccountDisabled is returned for inactive principals.
	ErrAccountDisabled = errors.New("account disabled")

	// ErrPrincipalNotFound signals a missing principal record.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrIdentifierTaken signals a registration conflict.
	ErrIdentifierTaken = errors.New("identifier already registered")
)
