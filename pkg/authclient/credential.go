// Package authclient is the client-side half of the authentication flow:
// it keeps the single current credential, attaches it to outgoing
// requests, and clears it when the server signals that the credential
// must be discarded.
package authclient

import "time"

// Credential is the client's copy of an issued token plus its metadata.
type Credential struct {
	Token     string    `json:"token"`
	SubjectID string    `json:"subject_id,omitempty"`
	Scope     []string  `json:"scope,omitempty"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Expired reports whether the credential's lifetime has passed. The
// server remains the authority; this is only a cheap local pre-check.
func (c Credential) Expired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}
