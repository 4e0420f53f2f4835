package events

import "time"

// EventType enumerates supported audit event identifiers.
type EventType string

const (
	EventLoginSucceeded      EventType = "login_succeeded"
	EventLoginFailed         EventType = "login_failed"
	EventLoggedOut           EventType = "logged_out"
	EventPrincipalRegistered EventType = "principal_registered"
	EventTokenRejected       EventType = "token_rejected"
)

// Event represents an audit event emitted by the auth flow.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	SubjectID string      `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// LoginFailedPayload payload.
type LoginFailedPayload struct {
	Identifier string `json:"identifier"`
	Reason     string `json:"reason"`
}

// TokenRejectedPayload payload.
type TokenRejectedPayload struct {
	Reason string `json:"reason"`
	Path   string `json:"path"`
}

// PrincipalRegisteredPayload payload.
type PrincipalRegisteredPayload struct {
	Identifier string   `json:"identifier"`
	Scope      []string `json:"scope"`
}
