package gate

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/revocation"
	"github.com/spec-kit/identity-service/internal/token"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

const contextKey = "auth_context"

// Context is the per-request authentication result. Created fresh by the
// gate for every admitted request and never persisted.
type Context struct {
	Authenticated bool
	SubjectID     string
	Scope         domain.Scope
	TokenID       string
	ExpiresAt     time.Time
}

// Gate admits or rejects inbound requests based on credential validity.
type Gate struct {
	tokens     *token.Manager
	revoked    revocation.List
	dispatcher events.Dispatcher
}

// New constructs the gate.
func New(tokens *token.Manager, revoked revocation.List, dispatcher events.Dispatcher) *Gate {
	return &Gate{tokens: tokens, revoked: revoked, dispatcher: dispatcher}
}

// Require rejects any request without a valid credential.
func (g *Gate) Require() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, err := g.admit(c)
		if err != nil {
			return err
		}
		if !authCtx.Authenticated {
			observability.GateRejectionsTotal.WithLabelValues(apperrors.CodeAuthRequired).Inc()
			return apperrors.NewUnauthorized(apperrors.CodeAuthRequired, "authentication required")
		}
		c.Locals(contextKey, authCtx)
		return c.Next()
	}
}

// Optional admits anonymous requests but still rejects requests that
// present an invalid credential, so the discard marker reaches the client.
func (g *Gate) Optional() fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, err := g.admit(c)
		if err != nil {
			return err
		}
		c.Locals(contextKey, authCtx)
		return c.Next()
	}
}

// admit extracts and verifies the bearer credential. An absent header
// yields an unauthenticated context; a present but invalid credential is
// rejected with its reason code.
func (g *Gate) admit(c *fiber.Ctx) (Context, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return Context{}, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return Context{}, g.reject(c, apperrors.CodeTokenInvalid, "malformed")
	}

	identity, err := g.tokens.Verify(parts[1])
	if err != nil {
		switch err {
		case token.ErrTokenExpired:
			observability.TokenVerificationsTotal.WithLabelValues("expired").Inc()
			return Context{}, g.reject(c, apperrors.CodeTokenExpired, "expired")
		case token.ErrTokenSignatureInvalid:
			observability.TokenVerificationsTotal.WithLabelValues("signature_invalid").Inc()
			return Context{}, g.reject(c, apperrors.CodeTokenInvalid, "signature_invalid")
		default:
			observability.TokenVerificationsTotal.WithLabelValues("malformed").Inc()
			return Context{}, g.reject(c, apperrors.CodeTokenInvalid, "malformed")
		}
	}

	if g.revoked != nil && identity.TokenID != "" {
		revoked, err := g.revoked.IsRevoked(c.Context(), identity.TokenID)
		if err != nil {
			return Context{}, apperrors.NewInternalError(err)
		}
		if revoked {
			observability.TokenVerificationsTotal.WithLabelValues("revoked").Inc()
			return Context{}, g.reject(c, apperrors.CodeTokenRevoked, "revoked")
		}
	}

	observability.TokenVerificationsTotal.WithLabelValues("ok").Inc()
	return Context{
		Authenticated: true,
		SubjectID:     identity.SubjectID,
		Scope:         identity.Scope,
		TokenID:       identity.TokenID,
		ExpiresAt:     identity.ExpiresAt,
	}, nil
}

// reject builds the 401 carrying the discard marker code and records the
// rejection. Verify failures all collapse to a 401 here; the precise
// reason stays internal.
func (g *Gate) reject(c *fiber.Ctx, code, reason string) error {
	observability.GateRejectionsTotal.WithLabelValues(code).Inc()
	if g.dispatcher != nil {
		_ = g.dispatcher.Publish(c.Context(), events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventTokenRejected,
			Timestamp: time.Now().UTC(),
			Payload:   events.TokenRejectedPayload{Reason: reason, Path: c.Path()},
		})
	}
	return apperrors.NewUnauthorized(code, "invalid or expired credential")
}

// FromContext retrieves the authentication context for the request.
func FromContext(c *fiber.Ctx) (Context, bool) {
	val := c.Locals(contextKey)
	if val == nil {
		return Context{}, false
	}
	authCtx, ok := val.(Context)
	return authCtx, ok
}
