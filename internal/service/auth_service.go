package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/identity-service/internal/config"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/events"
	"github.com/spec-kit/identity-service/internal/observability"
	"github.com/spec-kit/identity-service/internal/repository"
	"github.com/spec-kit/identity-service/internal/revocation"
	"github.com/spec-kit/identity-service/internal/token"
)

// AuthService validates login attempts and issues credentials.
type AuthService struct {
	principals repository.PrincipalRepository
	tokens     *token.Manager
	revoked    revocation.List
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
	tokenTTL   time.Duration
	dummyHash  string
}

// AuthDependencies encapsulates collaborator requirements for the service.
type AuthDependencies struct {
	PrincipalRepo repository.PrincipalRepository
	Tokens        *token.Manager
	Revocations   revocation.List
	Dispatcher    events.Dispatcher
	Logger        *zap.Logger
}

// NewAuthService builds the service. The dummy hash is compared against on
// unknown-identifier logins so that the two failure paths take comparable
// time.
func NewAuthService(cfg config.AuthConfig, deps AuthDependencies) *AuthService {
	dummyHash, err := HashPassword(uuid.NewString(), cfg.BcryptCost)
	if err != nil {
		// bcrypt only fails on invalid cost; fall back to the default.
		dummyHash, _ = HashPassword(uuid.NewString(), 0)
	}
	return &AuthService{
		principals: deps.PrincipalRepo,
		tokens:     deps.Tokens,
		revoked:    deps.Revocations,
		dispatcher: deps.Dispatcher,
		logger:     deps.Logger,
		bcryptCost: cfg.BcryptCost,
		tokenTTL:   cfg.AccessTokenTTL(),
		dummyHash:  dummyHash,
	}
}

// Login authenticates a principal and issues a credential. Unknown
// identifiers and wrong secrets are externally indistinguishable.
func (s *AuthService) Login(ctx context.Context, identifier, secret string) (*domain.Principal, *token.Issued, error) {
	principal, err := s.principals.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			_ = ComparePassword(s.dummyHash, secret)
			s.recordLoginFailure(ctx, identifier, "unknown_principal")
			observability.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
			return nil, nil, domain.ErrInvalidCredentials
		}
		observability.LoginsTotal.WithLabelValues("error").Inc()
		return nil, nil, err
	}

	if !principal.Active {
		s.recordLoginFailure(ctx, identifier, "account_disabled")
		observability.LoginsTotal.WithLabelValues("account_disabled").Inc()
		return nil, nil, domain.ErrAccountDisabled
	}

	if err := ComparePassword(principal.SecretHash, secret); err != nil {
		s.recordLoginFailure(ctx, identifier, "wrong_secret")
		observability.LoginsTotal.WithLabelValues("invalid_credentials").Inc()
		return nil, nil, domain.ErrInvalidCredentials
	}

	issued, err := s.tokens.Issue(principal.ID, principal.Scope, s.tokenTTL)
	if err != nil {
		observability.LoginsTotal.WithLabelValues("error").Inc()
		return nil, nil, err
	}

	observability.LoginsTotal.WithLabelValues("success").Inc()
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoginSucceeded,
		SubjectID: principal.ID,
		Timestamp: time.Now().UTC(),
	})
	return principal, issued, nil
}

// Register creates a new principal with the default scope and logs it in.
func (s *AuthService) Register(ctx context.Context, identifier, name, password string) (*domain.Principal, *token.Issued, error) {
	hash, err := HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, nil, err
	}

	principal := &domain.Principal{
		Identifier: identifier,
		Name:       name,
		SecretHash: hash,
		Scope:      domain.DefaultScope(),
		Active:     true,
	}
	if err := s.principals.Create(ctx, principal); err != nil {
		return nil, nil, err
	}

	issued, err := s.tokens.Issue(principal.ID, principal.Scope, s.tokenTTL)
	if err != nil {
		return nil, nil, err
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventPrincipalRegistered,
		SubjectID: principal.ID,
		Timestamp: time.Now().UTC(),
		Payload: events.PrincipalRegisteredPayload{
			Identifier: identifier,
			Scope:      principal.Scope.Strings(),
		},
	})
	return principal, issued, nil
}

// Logout revokes the presented credential for its remaining lifetime.
// Verification itself stays stateless; only explicit invalidation is
// recorded.
func (s *AuthService) Logout(ctx context.Context, subjectID, tokenID string, expiresAt time.Time) error {
	if tokenID != "" && s.revoked != nil {
		if err := s.revoked.Revoke(ctx, tokenID, time.Until(expiresAt)); err != nil {
			return err
		}
	}
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoggedOut,
		SubjectID: subjectID,
		Timestamp: time.Now().UTC(),
	})
	return nil
}

// GetPrincipal loads a principal by ID.
func (s *AuthService) GetPrincipal(ctx context.Context, id string) (*domain.Principal, error) {
	return s.principals.GetByID(ctx, id)
}

// ListPrincipals returns a page of principals plus the total count.
func (s *AuthService) ListPrincipals(ctx context.Context, limit, offset int) ([]*domain.Principal, int, error) {
	return s.principals.List(ctx, limit, offset)
}

// SetPrincipalStatus enables or disables an account. Disabling does not
// revoke outstanding credentials; they are refused at the next login.
func (s *AuthService) SetPrincipalStatus(ctx context.Context, id string, active bool) (*domain.Principal, error) {
	principal, err := s.principals.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	principal.Active = active
	if err := s.principals.Update(ctx, principal); err != nil {
		return nil, err
	}
	return principal, nil
}

func (s *AuthService) recordLoginFailure(ctx context.Context, identifier, reason string) {
	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoginFailed,
		Timestamp: time.Now().UTC(),
		Payload:   events.LoginFailedPayload{Identifier: identifier, Reason: reason},
	})
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil && s.logger != nil {
		s.logger.Warn("audit event publish failed", zap.Error(err), zap.String("type", string(event.Type)))
	}
}
