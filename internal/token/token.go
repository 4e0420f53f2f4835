package token

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/spec-kit/identity-service/internal/domain"
)

// Verification failure taxonomy. The gate collapses all three to a 401;
// they stay distinct here for logging and metrics only.
var (
	ErrInvalidTTL            = errors.New("token ttl must be positive")
	ErrTokenMalformed        = errors.New("token malformed")
	ErrTokenSignatureInvalid = errors.New("token signature invalid")
	ErrTokenExpired          = errors.New("token expired")
)

// Manager issues and verifies signed, expiring credentials.
type Manager struct {
	secret []byte
	now    func() time.Time
}

// NewManager builds a manager around the process-wide signing secret.
func NewManager(secret string) *Manager {
	return &Manager{secret: []byte(secret), now: time.Now}
}

// Claims describes the JWT payload.
type Claims struct {
	Scope []string `json:"scope"`
	jwt.RegisteredClaims
}

// Issued carries a freshly signed credential and its metadata.
type Issued struct {
	Token     string
	ID        string
	SubjectID string
	Scope     domain.Scope
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Identity is the verified content of a credential.
type Identity struct {
	SubjectID string
	Scope     domain.Scope
	TokenID   string
	ExpiresAt time.Time
}

// Issue signs a credential for the subject. Each credential carries a
// unique jti so it can be individually revoked before expiry.
func (m *Manager) Issue(subjectID string, scope domain.Scope, ttl time.Duration) (*Issued, error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	issuedAt := m.now().UTC()
	expiresAt := issuedAt.Add(ttl)
	claims := &Claims{
		Scope: scope.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subjectID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return nil, err
	}
	return &Issued{
		Token:     signed,
		ID:        claims.ID,
		SubjectID: subjectID,
		Scope:     scope,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

// Verify parses and validates a credential. The HMAC comparison inside the
// JWT library is constant-time, and the signature is checked before any
// claim validation. A credential is valid only strictly before its expiry.
func (m *Manager) Verify(tokenStr string) (*Identity, error) {
	parsed, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, jwt.ErrTokenSignatureInvalid
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now), jwt.WithExpirationRequired())
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignatureInvalid
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenMalformed
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Subject == "" {
		return nil, ErrTokenMalformed
	}

	scope, err := domain.ParseScope(claims.Scope)
	if err != nil {
		return nil, ErrTokenMalformed
	}

	return &Identity{
		SubjectID: claims.Subject,
		Scope:     scope,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
