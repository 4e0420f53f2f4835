package token

import (
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/spec-kit/identity-service/internal/domain"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestIssueVerify_RoundTrip(t *testing.T) {
	m := NewManager("secret")

	issued, err := m.Issue("alice", domain.Scope{domain.CapabilityUser}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if issued.Token == "" || issued.ID == "" {
		t.Fatalf("expected token and jti, got %+v", issued)
	}

	identity, err := m.Verify(issued.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if identity.SubjectID != "alice" {
		t.Fatalf("subject = %q, want alice", identity.SubjectID)
	}
	if !identity.Scope.Has(domain.CapabilityUser) || identity.Scope.Has(domain.CapabilityAdmin) {
		t.Fatalf("unexpected scope %v", identity.Scope)
	}
	if identity.TokenID != issued.ID {
		t.Fatalf("jti = %q, want %q", identity.TokenID, issued.ID)
	}
}

func TestIssue_RejectsNonPositiveTTL(t *testing.T) {
	m := NewManager("secret")

	for _, ttl := range []time.Duration{0, -time.Minute} {
		if _, err := m.Issue("alice", domain.DefaultScope(), ttl); err != ErrInvalidTTL {
			t.Fatalf("ttl=%v: expected ErrInvalidTTL, got %v", ttl, err)
		}
	}
}

func TestVerify_ExpiryBoundary(t *testing.T) {
	const ttl = time.Hour
	issuedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	m := NewManager("secret")
	m.now = fixedClock(issuedAt)

	issued, err := m.Issue("alice", domain.DefaultScope(), ttl)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	m.now = fixedClock(issuedAt.Add(ttl - time.Second))
	if _, err := m.Verify(issued.Token); err != nil {
		t.Fatalf("expected valid one second before expiry, got %v", err)
	}

	m.now = fixedClock(issuedAt.Add(ttl))
	if _, err := m.Verify(issued.Token); err != ErrTokenExpired {
		t.Fatalf("expected ErrTokenExpired at expiry instant, got %v", err)
	}
}

func TestVerify_TamperedClaims(t *testing.T) {
	m := NewManager("secret")

	issued, err := m.Issue("alice", domain.DefaultScope(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	parts := strings.Split(issued.Token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %q", issued.Token)
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	var claims map[string]any
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}

	mutations := map[string]any{
		"sub":   "mallory",
		"scope": []string{"user", "admin"},
		"exp":   time.Now().Add(100 * time.Hour).Unix(),
		"iat":   time.Now().Add(-100 * time.Hour).Unix(),
	}
	for field, value := range mutations {
		mutated := make(map[string]any, len(claims))
		for k, v := range claims {
			mutated[k] = v
		}
		mutated[field] = value

		raw, err := json.Marshal(mutated)
		if err != nil {
			t.Fatalf("marshal mutated claims: %v", err)
		}
		forged := parts[0] + "." + base64.RawURLEncoding.EncodeToString(raw) + "." + parts[2]

		if _, err := m.Verify(forged); err != ErrTokenSignatureInvalid {
			t.Fatalf("mutating %q: expected ErrTokenSignatureInvalid, got %v", field, err)
		}
	}
}

func TestVerify_Malformed(t *testing.T) {
	m := NewManager("secret")

	for _, tok := range []string{"", "garbage", "a.b", "a.b.c.d", "!!.!!.!!"} {
		if _, err := m.Verify(tok); err != ErrTokenMalformed {
			t.Fatalf("token %q: expected ErrTokenMalformed, got %v", tok, err)
		}
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	issuer := NewManager("secret-a")
	verifier := NewManager("secret-b")

	issued, err := issuer.Issue("alice", domain.DefaultScope(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := verifier.Verify(issued.Token); err != ErrTokenSignatureInvalid {
		t.Fatalf("expected ErrTokenSignatureInvalid, got %v", err)
	}
}

func TestVerify_UnknownCapability(t *testing.T) {
	m := NewManager("secret")

	// A structurally valid, correctly signed token whose scope carries a
	// tag outside the closed capability set must not verify.
	issued, err := m.Issue("alice", domain.Scope{"superuser"}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := m.Verify(issued.Token); err != ErrTokenMalformed {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}
