package authclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func writeLoginSuccess(w http.ResponseWriter, token string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": map[string]any{
			"principal": map[string]any{"id": "alice", "scope": []string{"user"}},
			"auth": map[string]any{
				"token":      token,
				"expires_at": time.Now().Add(time.Hour).UTC(),
			},
		},
	})
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{"code": code, "message": message},
	})
}

func newSession(t *testing.T, handler http.Handler) (*Session, *Store, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	store, err := NewStore(NewMemoryStorage())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return NewSession(server.URL, store, server.Client()), store, server
}

func TestSession_LoginStoresCredential(t *testing.T) {
	session, store, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/auth/login" || r.Method != http.MethodPost {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var payload struct {
			Identifier string `json:"identifier"`
			Password   string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Fatalf("decode payload: %v", err)
		}
		if payload.Identifier != "alice" || payload.Password != "correctpw" {
			writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid credentials")
			return
		}
		writeLoginSuccess(w, "tok-1")
	}))

	credential, err := session.Login(context.Background(), "alice", "correctpw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if credential.Token != "tok-1" || credential.SubjectID != "alice" {
		t.Fatalf("unexpected credential: %+v", credential)
	}

	stored, ok := store.Get()
	if !ok || stored.Token != "tok-1" {
		t.Fatalf("credential not stored: %+v ok=%v", stored, ok)
	}
}

func TestSession_LoginFailures(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		code    string
		wantErr error
	}{
		{"invalid credentials", http.StatusUnauthorized, "INVALID_CREDENTIALS", ErrInvalidCredentials},
		{"account disabled", http.StatusForbidden, "ACCOUNT_DISABLED", ErrAccountDisabled},
		{"rate limited", http.StatusTooManyRequests, "RATE_LIMITED", ErrRateLimited},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			session, store, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tc.status, tc.code, tc.name)
			}))

			_, err := session.Login(context.Background(), "alice", "whatever")
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected %v, got %v", tc.wantErr, err)
			}
			if _, ok := store.Get(); ok {
				t.Fatal("failed login must not store a credential")
			}
		})
	}
}

func TestSession_DoAttachesCredential(t *testing.T) {
	var seenAuth atomic.Value
	session, store, server := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenAuth.Store(r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
	}))

	if err := store.Set(Credential{Token: "tok-1"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/things", nil)
	resp, err := session.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if got := seenAuth.Load(); got != "Bearer tok-1" {
		t.Fatalf("server saw Authorization %q", got)
	}
}

func TestSession_DiscardMarkerClearsStoreAndNotifies(t *testing.T) {
	session, store, server := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "TOKEN_EXPIRED", "invalid or expired credential")
	}))

	if err := store.Set(Credential{Token: "dead-token"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	var calls int32
	var lastCode string
	session.OnSessionExpired(func(code string) {
		atomic.AddInt32(&calls, 1)
		lastCode = code
	})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/things", nil)
	resp, err := session.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}

	if _, ok := store.Get(); ok {
		t.Fatal("store must be cleared on discard marker")
	}
	if atomic.LoadInt32(&calls) != 1 || lastCode != CodeTokenExpired {
		t.Fatalf("callback calls=%d code=%q", calls, lastCode)
	}

	// The body must remain readable after marker inspection.
	raw, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(raw), "TOKEN_EXPIRED") {
		t.Fatalf("body consumed by marker check: %q", raw)
	}
}

func TestSession_Plain401DoesNotClearStore(t *testing.T) {
	session, store, server := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusUnauthorized, "AUTH_REQUIRED", "authentication required")
	}))

	if err := store.Set(Credential{Token: "tok-1"}); err != nil {
		t.Fatalf("set: %v", err)
	}
	session.OnSessionExpired(func(string) {
		t.Fatal("callback must not fire without a discard marker")
	})

	req, _ := http.NewRequest(http.MethodGet, server.URL+"/things", nil)
	resp, err := session.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	resp.Body.Close()

	if _, ok := store.Get(); !ok {
		t.Fatal("credential must survive a 401 without a discard marker")
	}
}

func TestSession_LogoutIdempotent(t *testing.T) {
	var logoutCalls int32
	session, store, _ := newSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/logout" {
			atomic.AddInt32(&logoutCalls, 1)
			w.WriteHeader(http.StatusNoContent)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))

	if err := store.Set(Credential{Token: "tok-1"}); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("first logout: %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Fatal("store not empty after logout")
	}

	if err := session.Logout(context.Background()); err != nil {
		t.Fatalf("second logout: %v", err)
	}
	if _, ok := store.Get(); ok {
		t.Fatal("store not empty after second logout")
	}
	if atomic.LoadInt32(&logoutCalls) != 1 {
		t.Fatalf("expected exactly one server logout call, got %d", logoutCalls)
	}
}
