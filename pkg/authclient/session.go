package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Discard marker codes: any 401 carrying one of these means the stored
// credential is dead and must not be retried.
const (
	CodeTokenExpired = "TOKEN_EXPIRED"
	CodeTokenInvalid = "TOKEN_INVALID"
	CodeTokenRevoked = "TOKEN_REVOKED"
)

// Login failure outcomes surfaced to callers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrRateLimited        = errors.New("too many login attempts")
)

// APIError is any other error envelope returned by the service.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// Session orchestrates the login/logout lifecycle against the identity
// service and reconciles server-side rejections into the store.
type Session struct {
	baseURL string
	client  *http.Client
	store   *Store

	mu        sync.Mutex
	callbacks []func(code string)
}

// NewSession builds a session controller. A nil client gets a sensible
// default timeout.
func NewSession(baseURL string, store *Store, client *http.Client) *Session {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Session{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
		store:   store,
	}
}

// Store exposes the underlying credential store.
func (s *Session) Store() *Store {
	return s.store
}

// OnSessionExpired registers a callback fired whenever a response carries
// a discard marker, after the store has been cleared. Typically used to
// redirect to a login entry point.
func (s *Session) OnSessionExpired(fn func(code string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.callbacks = append(s.callbacks, fn)
}

type loginPayload struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type envelope struct {
	Data *struct {
		Principal *struct {
			ID    string   `json:"id"`
			Scope []string `json:"scope"`
		} `json:"principal"`
		Auth *struct {
			Token     string    `json:"token"`
			ExpiresAt time.Time `json:"expires_at"`
		} `json:"auth"`
	} `json:"data"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Login authenticates against the service and stores the credential on
// success. Failures propagate unchanged; there is no retry here.
func (s *Session) Login(ctx context.Context, identifier, password string) (*Credential, error) {
	body, err := json.Marshal(loginPayload{Identifier: identifier, Password: password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode login response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, loginError(resp.StatusCode, env)
	}
	if env.Data == nil || env.Data.Auth == nil || env.Data.Principal == nil {
		return nil, fmt.Errorf("malformed login response")
	}

	credential := Credential{
		Token:     env.Data.Auth.Token,
		SubjectID: env.Data.Principal.ID,
		Scope:     env.Data.Principal.Scope,
		ExpiresAt: env.Data.Auth.ExpiresAt,
	}
	if err := s.store.Set(credential); err != nil {
		return nil, err
	}
	return &credential, nil
}

// Logout clears the stored credential and tells the service to revoke
// the token, best effort. Safe to call repeatedly.
func (s *Session) Logout(ctx context.Context) error {
	credential, ok := s.store.Get()
	if err := s.store.Clear(); err != nil {
		return err
	}
	if !ok {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/auth/logout", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+credential.Token)
	resp, err := s.client.Do(req)
	if err != nil {
		// Revocation is advisory; the credential is already gone locally.
		return nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return nil
}

// Do sends the request with the current credential attached and watches
// the response for discard markers, independent of which endpoint
// produced it. The response body remains readable by the caller.
func (s *Session) Do(req *http.Request) (*http.Response, error) {
	s.store.Attach(req)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		if code, ok := discardMarker(resp); ok {
			s.onRejected(code)
		}
	}
	return resp, nil
}

// onRejected clears the store and notifies listeners. Clearing an empty
// store is a no-op, and nothing here issues another request, so the
// reaction cannot recurse.
func (s *Session) onRejected(code string) {
	_ = s.store.Clear()

	s.mu.Lock()
	callbacks := append([]func(code string){}, s.callbacks...)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(code)
	}
}

// discardMarker reads the error envelope non-destructively and reports
// whether it names a dead-credential code.
func discardMarker(resp *http.Response) (string, bool) {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil {
		return "", false
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.Error == nil {
		return "", false
	}

	switch env.Error.Code {
	case CodeTokenExpired, CodeTokenInvalid, CodeTokenRevoked:
		return env.Error.Code, true
	default:
		return "", false
	}
}

func loginError(status int, env envelope) error {
	code := ""
	message := http.StatusText(status)
	if env.Error != nil {
		code = env.Error.Code
		message = env.Error.Message
	}

	switch code {
	case "INVALID_CREDENTIALS":
		return ErrInvalidCredentials
	case "ACCOUNT_DISABLED":
		return ErrAccountDisabled
	case "RATE_LIMITED":
		return ErrRateLimited
	default:
		return &APIError{Status: status, Code: code, Message: message}
	}
}
