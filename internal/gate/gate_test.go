package gate

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/revocation"
	"github.com/spec-kit/identity-service/internal/token"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newTestApp(g *Gate) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		de := apperrors.ToDomainError(err)
		return c.Status(de.HTTPStatus).JSON(fiber.Map{"error": fiber.Map{
			"code":    de.Code,
			"message": de.Message,
		}})
	})

	echoContext := func(c *fiber.Ctx) error {
		authCtx, _ := FromContext(c)
		return c.JSON(fiber.Map{
			"authenticated": authCtx.Authenticated,
			"subject_id":    authCtx.SubjectID,
			"scope":         authCtx.Scope.Strings(),
		})
	}

	app.Get("/protected", g.Require(), echoContext)
	app.Get("/public", g.Optional(), echoContext)
	app.Get("/admin", g.Require(), RequireScope(domain.CapabilityAdmin), echoContext)
	return app
}

func doRequest(t *testing.T, app *fiber.App, path, bearer string) (*http.Response, errorBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	var body errorBody
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return resp, body
}

func TestGate_MissingHeaderOnProtectedRoute(t *testing.T) {
	g := New(token.NewManager("secret"), revocation.NewMemoryList(), nil)
	app := newTestApp(g)

	resp, body := doRequest(t, app, "/protected", "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body.Error.Code != apperrors.CodeAuthRequired {
		t.Fatalf("expected %s, got %s", apperrors.CodeAuthRequired, body.Error.Code)
	}
}

func TestGate_MissingHeaderOnPublicRoute(t *testing.T) {
	g := New(token.NewManager("secret"), revocation.NewMemoryList(), nil)
	app := newTestApp(g)

	req := httptest.NewRequest(http.MethodGet, "/public", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 on anonymous public request, got %d", resp.StatusCode)
	}

	var out struct {
		Authenticated bool `json:"authenticated"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Authenticated {
		t.Fatal("anonymous request must not be authenticated")
	}
}

func TestGate_ValidToken(t *testing.T) {
	manager := token.NewManager("secret")
	g := New(manager, revocation.NewMemoryList(), nil)
	app := newTestApp(g)

	issued, err := manager.Issue("alice", domain.Scope{domain.CapabilityUser}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+issued.Token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var out struct {
		Authenticated bool     `json:"authenticated"`
		SubjectID     string   `json:"subject_id"`
		Scope         []string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Authenticated || out.SubjectID != "alice" {
		t.Fatalf("unexpected context: %+v", out)
	}
	if len(out.Scope) != 1 || out.Scope[0] != "user" {
		t.Fatalf("unexpected scope: %v", out.Scope)
	}
}

func TestGate_ExpiredToken(t *testing.T) {
	manager := token.NewManager("secret")
	g := New(manager, revocation.NewMemoryList(), nil)
	app := newTestApp(g)

	issued, err := manager.Issue("alice", domain.DefaultScope(), time.Nanosecond)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	resp, body := doRequest(t, app, "/protected", issued.Token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body.Error.Code != apperrors.CodeTokenExpired {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenExpired, body.Error.Code)
	}
}

func TestGate_GarbageToken(t *testing.T) {
	g := New(token.NewManager("secret"), revocation.NewMemoryList(), nil)
	app := newTestApp(g)

	resp, body := doRequest(t, app, "/protected", "not-a-token")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body.Error.Code != apperrors.CodeTokenInvalid {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenInvalid, body.Error.Code)
	}
}

func TestGate_WrongSecret(t *testing.T) {
	other := token.NewManager("other-secret")
	g := New(token.NewManager("secret"), revocation.NewMemoryList(), nil)
	app := newTestApp(g)

	issued, err := other.Issue("alice", domain.DefaultScope(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	resp, body := doRequest(t, app, "/protected", issued.Token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	// Signature failures surface the same generic code as malformed ones.
	if body.Error.Code != apperrors.CodeTokenInvalid {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenInvalid, body.Error.Code)
	}
}

func TestGate_RevokedToken(t *testing.T) {
	manager := token.NewManager("secret")
	revoked := revocation.NewMemoryList()
	g := New(manager, revoked, nil)
	app := newTestApp(g)

	issued, err := manager.Issue("alice", domain.DefaultScope(), time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := revoked.Revoke(context.Background(), issued.ID, time.Hour); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	resp, body := doRequest(t, app, "/protected", issued.Token)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body.Error.Code != apperrors.CodeTokenRevoked {
		t.Fatalf("expected %s, got %s", apperrors.CodeTokenRevoked, body.Error.Code)
	}
}

func TestRequireScope(t *testing.T) {
	manager := token.NewManager("secret")
	g := New(manager, revocation.NewMemoryList(), nil)
	app := newTestApp(g)

	userToken, err := manager.Issue("alice", domain.Scope{domain.CapabilityUser}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	adminToken, err := manager.Issue("root", domain.Scope{domain.CapabilityUser, domain.CapabilityAdmin}, time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	resp, body := doRequest(t, app, "/admin", userToken.Token)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("user scope on admin route: expected 403, got %d", resp.StatusCode)
	}
	if body.Error.Code != apperrors.CodeForbidden {
		t.Fatalf("expected %s, got %s", apperrors.CodeForbidden, body.Error.Code)
	}

	resp, _ = doRequest(t, app, "/admin", adminToken.Token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin scope on admin route: expected 200, got %d", resp.StatusCode)
	}
}
