package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/gate"
	"github.com/spec-kit/identity-service/internal/ratelimit"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AuthHandler exposes the credential issuance endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	limiter ratelimit.Limiter
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, limiter ratelimit.Limiter) *AuthHandler {
	return &AuthHandler{auth: authService, limiter: limiter}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	principal, issued, err := h.auth.Register(c.UserContext(), req.Identifier, req.Name, req.Password)
	if err != nil {
		if errors.Is(err, domain.ErrIdentifierTaken) {
			return apperrors.NewConflict("identifier already registered", nil)
		}
		return err
	}

	return c.Status(http.StatusCreated).JSON(fiber.Map{
		"data": fiber.Map{
			"principal": principalResponse(principal),
			"auth":      dto.AuthResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt},
		},
	})
}

// Login handles POST /auth/login. Unknown identifiers and wrong passwords
// produce the same response.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	if h.limiter != nil {
		allowed, err := h.limiter.Allow(c.UserContext(), "login:"+req.Identifier+":"+c.IP())
		if err != nil {
			return apperrors.NewInternalError(err)
		}
		if !allowed {
			return apperrors.NewTooManyRequests("too many login attempts")
		}
	}

	principal, issued, err := h.auth.Login(c.UserContext(), req.Identifier, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidCredentials):
			return apperrors.NewUnauthorized(apperrors.CodeInvalidCredentials, "invalid credentials")
		case errors.Is(err, domain.ErrAccountDisabled):
			return apperrors.NewForbidden(apperrors.CodeAccountDisabled, "account disabled")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal": principalResponse(principal),
			"auth":      dto.AuthResponse{Token: issued.Token, ExpiresAt: issued.ExpiresAt},
		},
	})
}

// Logout handles POST /auth/logout. Revokes the presented credential; the
// client clears its own store.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	authCtx, ok := gate.FromContext(c)
	if !ok || !authCtx.Authenticated {
		return apperrors.NewUnauthorized(apperrors.CodeAuthRequired, "authentication required")
	}

	if err := h.auth.Logout(c.UserContext(), authCtx.SubjectID, authCtx.TokenID, authCtx.ExpiresAt); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	authCtx, ok := gate.FromContext(c)
	if !ok || !authCtx.Authenticated {
		return apperrors.NewUnauthorized(apperrors.CodeAuthRequired, "authentication required")
	}

	principal, err := h.auth.GetPrincipal(c.UserContext(), authCtx.SubjectID)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return apperrors.NewUnauthorized(apperrors.CodeTokenInvalid, "unknown subject")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{
			"principal": principalResponse(principal),
			"scope":     authCtx.Scope.Strings(),
		},
	})
}

func principalResponse(principal *domain.Principal) dto.PrincipalResponse {
	return dto.PrincipalResponse{
		ID:         principal.ID,
		Identifier: principal.Identifier,
		Name:       principal.Name,
		Scope:      principal.Scope.Strings(),
		Active:     principal.Active,
		CreatedAt:  principal.CreatedAt,
	}
}
