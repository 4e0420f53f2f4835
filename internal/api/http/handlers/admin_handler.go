package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/api/dto"
	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/service"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// AdminHandler exposes principal management for admin-scoped callers.
type AdminHandler struct {
	auth *service.AuthService
}

// NewAdminHandler constructs handler.
func NewAdminHandler(authService *service.AuthService) *AdminHandler {
	return &AdminHandler{auth: authService}
}

// ListPrincipals handles GET /admin/principals.
func (h *AdminHandler) ListPrincipals(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 20)
	offset := c.QueryInt("offset", 0)

	principals, total, err := h.auth.ListPrincipals(c.UserContext(), limit, offset)
	if err != nil {
		return err
	}

	items := make([]dto.PrincipalResponse, 0, len(principals))
	for _, principal := range principals {
		items = append(items, principalResponse(principal))
	}

	return c.JSON(fiber.Map{
		"data": dto.PrincipalListResponse{
			Principals: items,
			Total:      total,
			Limit:      limit,
			Offset:     offset,
		},
	})
}

// UpdateStatus handles PATCH /admin/principals/:id/status.
func (h *AdminHandler) UpdateStatus(c *fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return apperrors.NewValidationError("principal id required", nil)
	}

	var req dto.PrincipalStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if err := dto.Validate(req); err != nil {
		return err
	}

	principal, err := h.auth.SetPrincipalStatus(c.UserContext(), id, *req.Active)
	if err != nil {
		if errors.Is(err, domain.ErrPrincipalNotFound) {
			return apperrors.NewNotFound("principal")
		}
		return err
	}

	return c.JSON(fiber.Map{
		"data": fiber.Map{"principal": principalResponse(principal)},
	})
}
