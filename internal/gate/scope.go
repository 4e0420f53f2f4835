package gate

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/identity-service/internal/domain"
	"github.com/spec-kit/identity-service/internal/observability"
	apperrors "github.com/spec-kit/identity-service/pkg/util"
)

// RequireScope ensures the authenticated context grants the capability.
// Authenticated-but-insufficient is a 403, distinct from the 401 the gate
// issues for authentication failures.
func RequireScope(capability domain.Capability) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authCtx, ok := FromContext(c)
		if !ok || !authCtx.Authenticated {
			observability.GateRejectionsTotal.WithLabelValues(apperrors.CodeAuthRequired).Inc()
			return apperrors.NewUnauthorized(apperrors.CodeAuthRequired, "authentication required")
		}
		if !authCtx.Scope.Has(capability) {
			observability.GateRejectionsTotal.WithLabelValues(apperrors.CodeForbidden).Inc()
			return apperrors.NewForbidden(apperrors.CodeForbidden, "insufficient permission")
		}
		return c.Next()
	}
}
