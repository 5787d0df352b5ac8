package middleware

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
)

// RoleSource resolves coarse-grained gating answers for a user. Roles live in
// the database (not in token claims) so a promotion or revocation takes
// effect on the next request.
type RoleSource interface {
	CanManageRoutes(ctx context.Context, userID uint64) (bool, error)
	CanAdminister(ctx context.Context, userID uint64) (bool, error)
}

// RequireRouteManager admits admins and route setters. Identity is checked
// first: an unauthenticated request is a 401, an authenticated one without
// the role is a 403.
func RequireRouteManager(roles RoleSource) echo.MiddlewareFunc {
	return requireGate(roles.CanManageRoutes)
}

// RequireAdmin admits only the top precedence tier.
func RequireAdmin(roles RoleSource) echo.MiddlewareFunc {
	return requireGate(roles.CanAdminister)
}

func requireGate(check func(context.Context, uint64) (bool, error)) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			uid, ok := CurrentUserID(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "authentication required"})
			}
			allowed, err := check(c.Request().Context(), uid)
			if err != nil {
				c.Logger().Errorf("role check failed for user %d: %v", uid, err)
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "role check failed"})
			}
			if !allowed {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
