package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Operator roles. Admin can manage staff accounts, operators work the
// patient board and conversations.
const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"
)

// RequireRole rejects requests whose authenticated role is not in the
// allowed set. It must run after the auth middleware.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role := RoleFromContext(c.Request().Context())
			if role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if _, ok := allowed[role]; !ok {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient role")
			}
			return next(c)
		}
	}
}
