package middleware

import (
	"fmt"

	"github.com/labstack/echo/v4"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// RBAC admits only the roles Auth stored on the context. Unlisted roles
// fail with domain.ErrForbidden and are rendered by the error handler.
func RBAC(allowedRoles ...domain.Role) echo.MiddlewareFunc {
	allowed := make(map[domain.Role]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[domain.Role(role)]; !ok {
				return fmt.Errorf("%w: role %q", domain.ErrForbidden, role)
			}
			return next(c)
		}
	}
}
