package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/b2bwholesale/ordering-sync/internal/core/domain"
)

// ctxIdentity extracts the identity injected by the Auth middleware and
// performs a fast-fail check before any service call:
//   - role must be one of the account roles (presence proves the middleware ran).
//   - user_id must be non-empty; a partner without one has no channel.
func ctxIdentity(c echo.Context) (domain.Identity, error) {
	role, _ := c.Get("role").(string)
	if !domain.Role(role).Valid() {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	userID, _ := c.Get("user_id").(string)
	if userID == "" {
		return domain.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, "token missing user identity")
	}

	return domain.Identity{UserID: userID, Role: domain.Role(role)}, nil
}
