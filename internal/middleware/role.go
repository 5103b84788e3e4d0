package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/access"
)

// RequireRole returns a middleware that only admits requests whose decoded
// claims carry one of the given roles. Requests with no claims or another
// role are rejected with 403. It assumes JWTAuth ran earlier in the chain.
func RequireRole(roles ...access.Role) echo.MiddlewareFunc {
	allowed := make(map[access.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, ok := CurrentClaims(c)
			if !ok || !allowed[cl.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return next(c)
		}
	}
}

// RequireActive rejects requests from deactivated accounts. The flag is read
// from the token, so a deactivation takes full effect once the current token
// expires; the login check catches it immediately.
func RequireActive() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, ok := CurrentClaims(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			if !cl.IsActive {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "account deactivated"})
			}
			return next(c)
		}
	}
}
