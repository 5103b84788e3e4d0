package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/access"
)

// claimsKey is the context key the decoded claims live under.
const claimsKey = "claims"

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and stores the decoded claims in the request context. The provided secret
// must match the one used when issuing tokens. Handlers downstream read the
// claims with CurrentClaims.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			raw := strings.TrimPrefix(auth, "Bearer ")

			tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, echo.ErrUnauthorized
				}
				return []byte(secret), nil
			})
			if err != nil || !tok.Valid {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}

			mc, ok := tok.Claims.(jwt.MapClaims)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}

			cl := access.Claims{
				ID:       asUint64(mc["uid"]),
				Role:     access.Role(asString(mc["role"])),
				Username: asString(mc["sub"]),
				Email:    asString(mc["email"]),
			}
			if v, ok := mc["active"].(bool); ok {
				cl.IsActive = v
			}
			if cl.ID == 0 || !cl.Role.Valid() {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid claims"})
			}
			c.Set(claimsKey, cl)
			return next(c)
		}
	}
}

// CurrentClaims returns the claims stored by JWTAuth. ok is false on routes
// that were not wrapped by it.
func CurrentClaims(c echo.Context) (access.Claims, bool) {
	cl, ok := c.Get(claimsKey).(access.Claims)
	return cl, ok
}

// MustClaims returns the claims stored by JWTAuth. Only call on routes that
// are wrapped by it; returns zero claims otherwise.
func MustClaims(c echo.Context) access.Claims {
	cl, _ := c.Get(claimsKey).(access.Claims)
	return cl
}

// JWT numeric claims arrive as float64 after JSON decoding.
func asUint64(v any) uint64 {
	switch t := v.(type) {
	case float64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case int64:
		if t < 0 {
			return 0
		}
		return uint64(t)
	case uint64:
		return t
	}
	return 0
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}
