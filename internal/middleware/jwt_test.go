package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washly/station-backend/internal/access"
	"github.com/washly/station-backend/internal/utils"
)

const testSecret = "test-secret-for-middleware"

func issueToken(t *testing.T, cl access.Claims) string {
	t.Helper()
	tok, err := utils.NewAccessToken(testSecret, cl, 15)
	require.NoError(t, err)
	return tok.Token
}

func runRequest(t *testing.T, mw echo.MiddlewareFunc, authHeader string) (*httptest.ResponseRecorder, access.Claims, bool) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var got access.Claims
	var ok bool
	handler := mw(func(c echo.Context) error {
		got, ok = CurrentClaims(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec, got, ok
}

func TestJWTAuth(t *testing.T) {
	t.Run("valid token passes claims through", func(t *testing.T) {
		want := access.Claims{
			ID:       42,
			Username: "marie",
			Email:    "marie@example.com",
			Role:     access.RoleStationOwner,
			IsActive: true,
		}
		rec, got, ok := runRequest(t, JWTAuth(testSecret), "Bearer "+issueToken(t, want))
		assert.Equal(t, http.StatusOK, rec.Code)
		require.True(t, ok)
		assert.Equal(t, want, got)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		rec, _, ok := runRequest(t, JWTAuth(testSecret), "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, ok)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		cl := access.Claims{ID: 1, Username: "x", Role: access.RoleCarWasher, IsActive: true}
		rec, _, _ := runRequest(t, JWTAuth("another-secret"), "Bearer "+issueToken(t, cl))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		rec, _, _ := runRequest(t, JWTAuth(testSecret), "Bearer not.a.token")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
