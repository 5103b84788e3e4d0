package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washly/station-backend/internal/access"
)

func runWithClaims(t *testing.T, mw echo.MiddlewareFunc, cl *access.Claims) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if cl != nil {
		c.Set(claimsKey, *cl)
	}
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	require.NoError(t, handler(c))
	return rec
}

func TestRequireRole(t *testing.T) {
	mw := RequireRole(access.RoleSuperAdmin, access.RoleSystemManager)

	t.Run("allowed role passes", func(t *testing.T) {
		rec := runWithClaims(t, mw, &access.Claims{ID: 1, Role: access.RoleSystemManager, IsActive: true})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("other role rejected", func(t *testing.T) {
		rec := runWithClaims(t, mw, &access.Claims{ID: 2, Role: access.RoleCarWasher, IsActive: true})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no claims rejected", func(t *testing.T) {
		rec := runWithClaims(t, mw, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestRequireActive(t *testing.T) {
	mw := RequireActive()

	t.Run("active account passes", func(t *testing.T) {
		rec := runWithClaims(t, mw, &access.Claims{ID: 1, Role: access.RoleStationClient, IsActive: true})
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("deactivated account rejected", func(t *testing.T) {
		rec := runWithClaims(t, mw, &access.Claims{ID: 1, Role: access.RoleStationClient, IsActive: false})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("no claims unauthorized", func(t *testing.T) {
		rec := runWithClaims(t, mw, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
