package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/washly/station-backend/internal/access"
	"github.com/washly/station-backend/internal/repository"
)

type fakeStations map[uint64]*repository.Station

func (f fakeStations) GetByID(_ context.Context, id uint64) (*repository.Station, error) {
	s, ok := f[id]
	if !ok {
		return nil, repository.ErrStationNotFound
	}
	return s, nil
}

type fakeSubscriptions map[uint64]repository.Subscription

func (f fakeSubscriptions) ActiveForUser(_ context.Context, userID uint64) (repository.Subscription, error) {
	s, ok := f[userID]
	if !ok {
		return repository.Subscription{}, repository.ErrNoActiveSubscription
	}
	return s, nil
}

type fakePermissions map[uint64][]string

func (f fakePermissions) PermissionNamesForOffer(_ context.Context, offerID uint64) ([]string, error) {
	return f[offerID], nil
}

type fakeAssignments map[[2]uint64]bool

func (f fakeAssignments) Exists(_ context.Context, stationID, employeeID uint64) (bool, error) {
	return f[[2]uint64{stationID, employeeID}], nil
}

func runGate(t *testing.T, g *BenefitGate, permission, stationID string, cl *access.Claims) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(stationID)
	if cl != nil {
		c.Set(claimsKey, *cl)
	}
	handler := g.Require(permission)(func(c echo.Context) error {
		st, ok := StationFromContext(c)
		require.True(t, ok, "gated handler must see the resolved station")
		return c.JSON(http.StatusOK, echo.Map{"station_id": st.ID})
	})
	require.NoError(t, handler(c))
	return rec
}

func TestBenefitGate(t *testing.T) {
	// Station 7 belongs to owner 10, whose active subscription is on offer 3
	// granting stock access. Manager 20 is assigned to station 7; manager 21
	// is not. Owner 11 owns station 8 but has no subscription; owner 12 owns
	// station 9 on offer 4, which grants nothing.
	gate := &BenefitGate{
		Stations: fakeStations{
			7: {ID: 7, OwnerID: 10},
			8: {ID: 8, OwnerID: 11},
			9: {ID: 9, OwnerID: 12},
		},
		Subscriptions: fakeSubscriptions{
			10: {ID: 1, UserID: 10, OfferID: 3, Status: "active"},
			12: {ID: 2, UserID: 12, OfferID: 4, Status: "active"},
		},
		Benefits: fakePermissions{
			3: {"gestion_stock", "statistiques"},
			4: {"statistiques"},
		},
		Assignments: fakeAssignments{
			{7, 20}: true,
		},
	}

	owner := func(id uint64) *access.Claims {
		return &access.Claims{ID: id, Role: access.RoleStationOwner, IsActive: true}
	}
	manager := func(id uint64) *access.Claims {
		return &access.Claims{ID: id, Role: access.RoleStationManager, IsActive: true}
	}

	t.Run("owner with entitlement passes", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "7", owner(10))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"station_id":7`)
	})

	t.Run("owner of another station rejected", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "7", owner(11))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_owner")
	})

	t.Run("assigned manager inherits the owner entitlement", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "7", manager(20))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unassigned manager rejected", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "7", manager(21))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "not_assigned")
	})

	t.Run("other roles never eligible", func(t *testing.T) {
		for _, role := range []access.Role{access.RoleSuperAdmin, access.RoleSystemManager,
			access.RoleCarWasher, access.RoleStationClient} {
			rec := runGate(t, gate, "gestion_stock", "7",
				&access.Claims{ID: 10, Role: role, IsActive: true})
			assert.Equal(t, http.StatusForbidden, rec.Code, "role %s", role)
			assert.Contains(t, rec.Body.String(), "role_not_eligible")
		}
	})

	t.Run("owner without subscription rejected", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "8", owner(11))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "no_active_subscription")
	})

	t.Run("offer missing the permission rejected", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "9", owner(12))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Contains(t, rec.Body.String(), "benefit_not_granted")
	})

	t.Run("unknown station is 404", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "999", owner(10))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed station id is 400", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "abc", owner(10))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing claims is 401", func(t *testing.T) {
		rec := runGate(t, gate, "gestion_stock", "7", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
