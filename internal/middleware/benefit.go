package middleware

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/access"
	"github.com/washly/station-backend/internal/repository"
)

// The gate depends on narrow read interfaces rather than the concrete
// repositories so its decision logic is testable without a database. The
// repository types satisfy them as-is.
type (
	// StationSource resolves the station named in the request path.
	StationSource interface {
		GetByID(ctx context.Context, id uint64) (*repository.Station, error)
	}
	// SubscriptionSource yields the live subscription carrying an
	// account's entitlements.
	SubscriptionSource interface {
		ActiveForUser(ctx context.Context, userID uint64) (repository.Subscription, error)
	}
	// PermissionSource lists the permission keys an offer grants.
	PermissionSource interface {
		PermissionNamesForOffer(ctx context.Context, offerID uint64) ([]string, error)
	}
	// AssignmentSource answers whether an employee works at a station.
	AssignmentSource interface {
		Exists(ctx context.Context, stationID, employeeID uint64) (bool, error)
	}
)

// BenefitGate enforces subscription-based feature access on station-scoped
// routes. Owners must hold an active unexpired subscription whose offer
// grants the required permission and must own the station in the URL.
// Station managers go through delegation: they must be assigned to the
// station, and the entitlement is checked against the owning account.
type BenefitGate struct {
	Stations      StationSource
	Subscriptions SubscriptionSource
	Benefits      PermissionSource
	Assignments   AssignmentSource
}

func NewBenefitGate(stations *repository.StationRepo, subs *repository.SubscriptionRepo,
	benefits *repository.BenefitRepo, assignments *repository.AssignmentRepo) *BenefitGate {
	return &BenefitGate{Stations: stations, Subscriptions: subs, Benefits: benefits, Assignments: assignments}
}

// stationKey is the context key the resolved station is stored under so
// handlers behind the gate do not re-fetch it.
const stationKey = "station"

// StationFromContext returns the station resolved by the gate.
func StationFromContext(c echo.Context) (*repository.Station, bool) {
	s, ok := c.Get(stationKey).(*repository.Station)
	return s, ok
}

// Require returns a middleware admitting only requests that pass the benefit
// check for the given permission name on the station in the :id route param.
func (g *BenefitGate) Require(permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cl, ok := CurrentClaims(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			stationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
			if err != nil || stationID == 0 {
				return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid station id"})
			}
			ctx := c.Request().Context()

			station, err := g.Stations.GetByID(ctx, stationID)
			if errors.Is(err, repository.ErrStationNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
			}
			if err != nil {
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
			}

			// The account whose subscription carries the entitlement.
			var entitledID uint64
			switch cl.Role {
			case access.RoleStationOwner:
				if station.OwnerID != cl.ID {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "not_owner"})
				}
				entitledID = cl.ID
			case access.RoleStationManager:
				assigned, aerr := g.Assignments.Exists(ctx, stationID, cl.ID)
				if aerr != nil {
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
				}
				if !assigned {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "not_assigned"})
				}
				entitledID = station.OwnerID
			default:
				return c.JSON(http.StatusForbidden, echo.Map{"error": "role_not_eligible"})
			}

			if err := g.checkEntitlement(ctx, entitledID, permission); err != nil {
				switch {
				case errors.Is(err, repository.ErrNoActiveSubscription):
					return c.JSON(http.StatusForbidden, echo.Map{"error": "no_active_subscription"})
				case errors.Is(err, errBenefitNotGranted):
					return c.JSON(http.StatusForbidden, echo.Map{"error": "benefit_not_granted"})
				default:
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
				}
			}

			c.Set(stationKey, station)
			return next(c)
		}
	}
}

var errBenefitNotGranted = errors.New("benefit not granted")

// checkEntitlement verifies the account holds a live subscription whose offer
// grants the permission.
func (g *BenefitGate) checkEntitlement(ctx context.Context, userID uint64, permission string) error {
	sub, err := g.Subscriptions.ActiveForUser(ctx, userID)
	if err != nil {
		return err
	}
	perms, err := g.Benefits.PermissionNamesForOffer(ctx, sub.OfferID)
	if err != nil {
		return err
	}
	for _, p := range perms {
		if p == permission {
			return nil
		}
	}
	return errBenefitNotGranted
}
