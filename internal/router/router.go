// Package router wires HTTP routes to handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/access"
	"github.com/washly/station-backend/internal/handler"
	"github.com/washly/station-backend/internal/middleware"
)

// Handlers groups everything the router needs. Built once in main and
// passed down whole to keep the registration calls short.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Stations      *handler.StationHandler
	Employees     *handler.EmployeeHandler
	Offers        *handler.OfferHandler
	Benefits      *handler.BenefitHandler
	Subscriptions *handler.SubscriptionHandler
	Stocks        *handler.StockHandler
	Managers      *handler.ManagerHandler
	BenefitGate   *middleware.BenefitGate
}

// RegisterPublic registers the routes that work without a token: liveness,
// login and the one-shot super admin bootstrap.
func RegisterPublic(e *echo.Echo, h Handlers) {
	e.GET("/healthz", handler.Health)
	e.POST("/v1/auth/login", h.Auth.Login)
	e.POST("/v1/admin/bootstrap", h.Users.Bootstrap)
}

// RegisterProtected registers everything behind JWT auth. Role gates are
// attached per subgroup; the stock routes additionally go through the
// benefit gate, which performs its own owner/employee resolution.
func RegisterProtected(e *echo.Echo, h Handlers, jwtSecret string) {
	auth := e.Group("/v1", middleware.JWTAuth(jwtSecret), middleware.RequireActive())

	auth.GET("/me", h.Auth.Me)

	// ---- Users ----
	auth.POST("/users/register", h.Users.Register)
	auth.GET("/users", h.Users.List)
	auth.GET("/users/:id", h.Users.Show)
	auth.PUT("/users/:id", h.Users.Edit)
	auth.DELETE("/users/:id", h.Users.Delete)

	admin := auth.Group("", middleware.RequireRole(access.RoleSuperAdmin))
	admin.POST("/users/:id/status", h.Users.SetStatus)
	admin.POST("/users/:id/role", h.Users.SetRole)

	// ---- Offers & benefits (catalogue writes are super admin only) ----
	auth.GET("/offers", h.Offers.List)
	auth.GET("/offers/:id", h.Offers.Show)
	auth.GET("/benefits", h.Benefits.List)
	auth.GET("/benefits/:id", h.Benefits.Show)
	admin.POST("/offers", h.Offers.Create)
	admin.PUT("/offers/:id", h.Offers.Update)
	admin.DELETE("/offers/:id", h.Offers.Delete)
	admin.POST("/offers/:id/benefits", h.Offers.AttachBenefit)
	admin.DELETE("/offers/:id/benefits/:benefit_id", h.Offers.DetachBenefit)
	admin.POST("/benefits", h.Benefits.Create)
	admin.PUT("/benefits/:id", h.Benefits.Update)
	admin.DELETE("/benefits/:id", h.Benefits.Delete)

	// ---- Stations & workforce (station owner) ----
	owner := auth.Group("", middleware.RequireRole(access.RoleStationOwner))
	owner.POST("/stations", h.Stations.Create)
	owner.GET("/stations", h.Stations.List)
	owner.GET("/stations/:id", h.Stations.Show)
	owner.PUT("/stations/:id", h.Stations.Update)
	owner.DELETE("/stations/:id", h.Stations.Delete)
	owner.GET("/stations/:id/employees", h.Stations.ListEmployees)
	owner.POST("/stations/:id/employees", h.Employees.CreateAndAssign)
	owner.POST("/employees/assign", h.Employees.Assign)
	owner.POST("/employees/unassign", h.Employees.Unassign)

	// ---- Subscriptions (station owner) ----
	owner.GET("/subscriptions/status", h.Subscriptions.Status)
	owner.POST("/subscriptions/subscribe", h.Subscriptions.Subscribe)
	owner.POST("/subscriptions/renew", h.Subscriptions.Renew)

	// ---- Stocks (benefit-gated; owners and assigned station managers) ----
	stocks := auth.Group("/stations/:id/stocks", h.BenefitGate.Require(handler.StockPermission))
	stocks.GET("", h.Stocks.List)
	stocks.POST("", h.Stocks.Create)
	stocks.GET("/:stock_id", h.Stocks.Show)
	stocks.PUT("/:stock_id", h.Stocks.Update)
	stocks.POST("/:stock_id/adjust", h.Stocks.Adjust)
	stocks.DELETE("/:stock_id", h.Stocks.Delete)

	// ---- System manager ----
	manager := auth.Group("/manager", middleware.RequireRole(access.RoleSystemManager))
	manager.GET("/registrations", h.Managers.Registrations)
	manager.GET("/registrations/:owner_id", h.Managers.RegistrationDetail)
	manager.GET("/quota", h.Managers.QuotaReport)
	manager.POST("/stations/:owner_id", h.Managers.CreateStationForOwner)

	// ---- Super admin overviews ----
	admin.GET("/admin/managers", h.Managers.ListManagers)
	admin.GET("/admin/managers/:id", h.Managers.ManagerDetail)
	admin.POST("/admin/managers/:id/quota", h.Managers.AssignQuota)
	admin.GET("/admin/stations", h.Managers.ListStations)
}
