package handler

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/access"
	"github.com/washly/station-backend/internal/config"
	"github.com/washly/station-backend/internal/middleware"
	"github.com/washly/station-backend/internal/queue"
	"github.com/washly/station-backend/internal/repository"
	queue_publisher "github.com/washly/station-backend/internal/service"
	"github.com/washly/station-backend/internal/utils"
)

// UserHandler bundles dependencies for account management endpoints.
type UserHandler struct {
	Cfg           config.Config
	Users         *repository.UserRepo
	Stations      *repository.StationRepo
	Subscriptions *repository.SubscriptionRepo
	Assignments   *repository.AssignmentRepo
}

func NewUserHandler(cfg config.Config, u *repository.UserRepo, st *repository.StationRepo,
	sub *repository.SubscriptionRepo, a *repository.AssignmentRepo) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: u, Stations: st, Subscriptions: sub, Assignments: a}
}

type registerReq struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Phone     string `json:"phone"`
	Age       uint   `json:"age"`
	Role      string `json:"role"` // requested role, subject to the hierarchy
}

type userResp struct {
	ID        uint64 `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Phone     string `json:"phone"`
	Age       uint   `json:"age"`
	Role      string `json:"role"`
	OwnerID   uint64 `json:"owner_id,omitempty"`
	IsActive  bool   `json:"is_active"`
}

func toUserResp(u repository.User) userResp {
	return userResp{
		ID: u.ID, Username: u.Username, Email: u.Email,
		Firstname: u.Firstname, Lastname: u.Lastname,
		Phone: u.Phone, Age: u.Age, Role: u.Role,
		OwnerID: u.OwnerID, IsActive: u.IsActive,
	}
}

func toUserResps(us []repository.User) []userResp {
	out := make([]userResp, 0, len(us))
	for _, u := range us {
		out = append(out, toUserResp(u))
	}
	return out
}

// Register creates an account on behalf of the authenticated caller. The
// effective role comes from the role hierarchy, never verbatim from the
// request: a system_manager always produces a station_owner (with the audit
// row appended atomically), a station_owner produces subordinate accounts
// tied to them.
func (h *UserHandler) Register(c echo.Context) error {
	actor := middleware.MustClaims(c)

	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	assigned, ok := access.ResolveAssignedRole(actor.Role, access.Role(req.Role))
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	n := repository.NewUser{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Phone:     req.Phone,
		Age:       req.Age,
		Role:      string(assigned),
	}
	if actor.Role == access.RoleStationOwner {
		n.OwnerID = actor.ID
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		id  uint64
		err error
	)
	if actor.Role == access.RoleSystemManager {
		id, err = h.Users.CreateRegisteredByManager(ctx, n, h.Cfg.BcryptCost, actor.ID)
	} else {
		id, err = h.Users.Create(ctx, n, h.Cfg.BcryptCost)
	}
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		case errors.Is(err, repository.ErrEmailTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already taken"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
	}

	if actor.Role == access.RoleSystemManager {
		// Fire-and-forget: a broker outage must not fail the registration.
		ev := queue.OwnerRegisteredEvent{
			ManagerID:       actor.ID,
			ManagerUsername: actor.Username,
			OwnerID:         id,
			OwnerUsername:   n.Username,
			OwnerEmail:      n.Email,
			RegisteredAt:    time.Now().UTC().Format(time.RFC3339),
		}
		go func() {
			pctx, pcancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer pcancel()
			if err := queue_publisher.PublishOwnerRegistered(pctx, ev); err != nil {
				log.Printf("register: publish owner.registered failed: %v", err)
			}
		}()
	}

	return c.JSON(http.StatusCreated, userResp{
		ID: id, Username: n.Username, Email: n.Email,
		Firstname: n.Firstname, Lastname: n.Lastname,
		Phone: n.Phone, Age: n.Age, Role: n.Role,
		OwnerID: n.OwnerID, IsActive: true,
	})
}

// List returns the accounts the caller is allowed to see: everything for a
// super admin, owners they registered for a system manager, their
// subordinates for a station owner.
func (h *UserHandler) List(c echo.Context) error {
	actor := middleware.MustClaims(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	var (
		users []repository.User
		err   error
	)
	switch actor.Role {
	case access.RoleSuperAdmin:
		users, err = h.Users.ListAllExcept(ctx, actor.ID)
	case access.RoleSystemManager:
		users, err = h.Users.ListRegisteredBy(ctx, actor.ID)
	case access.RoleStationOwner:
		users, err = h.Users.ListSubordinates(ctx, actor.ID)
	default:
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toUserResps(users)})
}

// canViewUser implements the visibility rule shared by Show and Edit: self,
// super admin, or a station owner over their own subordinate.
func canViewUser(actor access.Claims, target repository.User) bool {
	if actor.Role == access.RoleSuperAdmin || actor.ID == target.ID {
		return true
	}
	return actor.Role == access.RoleStationOwner && target.OwnerID == actor.ID
}

// Show returns one account. Station owner targets come enriched with their
// stations and current subscription status; subordinate targets with the
// owner they belong to and the stations they are assigned to.
func (h *UserHandler) Show(c echo.Context) error {
	actor := middleware.MustClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !canViewUser(actor, u) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	resp := echo.Map{"user": toUserResp(u)}
	switch {
	case u.Role == string(access.RoleStationOwner):
		stations, err := h.Stations.ListByOwner(ctx, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		resp["stations"] = stations
		resp["subscription_status"] = h.subscriptionStatusOf(ctx, u.ID)
	case u.OwnerID != 0:
		owner, err := h.Users.GetOwnerOf(ctx, u.ID)
		if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if err == nil {
			resp["owner"] = toUserResp(owner)
		}
		stationIDs, err := h.Assignments.ListStationIDsForEmployee(ctx, u.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		resp["station_ids"] = stationIDs
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) subscriptionStatusOf(ctx context.Context, userID uint64) string {
	sub, err := h.Subscriptions.LatestForUser(ctx, userID)
	if err != nil {
		return string(access.SubscriptionNone)
	}
	var end *time.Time
	if sub.EndDate.Valid {
		end = &sub.EndDate.Time
	}
	return string(access.ClassifyStatus(access.SubscriptionStatus(sub.Status), end, time.Now().UTC()))
}

type editUserReq struct {
	Username  *string `json:"username"`
	Email     *string `json:"email"`
	Password  *string `json:"password"`
	Firstname *string `json:"firstname"`
	Lastname  *string `json:"lastname"`
	Phone     *string `json:"phone"`
	Age       *uint   `json:"age"`
}

// Edit updates the mutable profile fields of an account. Absent fields keep
// their stored values; role and active status move only through their
// dedicated endpoints.
func (h *UserHandler) Edit(c echo.Context) error {
	actor := middleware.MustClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req editUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if !canViewUser(actor, u) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	if req.Username != nil {
		u.Username = strings.TrimSpace(*req.Username)
	}
	if req.Email != nil {
		u.Email = *req.Email
	}
	if req.Firstname != nil {
		u.Firstname = *req.Firstname
	}
	if req.Lastname != nil {
		u.Lastname = *req.Lastname
	}
	if req.Phone != nil {
		u.Phone = *req.Phone
	}
	if req.Age != nil {
		u.Age = *req.Age
	}
	if req.Password != nil {
		if err := utils.CheckPasswordStrength(*req.Password); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
		}
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "hash failed"})
		}
		u.PasswordHash = hash
	}
	if u.Username == "" || u.Email == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email required"})
	}

	if err := h.Users.Update(ctx, u); err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "username already taken"})
		case errors.Is(err, repository.ErrEmailTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "email already taken"})
		case errors.Is(err, repository.ErrUserNotFound):
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
		}
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}

type statusReq struct {
	Active bool `json:"active"`
}

// SetStatus flips an account's active flag. Super admin only (enforced by
// routing).
func (h *UserHandler) SetStatus(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req statusReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetActive(ctx, id, req.Active); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "active": req.Active})
}

type roleReq struct {
	Role string `json:"role"`
}

// SetRole changes an account's role. Super admin only (enforced by routing).
func (h *UserHandler) SetRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req roleReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	role := access.Role(strings.TrimSpace(req.Role))
	if !role.Valid() {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unknown role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Users.SetRole(ctx, id, string(role)); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"id": id, "role": role})
}

// Delete removes an account and everything hanging off it. Super admins may
// delete anyone; a station owner only their own subordinates.
func (h *UserHandler) Delete(c echo.Context) error {
	actor := middleware.MustClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Second)
	defer cancel()

	if actor.Role != access.RoleSuperAdmin {
		u, gerr := h.Users.GetByID(ctx, id)
		if errors.Is(gerr, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		if gerr != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		if actor.Role != access.RoleStationOwner || u.OwnerID != actor.ID {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
	}

	if err := h.Users.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Bootstrap creates the first super admin. Open only while no super admin
// exists; afterwards it always conflicts.
func (h *UserHandler) Bootstrap(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	if req.Username == "" || req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "username/email/password required"})
	}
	if err := utils.CheckPasswordStrength(req.Password); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	existing, err := h.Users.ListByRole(ctx, string(access.RoleSuperAdmin))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if len(existing) > 0 {
		return c.JSON(http.StatusConflict, echo.Map{"error": "already bootstrapped"})
	}

	id, err := h.Users.Create(ctx, repository.NewUser{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Phone:     req.Phone,
		Age:       req.Age,
		Role:      string(access.RoleSuperAdmin),
	}, h.Cfg.BcryptCost)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrUsernameTaken), errors.Is(err, repository.ErrEmailTaken):
			return c.JSON(http.StatusConflict, echo.Map{"error": "already exists"})
		default:
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "username": req.Username, "role": access.RoleSuperAdmin})
}
