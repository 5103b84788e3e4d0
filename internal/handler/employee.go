package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/access"
	"github.com/washly/station-backend/internal/config"
	"github.com/washly/station-backend/internal/middleware"
	"github.com/washly/station-backend/internal/repository"
	"github.com/washly/station-backend/internal/utils"
)

// EmployeeHandler manages a station owner's workforce: creating subordinate
// accounts, assigning them to stations and unassigning them. Profile edits
// and deletion go through the users endpoints, which already honor the
// owner-over-subordinate rule.
type EmployeeHandler struct {
	Cfg         config.Config
	Users       *repository.UserRepo
	Stations    *repository.StationRepo
	Assignments *repository.AssignmentRepo
}

func NewEmployeeHandler(cfg config.Config, u *repository.UserRepo,
	st *repository.StationRepo, a *repository.AssignmentRepo) *EmployeeHandler {
	return &EmployeeHandler{Cfg: cfg, Users: u, Stations: st, Assignments: a}
}

// CreateAndAssign handles POST /v1/stations/:id/employees: creates a
// subordinate account and assigns it to the station in one request. The
// account is created first; if the assign insert then fails the account
// still exists unassigned, which the owner can retry via /v1/employees/assign.
func (h *EmployeeHandler) CreateAndAssign(c echo.Context) error {
	cl := middleware.MustClaims(c)
	stationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

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
	role, ok := access.ResolveAssignedRole(cl.Role, access.Role(req.Role))
	if !ok {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Stations.GetByIDAndOwner(ctx, stationID, cl.ID); err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		Phone:     req.Phone,
		Age:       req.Age,
		Role:      string(role),
		OwnerID:   cl.ID,
	}, h.Cfg.BcryptCost)
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

	if _, err := h.Assignments.Assign(ctx, stationID, uid); err != nil &&
		!errors.Is(err, repository.ErrAlreadyAssigned) {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign failed"})
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"id": uid, "username": req.Username, "role": role, "station_id": stationID,
	})
}

type assignReq struct {
	StationID  uint64 `json:"station_id"`
	EmployeeID uint64 `json:"employee_id"`
}

// Assign handles POST /v1/employees/assign: links an existing subordinate to
// one of the caller's stations.
func (h *EmployeeHandler) Assign(c echo.Context) error {
	cl := middleware.MustClaims(c)
	var req assignReq
	if err := c.Bind(&req); err != nil || req.StationID == 0 || req.EmployeeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "station_id/employee_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Stations.GetByIDAndOwner(ctx, req.StationID, cl.ID); err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	emp, err := h.Users.GetByID(ctx, req.EmployeeID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "employee not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if emp.OwnerID != cl.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	id, err := h.Assignments.Assign(ctx, req.StationID, req.EmployeeID)
	if errors.Is(err, repository.ErrAlreadyAssigned) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "already assigned"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id": id, "station_id": req.StationID, "employee_id": req.EmployeeID,
	})
}

// Unassign handles POST /v1/employees/unassign.
func (h *EmployeeHandler) Unassign(c echo.Context) error {
	cl := middleware.MustClaims(c)
	var req assignReq
	if err := c.Bind(&req); err != nil || req.StationID == 0 || req.EmployeeID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "station_id/employee_id required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Stations.GetByIDAndOwner(ctx, req.StationID, cl.ID); err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.Assignments.Remove(ctx, req.StationID, req.EmployeeID); err != nil {
		if errors.Is(err, repository.ErrAssignmentNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "assignment not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "unassign failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
