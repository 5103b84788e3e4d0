package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/middleware"
	"github.com/washly/station-backend/internal/repository"
)

// StationHandler bundles dependencies for station CRUD. All routes here are
// role-gated to station_owner by the router; handlers only enforce ownership
// of the individual rows.
type StationHandler struct {
	Stations    *repository.StationRepo
	Assignments *repository.AssignmentRepo
}

func NewStationHandler(st *repository.StationRepo, a *repository.AssignmentRepo) *StationHandler {
	return &StationHandler{Stations: st, Assignments: a}
}

type stationReq struct {
	Name    string `json:"name"`
	City    string `json:"city"`
	Country string `json:"country"`
	Address string `json:"address"`
}

// Create handles POST /v1/stations.
func (h *StationHandler) Create(c echo.Context) error {
	cl := middleware.MustClaims(c)
	var req stationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	s := &repository.Station{
		OwnerID: cl.ID,
		Name:    req.Name,
		City:    req.City,
		Country: req.Country,
		Address: req.Address,
	}
	if err := h.Stations.Create(c.Request().Context(), s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create station"})
	}
	return c.JSON(http.StatusCreated, s)
}

// List handles GET /v1/stations and returns the caller's stations.
func (h *StationHandler) List(c echo.Context) error {
	cl := middleware.MustClaims(c)
	items, err := h.Stations.ListByOwner(c.Request().Context(), cl.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Show handles GET /v1/stations/:id.
func (h *StationHandler) Show(c echo.Context) error {
	cl := middleware.MustClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	s, err := h.Stations.GetByIDAndOwner(c.Request().Context(), id, cl.ID)
	if errors.Is(err, repository.ErrStationNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, s)
}

// Update handles PUT /v1/stations/:id.
func (h *StationHandler) Update(c echo.Context) error {
	cl := middleware.MustClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req stationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	s := &repository.Station{
		ID: id, OwnerID: cl.ID,
		Name: req.Name, City: req.City, Country: req.Country, Address: req.Address,
	}
	if err := h.Stations.Update(c.Request().Context(), s); err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Stations.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/stations/:id.
func (h *StationHandler) Delete(c echo.Context) error {
	cl := middleware.MustClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	err = h.Stations.DeleteByIDAndOwner(c.Request().Context(), id, cl.ID)
	switch {
	case errors.Is(err, repository.ErrStationNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not_owner"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// ListEmployees handles GET /v1/stations/:id/employees.
func (h *StationHandler) ListEmployees(c echo.Context) error {
	cl := middleware.MustClaims(c)
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if _, err := h.Stations.GetByIDAndOwner(c.Request().Context(), id, cl.ID); err != nil {
		if errors.Is(err, repository.ErrStationNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "station not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	employees, err := h.Assignments.ListEmployeesForStation(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toUserResps(employees)})
}
