package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/repository"
)

// BenefitHandler covers the benefit catalogue (super_admin writes).
type BenefitHandler struct {
	Benefits *repository.BenefitRepo
}

func NewBenefitHandler(b *repository.BenefitRepo) *BenefitHandler {
	return &BenefitHandler{Benefits: b}
}

type benefitReq struct {
	Name           string `json:"name"`
	Description    string `json:"description"`
	PermissionName string `json:"permission_name"`
}

// Create handles POST /v1/benefits.
func (h *BenefitHandler) Create(c echo.Context) error {
	var req benefitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.PermissionName = strings.TrimSpace(req.PermissionName)
	if req.Name == "" || req.PermissionName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/permission_name required"})
	}
	id, err := h.Benefits.Create(c.Request().Context(), req.Name, req.Description, req.PermissionName)
	if errors.Is(err, repository.ErrPermissionNameTaken) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission name already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create benefit"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"id": id, "name": req.Name, "permission_name": req.PermissionName,
	})
}

// List handles GET /v1/benefits.
func (h *BenefitHandler) List(c echo.Context) error {
	items, err := h.Benefits.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Show handles GET /v1/benefits/:id.
func (h *BenefitHandler) Show(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	b, err := h.Benefits.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrBenefitNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "benefit not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, b)
}

// Update handles PUT /v1/benefits/:id.
func (h *BenefitHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req benefitReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.PermissionName = strings.TrimSpace(req.PermissionName)
	if req.Name == "" || req.PermissionName == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name/permission_name required"})
	}
	err = h.Benefits.Update(c.Request().Context(), repository.Benefit{
		ID: id, Name: req.Name, Description: req.Description, PermissionName: req.PermissionName,
	})
	switch {
	case errors.Is(err, repository.ErrBenefitNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "benefit not found"})
	case errors.Is(err, repository.ErrPermissionNameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "permission name already exists"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Benefits.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/benefits/:id.
func (h *BenefitHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Benefits.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrBenefitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "benefit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
