package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/repository"
)

// OfferHandler covers the subscription plan catalogue. Writes are routed
// super_admin only; reads are open to any authenticated account so owners
// can browse plans before subscribing.
type OfferHandler struct {
	Offers   *repository.OfferRepo
	Benefits *repository.BenefitRepo
}

func NewOfferHandler(o *repository.OfferRepo, b *repository.BenefitRepo) *OfferHandler {
	return &OfferHandler{Offers: o, Benefits: b}
}

type offerReq struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Price       float64 `json:"price"`
}

// Create handles POST /v1/offers.
func (h *OfferHandler) Create(c echo.Context) error {
	var req offerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Price < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "price must not be negative"})
	}
	id, err := h.Offers.Create(c.Request().Context(), req.Name, req.Description, req.Price)
	if errors.Is(err, repository.ErrOfferNameTaken) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "offer name already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create offer"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id, "name": req.Name, "price": req.Price})
}

// List handles GET /v1/offers.
func (h *OfferHandler) List(c echo.Context) error {
	items, err := h.Offers.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Show handles GET /v1/offers/:id and includes the attached benefits.
func (h *OfferHandler) Show(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	o, err := h.Offers.GetByID(c.Request().Context(), id)
	if errors.Is(err, repository.ErrOfferNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	benefits, err := h.Benefits.ListForOffer(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"offer": o, "benefits": benefits})
}

// Update handles PUT /v1/offers/:id.
func (h *OfferHandler) Update(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req offerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	err = h.Offers.Update(c.Request().Context(), repository.Offer{
		ID: id, Name: req.Name, Description: req.Description, Price: req.Price,
	})
	switch {
	case errors.Is(err, repository.ErrOfferNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
	case errors.Is(err, repository.ErrOfferNameTaken):
		return c.JSON(http.StatusConflict, echo.Map{"error": "offer name already exists"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Offers.GetByID(c.Request().Context(), id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, updated)
}

// Delete handles DELETE /v1/offers/:id.
func (h *OfferHandler) Delete(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if err := h.Offers.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}

// AttachBenefit handles POST /v1/offers/:id/benefits.
func (h *OfferHandler) AttachBenefit(c echo.Context) error {
	offerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req struct {
		BenefitID uint64 `json:"benefit_id"`
	}
	if err := c.Bind(&req); err != nil || req.BenefitID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "benefit_id required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Offers.GetByID(ctx, offerID); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if _, err := h.Benefits.GetByID(ctx, req.BenefitID); err != nil {
		if errors.Is(err, repository.ErrBenefitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "benefit not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if err := h.Benefits.AttachToOffer(ctx, offerID, req.BenefitID); err != nil {
		if errors.Is(err, repository.ErrBenefitAlreadyAttached) {
			return c.JSON(http.StatusConflict, echo.Map{"error": "benefit already attached"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "attach failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"offer_id": offerID, "benefit_id": req.BenefitID})
}

// DetachBenefit handles DELETE /v1/offers/:id/benefits/:benefit_id.
func (h *OfferHandler) DetachBenefit(c echo.Context) error {
	offerID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	benefitID, err := strconv.ParseUint(c.Param("benefit_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid benefit id"})
	}
	if err := h.Benefits.DetachFromOffer(c.Request().Context(), offerID, benefitID); err != nil {
		if errors.Is(err, repository.ErrBenefitNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "benefit not attached"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "detach failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
