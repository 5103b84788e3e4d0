package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/washly/station-backend/internal/access"
	"github.com/washly/station-backend/internal/middleware"
	"github.com/washly/station-backend/internal/repository"
)

// SubscriptionHandler covers the owner-facing subscription lifecycle. All
// routes are role-gated to station_owner by the router.
type SubscriptionHandler struct {
	Subscriptions *repository.SubscriptionRepo
	Offers        *repository.OfferRepo
}

func NewSubscriptionHandler(s *repository.SubscriptionRepo, o *repository.OfferRepo) *SubscriptionHandler {
	return &SubscriptionHandler{Subscriptions: s, Offers: o}
}

type subscriptionResp struct {
	ID        uint64  `json:"id"`
	OfferID   uint64  `json:"offer_id"`
	StartDate string  `json:"start_date"`
	EndDate   *string `json:"end_date"`
	Status    string  `json:"status"`
}

func toSubscriptionResp(s repository.Subscription, status access.SubscriptionStatus) subscriptionResp {
	resp := subscriptionResp{
		ID:        s.ID,
		OfferID:   s.OfferID,
		StartDate: s.StartDate.Format("2006-01-02"),
		Status:    string(status),
	}
	if s.EndDate.Valid {
		d := s.EndDate.Time.Format("2006-01-02")
		resp.EndDate = &d
	}
	return resp
}

// classify reports the effective status of a row against the clock. A row
// stored active but past its end date reads as expired.
func classify(s repository.Subscription) access.SubscriptionStatus {
	var end *time.Time
	if s.EndDate.Valid {
		end = &s.EndDate.Time
	}
	return access.ClassifyStatus(access.SubscriptionStatus(s.Status), end, time.Now().UTC())
}

// Status handles GET /v1/subscriptions/status.
func (h *SubscriptionHandler) Status(c echo.Context) error {
	cl := middleware.MustClaims(c)
	s, err := h.Subscriptions.LatestForUser(c.Request().Context(), cl.ID)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		return c.JSON(http.StatusOK, echo.Map{"status": access.SubscriptionNone})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toSubscriptionResp(s, classify(s)))
}

// Subscribe handles POST /v1/subscriptions/subscribe: starts a 30-day
// subscription to an offer unless the caller already holds a live one.
func (h *SubscriptionHandler) Subscribe(c echo.Context) error {
	cl := middleware.MustClaims(c)
	var req struct {
		OfferID uint64 `json:"offer_id"`
	}
	if err := c.Bind(&req); err != nil || req.OfferID == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "offer_id required"})
	}

	ctx := c.Request().Context()
	if _, err := h.Offers.GetByID(ctx, req.OfferID); err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "offer not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	s, err := h.Subscriptions.Subscribe(ctx, cl.ID, req.OfferID)
	if errors.Is(err, repository.ErrActiveSubscriptionExists) {
		return c.JSON(http.StatusConflict, echo.Map{"error": "active subscription already exists"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "subscribe failed"})
	}
	return c.JSON(http.StatusCreated, toSubscriptionResp(s, classify(s)))
}

// Renew handles POST /v1/subscriptions/renew: extends the caller's latest
// subscription by 30 days from its end date (or today when already lapsed).
func (h *SubscriptionHandler) Renew(c echo.Context) error {
	cl := middleware.MustClaims(c)
	s, err := h.Subscriptions.Renew(c.Request().Context(), cl.ID)
	if errors.Is(err, repository.ErrSubscriptionNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no subscription to renew"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "renew failed"})
	}
	return c.JSON(http.StatusOK, toSubscriptionResp(s, classify(s)))
}
