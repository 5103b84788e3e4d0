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

// StockPermission is the permission key the stock feature is sold under.
const StockPermission = "gestion_stock"

// StockHandler covers per-station inventory. Every route sits behind the
// benefit gate, which already resolved the station and verified the caller's
// entitlement; handlers pick the station up from context.
type StockHandler struct {
	Stocks *repository.StockRepo
}

func NewStockHandler(s *repository.StockRepo) *StockHandler {
	return &StockHandler{Stocks: s}
}

func gatedStation(c echo.Context) (*repository.Station, error) {
	s, ok := middleware.StationFromContext(c)
	if !ok {
		return nil, errors.New("station missing from context")
	}
	return s, nil
}

type stockReq struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Unit      string `json:"unit"`
	Threshold int    `json:"threshold"`
}

type stockResp struct {
	repository.Stock
	Low bool `json:"low"`
}

func toStockResp(s repository.Stock) stockResp {
	return stockResp{Stock: s, Low: s.Threshold > 0 && s.Quantity <= s.Threshold}
}

// List handles GET /v1/stations/:id/stocks.
func (h *StockHandler) List(c echo.Context) error {
	station, err := gatedStation(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	items, err := h.Stocks.ListByStation(c.Request().Context(), station.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	out := make([]stockResp, 0, len(items))
	for _, s := range items {
		out = append(out, toStockResp(s))
	}
	return c.JSON(http.StatusOK, echo.Map{"items": out})
}

// Create handles POST /v1/stations/:id/stocks.
func (h *StockHandler) Create(c echo.Context) error {
	station, err := gatedStation(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	var req stockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Quantity < 0 || req.Threshold < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "quantity/threshold must not be negative"})
	}

	s := &repository.Stock{
		StationID: station.ID,
		Name:      req.Name,
		Quantity:  req.Quantity,
		Unit:      req.Unit,
		Threshold: req.Threshold,
	}
	if err := h.Stocks.Create(c.Request().Context(), s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create stock"})
	}
	return c.JSON(http.StatusCreated, toStockResp(*s))
}

// Show handles GET /v1/stations/:id/stocks/:stock_id with its movement
// history.
func (h *StockHandler) Show(c echo.Context) error {
	station, err := gatedStation(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	stockID, err := strconv.ParseUint(c.Param("stock_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	s, err := h.Stocks.GetByIDAndStation(c.Request().Context(), stockID, station.ID)
	if errors.Is(err, repository.ErrStockNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	history, err := h.Stocks.History(c.Request().Context(), stockID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"stock": toStockResp(s), "history": history})
}

// Update handles PUT /v1/stations/:id/stocks/:stock_id. Quantity is not
// updatable here; it only moves through Adjust.
func (h *StockHandler) Update(c echo.Context) error {
	station, err := gatedStation(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	stockID, err := strconv.ParseUint(c.Param("stock_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	var req stockReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}
	if req.Threshold < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "threshold must not be negative"})
	}
	err = h.Stocks.Update(c.Request().Context(), repository.Stock{
		ID: stockID, StationID: station.ID,
		Name: req.Name, Unit: req.Unit, Threshold: req.Threshold,
	})
	if errors.Is(err, repository.ErrStockNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	updated, err := h.Stocks.GetByIDAndStation(c.Request().Context(), stockID, station.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, toStockResp(updated))
}

type adjustReq struct {
	Operation string `json:"operation"` // addition | substraction
	Quantity  int    `json:"quantity"`
	Note      string `json:"note"`
}

// Adjust handles POST /v1/stations/:id/stocks/:stock_id/adjust: applies a
// quantity movement and appends the history row.
func (h *StockHandler) Adjust(c echo.Context) error {
	station, err := gatedStation(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	stockID, err := strconv.ParseUint(c.Param("stock_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	var req adjustReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	s, err := h.Stocks.Adjust(c.Request().Context(), stockID, station.ID,
		strings.TrimSpace(req.Operation), req.Quantity, req.Note)
	switch {
	case errors.Is(err, repository.ErrStockNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
	case errors.Is(err, repository.ErrInvalidStockOp):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "operation must be addition or substraction with positive quantity"})
	case errors.Is(err, repository.ErrInsufficientStock):
		return c.JSON(http.StatusConflict, echo.Map{"error": "insufficient stock quantity"})
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "adjust failed"})
	}
	return c.JSON(http.StatusOK, toStockResp(s))
}

// Delete handles DELETE /v1/stations/:id/stocks/:stock_id.
func (h *StockHandler) Delete(c echo.Context) error {
	station, err := gatedStation(c)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
	stockID, err := strconv.ParseUint(c.Param("stock_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid stock id"})
	}
	if err := h.Stocks.Delete(c.Request().Context(), stockID, station.ID); err != nil {
		if errors.Is(err, repository.ErrStockNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "stock not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
