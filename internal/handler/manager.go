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
	"github.com/washly/station-backend/internal/middleware"
	"github.com/washly/station-backend/internal/repository"
)

// ManagerHandler covers the system manager workflows (their registrations
// and quota report) and the super admin overviews (managers, stations).
type ManagerHandler struct {
	Users       *repository.UserRepo
	Stations    *repository.StationRepo
	Quotas      *repository.QuotaRepo
	WashRecords *repository.WashRecordRepo
}

func NewManagerHandler(u *repository.UserRepo, st *repository.StationRepo,
	q *repository.QuotaRepo, w *repository.WashRecordRepo) *ManagerHandler {
	return &ManagerHandler{Users: u, Stations: st, Quotas: q, WashRecords: w}
}

// Registrations handles GET /v1/manager/registrations: the owners the
// calling manager has registered.
func (h *ManagerHandler) Registrations(c echo.Context) error {
	cl := middleware.MustClaims(c)
	owners, err := h.Users.ListRegisteredBy(c.Request().Context(), cl.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": toUserResps(owners)})
}

// RegistrationDetail handles GET /v1/manager/registrations/:owner_id. An
// owner registered by a different manager reads as not found.
func (h *ManagerHandler) RegistrationDetail(c echo.Context) error {
	cl := middleware.MustClaims(c)
	ownerID, err := strconv.ParseUint(c.Param("owner_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid owner id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	rec, err := h.WashRecords.GetByOwnerAndManager(ctx, ownerID, cl.ID)
	if errors.Is(err, repository.ErrWashRecordNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "registration not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	owner, err := h.Users.GetByID(ctx, ownerID)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "owner not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	stations, err := h.Stations.ListByOwner(ctx, ownerID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"owner":         toUserResp(owner),
		"registered_on": rec.WashDate.Format("2006-01-02"),
		"stations":      stations,
	})
}

// quotaReportFor builds the pro-rata report for one manager. The repository
// hands back all their registrations; the window filter lives in the pure
// calculator.
func (h *ManagerHandler) quotaReportFor(ctx context.Context, managerID uint64) (access.QuotaReport, repository.ManagerQuota, error) {
	quota, err := h.Quotas.GetByManager(ctx, managerID)
	if err != nil {
		return access.QuotaReport{}, repository.ManagerQuota{}, err
	}
	records, err := h.WashRecords.ListByManager(ctx, managerID)
	if err != nil {
		return access.QuotaReport{}, repository.ManagerQuota{}, err
	}
	dates := make([]time.Time, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.WashDate)
	}
	report := access.ComputeQuotaReport(access.Quota{
		Target:       quota.Target,
		PeriodStart:  quota.PeriodStart,
		PeriodEnd:    quota.PeriodEnd,
		Remuneration: quota.Remuneration,
	}, dates)
	return report, quota, nil
}

// QuotaReport handles GET /v1/manager/quota for the calling manager.
func (h *ManagerHandler) QuotaReport(c echo.Context) error {
	cl := middleware.MustClaims(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	report, quota, err := h.quotaReportFor(ctx, cl.ID)
	if errors.Is(err, repository.ErrQuotaNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no quota assigned"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"quota":        quota.Target,
		"period_start": quota.PeriodStart.Format("2006-01-02"),
		"period_end":   quota.PeriodEnd.Format("2006-01-02"),
		"remuneration": quota.Remuneration,
		"report":       report,
	})
}

// CreateStationForOwner handles POST /v1/manager/stations/:owner_id: a
// manager opens a station on behalf of an owner they registered.
func (h *ManagerHandler) CreateStationForOwner(c echo.Context) error {
	cl := middleware.MustClaims(c)
	ownerID, err := strconv.ParseUint(c.Param("owner_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid owner id"})
	}
	var req stationReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "name is required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	// Only for owners this manager registered.
	if _, err := h.WashRecords.GetByOwnerAndManager(ctx, ownerID, cl.ID); err != nil {
		if errors.Is(err, repository.ErrWashRecordNotFound) {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}

	s := &repository.Station{
		OwnerID: ownerID,
		Name:    req.Name,
		City:    req.City,
		Country: req.Country,
		Address: req.Address,
	}
	if err := h.Stations.Create(ctx, s); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "could not create station"})
	}
	return c.JSON(http.StatusCreated, s)
}

// ListManagers handles GET /v1/admin/managers: every system manager with
// their quota (when assigned) and total registration count.
func (h *ManagerHandler) ListManagers(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	managers, err := h.Users.ListByRole(ctx, string(access.RoleSystemManager))
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	quotas, err := h.Quotas.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	byManager := make(map[uint64]repository.ManagerQuota, len(quotas))
	for _, q := range quotas {
		byManager[q.ManagerID] = q
	}

	type managerRow struct {
		Manager       userResp                 `json:"manager"`
		Quota         *repository.ManagerQuota `json:"quota,omitempty"`
		Registrations int                      `json:"registrations"`
	}
	rows := make([]managerRow, 0, len(managers))
	for _, m := range managers {
		row := managerRow{Manager: toUserResp(m)}
		if q, ok := byManager[m.ID]; ok {
			row.Quota = &q
		}
		count, err := h.WashRecords.CountByManager(ctx, m.ID)
		if err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
		}
		row.Registrations = count
		rows = append(rows, row)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": rows})
}

// ListStations handles GET /v1/admin/stations: every station on the platform
// regardless of owner.
func (h *ManagerHandler) ListStations(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	stations, err := h.Stations.ListAll(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": stations})
}

// ManagerDetail handles GET /v1/admin/managers/:id with the full quota
// report and registration history.
func (h *ManagerHandler) ManagerDetail(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "manager not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if m.Role != string(access.RoleSystemManager) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "manager not found"})
	}

	resp := echo.Map{"manager": toUserResp(m)}

	records, err := h.WashRecords.ListByManager(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	resp["registrations"] = records

	report, quota, err := h.quotaReportFor(ctx, id)
	switch {
	case errors.Is(err, repository.ErrQuotaNotFound):
		// no quota assigned yet; detail still renders
	case err != nil:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	default:
		resp["quota"] = quota
		resp["report"] = report
	}
	return c.JSON(http.StatusOK, resp)
}

type quotaReq struct {
	Target       int     `json:"target"`
	PeriodStart  string  `json:"period_start"` // YYYY-MM-DD
	PeriodEnd    string  `json:"period_end"`
	Remuneration float64 `json:"remuneration"`
}

// AssignQuota handles POST /v1/admin/managers/:id/quota: assigns or replaces
// the manager's quota for a period.
func (h *ManagerHandler) AssignQuota(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req quotaReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.Target < 0 || req.Remuneration < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "target/remuneration must not be negative"})
	}
	start, err := time.Parse("2006-01-02", req.PeriodStart)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid period_start"})
	}
	end, err := time.Parse("2006-01-02", req.PeriodEnd)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid period_end"})
	}
	if end.Before(start) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "period_end before period_start"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	m, err := h.Users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrUserNotFound) {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "manager not found"})
	}
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	if m.Role != string(access.RoleSystemManager) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "user is not a system manager"})
	}

	if err := h.Quotas.Upsert(ctx, repository.ManagerQuota{
		ManagerID:    id,
		Target:       req.Target,
		PeriodStart:  start,
		PeriodEnd:    end,
		Remuneration: req.Remuneration,
	}); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "assign failed"})
	}
	quota, err := h.Quotas.GetByManager(ctx, id)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "db error"})
	}
	return c.JSON(http.StatusOK, quota)
}
