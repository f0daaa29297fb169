package labreport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinic/internal/domain/prescribing"
	"github.com/clinicdesk/clinic/internal/platform/auth"
	"github.com/clinicdesk/clinic/internal/platform/storage"
)

type Handler struct {
	engine  *Engine
	mutator *Mutator
}

func NewHandler(engine *Engine, mutator *Mutator) *Handler {
	return &Handler{engine: engine, mutator: mutator}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/lab-reports", h.Query)

	write := api.Group("", auth.RequireRole(auth.LabReportWriters...))
	write.PATCH("/prescriptions/:prescriptionId/lab-reports/:labReportId/status", h.UpdateStatus)
	write.PUT("/prescriptions/:prescriptionId/lab-reports/:labReportId/report", h.AttachReport)
}

func (h *Handler) Query(c echo.Context) error {
	page, err := h.engine.Query(c.Request().Context(), RequestFromContext(c))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, page)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) UpdateStatus(c echo.Context) error {
	rxID, reportID, err := parseIDs(c)
	if err != nil {
		return err
	}
	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	view, err := h.mutator.UpdateStatus(c.Request().Context(), rxID, reportID, req.Status)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

type attachRequest struct {
	ReportImageURL string                 `json:"reportImageUrl"`
	ReportDate     *prescribing.Timestamp `json:"reportDate"`
}

func (h *Handler) AttachReport(c echo.Context) error {
	rxID, reportID, err := parseIDs(c)
	if err != nil {
		return err
	}
	var req attachRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	var reportDate *time.Time
	if req.ReportDate != nil && !req.ReportDate.IsZero() {
		reportDate = &req.ReportDate.Time
	}
	view, err := h.mutator.AttachReportImage(c.Request().Context(), rxID, reportID, req.ReportImageURL, reportDate)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, view)
}

func parseIDs(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	rxID, err := uuid.Parse(c.Param("prescriptionId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}
	reportID, err := uuid.Parse(c.Param("labReportId"))
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, "invalid lab report id")
	}
	return rxID, reportID, nil
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrInvalidTransition):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, storage.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, storage.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
