package prescribing

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/clinicdesk/clinic/internal/platform/auth"
	"github.com/clinicdesk/clinic/internal/platform/storage"
	"github.com/clinicdesk/clinic/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole(auth.ReadRoles...))
	read.GET("/prescriptions/:id", h.GetPrescription)
	read.GET("/patients/:id/prescriptions", h.ListPatientPrescriptions)

	write := api.Group("", auth.RequireRole(auth.PrescriptionWriter...))
	write.POST("/prescriptions", h.CreatePrescription)

	labWrite := api.Group("", auth.RequireRole(auth.LabReportWriters...))
	labWrite.POST("/prescriptions/:prescriptionId/lab-reports", h.AddLabReport)
}

func (h *Handler) CreatePrescription(c echo.Context) error {
	var req CreatePrescriptionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rx, err := h.svc.CreatePrescription(c.Request().Context(), &req)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, rx)
}

func (h *Handler) GetPrescription(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rx, err := h.svc.GetPrescription(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rx)
}

func (h *Handler) ListPatientPrescriptions(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewPage(items, pg, total))
}

func (h *Handler) AddLabReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("prescriptionId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid prescription id")
	}
	var in LabReportInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	report, err := h.svc.AddLabReport(c.Request().Context(), id, &in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, report)
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPrescription):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	case errors.Is(err, storage.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
