package identity

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
	read.GET("/patients", h.ListPatients)
	read.GET("/patients/:id", h.GetPatient)

	write := api.Group("", auth.RequireRole(auth.PatientWriters...))
	write.POST("/patients", h.CreatePatient)
}

func (h *Handler) CreatePatient(c echo.Context) error {
	var p Patient
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreatePatient(c.Request().Context(), &p); err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPatient(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.SearchPatients(c.Request().Context(), c.QueryParam("search"), pg.Limit, pg.Offset())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewPage(patients, pg, total))
}

func httpError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidPatient):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, storage.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, storage.ErrUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "store unavailable")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
