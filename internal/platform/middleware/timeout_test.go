package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestRequestTimeout_Expires(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/lab-reports", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestTimeout(20 * time.Millisecond)(func(c echo.Context) error {
		<-c.Request().Context().Done()
		return c.Request().Context().Err()
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusGatewayTimeout {
		t.Fatalf("expected 504, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if body["message"] == "" {
		t.Error("expected a message in the timeout body")
	}
}

func TestRequestTimeout_ContextHasDeadline(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestTimeout(30 * time.Second)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); !ok {
			t.Error("expected context to have a deadline")
		}
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_ZeroDisables(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestTimeout(0)(func(c echo.Context) error {
		if _, ok := c.Request().Context().Deadline(); ok {
			t.Error("expected no deadline")
		}
		return nil
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRequestTimeout_PropagatesHandlerError(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/patients/123", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := RequestTimeout(5 * time.Second)(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	})
	err := h(c)

	httpErr, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected echo.HTTPError, got %T", err)
	}
	if httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", httpErr.Code)
	}
}
