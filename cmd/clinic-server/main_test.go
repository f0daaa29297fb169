package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/clinicdesk/clinic/internal/config"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Env:           "development",
		LogLevel:      "debug",
		StoreBackend:  "memory",
		CardAllocator: "store",
		CORSOrigins:   []string{"http://localhost:3000"},
	}
}

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	cfg := memoryConfig()
	st, err := openStores(context.Background(), cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open stores: %v", err)
	}
	t.Cleanup(st.Close)
	return newEcho(cfg, zerolog.Nop(), st)
}

func do(t *testing.T, e *echo.Echo, method, target, body string, out interface{}) int {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if out != nil && rec.Code < 300 {
		if err := json.Unmarshal(rec.Body.Bytes(), out); err != nil {
			t.Fatalf("decode %s %s: %v", method, target, err)
		}
	}
	return rec.Code
}

func TestHealthEndpoints(t *testing.T) {
	e := newTestServer(t)

	var health map[string]string
	if code := do(t, e, http.MethodGet, "/health", "", &health); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if health["status"] != "ok" {
		t.Errorf("unexpected body %v", health)
	}

	var dbHealth map[string]interface{}
	if code := do(t, e, http.MethodGet, "/health/db", "", &dbHealth); code != http.StatusOK {
		t.Fatalf("expected 200, got %d", code)
	}
	if dbHealth["backend"] != "memory" || dbHealth["status"] != "healthy" {
		t.Errorf("unexpected body %v", dbHealth)
	}
}

func TestOpenStores_UnknownBackend(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreBackend = "sqlite"
	if _, err := openStores(context.Background(), cfg, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for an unknown backend")
	}
}

func TestLabReportFlow(t *testing.T) {
	e := newTestServer(t)

	var patient struct {
		ID     uuid.UUID `json:"id"`
		CardID int64     `json:"cardId"`
	}
	code := do(t, e, http.MethodPost, "/api/v1/patients", `{"name":"Maria Gomez","phone":"555-0142"}`, &patient)
	if code != http.StatusCreated {
		t.Fatalf("create patient: %d", code)
	}
	if patient.CardID != 1 {
		t.Errorf("expected first card id 1, got %d", patient.CardID)
	}

	var rx struct {
		ID         uuid.UUID `json:"id"`
		LabReports []struct {
			ID uuid.UUID `json:"id"`
		} `json:"labReports"`
	}
	body := fmt.Sprintf(`{"doctorId":%q,"patientId":%q,"labReports":[
		{"name":"Complete blood count","reportDate":"2024-01-05"},
		{"name":"Lipid panel","reportDate":"2024-02-10"}]}`, uuid.New(), patient.ID)
	if code := do(t, e, http.MethodPost, "/api/v1/prescriptions", body, &rx); code != http.StatusCreated {
		t.Fatalf("create prescription: %d", code)
	}
	if len(rx.LabReports) != 2 {
		t.Fatalf("expected 2 lab reports, got %d", len(rx.LabReports))
	}

	statusPath := fmt.Sprintf("/api/v1/prescriptions/%s/lab-reports/%s/status", rx.ID, rx.LabReports[0].ID)
	if code := do(t, e, http.MethodPatch, statusPath, `{"status":"Completed"}`, nil); code != http.StatusOK {
		t.Fatalf("update status: %d", code)
	}

	var page struct {
		Total int `json:"total"`
		Items []struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"items"`
	}
	if code := do(t, e, http.MethodGet, "/api/v1/lab-reports?search=555-0142&sort=reportDate&order=asc", "", &page); code != http.StatusOK {
		t.Fatalf("query: %d", code)
	}
	if page.Total != 2 || len(page.Items) != 2 {
		t.Fatalf("expected 2 reports, got %+v", page)
	}
	if page.Items[0].Status != "Completed" || page.Items[1].Status != "Pending" {
		t.Errorf("unexpected statuses %+v", page.Items)
	}
}

func TestRequestIDAndSecurityHeaders(t *testing.T) {
	e := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get(echo.HeaderXRequestID); got != "req-42" {
		t.Errorf("expected request id echoed, got %q", got)
	}
	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
}
