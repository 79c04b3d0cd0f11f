package conversion

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/ehr/frbridge/internal/platform/fhir"
)

func TestHandler_Convert(t *testing.T) {
	var validated *fhir.Bundle
	h := NewHandler(newTestConverter(t), func(b *fhir.Bundle) bool {
		validated = b
		return true
	})
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fhir/convert", strings.NewReader(sampleADTA01()))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Convert(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(ValidHeader) != "true" {
		t.Errorf("expected %s header, got %q", ValidHeader, rec.Header().Get(ValidHeader))
	}

	var bundle fhir.Bundle
	if err := json.Unmarshal(rec.Body.Bytes(), &bundle); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if bundle.Type != "message" || len(bundle.Entry) != 10 {
		t.Errorf("unexpected bundle type %q with %d entries", bundle.Type, len(bundle.Entry))
	}
	if validated == nil || validated.ID != bundle.ID {
		t.Error("expected the returned bundle to be validated")
	}
	if _, ok := bundle.Entry[1].Resource.(*fhir.Patient); !ok {
		t.Errorf("expected Patient at entry 1, got %T", bundle.Entry[1].Resource)
	}
}

func TestHandler_Convert_NoValidator(t *testing.T) {
	h := NewHandler(newTestConverter(t), nil)
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fhir/convert", strings.NewReader(sampleADTA01()))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.Convert(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := rec.Header()[ValidHeader]; ok {
		t.Errorf("expected no %s header without a validator", ValidHeader)
	}
}

func TestHandler_Convert_BadRequest(t *testing.T) {
	h := NewHandler(newTestConverter(t), nil)
	e := echo.New()

	tests := []struct {
		name string
		body string
	}{
		{"empty", ""},
		{"not hl7", "PID|1||123"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/fhir/convert", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := h.Convert(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h := NewHandler(newTestConverter(t), nil)
	e := echo.New()
	g := e.Group("/api/v1")
	h.RegisterRoutes(g)

	found := false
	for _, r := range e.Routes() {
		if r.Method == http.MethodPost && r.Path == "/api/v1/fhir/convert" {
			found = true
		}
	}
	if !found {
		t.Error("expected POST /api/v1/fhir/convert to be registered")
	}
}
