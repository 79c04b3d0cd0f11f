package frcore

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_GetCatalog(t *testing.T) {
	h := NewHandler(mustLoad(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/frcore/catalog", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.GetCatalog(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var summary Summary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(summary.Rules) != 9 {
		t.Errorf("expected 9 rules, got %d", len(summary.Rules))
	}
	if len(summary.ValueSets) != 7 {
		t.Errorf("expected 7 value sets, got %d", len(summary.ValueSets))
	}
	if len(summary.SharedSlices) != 1 {
		t.Errorf("expected the shared establishment OID to be flagged, got %+v", summary.SharedSlices)
	}
	if summary.Payer.Name != "Assurance Maladie Obligatoire" {
		t.Errorf("unexpected payer %q", summary.Payer.Name)
	}
}

func TestHandler_GetRule(t *testing.T) {
	h := NewHandler(mustLoad(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("resourceType")
	c.SetParamValues("Coverage")

	if err := h.GetRule(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var rule ProfileRule
	if err := json.Unmarshal(rec.Body.Bytes(), &rule); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if rule.Profile != ProfileCoverage {
		t.Errorf("expected coverage profile, got %q", rule.Profile)
	}
}

func TestHandler_GetRule_NotFound(t *testing.T) {
	h := NewHandler(mustLoad(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("resourceType")
	c.SetParamValues("Medication")

	err := h.GetRule(c)
	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) || httpErr.Code != http.StatusNotFound {
		t.Errorf("expected 404 HTTPError, got %v", err)
	}
}
