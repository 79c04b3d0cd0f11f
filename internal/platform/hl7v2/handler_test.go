package hl7v2

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

// =========== Handler Tests ===========

func TestHandler_ParseMessage(t *testing.T) {
	h := NewHandler()
	e := echo.New()

	body := "MSH|^~\\&|SIH|CHU|DPI|CHU|20250618120000||ADT^A01|MSG00001|P|2.5\rPID|1||123456^^^CHU^PI||DUPONT^JEAN||19800515|M"

	req := httptest.NewRequest(http.MethodPost, "/api/v1/hl7v2/parse", strings.NewReader(body))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ParseMessage(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse JSON response: %v", err)
	}

	if result["type"] != "ADT^A01" {
		t.Errorf("expected type 'ADT^A01', got %v", result["type"])
	}
	if result["controlId"] != "MSG00001" {
		t.Errorf("expected controlId 'MSG00001', got %v", result["controlId"])
	}
	if result["timestamp"] != "2025-06-18T12:00:00+02:00" {
		t.Errorf("expected timestamp with +02:00 offset, got %v", result["timestamp"])
	}

	segments, ok := result["segments"].(map[string]interface{})
	if !ok {
		t.Fatal("expected segments map in response")
	}
	pid, ok := segments["PID"].([]interface{})
	if !ok || len(pid) != 1 {
		t.Fatalf("expected one PID instance, got %v", segments["PID"])
	}
	fields := pid[0].([]interface{})
	name, ok := fields[4].([]interface{})
	if !ok || name[0] != "DUPONT" {
		t.Errorf("expected PID-5 components starting with DUPONT, got %v", fields[4])
	}
}

func TestHandler_ParseMessage_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not hl7", "this is not a valid hl7 message"},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler()
			e := echo.New()

			req := httptest.NewRequest(http.MethodPost, "/api/v1/hl7v2/parse", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "text/plain")
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			if err := h.ParseMessage(c); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", rec.Code)
			}
		})
	}
}

func TestHandler_RegisterRoutes(t *testing.T) {
	h := NewHandler()
	e := echo.New()

	g := e.Group("/api/v1")
	h.RegisterRoutes(g)

	found := false
	for _, r := range e.Routes() {
		if r.Method == http.MethodPost && r.Path == "/api/v1/hl7v2/parse" {
			found = true
		}
	}
	if !found {
		t.Error("missing expected route: POST /api/v1/hl7v2/parse")
	}
}
