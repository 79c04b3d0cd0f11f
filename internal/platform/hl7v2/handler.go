package hl7v2

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the tokenizer over HTTP.
type Handler struct{}

// NewHandler creates a new HL7v2 handler.
func NewHandler() *Handler {
	return &Handler{}
}

// RegisterRoutes registers HL7v2 endpoints on the provided route group.
//
//	POST /api/v1/hl7v2/parse - Tokenize an HL7v2 message to its segment map
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/hl7v2/parse", h.ParseMessage)
}

// ParseMessage handles POST /api/v1/hl7v2/parse.
// It reads raw HL7v2 from the request body and returns the header fields plus
// the segment map the converter consumes.
func (h *Handler) ParseMessage(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	if len(body) == 0 {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "request body is empty",
		})
	}

	msg, err := Parse(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to parse HL7v2 message: " + err.Error(),
		})
	}

	result := map[string]interface{}{
		"type":         msg.Type,
		"controlId":    msg.ControlID,
		"version":      msg.Version,
		"sendingApp":   msg.SendingApp,
		"sendingFac":   msg.SendingFac,
		"receivingApp": msg.ReceivingApp,
		"receivingFac": msg.ReceivingFac,
		"segments":     FromMessage(msg).View(),
	}
	if !msg.Timestamp.IsZero() {
		result["timestamp"] = FormatWallClock(msg.Timestamp)
	}

	return c.JSON(http.StatusOK, result)
}
