package conformance

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes the validator over HTTP.
type Handler struct {
	validator *Validator
}

// NewHandler creates a conformance handler.
func NewHandler(v *Validator) *Handler {
	return &Handler{validator: v}
}

// RegisterRoutes registers validation endpoints on the provided route group.
//
//	POST /api/v1/fhir/validate - Validate a FHIR message Bundle against FR-Core
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/fhir/validate", h.Validate)
}

// Validate handles POST /api/v1/fhir/validate. A conformant Bundle answers
// 200, anything else 422 with the same result body. With ?format=outcome the
// body is an OperationOutcome instead of the raw result.
func (h *Handler) Validate(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	result := h.validator.Validate(body)
	if c.QueryParam("format") == "outcome" {
		oo := result.ToOperationOutcome()
		if oo.HasErrors() {
			return c.JSON(http.StatusUnprocessableEntity, oo)
		}
		return c.JSON(http.StatusOK, oo)
	}
	if !result.Valid {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}
