package conversion

import (
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/frbridge/internal/platform/fhir"
	"github.com/ehr/frbridge/internal/platform/hl7v2"
)

// ValidHeader reports the conformance verdict of a converted Bundle.
const ValidHeader = "X-FRCore-Valid"

// BundleValidator reports whether a Bundle conforms to FR-Core.
type BundleValidator func(*fhir.Bundle) bool

// Handler exposes the converter over HTTP.
type Handler struct {
	conv     *Converter
	validate BundleValidator
}

// NewHandler creates a conversion handler. validate may be nil, in which case
// converted Bundles are returned without a verdict.
func NewHandler(conv *Converter, validate BundleValidator) *Handler {
	return &Handler{conv: conv, validate: validate}
}

// RegisterRoutes registers conversion endpoints on the provided route group.
//
//	POST /api/v1/fhir/convert - Convert a raw HL7v2 message to a FHIR message Bundle
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/fhir/convert", h.Convert)
}

// Convert handles POST /api/v1/fhir/convert. A message that converts with a
// contained fault still answers 200: the Bundle carries the OperationOutcome.
func (h *Handler) Convert(c echo.Context) error {
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

	msg, err := hl7v2.ParseMessage(body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to parse HL7v2 message: " + err.Error(),
		})
	}

	bundle := h.conv.Convert(msg)
	if h.validate != nil {
		c.Response().Header().Set(ValidHeader, strconv.FormatBool(h.validate(bundle)))
	}
	return c.JSON(http.StatusOK, bundle)
}
