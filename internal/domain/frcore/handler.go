package frcore

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler serves the loaded catalog.
type Handler struct {
	catalog *Catalog
}

func NewHandler(catalog *Catalog) *Handler {
	return &Handler{catalog: catalog}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/frcore/catalog", h.GetCatalog)
	g.GET("/frcore/catalog/:resourceType", h.GetRule)
}

// GetCatalog handles GET /api/v1/frcore/catalog.
func (h *Handler) GetCatalog(c echo.Context) error {
	return c.JSON(http.StatusOK, h.catalog.Summary())
}

// GetRule handles GET /api/v1/frcore/catalog/:resourceType.
func (h *Handler) GetRule(c echo.Context) error {
	rule, ok := h.catalog.Rule(c.Param("resourceType"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "no FR-Core rule for "+c.Param("resourceType"))
	}
	return c.JSON(http.StatusOK, rule)
}
