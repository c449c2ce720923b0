package ccda

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes encounter extraction over HTTP so documents can be checked
// before a batch import.
type Handler struct {
	extractor *Extractor
}

// NewHandler creates a new C-CDA handler.
func NewHandler(extractor *Extractor) *Handler {
	return &Handler{extractor: extractor}
}

// RegisterRoutes registers C-CDA endpoints on the provided route group.
//
//	POST /api/v1/ccda/encounters - Extract encounters from a C-CDA document
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/ccda/encounters", h.ExtractEncounters)
}

// ExtractEncounters handles POST /api/v1/ccda/encounters.
// It accepts an XML body and returns the encounters as JSON.
func (h *Handler) ExtractEncounters(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "failed to read request body",
		})
	}

	encounters, err := h.extractor.Extract(body)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, ErrMalformedDocument) {
			status = http.StatusBadRequest
		}
		return c.JSON(status, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count":      len(encounters),
		"encounters": encounters,
	})
}
