package notes

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Handler exposes note segmentation over HTTP.
type Handler struct {
	segmenter *Segmenter
}

// NewHandler creates a new notes handler.
func NewHandler(segmenter *Segmenter) *Handler {
	return &Handler{segmenter: segmenter}
}

// RegisterRoutes registers note endpoints on the provided route group.
//
//	POST /api/v1/notes/segment - Split a note file into dated bodies
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/notes/segment", h.SegmentNotes)
}

// SegmentNotes handles POST /api/v1/notes/segment. The request body is the raw
// note file.
func (h *Handler) SegmentNotes(c echo.Context) error {
	notes, err := h.segmenter.Segment(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{
			"error": err.Error(),
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"count": len(notes),
		"notes": notes,
	})
}
