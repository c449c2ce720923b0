package reconcile

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
)

// maxPreviewDocument caps how much of an uploaded document is read.
const maxPreviewDocument = 32 << 20

// Handler exposes a dry reconciliation of one uploaded file pair.
type Handler struct {
	driver *Driver
}

func NewHandler(driver *Driver) *Handler {
	return &Handler{driver: driver}
}

// RegisterRoutes registers reconcile endpoints on the provided route group.
//
//	POST /api/v1/reconcile/preview - Reconcile an uploaded document and note file
func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.POST("/reconcile/preview", h.Preview)
}

// Preview handles POST /api/v1/reconcile/preview. The multipart form carries
// a "document" file, whose filename identifies the patient, and an optional
// "notes" file. Nothing is stored.
func (h *Handler) Preview(c echo.Context) error {
	docHeader, err := c.FormFile("document")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "document file is required")
	}
	docFile, err := docHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot open document file")
	}
	defer docFile.Close()

	document, err := io.ReadAll(io.LimitReader(docFile, maxPreviewDocument))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "cannot read document file")
	}

	var noteFile io.Reader
	notesHeader, err := c.FormFile("notes")
	switch {
	case errors.Is(err, http.ErrMissingFile):
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notes file")
	default:
		f, err := notesHeader.Open()
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "cannot open notes file")
		}
		defer f.Close()
		noteFile = f
	}

	out := h.driver.Reconcile(c.Request().Context(), docHeader.Filename, document, noteFile)
	if !out.OK() {
		return c.JSON(failureStatus(out.Failure.Kind), map[string]string{
			"file":  out.Failure.File,
			"kind":  string(out.Failure.Kind),
			"error": out.Failure.Message(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func failureStatus(kind Kind) int {
	switch kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindAmbiguousMatch:
		return http.StatusConflict
	case KindFormat, KindMalformedDocument:
		return http.StatusBadRequest
	case KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}
