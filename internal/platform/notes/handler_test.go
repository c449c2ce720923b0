package notes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func TestHandler_SegmentNotes(t *testing.T) {
	h := NewHandler(newStrict(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/segment", strings.NewReader("2023-01-05\nvisit notes\n"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SegmentNotes(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"2023-01-05":"visit notes"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}

func TestHandler_SegmentNotes_BadDate(t *testing.T) {
	h := NewHandler(newStrict(t))
	e := echo.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/notes/segment", strings.NewReader("2023-02-31\nbody"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.SegmentNotes(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}
