package notes

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func newStrict(t *testing.T) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(MarkerStrict, "")
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	return s
}

func newLegacy(t *testing.T) *Segmenter {
	t.Helper()
	s, err := NewSegmenter(MarkerLegacy, "")
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	return s
}

func day(y int, m time.Month, d int) Date {
	return Date{Year: y, Month: m, Day: d}
}

func TestSegment_Basic(t *testing.T) {
	text := "2023-01-05\nPatient seen for follow-up.\nBP stable.\n2023-01-06\nLab review.\n"

	notes, err := newStrict(t).SegmentString(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(notes))
	}
	if got := notes[day(2023, 1, 5)]; got != "Patient seen for follow-up.\nBP stable." {
		t.Errorf("unexpected body for 2023-01-05: %q", got)
	}
	if got := notes[day(2023, 1, 6)]; got != "Lab review." {
		t.Errorf("unexpected body for 2023-01-06: %q", got)
	}
}

func TestSegment_LastWriteWins(t *testing.T) {
	for name, s := range map[string]*Segmenter{"strict": newStrict(t), "legacy": newLegacy(t)} {
		notes, err := s.SegmentString("2023-01-05\nA\n2023-01-05\nB")
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if len(notes) != 1 {
			t.Fatalf("%s: expected 1 note, got %d", name, len(notes))
		}
		if got := notes[day(2023, 1, 5)]; got != "B" {
			t.Errorf("%s: expected 'B', got %q", name, got)
		}
	}
}

func TestSegment_PreservesBlankLines(t *testing.T) {
	notes, err := newStrict(t).SegmentString("2023-01-05\nfirst\n\n\nsecond\n\n2023-01-06\nx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := notes[day(2023, 1, 5)]; got != "first\n\n\nsecond\n" {
		t.Errorf("unexpected body: %q", got)
	}
}

func TestSegment_MarkerWithNoBody(t *testing.T) {
	notes, err := newStrict(t).SegmentString("2023-01-05\n2023-01-06\nbody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body, ok := notes[day(2023, 1, 5)]
	if !ok {
		t.Fatal("expected an entry for 2023-01-05")
	}
	if body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

func TestSegment_DiscardsPreamble(t *testing.T) {
	notes, err := newStrict(t).SegmentString("Header line\nexported by system\n2023-01-05\nnote")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(notes) != 1 {
		t.Fatalf("expected 1 note, got %d", len(notes))
	}
	if strings.Contains(notes[day(2023, 1, 5)], "Header") {
		t.Error("preamble must not be attached to the first note")
	}
}

func TestSegment_NoMarkers(t *testing.T) {
	for _, text := range []string{"", "\n\n", "just some text\nwith no dates"} {
		for name, s := range map[string]*Segmenter{"strict": newStrict(t), "legacy": newLegacy(t)} {
			notes, err := s.SegmentString(text)
			if err != nil {
				t.Errorf("%s %q: unexpected error: %v", name, text, err)
			}
			if len(notes) != 0 {
				t.Errorf("%s %q: expected empty map, got %v", name, text, notes)
			}
		}
	}
}

func TestSegment_TrimsMarkerWhitespaceAndCRLF(t *testing.T) {
	notes, err := newStrict(t).SegmentString("  2023-01-05  \r\nline one\r\nline two\r\n")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := notes[day(2023, 1, 5)]; got != "line one\nline two" {
		t.Errorf("unexpected body: %q", got)
	}
}

func TestSegment_StrictIgnoresDashedBodyText(t *testing.T) {
	text := "2023-01-05\nfollow-up in two-weeks\nBP 120-80-72\n"
	notes, err := newStrict(t).SegmentString(text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := notes[day(2023, 1, 5)]; got != "follow-up in two-weeks\nBP 120-80-72" {
		t.Errorf("unexpected body: %q", got)
	}
}

func TestSegment_LegacyRejectsDashedBodyText(t *testing.T) {
	_, err := newLegacy(t).SegmentString("2023-01-05\nBP 120-80-72\n")
	if !errors.Is(err, ErrDateFormat) {
		t.Fatalf("expected ErrDateFormat, got %v", err)
	}
}

func TestSegment_LegacyAcceptsSingleDigits(t *testing.T) {
	notes, err := newLegacy(t).SegmentString("2023-1-5\nbody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes[day(2023, 1, 5)] != "body" {
		t.Errorf("unexpected notes: %v", notes)
	}
}

func TestSegment_InvalidCalendarDate(t *testing.T) {
	for _, marker := range []string{"2023-02-30", "2023-13-01"} {
		for name, s := range map[string]*Segmenter{"strict": newStrict(t), "legacy": newLegacy(t)} {
			_, err := s.SegmentString(marker + "\nbody")
			if !errors.Is(err, ErrDateFormat) {
				t.Errorf("%s %s: expected ErrDateFormat, got %v", name, marker, err)
			}
		}
	}
}

func TestSegment_ByteOrderMark(t *testing.T) {
	notes, err := newStrict(t).SegmentString("\ufeff2023-01-05\nbody")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if notes[day(2023, 1, 5)] != "body" {
		t.Errorf("unexpected notes: %v", notes)
	}
}

func TestSegment_Windows1252(t *testing.T) {
	s, err := NewSegmenter(MarkerStrict, "windows-1252")
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	notes, err := s.SegmentString("2023-01-05\nCaf\xe9 visit")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := notes[day(2023, 1, 5)]; got != "Café visit" {
		t.Errorf("expected decoded body, got %q", got)
	}
}

func TestSegmenter_Segment_LineTooLong(t *testing.T) {
	text := "2023-01-05\nok\n" + strings.Repeat("x", MaxLineSize+1) + "\n"
	_, err := newStrict(t).Segment(strings.NewReader(text))
	if !errors.Is(err, ErrLineTooLong) {
		t.Fatalf("expected ErrLineTooLong, got %v", err)
	}
	if !strings.Contains(err.Error(), "line 3") {
		t.Errorf("expected line number in error, got %v", err)
	}
}

func TestSegmenter_Segment_LineAtLimit(t *testing.T) {
	long := strings.Repeat("x", MaxLineSize-1)
	notes, err := newStrict(t).Segment(strings.NewReader("2023-01-05\n" + long + "\n"))
	if err != nil {
		t.Fatalf("Segment: %v", err)
	}
	if got := notes[day(2023, 1, 5)]; len(got) != len(long) {
		t.Errorf("expected body of %d bytes, got %d", len(long), len(got))
	}
}

func TestNewSegmenter_Errors(t *testing.T) {
	if _, err := NewSegmenter("fuzzy", ""); err == nil {
		t.Error("expected error for unknown marker mode")
	}
	if _, err := NewSegmenter(MarkerStrict, "no-such-charset"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestParseMarkerMode(t *testing.T) {
	tests := map[string]MarkerMode{"": MarkerStrict, "strict": MarkerStrict, "LEGACY": MarkerLegacy}
	for in, want := range tests {
		got, err := ParseMarkerMode(in)
		if err != nil {
			t.Errorf("ParseMarkerMode(%q) error: %v", in, err)
		}
		if got != want {
			t.Errorf("ParseMarkerMode(%q) = %q, want %q", in, got, want)
		}
	}
	if _, err := ParseMarkerMode("regex"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
