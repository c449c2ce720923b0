package notes

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// ErrDateFormat is returned when a date marker line is not a valid calendar
// date.
var ErrDateFormat = errors.New("notes: invalid date marker")

// ErrLineTooLong is returned when a note line exceeds MaxLineSize bytes.
var ErrLineTooLong = errors.New("notes: line too long")

// MarkerMode selects how date marker lines are recognised.
type MarkerMode string

const (
	// MarkerStrict recognises only lines that are exactly NNNN-NN-NN after
	// trimming, so body text containing dashes is never taken for a date.
	MarkerStrict MarkerMode = "strict"
	// MarkerLegacy recognises any line made of three non-empty dash-separated
	// parts. Such a line that is not a valid YYYY-MM-DD date is an error.
	MarkerLegacy MarkerMode = "legacy"
)

// ParseMarkerMode validates a configured marker mode name. An empty name
// selects MarkerStrict.
func ParseMarkerMode(s string) (MarkerMode, error) {
	switch MarkerMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", MarkerStrict:
		return MarkerStrict, nil
	case MarkerLegacy:
		return MarkerLegacy, nil
	default:
		return "", fmt.Errorf("notes: unknown marker mode %q", s)
	}
}

// MaxLineSize bounds a single note line, in bytes after decoding.
const MaxLineSize = 1 << 20

var strictMarker = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Notes maps a calendar day to the note body written under it.
type Notes map[Date]string

// Segmenter splits a free-text note file into date-keyed note bodies.
type Segmenter struct {
	mode MarkerMode
	// nil for UTF-8 input
	decoder encoding.Encoding
}

// NewSegmenter creates a segmenter. charsetLabel names the file encoding using
// a WHATWG label such as "utf-8" or "windows-1252"; empty means UTF-8.
func NewSegmenter(mode MarkerMode, charsetLabel string) (*Segmenter, error) {
	if mode == "" {
		mode = MarkerStrict
	}
	if mode != MarkerStrict && mode != MarkerLegacy {
		return nil, fmt.Errorf("notes: unknown marker mode %q", mode)
	}

	s := &Segmenter{mode: mode}
	if charsetLabel == "" {
		return s, nil
	}

	enc, err := htmlindex.Get(charsetLabel)
	if err != nil {
		return nil, fmt.Errorf("notes: unsupported encoding %q: %w", charsetLabel, err)
	}
	if name, _ := htmlindex.Name(enc); name != "utf-8" {
		s.decoder = enc
	}
	return s, nil
}

// Segment reads r line by line. Lines following a date marker, up to the next
// marker or the end of input, become that date's body joined with newlines.
// Text before the first marker is discarded. A date that recurs keeps only
// its last body. Input without markers yields an empty map.
func (s *Segmenter) Segment(r io.Reader) (Notes, error) {
	if s.decoder != nil {
		r = transform.NewReader(r, s.decoder.NewDecoder())
	}

	notes := Notes{}
	var (
		current Date
		inNote  bool
		body    []string
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if lineNo == 1 {
			line = strings.TrimPrefix(line, "\ufeff")
		}

		date, isMarker, err := s.marker(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if !isMarker {
			if inNote {
				body = append(body, line)
			}
			continue
		}

		if inNote {
			notes[current] = strings.Join(body, "\n")
		}
		current, inNote, body = date, true, nil
	}
	if err := scanner.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("line %d: %w (limit %d bytes)", lineNo+1, ErrLineTooLong, MaxLineSize)
		}
		return nil, fmt.Errorf("notes: read: %w", err)
	}

	if inNote {
		notes[current] = strings.Join(body, "\n")
	}
	return notes, nil
}

// SegmentString is Segment over an in-memory string.
func (s *Segmenter) SegmentString(text string) (Notes, error) {
	return s.Segment(strings.NewReader(text))
}

func (s *Segmenter) marker(line string) (Date, bool, error) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Date{}, false, nil
	}

	layout := dateLayout
	switch s.mode {
	case MarkerLegacy:
		parts := strings.Split(trimmed, "-")
		if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
			return Date{}, false, nil
		}
		// single-digit month and day are accepted here
		layout = "2006-1-2"
	default:
		if !strictMarker.MatchString(trimmed) {
			return Date{}, false, nil
		}
	}

	t, err := time.Parse(layout, trimmed)
	if err != nil {
		return Date{}, false, fmt.Errorf("%w: %q", ErrDateFormat, trimmed)
	}
	return DateOf(t), true, nil
}
