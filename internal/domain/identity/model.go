package identity

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// ErrFormat is returned when a filename does not carry a first and last
	// name.
	ErrFormat = errors.New("identity: filename does not match first_last[_referrer] format")
	// ErrNotFound is returned when no stored patient matches the key.
	ErrNotFound = errors.New("identity: no matching patient")
	// ErrAmbiguousMatch is returned when more than one stored patient matches
	// the key and the resolver is not allowed to pick one.
	ErrAmbiguousMatch = errors.New("identity: more than one matching patient")
)

// PatientID is the patient identifier assigned by the patient store (the
// patient_data.pid column).
type PatientID int64

func (id PatientID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Key is the lookup key derived from an export filename.
type Key struct {
	FirstName string
	LastName  string
	// ReferrerID is nil when the filename has no third segment and is then
	// not used as a filter.
	ReferrerID *string
}

func (k Key) String() string {
	if k.ReferrerID == nil {
		return k.FirstName + " " + k.LastName
	}
	return fmt.Sprintf("%s %s (referrer %s)", k.FirstName, k.LastName, *k.ReferrerID)
}

// Patient maps to the patient_data table columns used for matching.
type Patient struct {
	PID        PatientID `db:"pid" json:"pid"`
	FirstName  string    `db:"fname" json:"fname"`
	LastName   string    `db:"lname" json:"lname"`
	ReferrerID *string   `db:"referrer_id" json:"referrer_id,omitempty"`
}

// ParseKey derives a Key from an export filename of the form
// first_last[_referrer].ext. Any directory part is ignored. The referrer is
// the third segment up to its first dot; without a third segment the last
// name ends at its first dot instead. Segments after the third are ignored.
func ParseKey(filename string) (Key, error) {
	base := filepath.Base(filename)

	parts := strings.Split(base, "_")
	if len(parts) < 2 {
		return Key{}, fmt.Errorf("%w: %s", ErrFormat, base)
	}

	key := Key{FirstName: parts[0], LastName: parts[1]}
	if len(parts) > 2 {
		ref := beforeDot(parts[2])
		key.ReferrerID = &ref
	} else {
		key.LastName = beforeDot(parts[1])
	}

	if key.FirstName == "" || key.LastName == "" {
		return Key{}, fmt.Errorf("%w: %s: empty name segment", ErrFormat, base)
	}
	return key, nil
}

func beforeDot(s string) string {
	if i := strings.Index(s, "."); i >= 0 {
		return s[:i]
	}
	return s
}
