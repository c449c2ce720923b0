package reconcile

import (
	"errors"
	"fmt"

	"github.com/ehr/clinicalnotes/internal/domain/identity"
	"github.com/ehr/clinicalnotes/internal/platform/ccda"
	"github.com/ehr/clinicalnotes/internal/platform/notes"
)

// Kind classifies why a file could not be reconciled.
type Kind string

const (
	KindFormat            Kind = "format"
	KindNotFound          Kind = "not_found"
	KindAmbiguousMatch    Kind = "ambiguous_match"
	KindMalformedDocument Kind = "malformed_document"
	KindSectionNotFound   Kind = "section_not_found"
	KindEmptyResult       Kind = "empty_result"
	KindDateFormat        Kind = "date_format"
	KindLineTooLong       Kind = "line_too_long"
	KindIO                Kind = "io"
	KindSink              Kind = "sink"
	KindInternal          Kind = "internal"
)

// Failure is the typed per-file failure reported by the driver and batch.
type Failure struct {
	Kind Kind   `json:"kind"`
	File string `json:"file"`
	Err  error  `json:"-"`
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %v", f.File, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Message is the underlying error text, used in JSON responses.
func (f *Failure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// Classify maps an error returned by the resolver, extractor or segmenter to
// its Kind. Unknown errors classify as KindInternal.
func Classify(err error) Kind {
	var f *Failure
	switch {
	case errors.As(err, &f):
		return f.Kind
	case errors.Is(err, identity.ErrFormat):
		return KindFormat
	case errors.Is(err, identity.ErrNotFound):
		return KindNotFound
	case errors.Is(err, identity.ErrAmbiguousMatch):
		return KindAmbiguousMatch
	case errors.Is(err, ccda.ErrMalformedDocument):
		return KindMalformedDocument
	case errors.Is(err, ccda.ErrSectionNotFound):
		return KindSectionNotFound
	case errors.Is(err, ccda.ErrNoEncounters):
		return KindEmptyResult
	case errors.Is(err, ccda.ErrDateFormat), errors.Is(err, notes.ErrDateFormat):
		return KindDateFormat
	case errors.Is(err, notes.ErrLineTooLong):
		return KindLineTooLong
	default:
		return KindInternal
	}
}

func newFailure(file string, err error) *Failure {
	return &Failure{Kind: Classify(err), File: file, Err: err}
}
