package reconcile

import (
	"context"
	"fmt"
	"io"

	"github.com/ehr/clinicalnotes/internal/domain/clinicalnote"
	"github.com/ehr/clinicalnotes/internal/domain/identity"
	"github.com/ehr/clinicalnotes/internal/platform/ccda"
	"github.com/ehr/clinicalnotes/internal/platform/notes"
)

// PatientResolver maps an export filename to a stored patient.
type PatientResolver interface {
	Resolve(ctx context.Context, filename string) (identity.PatientID, error)
}

// EncounterExtractor reads encounters from a structured document.
type EncounterExtractor interface {
	Extract(document []byte) ([]ccda.Encounter, error)
}

// NoteSegmenter splits a note file into dated bodies.
type NoteSegmenter interface {
	Segment(r io.Reader) (notes.Notes, error)
}

// Outcome is the result of reconciling one file pair. Failure is nil on
// success.
type Outcome struct {
	File       string                `json:"file"`
	PatientID  identity.PatientID    `json:"pid,omitempty"`
	Encounters int                   `json:"encounters"`
	Records    []clinicalnote.Record `json:"records"`
	Failure    *Failure              `json:"failure,omitempty"`
}

// OK reports whether the file reconciled without failure.
func (o Outcome) OK() bool {
	return o.Failure == nil
}

// Driver reconciles one file pair at a time. It holds no state between calls.
type Driver struct {
	resolver  PatientResolver
	extractor EncounterExtractor
	segmenter NoteSegmenter
}

func NewDriver(resolver PatientResolver, extractor EncounterExtractor, segmenter NoteSegmenter) *Driver {
	return &Driver{resolver: resolver, extractor: extractor, segmenter: segmenter}
}

// Reconcile resolves the patient from filename, extracts the document's
// encounters, segments the notes and joins them by calendar day. A nil notes
// reader means there is no note file and yields zero records. Reconcile never
// returns an error or panics; failures are reported in the Outcome.
func (d *Driver) Reconcile(ctx context.Context, filename string, document []byte, noteFile io.Reader) (out Outcome) {
	out = Outcome{File: filename}
	defer func() {
		if r := recover(); r != nil {
			out.Records = nil
			out.Failure = &Failure{Kind: KindInternal, File: filename, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	pid, err := d.resolver.Resolve(ctx, filename)
	if err != nil {
		out.Failure = newFailure(filename, err)
		return out
	}
	out.PatientID = pid

	encounters, err := d.extractor.Extract(document)
	if err != nil {
		out.Failure = newFailure(filename, err)
		return out
	}
	out.Encounters = len(encounters)

	if noteFile == nil {
		return out
	}

	byDate, err := d.segmenter.Segment(noteFile)
	if err != nil {
		out.Failure = newFailure(filename, err)
		return out
	}

	out.Records = Join(pid, encounters, byDate)
	return out
}

// Join emits one record per encounter whose calendar day has a note, in
// encounter order.
func Join(pid identity.PatientID, encounters []ccda.Encounter, byDate notes.Notes) []clinicalnote.Record {
	var records []clinicalnote.Record
	for _, enc := range encounters {
		day := notes.DateOf(enc.EffectiveTime)
		body, ok := byDate[day]
		if !ok {
			continue
		}
		records = append(records, clinicalnote.Record{
			PatientID:     pid,
			EncounterID:   enc.ID,
			EncounteredAt: enc.EffectiveTime,
			Date:          day,
			Body:          body,
		})
	}
	return records
}
