package reconcile

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/ehr/clinicalnotes/internal/domain/clinicalnote"
	"github.com/ehr/clinicalnotes/internal/domain/identity"
	"github.com/ehr/clinicalnotes/internal/platform/ccda"
	"github.com/ehr/clinicalnotes/internal/platform/notes"
)

// -- Mock patient repository --

type mockPatientRepo struct {
	patients []identity.Patient
	lookups  int
}

func (m *mockPatientRepo) FindByKey(_ context.Context, key identity.Key, limit int) ([]identity.PatientID, error) {
	m.lookups++
	var ids []identity.PatientID
	for _, p := range m.patients {
		if p.FirstName != key.FirstName || p.LastName != key.LastName {
			continue
		}
		if key.ReferrerID != nil && (p.ReferrerID == nil || *p.ReferrerID != *key.ReferrerID) {
			continue
		}
		ids = append(ids, p.PID)
		if len(ids) == limit {
			break
		}
	}
	return ids, nil
}

func strPtr(s string) *string { return &s }

func testPatients() *mockPatientRepo {
	return &mockPatientRepo{patients: []identity.Patient{
		{PID: 1001, FirstName: "john", LastName: "doe", ReferrerID: strPtr("R42")},
		{PID: 1002, FirstName: "jane", LastName: "roe"},
		{PID: 1003, FirstName: "sam", LastName: "twin"},
		{PID: 1004, FirstName: "sam", LastName: "twin"},
	}}
}

// -- Recording sink --

type recordingSink struct {
	mu      sync.Mutex
	batches [][]clinicalnote.Record
	err     error
}

func (s *recordingSink) Append(_ context.Context, records []clinicalnote.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.batches = append(s.batches, records)
	return nil
}

func (s *recordingSink) count() int {
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

// -- Collaborators that misbehave --

type panicExtractor struct{}

func (panicExtractor) Extract([]byte) ([]ccda.Encounter, error) {
	panic("boom")
}

type failingResolver struct{}

func (failingResolver) Resolve(context.Context, string) (identity.PatientID, error) {
	return 0, errors.New("connection refused")
}

// -- Fixtures --

func newTestDriver(t *testing.T, patients identity.PatientRepository) *Driver {
	t.Helper()
	segmenter, err := notes.NewSegmenter(notes.MarkerStrict, "")
	if err != nil {
		t.Fatalf("NewSegmenter: %v", err)
	}
	return NewDriver(identity.NewResolver(patients, identity.AmbiguityReject), ccda.NewExtractor(), segmenter)
}

type fixtureEncounter struct {
	low string
	id  string
}

// ccdaDocument renders a minimal CCD with an Encounters section.
func ccdaDocument(encs ...fixtureEncounter) []byte {
	var entries strings.Builder
	for _, e := range encs {
		entries.WriteString(`<entry><encounter classCode="ENC" moodCode="EVN">`)
		entries.WriteString(`<id root="` + e.id + `"/>`)
		entries.WriteString(`<effectiveTime><low value="` + e.low + `"/></effectiveTime>`)
		entries.WriteString(`</encounter></entry>`)
	}
	return []byte(`<?xml version="1.0" encoding="UTF-8"?>
<ClinicalDocument xmlns="urn:hl7-org:v3">
<component><structuredBody>
<component><section>
<code code="46240-8" codeSystem="2.16.840.1.113883.6.1"/>
<title>Encounters</title>
` + entries.String() + `
</section></component>
</structuredBody></component>
</ClinicalDocument>`)
}

func twoEncounterDocument() []byte {
	return ccdaDocument(
		fixtureEncounter{low: "20230105100000", id: "enc1"},
		fixtureEncounter{low: "20230106090000", id: "enc2"},
	)
}

func noProblemsDocument() []byte {
	return []byte(`<ClinicalDocument xmlns="urn:hl7-org:v3"><component><structuredBody>
<component><section><code code="11450-4"/></section></component>
</structuredBody></component></ClinicalDocument>`)
}
