package ccda

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
)

var (
	// ErrMalformedDocument is returned when the document cannot be parsed as XML.
	ErrMalformedDocument = errors.New("ccda: malformed document")
	// ErrSectionNotFound is returned when the document has no Encounters section.
	ErrSectionNotFound = errors.New("ccda: encounters section not found")
	// ErrNoEncounters is returned when the Encounters section holds no entry
	// with both an effective time and an identifier.
	ErrNoEncounters = errors.New("ccda: no valid encounters found")
	// ErrDateFormat is returned when an encounter effective time is not a
	// YYYYMMDDhhmmss stamp.
	ErrDateFormat = errors.New("ccda: invalid effective time")
)

// Encounter is one (effective start, identifier) pair read from the
// Encounters section.
type Encounter struct {
	EffectiveTime time.Time `json:"effective_time"`
	ID            string    `json:"id"`
}

// Extractor reads encounter identifiers and their effective start times out of
// C-CDA documents. It is safe for concurrent use because it holds no mutable
// state.
type Extractor struct{}

// NewExtractor creates a new encounter extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses a C-CDA document and returns its encounters in document
// order. Entries missing an effective time or an id are dropped. A document
// that leaves no encounters after dropping fails with ErrNoEncounters.
func (x *Extractor) Extract(xmlData []byte) ([]Encounter, error) {
	if len(bytes.TrimSpace(xmlData)) == 0 {
		return nil, fmt.Errorf("%w: XML data is empty", ErrMalformedDocument)
	}

	var doc ClinicalDocument
	dec := xml.NewDecoder(bytes.NewReader(xmlData))
	dec.CharsetReader = charset.NewReaderLabel
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if err := expectEnd(dec); err != nil {
		return nil, err
	}

	section := findEncountersSection(&doc)
	if section == nil {
		return nil, ErrSectionNotFound
	}

	var encounters []Encounter
	for _, enc := range collectEncounters(section, nil) {
		e, ok, err := encounterFromEntry(enc)
		if err != nil {
			return nil, err
		}
		if ok {
			encounters = append(encounters, e)
		}
	}

	if len(encounters) == 0 {
		return nil, ErrNoEncounters
	}
	return encounters, nil
}

// expectEnd consumes the rest of the input after the root element. Only
// whitespace, comments and processing instructions may follow it.
func expectEnd(dec *xml.Decoder) error {
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
		}
		switch t := tok.(type) {
		case xml.Comment, xml.ProcInst:
		case xml.CharData:
			if len(bytes.TrimSpace(t)) != 0 {
				return fmt.Errorf("%w: text after document element", ErrMalformedDocument)
			}
		default:
			return fmt.Errorf("%w: content after document element", ErrMalformedDocument)
		}
	}
}

// findEncountersSection returns the first section, in document order, coded
// with the Encounters LOINC code.
func findEncountersSection(doc *ClinicalDocument) *Section {
	if doc.XMLName.Space != CDANamespace {
		return nil
	}
	if doc.Component == nil || doc.Component.StructuredBody == nil {
		return nil
	}
	return searchSections(doc.Component.StructuredBody.Components)
}

func searchSections(components []SectionComponent) *Section {
	for _, comp := range components {
		if comp.Section == nil {
			continue
		}
		if comp.Section.Code != nil && comp.Section.Code.Code == LOINCEncounters {
			return comp.Section
		}
		if found := searchSections(comp.Section.Components); found != nil {
			return found
		}
	}
	return nil
}

// collectEncounters gathers encounter entries of a section and its
// subsections, preserving document order.
func collectEncounters(section *Section, acc []*EncounterEntry) []*EncounterEntry {
	for i := range section.Entries {
		if section.Entries[i].Encounter != nil {
			acc = append(acc, section.Entries[i].Encounter)
		}
	}
	for _, comp := range section.Components {
		if comp.Section != nil {
			acc = collectEncounters(comp.Section, acc)
		}
	}
	return acc
}

// encounterFromEntry reads the effective time before the id, so a bad stamp
// fails the document even when the entry would be skipped for a missing id.
// Empty attributes count as missing.
func encounterFromEntry(enc *EncounterEntry) (Encounter, bool, error) {
	if enc.EffectiveTime == nil || enc.EffectiveTime.Low == nil {
		return Encounter{}, false, nil
	}
	stamp := attr(enc.EffectiveTime.Low.Value)
	if stamp == "" {
		return Encounter{}, false, nil
	}

	at, err := parseHL7Timestamp(stamp)
	if err != nil {
		return Encounter{}, false, err
	}

	if len(enc.IDs) == 0 {
		return Encounter{}, false, nil
	}
	id := attr(enc.IDs[0].Root)
	if id == "" {
		return Encounter{}, false, nil
	}

	return Encounter{EffectiveTime: at, ID: id}, true, nil
}

func attr(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

// parseHL7Timestamp accepts only the fixed-width YYYYMMDDhhmmss form.
func parseHL7Timestamp(s string) (time.Time, error) {
	if len(s) != len(hl7TimestampLayout) {
		return time.Time{}, fmt.Errorf("%w: %q is not YYYYMMDDhhmmss", ErrDateFormat, s)
	}
	t, err := time.Parse(hl7TimestampLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q: %v", ErrDateFormat, s, err)
	}
	return t, nil
}
