package ccda

import "encoding/xml"

// CDA namespace and the identifiers used to locate encounter data in a
// C-CDA 2.1 document.
const (
	CDANamespace = "urn:hl7-org:v3"

	OIDEncountersSection = "2.16.840.1.113883.10.20.22.2.22.1"
	OIDEncounterEntry    = "2.16.840.1.113883.10.20.22.4.49"

	// LOINC code identifying the Encounters section.
	LOINCEncounters = "46240-8"

	// HL7 TS layout for effectiveTime/low/@value (YYYYMMDDhhmmss).
	hl7TimestampLayout = "20060102150405"
)

// ClinicalDocument is the root element of a CDA R2 document. Only the parts
// needed to reach the structured body are decoded. The root element name is
// not constrained so that documents with an unexpected root still decode and
// report a missing section rather than a parse failure.
type ClinicalDocument struct {
	XMLName   xml.Name
	Title     string     `xml:"urn:hl7-org:v3 title,omitempty"`
	Component *Component `xml:"urn:hl7-org:v3 component,omitempty"`
}

// Component wraps the structured body of the CDA document.
type Component struct {
	StructuredBody *StructuredBody `xml:"urn:hl7-org:v3 structuredBody,omitempty"`
}

// StructuredBody holds the document sections.
type StructuredBody struct {
	Components []SectionComponent `xml:"urn:hl7-org:v3 component,omitempty"`
}

// SectionComponent wraps a single section.
type SectionComponent struct {
	Section *Section `xml:"urn:hl7-org:v3 section,omitempty"`
}

// Section represents a CDA section. Subsections are nested through further
// component/section elements.
type Section struct {
	TemplateIDs []TemplateID       `xml:"urn:hl7-org:v3 templateId,omitempty"`
	Code        *Code              `xml:"urn:hl7-org:v3 code,omitempty"`
	Title       string             `xml:"urn:hl7-org:v3 title,omitempty"`
	Entries     []Entry            `xml:"urn:hl7-org:v3 entry,omitempty"`
	Components  []SectionComponent `xml:"urn:hl7-org:v3 component,omitempty"`
}

// TemplateID specifies a template identifier with optional extension.
type TemplateID struct {
	Root      string `xml:"root,attr"`
	Extension string `xml:"extension,attr,omitempty"`
}

// InstanceID is a unique instance identifier.
type InstanceID struct {
	Root      *string `xml:"root,attr"`
	Extension string  `xml:"extension,attr,omitempty"`
}

// Code represents a coded value with optional code system.
type Code struct {
	Code        string `xml:"code,attr,omitempty"`
	CodeSystem  string `xml:"codeSystem,attr,omitempty"`
	DisplayName string `xml:"displayName,attr,omitempty"`
}

// TimeLow represents a low boundary of a time interval. Value is nil when the
// attribute is absent.
type TimeLow struct {
	Value *string `xml:"value,attr"`
}

// TimeRange represents an effectiveTime interval. Only the low boundary is
// used for encounters.
type TimeRange struct {
	Low *TimeLow `xml:"urn:hl7-org:v3 low,omitempty"`
}

// Entry represents a CDA entry element. Entries that do not carry an
// encounter leave Encounter nil.
type Entry struct {
	TypeCode  string          `xml:"typeCode,attr,omitempty"`
	Encounter *EncounterEntry `xml:"urn:hl7-org:v3 encounter,omitempty"`
}

// EncounterEntry represents a CDA encounter.
type EncounterEntry struct {
	ClassCode     string       `xml:"classCode,attr,omitempty"`
	MoodCode      string       `xml:"moodCode,attr,omitempty"`
	TemplateIDs   []TemplateID `xml:"urn:hl7-org:v3 templateId,omitempty"`
	IDs           []InstanceID `xml:"urn:hl7-org:v3 id,omitempty"`
	Code          *Code        `xml:"urn:hl7-org:v3 code,omitempty"`
	EffectiveTime *TimeRange   `xml:"urn:hl7-org:v3 effectiveTime,omitempty"`
}
