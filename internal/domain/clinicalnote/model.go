package clinicalnote

import (
	"time"

	"github.com/google/uuid"

	"github.com/ehr/clinicalnotes/internal/domain/identity"
	"github.com/ehr/clinicalnotes/internal/platform/notes"
)

const (
	FormName          = "Clinical Notes"
	FormDir           = "clinical_notes"
	ClinicalNotesType = "Clinical Note"

	DefaultUser  = "admin"
	DefaultGroup = "Default"
)

// Record is one encounter joined to the note written on its day.
type Record struct {
	PatientID     identity.PatientID `json:"pid"`
	EncounterID   string             `json:"encounter"`
	EncounteredAt time.Time          `json:"encountered_at"`
	Date          notes.Date         `json:"date"`
	Body          string             `json:"body"`
}

// Author is the user and group recorded on stored forms.
type Author struct {
	User  string
	Group string
}

func (a Author) withDefaults() Author {
	if a.User == "" {
		a.User = DefaultUser
	}
	if a.Group == "" {
		a.Group = DefaultGroup
	}
	return a
}

// Form maps to the forms table, the generic header row for an encounter form.
type Form struct {
	ID         int64              `db:"id"`
	Date       time.Time          `db:"date"`
	Encounter  string             `db:"encounter"`
	FormName   string             `db:"form_name"`
	PID        identity.PatientID `db:"pid"`
	User       string             `db:"user"`
	GroupName  string             `db:"groupname"`
	Authorized int                `db:"authorized"`
	FormDir    string             `db:"formdir"`
}

// ClinicalNote maps to the form_clinical_notes table.
type ClinicalNote struct {
	ID                int64              `db:"id"`
	FormID            int64              `db:"form_id"`
	UUID              uuid.UUID          `db:"uuid"`
	Date              time.Time          `db:"date"`
	PID               identity.PatientID `db:"pid"`
	Encounter         string             `db:"encounter"`
	User              string             `db:"user"`
	GroupName         string             `db:"groupname"`
	Authorized        int                `db:"authorized"`
	Activity          int                `db:"activity"`
	Description       string             `db:"description"`
	ClinicalNotesType string             `db:"clinical_notes_type"`
}

// NewRows builds the form header and clinical note rows for rec. The note gets
// a fresh UUID; FormID is set once the form has been stored.
func NewRows(rec Record, author Author) (*Form, *ClinicalNote) {
	author = author.withDefaults()

	form := &Form{
		Date:       rec.EncounteredAt,
		Encounter:  rec.EncounterID,
		FormName:   FormName,
		PID:        rec.PatientID,
		User:       author.User,
		GroupName:  author.Group,
		Authorized: 1,
		FormDir:    FormDir,
	}

	note := &ClinicalNote{
		UUID:              uuid.New(),
		Date:              rec.Date.Time(),
		PID:               rec.PatientID,
		Encounter:         rec.EncounterID,
		User:              author.User,
		GroupName:         author.Group,
		Authorized:        1,
		Activity:          1,
		Description:       rec.Body,
		ClinicalNotesType: ClinicalNotesType,
	}

	return form, note
}
