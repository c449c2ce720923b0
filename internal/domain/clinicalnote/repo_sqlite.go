package clinicalnote

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

const (
	sqliteDateTimeLayout = "2006-01-02 15:04:05"
	sqliteDateLayout     = "2006-01-02"
)

type sinkSQLite struct {
	db     *sqlx.DB
	author Author
}

// NewSinkSQLite creates a SQLite-backed sink over a database opened with
// db.OpenSQLite.
func NewSinkSQLite(db *sqlx.DB, author Author) Sink {
	return &sinkSQLite{db: db, author: author}
}

func (s *sinkSQLite) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, rec := range records {
		if err := s.insert(ctx, tx, rec); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (s *sinkSQLite) insert(ctx context.Context, tx *sqlx.Tx, rec Record) error {
	form, note := NewRows(rec, s.author)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO forms (date, encounter, form_name, pid, user, groupname, authorized, formdir)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		form.Date.Format(sqliteDateTimeLayout), form.Encounter, form.FormName, int64(form.PID),
		form.User, form.GroupName, form.Authorized, form.FormDir,
	)
	if err != nil {
		return fmt.Errorf("insert form for encounter %s: %w", rec.EncounterID, err)
	}
	if form.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("insert form for encounter %s: %w", rec.EncounterID, err)
	}

	note.FormID = form.ID
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO form_clinical_notes (form_id, uuid, date, pid, encounter, user, groupname,
			authorized, activity, description, clinical_notes_type)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		note.FormID, note.UUID.String(), note.Date.Format(sqliteDateLayout), int64(note.PID), note.Encounter,
		note.User, note.GroupName, note.Authorized, note.Activity, note.Description, note.ClinicalNotesType,
	); err != nil {
		return fmt.Errorf("insert clinical note for encounter %s: %w", rec.EncounterID, err)
	}
	return nil
}
