package clinicalnote

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinicalnotes/internal/platform/db"
)

type sinkPG struct {
	pool   *pgxpool.Pool
	author Author
}

// NewSinkPG creates a Postgres-backed sink. Each Append runs in one
// transaction.
func NewSinkPG(pool *pgxpool.Pool, author Author) Sink {
	return &sinkPG{pool: pool, author: author}
}

func (s *sinkPG) Append(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	return db.WithTx(ctx, s.pool, func(ctx context.Context) error {
		tx := db.TxFromContext(ctx)
		for _, rec := range records {
			if err := s.insert(ctx, tx, rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *sinkPG) insert(ctx context.Context, tx pgx.Tx, rec Record) error {
	form, note := NewRows(rec, s.author)

	err := tx.QueryRow(ctx, `
		INSERT INTO forms (date, encounter, form_name, pid, "user", groupname, authorized, formdir)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		form.Date, form.Encounter, form.FormName, form.PID, form.User, form.GroupName, form.Authorized, form.FormDir,
	).Scan(&form.ID)
	if err != nil {
		return fmt.Errorf("insert form for encounter %s: %w", rec.EncounterID, err)
	}

	note.FormID = form.ID
	err = tx.QueryRow(ctx, `
		INSERT INTO form_clinical_notes (form_id, uuid, date, pid, encounter, "user", groupname,
			authorized, activity, description, clinical_notes_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		note.FormID, note.UUID, note.Date, note.PID, note.Encounter, note.User, note.GroupName,
		note.Authorized, note.Activity, note.Description, note.ClinicalNotesType,
	).Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("insert clinical note for encounter %s: %w", rec.EncounterID, err)
	}
	return nil
}
