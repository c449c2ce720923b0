package identity

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type patientRepoSQLite struct {
	db *sqlx.DB
}

// NewPatientRepoSQLite creates a SQLite-backed patient repository over a
// database opened with db.OpenSQLite.
func NewPatientRepoSQLite(db *sqlx.DB) PatientRepository {
	return &patientRepoSQLite{db: db}
}

func (r *patientRepoSQLite) FindByKey(ctx context.Context, key Key, limit int) ([]PatientID, error) {
	query := `SELECT pid FROM patient_data WHERE fname = ? AND lname = ?`
	args := []interface{}{key.FirstName, key.LastName}
	if key.ReferrerID != nil {
		query += ` AND referrer_id = ?`
		args = append(args, *key.ReferrerID)
	}
	query += ` ORDER BY pid LIMIT ?`
	args = append(args, limit)

	var ids []PatientID
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("find patient %s: %w", key, err)
	}
	return ids, nil
}
