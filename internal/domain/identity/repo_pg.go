package identity

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ehr/clinicalnotes/internal/platform/db"
)

type patientRepoPG struct {
	pool *pgxpool.Pool
}

// NewPatientRepo creates a Postgres-backed patient repository.
func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *patientRepoPG) FindByKey(ctx context.Context, key Key, limit int) ([]PatientID, error) {
	query := `SELECT pid FROM patient_data WHERE fname = $1 AND lname = $2`
	args := []interface{}{key.FirstName, key.LastName}
	if key.ReferrerID != nil {
		query += ` AND referrer_id = $3`
		args = append(args, *key.ReferrerID)
	}
	query += fmt.Sprintf(` ORDER BY pid LIMIT %d`, limit)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find patient %s: %w", key, err)
	}
	defer rows.Close()

	var ids []PatientID
	for rows.Next() {
		var id PatientID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan patient id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}
	return ids, nil
}

type querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}
