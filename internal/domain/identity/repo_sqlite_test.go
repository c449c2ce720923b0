package identity

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/ehr/clinicalnotes/internal/platform/db"
)

func newSQLiteRepo(t *testing.T) (PatientRepository, *sqlx.DB) {
	t.Helper()
	sdb, err := db.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "patients.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { sdb.Close() })
	return NewPatientRepoSQLite(sdb), sdb
}

// insertPatient writes p to patient_data and sets its pid.
func insertPatient(t *testing.T, sdb *sqlx.DB, p *Patient) {
	t.Helper()
	res, err := sdb.NamedExecContext(context.Background(),
		`INSERT INTO patient_data (fname, lname, referrer_id) VALUES (:fname, :lname, :referrer_id)`, p)
	if err != nil {
		t.Fatalf("insert patient: %v", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("insert patient: %v", err)
	}
	p.PID = PatientID(id)
}

func TestPatientRepoSQLite_FindByKey(t *testing.T) {
	ctx := context.Background()
	repo, sdb := newSQLiteRepo(t)

	seed := []*Patient{
		{FirstName: "john", LastName: "doe", ReferrerID: strPtr("1234")},
		{FirstName: "john", LastName: "doe", ReferrerID: strPtr("5678")},
		{FirstName: "jane", LastName: "doe"},
	}
	for _, p := range seed {
		insertPatient(t, sdb, p)
		if p.PID == 0 {
			t.Fatal("expected pid to be assigned")
		}
	}

	ids, err := repo.FindByKey(ctx, Key{FirstName: "john", LastName: "doe", ReferrerID: strPtr("5678")}, 2)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if len(ids) != 1 || ids[0] != seed[1].PID {
		t.Errorf("expected [%d], got %v", seed[1].PID, ids)
	}

	ids, err = repo.FindByKey(ctx, Key{FirstName: "john", LastName: "doe"}, 2)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if len(ids) != 2 || ids[0] != seed[0].PID {
		t.Errorf("expected both john doe rows ordered by pid, got %v", ids)
	}

	ids, err = repo.FindByKey(ctx, Key{FirstName: "john", LastName: "doe"}, 1)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if len(ids) != 1 {
		t.Errorf("expected limit to apply, got %v", ids)
	}

	ids, err = repo.FindByKey(ctx, Key{FirstName: "nobody", LastName: "here"}, 2)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected no rows, got %v", ids)
	}
}

func TestPatientRepoSQLite_ReferrerFilterExcludesNull(t *testing.T) {
	ctx := context.Background()
	repo, sdb := newSQLiteRepo(t)

	insertPatient(t, sdb, &Patient{FirstName: "jane", LastName: "doe"})

	ids, err := repo.FindByKey(ctx, Key{FirstName: "jane", LastName: "doe", ReferrerID: strPtr("1")}, 2)
	if err != nil {
		t.Fatalf("FindByKey: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("expected referrer filter to exclude NULL referrer, got %v", ids)
	}
}

func TestResolver_WithSQLiteStore(t *testing.T) {
	ctx := context.Background()
	repo, sdb := newSQLiteRepo(t)

	p := &Patient{FirstName: "mary", LastName: "smith", ReferrerID: strPtr("88")}
	insertPatient(t, sdb, p)

	pid, err := NewResolver(repo, AmbiguityReject).Resolve(ctx, "mary_smith_88.xml")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if pid != p.PID {
		t.Errorf("expected pid %d, got %d", p.PID, pid)
	}
}
