package identity

import "context"

// PatientRepository is the store patients are matched against. Patients are
// registered by the records system itself; this service only reads them.
type PatientRepository interface {
	// FindByKey returns at most limit patient ids matching key, ordered by id.
	// It issues exactly one query.
	FindByKey(ctx context.Context, key Key, limit int) ([]PatientID, error)
}
