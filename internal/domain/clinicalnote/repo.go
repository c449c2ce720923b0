package clinicalnote

import "context"

// Sink stores reconciled records. Append stores all records of one file or
// none of them. Sinks are not idempotent: appending the same records twice
// stores them twice.
type Sink interface {
	Append(ctx context.Context, records []Record) error
}
