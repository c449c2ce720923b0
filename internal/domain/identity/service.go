package identity

import (
	"context"
	"fmt"
	"strings"
)

// AmbiguityPolicy decides what Resolve does when several patients match.
type AmbiguityPolicy string

const (
	// AmbiguityReject fails with ErrAmbiguousMatch.
	AmbiguityReject AmbiguityPolicy = "reject"
	// AmbiguityFirst takes the lowest pid.
	AmbiguityFirst AmbiguityPolicy = "first"
)

// ParseAmbiguityPolicy validates a configured policy name. Empty selects
// AmbiguityReject.
func ParseAmbiguityPolicy(s string) (AmbiguityPolicy, error) {
	switch AmbiguityPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", AmbiguityReject:
		return AmbiguityReject, nil
	case AmbiguityFirst:
		return AmbiguityFirst, nil
	default:
		return "", fmt.Errorf("identity: unknown ambiguity policy %q", s)
	}
}

// Resolver maps export filenames to stored patients. It keeps no cache; every
// call issues one lookup.
type Resolver struct {
	patients PatientRepository
	policy   AmbiguityPolicy
}

func NewResolver(patients PatientRepository, policy AmbiguityPolicy) *Resolver {
	if policy == "" {
		policy = AmbiguityReject
	}
	return &Resolver{patients: patients, policy: policy}
}

// Resolve parses filename into a Key and looks it up.
func (r *Resolver) Resolve(ctx context.Context, filename string) (PatientID, error) {
	key, err := ParseKey(filename)
	if err != nil {
		return 0, err
	}

	// Two rows are enough to tell a unique match from an ambiguous one.
	ids, err := r.patients.FindByKey(ctx, key, 2)
	if err != nil {
		return 0, err
	}

	switch {
	case len(ids) == 0:
		return 0, fmt.Errorf("%w: %s", ErrNotFound, key)
	case len(ids) > 1 && r.policy == AmbiguityReject:
		return 0, fmt.Errorf("%w: %s", ErrAmbiguousMatch, key)
	}
	return ids[0], nil
}
