package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ehr/clinicalnotes/internal/config"
	"github.com/ehr/clinicalnotes/internal/domain/clinicalnote"
	"github.com/ehr/clinicalnotes/internal/domain/identity"
	"github.com/ehr/clinicalnotes/internal/platform/db"
)

// stores holds whichever backend STORE_DRIVER selected. Exactly one of pool
// and sqlite is set.
type stores struct {
	pool   *pgxpool.Pool
	sqlite *sqlx.DB
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		sdb, err := db.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &stores{sqlite: sdb}, nil
	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
		if err != nil {
			return nil, err
		}
		return &stores{pool: pool}, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

func (s *stores) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
	if s.sqlite != nil {
		s.sqlite.Close()
	}
}

func (s *stores) patients() identity.PatientRepository {
	if s.sqlite != nil {
		return identity.NewPatientRepoSQLite(s.sqlite)
	}
	return identity.NewPatientRepo(s.pool)
}

func (s *stores) resolver(cfg *config.Config) (*identity.Resolver, error) {
	policy, err := cfg.AmbiguityPolicy()
	if err != nil {
		return nil, err
	}
	return identity.NewResolver(s.patients(), policy), nil
}

// sink returns the record sink for cfg. Dry runs only log.
func (s *stores) sink(cfg *config.Config, logger zerolog.Logger) clinicalnote.Sink {
	author := clinicalnote.Author{User: cfg.FormUser, Group: cfg.FormGroup}
	switch {
	case cfg.DryRun:
		return clinicalnote.NewLogSink(logger)
	case s.sqlite != nil:
		return clinicalnote.NewSinkSQLite(s.sqlite, author)
	default:
		return clinicalnote.NewSinkPG(s.pool, author)
	}
}

func (s *stores) ping(ctx context.Context) error {
	if s.sqlite != nil {
		return s.sqlite.PingContext(ctx)
	}
	return s.pool.Ping(ctx)
}

func (s *stores) stats() interface{} {
	if s.sqlite != nil {
		return s.sqlite.Stats()
	}
	return db.GetPoolStats(s.pool)
}
