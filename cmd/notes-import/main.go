package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ehr/clinicalnotes/internal/config"
	"github.com/ehr/clinicalnotes/internal/platform/ccda"
	"github.com/ehr/clinicalnotes/internal/platform/db"
	"github.com/ehr/clinicalnotes/internal/platform/middleware"
	"github.com/ehr/clinicalnotes/internal/platform/notes"
	"github.com/ehr/clinicalnotes/internal/reconcile"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "notes-import",
		Short:        "Reconcile CCDA encounters with dated clinical notes",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(importCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	if env == "development" {
		return zerolog.New(zerolog.ConsoleWriter{Out: out}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Logger()
}

// loadConfig reads the config and applies any flags the user set on cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("ccda-dir") {
		cfg.CCDADir, _ = flags.GetString("ccda-dir")
	}
	if flags.Changed("notes-dir") {
		cfg.NotesDir, _ = flags.GetString("notes-dir")
	}
	if flags.Changed("dry-run") {
		cfg.DryRun, _ = flags.GetBool("dry-run")
	}
	return cfg, nil
}

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import clinical notes for every CCDA export in CCDA_DIR",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.ValidateImport(); err != nil {
				return err
			}
			logger := newLogger(cfg.Env, os.Stdout)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sum, err := runImport(ctx, cfg, logger)
			if err != nil {
				return err
			}
			if sum.Failed > 0 {
				fmt.Fprintf(cmd.ErrOrStderr(), "%d of %d file(s) failed\n", sum.Failed, sum.Total)
			}
			return nil
		},
	}
	cmd.Flags().String("ccda-dir", "", "Directory of CCDA exports (overrides CCDA_DIR)")
	cmd.Flags().String("notes-dir", "", "Directory of note files (overrides NOTES_DIR)")
	cmd.Flags().Bool("dry-run", false, "Log reconciled records instead of storing them (overrides DRY_RUN)")
	return cmd
}

func runImport(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (reconcile.Summary, error) {
	st, err := openStores(ctx, cfg)
	if err != nil {
		return reconcile.Summary{}, err
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.StoreDriver).Bool("dry_run", cfg.DryRun).Msg("connected to store")

	driver, err := newDriver(cfg, st)
	if err != nil {
		return reconcile.Summary{}, err
	}

	batch := reconcile.NewBatch(reconcile.BatchConfig{
		CCDADir:       cfg.CCDADir,
		NotesDir:      cfg.NotesDir,
		CCDAExt:       cfg.CCDAExt,
		NotesExt:      cfg.NotesExt,
		ProgressEvery: cfg.ProgressEvery,
	}, driver, st.sink(cfg, logger), logger)

	return batch.Run(ctx)
}

func newDriver(cfg *config.Config, st *stores) (*reconcile.Driver, error) {
	resolver, err := st.resolver(cfg)
	if err != nil {
		return nil, err
	}
	segmenter, err := newSegmenter(cfg)
	if err != nil {
		return nil, err
	}
	return reconcile.NewDriver(resolver, ccda.NewExtractor(), segmenter), nil
}

func newSegmenter(cfg *config.Config) (*notes.Segmenter, error) {
	mode, err := cfg.MarkerMode()
	if err != nil {
		return nil, err
	}
	return notes.NewSegmenter(mode, cfg.NotesEncoding)
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			out := cmd.OutOrStdout()
			if cfg.StoreDriver == config.DriverSQLite {
				// The SQLite schema is migrated whenever the database is opened.
				sdb, err := db.OpenSQLite(ctx, cfg.SQLitePath)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				defer sdb.Close()
				fmt.Fprintf(out, "SQLite schema at %s is up to date.\n", cfg.SQLitePath)
				return nil
			}

			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, db.PostgresMigrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(out, "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx := cmd.Context()
			var statuses []db.MigrationStatus
			if cfg.StoreDriver == config.DriverSQLite {
				sdb, err := db.OpenSQLite(ctx, cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer sdb.Close()
				statuses, err = db.SQLiteStatus(ctx, sdb)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
			} else {
				pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
				if err != nil {
					return err
				}
				defer pool.Close()
				statuses, err = db.NewMigrator(pool, db.PostgresMigrations()).Status(ctx)
				if err != nil {
					return fmt.Errorf("failed to get migration status: %w", err)
				}
			}

			printStatus(cmd.OutOrStdout(), cfg.StoreDriver, statuses)
			return nil
		},
	})

	return cmd
}

func printStatus(w io.Writer, driver string, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "Migration status for %s store\n", driver)
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the reconciliation preview API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServer(cfg)
		},
	}
}

// newServer builds the echo instance with every route registered.
func newServer(cfg *config.Config, st *stores, logger zerolog.Logger) (*echo.Echo, error) {
	driver, err := newDriver(cfg, st)
	if err != nil {
		return nil, err
	}
	segmenter, err := newSegmenter(cfg)
	if err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Global middleware
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.BodyLimit("1M", "32M"))

	apiV1 := e.Group("/api/v1")
	ccda.NewHandler(ccda.NewExtractor()).RegisterRoutes(apiV1)
	notes.NewHandler(segmenter).RegisterRoutes(apiV1)
	reconcile.NewHandler(driver).RegisterRoutes(apiV1)

	// DB health check endpoint
	e.GET("/health/db", db.HealthHandler(cfg.StoreDriver, st.ping, st.stats))
	return e, nil
}

func runServer(cfg *config.Config) error {
	logger := newLogger(cfg.Env, os.Stdout)

	ctx := context.Background()
	st, err := openStores(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer st.Close()
	logger.Info().Str("driver", cfg.StoreDriver).Msg("connected to database")

	e, err := newServer(cfg, st, logger)
	if err != nil {
		return err
	}

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
