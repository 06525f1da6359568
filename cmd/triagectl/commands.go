package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/radflow-triage-server/internal/config"
	"github.com/radflow-triage-server/internal/database"
	"github.com/radflow-triage-server/internal/domain"
	"github.com/radflow-triage-server/internal/logging"
	"github.com/radflow-triage-server/internal/service"
	"github.com/radflow-triage-server/internal/snapshot"
)

type app struct {
	out    io.Writer
	cfg    *config.LiteConfig
	logger *logrus.Logger

	backend string
	dataDir string
	slotKey string
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{out: out}

	rootCmd := &cobra.Command{
		Use:          "triagectl",
		Short:        "Inspect and maintain the RadFlow worklist",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.loadConfig()
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&a.backend, "backend", "", "snapshot backend: sqlite, postgres, redis or memory (default from RADFLOW_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&a.dataDir, "data-dir", "", "data directory for the sqlite backend (default from RADFLOW_DATA_DIR)")
	rootCmd.PersistentFlags().StringVar(&a.slotKey, "slot-key", "", "storage slot key (default from RADFLOW_SLOT_KEY)")

	rootCmd.AddCommand(a.listCmd())
	rootCmd.AddCommand(a.statsCmd())
	rootCmd.AddCommand(a.exportCmd())
	rootCmd.AddCommand(a.importCmd())
	rootCmd.AddCommand(a.seedCmd())
	rootCmd.AddCommand(a.migrateCmd())

	return rootCmd
}

func (a *app) loadConfig() error {
	cfg, err := config.LoadLiteConfig()
	if err != nil {
		return err
	}
	if a.backend != "" {
		cfg.Backend = a.backend
	}
	if a.dataDir != "" {
		cfg.DataDir = a.dataDir
	}
	if a.slotKey != "" {
		cfg.SlotKey = a.slotKey
	}
	a.cfg = cfg
	a.logger = logging.New(cfg.LogLevel, cfg.LogFormat)
	return nil
}

func (a *app) openSnapshot(ctx context.Context) (domain.SnapshotStore, error) {
	if a.cfg.Backend == snapshot.BackendSQLite || a.cfg.Backend == "" {
		if err := a.cfg.EnsureDataDir(); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return snapshot.Open(ctx, snapshot.Options{
		Backend:     a.cfg.Backend,
		SlotKey:     a.cfg.SlotKey,
		SQLitePath:  a.cfg.SQLitePath(),
		PostgresURL: a.cfg.PostgresURL,
		RedisURL:    a.cfg.RedisURL,
	})
}

// withStore opens the slot, loads the worklist and runs fn.
func (a *app) withStore(ctx context.Context, fn func(*service.StudyStore) error) error {
	persist, err := a.openSnapshot(ctx)
	if err != nil {
		return err
	}
	defer persist.Close()

	store := service.NewStudyStore(persist, a.logger)
	store.Initialize(ctx)
	return fn(store)
}

func (a *app) listCmd() *cobra.Command {
	var (
		status string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List studies in worklist order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if status != "" && !domain.Status(status).Valid() {
				return fmt.Errorf("unknown status %q", status)
			}
			return a.withStore(cmd.Context(), func(store *service.StudyStore) error {
				studies := make([]domain.PatientStudy, 0)
				for _, study := range store.ListStudies() {
					if status == "" || study.Status == domain.Status(status) {
						studies = append(studies, study)
					}
				}

				if asJSON {
					encoder := json.NewEncoder(a.out)
					encoder.SetIndent("", "  ")
					return encoder.Encode(studies)
				}

				fmt.Fprintf(a.out, "%-8s %-22s %-4s %-6s %-11s %-10s %s\n", "ID", "NAME", "AGE", "MOD", "STATUS", "PRIORITY", "ARRIVAL")
				for _, s := range studies {
					fmt.Fprintf(a.out, "%-8s %-22s %-4d %-6s %-11s %-10s %s\n",
						s.ID, s.Name, s.Age, s.Modality, s.Status, s.Priority, s.ArrivalTime)
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "only list studies in this status")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func (a *app) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show dashboard counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *service.StudyStore) error {
				stats := store.Stats()
				fmt.Fprintf(a.out, "Total:  %d\nLive:   %d\nUrgent: %d\nQueue:  %d\n", stats.Total, stats.Live, stats.Urgent, stats.Queue)
				for _, s := range domain.AllStatuses() {
					fmt.Fprintf(a.out, "  %-11s %d\n", s, stats.ByStatus[s])
				}
				return nil
			})
		},
	}
}

func (a *app) exportCmd() *cobra.Command {
	var toExportDir bool

	cmd := &cobra.Command{
		Use:   "export [file]",
		Short: "Export the stored worklist as JSON (stdout when no file is given)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			persist, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer persist.Close()

			path := ""
			switch {
			case len(args) == 1:
				path = args[0]
			case toExportDir:
				if err := a.cfg.EnsureDataDir(); err != nil {
					return fmt.Errorf("failed to create export directory: %w", err)
				}
				name := fmt.Sprintf("%s-%s.json", a.cfg.SlotKey, time.Now().UTC().Format("20060102T150405Z"))
				path = filepath.Join(a.cfg.ExportDir(), name)
			}

			writer := a.out
			if path != "" {
				f, err := os.Create(path)
				if err != nil {
					return fmt.Errorf("failed to create export file: %w", err)
				}
				defer f.Close()
				writer = f
			}

			count, err := snapshot.ExportJSON(ctx, persist, a.cfg.SlotKey, writer)
			if err != nil {
				return err
			}
			if path != "" {
				fmt.Fprintf(a.out, "Exported %d studies to %s\n", count, path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&toExportDir, "to-export-dir", false, "write a timestamped file into the data directory's exports folder")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the stored worklist with an export file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			persist, err := a.openSnapshot(ctx)
			if err != nil {
				return err
			}
			defer persist.Close()

			imported, skipped, err := snapshot.ImportJSON(ctx, persist, f)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %d studies (%d skipped)\n", imported, skipped)
			return nil
		},
	}
}

func (a *app) seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Reset the stored worklist to the example studies",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withStore(cmd.Context(), func(store *service.StudyStore) error {
				studies := store.Reset(cmd.Context())
				if err := store.PersistError(); err != nil {
					return fmt.Errorf("failed to save seed list: %w", err)
				}
				fmt.Fprintf(a.out, "Worklist reset to %d example studies\n", len(studies))
				return nil
			})
		},
	}
}

func (a *app) migrateCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the postgres schema",
	}
	cmd.PersistentFlags().StringVar(&dir, "dir", "", "path to migrations directory (default from RADFLOW_MIGRATIONS_PATH)")

	withRunner := func(fn func(*database.MigrationRunner) error) error {
		if a.cfg.PostgresURL == "" {
			return errors.New("RADFLOW_POSTGRES_URL is required for migrations")
		}
		path := a.cfg.MigrationsPath
		if dir != "" {
			path = dir
		}
		runner, err := database.NewMigrationRunner(a.cfg.PostgresURL, path, a.logger)
		if err != nil {
			return err
		}
		defer runner.Close()
		return fn(runner)
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withRunner(func(r *database.MigrationRunner) error {
				if err := r.Up(c.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Migrations applied")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back every migration",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withRunner(func(r *database.MigrationRunner) error {
				if err := r.Down(c.Context()); err != nil {
					return err
				}
				fmt.Fprintln(a.out, "Migrations rolled back")
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			return withRunner(func(r *database.MigrationRunner) error {
				version, dirty, err := r.Version()
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Version: %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}
