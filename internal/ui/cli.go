package ui

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/config"
	"github.com/javiermolinar/lifeplan/internal/db"
	"github.com/javiermolinar/lifeplan/internal/engine"
	"github.com/javiermolinar/lifeplan/internal/memstore"
	"github.com/javiermolinar/lifeplan/internal/planner"
)

var (
	// Version is set at build time
	Version = "dev"
	// Commit is set at build time
	Commit = "none"
)

// App holds the CLI application state.
type App struct {
	engine  *engine.Engine
	config  *config.Config
	logger  *slog.Logger
	root    *cobra.Command
	noColor bool
}

// NewApp creates a new CLI application. A nil engine is opened from cfg on first use.
func NewApp(eng *engine.Engine, cfg *config.Config, logger *slog.Logger) *App {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{engine: eng, config: cfg, logger: logger}

	a.root = &cobra.Command{
		Use:   "lifeplan",
		Short: "A personal organizer that plans your day",
		Long: `lifeplan keeps an inbox of tasks across the domains of your life
and places them on today's calendar in the first free slots.

Run without arguments to see today's agenda.`,
		SilenceUsage: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			if a.noColor {
				DisableColor()
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}
			return a.printAgenda(cmd, a.engine.Now())
		},
	}

	a.root.PersistentFlags().BoolVar(&a.noColor, "no-color", false, "Disable color output")

	a.root.AddCommand(a.versionCmd())
	a.root.AddCommand(a.configCmd())
	a.root.AddCommand(a.addCmd())
	a.root.AddCommand(a.listCmd())
	a.root.AddCommand(a.planCmd())
	a.root.AddCommand(a.scheduleCmd())
	a.root.AddCommand(a.agendaCmd())
	a.root.AddCommand(a.statusCmd("done", "Mark a task as done"))
	a.root.AddCommand(a.statusCmd("skip", "Mark a task as skipped"))
	a.root.AddCommand(a.statusCmd("cancel", "Cancel a task"))
	a.root.AddCommand(a.routineCmd())
	a.root.AddCommand(a.suggestCmd())
	a.root.AddCommand(a.serveCmd())
	a.root.AddCommand(a.mcpCmd())

	return a
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lifeplan %s (commit: %s)\n", Version, Commit)
		},
	}
}

// Execute runs the CLI application.
func (a *App) Execute() error {
	return a.root.Execute()
}

// Close releases the engine if one was opened.
func (a *App) Close() error {
	if a.engine == nil {
		return nil
	}
	return a.engine.Close()
}

func (a *App) ensureEngine() error {
	if a.engine != nil {
		return nil
	}
	eng, err := OpenEngine(a.config, a.logger)
	if err != nil {
		return err
	}
	a.engine = eng
	return nil
}

// OpenEngine builds an engine over the store selected by cfg.
func OpenEngine(cfg *config.Config, logger *slog.Logger) (*engine.Engine, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var store engine.Store
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		store = memstore.New()
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Storage.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		repo, err := db.New(cfg.Storage.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening database: %w", err)
		}
		store = repo
	}

	eng, err := engine.New(store, engine.Options{
		Planner: planner.Options{
			WorkStart:     cfg.Schedule.WorkStart,
			WorkEnd:       cfg.Schedule.WorkEnd,
			Location:      loc,
			Step:          cfg.Step(),
			BatchLimit:    cfg.Schedule.BatchLimit,
			DefaultEffort: cfg.DefaultEffort(),
			AlignCursor:   cfg.Schedule.AlignCursor,
		},
		ReflectionAt:     cfg.Suggestions.ReflectionAt,
		ReflectionCutoff: cfg.Suggestions.ReflectionCutoff,
		Logger:           logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	logger.Debug("engine opened", "driver", cfg.Storage.Driver, "db_path", cfg.Storage.DBPath, "timezone", loc.String())
	return eng, nil
}
