package main

import (
	"fmt"
	"os"

	"github.com/javiermolinar/lifeplan/internal/config"
	"github.com/javiermolinar/lifeplan/internal/logging"
	"github.com/javiermolinar/lifeplan/internal/ui"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)

	app := ui.NewApp(nil, cfg, logger)
	defer func() { _ = app.Close() }()
	return app.Execute()
}
