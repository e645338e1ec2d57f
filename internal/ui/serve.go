package ui

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/api"
	"github.com/javiermolinar/lifeplan/internal/mcp"
)

const shutdownGrace = 10 * time.Second

func (a *App) serveCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the JSON API and evaluate suggestion rules on the configured
cron schedule (suggestions.evaluate_cron). Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}
			if addr == "" {
				addr = a.config.Server.Addr
			}
			return a.runServer(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	return cmd
}

func (a *App) runServer(addr string) error {
	ticker, err := api.NewTicker(a.config.Suggestions.EvaluateCron, a.engine, a.logger.With("component", "ticker"))
	if err != nil {
		return err
	}
	server := api.NewServer(addr, a.config.Server.AuthToken, a.engine, a.logger.With("component", "http"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ticker.Start(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	var runErr error
	select {
	case sig := <-sigs:
		a.logger.Info("received signal", "signal", sig.String())
	case runErr = <-serverErr:
		a.logger.Error("server error", "err", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("server shutdown", "err", err)
	}

	cancel()
	select {
	case <-ticker.Stop().Done():
	case <-time.After(shutdownGrace):
		a.logger.Warn("ticker stop timed out")
	}
	return runErr
}

func (a *App) mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Run the MCP server over stdio",
		Long: `Expose planning, tasks, routines and suggestions as MCP tools on
stdin/stdout so an assistant can drive lifeplan.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := a.ensureEngine(); err != nil {
				return err
			}
			if err := mcp.NewMCPServer(a.engine, a.logger.With("component", "mcp"), Version).Run(); err != nil {
				return fmt.Errorf("mcp server: %w", err)
			}
			return nil
		},
	}
}
