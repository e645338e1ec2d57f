package ui

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/javiermolinar/lifeplan/internal/config"
)

func (a *App) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit configuration",
		Long: `Interactive configuration management.

If no config file exists, creates one with default values.
Otherwise, displays current config and allows editing.

Example:
  lifeplan config`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfigInteractive(cmd.InOrStdin(), cmd.OutOrStdout(), config.DefaultConfigPath())
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			printConfig(cmd.OutOrStdout(), a.config)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the config file location",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), config.DefaultConfigPath())
		},
	})

	return cmd
}

func runConfigInteractive(in io.Reader, out io.Writer, configPath string) error {
	fmt.Fprintf(out, "Config file: %s\n\n", configPath)

	cfg, err := config.LoadFrom(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	_, fileErr := os.Stat(configPath)
	if os.IsNotExist(fileErr) {
		fmt.Fprintln(out, "No config file found. Creating with default values...")
		if err := cfg.SaveTo(configPath); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		fmt.Fprintf(out, "Created %s\n\n", configPath)
	}

	printConfig(out, cfg)

	reader := bufio.NewReader(in)
	if !promptYesNo(reader, out, "\nWould you like to edit the configuration?") {
		return nil
	}

	cfg.Schedule.WorkStart = promptValue(reader, out, "Work start", cfg.Schedule.WorkStart)
	cfg.Schedule.WorkEnd = promptValue(reader, out, "Work end", cfg.Schedule.WorkEnd)
	cfg.Schedule.Timezone = promptValue(reader, out, "Timezone (Local or IANA name)", cfg.Schedule.Timezone)
	cfg.Schedule.StepMinutes = promptInt(reader, out, "Slot step minutes", cfg.Schedule.StepMinutes)
	cfg.Schedule.BatchLimit = promptInt(reader, out, "Tasks per plan run", cfg.Schedule.BatchLimit)
	cfg.Schedule.DefaultEffortMinutes = promptInt(reader, out, "Default effort minutes", cfg.Schedule.DefaultEffortMinutes)
	cfg.Suggestions.ReflectionAt = promptValue(reader, out, "Evening reflection at", cfg.Suggestions.ReflectionAt)
	cfg.Suggestions.ReflectionCutoff = promptValue(reader, out, "Reflection cutoff", cfg.Suggestions.ReflectionCutoff)
	cfg.Storage.DBPath = promptValue(reader, out, "Database path", cfg.Storage.DBPath)
	cfg.Server.Addr = promptValue(reader, out, "API listen address", cfg.Server.Addr)

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	if err := cfg.SaveTo(configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "\nConfiguration saved!")
	return nil
}

func printConfig(out io.Writer, cfg *config.Config) {
	fmt.Fprintln(out, "Current configuration:")
	fmt.Fprintln(out, "──────────────────────")
	fmt.Fprintln(out, "[schedule]")
	fmt.Fprintf(out, "  work_start             = %s\n", cfg.Schedule.WorkStart)
	fmt.Fprintf(out, "  work_end               = %s\n", cfg.Schedule.WorkEnd)
	fmt.Fprintf(out, "  timezone               = %s\n", cfg.Schedule.Timezone)
	fmt.Fprintf(out, "  step_minutes           = %d\n", cfg.Schedule.StepMinutes)
	fmt.Fprintf(out, "  batch_limit            = %d\n", cfg.Schedule.BatchLimit)
	fmt.Fprintf(out, "  default_effort_minutes = %d\n", cfg.Schedule.DefaultEffortMinutes)
	fmt.Fprintf(out, "  align_cursor           = %t\n", cfg.Schedule.AlignCursor)
	fmt.Fprintln(out, "\n[suggestions]")
	fmt.Fprintf(out, "  reflection_at          = %s\n", cfg.Suggestions.ReflectionAt)
	fmt.Fprintf(out, "  reflection_cutoff      = %s\n", cfg.Suggestions.ReflectionCutoff)
	fmt.Fprintf(out, "  evaluate_cron          = %s\n", cfg.Suggestions.EvaluateCron)
	fmt.Fprintln(out, "\n[storage]")
	fmt.Fprintf(out, "  driver                 = %s\n", cfg.Storage.Driver)
	fmt.Fprintf(out, "  db_path                = %s\n", cfg.Storage.DBPath)
	fmt.Fprintln(out, "\n[log]")
	fmt.Fprintf(out, "  level                  = %s\n", cfg.Log.Level)
	fmt.Fprintf(out, "  format                 = %s\n", cfg.Log.Format)
	fmt.Fprintln(out, "\n[server]")
	fmt.Fprintf(out, "  addr                   = %s\n", cfg.Server.Addr)
	token := "(none)"
	if cfg.Server.AuthToken != "" {
		token = "(set)"
	}
	fmt.Fprintf(out, "  auth_token             = %s\n", token)
}

func promptYesNo(reader *bufio.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(strings.ToLower(input))
	return input == "y" || input == "yes"
}

func promptValue(reader *bufio.Reader, out io.Writer, label, current string) string {
	if current == "" {
		fmt.Fprintf(out, "  %s: ", label)
	} else {
		fmt.Fprintf(out, "  %s [%s]: ", label, current)
	}
	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)
	if input == "" {
		return current
	}
	return input
}

func promptInt(reader *bufio.Reader, out io.Writer, label string, current int) int {
	for {
		value := promptValue(reader, out, label, strconv.Itoa(current))
		n, err := strconv.Atoi(value)
		if err == nil {
			return n
		}
		fmt.Fprintf(out, "  Invalid number %q\n", value)
	}
}
