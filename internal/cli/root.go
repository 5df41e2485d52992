// Package cli wires the ghactions commands: workflow linting, the terminal
// inspector, context and event helpers, and the local webhook bridge.
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/mlanghorne/ghactions/internal/config"
	"github.com/mlanghorne/ghactions/internal/logging"
	"github.com/mlanghorne/ghactions/internal/tui"
)

// Execute runs the root command.
func Execute() {
	cmd := NewRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// NewRootCmd builds the ghactions command tree.
func NewRootCmd() *cobra.Command {
	var projectDir string

	cmd := &cobra.Command{
		Use:          "ghactions",
		Short:        "ghactions — a toolkit for developing GitHub Actions workflows",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInspector(projectDir)
		},
	}

	cmd.PersistentFlags().StringVarP(&projectDir, "project", "p", "", "Project root (defaults to the current directory)")

	cmd.AddCommand(
		initCmd(&projectDir),
		lintCmd(&projectDir),
		inspectCmd(&projectDir),
		contextCmd(),
		eventCmd(),
		serveCmd(&projectDir),
	)
	return cmd
}

func resolveProjectDir(flag *string) (string, error) {
	dir := ""
	if flag != nil {
		dir = *flag
	}
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("cli: resolve working directory: %w", err)
		}
		dir = wd
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("cli: resolve project dir: %w", err)
	}
	return abs, nil
}

func initCmd(projectDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the .ghactions directory structure",
		RunE: func(cmd *cobra.Command, _ []string) error {
			dir, err := resolveProjectDir(projectDir)
			if err != nil {
				return err
			}
			if err := config.InitDotDir(dir); err != nil {
				return fmt.Errorf("cli: init project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized %s\n", filepath.Join(dir, config.DotDir))
			return nil
		},
	}
}

func inspectCmd(projectDir *string) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect",
		Short: "Browse workflows in the terminal inspector",
		RunE: func(_ *cobra.Command, _ []string) error {
			dir, err := resolveProjectDir(projectDir)
			if err != nil {
				return err
			}
			return runInspector(dir)
		},
	}
}

func runInspector(projectDir string) error {
	dir, err := resolveProjectDir(&projectDir)
	if err != nil {
		return err
	}
	logger, err := logging.New(dir)
	if err != nil {
		return err
	}
	defer logger.Close()
	app, err := tui.NewApp(dir, tui.WithLogger(logger))
	if err != nil {
		return err
	}
	program := tea.NewProgram(app, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
