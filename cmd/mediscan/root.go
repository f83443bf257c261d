package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/config"
	"github.com/jackzampolin/mediscan/internal/home"
	"github.com/jackzampolin/mediscan/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
	logFormat    string

	logger = slog.Default()
)

var rootCmd = &cobra.Command{
	Use:   "mediscan",
	Short: "Medication label analysis and report generation",
	Long: `MediScan turns a photo of a tablet strip into a structured medication report.

A vision model describes the medication using a fixed set of labelled sections
(*Composition:*, *Uses:*, *Side Effects:*, ...). MediScan splits that text into
sections, itemizes list-like sections, tags safety sections by severity,
optionally checks interactions with other medications, and renders the result
as PDF, HTML or Markdown.`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := api.SetOutputFormat(outputFormat); err != nil {
			return err
		}
		l, err := newLogger(logLevel, logFormat)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.mediscan/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "mediscan home directory (default: ~/.mediscan)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)
	rootCmd.PersistentFlags().StringVar(
		&logFormat, "log-format", "text", "log format: text or json",
	)

	rootCmd.AddCommand(versionCmd)
}

func newLogger(level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", level, err)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}
	return nil, fmt.Errorf("invalid --log-format %q (want text or json)", format)
}

// getHome returns the home directory from --home or the default.
func getHome() (*home.Dir, error) {
	return home.New(homeDir)
}

// loadConfig returns a config manager for --config, falling back to the
// config file in the home directory when it exists.
func loadConfig() (*config.Manager, error) {
	path := cfgFile
	if path == "" {
		if h, err := getHome(); err == nil && h.ConfigExists() {
			path = h.ConfigPath()
		}
	}
	mgr, err := config.NewManager(path)
	if err != nil {
		return nil, err
	}
	mgr.SetLogger(logger)
	return mgr, nil
}
