package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/mediscan/internal/api"
	"github.com/jackzampolin/mediscan/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the MediScan config file",
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	Long: `Write the default config file to --config, or to config.yaml in the
MediScan home directory. An existing file is left alone unless --force is set.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			h, err := getHome()
			if err != nil {
				return err
			}
			if err := h.EnsureExists(); err != nil {
				return err
			}
			path = h.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config with secrets masked",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if f := mgr.ConfigFile(); f != "" {
			logger.Debug("config file", "path", f)
		}
		return api.Output(mgr.Get().Masked())
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a config value and write it to the config file",
	Long: `Set a config value by dotted key and write the config file.

Examples:
  mediscan config set report.format html
  mediscan config set defaults.analysis_provider openai
  mediscan config set providers.openai.enabled true`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := loadConfig()
		if err != nil {
			return err
		}
		if mgr.ConfigFile() == "" {
			return fmt.Errorf("no config file found (run mediscan config init first)")
		}
		return mgr.Set(args[0], parseValue(args[1]))
	},
}

// parseValue turns "true", "false" and integers into typed values so they
// round-trip through YAML as scalars of the right kind.
func parseValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
