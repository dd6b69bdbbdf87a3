// Root command for the larder CLI.
package main

import (
	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/larder/internal/paths"
	"github.com/mesh-intelligence/larder/pkg/larder"
)

// Exit codes.
const (
	exitSuccess   = 0
	exitUserError = 1
	exitSysError  = 2
)

// Global flag values.
var (
	flagConfigDir string
	flagDataDir   string
)

// configDataDir holds the data_dir value loaded from config.yaml. Set by
// PersistentPreRunE so all subcommands can use it.
var configDataDir string

var rootCmd = &cobra.Command{
	Use:     "larder",
	Short:   "Larder derives SQL queries from method names and manages SQLite-backed entity storage",
	Version: larder.Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Commands that never touch storage run without configuration.
		switch cmd.Name() {
		case "version", "derive":
			return nil
		}

		configDir, err := resolveConfigDir()
		if err != nil {
			return err
		}
		cfg, err := loadConfig(configDir)
		if err != nil {
			return err
		}
		configDataDir = cfg.GetString(cfgKeyDataDir)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: platform config dir)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (default: $(CWD)/.larder-db)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(deriveCmd)
	rootCmd.AddCommand(schemaCmd)
}

// resolveConfigDir returns the configuration directory following the
// precedence: --config-dir flag > LARDER_CONFIG_DIR env > platform default.
func resolveConfigDir() (string, error) {
	return paths.ResolveConfigDir(flagConfigDir)
}

// resolveDataDir returns the data directory following the precedence:
// --data-dir flag > config.yaml data_dir > LARDER_DATA_DIR env > default.
func resolveDataDir() (string, error) {
	return paths.ResolveDataDir(flagDataDir, configDataDir)
}
