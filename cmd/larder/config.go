// Config loading for the larder CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/larder/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	// Config keys.
	cfgKeyDataDir     = "data_dir"
	cfgKeyDBFile      = "db_file"
	cfgKeyBusyTimeout = "busy_timeout_ms"
	cfgKeyForeignKeys = "foreign_keys"

	defaultDBFile      = "larder.db"
	defaultBusyTimeout = 5000
)

// defaultConfigYAML is the content written to config.yaml on first run.
const defaultConfigYAML = `# Larder CLI configuration

# Data directory (optional; overridable by --data-dir flag)
# data_dir:

# Database file name inside the data directory
db_file: larder.db

# SQLite busy timeout in milliseconds
busy_timeout_ms: 5000

# Foreign key enforcement
foreign_keys: true
`

// loadConfig reads config.yaml from the resolved config directory using
// Viper. It creates the config directory and a default config.yaml on first
// run. A missing config.yaml is not an error.
func loadConfig(configDir string) (*viper.Viper, error) {
	if err := ensureConfigDir(configDir); err != nil {
		return nil, fmt.Errorf("ensure config dir: %w", err)
	}
	if err := ensureDefaultConfigFile(configDir); err != nil {
		return nil, fmt.Errorf("ensure default config: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyDBFile, defaultDBFile)
	v.SetDefault(cfgKeyBusyTimeout, defaultBusyTimeout)
	v.SetDefault(cfgKeyForeignKeys, true)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return v, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	return v, nil
}

// storeConfig builds the store configuration from the resolved data
// directory and the loaded config values.
func storeConfig() (types.Config, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return types.Config{}, err
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return types.Config{}, fmt.Errorf("ensure data dir: %w", err)
	}

	configDir, err := resolveConfigDir()
	if err != nil {
		return types.Config{}, err
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return types.Config{}, err
	}

	return types.Config{
		Path:          filepath.Join(dataDir, v.GetString(cfgKeyDBFile)),
		BusyTimeoutMS: v.GetInt(cfgKeyBusyTimeout),
		ForeignKeys:   v.GetBool(cfgKeyForeignKeys),
	}, nil
}

// ensureConfigDir creates the config directory if it does not exist.
func ensureConfigDir(configDir string) error {
	return os.MkdirAll(configDir, 0o755)
}

// ensureDefaultConfigFile creates a default config.yaml if the file does not
// exist in the config directory.
func ensureDefaultConfigFile(configDir string) error {
	path := filepath.Join(configDir, configFileExt)

	_, err := os.Stat(path)
	if err == nil {
		return nil
	}
	if !os.IsNotExist(err) {
		return fmt.Errorf("stat config file: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}
