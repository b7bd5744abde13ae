// Config loading for the shelf CLI.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/mesh-intelligence/shelf/internal/paths"
	"github.com/mesh-intelligence/shelf/pkg/types"
)

const (
	configFileName = "config"
	configFileType = "yaml"
	configFileExt  = "config.yaml"

	cfgKeyBackend   = "backend"
	cfgKeyAddr      = "addr"
	cfgKeyPassword  = "password"
	cfgKeyDB        = "db"
	cfgKeyDataDir   = "data_dir"
	cfgKeyTxRetries = "tx_retries"

	defaultBackend = types.BackendSQLite
)

// defaultConfigYAML is written to config.yaml by shelf init.
const defaultConfigYAML = `# Shelf CLI configuration

# Store backend: redis, sqlite, or memory
backend: sqlite

# Redis connection (backend: redis)
# addr: localhost:6379
# password:
# db: 0

# SQLite data directory (backend: sqlite; overridable by --data-dir)
# data_dir:

# Retry bound for contended mutations
# tx_retries: 5
`

// shelfConfig is the effective store configuration, assembled by
// loadGlobalConfig from flags, environment, and config.yaml.
var shelfConfig types.Config

// loadGlobalConfig reads config.yaml from the resolved config
// directory and merges it with flag and environment overrides. A
// missing config file is not an error.
func loadGlobalConfig() error {
	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return fmt.Errorf("resolving config dir: %w", err)
	}

	v := viper.New()
	v.SetDefault(cfgKeyBackend, defaultBackend)
	v.SetConfigName(configFileName)
	v.SetConfigType(configFileType)
	v.AddConfigPath(configDir)
	v.SetEnvPrefix("SHELF")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("reading config: %w", err)
		}
	}

	shelfConfig = types.Config{
		Backend:   v.GetString(cfgKeyBackend),
		Addr:      v.GetString(cfgKeyAddr),
		Password:  v.GetString(cfgKeyPassword),
		DB:        v.GetInt(cfgKeyDB),
		TxRetries: v.GetInt(cfgKeyTxRetries),
	}
	if flagBackend != "" {
		shelfConfig.Backend = flagBackend
	}
	if flagAddr != "" {
		shelfConfig.Addr = flagAddr
	}

	dataDir, err := paths.ResolveDataDir(flagDataDir, v.GetString(cfgKeyDataDir))
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}
	shelfConfig.DataDir = dataDir

	return nil
}

// ensureDefaultConfigFile creates the config directory and a default
// config.yaml when the file does not exist yet.
func ensureDefaultConfigFile() (string, error) {
	configDir, err := paths.ResolveConfigDir(flagConfigDir)
	if err != nil {
		return "", fmt.Errorf("resolving config dir: %w", err)
	}
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return "", fmt.Errorf("creating config dir: %w", err)
	}

	path := filepath.Join(configDir, configFileExt)
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}
	if err := os.WriteFile(path, []byte(defaultConfigYAML), 0o644); err != nil {
		return "", fmt.Errorf("writing default config: %w", err)
	}
	return path, nil
}
