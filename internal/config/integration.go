package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
)

// GlobalConfig holds the global configuration instance.
var GlobalConfig *Config        //nolint:gochecknoglobals // Singleton pattern for configuration
var globalConfigMu sync.RWMutex //nolint:gochecknoglobals // Protects globalConfigInit flag
var globalConfigInit bool       //nolint:gochecknoglobals // Tracks if global config has been initialized

// InitGlobalConfig initializes the global configuration.
func InitGlobalConfig() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	if globalConfigInit {
		return
	}

	GlobalConfig = New()
	globalConfigInit = true
}

// SetGlobalConfig installs a fully resolved configuration, e.g. one loaded
// from an explicit --config path with flags already applied.
func SetGlobalConfig(cfg *Config) {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	GlobalConfig = cfg
	globalConfigInit = true
}

// ResetGlobalConfigForTest resets the global config for testing purposes.
func ResetGlobalConfigForTest() {
	globalConfigMu.Lock()
	defer globalConfigMu.Unlock()

	GlobalConfig = nil
	globalConfigInit = false
}

// GetGlobalConfig returns the global configuration, initializing it if needed.
func GetGlobalConfig() *Config {
	InitGlobalConfig()
	return GlobalConfig
}

// GetLogLevel returns the configured log level.
func GetLogLevel() string {
	cfg := GetGlobalConfig()
	return cfg.Logging.Level
}

// GetLogFile returns the configured log file path.
func GetLogFile() string {
	cfg := GetGlobalConfig()
	return cfg.Logging.File
}

// GetEndpoint returns the configured gallery endpoint.
func GetEndpoint() string {
	cfg := GetGlobalConfig()
	return cfg.Gallery.Endpoint
}

// GetBatchSize returns the configured upload batch size.
func GetBatchSize() int {
	cfg := GetGlobalConfig()
	return cfg.Upload.BatchSize
}

// GetStrictAPICompatibility reports whether strict API version checking is
// enabled. The CARDLIFT_STRICT_API environment variable takes precedence if
// it parses as a boolean; otherwise the global configuration's value is used.
func GetStrictAPICompatibility() bool {
	if env := os.Getenv(EnvStrictAPI); env != "" {
		if val, err := strconv.ParseBool(env); err == nil {
			return val
		}
	}
	cfg := GetGlobalConfig()
	return cfg.Gallery.StrictAPI
}

// EnsureConfigDir ensures the cardlift configuration directory exists.
// It returns an error if the configuration directory path cannot be determined
// or if creating the directory (and any necessary parents) fails.
func EnsureConfigDir() error {
	dir, err := GetConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// EnsureLogDir ensures the directory for the configured log file exists.
// It reads the global configuration and, if a log file is configured, creates
// its parent directory with permission 0700. If no log file is configured, it
// does nothing.
func EnsureLogDir() error {
	cfg := GetGlobalConfig()
	if cfg.Logging.File == "" {
		return nil
	}
	logDir := filepath.Dir(cfg.Logging.File)
	if err := os.MkdirAll(logDir, 0700); err != nil {
		return fmt.Errorf("failed to create log directory %q: %w", logDir, err)
	}
	return nil
}

// GetConfigDir returns the path to the cardlift configuration directory.
func GetConfigDir() (string, error) {
	if clHome := os.Getenv(EnvHome); clHome != "" {
		return clHome, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".cardlift"), nil
}

// DefaultConfigPath returns the path of the global config file, typically
// ~/.cardlift/config.yaml.
func DefaultConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "config.yaml"), nil
}
