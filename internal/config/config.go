// Package config loads mlagent configuration from ~/.mlagent/config.yaml
// and MLAGENT_* environment variables via viper.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	fileName = "config"
	fileType = "yaml"
	homeDir  = ".mlagent"
)

// Config keys.
const (
	KeySocket      = "socket"
	KeyDB          = "db"
	KeyPkgInfoRoot = "pkginfo_root"
	KeyLogLevel    = "log_level"
)

// Dir returns the mlagent home directory (~/.mlagent).
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", homeDir)
	}
	return filepath.Join(home, homeDir)
}

// FilePath returns the full path to the config file (~/.mlagent/config.yaml).
func FilePath() string {
	return filepath.Join(Dir(), fileName+"."+fileType)
}

// EnsureDir creates the config directory if it does not exist.
func EnsureDir() error {
	dir := Dir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}
	return nil
}

// Load initializes viper with defaults, the config file, and environment.
func Load() {
	viper.SetConfigFile(FilePath())
	viper.SetConfigType(fileType)
	viper.SetEnvPrefix("MLAGENT")
	viper.AutomaticEnv()

	viper.SetDefault(KeySocket, filepath.Join(Dir(), "mlagent.sock"))
	viper.SetDefault(KeyDB, filepath.Join(Dir(), "registry.json"))
	viper.SetDefault(KeyPkgInfoRoot, "/var/lib/mlagent/pkginfo")
	viper.SetDefault(KeyLogLevel, "info")

	// Ignore error if config file doesn't exist yet.
	_ = viper.ReadInConfig()
}

// Socket returns the registry daemon socket path.
func Socket() string {
	return viper.GetString(KeySocket)
}

// DB returns the registry database file path.
func DB() string {
	return viper.GetString(KeyDB)
}

// PkgInfoRoot returns the package info directory.
func PkgInfoRoot() string {
	return viper.GetString(KeyPkgInfoRoot)
}

// LogLevel returns the configured log level.
func LogLevel() string {
	return viper.GetString(KeyLogLevel)
}

// Set writes a config key-value pair and saves the config file.
func Set(key, value string) error {
	if err := EnsureDir(); err != nil {
		return err
	}

	viper.Set(key, value)

	configFile := FilePath()
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("creating config file %s: %w", configFile, err)
		}
		f.Close()
	}

	if err := viper.WriteConfigAs(configFile); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
