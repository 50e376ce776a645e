// Package config resolves historyctl's configuration: the default
// database path and repository identity, following the same precedence
// order (flag > environment > config file > default) the rest of the
// ecosystem uses.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

var v *viper.Viper

// Initialize sets up the viper configuration singleton. Must be called
// once at application startup before any accessor below is used.
func Initialize() error {
	v = viper.New()
	v.SetConfigType("yaml")

	configFileSet := false

	cwd, err := os.Getwd()
	if err == nil {
		for dir := cwd; dir != filepath.Dir(dir); dir = filepath.Dir(dir) {
			configPath := filepath.Join(dir, ".history", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
				break
			}
		}
	}

	if !configFileSet {
		if configDir, err := os.UserConfigDir(); err == nil {
			configPath := filepath.Join(configDir, "historyctl", "config.yaml")
			if _, statErr := os.Stat(configPath); statErr == nil {
				v.SetConfigFile(configPath)
				configFileSet = true
			}
		}
	}

	v.SetEnvPrefix("HISTORYCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("db", ".history/repo.db")
	v.SetDefault("fqrn", "")
	v.SetDefault("json", false)
	v.SetDefault("audit-log", ".history/audit.jsonl")

	if configFileSet {
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}
	return nil
}

// ConfigSource represents where a configuration value came from.
type ConfigSource string

const (
	SourceDefault    ConfigSource = "default"
	SourceConfigFile ConfigSource = "config_file"
	SourceEnvVar     ConfigSource = "env_var"
)

// GetValueSource reports where key's effective value came from: an
// environment variable, the config file, or the registered default.
func GetValueSource(key string) ConfigSource {
	if v == nil {
		return SourceDefault
	}
	envKey := strings.ToUpper("HISTORYCTL_" + strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if _, ok := os.LookupEnv(envKey); ok {
		return SourceEnvVar
	}
	if v.ConfigFileUsed() != "" && v.InConfig(key) {
		return SourceConfigFile
	}
	return SourceDefault
}

func GetString(key string) string { return v.GetString(key) }
func GetBool(key string) bool     { return v.GetBool(key) }
func Set(key string, value any)   { v.Set(key, value) }
func AllSettings() map[string]any { return v.AllSettings() }
