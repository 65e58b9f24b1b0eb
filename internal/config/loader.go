package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// InitViper initializes Viper with the configuration file and environment
// variables. If configFile is empty, governor.yaml/.yml is searched in the
// standard locations. The search requires an explicit YAML extension so
// Viper never matches the binary itself.
func InitViper(configFile string) {
	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else if found := findConfigFile(); found != "" {
		viper.SetConfigFile(found)
	} else {
		viper.SetConfigName("governor")
		viper.SetConfigType("yaml")
	}

	// Environment variable support: GOVERNOR_SERVER_HTTP_ADDR, etc.
	viper.SetEnvPrefix("GOVERNOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	bindNestedEnvKeys()
}

// ConfigFileUsed returns the path of the config file Viper loaded, if any.
func ConfigFileUsed() string {
	return viper.ConfigFileUsed()
}

// findConfigFile searches standard locations for a governor config file
// with an explicit .yaml or .yml extension.
func findConfigFile() string {
	home, _ := os.UserHomeDir()
	paths := []string{
		".",
		filepath.Join(home, ".governor"),
		"/etc/governor",
	}
	for _, dir := range paths {
		for _, ext := range []string{".yaml", ".yml"} {
			path := filepath.Join(dir, "governor"+ext)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// bindNestedEnvKeys binds nested config keys for env var overrides.
func bindNestedEnvKeys() {
	_ = viper.BindEnv("server.http_addr")
	_ = viper.BindEnv("server.log_level")
	_ = viper.BindEnv("server.shutdown_timeout")

	_ = viper.BindEnv("storage.path")
	_ = viper.BindEnv("storage.timeout")

	_ = viper.BindEnv("envelope.default_ttl")

	_ = viper.BindEnv("cache.enabled")
	_ = viper.BindEnv("cache.ttl")
	_ = viper.BindEnv("cache.propagation_bound")
	_ = viper.BindEnv("cache.max_entries")

	_ = viper.BindEnv("dev_mode")
}
