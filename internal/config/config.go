package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the bridge configuration
type Config struct {
	// Device configuration
	DeviceToken string `mapstructure:"device_token"`

	// Platform API configuration
	APIBaseURL            string `mapstructure:"api_base_url"`
	UserAgent             string `mapstructure:"user_agent"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level"`
	LogFile  string `mapstructure:"log_file"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:            "https://api.foxglove.dev",
		UserAgent:             "",
		RequestTimeoutSeconds: 30,
		LogLevel:              "info",
		LogFile:               "",
	}
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()

	setDefaults(v, cfg)

	// Configure file locations
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		// Look for config in current directory and common locations
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/foxglove-bridge")

		// Add user config directory
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".foxglove-bridge"))
		}
	}

	// Environment variable configuration
	v.SetEnvPrefix("FOXGLOVE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read configuration file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults
	}

	// Unmarshal into struct
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("device_token", cfg.DeviceToken)
	v.SetDefault("api_base_url", cfg.APIBaseURL)
	v.SetDefault("user_agent", cfg.UserAgent)
	v.SetDefault("request_timeout_seconds", cfg.RequestTimeoutSeconds)
	v.SetDefault("log_level", cfg.LogLevel)
	v.SetDefault("log_file", cfg.LogFile)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.APIBaseURL == "" {
		return fmt.Errorf("api_base_url is required")
	}

	if c.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("request_timeout_seconds must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}

	return nil
}

// HasDeviceToken returns true if a device token has been configured
func (c *Config) HasDeviceToken() bool {
	return c.DeviceToken != ""
}
