// Copyright 2025 Raamsri Kumar <raam@tinkershack.in>
// Copyright 2025 The StrataSTOR Authors and Contributors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/stratastor/logger"
	"github.com/stratastor/warren/internal/constants"
	"gopkg.in/yaml.v3"
)

var (
	instance   *Config
	once       sync.Once
	configPath string // Tracks where the config was loaded from
)

type Config struct {
	Server struct {
		Port      int    `mapstructure:"port"`
		LogLevel  string `mapstructure:"logLevel"`
		Daemonize bool   `mapstructure:"daemonize"`
	} `mapstructure:"server"`

	// Sandbox confines every ACL and file operation to one directory tree.
	Sandbox struct {
		Root string `mapstructure:"root"`
		// AllowDefaultEntries toggles whether default-scope (inheritance)
		// ACL entries may be managed at all. Some deployments disable it.
		AllowDefaultEntries bool `mapstructure:"allowDefaultEntries"`
		// AllowedExtensions gates which file types the browse/preview
		// endpoints will serve content for.
		AllowedExtensions []string `mapstructure:"allowedExtensions"`
	} `mapstructure:"sandbox"`

	ACL struct {
		GetfaclPath      string `mapstructure:"getfaclPath"`
		SetfaclPath      string `mapstructure:"setfaclPath"`
		VerifyPrincipals bool   `mapstructure:"verifyPrincipals"`
	} `mapstructure:"acl"`

	// Directory configures optional LDAP verification of named principals.
	Directory struct {
		Enabled      bool   `mapstructure:"enabled"`
		LDAPURL      string `mapstructure:"ldapURL"`
		BaseDN       string `mapstructure:"baseDN"`
		BindDN       string `mapstructure:"bindDN"`
		BindPassword string `mapstructure:"bindPassword"`
		UserOU       string `mapstructure:"userOU"`  // relative to BaseDN
		GroupOU      string `mapstructure:"groupOU"` // relative to BaseDN
	} `mapstructure:"directory"`

	Audit struct {
		Enabled bool   `mapstructure:"enabled"`
		Cron    string `mapstructure:"cron"`
	} `mapstructure:"audit"`

	Health struct {
		Interval string `mapstructure:"interval"`
		Endpoint string `mapstructure:"endpoint"`
	} `mapstructure:"health"`

	Logs struct {
		Path      string `mapstructure:"path"`
		Retention string `mapstructure:"retention"`
		Output    string `mapstructure:"output"` // stdout or file
	} `mapstructure:"logs"`

	Logger struct {
		LogLevel     string `mapstructure:"logLevel"`
		EnableSentry bool   `mapstructure:"enableSentry"`
		SentryDSN    string `mapstructure:"sentryDSN"`
	} `mapstructure:"logger"`

	Environment string `mapstructure:"environment"`
}

// LoadConfig loads the configuration with precedence rules.
func LoadConfig(configFilePath string) *Config {
	once.Do(func() {
		// Setup basic logger for initialization
		logConfig := logger.Config{
			LogLevel:     "info",
			EnableSentry: false,
			SentryDSN:    "",
		}
		l, err := logger.NewTag(logConfig, "config")
		if err != nil {
			fmt.Printf("Failed to create logger: %v\n", err)
			os.Exit(1)
		}

		// Reset viper to avoid any potential carryover
		viper.Reset()
		viper.SetConfigType("yaml")

		// Determine which config file to use with clear priorities
		systemConfigPath := filepath.Join(GetConfigDir(), constants.ConfigFileName)

		if configFilePath != "" {
			// 1. Priority: Explicit path from command line
			configPath = configFilePath
		} else if envPath := os.Getenv("WARREN_CONFIG"); envPath != "" {
			// 2. Priority: Environment variable
			configPath = envPath
		} else {
			// 3. Priority: Always default to system-wide config
			configPath = systemConfigPath
		}

		l.Info("Using config file", "path", configPath)

		// Convert to absolute path if possible for consistency
		absPath, err := filepath.Abs(configPath)
		if err == nil {
			configPath = absPath
		}

		viper.SetConfigFile(configPath)

		// Set defaults
		viper.SetDefault("environment", "dev")
		viper.SetDefault("server.port", 8077)
		viper.SetDefault("server.logLevel", "debug")
		viper.SetDefault("server.daemonize", false)

		viper.SetDefault("sandbox.root", "/data")
		viper.SetDefault("sandbox.allowDefaultEntries", true)
		viper.SetDefault("sandbox.allowedExtensions",
			[]string{"csv", "txt", "pdf", "jpg", "jpeg", "png"})

		viper.SetDefault("acl.getfaclPath", "/usr/bin/getfacl")
		viper.SetDefault("acl.setfaclPath", "/usr/bin/setfacl")
		viper.SetDefault("acl.verifyPrincipals", true)

		viper.SetDefault("directory.enabled", false)
		viper.SetDefault("directory.ldapURL", "")
		viper.SetDefault("directory.baseDN", "")
		viper.SetDefault("directory.bindDN", "")
		viper.SetDefault("directory.bindPassword", "")
		viper.SetDefault("directory.userOU", "OU=Users")
		viper.SetDefault("directory.groupOU", "OU=Groups")

		viper.SetDefault("audit.enabled", false)
		viper.SetDefault("audit.cron", "0 3 * * *")

		viper.SetDefault("health.interval", "30s")
		viper.SetDefault("health.endpoint", "/health")
		viper.SetDefault("logs.path", "/var/log/warren/warren.log")
		viper.SetDefault("logs.retention", "7d")
		viper.SetDefault("logs.output", "stdout")
		viper.SetDefault("logger.logLevel", "debug")
		viper.SetDefault("logger.enableSentry", false)
		viper.SetDefault("logger.sentryDSN", "")

		// Bind environment variables
		viper.AutomaticEnv()
		viper.SetEnvPrefix("WARREN")
		viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

		// Try to read the config file
		err = viper.ReadInConfig()

		// Handle missing or invalid config
		if err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				// File doesn't exist, create a default one
				l.Info(
					"Config file not found, creating default at system path",
					"path",
					systemConfigPath,
				)

				if err := os.MkdirAll(GetConfigDir(), 0755); err != nil {
					l.Error("Failed to create config directory", "err", err)
				}

				var cfg Config
				if err := viper.Unmarshal(&cfg); err != nil {
					l.Error("Failed to unmarshal default configuration", "err", err)
				}

				instance = &cfg
				configPath = systemConfigPath

				if err := SaveConfig(systemConfigPath); err != nil {
					l.Error("Failed to save default configuration", "err", err)
				}
			} else {
				// Some other error (parse error, etc.)
				l.Error("Error reading config file", "err", err)

				// Still use defaults
				var cfg Config
				if err := viper.Unmarshal(&cfg); err != nil {
					l.Error("Failed to unmarshal default configuration", "err", err)
				}

				instance = &cfg
			}
		} else {
			l.Info("Config file loaded successfully", "path", viper.ConfigFileUsed())
			configPath = viper.ConfigFileUsed()

			var cfg Config
			if err := viper.Unmarshal(&cfg); err != nil {
				l.Error("Failed to parse configuration", "err", err)
			} else {
				instance = &cfg
			}
		}

		// Log config values for debugging (redact sensitive data)
		debugCfg := *instance
		debugCfg.Directory.BindPassword = "[REDACTED]"
		l.Debug("Loaded configuration", "config", fmt.Sprintf("%+v", debugCfg))
	})

	return instance
}

// SaveConfig persists the current configuration to a specified path.
func SaveConfig(path string) error {
	if path == "" {
		if err := os.MkdirAll(GetConfigDir(), 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		path = filepath.Join(GetConfigDir(), constants.ConfigFileName)
	}

	// Create parent directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	configYAML, err := yaml.Marshal(instance)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	if err := os.WriteFile(path, configYAML, 0644); err != nil {
		return fmt.Errorf("failed to write configuration to file: %w", err)
	}

	// Update the tracked config path
	configPath = path

	return nil
}

// GetLoadedConfigPath returns the path of the currently loaded configuration file.
func GetLoadedConfigPath() string {
	return configPath
}

// GetConfig returns the current configuration instance.
func GetConfig() *Config {
	if instance == nil {
		return LoadConfig("")
	}
	return instance
}

// GetConfigDir returns the appropriate configuration directory.
// Root uses the system directory, everyone else their home directory.
func GetConfigDir() string {
	if os.Geteuid() == 0 {
		return "/etc/warren"
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fall back to CWD-relative config; better than aborting at import
		return ".warren"
	}

	return filepath.Join(homeDir, ".warren")
}

func NewLoggerConfig(cfg *Config) logger.Config {
	if cfg == nil {
		return logger.Config{
			LogLevel:     "info",
			EnableSentry: false,
			SentryDSN:    "",
		}
	}

	return logger.Config{
		LogLevel:     cfg.Logger.LogLevel,
		EnableSentry: cfg.Logger.EnableSentry,
		SentryDSN:    cfg.Logger.SentryDSN,
	}
}
