// Package config provides YAML-based configuration loading for signalbox.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// Config is the top-level signalbox configuration, loaded from signalbox.yaml.
type Config struct {
	Slack     SlackConfig     `yaml:"slack"`
	ChatLog   ChatLogConfig   `yaml:"chatlog"`
	Database  DatabaseConfig  `yaml:"database"`
	Directory DirectoryConfig `yaml:"directory"`
	Dashboard DashboardConfig `yaml:"dashboard"`
	Log       LogConfig       `yaml:"log"`
}

// SlackConfig holds Socket Mode credentials.
type SlackConfig struct {
	AppToken       string `yaml:"app_token"` // xapp-...
	BotToken       string `yaml:"bot_token"` // xoxb-...
	DefaultChannel string `yaml:"default_channel"`
}

// ChatLogConfig controls the per-room audit logs.
type ChatLogConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Location string `yaml:"location"`
}

// DatabaseConfig selects where the user/room directory is stored.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"` // sqlite or mysql
	Path     string `yaml:"path"`   // sqlite file
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// DirectoryConfig controls syncing users and rooms from Slack.
type DirectoryConfig struct {
	SyncOnStart *bool  `yaml:"sync_on_start"`
	SyncCron    string `yaml:"sync_cron"` // 5-field cron; empty disables
}

// DashboardConfig holds the log browser settings.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// LogConfig controls the daemon's own diagnostics.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // auto, text, json
}

// Database drivers.
const (
	DriverSQLite = "sqlite"
	DriverMySQL  = "mysql"
)

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references from the environment, then unmarshals
// YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// SyncOnStartEnabled reports whether the directory is synced when the daemon
// starts. Unset means yes.
func (d DirectoryConfig) SyncOnStartEnabled() bool {
	return d.SyncOnStart == nil || *d.SyncOnStart
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.ChatLog.Location == "" {
		c.ChatLog.Location = "./chatlogs"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverSQLite
	}
	if c.Database.Driver == DriverSQLite && c.Database.Path == "" {
		c.Database.Path = "signalbox.db"
	}
	if c.Database.Driver == DriverMySQL {
		if c.Database.Host == "" {
			c.Database.Host = "127.0.0.1"
		}
		if c.Database.Port == 0 {
			c.Database.Port = 3306
		}
		if c.Database.User == "" {
			c.Database.User = "root"
		}
		if c.Database.Name == "" {
			c.Database.Name = "signalbox"
		}
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "auto"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	if c.Slack.AppToken == "" {
		errs = append(errs, "slack.app_token is required")
	} else if !strings.HasPrefix(c.Slack.AppToken, "xapp-") {
		errs = append(errs, "slack.app_token must start with xapp-")
	}
	if c.Slack.BotToken == "" {
		errs = append(errs, "slack.bot_token is required")
	} else if !strings.HasPrefix(c.Slack.BotToken, "xoxb-") {
		errs = append(errs, "slack.bot_token must start with xoxb-")
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverMySQL:
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q must be sqlite or mysql", c.Database.Driver))
	}
	if c.Directory.SyncCron != "" {
		if _, err := cron.ParseStandard(c.Directory.SyncCron); err != nil {
			errs = append(errs, fmt.Sprintf("directory.sync_cron %q: %v", c.Directory.SyncCron, err))
		}
	}
	if c.Dashboard.Port < 0 || c.Dashboard.Port > 65535 {
		errs = append(errs, fmt.Sprintf("dashboard.port %d out of range", c.Dashboard.Port))
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	switch c.Log.Format {
	case "auto", "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("log.format %q must be auto, text or json", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
