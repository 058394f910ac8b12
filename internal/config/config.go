package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// FileName is the config file inside the home directory.
const FileName = "config.yaml"

// ServerConfig configures `fedviz serve`
type ServerConfig struct {
	// Addr is the listen address
	Addr string `yaml:"addr"`

	// DataDir is scanned recursively for device files
	DataDir string `yaml:"data_dir"`

	// GroupsFile optionally assigns group labels after each load
	GroupsFile string `yaml:"groups_file"`

	// ReloadSchedule is a cron spec for rescanning DataDir; empty disables it
	ReloadSchedule string `yaml:"reload_schedule"`

	// Watch reloads as soon as device files under DataDir change
	Watch bool `yaml:"watch"`
}

// Config represents fedviz configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// SettingsDir holds saved settings tables (DEFAULT, LAST_USED, ...)
	SettingsDir string `yaml:"settings_dir"`

	// GroupsDir holds saved group-label files
	GroupsDir string `yaml:"groups_dir"`

	// SessionDB is the sqlite database of saved sessions
	SessionDB string `yaml:"session_db"`

	// AbsoluteGroupPaths keys saved groups by absolute path instead of file name
	AbsoluteGroupPaths bool `yaml:"absolute_group_paths"`

	// SkipDuplicates ignores files whose name was already loaded
	SkipDuplicates bool `yaml:"skip_duplicates"`

	Server ServerConfig `yaml:"server"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:    "info",
		LogDir:      "logs",
		SettingsDir: "settings",
		GroupsDir:   "groups",
		SessionDB:   filepath.Join("sessions", "sessions.db"),
		Server: ServerConfig{
			Addr:           ":8080",
			ReloadSchedule: "@every 5m",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	setString(&cfg.LogLevel, fileCfg.LogLevel)
	setString(&cfg.LogDir, fileCfg.LogDir)
	setString(&cfg.SettingsDir, fileCfg.SettingsDir)
	setString(&cfg.GroupsDir, fileCfg.GroupsDir)
	setString(&cfg.SessionDB, fileCfg.SessionDB)
	setString(&cfg.Server.Addr, fileCfg.Server.Addr)
	setString(&cfg.Server.DataDir, fileCfg.Server.DataDir)
	setString(&cfg.Server.GroupsFile, fileCfg.Server.GroupsFile)

	// Booleans and the schedule are taken whenever the key is present, so a
	// file can switch them off
	var raw map[string]interface{}
	if err := yaml.Unmarshal(data, &raw); err == nil {
		if _, ok := raw["absolute_group_paths"]; ok {
			cfg.AbsoluteGroupPaths = fileCfg.AbsoluteGroupPaths
		}
		if _, ok := raw["skip_duplicates"]; ok {
			cfg.SkipDuplicates = fileCfg.SkipDuplicates
		}
		if server, ok := raw["server"].(map[string]interface{}); ok {
			if _, ok := server["reload_schedule"]; ok {
				cfg.Server.ReloadSchedule = fileCfg.Server.ReloadSchedule
			}
			if _, ok := server["watch"]; ok {
				cfg.Server.Watch = fileCfg.Server.Watch
			}
		}
	}

	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// Resolve makes every relative path absolute under home.
func (c *Config) Resolve(home string) {
	for _, p := range []*string{&c.LogDir, &c.SettingsDir, &c.GroupsDir, &c.SessionDB} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(home, *p)
		}
	}
}

// MergeWithFlags merges CLI flags into the configuration
// Non-nil flag values override configuration values
func (c *Config) MergeWithFlags(logLevel *string, logDir *string, addr *string, dataDir *string) {
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if logDir != nil {
		c.LogDir = *logDir
	}
	if addr != nil {
		c.Server.Addr = *addr
	}
	if dataDir != nil {
		c.Server.DataDir = *dataDir
	}
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.SessionDB == "" {
		return fmt.Errorf("session_db cannot be empty")
	}

	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr cannot be empty")
	}

	if c.Server.ReloadSchedule != "" {
		if _, err := cron.ParseStandard(c.Server.ReloadSchedule); err != nil {
			return fmt.Errorf("invalid server.reload_schedule %q: %w", c.Server.ReloadSchedule, err)
		}
	}

	return nil
}
