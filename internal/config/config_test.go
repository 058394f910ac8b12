package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadConfig_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_MergesWithDefaults(t *testing.T) {
	path := writeConfig(t, `
log_level: debug
skip_duplicates: true
server:
  data_dir: /data/feds
`)
	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.SkipDuplicates)
	assert.False(t, cfg.AbsoluteGroupPaths)
	assert.Equal(t, "/data/feds", cfg.Server.DataDir)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "@every 5m", cfg.Server.ReloadSchedule)
	assert.Equal(t, "logs", cfg.LogDir)
}

func TestLoadConfig_EmptyScheduleDisablesReload(t *testing.T) {
	path := writeConfig(t, "server:\n  reload_schedule: \"\"\n  watch: true\n")
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Empty(t, cfg.Server.ReloadSchedule)
	assert.True(t, cfg.Server.Watch)
}

func TestLoadConfig_Malformed(t *testing.T) {
	path := writeConfig(t, "log_level: [unclosed\n")
	_, err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config file")
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GroupsDir = "/abs/groups"
	cfg.Resolve("/home/fed")

	assert.Equal(t, filepath.Join("/home/fed", "logs"), cfg.LogDir)
	assert.Equal(t, filepath.Join("/home/fed", "settings"), cfg.SettingsDir)
	assert.Equal(t, "/abs/groups", cfg.GroupsDir)
	assert.Equal(t, filepath.Join("/home/fed", "sessions", "sessions.db"), cfg.SessionDB)
}

func TestMergeWithFlags(t *testing.T) {
	cfg := DefaultConfig()
	level := "warn"
	addr := "127.0.0.1:9000"
	cfg.MergeWithFlags(&level, nil, &addr, nil)

	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "logs", cfg.LogDir)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Addr)
	assert.Empty(t, cfg.Server.DataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "trace level", mutate: func(c *Config) { c.LogLevel = "trace" }},
		{name: "bad level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "invalid log_level"},
		{name: "empty db", mutate: func(c *Config) { c.SessionDB = "" }, wantErr: "session_db"},
		{name: "empty addr", mutate: func(c *Config) { c.Server.Addr = "" }, wantErr: "server.addr"},
		{name: "cron spec", mutate: func(c *Config) { c.Server.ReloadSchedule = "0 7 * * *" }},
		{name: "no schedule", mutate: func(c *Config) { c.Server.ReloadSchedule = "" }},
		{name: "bad schedule", mutate: func(c *Config) { c.Server.ReloadSchedule = "every tuesday" }, wantErr: "reload_schedule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
