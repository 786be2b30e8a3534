package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		name     string
		got      interface{}
		expected interface{}
	}{
		{"LogLevel", cfg.LogLevel, "info"},
		{"Workers", cfg.Workers, 4},
		{"OutputFormat", cfg.OutputFormat, FormatText},
		{"CacheEnabled", cfg.CacheEnabled, true},
		{"CacheMaxEntries", cfg.CacheMaxEntries, 10000},
		{"FoldConstants", cfg.FoldConstants, false},
		{"WarnUnreachable", cfg.WarnUnreachable, true},
		{"IgnoreFile", cfg.IgnoreFile, ".phpflowignore"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
	assert.Equal(t, []string{".php"}, cfg.Extensions)
	assert.NoError(t, cfg.Validate())
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		errContains string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, "log_level"},
		{"zero workers", func(c *Config) { c.Workers = 0 }, "workers"},
		{"bad format", func(c *Config) { c.OutputFormat = "xml" }, "output_format"},
		{"cache without path", func(c *Config) { c.CachePath = "" }, "cache_path"},
		{"disabled cache without path", func(c *Config) { c.CacheEnabled = false; c.CachePath = "" }, ""},
		{"cache size", func(c *Config) { c.CacheMaxEntries = -1 }, "cache_max_entries"},
		{"no extensions", func(c *Config) { c.Extensions = nil }, "extensions"},
		{"extension without dot", func(c *Config) { c.Extensions = []string{"php"} }, "dot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errContains == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errContains)
		})
	}
}

func TestSaveAndLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Workers = 8
	cfg.OutputFormat = FormatYAML
	cfg.Extensions = []string{".php", ".inc"}
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadFromFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadFromFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("workers: [1"), 0644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("workers: 0\n"), 0644))
	_, err = LoadFromFile(invalid)
	assert.Error(t, err)
}

func TestLoadPriority(t *testing.T) {
	home := t.TempDir()
	project := t.TempDir()
	t.Setenv("HOME", home)
	chdir(t, project)

	global := DefaultConfig()
	global.Workers = 2
	global.LogLevel = "debug"
	require.NoError(t, global.Save(filepath.Join(home, Dir, "config.yaml")))

	require.NoError(t, os.MkdirAll(Dir, 0755))
	require.NoError(t, os.WriteFile(ProjectConfigFilePath(), []byte("workers: 6\n"), 0644))

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 6, cfg.Workers)
	assert.Equal(t, "debug", cfg.LogLevel)

	t.Setenv("PHPFLOW_WORKERS", "12")
	t.Setenv("PHPFLOW_EXTENSIONS", ".php, .phtml")
	t.Setenv("PHPFLOW_FOLD_CONSTANTS", "yes")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Workers)
	assert.Equal(t, []string{".php", ".phtml"}, cfg.Extensions)
	assert.True(t, cfg.FoldConstants)
}

func TestEnvOverrideErrors(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	chdir(t, t.TempDir())

	t.Setenv("PHPFLOW_WORKERS", "many")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("PHPFLOW_WORKERS", "")
	t.Setenv("PHPFLOW_LOG_JSON", "maybe")
	_, err = Load()
	assert.Error(t, err)
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(old) })
}
