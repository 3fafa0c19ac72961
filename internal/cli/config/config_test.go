package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000", cfg.GeneratorURL)
	assert.Equal(t, "http://localhost:8001", cfg.TemplatesURL)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, 5*time.Minute, cfg.OptionsTTL)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, []string{"openid", "profile", "email", "offline_access"}, cfg.Auth.Scopes)
	assert.False(t, cfg.Auth.Enabled())
}

func TestLoadWithConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	content := `
generator_url: https://generator.example.com/api
templates_url: https://templates.example.com
output_dir: out
timeout: 2m
log:
  level: debug
  format: json
auth:
  client_id: iacgen-cli
  device_url: https://login.example.com/device
  token_url: https://login.example.com/token
  required: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "iacgen.yaml"), []byte(content), 0o644))

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://generator.example.com/api", cfg.GeneratorURL)
	assert.Equal(t, "out", cfg.OutputDir)
	assert.Equal(t, 2*time.Minute, cfg.Timeout)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
	assert.True(t, cfg.Auth.Enabled())
	assert.True(t, cfg.Auth.Required)
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	t.Cleanup(func() { os.Unsetenv("IACGEN_OUTPUT_DIR") })
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IACGEN_OUTPUT_DIR=from-dotenv\nIACGEN_TIMEOUT=5s\n"), 0o644))
	t.Setenv("IACGEN_GENERATOR_URL", "https://env.example.com")
	t.Setenv("IACGEN_LOG_LEVEL", "error")
	t.Setenv("IACGEN_TIMEOUT", "10s")

	cfg, err := Load(LoadOptions{})
	require.NoError(t, err)

	assert.Equal(t, "https://env.example.com", cfg.GeneratorURL)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, "from-dotenv", cfg.OutputDir)
	assert.Equal(t, 10*time.Second, cfg.Timeout, ".env never overrides the real environment")
}

func TestLoadExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("output_dir: custom\n"), 0o644))

	cfg, err := Load(LoadOptions{ConfigFile: path})
	require.NoError(t, err)
	assert.Equal(t, "custom", cfg.OutputDir)

	_, err = Load(LoadOptions{ConfigFile: filepath.Join(t.TempDir(), "missing.yaml")})
	assert.Error(t, err)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			GeneratorURL: "http://localhost:8000",
			TemplatesURL: "http://localhost:8001",
			Timeout:      time.Second,
		}
	}
	require.NoError(t, validateConfig(valid()))

	relative := valid()
	relative.GeneratorURL = "/api"
	assert.Error(t, validateConfig(relative))

	noTimeout := valid()
	noTimeout.Timeout = 0
	assert.Error(t, validateConfig(noTimeout))

	authRequired := valid()
	authRequired.Auth.Required = true
	assert.Error(t, validateConfig(authRequired))
}
