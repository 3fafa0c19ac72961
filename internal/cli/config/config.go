package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable the CLI reads.
const EnvPrefix = "IACGEN"

// Config represents the iacgen configuration.
type Config struct {
	GeneratorURL  string        `mapstructure:"generator_url"`
	TemplatesURL  string        `mapstructure:"templates_url"`
	OutputDir     string        `mapstructure:"output_dir"`
	Timeout       time.Duration `mapstructure:"timeout"`
	CatalogDir    string        `mapstructure:"catalog_dir"`
	OpenAPISource string        `mapstructure:"openapi_source"`
	OptionsTTL    time.Duration `mapstructure:"options_ttl"`
	Log           LogConfig     `mapstructure:"log"`
	Auth          AuthConfig    `mapstructure:"auth"`
}

// LogConfig represents logging configuration.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig represents the identity provider configuration.
type AuthConfig struct {
	ClientID    string   `mapstructure:"client_id"`
	DeviceURL   string   `mapstructure:"device_url"`
	TokenURL    string   `mapstructure:"token_url"`
	Scopes      []string `mapstructure:"scopes"`
	SessionFile string   `mapstructure:"session_file"`
	Required    bool     `mapstructure:"required"`
}

// Enabled reports whether an identity provider is configured.
func (a AuthConfig) Enabled() bool {
	return a.ClientID != "" && a.DeviceURL != "" && a.TokenURL != ""
}

// LoadOptions points Load at explicit files. Empty fields use the defaults.
type LoadOptions struct {
	ConfigFile string
	EnvFile    string
}

// Load reads .env, then iacgen.yaml from the working directory or the user
// config directory, then IACGEN_* environment variables.
func Load(opts LoadOptions) (*Config, error) {
	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	v := viper.New()

	// Set defaults
	v.SetDefault("generator_url", "http://localhost:8000")
	v.SetDefault("templates_url", "http://localhost:8001")
	v.SetDefault("output_dir", ".")
	v.SetDefault("timeout", "60s")
	v.SetDefault("catalog_dir", "")
	v.SetDefault("openapi_source", "")
	v.SetDefault("options_ttl", "5m")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "console")
	v.SetDefault("auth.client_id", "")
	v.SetDefault("auth.device_url", "")
	v.SetDefault("auth.token_url", "")
	v.SetDefault("auth.scopes", []string{"openid", "profile", "email", "offline_access"})
	v.SetDefault("auth.session_file", "")
	v.SetDefault("auth.required", false)

	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
	} else {
		v.SetConfigName("iacgen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, "iacgen"))
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&config); err != nil {
		return nil, err
	}
	return &config, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	for key, raw := range map[string]string{
		"generator_url": cfg.GeneratorURL,
		"templates_url": cfg.TemplatesURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got: %q", key, raw)
		}
	}
	if cfg.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got: %s", cfg.Timeout)
	}
	if cfg.Auth.Required && !cfg.Auth.Enabled() {
		return errors.New("auth.required needs auth.client_id, auth.device_url and auth.token_url")
	}
	return nil
}
