package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment variable overrides, e.g. PHISH_SCREEN_LLM_PROVIDER
const EnvPrefix = "PHISH_SCREEN"

// Config represents the application configuration
type Config struct {
	v *viper.Viper
}

// New creates a new configuration instance. A .env file in the working
// directory is loaded first if present; variables already set win.
func New() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/phish-screen/")
	v.AddConfigPath("$HOME/.phish-screen")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	return &Config{v: v}, nil
}

// NewFromFile creates a configuration from an explicit YAML file
func NewFromFile(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return &Config{v: v}, nil
}

// NewFromViper creates a new configuration instance from an existing Viper instance
func NewFromViper(v *viper.Viper) *Config {
	return &Config{v: v}
}

// NewEmptyViper creates a new Viper instance with defaults
func NewEmptyViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func bindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// setDefaults sets the default configuration values
func setDefaults(v *viper.Viper) {
	// Scoring provider
	v.SetDefault("llm.provider", "bedrock")
	v.SetDefault("llm.primary_model", "")
	v.SetDefault("llm.fallback_model", "")
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.temperature", 0.0)

	v.SetDefault("bedrock.region", "us-east-1")
	v.SetDefault("bedrock.model_id", "us.anthropic.claude-haiku-4-5-20251001-v1:0")
	v.SetDefault("bedrock.fallback_model_id", "us.anthropic.claude-sonnet-4-5-20250929-v1:0")

	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.base_url", "")
	v.SetDefault("openai.model_name", "gpt-5-mini-2025-08-07")
	v.SetDefault("openai.fallback_model_name", "gpt-5.1-2025-11-13")

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.model_name", "gemini-2.5-flash")
	v.SetDefault("gemini.fallback_model_name", "gemini-2.5-pro")

	// OCR provider
	v.SetDefault("ocr.provider", "textract")
	v.SetDefault("ocr.max_text_bytes", 16384)
	v.SetDefault("textract.region", "us-east-1")
	v.SetDefault("textract.max_attempts", 3)
	v.SetDefault("vision.credentials_file", "")
	v.SetDefault("vision.credentials_json", "")

	// Admission and timeouts
	v.SetDefault("limits.scoring_concurrency", 10)
	v.SetDefault("limits.ocr_concurrency", 15)
	v.SetDefault("timeouts.scoring", "30s")
	v.SetDefault("timeouts.ocr", "20s")
	v.SetDefault("timeouts.preprocess", "10s")

	// Pre-processing
	v.SetDefault("preprocess.size_threshold_kb", 500)
	v.SetDefault("preprocess.width_threshold", 1500)
	v.SetDefault("preprocess.jpeg_quality", 85)

	// Cache
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.max_entries", 1000)

	// Server
	v.SetDefault("server.listen_address", "0.0.0.0:8000")
	v.SetDefault("server.max_upload_mb", 20)
	v.SetDefault("server.read_timeout", "60s")
	v.SetDefault("server.write_timeout", "90s")
	v.SetDefault("server.shutdown_timeout", "15s")

	// Notifications
	v.SetDefault("notify.email_endpoint", "")
	v.SetDefault("notify.whatsapp_endpoint", "")
	v.SetDefault("notify.timeout", "10s")
	v.SetDefault("notify.email_transport", "http")
	v.SetDefault("notify.smtp.address", "localhost:587")
	v.SetDefault("notify.smtp.username", "")
	v.SetDefault("notify.smtp.password", "")
	v.SetDefault("notify.smtp.from", "alertas@phish-screen.local")

	// Prompts
	v.SetDefault("prompts.file", "")

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Set overrides a value
func (c *Config) Set(key string, value any) {
	c.v.Set(key, value)
}

// GetString gets a string value from the configuration
func (c *Config) GetString(key string) string {
	return c.v.GetString(key)
}

// GetInt gets an integer value from the configuration
func (c *Config) GetInt(key string) int {
	return c.v.GetInt(key)
}

// GetFloat64 gets a float64 value from the configuration
func (c *Config) GetFloat64(key string) float64 {
	return c.v.GetFloat64(key)
}

// GetBool gets a boolean value from the configuration
func (c *Config) GetBool(key string) bool {
	return c.v.GetBool(key)
}

// GetDuration gets a duration value from the configuration
func (c *Config) GetDuration(key string) (time.Duration, error) {
	return time.ParseDuration(c.GetString(key))
}

// GetViper returns the underlying Viper instance
func (c *Config) GetViper() *viper.Viper {
	return c.v
}
