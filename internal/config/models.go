package config

import (
	"fmt"
	"time"
)

// LLMConfig represents the scoring provider selection
type LLMConfig struct {
	Provider      string
	PrimaryModel  string
	FallbackModel string
	MaxTokens     int
	Temperature   float32
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region          string
	ModelID         string
	FallbackModelID string
	MaxTokens       int
	Temperature     float32
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	ModelName         string
	FallbackModelName string
	MaxTokens         int
	Temperature       float32
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey            string
	ModelName         string
	FallbackModelName string
	MaxTokens         int
	Temperature       float32
}

// OCRConfig represents the OCR provider selection
type OCRConfig struct {
	Provider     string
	MaxTextBytes int
}

// TextractConfig represents the configuration for Amazon Textract
type TextractConfig struct {
	Region      string
	MaxAttempts int
}

// VisionConfig represents the configuration for Google Cloud Vision
type VisionConfig struct {
	CredentialsFile string
	CredentialsJSON string
}

// CacheConfig represents the evaluation cache configuration
type CacheConfig struct {
	Enabled    bool
	TTL        time.Duration
	MaxEntries int
}

// LimitsConfig holds the admission gate capacities
type LimitsConfig struct {
	ScoringConcurrency int
	OCRConcurrency     int
}

// TimeoutsConfig holds per-stage timeouts
type TimeoutsConfig struct {
	Scoring    time.Duration
	OCR        time.Duration
	Preprocess time.Duration
}

// PreprocessConfig holds image pre-processing thresholds
type PreprocessConfig struct {
	SizeThresholdKB int
	WidthThreshold  int
	JPEGQuality     int
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	ListenAddress   string
	MaxUploadMB     int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// SMTPConfig represents the SMTP relay used for alert emails
type SMTPConfig struct {
	Address  string
	Username string
	Password string
	From     string
}

// NotifyConfig represents the alert notification configuration
type NotifyConfig struct {
	EmailEndpoint    string
	WhatsAppEndpoint string
	Timeout          time.Duration
	EmailTransport   string
	SMTP             SMTPConfig
}

// PromptsConfig points at an optional prompt override file
type PromptsConfig struct {
	File string
}

// LoggingConfig represents the logger configuration
type LoggingConfig struct {
	Level  string
	Format string
}

// GetLLM returns the LLM configuration
func (c *Config) GetLLM() LLMConfig {
	return LLMConfig{
		Provider:      c.GetString("llm.provider"),
		PrimaryModel:  c.GetString("llm.primary_model"),
		FallbackModel: c.GetString("llm.fallback_model"),
		MaxTokens:     c.GetInt("llm.max_tokens"),
		Temperature:   float32(c.GetFloat64("llm.temperature")),
	}
}

// models returns the provider's configured models, overridden by llm.primary_model
// and llm.fallback_model when those are set
func (c *Config) models(primaryKey, fallbackKey string) (string, string) {
	llm := c.GetLLM()
	primary, fallback := c.GetString(primaryKey), c.GetString(fallbackKey)
	if llm.PrimaryModel != "" {
		primary = llm.PrimaryModel
	}
	if llm.FallbackModel != "" {
		fallback = llm.FallbackModel
	}
	return primary, fallback
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	llm := c.GetLLM()
	primary, fallback := c.models("bedrock.model_id", "bedrock.fallback_model_id")
	return BedrockConfig{
		Region:          c.GetString("bedrock.region"),
		ModelID:         primary,
		FallbackModelID: fallback,
		MaxTokens:       llm.MaxTokens,
		Temperature:     llm.Temperature,
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	llm := c.GetLLM()
	primary, fallback := c.models("openai.model_name", "openai.fallback_model_name")
	return OpenAIConfig{
		APIKey:            c.GetString("openai.api_key"),
		BaseURL:           c.GetString("openai.base_url"),
		ModelName:         primary,
		FallbackModelName: fallback,
		MaxTokens:         llm.MaxTokens,
		Temperature:       llm.Temperature,
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	llm := c.GetLLM()
	primary, fallback := c.models("gemini.model_name", "gemini.fallback_model_name")
	return GeminiConfig{
		APIKey:            c.GetString("gemini.api_key"),
		ModelName:         primary,
		FallbackModelName: fallback,
		MaxTokens:         llm.MaxTokens,
		Temperature:       llm.Temperature,
	}
}

// GetOCR returns the OCR configuration
func (c *Config) GetOCR() OCRConfig {
	return OCRConfig{
		Provider:     c.GetString("ocr.provider"),
		MaxTextBytes: c.GetInt("ocr.max_text_bytes"),
	}
}

// GetTextract returns the Textract configuration
func (c *Config) GetTextract() TextractConfig {
	return TextractConfig{
		Region:      c.GetString("textract.region"),
		MaxAttempts: c.GetInt("textract.max_attempts"),
	}
}

// GetVision returns the Vision configuration
func (c *Config) GetVision() VisionConfig {
	return VisionConfig{
		CredentialsFile: c.GetString("vision.credentials_file"),
		CredentialsJSON: c.GetString("vision.credentials_json"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() CacheConfig {
	return CacheConfig{
		Enabled:    c.GetBool("cache.enabled"),
		TTL:        c.v.GetDuration("cache.ttl"),
		MaxEntries: c.GetInt("cache.max_entries"),
	}
}

// GetLimits returns the admission gate capacities
func (c *Config) GetLimits() LimitsConfig {
	return LimitsConfig{
		ScoringConcurrency: c.GetInt("limits.scoring_concurrency"),
		OCRConcurrency:     c.GetInt("limits.ocr_concurrency"),
	}
}

// GetTimeouts returns the stage timeouts
func (c *Config) GetTimeouts() TimeoutsConfig {
	return TimeoutsConfig{
		Scoring:    c.v.GetDuration("timeouts.scoring"),
		OCR:        c.v.GetDuration("timeouts.ocr"),
		Preprocess: c.v.GetDuration("timeouts.preprocess"),
	}
}

// GetPreprocess returns the pre-processing thresholds
func (c *Config) GetPreprocess() PreprocessConfig {
	return PreprocessConfig{
		SizeThresholdKB: c.GetInt("preprocess.size_threshold_kb"),
		WidthThreshold:  c.GetInt("preprocess.width_threshold"),
		JPEGQuality:     c.GetInt("preprocess.jpeg_quality"),
	}
}

// GetServer returns the HTTP server configuration
func (c *Config) GetServer() ServerConfig {
	return ServerConfig{
		ListenAddress:   c.GetString("server.listen_address"),
		MaxUploadMB:     c.GetInt("server.max_upload_mb"),
		ReadTimeout:     c.v.GetDuration("server.read_timeout"),
		WriteTimeout:    c.v.GetDuration("server.write_timeout"),
		ShutdownTimeout: c.v.GetDuration("server.shutdown_timeout"),
	}
}

// GetNotify returns the notification configuration
func (c *Config) GetNotify() NotifyConfig {
	return NotifyConfig{
		EmailEndpoint:    c.GetString("notify.email_endpoint"),
		WhatsAppEndpoint: c.GetString("notify.whatsapp_endpoint"),
		Timeout:          c.v.GetDuration("notify.timeout"),
		EmailTransport:   c.GetString("notify.email_transport"),
		SMTP: SMTPConfig{
			Address:  c.GetString("notify.smtp.address"),
			Username: c.GetString("notify.smtp.username"),
			Password: c.GetString("notify.smtp.password"),
			From:     c.GetString("notify.smtp.from"),
		},
	}
}

// GetPrompts returns the prompt configuration
func (c *Config) GetPrompts() PromptsConfig {
	return PromptsConfig{
		File: c.GetString("prompts.file"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}

// Validate checks values that would otherwise fail late at first use
func (c *Config) Validate() error {
	for _, key := range []string{"timeouts.scoring", "timeouts.ocr", "timeouts.preprocess", "cache.ttl", "notify.timeout"} {
		d, err := c.GetDuration(key)
		if err != nil {
			return fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}

	switch p := c.GetString("llm.provider"); p {
	case "bedrock", "openai", "gemini":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", p)
	}

	switch p := c.GetString("ocr.provider"); p {
	case "textract", "vision":
	default:
		return fmt.Errorf("unsupported OCR provider: %s", p)
	}

	switch t := c.GetString("notify.email_transport"); t {
	case "http", "smtp":
	default:
		return fmt.Errorf("unsupported email transport: %s", t)
	}

	limits := c.GetLimits()
	if limits.ScoringConcurrency < 1 || limits.OCRConcurrency < 1 {
		return fmt.Errorf("concurrency limits must be at least 1")
	}
	return nil
}
