package di

import (
	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/logging"
)

// CLIOptions contains the command line flags shared by every CLI subcommand
type CLIOptions struct {
	ConfigFile    string
	Provider      string
	PrimaryModel  string
	FallbackModel string
	OCRProvider   string
	PromptsFile   string
	Verbose       bool
	JSONLog       bool
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(opts *CLIOptions) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIOptions { return opts }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(opts *CLIOptions) (*zap.Logger, error) {
		return logging.InitConsoleLogger(opts.Verbose, opts.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(opts *CLIOptions, logger *zap.Logger) (*config.Config, error) {
		cfg, err := loadCLIConfig(opts)
		if err != nil {
			return nil, err
		}
		if used := cfg.GetViper().ConfigFileUsed(); used != "" {
			logger.Info("Loaded configuration from file", zap.String("file", used))
		}
		return cfg, cfg.Validate()
	}); err != nil {
		return nil, err
	}

	if err := provideScoring(container); err != nil {
		return nil, err
	}

	// Register pipeline service with no cache
	if err := container.Provide(func(
		scorer core.Scorer,
		ocr core.TextExtractor,
		optimizer core.ImageOptimizer,
		logger *zap.Logger,
	) *core.PipelineService {
		return core.NewPipelineService(scorer, ocr, optimizer, nil, logger, false)
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// loadCLIConfig reads the config file, if any, and applies flag overrides on top
func loadCLIConfig(opts *CLIOptions) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.ConfigFile != "" {
		cfg, err = config.NewFromFile(opts.ConfigFile)
	} else {
		cfg, err = config.New()
	}
	if err != nil {
		return nil, err
	}

	overrides := map[string]string{
		"llm.provider":       opts.Provider,
		"llm.primary_model":  opts.PrimaryModel,
		"llm.fallback_model": opts.FallbackModel,
		"ocr.provider":       opts.OCRProvider,
		"prompts.file":       opts.PromptsFile,
	}
	for key, value := range overrides {
		if value != "" {
			cfg.Set(key, value)
		}
	}
	cfg.Set("cache.enabled", false)

	return cfg, nil
}
