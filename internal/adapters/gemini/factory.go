package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates Gemini invokers
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for Gemini invokers
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateInvokers creates the primary and fallback invokers sharing one API client
func (f *Factory) CreateInvokers(ctx context.Context) (primary, fallback core.ModelInvoker, err error) {
	geminiCfg := f.cfg.GetGemini()
	if geminiCfg.APIKey == "" {
		return nil, nil, fmt.Errorf("gemini.api_key is required")
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(geminiCfg.APIKey))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	primary = NewInvoker(client, geminiCfg.ModelName, geminiCfg.MaxTokens, geminiCfg.Temperature, f.logger)
	if geminiCfg.FallbackModelName != "" {
		fallback = NewInvoker(client, geminiCfg.FallbackModelName, geminiCfg.MaxTokens, geminiCfg.Temperature, f.logger)
	}

	f.logger.Info("Gemini scoring provider configured",
		zap.String("primary", geminiCfg.ModelName),
		zap.String("fallback", geminiCfg.FallbackModelName))
	return primary, fallback, nil
}
