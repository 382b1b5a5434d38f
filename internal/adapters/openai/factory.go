package openai

import (
	"fmt"

	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// Factory creates OpenAI invokers
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new factory for OpenAI invokers
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateInvokers creates the primary and fallback invokers sharing one API client
func (f *Factory) CreateInvokers() (primary, fallback core.ModelInvoker, err error) {
	openaiCfg := f.cfg.GetOpenAI()
	if openaiCfg.APIKey == "" {
		return nil, nil, fmt.Errorf("openai.api_key is required")
	}

	clientCfg := openai.DefaultConfig(openaiCfg.APIKey)
	if openaiCfg.BaseURL != "" {
		clientCfg.BaseURL = openaiCfg.BaseURL
	}
	client := openai.NewClientWithConfig(clientCfg)

	primary = NewInvoker(client, openaiCfg.ModelName, openaiCfg.MaxTokens, openaiCfg.Temperature, f.logger)
	if openaiCfg.FallbackModelName != "" {
		fallback = NewInvoker(client, openaiCfg.FallbackModelName, openaiCfg.MaxTokens, openaiCfg.Temperature, f.logger)
	}

	f.logger.Info("OpenAI scoring provider configured",
		zap.String("primary", openaiCfg.ModelName),
		zap.String("fallback", openaiCfg.FallbackModelName))
	return primary, fallback, nil
}
