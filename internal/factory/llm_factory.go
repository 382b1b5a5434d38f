package factory

import (
	"context"
	"fmt"

	"github.com/mikey/phish-screen/internal/adapters/bedrock"
	"github.com/mikey/phish-screen/internal/adapters/gemini"
	"github.com/mikey/phish-screen/internal/adapters/openai"
	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
	"go.uber.org/zap"
)

// LLMFactory creates the scoring model chain
type LLMFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewLLMFactory creates a new LLM factory
func NewLLMFactory(cfg *config.Config, logger *zap.Logger) *LLMFactory {
	return &LLMFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateInvokers creates the primary and fallback invokers of the configured provider
func (f *LLMFactory) CreateInvokers(ctx context.Context) (primary, fallback core.ModelInvoker, err error) {
	llmConfig := f.cfg.GetLLM()

	switch llmConfig.Provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger).CreateInvokers(ctx)
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger).CreateInvokers(ctx)
	case "openai":
		return openai.NewFactory(f.cfg, f.logger).CreateInvokers()
	default:
		return nil, nil, fmt.Errorf("unsupported LLM provider: %s", llmConfig.Provider)
	}
}

// CreateModelChain creates the primary-then-fallback chain used by the engine
func (f *LLMFactory) CreateModelChain(ctx context.Context) (*core.ModelChain, error) {
	primary, fallback, err := f.CreateInvokers(ctx)
	if err != nil {
		return nil, err
	}
	return core.NewModelChain(primary, fallback, f.logger), nil
}
