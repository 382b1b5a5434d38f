package bedrock

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
	"go.uber.org/zap"
)

// Factory creates Bedrock invokers
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Bedrock factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateInvokers creates the primary and fallback invokers. Both share one runtime client.
// fallback is nil when no fallback model is configured.
func (f *Factory) CreateInvokers(ctx context.Context) (primary, fallback core.ModelInvoker, err error) {
	bedrockCfg := f.cfg.GetBedrock()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(bedrockCfg.Region))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	client := bedrockruntime.NewFromConfig(awsCfg)

	primary = NewInvoker(client, bedrockCfg.ModelID, bedrockCfg.MaxTokens, bedrockCfg.Temperature, f.logger)
	if bedrockCfg.FallbackModelID != "" {
		fallback = NewInvoker(client, bedrockCfg.FallbackModelID, bedrockCfg.MaxTokens, bedrockCfg.Temperature, f.logger)
	}

	f.logger.Info("Bedrock scoring provider configured",
		zap.String("region", bedrockCfg.Region),
		zap.String("primary", bedrockCfg.ModelID),
		zap.String("fallback", bedrockCfg.FallbackModelID))
	return primary, fallback, nil
}
