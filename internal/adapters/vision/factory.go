package vision

import (
	"context"
	"fmt"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"github.com/mikey/phish-screen/internal/config"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Factory creates Vision detectors
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Vision factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDetector creates a detector with a gRPC pool sized to the OCR concurrency limit.
// Credentials come from vision.credentials_json, vision.credentials_file or the
// application default credentials, in that order.
func (f *Factory) CreateDetector(ctx context.Context) (*Detector, error) {
	visionCfg := f.cfg.GetVision()
	opts := []option.ClientOption{
		option.WithGRPCConnectionPool(f.cfg.GetLimits().OCRConcurrency),
	}

	switch {
	case visionCfg.CredentialsJSON != "":
		opts = append(opts, option.WithCredentialsJSON([]byte(visionCfg.CredentialsJSON)))
	case visionCfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(visionCfg.CredentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vision client: %w", err)
	}

	f.logger.Info("Vision client created", zap.Int("pool_size", f.cfg.GetLimits().OCRConcurrency))
	return NewDetector(client, f.logger), nil
}
