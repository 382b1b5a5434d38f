package textract

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/mikey/phish-screen/internal/config"
	"go.uber.org/zap"
)

// Factory creates Textract detectors
type Factory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewFactory creates a new Textract factory
func NewFactory(cfg *config.Config, logger *zap.Logger) *Factory {
	return &Factory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateDetector creates a detector whose HTTP connection pool matches the OCR concurrency limit
func (f *Factory) CreateDetector(ctx context.Context) (*Detector, error) {
	textractCfg := f.cfg.GetTextract()
	poolSize := f.cfg.GetLimits().OCRConcurrency

	httpClient := awshttp.NewBuildableClient().WithTransportOptions(func(tr *http.Transport) {
		tr.MaxIdleConns = poolSize
		tr.MaxIdleConnsPerHost = poolSize
		tr.MaxConnsPerHost = poolSize
	})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(textractCfg.Region),
		awsconfig.WithHTTPClient(httpClient),
		awsconfig.WithRetryMode(aws.RetryModeAdaptive),
		awsconfig.WithRetryMaxAttempts(textractCfg.MaxAttempts),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}

	var closeIdle func()
	if c, ok := any(httpClient).(interface{ CloseIdleConnections() }); ok {
		closeIdle = c.CloseIdleConnections
	}

	f.logger.Info("Textract client created",
		zap.String("region", textractCfg.Region),
		zap.Int("pool_size", poolSize))
	return NewDetector(textract.NewFromConfig(awsCfg), closeIdle, f.logger), nil
}
