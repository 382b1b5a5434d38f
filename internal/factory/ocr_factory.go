package factory

import (
	"context"
	"fmt"

	"github.com/mikey/phish-screen/internal/adapters/textract"
	"github.com/mikey/phish-screen/internal/adapters/vision"
	"github.com/mikey/phish-screen/internal/admission"
	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/ocr"
	"github.com/mikey/phish-screen/internal/utils"
	"go.uber.org/zap"
)

// OCRFactory creates the OCR client for the configured text-detection provider
type OCRFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewOCRFactory creates a new OCR factory
func NewOCRFactory(cfg *config.Config, logger *zap.Logger) *OCRFactory {
	return &OCRFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// DetectorFactory returns the constructor of the provider client. Nothing is dialed here.
func (f *OCRFactory) DetectorFactory() (ocr.DetectorFactory, error) {
	switch p := f.cfg.GetOCR().Provider; p {
	case "textract":
		tf := textract.NewFactory(f.cfg, f.logger)
		return func(ctx context.Context) (core.TextDetector, error) {
			d, err := tf.CreateDetector(ctx)
			if err != nil {
				return nil, err
			}
			return d, nil
		}, nil
	case "vision":
		vf := vision.NewFactory(f.cfg, f.logger)
		return func(ctx context.Context) (core.TextDetector, error) {
			d, err := vf.CreateDetector(ctx)
			if err != nil {
				return nil, err
			}
			return d, nil
		}, nil
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s", p)
	}
}

// CreateClient creates the lazily connected OCR client behind gate
func (f *OCRFactory) CreateClient(gate *admission.Gate, text *utils.TextProcessor) (*ocr.Client, error) {
	detectorFactory, err := f.DetectorFactory()
	if err != nil {
		return nil, err
	}

	ocrCfg := f.cfg.GetOCR()
	timeouts := f.cfg.GetTimeouts()
	return ocr.NewClient(gate, detectorFactory, ocr.Options{
		Provider:     providerLabel(ocrCfg.Provider),
		Timeout:      timeouts.OCR,
		MaxTextBytes: ocrCfg.MaxTextBytes,
	}, text, f.logger), nil
}

func providerLabel(provider string) string {
	switch provider {
	case "textract":
		return "Textract"
	case "vision":
		return "Google Vision"
	default:
		return provider
	}
}
