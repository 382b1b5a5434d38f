package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/phish-screen/internal/adapters/httpapi"
	"github.com/mikey/phish-screen/internal/admission"
	"github.com/mikey/phish-screen/internal/config"
	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/factory"
	"github.com/mikey/phish-screen/internal/imageprep"
	"github.com/mikey/phish-screen/internal/logging"
	"github.com/mikey/phish-screen/internal/ocr"
	"github.com/mikey/phish-screen/internal/ports"
	"github.com/mikey/phish-screen/internal/prompts"
	"github.com/mikey/phish-screen/internal/utils"
)

// Gates are the two admission gates shared by every request
type Gates struct {
	dig.Out

	Scoring *admission.Gate `name:"scoring"`
	OCR     *admission.Gate `name:"ocr"`
}

type gateParams struct {
	dig.In

	Scoring *admission.Gate `name:"scoring"`
	OCR     *admission.Gate `name:"ocr"`
}

// BuildContainer creates and configures a dependency injection container for the HTTP service
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(func() (*config.Config, error) {
		cfg, err := config.New()
		if err != nil {
			return nil, err
		}
		return cfg, cfg.Validate()
	}); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideScoring(container); err != nil {
		return nil, err
	}

	// Register cache repository and the enabled flag
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) core.CacheRepository {
		return f.CreateCacheRepository()
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.CacheFactory) bool {
		return f.IsCacheEnabled()
	}); err != nil {
		return nil, err
	}

	// Register pipeline service
	if err := container.Provide(core.NewPipelineService); err != nil {
		return nil, err
	}

	// Register notifier
	if err := container.Provide(factory.NewNotifierFactory); err != nil {
		return nil, err
	}
	if err := container.Provide(func(f *factory.NotifierFactory) (ports.Notifier, error) {
		return f.CreateNotifier()
	}); err != nil {
		return nil, err
	}

	// Register HTTP server
	if err := container.Provide(func(
		cfg *config.Config,
		svc *core.PipelineService,
		notifier ports.Notifier,
		gates gateParams,
		ocrClient *ocr.Client,
		logger *zap.Logger,
	) *httpapi.Server {
		serverCfg := cfg.GetServer()
		return httpapi.NewServer(httpapi.Options{
			ListenAddress:  serverCfg.ListenAddress,
			MaxUploadBytes: int64(serverCfg.MaxUploadMB) << 20,
			ReadTimeout:    serverCfg.ReadTimeout,
			WriteTimeout:   serverCfg.WriteTimeout,
		}, svc, notifier, gates.Scoring, gates.OCR, ocrClient, logger)
	}); err != nil {
		return nil, err
	}
	if err := container.Provide(func(s *httpapi.Server) ports.Server {
		return s
	}); err != nil {
		return nil, err
	}

	return container, nil
}

// provideScoring registers everything between an uploaded image and a score:
// gates, pre-processing, OCR, prompts, the model chain and the engine.
func provideScoring(container *dig.Container) error {
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) Gates {
		limits := cfg.GetLimits()
		logger.Info("Admission gates configured",
			zap.Int("scoring", limits.ScoringConcurrency),
			zap.Int("ocr", limits.OCRConcurrency))
		return Gates{
			Scoring: admission.NewGate("scoring", limits.ScoringConcurrency),
			OCR:     admission.NewGate("ocr", limits.OCRConcurrency),
		}
	}); err != nil {
		return err
	}

	// Register pre-processing
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) core.ImageOptimizer {
		pre := cfg.GetPreprocess()
		return imageprep.NewOptimizer(imageprep.Options{
			SizeThreshold:  pre.SizeThresholdKB * 1024,
			WidthThreshold: pre.WidthThreshold,
			JPEGQuality:    pre.JPEGQuality,
			Timeout:        cfg.GetTimeouts().Preprocess,
		}, logger)
	}); err != nil {
		return err
	}

	// Register OCR client
	if err := container.Provide(factory.NewOCRFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.OCRFactory, gates gateParams, text *utils.TextProcessor) (*ocr.Client, error) {
		return f.CreateClient(gates.OCR, text)
	}); err != nil {
		return err
	}
	if err := container.Provide(func(c *ocr.Client) core.TextExtractor {
		return c
	}); err != nil {
		return err
	}

	// Register prompts
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) (core.PromptSet, error) {
		if file := cfg.GetPrompts().File; file != "" {
			logger.Info("Loading prompts", zap.String("file", file))
			return prompts.Load(file)
		}
		return prompts.Default()
	}); err != nil {
		return err
	}

	// Register model chain and engine
	if err := container.Provide(factory.NewLLMFactory); err != nil {
		return err
	}
	if err := container.Provide(func(f *factory.LLMFactory) (*core.ModelChain, error) {
		return f.CreateModelChain(context.Background())
	}); err != nil {
		return err
	}
	if err := container.Provide(func(
		cfg *config.Config,
		chain *core.ModelChain,
		gates gateParams,
		set core.PromptSet,
		logger *zap.Logger,
	) core.Scorer {
		return core.NewEngine(chain, gates.Scoring, cfg.GetTimeouts().Scoring, set, logger)
	}); err != nil {
		return err
	}

	return nil
}
