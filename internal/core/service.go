package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
)

// PipelineService is the core service sequencing cache, pre-processing, OCR and scoring
type PipelineService struct {
	scorer       Scorer
	ocr          TextExtractor
	optimizer    ImageOptimizer
	cache        CacheRepository
	logger       *zap.Logger
	cacheEnabled bool
}

// NewPipelineService creates a new pipeline service. cache may be nil when cacheEnabled is false.
func NewPipelineService(
	scorer Scorer,
	ocr TextExtractor,
	optimizer ImageOptimizer,
	cache CacheRepository,
	logger *zap.Logger,
	cacheEnabled bool,
) *PipelineService {
	return &PipelineService{
		scorer:       scorer,
		ocr:          ocr,
		optimizer:    optimizer,
		cache:        cache,
		logger:       logger,
		cacheEnabled: cacheEnabled && cache != nil,
	}
}

// Evaluate runs the pipeline selected by the request kind
func (s *PipelineService) Evaluate(ctx context.Context, req *EvaluationRequest) (*EvaluationResult, error) {
	if req == nil || len(req.Image) == 0 {
		return nil, NewPipelineError(KindInvalidInput, "received", ErrEmptyImage)
	}

	logger := s.logger.With(zap.String("kind", string(req.Kind)), zap.Int("image_bytes", len(req.Image)))

	key := CacheKey(req.Kind, req.Image)
	if cached, ok := s.lookup(key); ok && cached.Evaluation != nil {
		logger.Debug("Cache hit", zap.String("key", key))
		res := *cached.Evaluation
		return &res, nil
	}

	var (
		res *EvaluationResult
		err error
	)
	switch req.Kind {
	case KindPhishing:
		res, err = s.scoreExtractedText(ctx, req, logger, s.scorer.EvaluatePhishing)
	case KindUnified:
		res, err = s.scoreExtractedText(ctx, req, logger, s.scorer.EvaluateUnified)
	case KindSocialEngineering:
		res, err = s.scorer.EvaluateSocialEngineering(ctx, ScoringInput{Image: imageInput(req)})
	case KindRouted:
		res, err = s.route(ctx, req, logger)
	default:
		return nil, NewPipelineError(KindInvalidInput, "received",
			fmt.Errorf("unsupported evaluation kind: %q", req.Kind))
	}
	if err != nil {
		return nil, err
	}

	// Results built from an OCR failure description are not memoized
	if !res.Degraded {
		s.store(&CacheEntry{Key: key, Evaluation: res, InsertedAt: time.Now()})
	}

	logger.Info("Evaluation completed",
		zap.Int("score", res.Score),
		zap.String("band", string(Band(res.Score))),
		zap.String("model", res.ModelUsed),
		zap.Bool("degraded", res.Degraded))

	out := *res
	return &out, nil
}

// ExtractText runs pre-processing and OCR only. Failures are reported in the result.
func (s *PipelineService) ExtractText(ctx context.Context, image []byte) *TextExtraction {
	start := time.Now()
	if len(image) == 0 {
		return &TextExtraction{IsError: true, ErrorMessage: ErrEmptyImage.Error()}
	}

	key := CacheKey(KindOCR, image)
	if cached, ok := s.lookup(key); ok && cached.Evaluation == nil {
		return &TextExtraction{Text: cached.Text, Duration: time.Since(start), Cached: true}
	}

	optimized := s.optimizer.MaybeOptimize(ctx, image)
	ocr := s.ocr.ExtractText(ctx, optimized)
	if ocr.Failed() {
		s.logger.Warn("Text extraction failed",
			zap.String("error_kind", string(ocr.Err.Kind)),
			zap.Error(ocr.Err))
		return &TextExtraction{
			IsError:      true,
			ErrorMessage: ocr.Text,
			Duration:     time.Since(start),
		}
	}

	s.store(&CacheEntry{Key: key, Text: ocr.Text, InsertedAt: time.Now()})
	return &TextExtraction{Text: ocr.Text, Duration: time.Since(start)}
}

type scoreFunc func(ctx context.Context, in ScoringInput) (*EvaluationResult, error)

// scoreExtractedText is PREPROCESS -> OCR -> PROMPT_BUILD -> SCORE
func (s *PipelineService) scoreExtractedText(ctx context.Context, req *EvaluationRequest, logger *zap.Logger, score scoreFunc) (*EvaluationResult, error) {
	optimized := s.optimizer.MaybeOptimize(ctx, req.Image)
	logger.Debug("Pre-processing done", zap.Int("optimized_bytes", len(optimized)))

	ocr := s.ocr.ExtractText(ctx, optimized)
	in := ScoringInput{Text: ocr.Text}
	if ocr.Failed() {
		in.Degraded = true
		logger.Warn("OCR failed, scoring degraded input",
			zap.String("error_kind", string(ocr.Err.Kind)),
			zap.Error(ocr.Err))
	}

	return score(ctx, in)
}

// route is CLASSIFY -> {EMAIL_ANALYZE | WHATSAPP_ANALYZE}
func (s *PipelineService) route(ctx context.Context, req *EvaluationRequest, logger *zap.Logger) (*EvaluationResult, error) {
	img := imageInput(req)

	decision, err := s.scorer.Classify(ctx, img)
	if err != nil {
		return nil, err
	}
	logger.Debug("Image classified", zap.String("type", string(decision.Type)), zap.String("model", decision.ModelUsed))

	var res *EvaluationResult
	switch decision.Type {
	case ContentEmail, ContentWeb:
		res, err = s.scorer.EvaluatePhishing(ctx, ScoringInput{Image: img})
	default:
		res, err = s.scorer.EvaluateSocialEngineering(ctx, ScoringInput{Image: img})
	}
	if err != nil {
		return nil, err
	}

	res.ContentType = decision.Type
	return res, nil
}

// CacheSize reports the number of live cache entries
func (s *PipelineService) CacheSize() int {
	if !s.cacheEnabled {
		return 0
	}
	return s.cache.Len()
}

func (s *PipelineService) lookup(key string) (*CacheEntry, bool) {
	if !s.cacheEnabled {
		return nil, false
	}
	return s.cache.Get(key)
}

func (s *PipelineService) store(entry *CacheEntry) {
	if !s.cacheEnabled {
		return
	}
	s.cache.Set(entry)
}

func imageInput(req *EvaluationRequest) *ImageInput {
	format := strings.ToLower(strings.TrimSpace(req.Format))
	switch format {
	case "":
		format = "png"
	case "jpg":
		format = "jpeg"
	}
	return &ImageInput{Data: req.Image, MediaType: "image/" + format}
}
