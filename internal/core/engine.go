package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// ScoringInput is what a specialist evaluates: an image, or text extracted from one
type ScoringInput struct {
	Image *ImageInput
	Text  string
	// Degraded is set when Text describes an OCR failure instead of image content
	Degraded bool
}

// Scorer is the classification and scoring engine
type Scorer interface {
	Classify(ctx context.Context, image *ImageInput) (*ClassificationDecision, error)
	EvaluatePhishing(ctx context.Context, in ScoringInput) (*EvaluationResult, error)
	EvaluateSocialEngineering(ctx context.Context, in ScoringInput) (*EvaluationResult, error)
	EvaluateUnified(ctx context.Context, in ScoringInput) (*EvaluationResult, error)
}

// Engine issues gated, timed structured calls to the scoring provider
type Engine struct {
	chain   *ModelChain
	gate    Admitter
	timeout time.Duration
	prompts PromptSet
	logger  *zap.Logger
}

// NewEngine creates a new scoring engine
func NewEngine(chain *ModelChain, gate Admitter, timeout time.Duration, prompts PromptSet, logger *zap.Logger) *Engine {
	return &Engine{
		chain:   chain,
		gate:    gate,
		timeout: timeout,
		prompts: prompts,
		logger:  logger,
	}
}

// Classify decides whether a screenshot is an email or a WhatsApp conversation
func (e *Engine) Classify(ctx context.Context, image *ImageInput) (*ClassificationDecision, error) {
	if image == nil || len(image.Data) == 0 {
		return nil, NewPipelineError(KindInvalidInput, "classify", ErrEmptyImage)
	}

	fields, model, err := e.call(ctx, "classify", &ModelRequest{
		Prompt: e.prompts.Router,
		Image:  image,
		Schema: RouterSchema,
	})
	if err != nil {
		return nil, err
	}

	return &ClassificationDecision{
		Type:      ContentType(fields[FieldType].(string)),
		ModelUsed: model,
	}, nil
}

// EvaluatePhishing scores an email or web screenshot for phishing
func (e *Engine) EvaluatePhishing(ctx context.Context, in ScoringInput) (*EvaluationResult, error) {
	req := e.specialistRequest(e.prompts.Phishing, in, PhishingSchema)
	fields, model, err := e.call(ctx, "phishing", req)
	if err != nil {
		return nil, err
	}
	return e.result(fields, model, in, ContentEmail, false), nil
}

// EvaluateSocialEngineering scores a conversation screenshot for manipulation techniques
func (e *Engine) EvaluateSocialEngineering(ctx context.Context, in ScoringInput) (*EvaluationResult, error) {
	req := e.specialistRequest(e.prompts.SocialEngineering, in, SocialEngineeringSchema)
	fields, model, err := e.call(ctx, "social_engineering", req)
	if err != nil {
		return nil, err
	}
	return e.result(fields, model, in, ContentWhatsApp, false), nil
}

// EvaluateUnified classifies and scores extracted text in one model call.
// Safe results carry neither reason nor title.
func (e *Engine) EvaluateUnified(ctx context.Context, in ScoringInput) (*EvaluationResult, error) {
	req := &ModelRequest{
		System: e.prompts.Unified,
		Prompt: e.textBlock(in),
		Image:  in.Image,
		Schema: UnifiedSchema,
	}
	fields, model, err := e.call(ctx, "unified", req)
	if err != nil {
		return nil, err
	}
	return e.result(fields, model, in, "", true), nil
}

func (e *Engine) specialistRequest(prompt string, in ScoringInput, schema *ResponseSchema) *ModelRequest {
	if in.Image != nil {
		return &ModelRequest{Prompt: prompt, Image: in.Image, Schema: schema}
	}
	return &ModelRequest{
		Prompt: prompt + "\n\n" + e.textBlock(in),
		Schema: schema,
	}
}

func (e *Engine) textBlock(in ScoringInput) string {
	if in.Image != nil && in.Text == "" {
		return ""
	}
	text := in.Text
	if in.Degraded {
		text = DegradedInput + " " + text
	}
	lead := e.prompts.ExtractedTextLead
	if lead == "" {
		return text
	}
	return lead + "\n" + text
}

func (e *Engine) result(fields map[string]any, model string, in ScoringInput, contentType ContentType, unified bool) *EvaluationResult {
	res := &EvaluationResult{
		Score:       fields[FieldScoring].(int),
		ContentType: contentType,
		ModelUsed:   model,
		Degraded:    in.Degraded,
		AnalyzedAt:  time.Now(),
	}
	if reason, ok := fields[FieldReason].(string); ok {
		res.Reason = reason
	}
	if title, ok := fields[FieldTitle].(string); ok {
		res.Title = title
	}
	if unified && Band(res.Score) == BandSafe {
		res.Reason = ""
		res.Title = ""
	}
	return res
}

// call runs one structured invocation behind the scoring gate with the stage timeout
func (e *Engine) call(ctx context.Context, stage string, req *ModelRequest) (map[string]any, string, error) {
	var (
		fields map[string]any
		model  string
	)

	start := time.Now()
	err := e.gate.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		defer cancel()

		var callErr error
		fields, model, callErr = e.chain.Call(callCtx, req)
		if callErr != nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return NewPipelineError(KindScoringTimeout, stage,
				fmt.Errorf("%w after %s", ErrTimeout, e.timeout))
		}
		return callErr
	})
	if err != nil {
		e.logger.Error("Scoring call failed",
			zap.String("stage", stage),
			zap.Strings("models", e.chain.Models()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, "", classifyScoringError(stage, err)
	}

	e.logger.Debug("Scoring call completed",
		zap.String("stage", stage),
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)))
	return fields, model, nil
}

func classifyScoringError(stage string, err error) error {
	if _, ok := KindOf(err); ok {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewPipelineError(KindScoringTimeout, stage, fmt.Errorf("%w: %v", ErrTimeout, err))
	}
	return NewPipelineError(KindScoringProvider, stage, err)
}
