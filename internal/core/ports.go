package core

import (
	"context"
	"encoding/json"
)

// ImageInput is an image attached to a model request
type ImageInput struct {
	Data      []byte
	MediaType string
}

// ModelRequest is a single structured-output call to a scoring model
type ModelRequest struct {
	// System is an optional system instruction
	System string
	Prompt string
	// Image is nil for text-only invocations
	Image  *ImageInput
	Schema *ResponseSchema
}

// ModelInvoker defines the interface for calling one model of a scoring provider.
// Implementations return the raw JSON object produced by the model; validation
// against the schema happens in the engine.
type ModelInvoker interface {
	Invoke(ctx context.Context, req *ModelRequest) (json.RawMessage, error)
	ModelName() string
}

// TextDetector is an OCR provider returning line-level text fragments in reading order
type TextDetector interface {
	DetectText(ctx context.Context, image []byte) ([]string, error)
}

// TextExtractor turns an image into text for the scoring stage. Failures are
// reported in the result rather than as an error so the pipeline can degrade.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte) OCRResult
}

// ImageOptimizer conditionally shrinks an image before OCR
type ImageOptimizer interface {
	MaybeOptimize(ctx context.Context, image []byte) []byte
}

// Admitter bounds concurrent access to an external dependency
type Admitter interface {
	// Do runs fn while holding a permit. The permit is released when fn returns.
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// CacheRepository defines the interface for memoizing pipeline outcomes
type CacheRepository interface {
	// Get retrieves a live entry
	Get(key string) (*CacheEntry, bool)

	// Set stores an entry, replacing any previous entry for the key
	Set(entry *CacheEntry)

	// Len reports the number of live entries
	Len() int
}

// PromptSet holds the prompt policy texts consumed by the engine
type PromptSet struct {
	Router            string
	Phishing          string
	SocialEngineering string
	Unified           string
	ExtractedTextLead string
}
