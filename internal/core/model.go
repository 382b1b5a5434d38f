package core

import (
	"time"
)

// EvaluationKind selects which pipeline evaluates an image. It also namespaces cache keys.
type EvaluationKind string

const (
	KindPhishing          EvaluationKind = "phishing"
	KindSocialEngineering EvaluationKind = "social_engineering"
	KindUnified           EvaluationKind = "unified"
	KindRouted            EvaluationKind = "routed"
	KindOCR               EvaluationKind = "ocr"
)

// ContentType is the router's classification of a screenshot
type ContentType string

const (
	ContentEmail    ContentType = "email"
	ContentWhatsApp ContentType = "whatsapp"
	ContentWeb      ContentType = "web"
	ContentOther    ContentType = "other"
)

// EvaluationRequest is an uploaded image to evaluate. It is not modified once received.
type EvaluationRequest struct {
	Image  []byte
	Format string
	Kind   EvaluationKind
}

// EvaluationResult is the structured outcome of an evaluation
type EvaluationResult struct {
	Score       int
	Reason      string
	Title       string
	ContentType ContentType
	ModelUsed   string
	Degraded    bool
	AnalyzedAt  time.Time
}

// ClassificationDecision is produced once by the router stage
type ClassificationDecision struct {
	Type      ContentType
	ModelUsed string
}

// TextExtraction is the outcome of an OCR-only request
type TextExtraction struct {
	Text         string
	IsError      bool
	ErrorMessage string
	Duration     time.Duration
	Cached       bool
}

// OCRResult is what the OCR client hands to the pipeline. When Err is set, Text
// holds an error-shaped description instead of extracted content.
type OCRResult struct {
	Text  string
	Lines int
	Err   *PipelineError
}

// Failed reports whether extraction failed
func (r OCRResult) Failed() bool {
	return r.Err != nil
}

// DegradedInput marks scoring input built from an OCR failure description
// rather than from text found in the image.
const DegradedInput = "[DEGRADED_INPUT]"

// CacheEntry is a memoized pipeline outcome. Exactly one of Evaluation or Text is set.
type CacheEntry struct {
	Key        string
	Evaluation *EvaluationResult
	Text       string
	InsertedAt time.Time
}

// ScoreBand is the policy band a score falls in
type ScoreBand string

const (
	BandSafe    ScoreBand = "safe"
	BandWarning ScoreBand = "warning"
	BandDanger  ScoreBand = "danger"
)

// Band maps a 1-10 score to its band
func Band(score int) ScoreBand {
	switch {
	case score >= 7:
		return BandDanger
	case score >= 4:
		return BandWarning
	default:
		return BandSafe
	}
}
