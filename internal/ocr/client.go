// Package ocr wraps a text-detection provider behind the OCR admission gate,
// a lazily constructed shared connection and a hard per-call timeout.
//
// The client never returns an error to the pipeline. A failed extraction is
// reported as an OCRResult whose Text describes the failure, so callers can
// still score something.
package ocr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/mikey/phish-screen/internal/admission"
	"github.com/mikey/phish-screen/internal/core"
	"github.com/mikey/phish-screen/internal/utils"
	"go.uber.org/zap"
)

// NoTextFound is returned as text when the provider finds no lines
const NoTextFound = "No se pudo extraer texto"

// DetectorFactory builds the shared provider client. It is called at most once
// per successful construction.
type DetectorFactory func(ctx context.Context) (core.TextDetector, error)

// Options configures the OCR client
type Options struct {
	// Provider is used in failure descriptions, e.g. "Textract"
	Provider string
	Timeout  time.Duration
	// MaxTextBytes caps the extracted text; zero means unlimited
	MaxTextBytes int
}

// Client is the OCR client used by the pipeline
type Client struct {
	gate    *admission.Gate
	factory DetectorFactory
	opts    Options
	text    *utils.TextProcessor
	logger  *zap.Logger

	mu       sync.Mutex
	detector core.TextDetector
}

// NewClient creates a new OCR client. The provider connection is not opened until first use or Warm.
func NewClient(gate *admission.Gate, factory DetectorFactory, opts Options, text *utils.TextProcessor, logger *zap.Logger) *Client {
	if opts.Provider == "" {
		opts.Provider = "OCR"
	}
	return &Client{
		gate:    gate,
		factory: factory,
		opts:    opts,
		text:    text,
		logger:  logger,
	}
}

// Warm constructs the shared provider client ahead of the first request
func (c *Client) Warm(ctx context.Context) error {
	_, err := c.get(ctx)
	return err
}

// Initialized reports whether the shared provider client exists
func (c *Client) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.detector != nil
}

// Gate returns the admission gate guarding the provider
func (c *Client) Gate() *admission.Gate {
	return c.gate
}

// Close tears down the shared provider client. A later call constructs a new one.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detector == nil {
		return nil
	}
	var err error
	if closer, ok := c.detector.(io.Closer); ok {
		err = closer.Close()
	}
	c.detector = nil
	return err
}

func (c *Client) get(ctx context.Context) (core.TextDetector, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.detector != nil {
		return c.detector, nil
	}

	det, err := c.factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s client: %w", c.opts.Provider, err)
	}
	c.detector = det
	c.logger.Info("OCR client initialized", zap.String("provider", c.opts.Provider))
	return det, nil
}

type detection struct {
	lines []string
	err   error
}

// ExtractText detects text in image and joins the lines in reading order.
// The shared provider client is constructed after a ticket is held and
// within the call deadline.
func (c *Client) ExtractText(ctx context.Context, image []byte) core.OCRResult {
	start := time.Now()

	var lines []string
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()

		done := make(chan detection, 1)
		go func() {
			det, err := c.get(callCtx)
			if err != nil {
				done <- detection{err: err}
				return
			}
			l, err := det.DetectText(callCtx, image)
			done <- detection{lines: l, err: err}
		}()

		select {
		case d := <-done:
			lines = d.lines
			return d.err
		case <-callCtx.Done():
			return callCtx.Err()
		}
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.failure(core.KindOCRTimeout, err)
		}
		return c.failure(core.KindOCRProvider, err)
	}

	text, n := c.text.JoinLines(lines)
	if n == 0 {
		c.logger.Debug("OCR found no text", zap.Duration("elapsed", time.Since(start)))
		return core.OCRResult{Text: NoTextFound}
	}
	text = c.text.TruncateText(text, c.opts.MaxTextBytes)

	c.logger.Debug("OCR completed",
		zap.String("provider", c.opts.Provider),
		zap.Int("lines", n),
		zap.Int("chars", len(text)),
		zap.Duration("elapsed", time.Since(start)))
	return core.OCRResult{Text: text, Lines: n}
}

func (c *Client) failure(kind core.ErrorKind, err error) core.OCRResult {
	var text string
	if kind == core.KindOCRTimeout {
		text = fmt.Sprintf("Error en %s: Timeout después de %s", c.opts.Provider, c.opts.Timeout)
		err = fmt.Errorf("%w after %s: %v", core.ErrTimeout, c.opts.Timeout, err)
	} else {
		text = fmt.Sprintf("Error en %s: %v", c.opts.Provider, err)
	}

	c.logger.Warn("OCR failed",
		zap.String("provider", c.opts.Provider),
		zap.String("error_kind", string(kind)),
		zap.Error(err))

	return core.OCRResult{
		Text: text,
		Err:  core.NewPipelineError(kind, "ocr", err),
	}
}
