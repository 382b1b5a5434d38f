package imageprep

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"time"

	"go.uber.org/zap"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Options controls when and how images are optimized for OCR
type Options struct {
	// SizeThreshold is the byte size under which images are left alone
	SizeThreshold int
	// WidthThreshold is both the skip width and the target width
	WidthThreshold int
	JPEGQuality    int
	Timeout        time.Duration
}

// DefaultOptions returns the production thresholds
func DefaultOptions() Options {
	return Options{
		SizeThreshold:  500 * 1024,
		WidthThreshold: 1500,
		JPEGQuality:    85,
		Timeout:        10 * time.Second,
	}
}

// Optimizer downsamples, grayscales and re-encodes large screenshots before OCR.
// It never fails: any problem yields the original bytes.
type Optimizer struct {
	opts   Options
	logger *zap.Logger
}

// NewOptimizer creates a new optimizer
func NewOptimizer(opts Options, logger *zap.Logger) *Optimizer {
	return &Optimizer{opts: opts, logger: logger}
}

// ShouldOptimize reports whether an image is large enough to be worth transforming.
// If its dimensions cannot be read it is assumed to need work.
func (o *Optimizer) ShouldOptimize(data []byte) bool {
	if len(data) < o.opts.SizeThreshold {
		return false
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return true
	}
	return cfg.Width > o.opts.WidthThreshold
}

// MaybeOptimize returns an optimized JPEG, or data unchanged when optimization is
// skipped, fails or runs past the timeout.
func (o *Optimizer) MaybeOptimize(ctx context.Context, data []byte) []byte {
	if !o.ShouldOptimize(data) {
		return data
	}

	start := time.Now()
	done := make(chan []byte, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				o.logger.Error("Image optimization panicked", zap.Any("panic", r))
				done <- data
			}
		}()

		out, err := o.Optimize(data)
		if err != nil {
			o.logger.Debug("Image optimization failed, keeping original", zap.Error(err))
			done <- data
			return
		}
		done <- out
	}()

	timer := time.NewTimer(o.opts.Timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		o.logger.Debug("Image optimized",
			zap.Int("original_bytes", len(data)),
			zap.Int("optimized_bytes", len(out)),
			zap.Duration("elapsed", time.Since(start)))
		return out
	case <-timer.C:
		o.logger.Warn("Image optimization timed out, keeping original", zap.Duration("timeout", o.opts.Timeout))
		return data
	case <-ctx.Done():
		return data
	}
}

// Optimize resizes to the width threshold if wider, converts to grayscale and encodes as JPEG
func (o *Optimizer) Optimize(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return nil, fmt.Errorf("image has no pixels")
	}

	var gray *image.Gray
	if width > o.opts.WidthThreshold {
		newHeight := int(float64(o.opts.WidthThreshold) * float64(height) / float64(width))
		if newHeight < 1 {
			newHeight = 1
		}
		gray = image.NewGray(image.Rect(0, 0, o.opts.WidthThreshold, newHeight))
		draw.CatmullRom.Scale(gray, gray.Bounds(), src, bounds, draw.Src, nil)
	} else {
		gray = image.NewGray(image.Rect(0, 0, width, height))
		draw.Draw(gray, gray.Bounds(), src, bounds.Min, draw.Src)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, gray, &jpeg.Options{Quality: o.opts.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode JPEG: %w", err)
	}
	return buf.Bytes(), nil
}
