package textract

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/textract"
	"github.com/aws/aws-sdk-go-v2/service/textract/types"
	"go.uber.org/zap"
)

// API is the part of the Textract client used by the detector
type API interface {
	DetectDocumentText(ctx context.Context, params *textract.DetectDocumentTextInput, optFns ...func(*textract.Options)) (*textract.DetectDocumentTextOutput, error)
}

// Detector extracts LINE blocks from an image with Amazon Textract
type Detector struct {
	client API
	idle   func()
	logger *zap.Logger
}

// NewDetector creates a new Textract detector. closeIdle may be nil.
func NewDetector(client API, closeIdle func(), logger *zap.Logger) *Detector {
	return &Detector{
		client: client,
		idle:   closeIdle,
		logger: logger,
	}
}

// DetectText returns the text of every LINE block in reading order
func (d *Detector) DetectText(ctx context.Context, image []byte) ([]string, error) {
	out, err := d.client.DetectDocumentText(ctx, &textract.DetectDocumentTextInput{
		Document: &types.Document{Bytes: image},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to detect document text: %w", err)
	}

	lines := make([]string, 0, len(out.Blocks))
	for _, block := range out.Blocks {
		if block.BlockType == types.BlockTypeLine && block.Text != nil {
			lines = append(lines, *block.Text)
		}
	}

	d.logger.Debug("Textract detection finished",
		zap.Int("blocks", len(out.Blocks)),
		zap.Int("lines", len(lines)))
	return lines, nil
}

// Close releases pooled connections
func (d *Detector) Close() error {
	if d.idle != nil {
		d.idle()
	}
	return nil
}
