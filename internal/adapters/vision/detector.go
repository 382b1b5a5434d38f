package vision

import (
	"context"
	"errors"
	"fmt"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"go.uber.org/zap"
)

// API is the part of the image annotator client used by the detector
type API interface {
	BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error)
	Close() error
}

var _ API = (*vision.ImageAnnotatorClient)(nil)

// ErrNoResponse is returned when the API answers with no per-image response
var ErrNoResponse = errors.New("no response from Vision API")

// Detector extracts text lines from an image with Google Cloud Vision document text detection
type Detector struct {
	client API
	logger *zap.Logger
}

// NewDetector creates a new Vision detector
func NewDetector(client API, logger *zap.Logger) *Detector {
	return &Detector{
		client: client,
		logger: logger,
	}
}

// DetectText returns the full text annotation split into lines
func (d *Detector) DetectText(ctx context.Context, image []byte) ([]string, error) {
	resp, err := d.client.BatchAnnotateImages(ctx, &visionpb.BatchAnnotateImagesRequest{
		Requests: []*visionpb.AnnotateImageRequest{{
			Image: &visionpb.Image{Content: image},
			Features: []*visionpb.Feature{
				{Type: visionpb.Feature_DOCUMENT_TEXT_DETECTION},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("Vision API call failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, ErrNoResponse
	}

	imgResp := resp.Responses[0]
	if imgResp.Error != nil {
		return nil, fmt.Errorf("Vision API error: %s", imgResp.Error.Message)
	}
	if imgResp.FullTextAnnotation == nil {
		return nil, nil
	}

	lines := strings.Split(imgResp.FullTextAnnotation.Text, "\n")
	d.logger.Debug("Vision detection finished",
		zap.Int("pages", len(imgResp.FullTextAnnotation.Pages)),
		zap.Int("lines", len(lines)))
	return lines, nil
}

// Close closes the gRPC connection pool
func (d *Detector) Close() error {
	return d.client.Close()
}
