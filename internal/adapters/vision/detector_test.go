package vision

import (
	"context"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genproto/googleapis/rpc/status"
)

type fakeAnnotator struct {
	resp   *visionpb.BatchAnnotateImagesResponse
	err    error
	req    *visionpb.BatchAnnotateImagesRequest
	closed bool
}

func (f *fakeAnnotator) BatchAnnotateImages(ctx context.Context, req *visionpb.BatchAnnotateImagesRequest, opts ...gax.CallOption) (*visionpb.BatchAnnotateImagesResponse, error) {
	f.req = req
	return f.resp, f.err
}

func (f *fakeAnnotator) Close() error {
	f.closed = true
	return nil
}

func TestDetector_SplitsFullText(t *testing.T) {
	api := &fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{
			FullTextAnnotation: &visionpb.TextAnnotation{Text: "Hola mamá\nCambié de número\n"},
		}},
	}}
	d := NewDetector(api, zap.NewNop())

	lines, err := d.DetectText(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hola mamá", "Cambié de número", ""}, lines)

	require.Len(t, api.req.Requests, 1)
	assert.Equal(t, []byte("png"), api.req.Requests[0].Image.Content)
	assert.Equal(t, visionpb.Feature_DOCUMENT_TEXT_DETECTION, api.req.Requests[0].Features[0].Type)
}

func TestDetector_Errors(t *testing.T) {
	tests := []struct {
		name string
		resp *visionpb.BatchAnnotateImagesResponse
		want string
	}{
		{
			name: "no responses",
			resp: &visionpb.BatchAnnotateImagesResponse{},
			want: ErrNoResponse.Error(),
		},
		{
			name: "per-image error",
			resp: &visionpb.BatchAnnotateImagesResponse{
				Responses: []*visionpb.AnnotateImageResponse{{Error: &status.Status{Code: 3, Message: "Bad image data"}}},
			},
			want: "Vision API error: Bad image data",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(&fakeAnnotator{resp: tt.resp}, zap.NewNop())
			_, err := d.DetectText(context.Background(), []byte("png"))
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())
		})
	}
}

func TestDetector_NoTextIsNotAnError(t *testing.T) {
	d := NewDetector(&fakeAnnotator{resp: &visionpb.BatchAnnotateImagesResponse{
		Responses: []*visionpb.AnnotateImageResponse{{}},
	}}, zap.NewNop())

	lines, err := d.DetectText(context.Background(), []byte("png"))
	require.NoError(t, err)
	assert.Empty(t, lines)
}

func TestDetector_Close(t *testing.T) {
	api := &fakeAnnotator{}
	require.NoError(t, NewDetector(api, zap.NewNop()).Close())
	assert.True(t, api.closed)
}
