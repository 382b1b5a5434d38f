package core

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type serviceFixture struct {
	scorer    *fakeScorer
	ocr       *fakeOCR
	optimizer *identityOptimizer
	cache     *mapCache
	svc       *PipelineService
}

func newServiceFixture(cacheEnabled bool) *serviceFixture {
	f := &serviceFixture{
		scorer:    &fakeScorer{contentType: ContentWhatsApp, score: 8},
		ocr:       &fakeOCR{result: OCRResult{Text: "Hola, soy tu banco", Lines: 1}},
		optimizer: &identityOptimizer{},
		cache:     newMapCache(),
	}
	f.svc = NewPipelineService(f.scorer, f.ocr, f.optimizer, f.cache, zap.NewNop(), cacheEnabled)
	return f
}

func TestPipelineService_CacheHitSkipsProviders(t *testing.T) {
	f := newServiceFixture(true)
	img := []byte("same-image")

	first, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: img, Kind: KindPhishing})
	require.NoError(t, err)

	second, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("same-image"), Kind: KindPhishing})
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, []string{"phishing"}, f.scorer.called())
	assert.Equal(t, int32(1), f.ocr.calls.Load())
	assert.Equal(t, int32(1), f.optimizer.calls.Load())
	assert.Equal(t, 1, f.svc.CacheSize())

	// returned results are copies
	second.Score = 1
	third, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: img, Kind: KindPhishing})
	require.NoError(t, err)
	assert.Equal(t, 8, third.Score)
}

func TestPipelineService_KindsDoNotShareCache(t *testing.T) {
	f := newServiceFixture(true)
	img := []byte("image")

	for _, kind := range []EvaluationKind{KindPhishing, KindSocialEngineering, KindUnified} {
		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: img, Kind: kind})
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"phishing", "social_engineering", "unified"}, f.scorer.called())
	assert.Equal(t, 3, f.svc.CacheSize())
}

func TestPipelineService_Pipelines(t *testing.T) {
	t.Run("phishing scores extracted text", func(t *testing.T) {
		f := newServiceFixture(true)
		res, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("x"), Kind: KindPhishing})
		require.NoError(t, err)

		assert.Equal(t, "phishing", res.Reason)
		assert.Nil(t, f.scorer.input.Image)
		assert.Equal(t, "Hola, soy tu banco", f.scorer.input.Text)
		assert.False(t, f.scorer.input.Degraded)
	})

	t.Run("social engineering sends the image without OCR", func(t *testing.T) {
		f := newServiceFixture(true)
		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("x"), Format: "JPG", Kind: KindSocialEngineering})
		require.NoError(t, err)

		assert.Equal(t, int32(0), f.ocr.calls.Load())
		assert.Equal(t, int32(0), f.optimizer.calls.Load())
		require.NotNil(t, f.scorer.input.Image)
		assert.Equal(t, "image/jpeg", f.scorer.input.Image.MediaType)
	})

	t.Run("unified scores extracted text", func(t *testing.T) {
		f := newServiceFixture(true)
		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("x"), Kind: KindUnified})
		require.NoError(t, err)

		assert.Equal(t, []string{"unified"}, f.scorer.called())
		assert.Equal(t, int32(1), f.ocr.calls.Load())
	})
}

func TestPipelineService_Routing(t *testing.T) {
	tests := []struct {
		contentType ContentType
		want        []string
	}{
		{contentType: ContentWhatsApp, want: []string{"classify", "social_engineering"}},
		{contentType: ContentEmail, want: []string{"classify", "phishing"}},
		{contentType: ContentWeb, want: []string{"classify", "phishing"}},
		{contentType: ContentOther, want: []string{"classify", "social_engineering"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.contentType), func(t *testing.T) {
			f := newServiceFixture(true)
			f.scorer.contentType = tt.contentType

			res, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("x"), Kind: KindRouted})
			require.NoError(t, err)

			assert.Equal(t, tt.want, f.scorer.called())
			assert.Equal(t, tt.contentType, res.ContentType)
			assert.Equal(t, int32(0), f.ocr.calls.Load())
		})
	}
}

func TestPipelineService_DegradedResultsAreNotCached(t *testing.T) {
	f := newServiceFixture(true)
	f.ocr.result = OCRResult{
		Text: "Error en textract: Timeout después de 20s",
		Err:  NewPipelineError(KindOCRTimeout, "ocr", ErrTimeout),
	}
	img := []byte("blurry")

	res, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: img, Kind: KindPhishing})
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.True(t, f.scorer.input.Degraded)
	assert.Equal(t, "Error en textract: Timeout después de 20s", f.scorer.input.Text)
	assert.Equal(t, 0, f.svc.CacheSize())

	_, err = f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: img, Kind: KindPhishing})
	require.NoError(t, err)
	assert.Equal(t, int32(2), f.ocr.calls.Load())
	assert.Len(t, f.scorer.called(), 2)
}

func TestPipelineService_Errors(t *testing.T) {
	t.Run("empty image", func(t *testing.T) {
		f := newServiceFixture(true)
		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Kind: KindPhishing})
		kind, _ := KindOf(err)
		assert.Equal(t, KindInvalidInput, kind)
		assert.True(t, errors.Is(err, ErrEmptyImage))

		_, err = f.svc.Evaluate(context.Background(), nil)
		kind, _ = KindOf(err)
		assert.Equal(t, KindInvalidInput, kind)
	})

	t.Run("unknown kind", func(t *testing.T) {
		f := newServiceFixture(true)
		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("x"), Kind: "audio"})
		kind, _ := KindOf(err)
		assert.Equal(t, KindInvalidInput, kind)
	})

	t.Run("scoring timeout propagates and is not cached", func(t *testing.T) {
		f := newServiceFixture(true)
		f.scorer.err = NewPipelineError(KindScoringTimeout, "phishing", ErrTimeout)

		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("x"), Kind: KindPhishing})
		assert.True(t, IsTimeout(err))
		assert.Equal(t, 0, f.svc.CacheSize())
	})

	t.Run("router failure stops the pipeline", func(t *testing.T) {
		f := newServiceFixture(true)
		f.scorer.err = NewPipelineError(KindScoringProvider, "classify", errors.New("boom"))

		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: []byte("x"), Kind: KindRouted})
		require.Error(t, err)
		assert.Equal(t, []string{"classify"}, f.scorer.called())
	})
}

func TestPipelineService_CacheDisabled(t *testing.T) {
	f := newServiceFixture(false)
	img := []byte("image")

	for i := 0; i < 2; i++ {
		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: img, Kind: KindSocialEngineering})
		require.NoError(t, err)
	}

	assert.Len(t, f.scorer.called(), 2)
	assert.Equal(t, 0, f.svc.CacheSize())
	assert.Equal(t, 0, f.cache.Len())

	svc := NewPipelineService(f.scorer, f.ocr, f.optimizer, nil, zap.NewNop(), true)
	assert.Equal(t, 0, svc.CacheSize())
}

func TestPipelineService_ExtractText(t *testing.T) {
	t.Run("success is cached", func(t *testing.T) {
		f := newServiceFixture(true)
		img := []byte("text-image")

		first := f.svc.ExtractText(context.Background(), img)
		assert.Equal(t, "Hola, soy tu banco", first.Text)
		assert.False(t, first.IsError)
		assert.False(t, first.Cached)

		second := f.svc.ExtractText(context.Background(), img)
		assert.Equal(t, "Hola, soy tu banco", second.Text)
		assert.True(t, second.Cached)
		assert.Equal(t, int32(1), f.ocr.calls.Load())

		// OCR entries are separate from evaluation entries
		_, err := f.svc.Evaluate(context.Background(), &EvaluationRequest{Image: img, Kind: KindPhishing})
		require.NoError(t, err)
		assert.Equal(t, int32(2), f.ocr.calls.Load())
		assert.Equal(t, 2, f.svc.CacheSize())
	})

	t.Run("failure is reported and not cached", func(t *testing.T) {
		f := newServiceFixture(true)
		f.ocr.result = OCRResult{
			Text: "Error en vision: Vision API error: bad image",
			Err:  NewPipelineError(KindOCRProvider, "ocr", errors.New("bad image")),
		}

		res := f.svc.ExtractText(context.Background(), []byte("x"))
		assert.True(t, res.IsError)
		assert.Equal(t, "Error en vision: Vision API error: bad image", res.ErrorMessage)
		assert.Empty(t, res.Text)
		assert.Equal(t, 0, f.svc.CacheSize())
	})

	t.Run("empty image", func(t *testing.T) {
		f := newServiceFixture(true)
		res := f.svc.ExtractText(context.Background(), nil)
		assert.True(t, res.IsError)
		assert.Equal(t, int32(0), f.ocr.calls.Load())
	})
}
