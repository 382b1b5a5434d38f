package core

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

type fakeInvoker struct {
	name  string
	raw   string
	err   error
	block bool
	delay time.Duration

	calls atomic.Int32
	mu    sync.Mutex
	last  *ModelRequest
}

func (f *fakeInvoker) Invoke(ctx context.Context, req *ModelRequest) (json.RawMessage, error) {
	f.calls.Add(1)
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return json.RawMessage(f.raw), nil
}

func (f *fakeInvoker) ModelName() string {
	return f.name
}

func (f *fakeInvoker) lastRequest() *ModelRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

type passAdmitter struct {
	calls atomic.Int32
}

func (p *passAdmitter) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	p.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(ctx)
}

type mapCache struct {
	mu      sync.Mutex
	entries map[string]*CacheEntry
}

func newMapCache() *mapCache {
	return &mapCache{entries: make(map[string]*CacheEntry)}
}

func (c *mapCache) Get(key string) (*CacheEntry, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	return e, ok
}

func (c *mapCache) Set(entry *CacheEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[entry.Key] = entry
}

func (c *mapCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

type fakeOCR struct {
	result OCRResult
	calls  atomic.Int32
}

func (f *fakeOCR) ExtractText(_ context.Context, _ []byte) OCRResult {
	f.calls.Add(1)
	return f.result
}

type identityOptimizer struct {
	calls atomic.Int32
}

func (o *identityOptimizer) MaybeOptimize(_ context.Context, image []byte) []byte {
	o.calls.Add(1)
	return image
}

// fakeScorer records which specialist ran and with what input
type fakeScorer struct {
	contentType ContentType
	score       int
	err         error

	mu    sync.Mutex
	calls []string
	input ScoringInput
}

func (f *fakeScorer) record(name string, in ScoringInput) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.input = in
}

func (f *fakeScorer) called() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeScorer) Classify(_ context.Context, image *ImageInput) (*ClassificationDecision, error) {
	f.record("classify", ScoringInput{Image: image})
	if f.err != nil {
		return nil, f.err
	}
	return &ClassificationDecision{Type: f.contentType, ModelUsed: "router"}, nil
}

func (f *fakeScorer) evaluate(name string, in ScoringInput, ct ContentType) (*EvaluationResult, error) {
	f.record(name, in)
	if f.err != nil {
		return nil, f.err
	}
	return &EvaluationResult{
		Score:       f.score,
		Reason:      name,
		ContentType: ct,
		ModelUsed:   "model",
		Degraded:    in.Degraded,
		AnalyzedAt:  time.Now(),
	}, nil
}

func (f *fakeScorer) EvaluatePhishing(_ context.Context, in ScoringInput) (*EvaluationResult, error) {
	return f.evaluate("phishing", in, ContentEmail)
}

func (f *fakeScorer) EvaluateSocialEngineering(_ context.Context, in ScoringInput) (*EvaluationResult, error) {
	return f.evaluate("social_engineering", in, ContentWhatsApp)
}

func (f *fakeScorer) EvaluateUnified(_ context.Context, in ScoringInput) (*EvaluationResult, error) {
	return f.evaluate("unified", in, "")
}
