package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponseSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  *ResponseSchema
		raw     string
		want    map[string]any
		wantErr string
	}{
		{
			name:   "valid phishing",
			schema: PhishingSchema,
			raw:    `{"scoring": 8, "reason": " Dominio sospechoso "}`,
			want:   map[string]any{"scoring": 8, "reason": "Dominio sospechoso"},
		},
		{
			name:   "integral float accepted",
			schema: SocialEngineeringSchema,
			raw:    `{"scoring": 7.0, "reason": "Urgencia"}`,
			want:   map[string]any{"scoring": 7, "reason": "Urgencia"},
		},
		{
			name:   "extra fields ignored",
			schema: PhishingSchema,
			raw:    `{"scoring": 1, "reason": "ok", "confidence": 0.9}`,
			want:   map[string]any{"scoring": 1, "reason": "ok"},
		},
		{
			name:    "fractional score",
			schema:  PhishingSchema,
			raw:     `{"scoring": 7.5, "reason": "x"}`,
			wantErr: "not an integer",
		},
		{
			name:    "score below range",
			schema:  PhishingSchema,
			raw:     `{"scoring": 0, "reason": "x"}`,
			wantErr: "out of range",
		},
		{
			name:    "score above range",
			schema:  PhishingSchema,
			raw:     `{"scoring": 11, "reason": "x"}`,
			wantErr: "out of range",
		},
		{
			name:    "score as string",
			schema:  PhishingSchema,
			raw:     `{"scoring": "8", "reason": "x"}`,
			wantErr: "not a number",
		},
		{
			name:    "missing reason",
			schema:  PhishingSchema,
			raw:     `{"scoring": 5}`,
			wantErr: `missing field "reason"`,
		},
		{
			name:    "null reason",
			schema:  PhishingSchema,
			raw:     `{"scoring": 5, "reason": null}`,
			wantErr: `missing field "reason"`,
		},
		{
			name:    "reason not a string",
			schema:  PhishingSchema,
			raw:     `{"scoring": 5, "reason": 3}`,
			wantErr: "is not a string",
		},
		{
			name:    "not json",
			schema:  PhishingSchema,
			raw:     `scoring: 5`,
			wantErr: "invalid JSON",
		},
		{
			name:   "router enum is case-insensitive",
			schema: RouterSchema,
			raw:    `{"type": "WhatsApp"}`,
			want:   map[string]any{"type": "whatsapp"},
		},
		{
			name:    "router rejects unknown type",
			schema:  RouterSchema,
			raw:     `{"type": "sms"}`,
			wantErr: "must be one of",
		},
		{
			name:   "unified optional fields absent",
			schema: UnifiedSchema,
			raw:    `{"scoring": 2}`,
			want:   map[string]any{"scoring": 2},
		},
		{
			name:   "unified safe score without reason",
			schema: UnifiedSchema,
			raw:    `{"scoring": 3, "title": ""}`,
			want:   map[string]any{"scoring": 3, "title": ""},
		},
		{
			name:    "unified risky score without reason",
			schema:  UnifiedSchema,
			raw:     `{"scoring": 9}`,
			wantErr: `field "reason" is required for score 9`,
		},
		{
			name:    "unified risky score with blank reason",
			schema:  UnifiedSchema,
			raw:     `{"scoring": 4, "reason": "   ", "title": "Alerta"}`,
			wantErr: `field "reason" is required for score 4`,
		},
		{
			name:   "unified with reason and title",
			schema: UnifiedSchema,
			raw:    `{"scoring": 9, "reason": "Pide contraseña", "title": "Peligro"}`,
			want:   map[string]any{"scoring": 9, "reason": "Pide contraseña", "title": "Peligro"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.schema.Validate([]byte(tt.raw))
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrSchemaValidation))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseSchema_JSONSchema(t *testing.T) {
	s := PhishingSchema.JSONSchema()

	assert.Equal(t, "object", s["type"])
	assert.Equal(t, []string{"scoring", "reason"}, s["required"])

	props := s["properties"].(map[string]any)
	scoring := props["scoring"].(map[string]any)
	assert.Equal(t, "integer", scoring["type"])
	assert.Equal(t, 1, scoring["minimum"])
	assert.Equal(t, 10, scoring["maximum"])

	router := RouterSchema.JSONSchema()["properties"].(map[string]any)["type"].(map[string]any)
	assert.Equal(t, []string{"email", "whatsapp"}, router["enum"])

	assert.Equal(t, []string{"scoring"}, UnifiedSchema.JSONSchema()["required"])
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "bare", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "plain fence", in: "```\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "prose around", in: `Aquí está: {"a":{"b":2}} espero que ayude`, want: `{"a":{"b":2}}`},
		{name: "no object", in: "  nothing here ", want: "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.in))
		})
	}
}

func TestCacheKey(t *testing.T) {
	img := []byte("screenshot")

	a := CacheKey(KindPhishing, img)
	assert.Equal(t, a, CacheKey(KindPhishing, []byte("screenshot")))
	assert.True(t, strings.HasPrefix(a, "phishing_"))
	assert.Len(t, strings.TrimPrefix(a, "phishing_"), 64)

	assert.NotEqual(t, a, CacheKey(KindSocialEngineering, img))
	assert.NotEqual(t, a, CacheKey(KindPhishing, []byte("screenshot2")))
}

func TestBand(t *testing.T) {
	tests := []struct {
		score int
		want  ScoreBand
	}{
		{1, BandSafe},
		{3, BandSafe},
		{4, BandWarning},
		{6, BandWarning},
		{7, BandDanger},
		{10, BandDanger},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Band(tt.score), "score %d", tt.score)
	}
}

func TestPipelineError(t *testing.T) {
	err := NewPipelineError(KindScoringTimeout, "phishing", ErrTimeout)
	assert.True(t, IsTimeout(err))
	assert.Equal(t, "phishing: scoring_timeout: operation timed out", err.Error())

	kind, ok := KindOf(errors.Join(errors.New("ctx"), err))
	assert.True(t, ok)
	assert.Equal(t, KindScoringTimeout, kind)

	provider := NewPipelineError(KindScoringProvider, "phishing", ErrSchemaValidation)
	assert.False(t, IsTimeout(provider))
	assert.True(t, errors.Is(provider, ErrSchemaValidation))

	_, ok = KindOf(errors.New("plain"))
	assert.False(t, ok)
}
