package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/mikey/phish-screen/internal/core"
	"go.uber.org/zap"
)

// Invoker calls one Gemini model with a JSON response schema
type Invoker struct {
	client      *genai.Client
	modelName   string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewInvoker creates a new Gemini invoker
func NewInvoker(client *genai.Client, modelName string, maxTokens int, temperature float32, logger *zap.Logger) *Invoker {
	return &Invoker{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// ModelName returns the Gemini model name
func (c *Invoker) ModelName() string {
	return c.modelName
}

// Invoke sends the request and returns the JSON object produced by the model
func (c *Invoker) Invoke(ctx context.Context, req *core.ModelRequest) (json.RawMessage, error) {
	// System instruction and schema vary per call, so each call gets its own model handle
	model := c.client.GenerativeModel(c.modelName)
	configureModel(model, req, c.maxTokens, c.temperature)

	resp, err := model.GenerateContent(ctx, buildParts(req)...)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}

	text := responseText(resp)
	if text == "" {
		return nil, core.ErrEmptyResponse
	}

	c.logger.Debug("Gemini model answered",
		zap.String("model", c.modelName),
		zap.Int("chars", len(text)))

	return json.RawMessage(core.ExtractJSON(text)), nil
}

func configureModel(model *genai.GenerativeModel, req *core.ModelRequest, maxTokens int, temperature float32) {
	model.SetTemperature(temperature)
	model.SetMaxOutputTokens(int32(maxTokens))
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toSchema(req.Schema)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}
}

func buildParts(req *core.ModelRequest) []genai.Part {
	var parts []genai.Part
	if req.Image != nil {
		format := strings.TrimPrefix(req.Image.MediaType, "image/")
		parts = append(parts, genai.ImageData(format, req.Image.Data))
	}
	return append(parts, genai.Text(req.Prompt))
}

func toSchema(s *core.ResponseSchema) *genai.Schema {
	out := &genai.Schema{
		Type:        genai.TypeObject,
		Description: s.Description,
		Properties:  make(map[string]*genai.Schema, len(s.Fields)),
	}
	for _, f := range s.Fields {
		prop := &genai.Schema{Description: f.Description}
		switch f.Kind {
		case core.FieldInteger:
			prop.Type = genai.TypeInteger
		default:
			prop.Type = genai.TypeString
			if len(f.Enum) > 0 {
				prop.Format = "enum"
				prop.Enum = f.Enum
			}
		}
		out.Properties[f.Name] = prop
		if f.Required {
			out.Required = append(out.Required, f.Name)
		}
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	return strings.TrimSpace(b.String())
}
