package openai

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/mikey/phish-screen/internal/core"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"go.uber.org/zap"
)

// Invoker calls one OpenAI chat model with a json_schema response format
type Invoker struct {
	client      *openai.Client
	modelName   string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewInvoker creates a new OpenAI invoker
func NewInvoker(client *openai.Client, modelName string, maxTokens int, temperature float32, logger *zap.Logger) *Invoker {
	return &Invoker{
		client:      client,
		modelName:   modelName,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

// ModelName returns the OpenAI model name
func (c *Invoker) ModelName() string {
	return c.modelName
}

// Invoke sends the request and returns the JSON object produced by the model
func (c *Invoker) Invoke(ctx context.Context, req *core.ModelRequest) (json.RawMessage, error) {
	resp, err := c.client.CreateChatCompletion(ctx, c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to call OpenAI API: %w", err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, core.ErrEmptyResponse
	}

	c.logger.Debug("OpenAI model answered",
		zap.String("model", c.modelName),
		zap.String("finish_reason", string(resp.Choices[0].FinishReason)),
		zap.Int("total_tokens", resp.Usage.TotalTokens))

	return json.RawMessage(core.ExtractJSON(resp.Choices[0].Message.Content)), nil
}

func (c *Invoker) buildRequest(req *core.ModelRequest) openai.ChatCompletionRequest {
	var messages []openai.ChatCompletionMessage
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	user := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if req.Image != nil {
		user.MultiContent = []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: req.Prompt},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    dataURL(req.Image),
					Detail: openai.ImageURLDetailHigh,
				},
			},
		}
	} else {
		user.Content = req.Prompt
	}
	messages = append(messages, user)

	return openai.ChatCompletionRequest{
		Model:               c.modelName,
		Messages:            messages,
		MaxCompletionTokens: c.maxTokens,
		Temperature:         c.temperature,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      toDefinition(req.Schema),
			},
		},
	}
}

func dataURL(img *core.ImageInput) string {
	return "data:" + img.MediaType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

// toDefinition converts a response schema. Ranges are carried in the description
// since jsonschema.Definition has no numeric bounds.
func toDefinition(s *core.ResponseSchema) *jsonschema.Definition {
	def := &jsonschema.Definition{
		Type:        jsonschema.Object,
		Description: s.Description,
		Properties:  make(map[string]jsonschema.Definition, len(s.Fields)),
	}
	for _, f := range s.Fields {
		prop := jsonschema.Definition{
			Description: f.Description,
			Enum:        f.Enum,
		}
		switch f.Kind {
		case core.FieldInteger:
			prop.Type = jsonschema.Integer
			if f.Min != 0 || f.Max != 0 {
				prop.Description = fmt.Sprintf("%s (%d-%d)", f.Description, f.Min, f.Max)
			}
		default:
			prop.Type = jsonschema.String
		}
		def.Properties[f.Name] = prop
		if f.Required {
			def.Required = append(def.Required, f.Name)
		}
	}
	return def
}
