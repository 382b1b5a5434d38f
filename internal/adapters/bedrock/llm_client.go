package bedrock

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/mikey/phish-screen/internal/core"
	"go.uber.org/zap"
)

const anthropicVersion = "bedrock-2023-05-31"

// RuntimeAPI is the part of the Bedrock runtime client used by the invoker
type RuntimeAPI interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Invoker calls one Claude model on Amazon Bedrock through the Anthropic messages API.
// Structured output is obtained by forcing the model to call a single tool whose
// input schema is the response schema.
type Invoker struct {
	client      RuntimeAPI
	modelID     string
	maxTokens   int
	temperature float32
	logger      *zap.Logger
}

// NewInvoker creates a new Bedrock invoker
func NewInvoker(client RuntimeAPI, modelID string, maxTokens int, temperature float32, logger *zap.Logger) *Invoker {
	return &Invoker{
		client:      client,
		modelID:     modelID,
		maxTokens:   maxTokens,
		temperature: temperature,
		logger:      logger,
	}
}

type messagesRequest struct {
	AnthropicVersion string      `json:"anthropic_version"`
	MaxTokens        int         `json:"max_tokens"`
	Temperature      float32     `json:"temperature"`
	System           string      `json:"system,omitempty"`
	Messages         []message   `json:"messages"`
	Tools            []tool      `json:"tools,omitempty"`
	ToolChoice       *toolChoice `json:"tool_choice,omitempty"`
}

type message struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type   string          `json:"type"`
	Text   string          `json:"text,omitempty"`
	Source *imageSource    `json:"source,omitempty"`
	Name   string          `json:"name,omitempty"`
	Input  json.RawMessage `json:"input,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"input_schema"`
}

type toolChoice struct {
	Type string `json:"type"`
	Name string `json:"name"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// ModelName returns the Bedrock model id
func (c *Invoker) ModelName() string {
	return c.modelID
}

// Invoke sends the request and returns the tool input produced by the model
func (c *Invoker) Invoke(ctx context.Context, req *core.ModelRequest) (json.RawMessage, error) {
	payload, err := json.Marshal(c.buildRequest(req))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	resp, err := c.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(c.modelID),
		Body:        payload,
		Accept:      aws.String("application/json"),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke Bedrock model %s: %w", c.modelID, err)
	}

	var out messagesResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal Claude response: %w", err)
	}

	c.logger.Debug("Bedrock model answered",
		zap.String("model", c.modelID),
		zap.String("stop_reason", out.StopReason),
		zap.Int("blocks", len(out.Content)))

	return extractOutput(out, req.Schema.Name)
}

func (c *Invoker) buildRequest(req *core.ModelRequest) *messagesRequest {
	var content []contentBlock
	if req.Image != nil {
		content = append(content, contentBlock{
			Type: "image",
			Source: &imageSource{
				Type:      "base64",
				MediaType: req.Image.MediaType,
				Data:      base64.StdEncoding.EncodeToString(req.Image.Data),
			},
		})
	}
	content = append(content, contentBlock{Type: "text", Text: req.Prompt})

	return &messagesRequest{
		AnthropicVersion: anthropicVersion,
		MaxTokens:        c.maxTokens,
		Temperature:      c.temperature,
		System:           req.System,
		Messages:         []message{{Role: "user", Content: content}},
		Tools: []tool{{
			Name:        req.Schema.Name,
			Description: req.Schema.Description,
			InputSchema: req.Schema.JSONSchema(),
		}},
		ToolChoice: &toolChoice{Type: "tool", Name: req.Schema.Name},
	}
}

// extractOutput prefers the forced tool call and falls back to a JSON object in a text block
func extractOutput(resp messagesResponse, toolName string) (json.RawMessage, error) {
	for _, block := range resp.Content {
		if block.Type == "tool_use" && block.Name == toolName && len(block.Input) > 0 {
			return block.Input, nil
		}
	}
	for _, block := range resp.Content {
		if block.Type == "text" && block.Text != "" {
			return json.RawMessage(core.ExtractJSON(block.Text)), nil
		}
	}
	return nil, core.ErrEmptyResponse
}
