package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// ModelChain calls a cheap primary model and, if that fails for any reason
// including an invalid response, retries once on its fallback model.
type ModelChain struct {
	primary  ModelInvoker
	fallback ModelInvoker
	logger   *zap.Logger
}

// NewModelChain creates a new model chain. fallback may be nil.
func NewModelChain(primary, fallback ModelInvoker, logger *zap.Logger) *ModelChain {
	return &ModelChain{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// Call invokes the chain and returns the validated fields and the model that produced them
func (c *ModelChain) Call(ctx context.Context, req *ModelRequest) (map[string]any, string, error) {
	fields, err := c.attempt(ctx, c.primary, req)
	if err == nil {
		return fields, c.primary.ModelName(), nil
	}

	if c.fallback == nil {
		return nil, "", err
	}
	// The deadline covers both hops
	if ctx.Err() != nil {
		return nil, "", err
	}

	c.logger.Warn("Primary model failed, using fallback",
		zap.String("primary", c.primary.ModelName()),
		zap.String("fallback", c.fallback.ModelName()),
		zap.String("schema", req.Schema.Name),
		zap.Error(err))

	fields, fbErr := c.attempt(ctx, c.fallback, req)
	if fbErr != nil {
		return nil, "", fmt.Errorf("fallback model %s failed: %w (primary: %v)", c.fallback.ModelName(), fbErr, err)
	}
	return fields, c.fallback.ModelName(), nil
}

// Models returns the names of the configured models in call order
func (c *ModelChain) Models() []string {
	names := []string{c.primary.ModelName()}
	if c.fallback != nil {
		names = append(names, c.fallback.ModelName())
	}
	return names
}

func (c *ModelChain) attempt(ctx context.Context, inv ModelInvoker, req *ModelRequest) (map[string]any, error) {
	raw, err := inv.Invoke(ctx, req)
	if err != nil {
		return nil, err
	}
	return req.Schema.Validate(raw)
}
