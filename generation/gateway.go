// Package generation is the gateway to the text generation service. It owns
// the per-call timeout, rate limiting, and the error taxonomy of generation
// failures; providers behind it only move bytes.
package generation

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/vigil/ai/openrouter"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/logger"
)

// Completer is the provider client the gateway drives
type Completer interface {
	Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
	Provider() string
	Model() string
}

// Options tune a single call
type Options struct {
	System      string
	Temperature *float64 // nil = provider default
	MaxTokens   *int

	// Usage ledger labels
	Operation string
	Entity    string
}

// Gateway is what the resolver and classifier depend on
type Gateway interface {
	Complete(ctx context.Context, prompt string, opts Options) (string, error)
	CompleteStructured(ctx context.Context, prompt string, schema Schema, opts Options) (map[string]any, error)
}

// Config configures a Client
type Config struct {
	Timeout           time.Duration // per call; 0 = none
	RequestsPerMinute int           // 0 = unlimited
	Logger            *zap.SugaredLogger

	// Trace logs full prompts and raw replies at debug level (-vvv)
	Trace bool
}

// Client implements Gateway on top of a provider client
type Client struct {
	completer Completer
	timeout   time.Duration
	limiter   *rate.Limiter
	logger    *zap.SugaredLogger
	trace     bool
}

// New creates a gateway over completer
func New(completer Completer, cfg Config) *Client {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1)
	}
	log := cfg.Logger
	if log == nil {
		log = logger.ComponentLogger("generation")
	}
	return &Client{
		completer: completer,
		timeout:   cfg.Timeout,
		limiter:   limiter,
		logger:    log,
		trace:     cfg.Trace,
	}
}

// Complete returns the text reply to prompt
func (c *Client) Complete(ctx context.Context, prompt string, opts Options) (string, error) {
	resp, err := c.call(ctx, prompt, nil, opts)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteStructured returns a value conforming to schema. The schema is sent
// as a forced tool call and the arguments are validated on the way back.
func (c *Client) CompleteStructured(ctx context.Context, prompt string, schema Schema, opts Options) (map[string]any, error) {
	tool := &openrouter.Tool{
		Name:        schema.Name,
		Description: schema.Description,
		Parameters:  schema.JSONSchema(),
	}
	resp, err := c.call(ctx, prompt, tool, opts)
	if err != nil {
		return nil, err
	}
	return schema.Decode(resp.ToolArguments)
}

func (c *Client) call(ctx context.Context, prompt string, tool *openrouter.Tool, opts Options) (*openrouter.ChatResponse, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	log := logger.FromContext(ctx, c.logger)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, c.classify(ctx, err, "rate limiter")
	}

	if c.trace {
		log.Debugw("Generation prompt",
			logger.FieldOperation, opts.Operation,
			"system", opts.System,
			"prompt", prompt,
		)
	}

	start := time.Now()
	resp, err := c.completer.Chat(ctx, openrouter.ChatRequest{
		SystemPrompt:  opts.System,
		UserPrompt:    prompt,
		Temperature:   opts.Temperature,
		MaxTokens:     opts.MaxTokens,
		Tool:          tool,
		OperationType: opts.Operation,
		EntityType:    "check",
		EntityID:      opts.Entity,
	})
	duration := time.Since(start)

	if err != nil {
		err = c.classify(ctx, err, c.completer.Provider())
		log.Warnw("Generation failed",
			logger.FieldProvider, c.completer.Provider(),
			logger.FieldOperation, opts.Operation,
			logger.FieldDurationMS, duration.Milliseconds(),
			logger.FieldErrorKind, errors.Kind(err),
			logger.FieldError, err.Error(),
		)
		return nil, err
	}

	log.Debugw("Generation complete",
		logger.FieldProvider, c.completer.Provider(),
		logger.FieldModel, resp.Model,
		logger.FieldOperation, opts.Operation,
		logger.FieldDurationMS, duration.Milliseconds(),
		"total_tokens", resp.Usage.TotalTokens,
	)
	if c.trace {
		log.Debugw("Generation reply",
			logger.FieldOperation, opts.Operation,
			"content", resp.Content,
			"tool_arguments", string(resp.ToolArguments),
		)
	}
	return resp, nil
}

// classify maps a provider error onto the taxonomy. Schema violations pass
// through; everything else is a generation error, and deadline expiry is
// additionally a timeout.
func (c *Client) classify(ctx context.Context, err error, label string) error {
	if errors.Is(err, errors.ErrGenerationSchema) {
		return err
	}
	err = errors.WrapGeneration(err, label)
	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() == context.DeadlineExceeded {
		err = errors.Mark(err, errors.ErrTimeout)
	}
	return err
}

var _ Gateway = (*Client)(nil)
