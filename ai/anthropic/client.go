// Package anthropic is a client for the Anthropic Messages API.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/vigil/ai/openrouter"
	"github.com/teranos/vigil/ai/pricing"
	"github.com/teranos/vigil/ai/tracker"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/internal/httpclient"
	"github.com/teranos/vigil/logger"
)

const (
	// DefaultModel is the default Claude model
	DefaultModel = "claude-sonnet-4-5"

	// BaseURL is the Anthropic API endpoint
	BaseURL = "https://api.anthropic.com/v1"

	// APIVersion is the required Anthropic API version header
	APIVersion = "2023-06-01"

	defaultMaxTokens = 1024
	providerName     = "anthropic"
)

// Client represents an Anthropic API client
type Client struct {
	baseURL    string
	httpClient *httpclient.SaferClient
	config     Config
	logger     *zap.SugaredLogger
}

// Config holds Anthropic client configuration
type Config struct {
	APIKey    string
	Model     string
	MaxTokens *int // nil = default (1024); the API requires a value
	Timeout   time.Duration
	Logger    *zap.SugaredLogger
	Tracker   tracker.Recorder
}

// NewClient creates a new Anthropic API client
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == nil {
		n := defaultMaxTokens
		config.MaxTokens = &n
	}
	if config.Timeout <= 0 {
		config.Timeout = 120 * time.Second
	}
	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Client{
		baseURL:    BaseURL,
		httpClient: httpclient.NewSaferClient(config.Timeout),
		config:     config,
		logger:     log,
	}
}

// MessagesRequest represents a request to the Anthropic Messages API
type MessagesRequest struct {
	Model       string      `json:"model"`
	MaxTokens   int         `json:"max_tokens"`
	Messages    []Message   `json:"messages"`
	System      string      `json:"system,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	Tools       []Tool      `json:"tools,omitempty"`
	ToolChoice  *ToolChoice `json:"tool_choice,omitempty"`
}

// Message represents a message in the conversation
type Message struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Tool declares a tool with a JSON schema for its input
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"input_schema"`
}

// ToolChoice forces the model to use the named tool
type ToolChoice struct {
	Type string `json:"type"` // "tool"
	Name string `json:"name"`
}

// MessagesResponse represents the response from the Messages API
type MessagesResponse struct {
	ID         string         `json:"id"`
	Type       string         `json:"type"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	Model      string         `json:"model"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ContentBlock is a text or tool_use block of a response
type ContentBlock struct {
	Type  string          `json:"type"`
	Text  string          `json:"text,omitempty"`
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`
}

// Usage represents token usage information
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// apiError is the error envelope of non-2xx responses
type apiError struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// CreateMessage sends one request to the Messages API
func (c *Client) CreateMessage(ctx context.Context, req MessagesRequest) (*MessagesResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/messages", bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.config.APIKey)
	httpReq.Header.Set("anthropic-version", APIVersion)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
			return nil, errors.Newf("API request failed with status %d: %s: %s", resp.StatusCode, apiErr.Error.Type, apiErr.Error.Message)
		}
		return nil, errors.Newf("API request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var msgResp MessagesResponse
	if err := json.Unmarshal(respBody, &msgResp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}
	return &msgResp, nil
}

// Chat sends a single request using the provider-independent request type.
// A Tool becomes a forced tool_use whose input is returned as ToolArguments.
func (c *Client) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	if c.config.APIKey == "" {
		return nil, errors.WithHint(errors.New("Anthropic API key not configured"),
			"set VIGIL_ANTHROPIC_API_KEY or anthropic.api_key in am.toml")
	}

	model := c.config.Model
	if req.Model != nil {
		model = *req.Model
	}
	maxTokens := *c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	wireReq := MessagesRequest{
		Model:       model,
		MaxTokens:   maxTokens,
		System:      req.SystemPrompt,
		Messages:    []Message{{Role: "user", Content: req.UserPrompt}},
		Temperature: req.Temperature,
	}
	if req.Tool != nil {
		wireReq.Tools = []Tool{{
			Name:        req.Tool.Name,
			Description: req.Tool.Description,
			InputSchema: req.Tool.Parameters,
		}}
		wireReq.ToolChoice = &ToolChoice{Type: "tool", Name: req.Tool.Name}
	}

	log := logger.FromContext(ctx, c.logger)
	log.Debugw("Messages request", logger.FieldModel, model, "max_tokens", maxTokens, "structured", req.Tool != nil)

	requestTime := time.Now()
	resp, err := c.CreateMessage(ctx, wireReq)
	if err != nil {
		c.track(ctx, req, model, maxTokens, requestTime, nil, err)
		return nil, errors.Wrap(err, "anthropic messages")
	}

	out := &openrouter.ChatResponse{
		Model: model,
		Usage: openrouter.Usage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
			TotalTokens:      resp.Usage.InputTokens + resp.Usage.OutputTokens,
		},
	}

	var text strings.Builder
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			text.WriteString(block.Text)
		case "tool_use":
			if req.Tool != nil && block.Name == req.Tool.Name {
				out.ToolArguments = block.Input
			}
		}
	}
	out.Content = strings.TrimSpace(text.String())

	if req.Tool != nil && len(out.ToolArguments) == 0 {
		err := errors.NewGenerationSchemaError("model did not call tool %q (stop_reason %s)", req.Tool.Name, resp.StopReason)
		c.track(ctx, req, model, maxTokens, requestTime, resp, err)
		return nil, err
	}
	if req.Tool == nil && out.Content == "" {
		err := errors.New("no text content in Anthropic response")
		c.track(ctx, req, model, maxTokens, requestTime, resp, err)
		return nil, err
	}

	c.track(ctx, req, model, maxTokens, requestTime, resp, nil)
	return out, nil
}

func (c *Client) track(ctx context.Context, req openrouter.ChatRequest, model string, maxTokens int, requestTime time.Time, resp *MessagesResponse, callErr error) {
	if c.config.Tracker == nil {
		return
	}

	responseTime := time.Now()
	usage := &tracker.ModelUsage{
		OperationType:     req.OperationType,
		EntityType:        req.EntityType,
		EntityID:          req.EntityID,
		RunID:             logger.RunIDFromContext(ctx),
		ModelName:         model,
		ModelProvider:     providerName,
		ModelConfig:       tracker.NewModelConfig(req.Temperature, &maxTokens, req.Tool != nil),
		RequestTimestamp:  requestTime,
		ResponseTimestamp: &responseTime,
		Success:           callErr == nil,
	}
	if usage.EntityID == "" {
		usage.EntityID = logger.CheckFromContext(ctx)
	}
	if resp != nil {
		usage.TokensUsed = resp.Usage.InputTokens + resp.Usage.OutputTokens
		usage.Cost = pricing.CalculateCost(model, resp.Usage.InputTokens, resp.Usage.OutputTokens)
	}
	if callErr != nil {
		msg := callErr.Error()
		usage.ErrorMessage = &msg
	}

	if err := c.config.Tracker.TrackUsage(context.WithoutCancel(ctx), usage); err != nil {
		c.logger.Warnw("Failed to track usage", "error", err, logger.FieldModel, model)
	}
}

// Provider returns "anthropic"
func (c *Client) Provider() string {
	return providerName
}

// Model returns the default model
func (c *Client) Model() string {
	return c.config.Model
}

// SetHTTPClient allows overriding the HTTP client for testing
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = httpclient.WrapClient(client)
}
