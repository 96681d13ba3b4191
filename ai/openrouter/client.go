// Package openrouter is a client for OpenAI-compatible chat completion
// endpoints: OpenRouter itself and local servers such as Ollama or LocalAI.
package openrouter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/vigil/ai/pricing"
	"github.com/teranos/vigil/ai/tracker"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/internal/httpclient"
	"github.com/teranos/vigil/logger"
)

const (
	// DefaultModel is the fallback model when none is specified.
	// Matches the default in am/defaults.go.
	DefaultModel = "openai/gpt-4o-mini"

	// DefaultBaseURL is the OpenRouter API root
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	defaultMaxTokens = 1000
	defaultTimeout   = 120 * time.Second
)

// Client talks to an OpenAI-compatible /chat/completions endpoint
type Client struct {
	baseURL    string
	httpClient *httpclient.SaferClient
	config     Config
	logger     *zap.SugaredLogger
}

// Config holds client configuration
type Config struct {
	APIKey    string
	Model     string
	MaxTokens *int // nil = default (1000)

	// BaseURL overrides DefaultBaseURL, e.g. http://localhost:11434/v1
	BaseURL string
	// ProviderName is recorded in the usage ledger; defaults to "openrouter"
	ProviderName string
	// Local endpoints need no API key and live on private addresses
	Local   bool
	Timeout time.Duration

	Logger  *zap.SugaredLogger // nil = nop logger
	Tracker tracker.Recorder   // nil = usage is not recorded
}

// NewClient creates a client with defaults applied
func NewClient(config Config) *Client {
	if config.Model == "" {
		config.Model = DefaultModel
	}
	if config.MaxTokens == nil {
		defaultTokens := defaultMaxTokens
		config.MaxTokens = &defaultTokens
	}
	if config.ProviderName == "" {
		config.ProviderName = "openrouter"
	}
	if config.Timeout <= 0 {
		config.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(config.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	log := config.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	// Local inference servers listen on loopback or the LAN
	blockPrivateIP := !config.Local
	saferClient := httpclient.NewSaferClientWithOptions(config.Timeout, httpclient.SaferClientOptions{
		BlockPrivateIP: &blockPrivateIP,
	})

	return &Client{
		baseURL:    baseURL,
		httpClient: saferClient,
		config:     config,
		logger:     log,
	}
}

// Tool declares a function the model must call. Parameters is a JSON schema
// object; the call's arguments are the structured output.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ChatRequest is a single-turn request shared by every provider
type ChatRequest struct {
	SystemPrompt string
	UserPrompt   string
	Temperature  *float64 // nil = provider default, not sent
	MaxTokens    *int     // Override default max tokens
	Model        *string  // Override default model
	Tool         *Tool    // Forces a call to this tool when set

	// Usage ledger context
	OperationType string
	EntityType    string
	EntityID      string
}

// ChatResponse is the provider-independent reply
type ChatResponse struct {
	Content       string
	ToolArguments json.RawMessage // Set when the request carried a Tool
	Model         string
	Usage         Usage
}

// ChatCompletionRequest is the wire request for /chat/completions
type ChatCompletionRequest struct {
	Model       string           `json:"model"`
	Messages    []Message        `json:"messages"`
	Temperature *float64         `json:"temperature,omitempty"`
	MaxTokens   int              `json:"max_tokens,omitempty"`
	Tools       []ToolDefinition `json:"tools,omitempty"`
	ToolChoice  *ToolChoice      `json:"tool_choice,omitempty"`
}

// ToolDefinition is the wire form of a Tool
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes a callable function
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters"`
}

// ToolChoice pins the model to one function
type ToolChoice struct {
	Type     string           `json:"type"`
	Function ToolChoiceTarget `json:"function"`
}

// ToolChoiceTarget names the pinned function
type ToolChoiceTarget struct {
	Name string `json:"name"`
}

// Message is a chat message. Content is raw so a null content on tool
// calls round-trips.
type Message struct {
	Role      string          `json:"role"`
	Content   json.RawMessage `json:"content"`
	ToolCalls []ToolCall      `json:"tool_calls,omitempty"`
}

// ToolCall is a function invocation returned by the model
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the JSON-encoded arguments of a tool call
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewTextMessage creates a Message with plain text content
func NewTextMessage(role, text string) Message {
	raw, _ := json.Marshal(text)
	return Message{Role: role, Content: raw}
}

// TextContent returns Content as a string; null content yields "".
func (m Message) TextContent() string {
	if len(m.Content) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(m.Content, &s); err != nil {
		return string(m.Content)
	}
	return s
}

// ChatCompletionResponse is the wire response of /chat/completions
type ChatCompletionResponse struct {
	ID      string   `json:"id"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   Usage    `json:"usage"`
}

// Choice represents a completion choice
type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

// Usage represents token usage information
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// CreateChatCompletion sends one request to /chat/completions. Non-2xx
// replies become errors carrying the status and body.
func (c *Client) CreateChatCompletion(ctx context.Context, req ChatCompletionRequest) (*ChatCompletionResponse, error) {
	reqBody, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	httpReq.Header.Set("Content-Type", "application/json")
	if c.config.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.config.APIKey)
	}
	// OpenRouter dashboard attribution
	httpReq.Header.Set("X-Title", "vigil")

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
		return nil, errors.Newf("API request failed with status %d: %s", resp.StatusCode, truncate(string(respBody), 500))
	}

	var chatResp ChatCompletionResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal response")
	}

	return &chatResp, nil
}

// Chat sends a single chat completion. There are no retries: a failed call
// is reported to the caller, which records it against the check.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if !c.IsConfigured() {
		return nil, errors.WithHint(
			errors.Newf("%s API key not configured", c.config.ProviderName),
			"set VIGIL_OPENROUTER_API_KEY or openrouter.api_key in am.toml")
	}

	maxTokens := *c.config.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	model := c.config.Model
	if req.Model != nil {
		model = *req.Model
	}

	log := logger.FromContext(ctx, c.logger)
	log.Debugw("Chat request",
		logger.FieldProvider, c.config.ProviderName,
		logger.FieldModel, model,
		"max_tokens", maxTokens,
		"structured", req.Tool != nil,
	)

	messages := []Message{NewTextMessage("user", req.UserPrompt)}
	if req.SystemPrompt != "" {
		messages = append([]Message{NewTextMessage("system", req.SystemPrompt)}, messages...)
	}

	wireReq := ChatCompletionRequest{
		Model:       model,
		Messages:    messages,
		Temperature: req.Temperature,
		MaxTokens:   maxTokens,
	}
	if req.Tool != nil {
		wireReq.Tools = []ToolDefinition{{
			Type: "function",
			Function: FunctionDefinition{
				Name:        req.Tool.Name,
				Description: req.Tool.Description,
				Parameters:  req.Tool.Parameters,
			},
		}}
		wireReq.ToolChoice = &ToolChoice{Type: "function", Function: ToolChoiceTarget{Name: req.Tool.Name}}
	}

	requestTime := time.Now()
	resp, err := c.CreateChatCompletion(ctx, wireReq)
	if err != nil {
		c.track(ctx, req, model, maxTokens, requestTime, nil, err)
		return nil, errors.Wrapf(err, "%s chat completion", c.config.ProviderName)
	}

	if len(resp.Choices) == 0 {
		err := errors.Newf("no response choices from %s", c.config.ProviderName)
		c.track(ctx, req, model, maxTokens, requestTime, resp, err)
		return nil, err
	}

	msg := resp.Choices[0].Message
	out := &ChatResponse{
		Content: strings.TrimSpace(msg.TextContent()),
		Model:   model,
		Usage:   resp.Usage,
	}

	if req.Tool != nil {
		args, err := toolArguments(msg, req.Tool.Name)
		if err != nil {
			c.track(ctx, req, model, maxTokens, requestTime, resp, err)
			return nil, err
		}
		out.ToolArguments = args
	}

	log.Debugw("Chat response",
		logger.FieldModel, model,
		"content_length", len(out.Content),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	c.track(ctx, req, model, maxTokens, requestTime, resp, nil)
	return out, nil
}

// toolArguments pulls the arguments of the named tool call out of msg. A
// reply without the call does not conform to the requested schema.
func toolArguments(msg Message, name string) (json.RawMessage, error) {
	for _, call := range msg.ToolCalls {
		if call.Function.Name != name {
			continue
		}
		args := strings.TrimSpace(call.Function.Arguments)
		if args == "" {
			return nil, errors.NewGenerationSchemaError("tool call %q has no arguments", name)
		}
		return json.RawMessage(args), nil
	}
	return nil, errors.NewGenerationSchemaError("model did not call tool %q", name)
}

func (c *Client) track(ctx context.Context, req ChatRequest, model string, maxTokens int, requestTime time.Time, resp *ChatCompletionResponse, callErr error) {
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
		ModelProvider:     c.config.ProviderName,
		ModelConfig:       tracker.NewModelConfig(req.Temperature, &maxTokens, req.Tool != nil),
		RequestTimestamp:  requestTime,
		ResponseTimestamp: &responseTime,
		Success:           callErr == nil,
	}
	if usage.EntityID == "" {
		usage.EntityID = logger.CheckFromContext(ctx)
	}
	if resp != nil {
		usage.TokensUsed = resp.Usage.TotalTokens
		// local inference is free
		if !c.config.Local {
			usage.Cost = pricing.CalculateCost(model, resp.Usage.PromptTokens, resp.Usage.CompletionTokens)
		}
	}
	if callErr != nil {
		msg := callErr.Error()
		usage.ErrorMessage = &msg
	}

	// cancelled calls are still recorded
	if err := c.config.Tracker.TrackUsage(context.WithoutCancel(ctx), usage); err != nil {
		c.logger.Warnw("Failed to track usage", "error", err, logger.FieldModel, model)
	}
}

// IsConfigured reports whether the client can authenticate
func (c *Client) IsConfigured() bool {
	return c.config.Local || c.config.APIKey != ""
}

// Provider returns the provider name recorded in the ledger
func (c *Client) Provider() string {
	return c.config.ProviderName
}

// Model returns the default model
func (c *Client) Model() string {
	return c.config.Model
}

// String identifies the client in logs
func (c *Client) String() string {
	return fmt.Sprintf("%s(%s)", c.config.ProviderName, c.config.Model)
}

// SetHTTPClient allows overriding the HTTP client for testing.
// Only use this in tests; production code keeps the SSRF-safer client.
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = httpclient.WrapClient(client)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
