package generation

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/vigil/ai/openrouter"
	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/internal/util"
)

type fakeCompleter struct {
	requests []openrouter.ChatRequest
	respond  func(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error)
}

func (f *fakeCompleter) Chat(ctx context.Context, req openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	f.requests = append(f.requests, req)
	return f.respond(ctx, req)
}

func (f *fakeCompleter) Provider() string { return "fake" }
func (f *fakeCompleter) Model() string    { return "fake-1" }

func replyText(text string) func(context.Context, openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	return func(context.Context, openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
		return &openrouter.ChatResponse{Content: text, Model: "fake-1"}, nil
	}
}

func replyArgs(args string) func(context.Context, openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
	return func(context.Context, openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
		return &openrouter.ChatResponse{ToolArguments: json.RawMessage(args), Model: "fake-1"}, nil
	}
}

var verdictSchema = Schema{
	Name:        "verdict",
	Description: "Judge the input",
	Fields: []Field{
		{Name: "label", Type: TypeString, Enum: []string{"good", "bad"}, Required: true},
		{Name: "title", Type: TypeString, MaxLength: 10, Required: true},
		{Name: "score", Type: TypeInteger},
		{Name: "confidence", Type: TypeNumber},
		{Name: "final", Type: TypeBoolean},
	},
}

func newTestClient(t *testing.T, f *fakeCompleter, cfg Config) *Client {
	cfg.Logger = zaptest.NewLogger(t).Sugar()
	return New(f, cfg)
}

func TestComplete(t *testing.T) {
	f := &fakeCompleter{respond: replyText("SELECT 1")}
	c := newTestClient(t, f, Config{})

	text, err := c.Complete(context.Background(), "count rows", Options{
		System:      "You are a SQL expert.",
		Temperature: util.Ptr(0.3),
		Operation:   "resolve",
		Entity:      "daily_users",
	})
	require.NoError(t, err)
	assert.Equal(t, "SELECT 1", text)

	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "You are a SQL expert.", req.SystemPrompt)
	assert.Equal(t, "count rows", req.UserPrompt)
	assert.Equal(t, 0.3, *req.Temperature)
	assert.Nil(t, req.Tool)
	assert.Equal(t, "resolve", req.OperationType)
	assert.Equal(t, "daily_users", req.EntityID)
}

func TestCompleteAppliesNoDefaultTemperature(t *testing.T) {
	f := &fakeCompleter{respond: replyText("ok")}
	_, err := newTestClient(t, f, Config{}).Complete(context.Background(), "p", Options{})
	require.NoError(t, err)
	assert.Nil(t, f.requests[0].Temperature)
}

func TestCompleteTransportError(t *testing.T) {
	f := &fakeCompleter{respond: func(context.Context, openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
		return nil, errors.New("API request failed with status 401: unauthorized")
	}}

	_, err := newTestClient(t, f, Config{}).Complete(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGeneration))
	assert.False(t, errors.Is(err, errors.ErrTimeout))
	assert.Contains(t, err.Error(), "status 401")
}

func TestCompleteTimeout(t *testing.T) {
	f := &fakeCompleter{respond: func(ctx context.Context, _ openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}

	_, err := newTestClient(t, f, Config{Timeout: 20 * time.Millisecond}).Complete(context.Background(), "p", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGeneration))
	assert.True(t, errors.Is(err, errors.ErrTimeout))
}

func TestCompleteStructured(t *testing.T) {
	f := &fakeCompleter{respond: replyArgs(`{"label":"good","title":"fine","score":3,"confidence":0.5,"final":true}`)}
	c := newTestClient(t, f, Config{})

	out, err := c.CompleteStructured(context.Background(), "judge", verdictSchema, Options{})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"label":      "good",
		"title":      "fine",
		"score":      int64(3),
		"confidence": 0.5,
		"final":      true,
	}, out)

	tool := f.requests[0].Tool
	require.NotNil(t, tool)
	assert.Equal(t, "verdict", tool.Name)
	assert.Equal(t, "Judge the input", tool.Description)
	assert.JSONEq(t, string(verdictSchema.JSONSchema()), string(tool.Parameters))
}

func TestCompleteStructuredRejectsNonConformingOutput(t *testing.T) {
	tests := []struct {
		name string
		args string
		want string
	}{
		{"missing required field", `{"label":"good"}`, `required field "title" is missing`},
		{"undeclared field", `{"label":"good","title":"x","mood":"happy"}`, `field "mood" is not declared`},
		{"value outside enum", `{"label":"meh","title":"x"}`, `"meh" is not one of`},
		{"too long", `{"label":"bad","title":"far too long a title"}`, "exceeds 10"},
		{"wrong type", `{"label":"bad","title":"x","score":"3"}`, "expected integer, got string"},
		{"fractional integer", `{"label":"bad","title":"x","score":2.5}`, "expected integer"},
		{"boolean as string", `{"label":"bad","title":"x","final":"yes"}`, "expected boolean"},
		{"not an object", `["good"]`, "not a JSON object"},
		{"null", `null`, "output is null"},
		{"null required", `{"label":null,"title":"x"}`, `required field "label" is missing`},
		{"trailing data", `{"label":"good","title":"x"} {"label":"bad"} garbage`, "unexpected data after the JSON object"},
		{"trailing garbage", `{"label":"good","title":"x"} garbage`, "unexpected data after the JSON object"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeCompleter{respond: replyArgs(tt.args)}
			_, err := newTestClient(t, f, Config{}).CompleteStructured(context.Background(), "judge", verdictSchema, Options{})
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrGenerationSchema), "got %v", err)
			assert.False(t, errors.Is(err, errors.ErrGeneration))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestCompleteStructuredPassesSchemaErrorsThrough(t *testing.T) {
	f := &fakeCompleter{respond: func(context.Context, openrouter.ChatRequest) (*openrouter.ChatResponse, error) {
		return nil, errors.NewGenerationSchemaError(`model did not call tool "verdict"`)
	}}

	_, err := newTestClient(t, f, Config{}).CompleteStructured(context.Background(), "judge", verdictSchema, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGenerationSchema))
	assert.Equal(t, "generation_schema", errors.Kind(err))
}

func TestRateLimit(t *testing.T) {
	f := &fakeCompleter{respond: replyText("ok")}
	c := newTestClient(t, f, Config{RequestsPerMinute: 1})

	_, err := c.Complete(context.Background(), "first", Options{})
	require.NoError(t, err)

	// the second token is a minute away
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = c.Complete(ctx, "second", Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGeneration))
	assert.Len(t, f.requests, 1)
}

func TestJSONSchema(t *testing.T) {
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(verdictSchema.JSONSchema(), &decoded))

	assert.Equal(t, "object", decoded["type"])
	assert.Equal(t, false, decoded["additionalProperties"])
	assert.Equal(t, []any{"label", "title"}, decoded["required"])

	props := decoded["properties"].(map[string]any)
	assert.Len(t, props, 5)
	label := props["label"].(map[string]any)
	assert.Equal(t, []any{"good", "bad"}, label["enum"])
	title := props["title"].(map[string]any)
	assert.Equal(t, float64(10), title["maxLength"])
}

func TestTraceLogsPromptAndReply(t *testing.T) {
	for _, trace := range []bool{false, true} {
		core, logs := observer.New(zapcore.DebugLevel)
		f := &fakeCompleter{respond: replyText("SELECT 1")}
		c := New(f, Config{Logger: zap.New(core).Sugar(), Trace: trace})

		_, err := c.Complete(context.Background(), "count rows", Options{Operation: "resolve"})
		require.NoError(t, err)

		prompts := logs.FilterMessage("Generation prompt").All()
		replies := logs.FilterMessage("Generation reply").All()
		if !trace {
			assert.Empty(t, prompts)
			assert.Empty(t, replies)
			continue
		}
		require.Len(t, prompts, 1)
		assert.Equal(t, "count rows", prompts[0].ContextMap()["prompt"])
		require.Len(t, replies, 1)
		assert.Equal(t, "SELECT 1", replies[0].ContextMap()["content"])
	}
}
