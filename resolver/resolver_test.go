package resolver

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/generation"
	"github.com/teranos/vigil/warehouse"
)

type stubGateway struct {
	prompts []string
	opts    []generation.Options
	reply   string
	err     error
}

func (s *stubGateway) Complete(_ context.Context, prompt string, opts generation.Options) (string, error) {
	s.prompts = append(s.prompts, prompt)
	s.opts = append(s.opts, opts)
	return s.reply, s.err
}

func (s *stubGateway) CompleteStructured(context.Context, string, generation.Schema, generation.Options) (map[string]any, error) {
	panic("resolver never asks for structured output")
}

var request = Request{
	CheckName:   "missing_purchase_revenue",
	Description: "Find purchase events without a revenue value",
	TableRef:    "analytics.ga4.events",
	Schema: []warehouse.Column{
		{Name: "event_date", Type: "STRING"},
		{Name: "event_name", Type: "STRING"},
		{Name: "revenue", Type: "FLOAT64"},
	},
}

func TestBuildPrompt(t *testing.T) {
	prompt := BuildPrompt(request)

	assert.Contains(t, prompt, "Table: analytics.ga4.events\n")
	assert.Contains(t, prompt, "Schema:\n  - event_date (STRING)\n  - event_name (STRING)\n  - revenue (FLOAT64)\n")
	assert.Contains(t, prompt, "Check description: Find purchase events without a revenue value")
	assert.Contains(t, prompt, "Include only columns that exist in the schema")
	assert.Contains(t, prompt, "Limit results to 100 rows")
	assert.Contains(t, prompt, "indicate a problem or anomaly")
	assert.Contains(t, prompt, "Add comments to explain the query logic")
	assert.Contains(t, prompt, "GROUP BY")
	assert.NotContains(t, prompt, "Example queries")

	// schema precedes the description
	assert.Less(t, strings.Index(prompt, "Schema:"), strings.Index(prompt, "Check description:"))
}

func TestBuildPromptWithExamples(t *testing.T) {
	req := request
	req.Examples = "SELECT event_name FROM analytics.ga4.events WHERE revenue IS NULL\n"

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "Example queries for reference:\nSELECT event_name FROM analytics.ga4.events WHERE revenue IS NULL\n\nGenerate the SQL query:")
}

func TestResolve(t *testing.T) {
	gw := &stubGateway{reply: "```sql\n-- purchases with no revenue\nSELECT event_date FROM analytics.ga4.events WHERE revenue IS NULL LIMIT 100\n```"}

	sql, err := New(gw).Resolve(context.Background(), request)
	require.NoError(t, err)
	assert.Equal(t, "-- purchases with no revenue\nSELECT event_date FROM analytics.ga4.events WHERE revenue IS NULL LIMIT 100", sql)

	require.Len(t, gw.opts, 1)
	opts := gw.opts[0]
	require.NotNil(t, opts.Temperature)
	assert.Equal(t, 0.3, *opts.Temperature)
	assert.Equal(t, SystemPrompt, opts.System)
	assert.Equal(t, "resolve", opts.Operation)
	assert.Equal(t, "missing_purchase_revenue", opts.Entity)
}

func TestResolveGenerationError(t *testing.T) {
	gw := &stubGateway{err: errors.WrapGeneration(errors.New("status 401"), "openrouter")}

	_, err := New(gw).Resolve(context.Background(), request)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGeneration))
}

func TestResolveEmptyReply(t *testing.T) {
	_, err := New(&stubGateway{reply: "```sql\n```"}).Resolve(context.Background(), request)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrGeneration))
}

func TestStripFences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"sql fence", "```sql\nSELECT 1\n```", "SELECT 1"},
		{"bare fence", "```\nSELECT 1\n```", "SELECT 1"},
		{"no fence", "  SELECT 1  ", "SELECT 1"},
		{"inline fence", "```sql SELECT 1```", "SELECT 1"},
		{"other language tag", "```postgresql\nSELECT 1\n```", "SELECT 1"},
		{"multi-line body", "```sql\nSELECT a,\n  b\nFROM t\n```", "SELECT a,\n  b\nFROM t"},
		{"first line is sql", "```SELECT a FROM t\nWHERE b\n```", "SELECT a FROM t\nWHERE b"},
		{"bare keyword on first line", "```SELECT\n  event_date\nFROM events\n```", "SELECT\n  event_date\nFROM events"},
		{"lowercase keyword on first line", "```with\nx AS (SELECT 1)\nSELECT * FROM x\n```", "with\nx AS (SELECT 1)\nSELECT * FROM x"},
		{"tag with trailing space", "```sql \nSELECT 1\n```", "SELECT 1"},
		{"star on first line", "```*\nSELECT 1\n```", "*\nSELECT 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripFences(tt.in))
		})
	}
}
