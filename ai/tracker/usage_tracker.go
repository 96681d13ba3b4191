// Package tracker records every generation request in the usage ledger and
// aggregates it for `vigil usage`.
package tracker

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	vigildb "github.com/teranos/vigil/db"
	"github.com/teranos/vigil/errors"
)

// ModelUsage is one row of the usage ledger
type ModelUsage struct {
	ID                int        `json:"id"`
	OperationType     string     `json:"operation_type"`
	EntityType        string     `json:"entity_type"`
	EntityID          string     `json:"entity_id"`
	RunID             string     `json:"run_id,omitempty"`
	ModelName         string     `json:"model_name"`
	ModelProvider     string     `json:"model_provider"`
	ModelConfig       *string    `json:"model_config,omitempty"`
	RequestTimestamp  time.Time  `json:"request_timestamp"`
	ResponseTimestamp *time.Time `json:"response_timestamp,omitempty"`
	TokensUsed        int        `json:"tokens_used"`
	Cost              float64    `json:"cost"`
	Success           bool       `json:"success"`
	ErrorMessage      *string    `json:"error_message,omitempty"`
	Metadata          *string    `json:"metadata,omitempty"`
}

// ModelConfig is the request configuration stored alongside a usage row
type ModelConfig struct {
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Structured  bool     `json:"structured,omitempty"`
}

// UsageMetadata is free-form context stored alongside a usage row
type UsageMetadata struct {
	OperationDetail string `json:"operation_detail,omitempty"`
	InputLength     *int   `json:"input_length,omitempty"`
	OutputLength    *int   `json:"output_length,omitempty"`
}

// Recorder is what generation clients write usage to
type Recorder interface {
	TrackUsage(ctx context.Context, usage *ModelUsage) error
}

// UsageTracker writes and aggregates the ai_model_usage table
type UsageTracker struct {
	db *sql.DB
}

// NewUsageTracker creates a new usage tracker
func NewUsageTracker(db *sql.DB) *UsageTracker {
	return &UsageTracker{db: db}
}

// TrackUsage records one generation request
func (t *UsageTracker) TrackUsage(ctx context.Context, usage *ModelUsage) error {
	const query = `
		INSERT INTO ai_model_usage (
			operation_type, entity_type, entity_id, run_id, model_name, model_provider,
			model_config, request_timestamp, response_timestamp, tokens_used,
			cost, success, error_message, metadata
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := t.db.ExecContext(ctx, query,
		usage.OperationType, usage.EntityType, usage.EntityID, nullable(usage.RunID),
		usage.ModelName, usage.ModelProvider, usage.ModelConfig,
		usage.RequestTimestamp, usage.ResponseTimestamp, usage.TokensUsed,
		usage.Cost, usage.Success, usage.ErrorMessage, usage.Metadata,
	)
	if vigildb.IsDatabaseClosed(err) {
		// Calls that finish after shutdown closed the ledger are not recorded
		return nil
	}
	return errors.Wrap(err, "insert usage")
}

// UsageStats represents aggregated usage statistics
type UsageStats struct {
	TotalRequests      int     `json:"total_requests"`
	SuccessfulRequests int     `json:"successful_requests"`
	SuccessRate        float64 `json:"success_rate"`
	TotalTokens        int     `json:"total_tokens"`
	TotalCost          float64 `json:"total_cost"`
	UniqueModels       int     `json:"unique_models"`
	Runs               int     `json:"runs"`
}

// GetUsageStats returns usage statistics since the given time
func (t *UsageTracker) GetUsageStats(ctx context.Context, since time.Time) (*UsageStats, error) {
	const query = `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN success = 1 THEN 1 END),
			COALESCE(SUM(tokens_used), 0),
			COALESCE(SUM(cost), 0),
			COUNT(DISTINCT model_name),
			COUNT(DISTINCT run_id)
		FROM ai_model_usage
		WHERE request_timestamp >= ?`

	var stats UsageStats
	err := t.db.QueryRowContext(ctx, query, since).Scan(
		&stats.TotalRequests, &stats.SuccessfulRequests,
		&stats.TotalTokens, &stats.TotalCost, &stats.UniqueModels, &stats.Runs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "query usage stats")
	}

	if stats.TotalRequests > 0 {
		stats.SuccessRate = float64(stats.SuccessfulRequests) / float64(stats.TotalRequests)
	}

	return &stats, nil
}

// ModelBreakdown represents usage statistics for a specific model
type ModelBreakdown struct {
	ModelName     string  `json:"model_name"`
	ModelProvider string  `json:"model_provider"`
	RequestCount  int     `json:"request_count"`
	TotalTokens   int     `json:"total_tokens"`
	TotalCost     float64 `json:"total_cost"`
}

// GetModelBreakdown returns successful usage grouped by model, costliest first
func (t *UsageTracker) GetModelBreakdown(ctx context.Context, since time.Time) ([]ModelBreakdown, error) {
	const query = `
		SELECT model_name, model_provider, COUNT(*), SUM(tokens_used), SUM(cost)
		FROM ai_model_usage
		WHERE request_timestamp >= ? AND success = 1
		GROUP BY model_name, model_provider
		ORDER BY SUM(cost) DESC, model_name`

	rows, err := t.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, errors.Wrap(err, "query model breakdown")
	}
	defer rows.Close()

	var breakdown []ModelBreakdown
	for rows.Next() {
		var mb ModelBreakdown
		if err := rows.Scan(&mb.ModelName, &mb.ModelProvider, &mb.RequestCount, &mb.TotalTokens, &mb.TotalCost); err != nil {
			return nil, errors.Wrap(err, "scan model breakdown")
		}
		breakdown = append(breakdown, mb)
	}

	return breakdown, errors.Wrap(rows.Err(), "iterate model breakdown")
}

// NewModelConfig serializes the request configuration, or returns nil when
// there is nothing to record
func NewModelConfig(temperature *float64, maxTokens *int, structured bool) *string {
	if temperature == nil && maxTokens == nil && !structured {
		return nil
	}
	return marshalString(ModelConfig{
		Temperature: temperature,
		MaxTokens:   maxTokens,
		Structured:  structured,
	})
}

// NewUsageMetadata serializes UsageMetadata to JSON
func NewUsageMetadata(metadata UsageMetadata) *string {
	return marshalString(metadata)
}

func marshalString(v interface{}) *string {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
