package tracker

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/vigil/errors"
	vigiltest "github.com/teranos/vigil/internal/testing"
	"github.com/teranos/vigil/internal/util"
)

func usageAt(ts time.Time, model string, tokens int, cost float64, success bool, runID string) *ModelUsage {
	return &ModelUsage{
		OperationType:    "classify",
		EntityType:       "check",
		EntityID:         "daily_active_users",
		RunID:            runID,
		ModelName:        model,
		ModelProvider:    "openrouter",
		RequestTimestamp: ts,
		TokensUsed:       tokens,
		Cost:             cost,
		Success:          success,
	}
}

func TestTrackUsageAndStats(t *testing.T) {
	db := vigiltest.CreateTestDB(t)
	tracker := NewUsageTracker(db)
	ctx := context.Background()

	now := time.Now().UTC()
	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now, "openai/gpt-4o-mini", 150, 0.01, true, "run-1")))
	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now, "openai/gpt-4o-mini", 50, 0.02, true, "run-1")))
	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now, "anthropic/claude-sonnet-4-5", 0, 0, false, "run-2")))
	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now.Add(-72*time.Hour), "openai/gpt-4o-mini", 999, 9, true, "")))

	stats, err := tracker.GetUsageStats(ctx, now.Add(-time.Hour))
	require.NoError(t, err)

	assert.Equal(t, 3, stats.TotalRequests)
	assert.Equal(t, 2, stats.SuccessfulRequests)
	assert.InDelta(t, 2.0/3.0, stats.SuccessRate, 0.0001)
	assert.Equal(t, 200, stats.TotalTokens)
	assert.InDelta(t, 0.03, stats.TotalCost, 0.0001)
	assert.Equal(t, 2, stats.UniqueModels)
	assert.Equal(t, 2, stats.Runs)
}

func TestGetUsageStatsEmpty(t *testing.T) {
	tracker := NewUsageTracker(vigiltest.CreateTestDB(t))

	stats, err := tracker.GetUsageStats(context.Background(), time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalRequests)
	assert.Zero(t, stats.SuccessRate)
}

func TestGetModelBreakdown(t *testing.T) {
	tracker := NewUsageTracker(vigiltest.CreateTestDB(t))
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now, "cheap", 100, 0.001, true, "r")))
	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now, "pricey", 100, 0.5, true, "r")))
	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now, "pricey", 20, 0.1, true, "r")))
	require.NoError(t, tracker.TrackUsage(ctx, usageAt(now, "failed", 0, 0, false, "r")))

	breakdown, err := tracker.GetModelBreakdown(ctx, now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, breakdown, 2)

	assert.Equal(t, "pricey", breakdown[0].ModelName)
	assert.Equal(t, 2, breakdown[0].RequestCount)
	assert.Equal(t, 120, breakdown[0].TotalTokens)
	assert.Equal(t, "cheap", breakdown[1].ModelName)
}

func TestTrackUsage_SQLShape(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ai_model_usage")).
		WithArgs(
			"resolve", "check", "daily_active_users", nil,
			"openai/gpt-4o-mini", "openrouter",
			sqlmock.AnyArg(), ts, sqlmock.AnyArg(), 42, 0.004, true,
			sqlmock.AnyArg(), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	usage := usageAt(ts, "openai/gpt-4o-mini", 42, 0.004, true, "")
	usage.OperationType = "resolve"
	require.NoError(t, NewUsageTracker(db).TrackUsage(context.Background(), usage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackUsage_LedgerClosed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ai_model_usage")).
		WillReturnError(errors.New("sql: database is closed"))

	usage := usageAt(time.Now(), "openai/gpt-4o-mini", 10, 0, true, "run-1")
	assert.NoError(t, NewUsageTracker(db).TrackUsage(context.Background(), usage))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTrackUsage_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ai_model_usage")).
		WillReturnError(errors.New("disk I/O error"))

	usage := usageAt(time.Now(), "openai/gpt-4o-mini", 10, 0, true, "run-1")
	err = NewUsageTracker(db).TrackUsage(context.Background(), usage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "insert usage")
}

func TestGetUsageStats_QueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM ai_model_usage").WillReturnError(errors.New("no such table: ai_model_usage"))

	_, err = NewUsageTracker(db).GetUsageStats(context.Background(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query usage stats")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewModelConfig(t *testing.T) {
	assert.Nil(t, NewModelConfig(nil, nil, false))

	raw := NewModelConfig(util.Ptr(0.3), nil, false)
	require.NotNil(t, raw)
	assert.JSONEq(t, `{"temperature":0.3}`, *raw)

	raw = NewModelConfig(nil, util.Ptr(1000), true)
	require.NotNil(t, raw)

	var cfg ModelConfig
	require.NoError(t, json.Unmarshal([]byte(*raw), &cfg))
	assert.Equal(t, 1000, *cfg.MaxTokens)
	assert.True(t, cfg.Structured)
}

func TestNewUsageMetadata(t *testing.T) {
	raw := NewUsageMetadata(UsageMetadata{OperationDetail: "classify_finding", InputLength: util.Ptr(512)})
	require.NotNil(t, raw)
	assert.JSONEq(t, `{"operation_detail":"classify_finding","input_length":512}`, *raw)
}
