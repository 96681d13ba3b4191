package runner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/vigil/classifier"
	"github.com/teranos/vigil/notify"
)

func TestBuildAlert(t *testing.T) {
	cls := &classifier.Classification{
		Category:       classifier.CategoryProblemMinor,
		Severity:       classifier.SeverityMedium,
		Title:          "Null user ids on mobile",
		Message:        "12% of mobile events have no user_pseudo_id.",
		Recommendation: "Check the SDK consent flow.",
		Timestamp:      time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC),
	}

	msg := BuildAlert(cls, rows(5))

	assert.Equal(t, "⚠️ Null user ids on mobile", msg.Headline)
	assert.Equal(t, notify.ColorWarning, msg.Color)
	assert.Equal(t, "Analytics Intelligence | 2026-03-01T08:30:00Z", msg.Footer)

	require.Len(t, msg.Fields, 5)
	assert.Equal(t, notify.Field{Label: "Category", Value: "Problem Minor"}, msg.Fields[0])
	assert.Equal(t, notify.Field{Label: "Severity", Value: "Medium"}, msg.Fields[1])
	assert.True(t, msg.Fields[2].Multiline)
	assert.Equal(t, "Recommendation", msg.Fields[3].Label)

	sampleField := msg.Fields[4]
	assert.Equal(t, "Sample Results (5 total)", sampleField.Label)
	assert.Equal(t, "Sample results:\n```\n{event_date: 20260301, n: 0}\n{event_date: 20260301, n: 1}\n{event_date: 20260301, n: 2}\n```", sampleField.Value)
	assert.True(t, sampleField.Multiline)
}

func TestBuildAlert_ColorsAndEmoji(t *testing.T) {
	tests := []struct {
		category classifier.Category
		color    notify.Color
		emoji    string
	}{
		{classifier.CategoryProblemCritical, notify.ColorCritical, "🚨"},
		{classifier.CategoryProblemMinor, notify.ColorWarning, "⚠️"},
		{classifier.CategoryOpportunity, notify.ColorPositive, "🎉"},
		{classifier.CategoryInsight, notify.ColorInfo, "📊"},
		{classifier.CategoryNoise, notify.ColorNeutral, "🔍"},
	}
	for _, tt := range tests {
		msg := BuildAlert(&classifier.Classification{Category: tt.category, Title: "t"}, nil)
		assert.Equal(t, tt.color, msg.Color, tt.category)
		assert.Equal(t, tt.emoji+" t", msg.Headline, tt.category)
		assert.Len(t, msg.Fields, 4, "no sample field without results")
	}

	msg := BuildAlert(&classifier.Classification{Category: classifier.CategoryOpportunity, Emoji: "🚀", Title: "t"}, nil)
	assert.Equal(t, "🚀 t", msg.Headline)
}
