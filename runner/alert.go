package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/teranos/vigil/classifier"
	"github.com/teranos/vigil/notify"
	"github.com/teranos/vigil/warehouse"
)

// SampleRows is how many result rows an alert shows
const SampleRows = 3

const footerPrefix = "Analytics Intelligence"

var categoryColors = map[classifier.Category]notify.Color{
	classifier.CategoryProblemCritical: notify.ColorCritical,
	classifier.CategoryProblemMinor:    notify.ColorWarning,
	classifier.CategoryOpportunity:     notify.ColorPositive,
	classifier.CategoryInsight:         notify.ColorInfo,
	classifier.CategoryNoise:           notify.ColorNeutral,
}

// BuildAlert renders a classified finding as a notifier message
func BuildAlert(cls *classifier.Classification, results warehouse.ResultSet) notify.Message {
	color, ok := categoryColors[cls.Category]
	if !ok {
		color = notify.ColorNeutral
	}

	msg := notify.Message{
		Headline: cls.DisplayEmoji() + " " + cls.Title,
		Color:    color,
		Fields: []notify.Field{
			{Label: "Category", Value: cls.Category.Title()},
			{Label: "Severity", Value: cls.Severity.Title()},
			{Label: "Details", Value: cls.Message, Multiline: true},
			{Label: "Recommendation", Value: cls.Recommendation, Multiline: true},
		},
		Footer: fmt.Sprintf("%s | %s", footerPrefix, cls.Timestamp.Format(time.RFC3339)),
	}

	if len(results) > 0 {
		msg.Fields = append(msg.Fields, notify.Field{
			Label:     fmt.Sprintf("Sample Results (%d total)", len(results)),
			Value:     sample(results),
			Multiline: true,
		})
	}
	return msg
}

func sample(results warehouse.ResultSet) string {
	var b strings.Builder
	b.WriteString("Sample results:\n```\n")
	for i, row := range results {
		if i == SampleRows {
			break
		}
		b.WriteString(row.String())
		b.WriteByte('\n')
	}
	b.WriteString("```")
	return b.String()
}
