// Package classifier turns a check's result rows into a structured finding.
package classifier

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/generation"
	"github.com/teranos/vigil/logger"
	"github.com/teranos/vigil/warehouse"
)

// TitleMaxLength bounds the alert headline
const TitleMaxLength = 100

// Schema is the structured output requested for every classification
var Schema = generation.Schema{
	Name:        "classify_finding",
	Description: "Classify an analytics finding as a problem or opportunity",
	Fields: []generation.Field{
		{
			Name:        "category",
			Type:        generation.TypeString,
			Enum:        categoryNames(),
			Description: "Category: problem_critical (tracking broken, PII leak), problem_minor (data quality), opportunity (positive change), insight (pattern worth noting), noise (expected variance)",
			Required:    true,
		},
		{
			Name:        "severity",
			Type:        generation.TypeString,
			Enum:        []string{string(SeverityHigh), string(SeverityMedium), string(SeverityLow)},
			Description: "Severity level",
			Required:    true,
		},
		{
			Name:        "title",
			Type:        generation.TypeString,
			Description: "Short title for Slack alert (max 100 chars)",
			MaxLength:   TitleMaxLength,
			Required:    true,
		},
		{Name: "message", Type: generation.TypeString, Description: "Detailed explanation of the finding", Required: true},
		{Name: "recommendation", Type: generation.TypeString, Description: "Recommended action to take", Required: true},
		{Name: "emoji", Type: generation.TypeString, Description: "Emoji for alert: 🚨 critical, ⚠️ minor, 🎉 opportunity, 📊 insight, 🔍 noise", Required: true},
	},
}

func categoryNames() []string {
	names := make([]string, len(Categories))
	for i, c := range Categories {
		names[i] = string(c)
	}
	return names
}

// RunContext is optional run-level context shared by every classification
type RunContext struct {
	Table       *warehouse.TableInfo
	EventVolume warehouse.ResultSet
}

// String renders the context for the prompt, or "" when there is none
func (rc *RunContext) String() string {
	if rc == nil {
		return ""
	}
	var parts []string
	if rc.Table != nil {
		parts = append(parts, fmt.Sprintf("table has %d rows and %d columns", rc.Table.RowCount, len(rc.Table.Schema)))
	}
	if len(rc.EventVolume) > 0 {
		days := make([]string, len(rc.EventVolume))
		for i, row := range rc.EventVolume {
			days[i] = row.String()
		}
		parts = append(parts, "recent daily volume: "+strings.Join(days, ", "))
	}
	return strings.Join(parts, "; ")
}

// Request is one classification
type Request struct {
	CheckName   string
	Description string
	Results     warehouse.ResultSet
	Context     *RunContext
}

// Classifier asks the generation service to classify findings
type Classifier struct {
	gateway generation.Gateway
	now     func() time.Time
	logger  *zap.SugaredLogger
}

// New creates a classifier over gateway
func New(gateway generation.Gateway) *Classifier {
	return &Classifier{
		gateway: gateway,
		now:     time.Now,
		logger:  logger.ComponentLogger("classifier"),
	}
}

// Classify returns the finding for a non-empty result set. check_name,
// result_count and timestamp are stamped locally, never taken from the model.
func (c *Classifier) Classify(ctx context.Context, req Request) (*Classification, error) {
	if len(req.Results) == 0 {
		return nil, errors.Newf("classify %q: empty result set means the check passed", req.CheckName)
	}

	out, err := c.gateway.CompleteStructured(ctx, BuildPrompt(req), Schema, generation.Options{
		Operation: "classify",
		Entity:    req.CheckName,
	})
	if err != nil {
		return nil, errors.Wrap(err, "classify finding")
	}

	fields := make(map[string]string, len(Schema.Fields))
	for _, f := range Schema.Fields {
		v, ok := out[f.Name].(string)
		if !ok {
			return nil, errors.NewGenerationSchemaError("classify finding: field %q missing", f.Name)
		}
		fields[f.Name] = v
	}

	cls := &Classification{
		Category:       Category(fields["category"]),
		Severity:       Severity(fields["severity"]),
		Title:          fields["title"],
		Message:        fields["message"],
		Recommendation: fields["recommendation"],
		Emoji:          fields["emoji"],
		CheckName:      req.CheckName,
		ResultCount:    len(req.Results),
		Timestamp:      c.now().UTC(),
	}
	if !cls.Category.Valid() {
		return nil, errors.NewGenerationSchemaError("classify finding: unknown category %q", cls.Category)
	}
	if !cls.Severity.Valid() {
		return nil, errors.NewGenerationSchemaError("classify finding: unknown severity %q", cls.Severity)
	}

	logger.FromContext(ctx, c.logger).Debugw("Classified finding",
		logger.FieldCategory, cls.Category,
		logger.FieldSeverity, cls.Severity,
		logger.FieldRowCount, cls.ResultCount,
	)
	return cls, nil
}

// Summarize is the bounded result summary the prompt carries: the row count
// and the first row.
func Summarize(results warehouse.ResultSet) string {
	summary := fmt.Sprintf("Found %d rows. ", len(results))
	if len(results) > 0 {
		summary += "Sample: " + results[0].String()
	}
	return summary
}

// BuildPrompt renders the classification prompt
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Analyze this analytics finding and classify it.\n\n")
	fmt.Fprintf(&b, "Check name: %s\n", req.CheckName)
	fmt.Fprintf(&b, "Description: %s\n", req.Description)
	fmt.Fprintf(&b, "Results: %s\n", Summarize(req.Results))
	if ctxText := req.Context.String(); ctxText != "" {
		fmt.Fprintf(&b, "Context: %s\n", ctxText)
	}
	b.WriteString(`
Determine if this is:
- problem_critical: Tracking is broken, PII leak, or major data issue
- problem_minor: Data quality issue that should be fixed but not urgent
- opportunity: Positive change worth investigating (spike in conversions, new high-value traffic source)
- insight: Interesting pattern or trend worth noting
- noise: Expected variance, not actionable

Provide classification:`)
	return b.String()
}
