// Package resolver synthesizes the query for a check that has no explicit
// SQL, from the table schema and the check's description.
package resolver

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/teranos/vigil/errors"
	"github.com/teranos/vigil/generation"
	"github.com/teranos/vigil/logger"
	"github.com/teranos/vigil/warehouse"
)

// Temperature keeps generated SQL consistent across runs
const Temperature = 0.3

// SystemPrompt frames the model as a SQL writer
const SystemPrompt = "You are a SQL expert. Generate only valid SQL queries. Do not include explanations outside the SQL comments."

// Request is what a query is resolved from
type Request struct {
	CheckName   string
	Description string
	TableRef    string
	Schema      []warehouse.Column
	Examples    string
}

// Resolver turns check descriptions into SQL
type Resolver struct {
	gateway generation.Gateway
	logger  *zap.SugaredLogger
}

// New creates a resolver over gateway
func New(gateway generation.Gateway) *Resolver {
	return &Resolver{
		gateway: gateway,
		logger:  logger.ComponentLogger("resolver"),
	}
}

// Resolve asks the generation service for a query. The result is not
// validated; malformed SQL surfaces when the store executes it.
func (r *Resolver) Resolve(ctx context.Context, req Request) (string, error) {
	temperature := Temperature
	text, err := r.gateway.Complete(ctx, BuildPrompt(req), generation.Options{
		System:      SystemPrompt,
		Temperature: &temperature,
		Operation:   "resolve",
		Entity:      req.CheckName,
	})
	if err != nil {
		return "", errors.Wrap(err, "resolve query")
	}

	sql := StripFences(text)
	if sql == "" {
		return "", errors.Mark(errors.New("resolve query: generation returned no SQL"), errors.ErrGeneration)
	}

	logger.FromContext(ctx, r.logger).Debugw("Resolved query", logger.FieldSQL, sql)
	return sql, nil
}

// BuildPrompt renders the resolution prompt. The table reference and schema
// are stated verbatim, then the description and the constraints.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("Generate a SQL query for the following data quality check.\n\n")
	fmt.Fprintf(&b, "Table: %s\n\n", req.TableRef)
	b.WriteString("Schema:\n")
	for _, col := range req.Schema {
		fmt.Fprintf(&b, "  - %s (%s)\n", col.Name, col.Type)
	}
	fmt.Fprintf(&b, "\nCheck description: %s\n\n", req.Description)
	b.WriteString("Requirements:\n")
	b.WriteString("1. Use standard SQL syntax\n")
	b.WriteString("2. Include only columns that exist in the schema\n")
	b.WriteString("3. Return results that would indicate a problem or anomaly\n")
	b.WriteString("4. Limit results to 100 rows for efficiency\n")
	b.WriteString("5. Include relevant context columns (date, platform, event_name, etc.)\n")
	b.WriteString("6. Use appropriate aggregations and GROUP BY when needed\n")
	b.WriteString("7. Add comments to explain the query logic\n\n")
	if strings.TrimSpace(req.Examples) != "" {
		fmt.Fprintf(&b, "Example queries for reference:\n%s\n\n", strings.TrimRight(req.Examples, "\n"))
	}
	b.WriteString("Generate the SQL query:")
	return b.String()
}

// StripFences removes a surrounding ```sql or ``` code fence. Only the fence
// markers and a language tag are removed, never query text.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if first := strings.TrimSpace(s[:nl]); first == "" || isLanguageTag(first) {
			s = s[nl+1:]
		}
	} else if strings.HasPrefix(s, "sql ") || strings.HasPrefix(s, "sql\t") {
		s = s[len("sql"):]
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// sqlKeywords can start a query and so are never a fence language tag
var sqlKeywords = map[string]bool{
	"SELECT": true, "WITH": true, "FROM": true, "WHERE": true, "VALUES": true,
	"INSERT": true, "UPDATE": true, "DELETE": true, "CREATE": true, "DROP": true,
	"ALTER": true, "EXPLAIN": true, "SHOW": true, "DESCRIBE": true, "TABLE": true,
	"PRAGMA": true, "CALL": true, "MERGE": true, "UNION": true,
}

// isLanguageTag reports whether the text after an opening fence is a short
// language name such as sql, postgresql or bigquery.
func isLanguageTag(s string) bool {
	if len(s) > 20 || sqlKeywords[strings.ToUpper(s)] {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '+':
		default:
			return false
		}
	}
	return true
}
