package classifier

import (
	"strings"
	"time"
	"unicode"
)

// Category is what kind of finding a check produced
type Category string

const (
	CategoryProblemCritical Category = "problem_critical"
	CategoryProblemMinor    Category = "problem_minor"
	CategoryOpportunity     Category = "opportunity"
	CategoryInsight         Category = "insight"
	CategoryNoise           Category = "noise"
)

// Categories lists every category in declaration order
var Categories = []Category{
	CategoryProblemCritical,
	CategoryProblemMinor,
	CategoryOpportunity,
	CategoryInsight,
	CategoryNoise,
}

// Severity ranks a finding
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Severities lists every severity, highest first
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

var defaultEmoji = map[Category]string{
	CategoryProblemCritical: "🚨",
	CategoryProblemMinor:    "⚠️",
	CategoryOpportunity:     "🎉",
	CategoryInsight:         "📊",
	CategoryNoise:           "🔍",
}

// DefaultEmoji returns the conventional emoji for c, or 📊 for anything else
func (c Category) DefaultEmoji() string {
	if e, ok := defaultEmoji[c]; ok {
		return e
	}
	return "📊"
}

// Valid reports whether c is one of Categories
func (c Category) Valid() bool {
	_, ok := defaultEmoji[c]
	return ok
}

// Valid reports whether s is one of Severities
func (s Severity) Valid() bool {
	for _, v := range Severities {
		if s == v {
			return true
		}
	}
	return false
}

// Actionable reports whether findings of this category are worth an alert
func (c Category) Actionable() bool {
	return c != CategoryNoise
}

// Title renders "problem_minor" as "Problem Minor"
func (c Category) Title() string {
	return TitleCase(string(c))
}

// Title renders "high" as "High"
func (s Severity) Title() string {
	return TitleCase(string(s))
}

// Classification is the structured verdict on a non-empty result set
type Classification struct {
	Category       Category  `json:"category"`
	Severity       Severity  `json:"severity"`
	Title          string    `json:"title"`
	Message        string    `json:"message"`
	Recommendation string    `json:"recommendation"`
	Emoji          string    `json:"emoji"`
	CheckName      string    `json:"check_name"`
	ResultCount    int       `json:"result_count"`
	Timestamp      time.Time `json:"timestamp"`
}

// DisplayEmoji is Emoji, or the category default when the model left it blank
func (c Classification) DisplayEmoji() string {
	if e := strings.TrimSpace(c.Emoji); e != "" {
		return e
	}
	return c.Category.DefaultEmoji()
}

// TitleCase replaces underscores with spaces and upper-cases the first
// letter of each word, lower-casing the rest.
func TitleCase(s string) string {
	words := strings.Fields(strings.ReplaceAll(s, "_", " "))
	for i, w := range words {
		runes := []rune(strings.ToLower(w))
		runes[0] = unicode.ToUpper(runes[0])
		words[i] = string(runes)
	}
	return strings.Join(words, " ")
}
