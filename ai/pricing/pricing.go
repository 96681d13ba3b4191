// Package pricing estimates the USD cost of a generation request from its
// token counts.
package pricing

import "strings"

// ModelPricing is USD per million tokens
type ModelPricing struct {
	InputPrice  float64
	OutputPrice float64
}

// DefaultPricingFallback is charged per request when a hosted model's price
// is unknown.
const DefaultPricingFallback = 0.01

var modelPricing = map[string]ModelPricing{
	// OpenRouter ids
	"openai/gpt-4o":                      {2.50, 10.00},
	"openai/gpt-4o-mini":                 {0.15, 0.60},
	"openai/gpt-4.1":                     {2.00, 8.00},
	"openai/gpt-4.1-mini":                {0.40, 1.60},
	"anthropic/claude-sonnet-4.5":        {3.00, 15.00},
	"anthropic/claude-haiku-4.5":         {1.00, 5.00},
	"google/gemini-2.5-flash":            {0.30, 2.50},
	"meta-llama/llama-3.1-70b-instruct":  {0.52, 0.75},
	"meta-llama/llama-3.1-8b-instruct":   {0.055, 0.055},
	"mistralai/mistral-small-3.2-24b":    {0.10, 0.30},

	// Anthropic API ids
	"claude-sonnet-4-5":        {3.00, 15.00},
	"claude-sonnet-4-20250514": {3.00, 15.00},
	"claude-opus-4-1":          {15.00, 75.00},
	"claude-haiku-4-5":         {1.00, 5.00},
}

// Lookup returns pricing for a model. Dated Anthropic ids such as
// claude-sonnet-4-5-20250929 resolve to their undated alias.
func Lookup(model string) (ModelPricing, bool) {
	if p, ok := modelPricing[model]; ok {
		return p, true
	}
	if i := strings.LastIndex(model, "-"); i > 0 && len(model)-i == 9 {
		p, ok := modelPricing[model[:i]]
		return p, ok
	}
	return ModelPricing{}, false
}

// CalculateCost returns the cost of a request in USD. Unknown models are
// charged DefaultPricingFallback.
func CalculateCost(model string, inputTokens, outputTokens int) float64 {
	p, ok := Lookup(model)
	if !ok {
		return DefaultPricingFallback
	}
	return float64(inputTokens)/1_000_000*p.InputPrice + float64(outputTokens)/1_000_000*p.OutputPrice
}
