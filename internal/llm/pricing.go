package llm

import "github.com/abhisek/lexis/internal/store"

// ModelCost is USD per million tokens.
type ModelCost struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Cost returns the USD cost of a request.
func (c ModelCost) Cost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)*c.InputPerMTok/1_000_000 +
		float64(outputTokens)*c.OutputPerMTok/1_000_000
}

// LookupCost returns the pricing for a model ID, or nil if unknown.
func LookupCost(modelID string) *ModelCost {
	if c, ok := modelCosts[modelID]; ok {
		return &c
	}
	return nil
}

// modelCosts covers the models the bot is run with (models.dev prices).
var modelCosts = map[string]ModelCost{
	"claude-haiku-4-5":          {1, 5},
	"claude-haiku-4-5-20251001": {1, 5},
	"claude-sonnet-4-5":         {3, 15},
	"gpt-4.1-mini":              {0.4, 1.6},
	"gpt-4.1-nano":              {0.1, 0.4},
	"gpt-4o-mini":               {0.15, 0.6},
	"gpt-5-mini":                {0.25, 2},
	"gpt-5-nano":                {0.05, 0.4},
	"openai/gpt-5-nano":         {0.05, 0.4},
	"gemini-2.0-flash":          {0.1, 0.4},
	"gemini-2.5-flash":          {0.3, 2.5},
	"gemini-2.5-flash-lite":     {0.1, 0.4},
}

// Spend sums the cost of events with known pricing. unpriced counts the
// events whose model is not in the table.
func Spend(events []store.LLMEvent) (usd float64, unpriced int) {
	for _, e := range events {
		c := LookupCost(e.Model)
		if c == nil {
			unpriced++
			continue
		}
		usd += c.Cost(e.InputTokens, e.OutputTokens)
	}
	return usd, unpriced
}
