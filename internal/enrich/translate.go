package enrich

import (
	"context"
	"fmt"

	"github.com/abhisek/lexis/internal/llm"
)

var translateSchema = &llm.Schema{
	Name:        "phrase-translation",
	Description: "The translation of the phrase",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []string{"text"},
		"additionalProperties": false,
	},
}

// LLMTranslator translates with a language model.
type LLMTranslator struct {
	provider llm.Provider
	target   string
}

// NewLLMTranslator translates into target, a language name such as "Russian".
func NewLLMTranslator(p llm.Provider, target string) *LLMTranslator {
	return &LLMTranslator{provider: p, target: target}
}

func (t *LLMTranslator) Translate(ctx context.Context, text string) (string, error) {
	ctx = llm.WithPurpose(ctx, "translate")

	system := fmt.Sprintf("Translate the user's phrase into %s. Reply with the translation only.", t.target)
	var out struct {
		Text string `json:"text"`
	}
	if err := llm.Decode(ctx, t.provider, llm.UserPrompt(system, text, translateSchema), &out); err != nil {
		return "", fmt.Errorf("translate: %w", err)
	}
	return out.Text, nil
}
