package enrich

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/ikawaha/kagome-dict/ipa"
	"github.com/ikawaha/kagome/v2/tokenizer"

	"github.com/abhisek/lexis/internal/llm"
	"github.com/abhisek/lexis/internal/locale"
)

// Passthrough returns text unchanged. It is the segmenter of locales that
// already separate words with spaces.
type Passthrough struct{}

func (Passthrough) Segment(_ context.Context, text string) (string, error) {
	return text, nil
}

// NewSegmenter picks the segmenter for a deployment. Locales with word
// spacing always pass through; kind is "llm", "kagome" or "none".
func NewSegmenter(location, kind string, provider llm.Provider) (Segmenter, error) {
	if !locale.Spaceless(location) {
		return Passthrough{}, nil
	}
	switch kind {
	case "none":
		return Passthrough{}, nil
	case "kagome":
		if locale.Language(location) != "ja" {
			return nil, fmt.Errorf("kagome segmenter only supports Japanese, not %q", location)
		}
		return NewKagomeSegmenter()
	case "llm", "":
		if provider == nil {
			return nil, fmt.Errorf("llm segmenter needs a provider")
		}
		return &LLMSegmenter{provider: provider}, nil
	default:
		return nil, fmt.Errorf("unknown segmenter %q", kind)
	}
}

var segmentSchema = &llm.Schema{
	Name:        "phrase-segmentation",
	Description: "The phrase with a single space between words",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text": map[string]any{"type": "string", "minLength": 1},
		},
		"required":             []string{"text"},
		"additionalProperties": false,
	},
}

const segmentSystemPrompt = `You split text written without spaces into words.
Insert a single space between words. Do not add, remove, reorder or change any character.`

// LLMSegmenter asks a language model to insert word boundaries.
type LLMSegmenter struct {
	provider llm.Provider
}

func NewLLMSegmenter(p llm.Provider) *LLMSegmenter {
	return &LLMSegmenter{provider: p}
}

func (s *LLMSegmenter) Segment(ctx context.Context, text string) (string, error) {
	ctx = llm.WithPurpose(ctx, "segment")

	var out struct {
		Text string `json:"text"`
	}
	if err := llm.Decode(ctx, s.provider, llm.UserPrompt(segmentSystemPrompt, text, segmentSchema), &out); err != nil {
		return "", fmt.Errorf("segment: %w", err)
	}

	spaced := strings.Join(strings.Fields(out.Text), " ")
	if stripSpace(spaced) != stripSpace(text) {
		return "", fmt.Errorf("segment: model changed the phrase: %q", out.Text)
	}
	return spaced, nil
}

func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// KagomeSegmenter splits Japanese with the IPA dictionary, locally.
type KagomeSegmenter struct {
	t *tokenizer.Tokenizer
}

func NewKagomeSegmenter() (*KagomeSegmenter, error) {
	t, err := tokenizer.New(ipa.Dict(), tokenizer.OmitBosEos())
	if err != nil {
		return nil, fmt.Errorf("create kagome tokenizer: %w", err)
	}
	return &KagomeSegmenter{t: t}, nil
}

func (s *KagomeSegmenter) Segment(_ context.Context, text string) (string, error) {
	var words []string
	for _, token := range s.t.Tokenize(text) {
		if token.Class == tokenizer.DUMMY {
			continue
		}
		if w := strings.TrimSpace(token.Surface); w != "" {
			words = append(words, w)
		}
	}
	return strings.Join(words, " "), nil
}
