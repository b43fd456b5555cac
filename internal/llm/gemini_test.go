package llm

import (
	"testing"
)

func TestGeminiSchema(t *testing.T) {
	def := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"text":  map[string]any{"type": "string", "description": "the translation"},
			"words": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			"kind":  map[string]any{"type": "string", "enum": []any{"word", "phrase"}},
		},
		"required":             []string{"text"},
		"additionalProperties": false,
	}

	s := geminiSchema(def)

	if s.Type != "OBJECT" {
		t.Fatalf("expected OBJECT type, got %s", s.Type)
	}
	if len(s.Properties) != 3 {
		t.Fatalf("expected 3 properties, got %d", len(s.Properties))
	}
	if s.Properties["text"].Description != "the translation" {
		t.Fatalf("expected description, got %q", s.Properties["text"].Description)
	}
	if s.Properties["words"].Items.Type != "STRING" {
		t.Fatalf("expected STRING items, got %s", s.Properties["words"].Items.Type)
	}
	if len(s.Properties["kind"].Enum) != 2 {
		t.Fatalf("expected 2 enum values, got %d", len(s.Properties["kind"].Enum))
	}
	if len(s.Required) != 1 || s.Required[0] != "text" {
		t.Fatalf("expected required [text], got %v", s.Required)
	}
}
