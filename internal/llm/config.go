package llm

import (
	"fmt"
	"os"
	"time"
)

const openRouterBaseURL = "https://openrouter.ai/api/v1"

// Config selects and configures the model provider.
type Config struct {
	// Provider is one of "openai", "openrouter", "anthropic", "gemini", "mock".
	Provider string

	OpenAI    OpenAIConfig
	Anthropic AnthropicConfig
	Gemini    GeminiConfig
	Retry     RetryConfig

	// Timeout bounds a single request including retries.
	Timeout time.Duration
}

// OpenAIConfig also serves OpenRouter and other compatible endpoints via BaseURL.
type OpenAIConfig struct {
	APIKey  string
	Model   string
	BaseURL string
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

// RetryConfig configures exponential backoff for transient failures.
type RetryConfig struct {
	MaxAttempts int
	InitialWait time.Duration
	MaxWait     time.Duration
	Multiplier  float64
}

// DefaultConfig uses gpt-5-nano, which is enough for segmentation and
// short translations.
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		OpenAI:    OpenAIConfig{Model: "gpt-5-nano"},
		Anthropic: AnthropicConfig{Model: "claude-haiku"},
		Gemini:    GeminiConfig{Model: "gemini-flash"},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: 500 * time.Millisecond,
			MaxWait:     5 * time.Second,
			Multiplier:  2.0,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv reads LEXIS_LLM_* and the provider key variables. The
// unprefixed OPENAI_API_KEY, ANTHROPIC_API_KEY, GEMINI_API_KEY and
// OPENROUTER_API_KEY are honoured when the LEXIS_ variant is unset.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()

	if p := os.Getenv("LEXIS_LLM_PROVIDER"); p != "" {
		cfg.Provider = p
	} else if p, ok := DiscoverProvider(); ok {
		cfg.Provider = p
	}
	if d, err := time.ParseDuration(os.Getenv("LEXIS_LLM_TIMEOUT")); err == nil && d > 0 {
		cfg.Timeout = d
	}

	switch cfg.Provider {
	case "openrouter":
		cfg.OpenAI.APIKey = firstEnv("LEXIS_OPENROUTER_API_KEY", "OPENROUTER_API_KEY")
		cfg.OpenAI.BaseURL = openRouterBaseURL
		cfg.OpenAI.Model = "openai/gpt-5-nano"
	default:
		cfg.OpenAI.APIKey = firstEnv("LEXIS_OPENAI_API_KEY", "OPENAI_API_KEY")
		cfg.OpenAI.BaseURL = os.Getenv("LEXIS_OPENAI_BASE_URL")
	}
	cfg.Anthropic.APIKey = firstEnv("LEXIS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY")
	cfg.Gemini.APIKey = firstEnv("LEXIS_GEMINI_API_KEY", "GEMINI_API_KEY")

	if m := os.Getenv("LEXIS_LLM_MODEL"); m != "" {
		switch cfg.Provider {
		case "anthropic":
			cfg.Anthropic.Model = m
		case "gemini":
			cfg.Gemini.Model = m
		default:
			cfg.OpenAI.Model = m
		}
	}

	return cfg
}

// DiscoverProvider picks the first provider whose key is present, in the
// order OpenAI, Anthropic, Gemini, OpenRouter.
func DiscoverProvider() (string, bool) {
	switch {
	case firstEnv("LEXIS_OPENAI_API_KEY", "OPENAI_API_KEY") != "":
		return "openai", true
	case firstEnv("LEXIS_ANTHROPIC_API_KEY", "ANTHROPIC_API_KEY") != "":
		return "anthropic", true
	case firstEnv("LEXIS_GEMINI_API_KEY", "GEMINI_API_KEY") != "":
		return "gemini", true
	case firstEnv("LEXIS_OPENROUTER_API_KEY", "OPENROUTER_API_KEY") != "":
		return "openrouter", true
	}
	return "", false
}

// Model returns the model configured for the selected provider.
func (c Config) Model() string {
	switch c.Provider {
	case "anthropic":
		return resolveModel(c.Anthropic.Model, anthropicModels)
	case "gemini":
		return resolveModel(c.Gemini.Model, geminiModels)
	case "mock":
		return "mock"
	default:
		return c.OpenAI.Model
	}
}

// Validate checks that the selected provider has a key.
func (c Config) Validate() error {
	switch c.Provider {
	case "openai":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("LEXIS_OPENAI_API_KEY or OPENAI_API_KEY is required for the openai provider")
		}
	case "openrouter":
		if c.OpenAI.APIKey == "" {
			return fmt.Errorf("LEXIS_OPENROUTER_API_KEY or OPENROUTER_API_KEY is required for the openrouter provider")
		}
	case "anthropic":
		if c.Anthropic.APIKey == "" {
			return fmt.Errorf("LEXIS_ANTHROPIC_API_KEY or ANTHROPIC_API_KEY is required for the anthropic provider")
		}
	case "gemini":
		if c.Gemini.APIKey == "" {
			return fmt.Errorf("LEXIS_GEMINI_API_KEY or GEMINI_API_KEY is required for the gemini provider")
		}
	case "mock":
	default:
		return fmt.Errorf("unknown LLM provider: %q", c.Provider)
	}
	return nil
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}
