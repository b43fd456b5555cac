// Package config loads bot settings from the environment and an optional
// .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/abhisek/lexis/internal/llm"
)

// Segmenter choices.
const (
	SegmenterLLM    = "llm"
	SegmenterKagome = "kagome"
	SegmenterNone   = "none"
)

// Speech provider choices.
const (
	SpeechGoogle = "google"
	SpeechOpenAI = "openai"
	SpeechNone   = "none"
)

// Config holds every runtime setting of the bot.
type Config struct {
	// Location is the locale of the language being learned, e.g. "ja-JP".
	Location string

	// NativeLanguage is the language translations are produced in.
	NativeLanguage string

	AdminIDs        map[int64]bool
	DailyLimit      int
	PhraseMaxLen    int
	ProducerTimeout time.Duration

	Segmenter         string
	SpeechProvider    string
	GoogleCredentials string // path to a service account JSON; empty uses ADC

	TelegramToken string
	WebhookURL    string
	WebhookSecret string
	HTTPAddr      string

	DatabaseURL string // postgres DSN; empty selects sqlite
	DBPath      string // sqlite file, resolved by the store when empty

	LogLevel  string
	LogFormat string // "json" or "console"

	LLM llm.Config
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Location:        "en-US",
		NativeLanguage:  "Russian",
		AdminIDs:        map[int64]bool{},
		DailyLimit:      50,
		PhraseMaxLen:    150,
		ProducerTimeout: 15 * time.Second,
		Segmenter:       SegmenterLLM,
		SpeechProvider:  SpeechGoogle,
		HTTPAddr:        ":8080",
		LogLevel:        "info",
		LogFormat:       "json",
		LLM:             llm.DefaultConfig(),
	}
}

// LoadEnvFile loads path into the process environment without overriding
// variables that are already set. A missing default .env is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		if _, err := os.Stat(".env"); errors.Is(err, os.ErrNotExist) {
			return nil
		}
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// FromEnv builds a Config from LEXIS_* variables over Default.
func FromEnv() (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}

	str("LEXIS_LOCATION", &cfg.Location)
	str("LEXIS_NATIVE_LANGUAGE", &cfg.NativeLanguage)
	num("LEXIS_DAILY_LIMIT", &cfg.DailyLimit)
	num("LEXIS_PHRASE_MAX_LEN", &cfg.PhraseMaxLen)
	str("LEXIS_SEGMENTER", &cfg.Segmenter)
	str("LEXIS_SPEECH_PROVIDER", &cfg.SpeechProvider)
	str("LEXIS_GOOGLE_CREDENTIALS", &cfg.GoogleCredentials)
	str("LEXIS_TELEGRAM_TOKEN", &cfg.TelegramToken)
	str("LEXIS_WEBHOOK_URL", &cfg.WebhookURL)
	str("LEXIS_WEBHOOK_SECRET", &cfg.WebhookSecret)
	str("LEXIS_HTTP_ADDR", &cfg.HTTPAddr)
	str("LEXIS_DATABASE_URL", &cfg.DatabaseURL)
	str("LEXIS_DB", &cfg.DBPath)
	str("LEXIS_LOG_LEVEL", &cfg.LogLevel)
	str("LEXIS_LOG_FORMAT", &cfg.LogFormat)

	if v := os.Getenv("LEXIS_PRODUCER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("LEXIS_PRODUCER_TIMEOUT: %w", err))
		} else {
			cfg.ProducerTimeout = d
		}
	}

	ids, err := ParseAdminIDs(os.Getenv("LEXIS_ADMIN_IDS"))
	if err != nil {
		errs = append(errs, fmt.Errorf("LEXIS_ADMIN_IDS: %w", err))
	}
	cfg.AdminIDs = ids

	cfg.LLM = llm.ConfigFromEnv()

	return cfg, errors.Join(errs...)
}

// ParseAdminIDs parses a comma separated list of user ids.
func ParseAdminIDs(s string) (map[int64]bool, error) {
	ids := map[int64]bool{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return ids, fmt.Errorf("invalid user id %q", part)
		}
		ids[id] = true
	}
	return ids, nil
}

// Validate checks the settings shared by every command. Commands that
// need Telegram or an LLM check those separately.
func (c Config) Validate() error {
	var errs []error
	if c.Location == "" {
		errs = append(errs, errors.New("LEXIS_LOCATION must not be empty"))
	}
	if c.DailyLimit < 1 {
		errs = append(errs, fmt.Errorf("LEXIS_DAILY_LIMIT must be positive, got %d", c.DailyLimit))
	}
	if c.PhraseMaxLen < 1 {
		errs = append(errs, fmt.Errorf("LEXIS_PHRASE_MAX_LEN must be positive, got %d", c.PhraseMaxLen))
	}
	if c.ProducerTimeout <= 0 {
		errs = append(errs, fmt.Errorf("LEXIS_PRODUCER_TIMEOUT must be positive, got %s", c.ProducerTimeout))
	}
	switch c.Segmenter {
	case SegmenterLLM, SegmenterKagome, SegmenterNone:
	default:
		errs = append(errs, fmt.Errorf("unknown LEXIS_SEGMENTER %q", c.Segmenter))
	}
	switch c.SpeechProvider {
	case SpeechGoogle, SpeechOpenAI, SpeechNone:
	default:
		errs = append(errs, fmt.Errorf("unknown LEXIS_SPEECH_PROVIDER %q", c.SpeechProvider))
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown LEXIS_LOG_FORMAT %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// IsAdmin reports whether id is an administrator.
func (c Config) IsAdmin(id int64) bool {
	return c.AdminIDs[id]
}
