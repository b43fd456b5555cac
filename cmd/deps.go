package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/config"
	"github.com/abhisek/lexis/internal/enrich"
	"github.com/abhisek/lexis/internal/imagegen"
	"github.com/abhisek/lexis/internal/llm"
	"github.com/abhisek/lexis/internal/logging"
	"github.com/abhisek/lexis/internal/speech"
	"github.com/abhisek/lexis/internal/store"
	"github.com/abhisek/lexis/internal/store/postgres"
)

// deps holds what every command builds from the environment.
type deps struct {
	cfg     config.Config
	logger  *zap.Logger
	backend store.Backend
	closers []func() error
}

// setup loads configuration, builds the logger and opens the backend.
func setup(cmd *cobra.Command) (*deps, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	cfg, err := config.FromEnv()
	if err != nil {
		return nil, err
	}
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}

	d := &deps{cfg: cfg, logger: logger}
	d.closers = append(d.closers, func() error { _ = logger.Sync(); return nil })

	backend, err := openBackend(cmd, cfg)
	if err != nil {
		d.Close()
		return nil, err
	}
	d.backend = backend
	d.closers = append(d.closers, backend.Close)
	return d, nil
}

// openBackend returns postgres when a database URL is configured and
// sqlite otherwise. The --db flag wins over LEXIS_DB.
func openBackend(cmd *cobra.Command, cfg config.Config) (store.Backend, error) {
	if cfg.DatabaseURL != "" {
		s, err := postgres.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, nil
	}

	path, _ := cmd.Flags().GetString("db")
	if path == "" {
		path = cfg.DBPath
	}
	if path == "" {
		p, err := store.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("resolve database path: %w", err)
		}
		path = p
	} else if err := store.EnsureDir(path); err != nil {
		return nil, err
	}

	s, err := store.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return s, nil
}

// Close releases resources in reverse order of acquisition.
func (d *deps) Close() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			d.logger.Warn("close", zap.Error(err))
		}
	}
}

// provider builds the LLM provider. Requests are recorded in the backend.
func (d *deps) provider(ctx context.Context) (llm.Provider, error) {
	return llm.NewProvider(ctx, d.cfg.LLM, d.backend.Events(), d.logger.Named("llm"))
}

// pipeline builds the enrichment pipeline. Without an LLM provider,
// translation echoes the phrase and spaceless locales fall back to kagome
// or pass through.
func (d *deps) pipeline(ctx context.Context) (*enrich.Pipeline, error) {
	p, err := d.provider(ctx)
	if err != nil {
		d.logger.Warn("llm provider unavailable, translation disabled", zap.Error(err))
		p = nil
	}

	segKind := d.cfg.Segmenter
	if p == nil && segKind == config.SegmenterLLM {
		segKind = config.SegmenterNone
	}
	seg, err := enrich.NewSegmenter(d.cfg.Location, segKind, p)
	if err != nil {
		return nil, fmt.Errorf("segmenter: %w", err)
	}

	var tr enrich.Translator
	if p != nil {
		tr = enrich.NewLLMTranslator(p, d.cfg.NativeLanguage)
	}

	tts, err := d.synthesizer(ctx)
	if err != nil {
		d.logger.Warn("speech synthesis unavailable", zap.Error(err))
		tts = nil
	}

	return enrich.New(seg, tr, tts,
		enrich.WithTimeout(d.cfg.ProducerTimeout),
		enrich.WithLogger(d.logger.Named("enrich")),
	), nil
}

func (d *deps) synthesizer(ctx context.Context) (enrich.Synthesizer, error) {
	switch d.cfg.SpeechProvider {
	case config.SpeechGoogle:
		g, err := speech.NewGoogle(ctx, speech.GoogleConfig{
			CredentialsFile: d.cfg.GoogleCredentials,
			Language:        d.cfg.Location,
		})
		if err != nil {
			return nil, err
		}
		d.closers = append(d.closers, g.Close)
		return g, nil
	case config.SpeechOpenAI:
		return speech.NewOpenAI(d.cfg.LLM.OpenAI.APIKey, d.openAIBaseURL())
	default:
		return nil, nil
	}
}

// images returns the image generator, or nil when no OpenAI key is set.
func (d *deps) images() *imagegen.OpenAI {
	g, err := imagegen.NewOpenAI(d.cfg.LLM.OpenAI.APIKey, d.openAIBaseURL())
	if err != nil {
		return nil
	}
	return g
}

// openAIBaseURL is the configured OpenAI endpoint unless it points at
// OpenRouter, which serves neither speech nor images.
func (d *deps) openAIBaseURL() string {
	if d.cfg.LLM.Provider == "openrouter" {
		return ""
	}
	return d.cfg.LLM.OpenAI.BaseURL
}

var errNoToken = errors.New("LEXIS_TELEGRAM_TOKEN is not set")

// localUser makes sure id exists for commands run from a terminal. An
// existing user, typically created by the bot, is left untouched.
func (d *deps) localUser(ctx context.Context, id int64) error {
	_, err := d.backend.Users().Get(ctx, id)
	if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	return d.backend.Users().Ensure(ctx, &store.User{ID: id, FirstName: "local"})
}
