// Package phrase adds phrases to a user's collection and edits them.
package phrase

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/enrich"
	"github.com/abhisek/lexis/internal/imagegen"
	"github.com/abhisek/lexis/internal/store"
)

// DefaultMaxLen is the exclusive upper bound on phrase length in runes.
const DefaultMaxLen = 150

var (
	ErrEmpty           = errors.New("phrase: empty text")
	ErrTooLong         = errors.New("phrase: text too long")
	ErrDuplicatePhrase = errors.New("phrase: already saved")
	ErrNotOwner        = errors.New("phrase: not owned by user")
	ErrNoImages        = errors.New("phrase: image generation is not configured")
)

// Uploader stores media with the delivery channel and returns its file id.
type Uploader interface {
	UploadVoice(ctx context.Context, userID int64, audio *enrich.Audio, caption string) (string, error)
	UploadPhoto(ctx context.Context, userID int64, img *imagegen.Image, caption string) (string, error)
}

// Imager generates a picture from a prompt.
type Imager interface {
	Generate(ctx context.Context, prompt string) (*imagegen.Image, error)
}

// Config configures a Service.
type Config struct {
	MaxLen int

	// Uploader and Images are optional. Without an uploader phrases are
	// saved without media ids.
	Uploader Uploader
	Images   Imager

	Logger *zap.Logger
}

// Service validates, enriches and saves phrases.
type Service struct {
	phrases    store.PhraseRepo
	categories store.CategoryRepo
	pipeline   *enrich.Pipeline
	uploader   Uploader
	images     Imager
	maxLen     int
	policy     *bluemonday.Policy
	logger     *zap.Logger
}

func NewService(phrases store.PhraseRepo, categories store.CategoryRepo, pipeline *enrich.Pipeline, cfg Config) *Service {
	if cfg.MaxLen <= 0 {
		cfg.MaxLen = DefaultMaxLen
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Service{
		phrases:    phrases,
		categories: categories,
		pipeline:   pipeline,
		uploader:   cfg.Uploader,
		images:     cfg.Images,
		maxLen:     cfg.MaxLen,
		policy:     bluemonday.StrictPolicy(),
		logger:     cfg.Logger,
	}
}

// MaxLen is the exclusive upper bound on phrase length in runes.
func (s *Service) MaxLen() int { return s.maxLen }

// Draft is a validated and enriched phrase that has not been saved.
type Draft struct {
	UserID int64
	Text   string
	enrich.Result
}

// Clean strips markup and surrounding space from user input.
func (s *Service) Clean(text string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(text)))
}

// Validate cleans text and checks that it is non-empty, shorter than the
// length limit and not already saved by the user.
func (s *Service) Validate(ctx context.Context, userID int64, text string) (string, error) {
	text = s.Clean(text)
	if text == "" {
		return "", ErrEmpty
	}
	if n := utf8.RuneCountInString(text); n >= s.maxLen {
		return "", fmt.Errorf("%w: %d characters, limit %d", ErrTooLong, n, s.maxLen-1)
	}

	dup, err := s.phrases.FindDuplicate(ctx, userID, text)
	if err != nil {
		return "", fmt.Errorf("phrase: duplicate check: %w", err)
	}
	if dup != nil {
		return "", fmt.Errorf("%w: %q (id %d)", ErrDuplicatePhrase, dup.TextPhrase, dup.ID)
	}
	return text, nil
}

// Prepare validates text and runs the enrichment pipeline on it.
func (s *Service) Prepare(ctx context.Context, userID int64, text string) (*Draft, error) {
	text, err := s.Validate(ctx, userID, text)
	if err != nil {
		return nil, err
	}
	return &Draft{UserID: userID, Text: text, Result: s.pipeline.Enrich(ctx, text)}, nil
}

// Save uploads the draft's audio, creates the category when the user has
// none with that name, and stores the phrase. A failed upload saves the
// phrase without audio.
func (s *Service) Save(ctx context.Context, d *Draft, categoryName string) (*store.Phrase, error) {
	categoryName = s.Clean(categoryName)
	if categoryName == "" {
		return nil, fmt.Errorf("phrase: empty category name")
	}

	// The user may have saved the same text while the draft was pending.
	dup, err := s.phrases.FindDuplicate(ctx, d.UserID, d.Text)
	if err != nil {
		return nil, fmt.Errorf("phrase: duplicate check: %w", err)
	}
	if dup != nil {
		return nil, fmt.Errorf("%w: %q (id %d)", ErrDuplicatePhrase, dup.TextPhrase, dup.ID)
	}

	cat, err := s.category(ctx, d.UserID, categoryName)
	if err != nil {
		return nil, err
	}

	if d.AudioID == "" && d.Audio != nil {
		d.AudioID = s.uploadVoice(ctx, d.UserID, d.Audio, d.Text)
	}

	p := &store.Phrase{
		CategoryID:   cat.ID,
		UserID:       d.UserID,
		TextPhrase:   d.Text,
		SpacedPhrase: d.Spaced,
		Translation:  d.Translation,
		AudioID:      d.AudioID,
	}
	if err := s.phrases.Create(ctx, p); err != nil {
		// Saved concurrently by another add after the check above.
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePhrase, d.Text)
		}
		return nil, fmt.Errorf("phrase: save: %w", err)
	}

	s.logger.Info("phrase saved",
		zap.Int64("user_id", d.UserID),
		zap.Int("phrase_id", p.ID),
		zap.Int("category_id", cat.ID),
		zap.Bool("audio", p.AudioID != ""))
	return p, nil
}

// Add prepares and saves text in one step.
func (s *Service) Add(ctx context.Context, userID int64, categoryName, text string) (*store.Phrase, error) {
	d, err := s.Prepare(ctx, userID, text)
	if err != nil {
		return nil, err
	}
	return s.Save(ctx, d, categoryName)
}

func (s *Service) category(ctx context.Context, userID int64, name string) (*store.Category, error) {
	cat, err := s.categories.FindByName(ctx, userID, name)
	if err != nil {
		return nil, fmt.Errorf("phrase: find category: %w", err)
	}
	if cat != nil {
		return cat, nil
	}

	cat = &store.Category{UserID: userID, Name: name}
	if err := s.categories.Create(ctx, cat); err != nil {
		return nil, fmt.Errorf("phrase: create category: %w", err)
	}
	s.logger.Info("category created", zap.Int64("user_id", userID), zap.String("name", name))
	return cat, nil
}

func (s *Service) uploadVoice(ctx context.Context, userID int64, audio *enrich.Audio, caption string) string {
	if s.uploader == nil {
		return ""
	}
	id, err := s.uploader.UploadVoice(ctx, userID, audio, caption)
	if err != nil {
		s.logger.Warn("voice upload failed", zap.Int64("user_id", userID), zap.Error(err))
		return ""
	}
	return id
}
