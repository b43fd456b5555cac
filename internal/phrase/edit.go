package phrase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/abhisek/lexis/internal/imagegen"
	"github.com/abhisek/lexis/internal/store"
)

// ErrNoAudio is returned when re-voicing produced no audio.
var ErrNoAudio = errors.New("phrase: speech synthesis produced no audio")

// owned loads phrase id and checks that userID owns it.
func (s *Service) owned(ctx context.Context, userID int64, id int) (*store.Phrase, error) {
	p, err := s.phrases.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("phrase %d: %w", id, err)
	}
	if p.UserID != userID {
		return nil, fmt.Errorf("%w: phrase %d", ErrNotOwner, id)
	}
	return p, nil
}

func (s *Service) update(ctx context.Context, p *store.Phrase, field string) (*store.Phrase, error) {
	if err := s.phrases.Update(ctx, p); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("%w: %q", ErrDuplicatePhrase, p.TextPhrase)
		}
		return nil, fmt.Errorf("phrase: update %s: %w", field, err)
	}
	s.logger.Info("phrase updated", zap.Int("phrase_id", p.ID), zap.String("field", field))
	return p, nil
}

// ChangeText replaces the phrase text and segments it again. Translation
// and audio are left as they were.
func (s *Service) ChangeText(ctx context.Context, userID int64, id int, text string) (*store.Phrase, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	clean := s.Clean(text)
	// A change of case only would collide with the phrase itself.
	if !strings.EqualFold(clean, p.TextPhrase) {
		if clean, err = s.Validate(ctx, userID, text); err != nil {
			return nil, err
		}
	}

	p.TextPhrase = clean
	p.SpacedPhrase = s.pipeline.Segment(ctx, clean)
	return s.update(ctx, p, "text")
}

// ChangeTranslation replaces the translation.
func (s *Service) ChangeTranslation(ctx context.Context, userID int64, id int, translation string) (*store.Phrase, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	translation = s.Clean(translation)
	if translation == "" {
		return nil, ErrEmpty
	}
	p.Translation = translation
	return s.update(ctx, p, "translation")
}

// SetAudio attaches an already uploaded voice file.
func (s *Service) SetAudio(ctx context.Context, userID int64, id int, audioID string) (*store.Phrase, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.AudioID = audioID
	return s.update(ctx, p, "audio")
}

// Revoice synthesizes the phrase again and attaches the new recording.
func (s *Service) Revoice(ctx context.Context, userID int64, id int) (*store.Phrase, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	audio := s.pipeline.Voice(ctx, p.TextPhrase)
	if audio == nil {
		return nil, ErrNoAudio
	}
	if s.uploader == nil {
		return nil, fmt.Errorf("phrase: no uploader configured")
	}
	audioID, err := s.uploader.UploadVoice(ctx, userID, audio, p.TextPhrase)
	if err != nil {
		return nil, fmt.Errorf("phrase: upload voice: %w", err)
	}
	p.AudioID = audioID
	return s.update(ctx, p, "audio")
}

// GenerateImage draws a picture for the phrase's translation and attaches it.
func (s *Service) GenerateImage(ctx context.Context, userID int64, id int) (*store.Phrase, error) {
	if s.images == nil || s.uploader == nil {
		return nil, ErrNoImages
	}
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	img, err := s.images.Generate(ctx, imagegen.Prompt(p.Translation))
	if err != nil {
		return nil, fmt.Errorf("phrase: generate image: %w", err)
	}
	imageID, err := s.uploader.UploadPhoto(ctx, userID, img, p.TextPhrase)
	if err != nil {
		return nil, fmt.Errorf("phrase: upload image: %w", err)
	}
	p.ImageID = imageID
	return s.update(ctx, p, "image")
}

// SetImage attaches an already uploaded picture.
func (s *Service) SetImage(ctx context.Context, userID int64, id int, imageID string) (*store.Phrase, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.ImageID = imageID
	return s.update(ctx, p, "image")
}

// SetComment replaces the free-text comment. An empty comment clears it.
func (s *Service) SetComment(ctx context.Context, userID int64, id int, comment string) (*store.Phrase, error) {
	p, err := s.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	p.Comment = s.Clean(comment)
	return s.update(ctx, p, "comment")
}
