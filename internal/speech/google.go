// Package speech synthesizes phrase audio with cloud text-to-speech APIs.
package speech

import (
	"context"
	"errors"
	"fmt"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"
	"github.com/googleapis/gax-go/v2/apierror"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"

	"github.com/abhisek/lexis/internal/enrich"
)

// maxInputBytes is the Google TTS request limit with some headroom.
const maxInputBytes = 4500

// ErrRejected marks requests the API refused on their merits, such as a
// voice that does not exist for the language. Repeating them will not help.
var ErrRejected = errors.New("speech request rejected")

// googleClient is the subset of the texttospeech client the synthesizer uses.
type googleClient interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	Close() error
}

// Google synthesizes OGG Opus speech with Google Cloud Text-to-Speech.
type Google struct {
	client   googleClient
	language string
	voice    string
	rate     float64
}

// GoogleConfig configures the Google synthesizer.
type GoogleConfig struct {
	// CredentialsFile is a service account JSON. Empty uses application
	// default credentials.
	CredentialsFile string

	// Language is the BCP-47 code of the phrases, e.g. "ja-JP".
	Language string

	// Voice is optional; the API picks one for Language when empty.
	Voice string

	// SpeakingRate defaults to 0.85, a little slower than natural speech.
	SpeakingRate float64
}

// NewGoogle dials the Text-to-Speech API.
func NewGoogle(ctx context.Context, cfg GoogleConfig) (*Google, error) {
	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}
	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create text-to-speech client: %w", err)
	}
	return newGoogle(client, cfg), nil
}

func newGoogle(client googleClient, cfg GoogleConfig) *Google {
	rate := cfg.SpeakingRate
	if rate <= 0 {
		rate = 0.85
	}
	return &Google{client: client, language: cfg.Language, voice: cfg.Voice, rate: rate}
}

func (g *Google) Synthesize(ctx context.Context, text string) (*enrich.Audio, error) {
	if text == "" {
		return nil, errors.New("text is empty")
	}
	if len(text) > maxInputBytes {
		return nil, fmt.Errorf("text is %d bytes, limit is %d", len(text), maxInputBytes)
	}

	resp, err := g.client.SynthesizeSpeech(ctx, &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: g.language,
			Name:         g.voice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_OGG_OPUS,
			SpeakingRate:  g.rate,
		},
	})
	if err != nil {
		return nil, classify(err)
	}
	if len(resp.GetAudioContent()) == 0 {
		return nil, nil
	}

	return &enrich.Audio{
		Data:     resp.GetAudioContent(),
		FileName: enrich.AudioFileName(text, ".ogg"),
		MIME:     "audio/ogg",
	}, nil
}

func (g *Google) Close() error {
	return g.client.Close()
}

// classify names the API status of a failed call.
func classify(err error) error {
	ae, ok := apierror.FromError(err)
	if !ok {
		return fmt.Errorf("google synthesize: %w", err)
	}
	code := ae.GRPCStatus().Code()
	detail := code.String()
	if r := ae.Reason(); r != "" {
		detail += " " + r
	}
	switch code {
	case codes.InvalidArgument, codes.FailedPrecondition, codes.PermissionDenied, codes.Unauthenticated:
		return fmt.Errorf("google synthesize: %s: %w: %w", detail, ErrRejected, ae)
	}
	return fmt.Errorf("google synthesize: %s: %w", detail, ae)
}
