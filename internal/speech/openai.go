package speech

import (
	"context"
	"errors"
	"fmt"
	"io"

	openai "github.com/sashabaranov/go-openai"

	"github.com/abhisek/lexis/internal/enrich"
)

// OpenAI synthesizes Opus speech with the OpenAI audio API.
type OpenAI struct {
	client *openai.Client
	voice  openai.SpeechVoice
	speed  float64
}

// NewOpenAI uses the tts-1-hd model with the nova voice.
func NewOpenAI(apiKey, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{client: openai.NewClientWithConfig(cfg), voice: openai.VoiceNova, speed: 0.85}, nil
}

func (o *OpenAI) Synthesize(ctx context.Context, text string) (*enrich.Audio, error) {
	if text == "" {
		return nil, errors.New("text is empty")
	}

	resp, err := o.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.TTSModel1HD,
		Input:          text,
		Voice:          o.voice,
		ResponseFormat: openai.SpeechResponseFormatOpus,
		Speed:          o.speed,
	})
	if err != nil {
		return nil, fmt.Errorf("openai speech: %w", err)
	}
	defer resp.Close()

	data, err := io.ReadAll(resp)
	if err != nil {
		return nil, fmt.Errorf("read speech: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	return &enrich.Audio{
		Data:     data,
		FileName: enrich.AudioFileName(text, ".ogg"),
		MIME:     "audio/ogg",
	}, nil
}
