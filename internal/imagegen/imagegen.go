// Package imagegen draws illustrations for phrases.
package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gosimple/slug"
	openai "github.com/sashabaranov/go-openai"
)

// Image is a generated picture ready for upload.
type Image struct {
	Data     []byte
	FileName string
	MIME     string
}

// OpenAI generates images with DALL·E 3.
type OpenAI struct {
	client *openai.Client
	model  string
	size   string
}

func NewOpenAI(apiKey, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key is required")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  openai.CreateImageModelDallE3,
		size:   openai.CreateImageSize1024x1024,
	}, nil
}

// Prompt builds an illustration prompt from a phrase's meaning.
func Prompt(translation string) string {
	return fmt.Sprintf("A simple, friendly illustration of: %s. No text or letters in the image.",
		strings.TrimSpace(translation))
}

// Generate draws one image for prompt.
func (o *OpenAI) Generate(ctx context.Context, prompt string) (*Image, error) {
	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          o.model,
		N:              1,
		Size:           o.size,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("create image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, errors.New("create image: empty response")
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	name := slug.Make(prompt)
	if len(name) > 40 {
		name = strings.TrimRight(name[:40], "-")
	}
	return &Image{Data: data, FileName: name + ".png", MIME: "image/png"}, nil
}
