// Package llm talks to chat-completion models behind a single Provider
// abstraction. Segmentation and translation are its only consumers.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
)

// Provider generates a completion for a Request.
type Provider interface {
	// Generate sends req and returns the model output. With a Schema set,
	// Content is JSON validated against it.
	Generate(ctx context.Context, req Request) (*Response, error)

	// ModelID names the model this provider sends requests to.
	ModelID() string
}

// Request is a single prompt.
type Request struct {
	System   string
	Messages []Message

	// Schema, when set, asks the provider for structured output.
	Schema *Schema

	MaxTokens   int
	Temperature float64 // 0 leaves the provider default
}

// Message is one conversation turn.
type Message struct {
	Role    Role
	Content string
}

// Role is the message sender role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Schema is a named JSON Schema for structured output.
type Schema struct {
	// Name is kebab-case, e.g. "phrase-translation". Compiled schemas are
	// cached by name, so it must be unique per definition.
	Name        string
	Description string
	Definition  map[string]any
}

// Response is the model output.
type Response struct {
	Content json.RawMessage
	Usage   Usage
	Model   string

	// StopReason is one of "end", "max_tokens".
	StopReason string
}

// Usage is the token count of one request.
type Usage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
}

// UserPrompt builds a single-turn request.
func UserPrompt(system, user string, schema *Schema) Request {
	return Request{
		System:   system,
		Messages: []Message{{Role: RoleUser, Content: user}},
		Schema:   schema,
	}
}

// Decode runs req and unmarshals the structured output into out.
func Decode(ctx context.Context, p Provider, req Request, out any) error {
	resp, err := p.Generate(ctx, req)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Content, out); err != nil {
		return &ErrInvalidResponse{Content: resp.Content, Err: fmt.Errorf("decode: %w", err)}
	}
	return nil
}
