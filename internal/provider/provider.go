// Package provider runs chat-completion requests against an ordered set of
// interchangeable generative-text backends.
package provider

import (
	"context"
	"time"
)

// Kind selects the client implementation for a backend.
type Kind string

const (
	// KindChat is any endpoint speaking the OpenAI chat-completion shape
	// over plain HTTP (Groq, OpenRouter, Mistral, DeepSeek).
	KindChat Kind = "chat"
	// KindOpenAI uses the go-openai SDK.
	KindOpenAI Kind = "openai"
	// KindAnthropic uses the Anthropic Messages API.
	KindAnthropic Kind = "anthropic"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTimeout bounds a single provider call when its config sets none.
const DefaultTimeout = 30 * time.Second

// Config describes one backend.
type Config struct {
	Name      string
	Kind      Kind
	Endpoint  string
	Model     string
	APIKey    string
	Headers   map[string]string
	Priority  int
	Timeout   time.Duration
	RateLimit float64 // requests per second; 0 disables limiting
	MaxTokens int
}

// Message is a single chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one generation request, shared by every provider tried.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// RawResponse is a provider's unvalidated reply.
type RawResponse struct {
	Provider   string
	Text       string
	StatusCode int
	Success    bool
	// Token usage as reported by the backend; zero when not reported.
	InputTokens  int
	OutputTokens int
}

// Provider is a single generative-text backend.
type Provider interface {
	Name() string
	// Enabled reports whether the provider has a credential configured.
	// Disabled providers are skipped without counting as failures.
	Enabled() bool
	Complete(ctx context.Context, req Request) (*RawResponse, error)
}

// System builds a system message.
func System(content string) Message { return Message{Role: RoleSystem, Content: content} }

// User builds a user message.
func User(content string) Message { return Message{Role: RoleUser, Content: content} }

func maxTokens(req Request, cfg Config, fallback int) int {
	switch {
	case req.MaxTokens > 0:
		return req.MaxTokens
	case cfg.MaxTokens > 0:
		return cfg.MaxTokens
	default:
		return fallback
	}
}
