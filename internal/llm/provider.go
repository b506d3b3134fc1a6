package llm

import (
	"context"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Complete runs one prompt, optionally grounded on a document
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// Document is the agreement attached to a request. Providers that accept
// raw files send Data as-is; the rest send Text.
type Document struct {
	Name     string
	MimeType string
	Data     []byte
	Text     string
}

// Turn is one prior exchange in a conversation
type Turn struct {
	Role string // "user" or "assistant"
	Text string
}

// CompletionRequest contains the input for one completion
type CompletionRequest struct {
	System    string
	Prompt    string
	Document  *Document
	History   []Turn
	Model     string
	MaxTokens int
}

// CompletionResponse contains the provider output
type CompletionResponse struct {
	Text       string
	Model      string
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "openai",
		Timeout:   120,
		MaxTokens: 4000,
	}
}

func (c Config) maxTokens(requested int) int {
	if requested > 0 {
		return requested
	}
	if c.MaxTokens > 0 {
		return c.MaxTokens
	}
	return 4000
}

func documentPrompt(doc *Document, prompt string) string {
	if doc == nil || doc.Text == "" {
		return prompt
	}
	return "DOCUMENT (" + doc.Name + "):\n<<<\n" + doc.Text + "\n>>>\n\n" + prompt
}
