// Package llm talks to the external language model. The rest of the code
// base only sees the Model interface; responses are untrusted text and are
// validated by the callers.
package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotConfigured means no credentials were supplied for the model.
var ErrNotConfigured = errors.New("llm: model not configured")

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Schema is the subset of JSON Schema needed to describe tool parameters.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Enum        []string           `json:"enum,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Required    []string           `json:"required,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
}

// Tool is a function the model may call instead of answering in prose.
type Tool struct {
	Name        string
	Description string
	Parameters  *Schema
}

type Request struct {
	System      string
	Messages    []Message
	Tools       []Tool
	JSON        bool // ask for a single JSON object response
	Temperature float64
	MaxTokens   int
}

// Chunk is one increment of a streamed response. Exactly one of Content,
// a tool-call fragment (ToolName/ToolArgs), ToolDone or Err is meaningful
// per chunk. ToolIndex distinguishes parallel tool calls.
type Chunk struct {
	Content   string
	ToolIndex int
	ToolName  string
	ToolArgs  string
	ToolDone  bool
	Err       error
}

// Model is an external language model.
type Model interface {
	// Complete returns the full text of a single response.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream returns a channel of chunks that is closed when the response
	// ends. A transport failure is delivered as a final chunk with Err set.
	// Cancelling ctx aborts the upstream request.
	Stream(ctx context.Context, req Request) (<-chan Chunk, error)
}

// APIError is a non-200 response from the provider.
type APIError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
}

type Config struct {
	Provider          string // "openai" (any OpenAI-compatible endpoint) or "gemini"
	APIKey            string
	BaseURL           string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
}

// New returns the configured model. It returns ErrNotConfigured when no API
// key is set so callers can report the model as unavailable.
func New(cfg Config) (Model, error) {
	if cfg.APIKey == "" {
		return nil, ErrNotConfigured
	}
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIClient(cfg), nil
	case "gemini":
		return NewGeminiClient(context.Background(), cfg)
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}

// send delivers a chunk unless ctx is cancelled first.
func send(ctx context.Context, ch chan<- Chunk, c Chunk) bool {
	select {
	case ch <- c:
		return true
	case <-ctx.Done():
		return false
	}
}
