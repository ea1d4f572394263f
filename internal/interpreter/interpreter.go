// Package interpreter turns a free-text pantry command into validated
// actions. Understanding is delegated to the language model; this package
// owns the prompt and guarantees that whatever comes back is either a typed
// action list or a distinguishable error.
package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/metrics"
	"github.com/dukerupert/larder/internal/model"
)

var (
	ErrEmptyCommand       = errors.New("command is empty")
	ErrModelUnavailable   = errors.New("language model is not configured")
	ErrModelResponseEmpty = errors.New("language model returned an empty response")
	ErrMalformedJSON      = errors.New("language model response is not valid JSON")
	ErrSchemaMismatch     = errors.New("language model response does not match the action schema")
	ErrModelFailed        = errors.New("language model request failed")
)

const operation = "interpret"

type Interpreter struct {
	model   llm.Model
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// New returns an interpreter. model may be nil when no credentials are
// configured; Interpret then fails with ErrModelUnavailable.
func New(m llm.Model, logger *slog.Logger, mt *metrics.Metrics) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Interpreter{
		model:   m,
		logger:  logger.With("component", "interpreter"),
		metrics: mt,
	}
}

// Interpret asks the model for the actions expressed by command, given the
// household's current pantry. An empty result means no actionable intent
// was found and is not an error.
func (i *Interpreter) Interpret(ctx context.Context, command string, snapshot []model.PantryItem) ([]action.Action, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return nil, ErrEmptyCommand
	}
	if i.model == nil {
		i.metrics.LLMRequest(operation, metrics.OutcomeError)
		return nil, ErrModelUnavailable
	}

	resp, err := i.model.Complete(ctx, llm.Request{
		System: SystemPrompt,
		Messages: []llm.Message{
			{Role: llm.RoleUser, Content: userMessage(command, BuildContext(snapshot))},
		},
		JSON:        true,
		Temperature: 0,
	})
	if err != nil {
		i.metrics.LLMRequest(operation, metrics.OutcomeError)
		if errors.Is(err, llm.ErrNotConfigured) {
			return nil, ErrModelUnavailable
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		i.logger.Error("model request failed", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrModelFailed, err)
	}

	actions, err := parseResponse(resp)
	if err != nil {
		i.metrics.LLMRequest(operation, metrics.OutcomeError)
		i.logger.Warn("rejected model response", "error", err, "response", truncate(resp, 200))
		return nil, err
	}

	i.metrics.LLMRequest(operation, metrics.OutcomeOK)
	i.logger.Debug("interpreted command", "actions", len(actions))
	return actions, nil
}

func parseResponse(resp string) ([]action.Action, error) {
	body := strings.TrimSpace(stripFence(resp))
	if body == "" {
		return nil, ErrModelResponseEmpty
	}
	if !json.Valid([]byte(body)) {
		return nil, ErrMalformedJSON
	}
	actions, err := action.DecodeBatch([]byte(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	return actions, nil
}

// stripFence removes a markdown code fence some models wrap JSON in.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// UserMessage is the text shown to the user for an Interpret error.
func UserMessage(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCommand):
		return "Please enter a command."
	case errors.Is(err, ErrModelUnavailable):
		return "The assistant is not configured on this server."
	case errors.Is(err, ErrModelResponseEmpty):
		return "The assistant did not respond. Please try again."
	case errors.Is(err, ErrMalformedJSON):
		return "Could not understand the assistant's response. Try rephrasing your command."
	case errors.Is(err, ErrSchemaMismatch):
		return "The assistant suggested changes that could not be applied. Try rephrasing your command."
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "The request timed out. Please try again."
	default:
		return "The assistant is temporarily unavailable. Please try again."
	}
}

// HTTPStatus maps an Interpret error to a response status.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrEmptyCommand):
		return http.StatusBadRequest
	case errors.Is(err, ErrModelUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrModelResponseEmpty), errors.Is(err, ErrMalformedJSON), errors.Is(err, ErrSchemaMismatch):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}
