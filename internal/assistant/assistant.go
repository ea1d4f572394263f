// Package assistant streams a conversational reply and captures at most one
// proposed action batch from the model's tool call.
//
// A proposal is never applied here. It is handed to the caller as its own
// event so the user can approve it, after which the caller runs it through
// the executor like any other batch.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/metrics"
	"github.com/dukerupert/larder/internal/model"
)

var (
	ErrModelUnavailable = errors.New("language model is not configured")
	ErrNoMessages       = errors.New("conversation has no messages")
	ErrStreamFailed     = errors.New("assistant stream failed")
)

const operation = "chat"

type EventType string

const (
	EventText     EventType = "text"
	EventProposal EventType = "proposal"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one frame of the reply stream.
type Event struct {
	Type  EventType `json:"type"`
	Value any       `json:"value,omitempty"`
}

// Proposal is a validated batch awaiting the user's decision.
type Proposal struct {
	Actions []action.Action `json:"actions"`
	Summary string          `json:"summary"`
}

type Request struct {
	Messages []llm.Message
	Snapshot []model.PantryItem
}

type Assistant struct {
	model   llm.Model
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(m llm.Model, logger *slog.Logger, mt *metrics.Metrics) *Assistant {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{
		model:   m,
		logger:  logger.With("component", "assistant"),
		metrics: mt,
	}
}

// toolCall accumulates the argument fragments of one tool invocation.
type toolCall struct {
	name string
	args strings.Builder
}

// Stream runs one assistant turn. Text is passed to emit as it arrives. A
// valid proposal is emitted after all text and before the final done event;
// a malformed one is dropped without failing the turn. A transport error
// ends the turn with an error and no proposal. If emit fails the upstream
// request is cancelled and its error returned.
func (a *Assistant) Stream(ctx context.Context, req Request, emit func(Event) error) error {
	if a.model == nil {
		return ErrModelUnavailable
	}
	if len(req.Messages) == 0 {
		return ErrNoMessages
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chunks, err := a.model.Stream(ctx, llm.Request{
		System:      buildSystemPrompt(req.Snapshot),
		Messages:    req.Messages,
		Tools:       []llm.Tool{ProposalTool()},
		Temperature: 0.3,
	})
	if err != nil {
		a.metrics.LLMRequest(operation, metrics.OutcomeError)
		if errors.Is(err, llm.ErrNotConfigured) {
			return ErrModelUnavailable
		}
		return fmt.Errorf("%w: %v", ErrStreamFailed, err)
	}

	var (
		calls    = map[int]*toolCall{}
		order    []int
		proposal *Proposal
	)
	finish := func() {
		for _, idx := range order {
			call := calls[idx]
			p, err := a.parseProposal(call)
			if err != nil {
				a.metrics.Proposal(metrics.OutcomeDropped)
				a.logger.Warn("dropped malformed proposal", "tool", call.name, "error", err)
				continue
			}
			if proposal != nil {
				a.metrics.Proposal(metrics.OutcomeDropped)
				a.logger.Warn("dropped extra proposal", "tool", call.name)
				continue
			}
			a.metrics.Proposal(metrics.OutcomeAccepted)
			proposal = p
		}
		calls = map[int]*toolCall{}
		order = nil
	}

	for chunk := range chunks {
		switch {
		case chunk.Err != nil:
			a.metrics.LLMRequest(operation, metrics.OutcomeError)
			return fmt.Errorf("%w: %v", ErrStreamFailed, chunk.Err)
		case chunk.ToolDone:
			finish()
		case chunk.ToolName != "" || chunk.ToolArgs != "":
			call, ok := calls[chunk.ToolIndex]
			if !ok {
				call = &toolCall{}
				calls[chunk.ToolIndex] = call
				order = append(order, chunk.ToolIndex)
			}
			if chunk.ToolName != "" {
				call.name = chunk.ToolName
			}
			call.args.WriteString(chunk.ToolArgs)
		case chunk.Content != "":
			if err := emit(Event{Type: EventText, Value: chunk.Content}); err != nil {
				return err
			}
		}
	}

	// The channel also closes when ctx is cancelled upstream.
	if err := ctx.Err(); err != nil {
		a.metrics.LLMRequest(operation, metrics.OutcomeError)
		return err
	}

	// A stream may end without an explicit completion signal.
	finish()
	a.metrics.LLMRequest(operation, metrics.OutcomeOK)

	if proposal != nil {
		if err := emit(Event{Type: EventProposal, Value: proposal}); err != nil {
			return err
		}
	}
	return emit(Event{Type: EventDone})
}

func (a *Assistant) parseProposal(call *toolCall) (*Proposal, error) {
	if call.name != ProposalToolName {
		return nil, fmt.Errorf("unknown tool %q", call.name)
	}
	args := []byte(call.args.String())

	var payload struct {
		Summary *string `json:"summary"`
	}
	if err := json.Unmarshal(args, &payload); err != nil {
		return nil, fmt.Errorf("parse arguments: %w", err)
	}
	if payload.Summary == nil || strings.TrimSpace(*payload.Summary) == "" {
		return nil, errors.New("missing summary")
	}

	actions, err := action.DecodeBatch(args)
	if err != nil {
		return nil, err
	}
	if len(actions) == 0 {
		return nil, errors.New("no actions proposed")
	}
	return &Proposal{Actions: actions, Summary: strings.TrimSpace(*payload.Summary)}, nil
}
