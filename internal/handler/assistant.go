package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/larder/internal/assistant"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/store"
)

// maxChatMessages bounds the conversation history a client may send.
const maxChatMessages = 50

// StreamIDHeader identifies one chat reply in logs and on the client.
const StreamIDHeader = "X-Stream-ID"

type AssistantHandler struct {
	assistant   *assistant.Assistant
	pantryStore *store.PantryStore
	logger      *slog.Logger
}

func NewAssistantHandler(a *assistant.Assistant, ps *store.PantryStore, logger *slog.Logger) *AssistantHandler {
	return &AssistantHandler{assistant: a, pantryStore: ps, logger: logger}
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
}

func (req *chatRequest) validate() error {
	if len(req.Messages) == 0 {
		return errors.New("messages is required")
	}
	if len(req.Messages) > maxChatMessages {
		return fmt.Errorf("at most %d messages allowed", maxChatMessages)
	}
	for i, m := range req.Messages {
		if m.Role != llm.RoleUser && m.Role != llm.RoleAssistant {
			return fmt.Errorf("message %d: role must be user or assistant", i)
		}
		if strings.TrimSpace(m.Content) == "" {
			return fmt.Errorf("message %d: content is required", i)
		}
	}
	if req.Messages[len(req.Messages)-1].Role != llm.RoleUser {
		return errors.New("last message must be from the user")
	}
	return nil
}

// sseWriter writes assistant events as server-sent events. Headers are sent
// lazily so failures before the first event can still use a JSON error.
type sseWriter struct {
	w       http.ResponseWriter
	rc      *http.ResponseController
	id      string
	started bool
}

func (s *sseWriter) start() {
	h := s.w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	h.Set(StreamIDHeader, s.id)
	s.w.WriteHeader(http.StatusOK)
	s.started = true
}

func (s *sseWriter) emit(ev assistant.Event) error {
	if !s.started {
		s.start()
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if err := s.rc.Flush(); err != nil {
		return fmt.Errorf("flush event: %w", err)
	}
	return nil
}

// Chat streams the assistant's reply as text, proposal and done frames. An
// error after the stream has started is reported as an error frame.
func (h *AssistantHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	householdID := auth.HouseholdID(ctx)
	snapshot, err := h.pantryStore.List(ctx, householdID, store.PantryFilter{})
	if err != nil {
		h.logger.Error("failed to load pantry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load pantry")
		return
	}

	sse := &sseWriter{w: w, rc: http.NewResponseController(w), id: uuid.NewString()}
	logger := h.logger.With("stream_id", sse.id, "household_id", householdID)

	err = h.assistant.Stream(ctx, assistant.Request{Messages: req.Messages, Snapshot: snapshot}, sse.emit)
	switch {
	case err == nil:
		return
	case errors.Is(err, context.Canceled):
		logger.Debug("chat cancelled by client")
		return
	}

	logger.Warn("chat stream failed", "error", err)
	if !sse.started {
		status, msg := http.StatusBadGateway, "The assistant is temporarily unavailable. Please try again."
		if errors.Is(err, assistant.ErrModelUnavailable) {
			status, msg = http.StatusServiceUnavailable, "The assistant is not configured on this server."
		}
		writeError(w, status, msg)
		return
	}
	if ctx.Err() != nil {
		return
	}
	if emitErr := sse.emit(assistant.Event{Type: assistant.EventError, Value: "The assistant stopped responding. Please try again."}); emitErr != nil {
		logger.Debug("failed to send error frame", "error", emitErr)
	}
}
