package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/auth"
	"github.com/dukerupert/larder/internal/executor"
	"github.com/dukerupert/larder/internal/interpreter"
	"github.com/dukerupert/larder/internal/model"
	"github.com/dukerupert/larder/internal/store"
)

// CommandHandler turns natural-language commands into pantry actions and
// applies action batches.
type CommandHandler struct {
	interpreter *interpreter.Interpreter
	executor    *executor.Executor
	pantryStore *store.PantryStore
	logger      *slog.Logger
}

func NewCommandHandler(interp *interpreter.Interpreter, exec *executor.Executor, ps *store.PantryStore, logger *slog.Logger) *CommandHandler {
	return &CommandHandler{interpreter: interp, executor: exec, pantryStore: ps, logger: logger}
}

type commandRequest struct {
	Command string `json:"command"`
}

type parseResponse struct {
	Actions []action.Wire `json:"actions"`
}

type runResponse struct {
	Actions []action.Wire `json:"actions"`
	executor.Result
}

func (h *CommandHandler) snapshot(r *http.Request) ([]model.PantryItem, error) {
	return h.pantryStore.List(r.Context(), auth.HouseholdID(r.Context()), store.PantryFilter{})
}

// interpret runs the interpreter against the current pantry and writes the
// error response itself when it fails.
func (h *CommandHandler) interpret(w http.ResponseWriter, r *http.Request) ([]action.Action, bool) {
	var req commandRequest
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return nil, false
	}

	snapshot, err := h.snapshot(r)
	if err != nil {
		h.logger.Error("failed to load pantry", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load pantry")
		return nil, false
	}

	actions, err := h.interpreter.Interpret(r.Context(), req.Command, snapshot)
	if err != nil {
		h.logger.Info("command not interpreted", "household_id", auth.HouseholdID(r.Context()), "error", err)
		writeError(w, interpreter.HTTPStatus(err), interpreter.UserMessage(err))
		return nil, false
	}
	return actions, true
}

// Parse interprets a command without applying it.
func (h *CommandHandler) Parse(w http.ResponseWriter, r *http.Request) {
	actions, ok := h.interpret(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, parseResponse{Actions: action.ToWireList(actions)})
}

// Execute applies a batch the client already holds, typically a confirmed
// proposal. Each element is validated on its own; invalid ones are counted
// as failed and the rest still run.
func (h *CommandHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Actions *[]json.RawMessage `json:"actions"`
	}
	if msg, ok := decodeJSON(w, r, &req); !ok {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	if req.Actions == nil {
		writeError(w, http.StatusBadRequest, "actions is required")
		return
	}

	ctx := r.Context()
	actions, errs := action.DecodeLenient(*req.Actions)
	for i, err := range errs {
		if err != nil {
			h.logger.Info("rejected action", "index", i, "error", err)
		}
	}

	result := h.executor.Execute(ctx, auth.HouseholdID(ctx), auth.UserID(ctx), actions)
	writeJSON(w, http.StatusOK, result)
}

// Run interprets a command and applies the result in one step.
func (h *CommandHandler) Run(w http.ResponseWriter, r *http.Request) {
	actions, ok := h.interpret(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	result := h.executor.Execute(ctx, auth.HouseholdID(ctx), auth.UserID(ctx), actions)
	writeJSON(w, http.StatusOK, runResponse{Actions: action.ToWireList(actions), Result: result})
}
