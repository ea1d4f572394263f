package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/dukerupert/larder/internal/action"
	"github.com/dukerupert/larder/internal/llm"
	"github.com/dukerupert/larder/internal/llm/llmtest"
	"github.com/dukerupert/larder/internal/metrics"
	"github.com/dukerupert/larder/internal/model"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestAssistant(m llm.Model) *Assistant {
	return New(m, slog.New(slog.NewTextHandler(io.Discard, nil)), metrics.New())
}

var hello = Request{Messages: []llm.Message{{Role: llm.RoleUser, Content: "I just bought milk"}}}

func run(t *testing.T, a *Assistant, req Request) ([]Event, error) {
	t.Helper()
	var events []Event
	err := a.Stream(context.Background(), req, func(ev Event) error {
		events = append(events, ev)
		return nil
	})
	return events, err
}

func toolChunks(name string, args ...string) []llm.Chunk {
	out := []llm.Chunk{{ToolName: name}}
	for _, a := range args {
		out = append(out, llm.Chunk{ToolArgs: a})
	}
	return append(out, llm.Chunk{ToolDone: true})
}

func textOf(events []Event) string {
	var sb strings.Builder
	for _, ev := range events {
		if ev.Type == EventText {
			sb.WriteString(ev.Value.(string))
		}
	}
	return sb.String()
}

func types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, ev := range events {
		out[i] = ev.Type
	}
	return out
}

func TestTextOnly(t *testing.T) {
	fake := &llmtest.Fake{Chunks: llmtest.TextChunks("Hello", ", ", "world")}
	events, err := run(t, newTestAssistant(fake), hello)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	want := []EventType{EventText, EventText, EventText, EventDone}
	if diff := cmp.Diff(want, types(events)); diff != "" {
		t.Errorf("event types (-want +got):\n%s", diff)
	}
	if got := textOf(events); got != "Hello, world" {
		t.Errorf("text = %q", got)
	}
}

func TestValidProposalFollowsText(t *testing.T) {
	chunks := llmtest.TextChunks("Sounds good. ", "Here's what I'd change.")
	chunks = append(chunks, toolChunks(ProposalToolName,
		`{"actions":[{"type":"update_pantry_status",`,
		`"item":"milk","status":"in_stock"}],`,
		`"summary":"Mark milk as in stock"}`,
	)...)

	events, err := run(t, newTestAssistant(&llmtest.Fake{Chunks: chunks}), hello)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	want := []EventType{EventText, EventText, EventProposal, EventDone}
	if diff := cmp.Diff(want, types(events)); diff != "" {
		t.Fatalf("event types (-want +got):\n%s", diff)
	}

	p, ok := events[2].Value.(*Proposal)
	if !ok {
		t.Fatalf("proposal value is %T", events[2].Value)
	}
	wantActions := []action.Action{action.UpdatePantryStatus{Item: "milk", Status: model.StatusInStock}}
	if diff := cmp.Diff(wantActions, p.Actions); diff != "" {
		t.Errorf("actions (-want +got):\n%s", diff)
	}
	if p.Summary != "Mark milk as in stock" {
		t.Errorf("summary = %q", p.Summary)
	}
}

func TestMalformedProposalIsDropped(t *testing.T) {
	tests := []struct {
		name string
		tool string
		args []string
	}{
		{"invalid json", ProposalToolName, []string{`{"actions":[{"type":`, `"add_to_pantry"`}},
		{"unknown type", ProposalToolName, []string{`{"actions":[{"type":"buy","item":"milk"}],"summary":"x"}`}},
		{"missing summary", ProposalToolName, []string{`{"actions":[{"type":"add_to_pantry","item":"milk"}]}`}},
		{"empty actions", ProposalToolName, []string{`{"actions":[],"summary":"nothing"}`}},
		{"wrong tool", "delete_everything", []string{`{"actions":[{"type":"add_to_pantry","item":"milk"}],"summary":"x"}`}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks := llmtest.TextChunks("Let me ", "help.")
			chunks = append(chunks, toolChunks(tt.tool, tt.args...)...)

			events, err := run(t, newTestAssistant(&llmtest.Fake{Chunks: chunks}), hello)
			if err != nil {
				t.Fatalf("Stream returned %v, want nil", err)
			}
			want := []EventType{EventText, EventText, EventDone}
			if diff := cmp.Diff(want, types(events)); diff != "" {
				t.Errorf("event types (-want +got):\n%s", diff)
			}
			if got := textOf(events); got != "Let me help." {
				t.Errorf("text = %q", got)
			}
		})
	}
}

func TestProposalWithoutDoneSignal(t *testing.T) {
	chunks := []llm.Chunk{
		{Content: "Okay."},
		{ToolName: ProposalToolName, ToolArgs: `{"actions":[{"type":"add_to_pantry","item":"rice"}],"summary":"Add rice"}`},
	}
	events, err := run(t, newTestAssistant(&llmtest.Fake{Chunks: chunks}), hello)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	want := []EventType{EventText, EventProposal, EventDone}
	if diff := cmp.Diff(want, types(events)); diff != "" {
		t.Errorf("event types (-want +got):\n%s", diff)
	}
}

func TestOnlyFirstProposalIsKept(t *testing.T) {
	chunks := []llm.Chunk{
		{ToolIndex: 0, ToolName: ProposalToolName, ToolArgs: `{"actions":[{"type":"add_to_pantry","item":"rice"}],"summary":"first"}`},
		{ToolIndex: 1, ToolName: ProposalToolName, ToolArgs: `{"actions":[{"type":"add_to_pantry","item":"beans"}],"summary":"second"}`},
		{ToolDone: true},
	}
	events, err := run(t, newTestAssistant(&llmtest.Fake{Chunks: chunks}), hello)
	if err != nil {
		t.Fatalf("Stream: %v", err)
	}
	if len(events) != 2 || events[0].Type != EventProposal {
		t.Fatalf("events = %+v", events)
	}
	if got := events[0].Value.(*Proposal).Summary; got != "first" {
		t.Errorf("summary = %q, want first", got)
	}
}

func TestTransportErrorDiscardsProposal(t *testing.T) {
	chunks := []llm.Chunk{
		{Content: "Adding "},
		{ToolName: ProposalToolName, ToolArgs: `{"actions":[{"type":"add_to_pantry","item":"rice"}],"summary":"Add rice"}`},
		{ToolDone: true},
		{Err: errors.New("connection reset by peer")},
	}
	events, err := run(t, newTestAssistant(&llmtest.Fake{Chunks: chunks}), hello)
	if !errors.Is(err, ErrStreamFailed) {
		t.Fatalf("err = %v, want ErrStreamFailed", err)
	}
	for _, ev := range events {
		if ev.Type == EventProposal || ev.Type == EventDone {
			t.Errorf("unexpected %s event after transport error", ev.Type)
		}
	}
}

func TestStreamStartFailure(t *testing.T) {
	_, err := run(t, newTestAssistant(&llmtest.Fake{StreamErr: errors.New("401")}), hello)
	if !errors.Is(err, ErrStreamFailed) {
		t.Errorf("err = %v, want ErrStreamFailed", err)
	}

	_, err = run(t, newTestAssistant(&llmtest.Fake{StreamErr: llm.ErrNotConfigured}), hello)
	if !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("err = %v, want ErrModelUnavailable", err)
	}
}

func TestNoModelAndNoMessages(t *testing.T) {
	if _, err := run(t, newTestAssistant(nil), hello); !errors.Is(err, ErrModelUnavailable) {
		t.Errorf("nil model: err = %v", err)
	}
	if _, err := run(t, newTestAssistant(&llmtest.Fake{}), Request{}); !errors.Is(err, ErrNoMessages) {
		t.Errorf("no messages: err = %v", err)
	}
}

func TestEmitFailureCancelsUpstream(t *testing.T) {
	fake := &llmtest.Fake{Chunks: llmtest.TextChunks("a", "b", "c", "d", "e")}
	a := newTestAssistant(fake)

	gone := errors.New("client went away")
	n := 0
	err := a.Stream(context.Background(), hello, func(ev Event) error {
		n++
		if n == 2 {
			return gone
		}
		return nil
	})
	if !errors.Is(err, gone) {
		t.Fatalf("err = %v, want emit error", err)
	}
	if n != 2 {
		t.Errorf("emit called %d times after failure, want 2", n)
	}
}

func TestCallerCancellation(t *testing.T) {
	fake := &llmtest.Fake{Chunks: llmtest.TextChunks("one", "two", "three")}
	a := newTestAssistant(fake)

	ctx, cancel := context.WithCancel(context.Background())
	var events []Event
	err := a.Stream(ctx, hello, func(ev Event) error {
		events = append(events, ev)
		cancel()
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	for _, ev := range events {
		if ev.Type == EventDone {
			t.Error("done emitted after cancellation")
		}
	}
}

func TestRequestCarriesToolAndPantry(t *testing.T) {
	fake := &llmtest.Fake{Chunks: llmtest.TextChunks("hi")}
	req := hello
	req.Snapshot = []model.PantryItem{{Name: "milk", Status: model.StatusOutOfStock}}
	if _, err := run(t, newTestAssistant(fake), req); err != nil {
		t.Fatalf("Stream: %v", err)
	}

	reqs := fake.Requests()
	if len(reqs) != 1 {
		t.Fatalf("got %d requests", len(reqs))
	}
	if !strings.Contains(reqs[0].System, "- milk: out_of_stock") {
		t.Errorf("system prompt missing pantry: %q", reqs[0].System)
	}
	if len(reqs[0].Tools) != 1 || reqs[0].Tools[0].Name != ProposalToolName {
		t.Errorf("tools = %+v", reqs[0].Tools)
	}
}

func TestEventJSON(t *testing.T) {
	ev := Event{Type: EventProposal, Value: &Proposal{
		Actions: []action.Action{action.AddToPantry{Item: "Rice", Status: model.StatusInStock}},
		Summary: "Add rice",
	}}
	data, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"proposal","value":{"actions":[{"type":"add_to_pantry","item":"Rice","status":"in_stock"}],"summary":"Add rice"}}`
	if string(data) != want {
		t.Errorf("json = %s\nwant  %s", data, want)
	}

	done, _ := json.Marshal(Event{Type: EventDone})
	if string(done) != `{"type":"done"}` {
		t.Errorf("done json = %s", done)
	}
}
