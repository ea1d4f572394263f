package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	m := New()
	m.Action("add_to_pantry", OutcomeExecuted)
	m.Action("add_to_pantry", OutcomeExecuted)
	m.Action("remove_from_shopping_list", OutcomeFailed)
	m.LLMRequest("interpret", OutcomeOK)
	m.Proposal(OutcomeDropped)

	if got := testutil.ToFloat64(m.actions.WithLabelValues("add_to_pantry", OutcomeExecuted)); got != 2 {
		t.Errorf("add_to_pantry executed = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.actions.WithLabelValues("remove_from_shopping_list", OutcomeFailed)); got != 1 {
		t.Errorf("remove failed = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.proposals.WithLabelValues(OutcomeDropped)); got != 1 {
		t.Errorf("dropped proposals = %v, want 1", got)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.Action("add_to_pantry", OutcomeExecuted)
	m.LLMRequest("chat", OutcomeError)
	m.Proposal(OutcomeAccepted)
}

func TestHandler(t *testing.T) {
	m := New()
	m.LLMRequest("interpret", OutcomeError)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `larder_llm_requests_total{operation="interpret",outcome="error"} 1`) {
		t.Errorf("metrics output missing llm counter:\n%s", body)
	}
}
