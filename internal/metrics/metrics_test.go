package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRunCounters(t *testing.T) {
	m := New()
	m.RunStarted()
	m.RunFinished(OutcomeDone, 4, 1)
	m.RunStarted()
	m.RunFinished(OutcomeStopped, 2, 0)
	m.Detached()

	if got := testutil.ToFloat64(m.RunsStarted); got != 2 {
		t.Errorf("expected 2 runs started, got %v", got)
	}
	if got := testutil.ToFloat64(m.Frames); got != 6 {
		t.Errorf("expected 6 frames, got %v", got)
	}
	if got := testutil.ToFloat64(m.ActiveRuns); got != 0 {
		t.Errorf("expected no active runs, got %v", got)
	}

	expected := `
		# HELP agentstudio_runs_finished_total Total number of pipeline runs finished by outcome
		# TYPE agentstudio_runs_finished_total counter
		agentstudio_runs_finished_total{outcome="done"} 1
		agentstudio_runs_finished_total{outcome="stopped"} 1
	`
	if err := testutil.CollectAndCompare(m.RunsFinished, strings.NewReader(expected)); err != nil {
		t.Errorf("unexpected metric value: %v", err)
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	m.RunStarted()
	m.RunFinished(OutcomeFailed, 1, 1)
	m.Detached()
	m.DiscoveryFailed("providers")
	if m.Registry() != nil {
		t.Errorf("expected nil registry")
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.DiscoveryFailed("models")

	recorder := httptest.NewRecorder()
	m.Handler().ServeHTTP(recorder, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(recorder.Body)
	if !strings.Contains(string(body), `agentstudio_discovery_failures_total{endpoint="models"} 1`) {
		t.Errorf("expected discovery failure in output, got:\n%s", body)
	}
	if !strings.Contains(string(body), "# HELP agentstudio_frames_total Total number of stream frames decoded") {
		t.Errorf("expected frames help text, got:\n%s", body)
	}
}
