package session

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"

	"agentstudio/internal/metrics"
	"agentstudio/internal/pipeline"
	"agentstudio/internal/protocol"
	"agentstudio/internal/testutil"
	"agentstudio/internal/transport"
)

func newController(t *testing.T, baseURL string, m *metrics.Metrics) *Controller {
	t.Helper()
	c := New(Options{
		BaseURL:  baseURL,
		Settings: DefaultSettings(),
		Metrics:  m,
	})
	t.Cleanup(c.Close)
	return c
}

func waitSettled(t *testing.T, c *Controller) pipeline.State {
	t.Helper()
	state, err := c.Wait(testutil.Context(t, 0))
	if err != nil {
		t.Fatalf("run did not settle: %v (status %s)", err, state.Status)
	}
	return state
}

func TestRunEndToEnd(t *testing.T) {
	release := make(chan struct{})
	backend := testutil.StartBackend(t, testutil.BackendConfig{
		Run: func(ctx context.Context, w *testutil.FrameWriter) {
			select {
			case <-release:
			case <-ctx.Done():
				return
			}
			testutil.SendAll(testutil.ScenarioFrames())(ctx, w)
		},
	})
	m := metrics.New()
	c := newController(t, backend.BaseURL, m)

	runID := c.Run()
	if runID == "" {
		t.Fatalf("expected run id")
	}
	if got := c.Snapshot(); got.Status != pipeline.StatusRunning || got.RunID != runID {
		t.Fatalf("expected running state for %s immediately, got %s/%s", runID, got.Status, got.RunID)
	}
	close(release)

	state := waitSettled(t, c)
	if state.Status != pipeline.StatusDone {
		t.Fatalf("expected done, got %s (error %q)", state.Status, state.Error)
	}
	if state.Error != "" {
		t.Fatalf("expected no error, got %q", state.Error)
	}
	router, _ := state.Agent("router-1")
	if router.Status != pipeline.AgentDone || router.Tokens != 1 || router.TokensPerSec != 5 ||
		router.LatencyMs != 120 || router.VramGB != 2.1 || router.Output != "Hi" {
		t.Fatalf("unexpected router metrics: %+v", router)
	}
	if state.TotalTokens != 1 || state.TotalMs != 120 {
		t.Fatalf("unexpected totals: %d tokens %v ms", state.TotalTokens, state.TotalMs)
	}

	requests := backend.Requests()
	if len(requests) != 1 {
		t.Fatalf("expected one run request, got %d", len(requests))
	}
	if requests[0].Prompt != protocol.DefaultPrompt || requests[0].DefaultProvider.Type != protocol.ProviderSimulation {
		t.Fatalf("unexpected request: %+v", requests[0])
	}

	if got := promtestutil.ToFloat64(m.RunsFinished.WithLabelValues(metrics.OutcomeDone)); got != 1 {
		t.Fatalf("expected one finished run, got %v", got)
	}
	if got := promtestutil.ToFloat64(m.Frames); got != 4 {
		t.Fatalf("expected 4 frames, got %v", got)
	}
	if got := promtestutil.ToFloat64(m.ActiveRuns); got != 0 {
		t.Fatalf("expected no active run, got %v", got)
	}
}

func TestRunTwiceKeepsOneTransport(t *testing.T) {
	firstGone := make(chan struct{})
	backend := testutil.StartBackend(t, testutil.BackendConfig{
		Run: func(ctx context.Context, w *testutil.FrameWriter) {
			w.Send(map[string]any{"type": "agent_start", "agentId": "router-1"})
			w.Send(map[string]any{"type": "agent_token", "agentId": "router-1", "token": "old", "totalTokens": 1})
			<-ctx.Done()
			close(firstGone)
		},
	})
	m := metrics.New()
	c := newController(t, backend.BaseURL, m)

	first := c.Run()
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		router, _ := c.Snapshot().Agent("router-1")
		return router.Output == "old"
	}, "first run never streamed")

	backend.SetRun(testutil.SendAll(testutil.ScenarioFrames()))
	second := c.Run()
	if first == second {
		t.Fatalf("expected distinct run ids")
	}

	select {
	case <-firstGone:
	case <-time.After(2 * time.Second):
		t.Fatalf("first transport was not released")
	}

	state := waitSettled(t, c)
	if state.RunID != second || state.Status != pipeline.StatusDone {
		t.Fatalf("expected second run done, got %s/%s", state.RunID, state.Status)
	}
	router, _ := state.Agent("router-1")
	if router.Output != "Hi" {
		t.Fatalf("expected frames from the first run to be discarded, output %q", router.Output)
	}
	if backend.RunCalls() != 2 {
		t.Fatalf("expected two run requests, got %d", backend.RunCalls())
	}
	if got := promtestutil.ToFloat64(m.RunsFinished.WithLabelValues(metrics.OutcomeSuperseded)); got != 1 {
		t.Fatalf("expected one superseded run, got %v", got)
	}
}

func TestStopIsSilent(t *testing.T) {
	backend := testutil.StartBackend(t, testutil.BackendConfig{
		Run: testutil.Hold([]map[string]any{
			{"type": "agent_start", "agentId": "router-1"},
			{"type": "stage_parallel", "stageIndex": 1, "agentIds": []string{"coder-1", "analyzer-1"}},
		}, nil),
	})
	c := newController(t, backend.BaseURL, nil)

	c.Run()
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return c.Snapshot().ActiveStage != nil
	}, "stage never arrived")

	c.Stop()
	state := c.Snapshot()
	if state.Status != pipeline.StatusStopped {
		t.Fatalf("expected stopped, got %s", state.Status)
	}
	if state.Error != "" {
		t.Fatalf("expected no error after stop, got %q", state.Error)
	}
	if state.ActiveStage != nil {
		t.Fatalf("expected stage cleared")
	}
	router, _ := state.Agent("router-1")
	if router.Status != pipeline.AgentIdle {
		t.Fatalf("expected cancelled agent idle, got %s", router.Status)
	}

	time.Sleep(50 * time.Millisecond)
	if got := c.Snapshot(); got.Status != pipeline.StatusStopped || got.Error != "" {
		t.Fatalf("state changed after stop: %s %q", got.Status, got.Error)
	}
}

func TestConnectFailureStopsWithMessage(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	c := newController(t, url, nil)
	c.Run()
	state := waitSettled(t, c)
	if state.Status != pipeline.StatusStopped {
		t.Fatalf("expected stopped, got %s", state.Status)
	}
	if !strings.HasPrefix(state.Error, "connection failed") {
		t.Fatalf("expected connection failure, got %q", state.Error)
	}
}

func TestBackendStatusErrorStopsWithDetail(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"model unavailable"}`))
	}))
	t.Cleanup(server.Close)

	c := newController(t, server.URL, nil)
	c.Run()
	state := waitSettled(t, c)
	if state.Status != pipeline.StatusStopped {
		t.Fatalf("expected stopped, got %s", state.Status)
	}
	if state.Error != "backend returned HTTP 500: model unavailable" {
		t.Fatalf("unexpected error %q", state.Error)
	}
}

func TestStreamEndingEarlyIsAFailure(t *testing.T) {
	backend := testutil.StartBackend(t, testutil.BackendConfig{
		Run: testutil.SendAll([]map[string]any{
			{"type": "agent_start", "agentId": "router-1"},
		}),
	})
	c := newController(t, backend.BaseURL, nil)

	c.Run()
	state := waitSettled(t, c)
	if state.Status != pipeline.StatusStopped || state.Error != MessageStreamEnded {
		t.Fatalf("expected stream-ended failure, got %s %q", state.Status, state.Error)
	}
	router, _ := state.Agent("router-1")
	if router.Status != pipeline.AgentError {
		t.Fatalf("expected interrupted agent marked error, got %s", router.Status)
	}
}

func TestPipelineErrorFromBackend(t *testing.T) {
	backend := testutil.StartBackend(t, testutil.BackendConfig{
		Run: testutil.SendAll([]map[string]any{
			{"type": "stage_parallel", "stageIndex": 1, "agentIds": []string{"coder-1", "analyzer-1"}},
			{"type": "pipeline_error", "message": "model unavailable"},
		}),
	})
	m := metrics.New()
	c := newController(t, backend.BaseURL, m)

	c.Run()
	state := waitSettled(t, c)
	if state.Status != pipeline.StatusStopped || state.Error != "model unavailable" || state.ActiveStage != nil {
		t.Fatalf("unexpected state: %s %q %+v", state.Status, state.Error, state.ActiveStage)
	}
	if got := promtestutil.ToFloat64(m.RunsFinished.WithLabelValues(metrics.OutcomeFailed)); got != 1 {
		t.Fatalf("expected one failed run, got %v", got)
	}
}

func TestSettingsAreSnapshotAtRun(t *testing.T) {
	backend := testutil.StartBackend(t, testutil.BackendConfig{Run: testutil.Hold(nil, nil)})
	c := newController(t, backend.BaseURL, nil)

	c.SetPrompt("first prompt")
	c.SetUseRealModels(true)
	c.SetDefaultProvider(protocol.ProviderRef{Type: protocol.ProviderOllama, BaseURL: "http://localhost:11434"})
	override := protocol.NewAgentConfig("coder-1")
	override.Tools = []string{protocol.ToolReadFile, protocol.ToolCalculator}
	c.SetAgentConfig(override)

	c.Run()
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		return backend.RunCalls() == 1
	}, "run request never arrived")

	c.SetPrompt("second prompt")
	c.ClearAgentConfig("coder-1")
	if got := c.Snapshot(); got.Status != pipeline.StatusRunning {
		t.Fatalf("setters must not touch run state, got %s", got.Status)
	}

	req := backend.Requests()[0]
	if req.Prompt != "first prompt" || !req.UseRealModels {
		t.Fatalf("unexpected request: %+v", req)
	}
	if req.DefaultProvider.Type != protocol.ProviderOllama || req.DefaultProvider.BaseURL != "http://localhost:11434" {
		t.Fatalf("unexpected default provider: %+v", req.DefaultProvider)
	}
	if len(req.AgentConfigs) != 1 || req.AgentConfigs[0].AgentID != "coder-1" {
		t.Fatalf("unexpected overrides: %+v", req.AgentConfigs)
	}
	if !reflect.DeepEqual(req.AgentConfigs[0].Tools, []string{protocol.ToolCalculator, protocol.ToolReadFile}) {
		t.Fatalf("unexpected tools: %v", req.AgentConfigs[0].Tools)
	}

	settings := c.Settings()
	if settings.Prompt != "second prompt" || len(settings.AgentConfigs) != 0 {
		t.Fatalf("unexpected settings: %+v", settings)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	backend := testutil.StartBackend(t, testutil.BackendConfig{Run: testutil.SendAll(testutil.ScenarioFrames())})
	c := newController(t, backend.BaseURL, nil)

	c.Run()
	waitSettled(t, c)

	c.Reset()
	once := c.Snapshot()
	c.Reset()
	twice := c.Snapshot()
	if !reflect.DeepEqual(once, twice) {
		t.Fatalf("reset twice differs from once:\n%+v\n%+v", once, twice)
	}
	if !reflect.DeepEqual(once, pipeline.NewState(pipeline.DefaultAgents())) {
		t.Fatalf("expected pristine idle state, got %+v", once)
	}
}

func TestResetDuringRunReleasesTransport(t *testing.T) {
	gone := make(chan struct{})
	backend := testutil.StartBackend(t, testutil.BackendConfig{
		Run: func(ctx context.Context, w *testutil.FrameWriter) {
			w.Send(map[string]any{"type": "agent_start", "agentId": "router-1"})
			<-ctx.Done()
			close(gone)
		},
	})
	c := newController(t, backend.BaseURL, nil)

	c.Run()
	testutil.Eventually(t, 2*time.Second, 10*time.Millisecond, func() bool {
		router, _ := c.Snapshot().Agent("router-1")
		return router.Status == pipeline.AgentRunning
	}, "agent never started")

	c.Reset()
	if got := c.Snapshot(); got.Status != pipeline.StatusIdle || got.RunID != "" {
		t.Fatalf("expected idle state, got %s/%s", got.Status, got.RunID)
	}
	select {
	case <-gone:
	case <-time.After(2 * time.Second):
		t.Fatalf("transport was not released on reset")
	}
}

func TestSubscribeDeliversLatestState(t *testing.T) {
	release := make(chan struct{})
	backend := testutil.StartBackend(t, testutil.BackendConfig{
		Run: func(ctx context.Context, w *testutil.FrameWriter) {
			select {
			case <-release:
			case <-ctx.Done():
				return
			}
			for _, frame := range testutil.ScenarioFrames() {
				w.Send(frame)
			}
		},
	})
	c := newController(t, backend.BaseURL, nil)

	updates, unsubscribe := c.Subscribe()
	defer unsubscribe()
	if initial := <-updates; initial.Status != pipeline.StatusIdle {
		t.Fatalf("expected primed idle state, got %s", initial.Status)
	}

	c.Run()
	close(release)

	ctx := testutil.Context(t, 0)
	for {
		select {
		case state, ok := <-updates:
			if !ok {
				t.Fatalf("subscription closed early")
			}
			if state.Status == pipeline.StatusDone {
				return
			}
		case <-ctx.Done():
			t.Fatalf("never observed done state")
		}
	}
}

func TestCloseEndsSubscriptionsAndRuns(t *testing.T) {
	backend := testutil.StartBackend(t, testutil.BackendConfig{Run: testutil.Hold(nil, nil)})
	c := New(Options{BaseURL: backend.BaseURL, Settings: DefaultSettings()})

	updates, _ := c.Subscribe()
	c.Run()
	c.Close()

	for range updates {
	}
	if got := c.Snapshot(); got.Status != pipeline.StatusStopped || got.Error != "" {
		t.Fatalf("expected silent stop on close, got %s %q", got.Status, got.Error)
	}
	if id := c.Run(); id != "" {
		t.Fatalf("expected closed controller to refuse runs")
	}
}

func TestFailureMessage(t *testing.T) {
	cases := map[string]struct {
		err  error
		want string
	}{
		"aborted":      {err: transport.ErrAborted, want: ""},
		"stream ended": {err: io.EOF, want: MessageStreamEnded},
		"status":       {err: &transport.StatusError{StatusCode: 503, Detail: "busy"}, want: "backend returned HTTP 503: busy"},
		"interrupted":  {err: &transport.StreamError{Err: io.ErrUnexpectedEOF}, want: "stream interrupted: unexpected EOF"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			if got := failureMessage(tc.err); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}
