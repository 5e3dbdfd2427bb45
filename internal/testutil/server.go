package testutil

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"agentstudio/internal/protocol"
)

// RunScript streams frames for one POST /api/run request.
type RunScript func(ctx context.Context, w *FrameWriter)

// BackendConfig wires responses for StartBackend.
type BackendConfig struct {
	Run       RunScript
	Providers map[string]bool
	Models    map[string][]string
}

// Backend is an in-memory stand-in for the pipeline backend.
type Backend struct {
	BaseURL string
	Close   func()

	mu        sync.Mutex
	cfg       BackendConfig
	requests  []protocol.RunRequest
	offline   atomic.Bool
	runCalls  atomic.Int64
	discovery atomic.Int64
}

// StartBackend launches an HTTP test server exposing the run and discovery endpoints.
func StartBackend(t *testing.T, cfg BackendConfig) *Backend {
	t.Helper()
	backend := &Backend{cfg: cfg}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/run", backend.handleRun)
	mux.HandleFunc("/api/providers", backend.handleProviders)
	mux.HandleFunc("/api/models", backend.handleModels)
	mux.HandleFunc("/api/status", backend.handleStatus)
	server := httptest.NewServer(mux)
	backend.BaseURL = server.URL
	backend.Close = server.Close
	t.Cleanup(server.Close)
	return backend
}

// SetRun replaces the script used for subsequent runs.
func (b *Backend) SetRun(script RunScript) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Run = script
}

// SetOffline makes discovery endpoints fail with 503.
func (b *Backend) SetOffline(offline bool) {
	b.offline.Store(offline)
}

// SetProviders replaces the providers payload.
func (b *Backend) SetProviders(providers map[string]bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cfg.Providers = providers
}

// Requests returns the run requests received so far.
func (b *Backend) Requests() []protocol.RunRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]protocol.RunRequest, len(b.requests))
	copy(out, b.requests)
	return out
}

// RunCalls returns the number of run requests received.
func (b *Backend) RunCalls() int {
	return int(b.runCalls.Load())
}

// DiscoveryCalls returns the number of discovery requests received.
func (b *Backend) DiscoveryCalls() int {
	return int(b.discovery.Load())
}

func (b *Backend) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req protocol.RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"detail":"invalid body"}`, http.StatusUnprocessableEntity)
		return
	}
	b.runCalls.Add(1)
	b.mu.Lock()
	b.requests = append(b.requests, req)
	script := b.cfg.Run
	b.mu.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	frames := &FrameWriter{w: w}
	frames.flush()
	if script != nil {
		script(r.Context(), frames)
	}
}

func (b *Backend) handleProviders(w http.ResponseWriter, r *http.Request) {
	b.discovery.Add(1)
	if b.offline.Load() {
		http.Error(w, "offline", http.StatusServiceUnavailable)
		return
	}
	b.mu.Lock()
	providers := b.cfg.Providers
	b.mu.Unlock()
	writeJSON(w, protocol.ProvidersResponse{Providers: providers})
}

func (b *Backend) handleModels(w http.ResponseWriter, r *http.Request) {
	b.discovery.Add(1)
	if b.offline.Load() {
		http.Error(w, "offline", http.StatusServiceUnavailable)
		return
	}
	b.mu.Lock()
	models := b.cfg.Models
	b.mu.Unlock()
	writeJSON(w, protocol.ModelsResponse{Models: models})
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	b.discovery.Add(1)
	if b.offline.Load() {
		http.Error(w, "offline", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, protocol.StatusResponse{Status: "online", Backend: "test"})
}

func writeJSON(w http.ResponseWriter, value any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(value)
}

// FrameWriter writes SSE records and flushes after each write.
type FrameWriter struct {
	w  http.ResponseWriter
	mu sync.Mutex
}

// Send writes one "data: <json>" record.
func (f *FrameWriter) Send(event map[string]any) {
	data, err := json.Marshal(event)
	if err != nil {
		panic(fmt.Sprintf("marshal frame: %v", err))
	}
	f.Raw("data: " + string(data) + "\n\n")
}

// Raw writes bytes verbatim, allowing split or malformed frames.
func (f *FrameWriter) Raw(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, _ = f.w.Write([]byte(text))
	f.flush()
}

func (f *FrameWriter) flush() {
	if flusher, ok := f.w.(http.Flusher); ok {
		flusher.Flush()
	}
}

// ScenarioFrames returns the router-1 end-to-end frame sequence.
func ScenarioFrames() []map[string]any {
	return []map[string]any{
		{"type": "agent_start", "agentId": "router-1", "provider": "simulation", "label": "Router"},
		{"type": "agent_token", "agentId": "router-1", "token": "Hi", "totalTokens": 1, "tokensPerSec": 5},
		{"type": "agent_done", "agentId": "router-1", "totalTokens": 1, "tokensPerSec": 5, "latencyMs": 120, "vramGb": 2.1, "provider": "simulation"},
		{"type": "pipeline_done", "totalPipelineTokens": 1, "totalPipelineMs": 120},
	}
}

// SendAll returns a script that streams frames and closes the stream.
func SendAll(frames []map[string]any) RunScript {
	return func(_ context.Context, w *FrameWriter) {
		for _, frame := range frames {
			w.Send(frame)
		}
	}
}

// Hold returns a script that streams frames and then keeps the stream open
// until the client disconnects or release is closed.
func Hold(frames []map[string]any, release <-chan struct{}) RunScript {
	return func(ctx context.Context, w *FrameWriter) {
		for _, frame := range frames {
			w.Send(frame)
		}
		select {
		case <-ctx.Done():
		case <-release:
		}
	}
}
