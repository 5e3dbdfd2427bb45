package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"agentstudio/internal/metrics"
	"agentstudio/internal/pipeline"
	"agentstudio/internal/protocol"
	"agentstudio/internal/transport"
)

// MessageStreamEnded is recorded when the backend closes the stream
// before reporting completion.
const MessageStreamEnded = "stream ended before pipeline completed"

// StateSource is the read side of a session shared with views.
type StateSource interface {
	Snapshot() pipeline.State
	Subscribe() (<-chan pipeline.State, func())
}

// Options configures a Controller.
type Options struct {
	BaseURL  string
	Doer     transport.HTTPDoer
	Agents   []pipeline.Agent
	Settings Settings
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	// NewRunID overrides run id generation.
	NewRunID func() string
}

// attachment is one transport bound to the state machine. Frames read
// through an attachment are applied only while it is the active one.
type attachment struct {
	generation uint64
	runID      string
	cancel     context.CancelFunc
	reader     *transport.Reader
}

// Controller owns the run state and at most one transport.
type Controller struct {
	runURL   string
	doer     transport.HTTPDoer
	logger   *slog.Logger
	metrics  *metrics.Metrics
	newRunID func() string

	mu          sync.Mutex
	state       pipeline.State
	settings    Settings
	generation  uint64
	active      *attachment
	subscribers map[int]chan pipeline.State
	nextSub     int
	changed     chan struct{}
	closed      bool
	wg          sync.WaitGroup
}

var _ StateSource = (*Controller)(nil)

// New creates an idle controller.
func New(opts Options) *Controller {
	agents := opts.Agents
	if agents == nil {
		agents = pipeline.DefaultAgents()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	newRunID := opts.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	return &Controller{
		runURL:      strings.TrimRight(opts.BaseURL, "/") + "/api/run",
		doer:        opts.Doer,
		logger:      logger.With("component", "session"),
		metrics:     opts.Metrics,
		newRunID:    newRunID,
		state:       pipeline.NewState(agents),
		settings:    opts.Settings.Clone(),
		subscribers: map[int]chan pipeline.State{},
		changed:     make(chan struct{}),
	}
}

// Run starts a new run from the current settings and returns its id. Any
// previous transport is released first. The state is running on return;
// frames are read on a background goroutine.
func (c *Controller) Run() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ""
	}
	c.detachLocked(metrics.OutcomeSuperseded)

	c.generation++
	ctx, cancel := context.WithCancel(context.Background())
	a := &attachment{
		generation: c.generation,
		runID:      c.newRunID(),
		cancel:     cancel,
	}
	c.active = a
	req := c.settings.Request()
	c.setStateLocked(pipeline.Begin(c.state, a.runID))
	c.metrics.RunStarted()

	logger := c.logger.With("run_id", a.runID, "generation", a.generation)
	logger.Info("run started", "prompt_len", len(req.Prompt), "provider", req.DefaultProvider.Type, "overrides", len(req.AgentConfigs))

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.stream(ctx, a, req, logger)
	}()
	return a.runID
}

// Stop cancels the active run without recording an error.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.logger.Info("run stopped", "run_id", c.active.runID)
	}
	c.detachLocked(metrics.OutcomeStopped)
	c.setStateLocked(pipeline.Stop(c.state, ""))
}

// Reset cancels any active run and returns to idle.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked(metrics.OutcomeStopped)
	c.setStateLocked(pipeline.Reset(c.state))
}

// Close releases the transport, waits for the reader goroutine and closes
// every subscription. The controller cannot run again afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.detachLocked(metrics.OutcomeStopped)
	c.setStateLocked(pipeline.Stop(c.state, ""))
	c.closed = true
	for id, ch := range c.subscribers {
		close(ch)
		delete(c.subscribers, id)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// Snapshot returns a deep copy of the current state.
func (c *Controller) Snapshot() pipeline.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.Clone()
}

// Subscribe returns a channel that always holds the latest state. Slow
// readers see intermediate states coalesced. The channel is primed with
// the current state. Call the returned func to unsubscribe.
func (c *Controller) Subscribe() (<-chan pipeline.State, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan pipeline.State, 1)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subscribers[id] = ch
	ch <- c.state.Clone()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if existing, ok := c.subscribers[id]; ok {
				delete(c.subscribers, id)
				close(existing)
			}
		})
	}
}

// Wait blocks until no run is in flight and returns the state at that point.
func (c *Controller) Wait(ctx context.Context) (pipeline.State, error) {
	for {
		c.mu.Lock()
		if !c.state.Running() {
			state := c.state.Clone()
			c.mu.Unlock()
			return state, nil
		}
		changed := c.changed
		c.mu.Unlock()
		select {
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		case <-changed:
		}
	}
}

// Settings returns a copy of the current run settings.
func (c *Controller) Settings() Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.settings.Clone()
}

// SetPrompt sets the prompt for the next run.
func (c *Controller) SetPrompt(prompt string) {
	c.updateSettings(func(s Settings) Settings {
		s.Prompt = prompt
		return s
	})
}

// SetUseRealModels toggles real inference for the next run.
func (c *Controller) SetUseRealModels(enabled bool) {
	c.updateSettings(func(s Settings) Settings {
		s.UseRealModels = enabled
		return s
	})
}

// SetDefaultProvider sets the provider agents fall back to.
func (c *Controller) SetDefaultProvider(provider protocol.ProviderRef) {
	c.updateSettings(func(s Settings) Settings {
		s.DefaultProvider = provider
		return s
	})
}

// SetAgentConfig installs a per-agent override.
func (c *Controller) SetAgentConfig(cfg protocol.AgentConfig) {
	if cfg.AgentID == "" {
		return
	}
	c.updateSettings(func(s Settings) Settings {
		return s.withAgentConfig(cfg)
	})
}

// ClearAgentConfig removes the override for id.
func (c *Controller) ClearAgentConfig(id string) {
	c.updateSettings(func(s Settings) Settings {
		return s.withoutAgentConfig(id)
	})
}

func (c *Controller) updateSettings(fn func(Settings) Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = fn(c.settings.Clone())
}

// stream opens the transport and applies frames until the run ends or the
// attachment is superseded.
func (c *Controller) stream(ctx context.Context, a *attachment, req protocol.RunRequest, logger *slog.Logger) {
	reader, err := transport.Open(ctx, c.doer, c.runURL, req, logger)
	if err != nil {
		c.fail(a, err, logger)
		return
	}

	c.mu.Lock()
	if c.active != a {
		c.mu.Unlock()
		reader.Abort()
		return
	}
	a.reader = reader
	c.mu.Unlock()

	for {
		event, err := reader.Next()
		if err != nil {
			c.fail(a, err, logger)
			return
		}
		if !c.apply(a, event, logger) {
			reader.Abort()
			return
		}
	}
}

// apply feeds one frame to the state machine. It reports false once the
// attachment is no longer current or the run reached a terminal state.
func (c *Controller) apply(a *attachment, event protocol.Event, logger *slog.Logger) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != a {
		return false
	}
	next := pipeline.Apply(c.state, event)
	c.setStateLocked(next)
	if next.Running() {
		return true
	}
	outcome := metrics.OutcomeDone
	if next.Status == pipeline.StatusStopped {
		outcome = metrics.OutcomeFailed
		logger.Warn("backend reported pipeline error", "error", next.Error)
	} else {
		logger.Info("run finished", "total_tokens", next.TotalTokens, "total_ms", next.TotalMs)
	}
	c.detachLocked(outcome)
	return false
}

// fail resolves a transport error into a terminal state for the
// attachment, if it is still current.
func (c *Controller) fail(a *attachment, err error, logger *slog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != a {
		return
	}
	message := failureMessage(err)
	if message == "" {
		logger.Info("run aborted")
		c.detachLocked(metrics.OutcomeStopped)
	} else {
		logger.Warn("run failed", "error", message)
		c.detachLocked(metrics.OutcomeFailed)
	}
	c.setStateLocked(pipeline.Stop(c.state, message))
}

// failureMessage maps transport errors to the state error string. An
// empty string marks a deliberate cancellation.
func failureMessage(err error) string {
	switch {
	case transport.IsAborted(err):
		return ""
	case errors.Is(err, io.EOF):
		return MessageStreamEnded
	default:
		return err.Error()
	}
}

// detachLocked releases the active transport, if any, and records how its
// run ended.
func (c *Controller) detachLocked(outcome string) {
	a := c.active
	if a == nil {
		return
	}
	c.active = nil
	a.cancel()
	var stats transport.Stats
	if a.reader != nil {
		a.reader.Abort()
		stats = a.reader.Stats()
	}
	c.metrics.RunFinished(outcome, stats.Frames, stats.Dropped)
	c.metrics.Detached()
}

// setStateLocked stores the next state and notifies waiters and subscribers.
func (c *Controller) setStateLocked(next pipeline.State) {
	c.state = next
	close(c.changed)
	c.changed = make(chan struct{})
	for _, ch := range c.subscribers {
		publish(ch, next.Clone())
	}
}

// publish replaces any unread value in a capacity-one channel.
func publish(ch chan pipeline.State, state pipeline.State) {
	select {
	case ch <- state:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- state:
	default:
	}
}
