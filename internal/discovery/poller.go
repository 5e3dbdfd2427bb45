package discovery

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"agentstudio/internal/metrics"
	"agentstudio/internal/protocol"
)

// DefaultInterval is the time between polls.
const DefaultInterval = 10 * time.Second

// Info is the last known discovery result.
type Info struct {
	Providers map[string]bool
	Models    map[string][]string
	// Online is the backend's answer to the last successful status probe.
	Online bool
	// StatusAt is the time of the last successful status probe.
	StatusAt time.Time
	// UpdatedAt is the time of the last poll where every endpoint answered.
	UpdatedAt time.Time
	CheckedAt time.Time
}

// Reachable reports whether the latest poll reached the backend and found
// it online. A failed status probe leaves Online untouched but makes the
// backend unreachable until the next successful probe.
func (i Info) Reachable() bool {
	return i.Online && i.StatusAt.Equal(i.CheckedAt)
}

// ProviderUp reports whether the provider answered its last health check.
func (i Info) ProviderUp(kind protocol.ProviderKind) bool {
	if kind == protocol.ProviderSimulation {
		return true
	}
	return i.Providers[string(kind)]
}

// ModelsFor returns the models listed for a provider, sorted.
func (i Info) ModelsFor(kind protocol.ProviderKind) []string {
	models := append([]string(nil), i.Models[string(kind)]...)
	sort.Strings(models)
	return models
}

// Clone returns a deep copy.
func (i Info) Clone() Info {
	out := i
	if i.Providers != nil {
		out.Providers = make(map[string]bool, len(i.Providers))
		for kind, up := range i.Providers {
			out.Providers[kind] = up
		}
	}
	if i.Models != nil {
		out.Models = make(map[string][]string, len(i.Models))
		for kind, models := range i.Models {
			out.Models[kind] = append([]string(nil), models...)
		}
	}
	return out
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Interval time.Duration
	Logger   *slog.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// Poller refreshes discovery info on a fixed interval. Failed endpoints
// keep their previously known values.
type Poller struct {
	source   Source
	interval time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
	now      func() time.Time

	mu          sync.Mutex
	info        Info
	subscribers map[int]chan Info
	nextSub     int
	cancel      context.CancelFunc
	done        chan struct{}
}

// NewPoller creates a stopped poller.
func NewPoller(source Source, opts PollerOptions) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Poller{
		source:      source,
		interval:    interval,
		logger:      logger.With("component", "discovery"),
		metrics:     opts.Metrics,
		now:         now,
		subscribers: map[int]chan Info{},
	}
}

// Start polls immediately and then on every interval until Stop or ctx ends.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.cancel != nil {
		p.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done
	p.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			_ = p.Refresh(ctx)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop ends polling and waits for an in-flight poll to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Refresh queries every endpoint once. It returns the first failure, which
// callers may ignore: the merged info is updated either way.
func (p *Poller) Refresh(ctx context.Context) error {
	var (
		providers   map[string]bool
		models      map[string][]string
		status      protocol.StatusResponse
		providerErr error
		modelErr    error
		statusErr   error
	)
	var g errgroup.Group
	g.Go(func() error {
		providers, providerErr = p.source.Providers(ctx)
		return providerErr
	})
	g.Go(func() error {
		models, modelErr = p.source.Models(ctx)
		return modelErr
	})
	g.Go(func() error {
		status, statusErr = p.source.Status(ctx)
		return statusErr
	})
	err := g.Wait()

	now := p.now()
	p.mu.Lock()
	defer p.mu.Unlock()
	next := p.info.Clone()
	if providerErr == nil {
		next.Providers = providers
	} else {
		p.failed("providers", providerErr)
	}
	if modelErr == nil {
		next.Models = models
	} else {
		p.failed("models", modelErr)
	}
	if statusErr == nil {
		next.Online = status.Online()
		next.StatusAt = now
	} else {
		p.failed("status", statusErr)
	}
	next.CheckedAt = now
	if err == nil {
		next.UpdatedAt = now
	}
	p.info = next
	for _, ch := range p.subscribers {
		publish(ch, next.Clone())
	}
	return err
}

// Snapshot returns a copy of the last known info.
func (p *Poller) Snapshot() Info {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.info.Clone()
}

// Subscribe returns a channel holding the latest info, primed with the
// current value. Call the returned func to unsubscribe.
func (p *Poller) Subscribe() (<-chan Info, func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan Info, 1)
	id := p.nextSub
	p.nextSub++
	p.subscribers[id] = ch
	ch <- p.info.Clone()
	var once sync.Once
	return ch, func() {
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			delete(p.subscribers, id)
			close(ch)
		})
	}
}

func (p *Poller) failed(endpoint string, err error) {
	p.metrics.DiscoveryFailed(endpoint)
	p.logger.Debug("discovery request failed", "endpoint", endpoint, "error", err)
}

func publish(ch chan Info, info Info) {
	select {
	case ch <- info:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- info:
	default:
	}
}
