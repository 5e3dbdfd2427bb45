package transport

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"

	"agentstudio/internal/protocol"
)

const (
	initialBufferSize = 64 * 1024
	maxFrameSize      = 4 * 1024 * 1024
	maxErrorBodySize  = 4096
)

// HTTPDoer abstracts HTTP clients used by the transport.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Stats counts frames seen by a reader.
type Stats struct {
	Frames  int
	Dropped int
}

// Reader yields protocol events from one streamed run response.
type Reader struct {
	body    io.ReadCloser
	scanner *bufio.Scanner
	cancel  context.CancelFunc
	logger  *slog.Logger

	aborted   atomic.Bool
	closeOnce sync.Once
	frames    atomic.Int64
	dropped   atomic.Int64
}

// Open posts the run request and returns a reader over the response stream.
// The returned reader must be closed with Abort once the caller is done.
func Open(ctx context.Context, doer HTTPDoer, url string, req protocol.RunRequest, logger *slog.Logger) (*Reader, error) {
	if doer == nil {
		doer = http.DefaultClient
	}
	if logger == nil {
		logger = discardLogger()
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal run request: %w", err)
	}
	ctx, cancel := context.WithCancel(ctx)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Cache-Control", "no-cache")

	resp, err := doer.Do(httpReq)
	if err != nil {
		cancelled := ctx.Err() != nil
		cancel()
		if cancelled {
			return nil, ErrAborted
		}
		return nil, &ConnectError{URL: url, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		resp.Body.Close()
		cancel()
		return nil, &StatusError{StatusCode: resp.StatusCode, Detail: decodeStatusDetail(body)}
	}

	reader := &Reader{
		body:   resp.Body,
		cancel: cancel,
		logger: logger,
	}
	reader.scanner = newFrameScanner(resp.Body, maxFrameSize, reader.dropOversized)
	return reader, nil
}

// newFrameScanner scans complete lines from body, skipping lines longer
// than limit.
func newFrameScanner(body io.Reader, limit int, onOversize func()) *bufio.Scanner {
	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, min(initialBufferSize, limit+1)), 2*limit+1)
	scanner.Split(newLineSplitter(limit, onOversize).Split)
	return scanner
}

// Next blocks until the next event is decoded. It returns io.EOF when the
// backend closes the stream and ErrAborted after Abort.
func (r *Reader) Next() (protocol.Event, error) {
	for {
		if r.aborted.Load() {
			return protocol.Event{}, ErrAborted
		}
		if !r.scanner.Scan() {
			if r.aborted.Load() {
				return protocol.Event{}, ErrAborted
			}
			err := r.scanner.Err()
			r.release()
			if err == nil {
				return protocol.Event{}, io.EOF
			}
			return protocol.Event{}, &StreamError{Err: err}
		}
		line := r.scanner.Text()
		if line == "" {
			continue
		}
		event, ok := protocol.DecodeFrame(line)
		if !ok {
			r.dropped.Add(1)
			r.logger.Debug("dropped frame", "line", truncate(line, 120))
			continue
		}
		r.frames.Add(1)
		return event, nil
	}
}

// Abort stops future reads and releases the response body. Safe to call
// more than once and from another goroutine than Next.
func (r *Reader) Abort() {
	if r == nil {
		return
	}
	r.aborted.Store(true)
	r.release()
}

// Aborted reports whether Abort has been called.
func (r *Reader) Aborted() bool {
	return r != nil && r.aborted.Load()
}

// Stats returns frame counters for the reader.
func (r *Reader) Stats() Stats {
	return Stats{Frames: int(r.frames.Load()), Dropped: int(r.dropped.Load())}
}

func (r *Reader) dropOversized() {
	r.dropped.Add(1)
	r.logger.Debug("dropped oversized frame", "limit", maxFrameSize)
}

func (r *Reader) release() {
	r.closeOnce.Do(func() {
		r.cancel()
		_ = r.body.Close()
	})
}

// IsAborted reports whether err marks a deliberate cancellation.
func IsAborted(err error) bool {
	return errors.Is(err, ErrAborted)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func truncate(value string, limit int) string {
	if len(value) <= limit {
		return value
	}
	return value[:limit] + "..."
}
