package testutil

import (
	"context"
	"testing"
	"time"
)

const (
	// DefaultTimeout bounds how long a test waits on a run or a poll.
	DefaultTimeout = 5 * time.Second
	// DefaultInterval is how often Eventually re-checks its condition.
	DefaultInterval = 10 * time.Millisecond
)

// Context returns a context cancelled when the test ends or timeout
// elapses, whichever comes first. The test deadline wins when closer.
func Context(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if deadline, ok := t.Deadline(); ok {
		if remaining := time.Until(deadline) - time.Second; remaining > 0 && remaining < timeout {
			timeout = remaining
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// Eventually polls fn until it returns true and fails the test with msg
// when timeout elapses first. Zero durations take the package defaults.
func Eventually(t testing.TB, timeout, interval time.Duration, fn func() bool, msg string) {
	t.Helper()
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for !fn() {
		select {
		case <-deadline.C:
			if msg == "" {
				msg = "condition not met before timeout"
			}
			t.Fatalf("%s", msg)
		case <-ticker.C:
		}
	}
}
