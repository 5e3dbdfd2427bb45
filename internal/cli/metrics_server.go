package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"agentstudio/internal/metrics"
)

// metricsServer exposes the run metrics over HTTP while a command runs.
type metricsServer struct {
	server   *http.Server
	listener net.Listener
}

// startMetricsServer serves /metrics on addr. An empty addr disables it
// and returns a nil server.
func startMetricsServer(addr string, m *metrics.Metrics, logger *slog.Logger) (*metricsServer, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, nil
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Warn("metrics server stopped", "error", err)
		}
	}()
	logger.Info("serving metrics", "addr", listener.Addr().String())
	return &metricsServer{server: server, listener: listener}, nil
}

// Addr returns the bound address.
func (s *metricsServer) Addr() string {
	if s == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Shutdown stops the server.
func (s *metricsServer) Shutdown() {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = s.server.Shutdown(ctx)
}
