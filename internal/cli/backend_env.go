package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"agentstudio/internal/config"
	"agentstudio/internal/metrics"
	"agentstudio/internal/protocol"
	"agentstudio/internal/session"
)

// backendFlags are shared by commands that talk to the backend.
type backendFlags struct {
	configPath  *string
	metricsAddr *string
	logLevel    *string
	logFile     *string
	noColor     *bool
}

// addBackendFlags registers the shared flags on fs.
func addBackendFlags(fs *flag.FlagSet) backendFlags {
	return backendFlags{
		configPath:  fs.String("config", "", "Path to config file (default: search for .agentstudio/config.yml)"),
		metricsAddr: fs.String("metrics-addr", "", "Serve Prometheus metrics on this address"),
		logLevel:    fs.String("log-level", "warn", "Log level: debug|info|warn|error"),
		logFile:     fs.String("log-file", "", "Write logs to this file"),
		noColor:     fs.Bool("no-color", false, "Disable colored output"),
	}
}

// backendEnv holds what a backend-facing command needs while it runs.
type backendEnv struct {
	cfg        config.Config
	configPath string
	logger     *slog.Logger
	metrics    *metrics.Metrics
	server     *metricsServer
	closeLog   func() error
}

// openBackendEnv loads config, builds the logger and starts the metrics
// endpoint. Logs go to logOutput unless a log file is set.
func openBackendEnv(flags backendFlags, logOutput io.Writer) (*backendEnv, error) {
	cfg, path, err := loadConfig(*flags.configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	logger, closeLog, err := newLogger(*flags.logLevel, *flags.logFile, logOutput)
	if err != nil {
		return nil, err
	}
	m := metrics.New()
	server, err := startMetricsServer(*flags.metricsAddr, m, logger)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	if path != "" {
		logger.Debug("loaded config", "path", path)
	}
	return &backendEnv{
		cfg:        cfg,
		configPath: path,
		logger:     logger,
		metrics:    m,
		server:     server,
		closeLog:   closeLog,
	}, nil
}

// Close stops the metrics endpoint and closes the log file.
func (e *backendEnv) Close() {
	e.server.Shutdown()
	_ = e.closeLog()
}

// newSession builds a controller against the configured backend.
func (e *backendEnv) newSession(settings session.Settings) *session.Controller {
	return session.New(session.Options{
		BaseURL:  e.cfg.Backend.URL,
		Agents:   e.cfg.Agents(),
		Settings: settings,
		Logger:   e.logger,
		Metrics:  e.metrics,
	})
}

// applyProviderOverride switches the default provider, pointing it at the
// provider's usual local address.
func applyProviderOverride(settings session.Settings, value string) (session.Settings, error) {
	kind := protocol.ProviderKind(strings.ToLower(strings.TrimSpace(value)))
	if kind == "" {
		return settings, nil
	}
	if !kind.Known() {
		return settings, fmt.Errorf("unknown provider %q", value)
	}
	if settings.DefaultProvider.Type == kind {
		return settings, nil
	}
	settings.DefaultProvider = protocol.ProviderRef{Type: kind, BaseURL: kind.DefaultBaseURL()}
	return settings, nil
}
