// Package app wires configuration, logging, the game session, the
// diagnostics HTTP server, and the optional mission terminal into one
// runnable unit with graceful shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"sensorquest/internal/config"
	"sensorquest/internal/game"
	"sensorquest/internal/httpapi"
	"sensorquest/internal/logging"
	"sensorquest/internal/metrics"
	"sensorquest/internal/mission"
	"sensorquest/internal/platform"
	"sensorquest/internal/tui"
)

// Application is a fully wired sensorquest instance.
type Application struct {
	cfg      config.Config
	logs     *logging.DualLogger
	session  *game.Session
	server   *httpapi.Server
	headless bool
	ready    bool
}

// New prepares the application: logger, mission catalog, simulated
// platform for the configured scenario, session, and HTTP server. Headless
// instances skip the terminal UI and only serve HTTP.
func New(cfg config.Config, headless bool) (*Application, error) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		return nil, errors.New("listen address cannot be empty")
	}
	logPath := filepath.Clean(cfg.LogFilePath)
	if err := os.MkdirAll(filepath.Dir(logPath), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	// The terminal UI owns stdout, so console logs go to stderr; the file
	// sink keeps the full history either way.
	logs, err := logging.New(os.Stderr, logPath)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger := logs.Logger

	catalog, err := mission.LoadCatalog()
	if err != nil {
		_ = logs.Close()
		return nil, fmt.Errorf("load mission catalog: %w", err)
	}

	scenario, err := platform.Scenario(cfg.Scenario)
	if err != nil {
		_ = logs.Close()
		return nil, err
	}
	device := platform.NewSimulated(scenario)

	m := metrics.New()
	session := game.New(device, catalog, logger, m)
	session.SetMicWindow(cfg.MicWindowSize)

	a := &Application{cfg: cfg, logs: logs, session: session, headless: headless}
	router := httpapi.NewRouter(logger, session, m, func() bool { return a.ready })
	a.server = httpapi.NewServer(cfg.ListenAddress, logger, os.Stderr, router, cfg.HTTPReadTimeout, cfg.HTTPWriteTimeout)

	logger.Info("app_wired",
		slog.String("scenario", cfg.Scenario),
		slog.Int("missions", catalog.Len()),
		slog.Bool("headless", headless),
	)
	return a, nil
}

// Logger exposes the configured slog logger so main can emit structured
// logs after initialization.
func (a *Application) Logger() *slog.Logger {
	return a.logs.Logger
}

// Run blocks until the context is cancelled, the HTTP server fails, or the
// terminal UI exits.
func (a *Application) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := a.logs.Logger

	httpCh := make(chan error, 1)
	go func() {
		a.ready = true
		err := a.server.Start()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpCh <- err
			return
		}
		httpCh <- nil
	}()

	var uiCh chan error
	if !a.headless {
		uiCh = make(chan error, 1)
		go func() {
			program := tea.NewProgram(tui.New(a.session))
			_, err := program.Run()
			uiCh <- err
		}()
	}

	var httpErr error
	for {
		select {
		case err := <-httpCh:
			httpCh = nil
			if err != nil {
				logger.Error("http_server_error", slog.Any("err", err))
				httpErr = err
			}
			cancel()
		case err := <-uiCh:
			uiCh = nil
			if err != nil {
				logger.Error("terminal_ui_error", slog.Any("err", err))
			} else {
				logger.Info("terminal_ui_closed")
			}
			cancel()
		case <-ctx.Done():
			a.ready = false
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
			if err := a.server.Stop(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("server_shutdown_failed", slog.Any("err", err))
				if httpErr == nil {
					httpErr = fmt.Errorf("shutdown: %w", err)
				}
			}
			shutdownCancel()
			if httpCh != nil {
				if err := <-httpCh; err != nil && httpErr == nil {
					httpErr = err
				}
			}
			logger.Info("shutdown_complete")
			return httpErr
		}
	}
}

// Close releases the session's sensor handles and the log file.
func (a *Application) Close() error {
	if a.session != nil {
		if err := a.session.Close(); err != nil {
			return err
		}
		a.session = nil
	}
	if a.logs == nil {
		return nil
	}
	err := a.logs.Close()
	a.logs = nil
	return err
}
