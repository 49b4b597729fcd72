package browser

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dinehall/internal/config"
	"dinehall/internal/logging"
	"dinehall/internal/retry"
	"dinehall/internal/services"
)

// Manager owns the lifecycle of the single browser session used by a run.
type Manager struct {
	launcher Launcher
	opts     LaunchOptions
	attempts int
	backoff  time.Duration
	sleep    func(context.Context, time.Duration)
	logger   *slog.Logger
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithLauncher replaces the Chrome launcher.
func WithLauncher(l Launcher) ManagerOption {
	return func(m *Manager) { m.launcher = l }
}

// WithSleep replaces the backoff sleep, mainly for tests.
func WithSleep(fn func(context.Context, time.Duration)) ManagerOption {
	return func(m *Manager) { m.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) { m.logger = logger }
}

// NewManager builds a Manager from browser configuration.
func NewManager(cfg *config.Config, opts ...ManagerOption) *Manager {
	m := &Manager{
		launcher: ChromeLauncher{},
		opts: LaunchOptions{
			Headless:     cfg.Browser.Headless,
			ExecPath:     cfg.Browser.ChromePath,
			UserAgent:    cfg.Browser.UserAgent,
			WindowWidth:  cfg.Browser.WindowWidth,
			WindowHeight: cfg.Browser.WindowHeight,
			WaitTimeout:  cfg.WaitTimeout(),
			ProbeTimeout: time.Duration(cfg.Browser.ProbeTimeoutSeconds) * time.Second,
		},
		attempts: cfg.Browser.LaunchAttempts,
		backoff:  time.Duration(cfg.Browser.LaunchBackoffSeconds) * time.Second,
		sleep:    retry.SleepContext,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.attempts <= 0 {
		m.attempts = 1
	}
	m.logger = logging.NewComponentLogger(m.logger, "browser")
	return m
}

// Create launches a browser, trying up to the configured attempt budget with
// a fixed backoff between tries. Exhaustion returns an error wrapping
// services.ErrSessionInit.
func (m *Manager) Create(ctx context.Context, headless bool) (Session, error) {
	m.opts.Headless = headless
	var lastErr error
	for attempt := 1; attempt <= m.attempts; attempt++ {
		session, err := m.launcher.Launch(ctx, m.opts)
		if err == nil {
			m.logger.Info("browser session started",
				logging.Attempt(attempt),
				logging.Bool("headless", headless),
				logging.Event("session_started"),
			)
			return session, nil
		}
		lastErr = err
		logging.WarnWithContext(m.logger, "browser launch failed", "session_launch_failed",
			logging.Attempt(attempt),
			logging.Int("max_attempts", m.attempts),
			logging.Error(err),
			logging.Hint("check browser.chrome_path and that Chrome can start on this host"),
		)
		if ctx.Err() != nil {
			break
		}
		if attempt < m.attempts {
			m.sleep(ctx, m.backoff)
		}
	}
	return nil, services.Wrap(services.ErrSessionInit, "browser", "create",
		fmt.Sprintf("launch failed after %d attempts", m.attempts), lastErr)
}

// IsAlive reports whether session still answers a liveness probe. A nil
// session is not alive.
func (m *Manager) IsAlive(ctx context.Context, session Session) bool {
	if session == nil {
		return false
	}
	return session.Alive(ctx)
}

// Restart quits session on a best-effort basis and creates a replacement.
// The old handle must not be used afterwards. Failure wraps
// services.ErrRestart.
func (m *Manager) Restart(ctx context.Context, session Session) (Session, error) {
	m.Close(session)
	m.logger.Info("restarting browser session", logging.Event("session_restart"))
	next, err := m.Create(ctx, m.opts.Headless)
	if err != nil {
		return nil, services.Wrap(services.ErrRestart, "browser", "restart", "", err)
	}
	return next, nil
}

// Close quits session, swallowing errors so cleanup never masks the failure
// that led to it.
func (m *Manager) Close(session Session) {
	if session == nil {
		return
	}
	if err := session.Close(); err != nil {
		m.logger.Debug("browser close failed", logging.Error(err))
	}
}
