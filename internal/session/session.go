package session

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"

	"comment-scout/internal/browser"
	"comment-scout/internal/config"
	"comment-scout/internal/logging"
	"comment-scout/pkg/utils"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the current state
	ErrInvalidState = errors.New("invalid session state")
	// ErrNoBackend is returned when no configured engine could be launched
	ErrNoBackend = errors.New("no browser backend available")
)

// State is the lifecycle position of a Manager
type State int

const (
	StateUnstarted State = iota
	StateStarted
	StateAuthenticated
	StateUnauthenticated
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUnstarted:
		return "unstarted"
	case StateStarted:
		return "started"
	case StateAuthenticated:
		return "authenticated"
	case StateUnauthenticated:
		return "unauthenticated"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Options configures a Manager
type Options struct {
	// Engines are tried in order; later entries are fallbacks
	Engines       []string
	Launch        browser.LaunchOptions
	AuthStatePath string
	LoginURL      string
	// IgnoreStoredState starts a clean context even when an artifact exists,
	// so a manual login can replace it
	IgnoreStoredState bool
}

// OptionsFromConfig derives session options from application config
func OptionsFromConfig(cfg *config.Config) Options {
	engines := []string{cfg.Scraper.Engine}
	if fb := cfg.Scraper.FallbackEngine; fb != "" && fb != cfg.Scraper.Engine {
		engines = append(engines, fb)
	}

	return Options{
		Engines: engines,
		Launch: browser.LaunchOptions{
			Headless:   cfg.Scraper.Headless,
			UserAgent:  cfg.Scraper.UserAgent,
			Viewport:   browser.Viewport{Width: cfg.Scraper.ViewportWidth, Height: cfg.Scraper.ViewportHeight},
			ChromePath: cfg.Scraper.ChromePath,
		},
		AuthStatePath: cfg.Session.AuthStatePath,
		LoginURL:      cfg.Session.LoginURL,
	}
}

// RuntimeFactory builds the backend registered under name
type RuntimeFactory func(name string) (browser.Runtime, error)

// Manager owns the browser lifecycle for one run
type Manager struct {
	opts       Options
	newRuntime RuntimeFactory
	logger     logging.Logger

	mu      sync.Mutex
	state   State
	engine  string
	runtime browser.Runtime
	browser browser.Browser
	context browser.Context
}

// Option customizes a Manager
type Option func(*Manager)

// WithLogger sets the logger
func WithLogger(logger logging.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithRuntimeFactory replaces the backend registry
func WithRuntimeFactory(f RuntimeFactory) Option {
	return func(m *Manager) { m.newRuntime = f }
}

// New creates an unstarted Manager
func New(opts Options, options ...Option) *Manager {
	m := &Manager{opts: opts, state: StateUnstarted}
	for _, o := range options {
		o(m)
	}
	if m.logger == nil {
		m.logger = logging.GetGlobalLogger()
	}
	m.logger = m.logger.WithField("component", "session")
	if m.newRuntime == nil {
		logger := m.logger
		m.newRuntime = func(name string) (browser.Runtime, error) {
			return browser.NewRuntime(name, logger)
		}
	}
	return m
}

// State returns the current lifecycle state
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Engine returns the backend in use, empty before Start
func (m *Manager) Engine() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.engine
}

// Authenticated reports whether stored or fresh credentials are loaded
func (m *Manager) Authenticated() bool {
	return m.State() == StateAuthenticated
}

// HasStoredState reports whether an authentication artifact exists on disk
func (m *Manager) HasStoredState() bool {
	if m.opts.AuthStatePath == "" {
		return false
	}
	_, err := os.Stat(m.opts.AuthStatePath)
	return err == nil
}

// Start launches the first available engine and opens the browsing context,
// loading the stored authentication artifact when one exists.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateUnstarted {
		return utils.NewStateError("start from "+m.state.String(), ErrInvalidState)
	}

	if err := m.launch(ctx); err != nil {
		return err
	}
	m.state = StateStarted

	authenticated := false
	if !m.opts.IgnoreStoredState && m.HasStoredState() {
		c, err := m.browser.NewContext(ctx, browser.ContextOptions{StorageStatePath: m.opts.AuthStatePath})
		if err != nil {
			m.logger.Warn("Stored authentication state could not be loaded, starting clean", map[string]interface{}{
				"path":  m.opts.AuthStatePath,
				"error": err.Error(),
			})
		} else {
			m.context = c
			authenticated = true
		}
	}

	if m.context == nil {
		c, err := m.browser.NewContext(ctx, browser.ContextOptions{})
		if err != nil {
			m.releaseLocked()
			m.state = StateUnstarted
			return utils.NewBackendError(m.engine, fmt.Errorf("failed to create browsing context: %w", err))
		}
		m.context = c
	}

	if authenticated {
		m.state = StateAuthenticated
	} else {
		m.state = StateUnauthenticated
	}

	m.logger.Info("Session started", map[string]interface{}{
		"engine": m.engine,
		"state":  m.state.String(),
	})
	return nil
}

func (m *Manager) launch(ctx context.Context) error {
	var errs []error
	for i, name := range m.opts.Engines {
		rt, err := m.newRuntime(name)
		if err != nil {
			errs = append(errs, utils.NewBackendError(name, err))
			continue
		}

		b, err := rt.Launch(ctx, m.opts.Launch)
		if err != nil {
			errs = append(errs, utils.NewBackendError(name, err))
			if cerr := rt.Close(); cerr != nil {
				m.logger.Debug("Failed to release runtime after launch failure", map[string]interface{}{
					"engine": name,
					"error":  cerr.Error(),
				})
			}
			m.logger.Warn("Browser backend unavailable", map[string]interface{}{
				"engine": name,
				"error":  err.Error(),
			})
			continue
		}

		if i > 0 {
			m.logger.Warn("Running on fallback browser backend", map[string]interface{}{
				"preferred": m.opts.Engines[0],
				"engine":    name,
			})
		}
		m.runtime, m.browser, m.engine = rt, b, name
		return nil
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	return fmt.Errorf("%w: %w", ErrNoBackend, errors.Join(errs...))
}

// NewPage opens a page in the session's browsing context
func (m *Manager) NewPage(ctx context.Context) (browser.Page, error) {
	m.mu.Lock()
	c, state := m.context, m.state
	m.mu.Unlock()

	if c == nil || state == StateStopped {
		return nil, utils.NewStateError("new page from "+state.String(), ErrInvalidState)
	}
	return c.NewPage(ctx)
}

// ManualLogin opens the login surface and blocks until confirm yields or is
// closed, then saves the authentication artifact. Cancelling ctx abandons
// the wait without saving.
func (m *Manager) ManualLogin(ctx context.Context, confirm <-chan struct{}) error {
	m.mu.Lock()
	state, c := m.state, m.context
	m.mu.Unlock()

	if state != StateStarted && state != StateUnauthenticated {
		return utils.NewStateError("manual login from "+state.String(), ErrInvalidState)
	}

	page, err := c.NewPage(ctx)
	if err != nil {
		return fmt.Errorf("failed to open login page: %w", err)
	}
	defer func() {
		if err := page.Close(); err != nil {
			m.logger.Warn("Failed to close login page", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	if err := page.Goto(ctx, m.opts.LoginURL); err != nil {
		return utils.NewNavigationError(m.opts.LoginURL, err)
	}

	m.logger.Info("Waiting for manual login confirmation", map[string]interface{}{
		"url": m.opts.LoginURL,
	})

	select {
	case <-confirm:
	case <-ctx.Done():
		return ctx.Err()
	}

	if err := c.SaveState(ctx, m.opts.AuthStatePath); err != nil {
		return utils.NewPersistenceError(m.opts.AuthStatePath, err)
	}

	m.mu.Lock()
	if m.state == StateStarted || m.state == StateUnauthenticated {
		m.state = StateAuthenticated
	}
	m.mu.Unlock()

	m.logger.Info("Authentication state saved", map[string]interface{}{
		"path": m.opts.AuthStatePath,
	})
	return nil
}

// Stop releases context, browser and runtime in that order. Every release
// is attempted; the failures are joined. Stop is safe to call repeatedly.
func (m *Manager) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateStopped {
		return nil
	}
	err := m.releaseLocked()
	m.state = StateStopped

	if err != nil {
		m.logger.Error("Session teardown incomplete", map[string]interface{}{
			"error": err.Error(),
		})
	} else {
		m.logger.Info("Session stopped", map[string]interface{}{})
	}
	return err
}

func (m *Manager) releaseLocked() error {
	var errs []error
	if m.context != nil {
		if err := m.context.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close context: %w", err))
		}
		m.context = nil
	}
	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
		m.browser = nil
	}
	if m.runtime != nil {
		if err := m.runtime.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close runtime: %w", err))
		}
		m.runtime = nil
	}
	return errors.Join(errs...)
}
