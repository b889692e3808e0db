package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"comment-scout/internal/browser"
	"comment-scout/internal/browser/browsertest"
	"comment-scout/internal/logging"
	"comment-scout/internal/logging/adapters"
	"comment-scout/pkg/utils"
)

const loginURL = "https://www.douyin.com/"

func newManager(t *testing.T, authPath string, runtimes ...*browsertest.Runtime) (*Manager, *adapters.MemoryAdapter) {
	t.Helper()
	logger, mem := logging.NewMemoryLogger()
	engines := make([]string, 0, len(runtimes))
	for _, rt := range runtimes {
		engines = append(engines, rt.EngineName)
	}
	m := New(Options{
		Engines:       engines,
		Launch:        browser.LaunchOptions{Viewport: browser.Viewport{Width: 1920, Height: 1080}},
		AuthStatePath: authPath,
		LoginURL:      loginURL,
	}, WithLogger(logger), WithRuntimeFactory(browsertest.Factory(runtimes...)))
	return m, mem
}

func writeState(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, browser.WriteState(path, &browser.State{Engine: "rod", SavedAt: time.Now()}))
}

func TestStartWithoutStoredState(t *testing.T) {
	rt := browsertest.New("rod")
	m, _ := newManager(t, filepath.Join(t.TempDir(), "auth.json"), rt)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, "rod", m.Engine())
	assert.False(t, m.Authenticated())

	require.NotNil(t, rt.LaunchOptions())
	assert.Equal(t, 1920, rt.LaunchOptions().Viewport.Width)
	assert.Equal(t, []browser.ContextOptions{{}}, rt.ContextOptions())
}

func TestStartLoadsStoredState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	writeState(t, path)

	rt := browsertest.New("rod")
	m, _ := newManager(t, path, rt)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, StateAuthenticated, m.State())
	assert.Equal(t, []browser.ContextOptions{{StorageStatePath: path}}, rt.ContextOptions())
}

func TestStartIgnoringStoredStateAllowsRelogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	writeState(t, path)

	rt := browsertest.New("rod").Route(loginURL, &browsertest.Script{})
	m, _ := newManager(t, path, rt)
	m.opts.IgnoreStoredState = true

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Equal(t, []browser.ContextOptions{{}}, rt.ContextOptions())

	confirm := make(chan struct{})
	close(confirm)
	require.NoError(t, m.ManualLogin(context.Background(), confirm))
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestStartWithCorruptStateStartsClean(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o600))

	rt := browsertest.New("rod")
	m, mem := newManager(t, path, rt)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.Len(t, rt.ContextOptions(), 2)
	assert.Equal(t, 1, mem.Count(logging.WarnLevel))
}

func TestStartFallsBackToSecondaryEngine(t *testing.T) {
	primary := browsertest.New("rod")
	primary.LaunchErr = errors.New("chrome not found")
	secondary := browsertest.New("chromedp")

	m, mem := newManager(t, filepath.Join(t.TempDir(), "auth.json"), primary, secondary)

	require.NoError(t, m.Start(context.Background()))
	assert.Equal(t, "chromedp", m.Engine())

	closed, _, _ := primary.Closed()
	assert.Equal(t, 1, closed, "failed runtime is released")

	var degraded bool
	for _, e := range mem.Entries() {
		if e.Message == "Running on fallback browser backend" {
			degraded = true
		}
	}
	assert.True(t, degraded)
}

func TestStartNoBackend(t *testing.T) {
	primary := browsertest.New("rod")
	primary.LaunchErr = errors.New("boom")

	m, _ := newManager(t, filepath.Join(t.TempDir(), "auth.json"), primary)
	m.opts.Engines = append(m.opts.Engines, "missing")

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoBackend))
	assert.Equal(t, utils.KindResource, utils.KindOf(err))
	assert.Equal(t, StateUnstarted, m.State())
}

func TestStartTwiceIsInvalid(t *testing.T) {
	m, _ := newManager(t, filepath.Join(t.TempDir(), "auth.json"), browsertest.New("rod"))
	require.NoError(t, m.Start(context.Background()))

	err := m.Start(context.Background())
	assert.True(t, errors.Is(err, ErrInvalidState))
	assert.Equal(t, utils.KindState, utils.KindOf(err))
}

func TestManualLogin(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "auth.json")
	rt := browsertest.New("rod").Route(loginURL, &browsertest.Script{Title: "抖音"})
	m, _ := newManager(t, path, rt)
	require.NoError(t, m.Start(context.Background()))

	confirm := make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- m.ManualLogin(context.Background(), confirm) }()

	close(confirm)
	require.NoError(t, <-done)

	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.HasStoredState())

	pages := rt.Pages()
	require.Len(t, pages, 1)
	assert.Equal(t, []string{loginURL}, pages[0].Visited())
	assert.True(t, pages[0].Closed())
}

func TestManualLoginCancelled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	rt := browsertest.New("rod").Route(loginURL, &browsertest.Script{})
	m, _ := newManager(t, path, rt)
	require.NoError(t, m.Start(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := m.ManualLogin(ctx, make(chan struct{}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateUnauthenticated, m.State())
	assert.False(t, m.HasStoredState())
	assert.Zero(t, rt.OpenPages())
}

func TestManualLoginInvalidStates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "auth.json")
	writeState(t, path)

	m, _ := newManager(t, path, browsertest.New("rod"))
	assert.ErrorIs(t, m.ManualLogin(context.Background(), nil), ErrInvalidState)

	require.NoError(t, m.Start(context.Background()))
	require.Equal(t, StateAuthenticated, m.State())
	assert.ErrorIs(t, m.ManualLogin(context.Background(), nil), ErrInvalidState)

	require.NoError(t, m.Stop())
	assert.ErrorIs(t, m.ManualLogin(context.Background(), nil), ErrInvalidState)
}

func TestStopReleasesEverythingDespiteFailures(t *testing.T) {
	rt := browsertest.New("rod")
	rt.ContextCloseErr = errors.New("context gone")
	rt.BrowserCloseErr = errors.New("browser gone")

	m, mem := newManager(t, filepath.Join(t.TempDir(), "auth.json"), rt)
	require.NoError(t, m.Start(context.Background()))

	err := m.Stop()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "context gone")
	assert.Contains(t, err.Error(), "browser gone")

	runtime, browserClosed, contexts := rt.Closed()
	assert.Equal(t, 1, runtime)
	assert.Equal(t, 1, browserClosed)
	assert.Equal(t, 1, contexts)
	assert.Equal(t, StateStopped, m.State())
	assert.Equal(t, 1, mem.Count(logging.ErrorLevel))

	// second stop is a no-op
	require.NoError(t, m.Stop())
	runtime, _, _ = rt.Closed()
	assert.Equal(t, 1, runtime)
}

func TestStopBeforeStart(t *testing.T) {
	m, _ := newManager(t, filepath.Join(t.TempDir(), "auth.json"), browsertest.New("rod"))
	require.NoError(t, m.Stop())
	assert.Equal(t, StateStopped, m.State())

	_, err := m.NewPage(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)
}
