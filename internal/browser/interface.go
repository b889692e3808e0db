package browser

import (
	"context"
	"errors"
)

// LoadMode selects how long WaitForLoad blocks after navigation
type LoadMode int

const (
	LoadDOMContentLoaded LoadMode = iota
	LoadComplete
	LoadNetworkIdle
)

func (m LoadMode) String() string {
	switch m {
	case LoadDOMContentLoaded:
		return "domcontentloaded"
	case LoadComplete:
		return "load"
	case LoadNetworkIdle:
		return "networkidle"
	default:
		return "unknown"
	}
}

// ErrStateUnreadable is returned by Browser.NewContext when a storage state
// artifact exists but cannot be decoded or applied
var ErrStateUnreadable = errors.New("storage state unreadable")

// Viewport is the fixed window size applied to every page
type Viewport struct {
	Width  int
	Height int
}

// LaunchOptions configures a browser process
type LaunchOptions struct {
	Headless   bool
	UserAgent  string
	Viewport   Viewport
	ChromePath string
	// Flags are extra command-line switches; an empty value means a bare switch
	Flags map[string]string
}

// ContextOptions configures an isolated browsing context
type ContextOptions struct {
	// StorageStatePath, when set, is loaded into the new context
	StorageStatePath string
}

// Runtime is an automation backend able to launch browsers
type Runtime interface {
	Name() string
	Launch(ctx context.Context, opts LaunchOptions) (Browser, error)
	Close() error
}

// Browser is a launched browser process
type Browser interface {
	NewContext(ctx context.Context, opts ContextOptions) (Context, error)
	Close() error
}

// Context is an isolated cookie jar shared by its pages
type Context interface {
	NewPage(ctx context.Context) (Page, error)
	SaveState(ctx context.Context, path string) error
	Close() error
}

// Page is a single tab
type Page interface {
	Goto(ctx context.Context, url string) error
	WaitForLoad(ctx context.Context, mode LoadMode) error
	// QueryAll returns every element currently matching sel without waiting
	QueryAll(ctx context.Context, sel Selector) ([]Element, error)
	ScrollBy(ctx context.Context, dx, dy int) error
	InjectScript(ctx context.Context, src string) error
	Title(ctx context.Context) (string, error)
	HTML(ctx context.Context) (string, error)
	Close() error
}

// Element is a handle to a DOM node captured by QueryAll
type Element interface {
	Text(ctx context.Context) (string, error)
	// Attribute reports whether the attribute is present
	Attribute(ctx context.Context, name string) (string, bool, error)
	Visible(ctx context.Context) (bool, error)
	Click(ctx context.Context) error
}

// MaskWebdriverScript hides navigator.webdriver from page scripts
const MaskWebdriverScript = `Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
window.chrome = window.chrome || { runtime: {} };`

// DefaultFlags returns the switches every launch carries
func DefaultFlags() map[string]string {
	return map[string]string{
		"disable-blink-features": "AutomationControlled",
		"disable-dev-shm-usage":  "",
		"disable-gpu":            "",
	}
}

func mergeFlags(extra map[string]string) map[string]string {
	flags := DefaultFlags()
	for k, v := range extra {
		flags[k] = v
	}
	return flags
}
