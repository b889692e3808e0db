// Package browsertest provides a scripted in-memory browser backend.
package browsertest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"comment-scout/internal/browser"
)

// Node is a fake DOM element
type Node struct {
	Text     string
	Attrs    map[string]string
	Hidden   bool
	ClickErr error

	mu     sync.Mutex
	clicks int
}

// Clicks returns how many times the node was clicked
func (n *Node) Clicks() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.clicks
}

// Link is shorthand for an anchor node
func Link(href string) *Node {
	return &Node{Attrs: map[string]string{"href": href}}
}

// Script describes what a URL serves
type Script struct {
	GotoErr  error
	LoadErr  error
	QueryErr error
	Title    string
	HTML     string
	// Query returns the nodes matching sel after scrolls scroll calls
	Query func(sel browser.Selector, scrolls int) []*Node
}

// Runtime is a fake browser.Runtime. Configure exported fields before use.
type Runtime struct {
	EngineName      string
	LaunchErr       error
	StateErr        error
	SaveErr         error
	PageErr         error
	RuntimeCloseErr error
	BrowserCloseErr error
	ContextCloseErr error

	Routes   map[string]*Script
	Fallback *Script

	mu             sync.Mutex
	launchOpts     *browser.LaunchOptions
	contextOpts    []browser.ContextOptions
	pages          []*Page
	runtimeClosed  int
	browserClosed  int
	contextsClosed int
}

// New returns a runtime reporting name
func New(name string) *Runtime {
	return &Runtime{EngineName: name, Routes: map[string]*Script{}}
}

// Route registers the script served at url
func (r *Runtime) Route(url string, s *Script) *Runtime {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Routes[url] = s
	return r
}

// Factory adapts the runtime to a name-keyed constructor
func Factory(runtimes ...*Runtime) func(name string) (browser.Runtime, error) {
	return func(name string) (browser.Runtime, error) {
		for _, rt := range runtimes {
			if rt.EngineName == name {
				return rt, nil
			}
		}
		return nil, fmt.Errorf("unsupported browser engine: %s", name)
	}
}

func (r *Runtime) Name() string { return r.EngineName }

func (r *Runtime) Launch(ctx context.Context, opts browser.LaunchOptions) (browser.Browser, error) {
	if r.LaunchErr != nil {
		return nil, r.LaunchErr
	}
	r.mu.Lock()
	r.launchOpts = &opts
	r.mu.Unlock()
	return &fakeBrowser{rt: r}, nil
}

func (r *Runtime) Close() error {
	r.mu.Lock()
	r.runtimeClosed++
	r.mu.Unlock()
	return r.RuntimeCloseErr
}

// LaunchOptions returns the options of the last Launch, or nil
func (r *Runtime) LaunchOptions() *browser.LaunchOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.launchOpts
}

// ContextOptions returns the options of every NewContext call
func (r *Runtime) ContextOptions() []browser.ContextOptions {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]browser.ContextOptions(nil), r.contextOpts...)
}

// Pages returns every page opened so far
func (r *Runtime) Pages() []*Page {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*Page(nil), r.pages...)
}

// OpenPages counts pages not yet closed
func (r *Runtime) OpenPages() int {
	n := 0
	for _, p := range r.Pages() {
		if !p.Closed() {
			n++
		}
	}
	return n
}

// Closed reports release counts for runtime, browser and contexts
func (r *Runtime) Closed() (runtime, browser, contexts int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runtimeClosed, r.browserClosed, r.contextsClosed
}

func (r *Runtime) lookup(url string) (*Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.Routes[url]; ok {
		return s, nil
	}
	if r.Fallback != nil {
		return r.Fallback, nil
	}
	return nil, fmt.Errorf("net::ERR_NAME_NOT_RESOLVED at %s", url)
}

type fakeBrowser struct {
	rt *Runtime
}

func (b *fakeBrowser) NewContext(ctx context.Context, opts browser.ContextOptions) (browser.Context, error) {
	b.rt.mu.Lock()
	b.rt.contextOpts = append(b.rt.contextOpts, opts)
	b.rt.mu.Unlock()

	if opts.StorageStatePath != "" {
		if b.rt.StateErr != nil {
			return nil, fmt.Errorf("%w: %v", browser.ErrStateUnreadable, b.rt.StateErr)
		}
		if _, err := browser.ReadState(opts.StorageStatePath); err != nil {
			return nil, err
		}
	}
	return &fakeContext{rt: b.rt}, nil
}

func (b *fakeBrowser) Close() error {
	b.rt.mu.Lock()
	b.rt.browserClosed++
	b.rt.mu.Unlock()
	return b.rt.BrowserCloseErr
}

type fakeContext struct {
	rt *Runtime
}

func (c *fakeContext) NewPage(ctx context.Context) (browser.Page, error) {
	if c.rt.PageErr != nil {
		return nil, c.rt.PageErr
	}
	p := &Page{rt: c.rt}
	c.rt.mu.Lock()
	c.rt.pages = append(c.rt.pages, p)
	c.rt.mu.Unlock()
	return p, nil
}

func (c *fakeContext) SaveState(ctx context.Context, path string) error {
	if c.rt.SaveErr != nil {
		return c.rt.SaveErr
	}
	return browser.WriteState(path, &browser.State{Engine: c.rt.EngineName, SavedAt: time.Now()})
}

func (c *fakeContext) Close() error {
	c.rt.mu.Lock()
	c.rt.contextsClosed++
	c.rt.mu.Unlock()
	return c.rt.ContextCloseErr
}

// Page is a fake tab recording what was done to it
type Page struct {
	rt *Runtime

	mu       sync.Mutex
	script   *Script
	visited  []string
	scrolls  []int
	injected []string
	closed   bool
}

// Visited returns navigated URLs in order
func (p *Page) Visited() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.visited...)
}

// Scrolls returns the dy of every ScrollBy call
func (p *Page) Scrolls() []int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]int(nil), p.scrolls...)
}

// Injected returns scripts passed to InjectScript
func (p *Page) Injected() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.injected...)
}

// Closed reports whether Close was called
func (p *Page) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

var errPageClosed = errors.New("page closed")

func (p *Page) Goto(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errPageClosed
	}
	p.visited = append(p.visited, url)

	script, err := p.rt.lookup(url)
	if err != nil {
		return err
	}
	if script.GotoErr != nil {
		return script.GotoErr
	}
	p.script = script
	p.scrolls = nil
	return nil
}

func (p *Page) WaitForLoad(ctx context.Context, mode browser.LoadMode) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.script != nil && p.script.LoadErr != nil {
		return p.script.LoadErr
	}
	return ctx.Err()
}

func (p *Page) QueryAll(ctx context.Context, sel browser.Selector) ([]browser.Element, error) {
	p.mu.Lock()
	script, scrolls := p.script, len(p.scrolls)
	p.mu.Unlock()

	if script == nil || script.Query == nil {
		return nil, nil
	}
	if script.QueryErr != nil {
		return nil, script.QueryErr
	}

	nodes := script.Query(sel, scrolls)
	elements := make([]browser.Element, 0, len(nodes))
	for _, n := range nodes {
		elements = append(elements, &element{node: n})
	}
	return elements, nil
}

func (p *Page) ScrollBy(ctx context.Context, dx, dy int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scrolls = append(p.scrolls, dy)
	return nil
}

func (p *Page) InjectScript(ctx context.Context, src string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.injected = append(p.injected, src)
	return nil
}

func (p *Page) Title(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.script == nil {
		return "", nil
	}
	return p.script.Title, nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.script == nil {
		return "<html></html>", nil
	}
	return p.script.HTML, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

type element struct {
	node *Node
}

func (e *element) Text(ctx context.Context) (string, error) {
	return e.node.Text, nil
}

func (e *element) Attribute(ctx context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attrs[name]
	return v, ok, nil
}

func (e *element) Visible(ctx context.Context) (bool, error) {
	return !e.node.Hidden, nil
}

func (e *element) Click(ctx context.Context) error {
	if e.node.ClickErr != nil {
		return e.node.ClickErr
	}
	e.node.mu.Lock()
	e.node.clicks++
	e.node.mu.Unlock()
	return nil
}
