package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/storage"
	"github.com/chromedp/chromedp"

	"comment-scout/internal/logging"
)

// ChromedpRuntime drives Chrome through chromedp's exec allocator
type ChromedpRuntime struct {
	logger logging.Logger
	cancel context.CancelFunc
}

// NewChromedpRuntime creates a chromedp backend
func NewChromedpRuntime(logger logging.Logger) *ChromedpRuntime {
	return &ChromedpRuntime{logger: logger.WithField("engine", EngineChromedp)}
}

func (r *ChromedpRuntime) Name() string {
	return EngineChromedp
}

// Launch starts Chrome and opens the initial target
func (r *ChromedpRuntime) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.NoSandbox,
	)
	for name, value := range mergeFlags(opts.Flags) {
		if value == "" {
			allocOpts = append(allocOpts, chromedp.Flag(name, true))
		} else {
			allocOpts = append(allocOpts, chromedp.Flag(name, value))
		}
	}
	if chromePath := ResolveChromePath(opts.ChromePath); chromePath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromePath))
	}
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if opts.Viewport.Width > 0 && opts.Viewport.Height > 0 {
		allocOpts = append(allocOpts, chromedp.WindowSize(opts.Viewport.Width, opts.Viewport.Height))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	if err := allocate(ctx, browserCtx, browserCancel); err != nil {
		allocCancel()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	r.cancel = allocCancel
	r.logger.Info("New browser instance created", map[string]interface{}{
		"headless": opts.Headless,
	})
	return &chromedpBrowser{ctx: browserCtx, cancel: browserCancel, opts: opts}, nil
}

// Close stops the allocator, killing the process if still alive
func (r *ChromedpRuntime) Close() error {
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	return nil
}

// allocate performs the first Run on target, which binds the new
// browser or tab to target's lifetime. If ctx ends first the target is
// cancelled. On error the target is always cancelled.
func allocate(ctx, target context.Context, cancel context.CancelFunc, actions ...chromedp.Action) error {
	stop := context.AfterFunc(ctx, cancel)
	err := chromedp.Run(target, actions...)
	if !stop() {
		return ctx.Err()
	}
	if err != nil {
		cancel()
	}
	return err
}

// runWithin runs actions on target but gives up when ctx is done
func runWithin(ctx, target context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(target)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}

type chromedpBrowser struct {
	ctx    context.Context
	cancel context.CancelFunc
	opts   LaunchOptions
}

// NewContext opens an anchor tab in a fresh browser context. Pages are
// sibling tabs of the anchor and share its cookies.
func (b *chromedpBrowser) NewContext(ctx context.Context, opts ContextOptions) (Context, error) {
	anchor, cancel := chromedp.NewContext(b.ctx, chromedp.WithNewBrowserContext())
	if err := allocate(ctx, anchor, cancel); err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}

	c := &chromedpContext{anchor: anchor, cancel: cancel, opts: b.opts}

	if opts.StorageStatePath != "" {
		state, err := ReadState(opts.StorageStatePath)
		if err == nil {
			err = runWithin(ctx, anchor, network.SetCookies(toCDPCookies(state.Cookies)))
		}
		if err != nil {
			c.Close()
			if !errors.Is(err, ErrStateUnreadable) {
				err = fmt.Errorf("%w: %v", ErrStateUnreadable, err)
			}
			return nil, err
		}
	}
	return c, nil
}

func (b *chromedpBrowser) Close() error {
	err := chromedp.Cancel(b.ctx)
	b.cancel()
	return err
}

type chromedpContext struct {
	anchor context.Context
	cancel context.CancelFunc
	opts   LaunchOptions
}

func (c *chromedpContext) NewPage(ctx context.Context) (Page, error) {
	tab, cancel := chromedp.NewContext(c.anchor)

	actions := []chromedp.Action{}
	if c.opts.Viewport.Width > 0 && c.opts.Viewport.Height > 0 {
		actions = append(actions, chromedp.EmulateViewport(int64(c.opts.Viewport.Width), int64(c.opts.Viewport.Height)))
	}
	if err := allocate(ctx, tab, cancel, actions...); err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	p := &chromedpPage{ctx: tab, cancel: cancel}
	if err := p.InjectScript(ctx, MaskWebdriverScript); err != nil {
		p.Close()
		return nil, err
	}
	return p, nil
}

func (c *chromedpContext) SaveState(ctx context.Context, path string) error {
	var cookies []*network.Cookie
	err := runWithin(ctx, c.anchor, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		cookies, err = storage.GetCookies().Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	state := &State{Engine: EngineChromedp, SavedAt: time.Now()}
	for _, ck := range cookies {
		cookie := Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
			SameSite: ck.SameSite.String(),
		}
		if !ck.Session {
			cookie.Expires = ck.Expires
		}
		state.Cookies = append(state.Cookies, cookie)
	}
	return WriteState(path, state)
}

// Close closes the anchor tab, disposing the browser context with it
func (c *chromedpContext) Close() error {
	err := chromedp.Cancel(c.anchor)
	c.cancel()
	return err
}

func toCDPCookies(cookies []Cookie) []*network.CookieParam {
	params := make([]*network.CookieParam, 0, len(cookies))
	for _, ck := range cookies {
		param := &network.CookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
		}
		if ck.SameSite != "" {
			param.SameSite = network.CookieSameSite(ck.SameSite)
		}
		if ck.Expires > 0 {
			sec := int64(ck.Expires)
			expires := cdp.TimeSinceEpoch(time.Unix(sec, int64((ck.Expires-float64(sec))*1e9)))
			param.Expires = &expires
		}
		params = append(params, param)
	}
	return params
}

type chromedpPage struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func (p *chromedpPage) Goto(ctx context.Context, url string) error {
	return runWithin(ctx, p.ctx, chromedp.Navigate(url))
}

func (p *chromedpPage) WaitForLoad(ctx context.Context, mode LoadMode) error {
	if mode == LoadDOMContentLoaded {
		return runWithin(ctx, p.ctx, chromedp.WaitReady("body", chromedp.ByQuery))
	}

	err := runWithin(ctx, p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for {
			var readyState string
			if err := chromedp.Evaluate("document.readyState", &readyState).Do(ctx); err != nil {
				return err
			}
			if readyState == "complete" {
				return nil
			}
			if err := chromedp.Sleep(100 * time.Millisecond).Do(ctx); err != nil {
				return err
			}
		}
	}))
	if err != nil || mode != LoadNetworkIdle {
		return err
	}
	return runWithin(ctx, p.ctx, chromedp.Sleep(500*time.Millisecond))
}

func (p *chromedpPage) QueryAll(ctx context.Context, sel Selector) ([]Element, error) {
	by := chromedp.ByQueryAll
	if sel.Kind == KindXPath {
		by = chromedp.BySearch
	}

	var nodes []*cdp.Node
	if err := runWithin(ctx, p.ctx, chromedp.Nodes(sel.Expr, &nodes, by, chromedp.AtLeast(0))); err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}

	elements := make([]Element, 0, len(nodes))
	for _, node := range nodes {
		elements = append(elements, &chromedpElement{page: p, node: node})
	}
	return elements, nil
}

func (p *chromedpPage) ScrollBy(ctx context.Context, dx, dy int) error {
	return runWithin(ctx, p.ctx, chromedp.Evaluate(fmt.Sprintf("window.scrollBy(%d, %d)", dx, dy), nil))
}

func (p *chromedpPage) InjectScript(ctx context.Context, src string) error {
	err := runWithin(ctx, p.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument(src).Do(ctx)
		return err
	}))
	if err != nil {
		return fmt.Errorf("failed to inject script: %w", err)
	}
	return nil
}

func (p *chromedpPage) Title(ctx context.Context) (string, error) {
	var title string
	err := runWithin(ctx, p.ctx, chromedp.Title(&title))
	return title, err
}

func (p *chromedpPage) HTML(ctx context.Context) (string, error) {
	var html string
	err := runWithin(ctx, p.ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (p *chromedpPage) Close() error {
	err := chromedp.Cancel(p.ctx)
	p.cancel()
	return err
}

type chromedpElement struct {
	page *chromedpPage
	node *cdp.Node
}

func (e *chromedpElement) Text(ctx context.Context) (string, error) {
	var text string
	err := runWithin(ctx, e.page.ctx, chromedp.Text([]cdp.NodeID{e.node.NodeID}, &text, chromedp.ByNodeID))
	return text, err
}

func (e *chromedpElement) Attribute(_ context.Context, name string) (string, bool, error) {
	value, ok := e.node.Attribute(name)
	return value, ok, nil
}

// Visible reports whether the node has a non-empty layout box
func (e *chromedpElement) Visible(ctx context.Context) (bool, error) {
	var box *dom.BoxModel
	err := runWithin(ctx, e.page.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		box, err = dom.GetBoxModel().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		// nodes without layout have no box model
		return false, nil
	}
	return box != nil && box.Width > 0 && box.Height > 0, nil
}

func (e *chromedpElement) Click(ctx context.Context) error {
	return runWithin(ctx, e.page.ctx, chromedp.Click([]cdp.NodeID{e.node.NodeID}, chromedp.ByNodeID))
}
