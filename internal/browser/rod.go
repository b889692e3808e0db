package browser

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"comment-scout/internal/logging"
)

// RodRuntime drives Chrome through go-rod with stealth page patches
type RodRuntime struct {
	logger   logging.Logger
	launcher *launcher.Launcher
}

// NewRodRuntime creates a rod backend
func NewRodRuntime(logger logging.Logger) *RodRuntime {
	return &RodRuntime{logger: logger.WithField("engine", EngineRod)}
}

func (r *RodRuntime) Name() string {
	return EngineRod
}

// Launch starts a browser process and connects to it
func (r *RodRuntime) Launch(ctx context.Context, opts LaunchOptions) (Browser, error) {
	l := launcher.New().
		Headless(opts.Headless).
		NoSandbox(true)

	for name, value := range mergeFlags(opts.Flags) {
		if value == "" {
			l = l.Set(flags.Flag(name))
		} else {
			l = l.Set(flags.Flag(name), value)
		}
	}

	if chromePath := ResolveChromePath(opts.ChromePath); chromePath != "" {
		l = l.Bin(chromePath)
		r.logger.Info("Using system Chrome browser", map[string]interface{}{
			"chrome_path": chromePath,
		})
	} else {
		r.logger.Warn("System Chrome not found, Rod will download browser", map[string]interface{}{})
	}

	if opts.UserAgent != "" {
		l = l.Set("user-agent", opts.UserAgent)
	}
	r.launcher = l

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	url, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	r.logger.Info("New browser instance created", map[string]interface{}{
		"headless": opts.Headless,
	})
	return &rodBrowser{browser: b, opts: opts, logger: r.logger}, nil
}

// Close removes the launcher's profile directory
func (r *RodRuntime) Close() error {
	if r.launcher != nil {
		r.launcher.Cleanup()
		r.launcher = nil
	}
	return nil
}

type rodBrowser struct {
	browser *rod.Browser
	opts    LaunchOptions
	logger  logging.Logger
}

func (b *rodBrowser) NewContext(ctx context.Context, opts ContextOptions) (Context, error) {
	incognito, err := b.browser.Context(ctx).Incognito()
	if err != nil {
		return nil, fmt.Errorf("failed to create browser context: %w", err)
	}
	// detach from the creation context so later calls are not cancelled by it
	incognito = incognito.Context(context.Background())

	if opts.StorageStatePath != "" {
		state, err := ReadState(opts.StorageStatePath)
		if err == nil {
			err = incognito.SetCookies(toRodCookies(state.Cookies))
		}
		if err != nil {
			incognito.Close()
			if !errors.Is(err, ErrStateUnreadable) {
				err = fmt.Errorf("%w: %v", ErrStateUnreadable, err)
			}
			return nil, err
		}
	}

	return &rodContext{browser: incognito, opts: b.opts, logger: b.logger}, nil
}

func (b *rodBrowser) Close() error {
	return b.browser.Close()
}

type rodContext struct {
	browser *rod.Browser
	opts    LaunchOptions
	logger  logging.Logger
}

// NewPage opens a stealth page with the fixed viewport and user agent
func (c *rodContext) NewPage(ctx context.Context) (Page, error) {
	page, err := stealth.Page(c.browser.Context(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to create stealth page: %w", err)
	}
	page = page.Context(context.Background())

	if c.opts.Viewport.Width > 0 && c.opts.Viewport.Height > 0 {
		err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             c.opts.Viewport.Width,
			Height:            c.opts.Viewport.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			c.logger.Warn("Failed to set viewport", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	if c.opts.UserAgent != "" {
		err = page.SetUserAgent(&proto.NetworkSetUserAgentOverride{
			UserAgent: c.opts.UserAgent,
		})
		if err != nil {
			c.logger.Warn("Failed to set user agent", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	p := &rodPage{page: page}
	if err := p.InjectScript(ctx, MaskWebdriverScript); err != nil {
		page.Close()
		return nil, err
	}
	return p, nil
}

func (c *rodContext) SaveState(ctx context.Context, path string) error {
	cookies, err := c.browser.Context(ctx).GetCookies()
	if err != nil {
		return fmt.Errorf("failed to read cookies: %w", err)
	}

	state := &State{Engine: EngineRod, SavedAt: time.Now()}
	for _, ck := range cookies {
		cookie := Cookie{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
			SameSite: string(ck.SameSite),
		}
		if !ck.Session {
			cookie.Expires = float64(ck.Expires)
		}
		state.Cookies = append(state.Cookies, cookie)
	}
	return WriteState(path, state)
}

func (c *rodContext) Close() error {
	return c.browser.Close()
}

func toRodCookies(cookies []Cookie) []*proto.NetworkCookieParam {
	params := make([]*proto.NetworkCookieParam, 0, len(cookies))
	for _, ck := range cookies {
		params = append(params, &proto.NetworkCookieParam{
			Name:     ck.Name,
			Value:    ck.Value,
			Domain:   ck.Domain,
			Path:     ck.Path,
			HTTPOnly: ck.HTTPOnly,
			Secure:   ck.Secure,
			SameSite: proto.NetworkCookieSameSite(ck.SameSite),
			Expires:  proto.TimeSinceEpoch(ck.Expires),
		})
	}
	return params
}

type rodPage struct {
	page *rod.Page
}

func (p *rodPage) Goto(ctx context.Context, url string) error {
	return p.page.Context(ctx).Navigate(url)
}

func (p *rodPage) WaitForLoad(ctx context.Context, mode LoadMode) error {
	page := p.page.Context(ctx)
	switch mode {
	case LoadComplete:
		return page.WaitLoad()
	case LoadNetworkIdle:
		if err := page.WaitLoad(); err != nil {
			return err
		}
		page.WaitRequestIdle(500*time.Millisecond, nil, nil, nil)()
		return ctx.Err()
	default:
		_, err := page.Element("body")
		return err
	}
}

func (p *rodPage) QueryAll(ctx context.Context, sel Selector) ([]Element, error) {
	var (
		found rod.Elements
		err   error
	)
	page := p.page.Context(ctx)
	if sel.Kind == KindXPath {
		found, err = page.ElementsX(sel.Expr)
	} else {
		found, err = page.Elements(sel.Expr)
	}
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", sel, err)
	}

	elements := make([]Element, 0, len(found))
	for _, el := range found {
		elements = append(elements, &rodElement{el: el})
	}
	return elements, nil
}

func (p *rodPage) ScrollBy(ctx context.Context, dx, dy int) error {
	return p.page.Context(ctx).Mouse.Scroll(float64(dx), float64(dy), 5)
}

func (p *rodPage) InjectScript(ctx context.Context, src string) error {
	if _, err := p.page.Context(ctx).EvalOnNewDocument(src); err != nil {
		return fmt.Errorf("failed to inject script: %w", err)
	}
	return nil
}

func (p *rodPage) Title(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.Title, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

func (p *rodPage) Close() error {
	return p.page.Close()
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

func (e *rodElement) Attribute(ctx context.Context, name string) (string, bool, error) {
	value, err := e.el.Context(ctx).Attribute(name)
	if err != nil || value == nil {
		return "", false, err
	}
	return *value, true, nil
}

func (e *rodElement) Visible(ctx context.Context) (bool, error) {
	return e.el.Context(ctx).Visible()
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}
