package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/ysmood/gson"

	"github.com/use-agent/dealsearch/config"
)

// desktopUA replaces the "HeadlessChrome" token Chrome sends when headless.
const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Desktop viewport, matching a typical 720p laptop window.
const (
	viewportWidth  = 1280
	viewportHeight = 720
)

// PageOptions controls how every new tab is prepared.
type PageOptions struct {
	Stealth              bool
	BlockedResourceTypes []string
	AcceptLanguage       string
}

// RodEngine launches a local Chrome through go-rod's launcher.
type RodEngine struct {
	cfg      config.BrowserConfig
	pageOpts PageOptions
	launcher *launcher.Launcher
}

// NewRodEngine creates an engine; nothing is launched until Launch.
func NewRodEngine(cfg config.BrowserConfig, pageOpts PageOptions) *RodEngine {
	return &RodEngine{cfg: cfg, pageOpts: pageOpts}
}

// Launch starts Chrome with the configured headless flag and launch arguments.
func (e *RodEngine) Launch(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	l := launcher.New().
		Headless(e.cfg.Headless).
		NoSandbox(e.cfg.NoSandbox)

	if e.cfg.BrowserBin != "" {
		l = l.Bin(e.cfg.BrowserBin)
	}
	if e.cfg.Proxy != "" {
		l = l.Proxy(e.cfg.Proxy)
	}

	l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
	l.Delete(flags.Flag("enable-automation"))
	l.Set(flags.Flag("disable-features"), "TranslateUI")
	l.Set(flags.Flag("disable-dev-shm-usage"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("no-first-run"))

	e.launcher = l

	controlURL, err := l.Launch()
	if err != nil {
		return "", fmt.Errorf("launch chrome: %w", err)
	}
	return controlURL, nil
}

// Connect attaches a rod session to the launched Chrome.
func (e *RodEngine) Connect(ctx context.Context, controlURL string) (Browser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := rod.New().ControlURL(controlURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", controlURL, err)
	}
	return &rodBrowser{browser: b, opts: e.pageOpts}, nil
}

// Shutdown kills Chrome and removes its temporary user-data dir.
func (e *RodEngine) Shutdown() error {
	if e.launcher == nil {
		return nil
	}
	e.launcher.Kill()
	e.launcher.Cleanup()
	e.launcher = nil
	return nil
}

type rodBrowser struct {
	browser *rod.Browser
	opts    PageOptions
}

func (b *rodBrowser) NewPage(ctx context.Context) (Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var page *rod.Page
	var err error
	if b.opts.Stealth {
		page, err = stealth.Page(b.browser)
	} else {
		page, err = b.browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}

	if err := preparePage(page, b.opts); err != nil {
		_ = page.Close()
		return nil, err
	}

	return &rodPage{page: page, router: setupHijack(page, b.opts.BlockedResourceTypes)}, nil
}

func (b *rodBrowser) Close() error {
	return b.browser.Close()
}

// preparePage emulates a desktop Chrome before the first navigation.
func preparePage(page *rod.Page, opts PageOptions) error {
	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             viewportWidth,
		Height:            viewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		return fmt.Errorf("set viewport: %w", err)
	}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: desktopUA}); err != nil {
		return fmt.Errorf("set user agent: %w", err)
	}

	if opts.AcceptLanguage != "" {
		err := proto.NetworkSetExtraHTTPHeaders{
			Headers: proto.NetworkHeaders{"Accept-Language": gson.New(opts.AcceptLanguage)},
		}.Call(page)
		if err != nil {
			slog.Warn("setting Accept-Language failed, continuing", "error", err)
		}
	}
	return nil
}

type rodPage struct {
	page   *rod.Page
	router *rod.HijackRouter
}

func (p *rodPage) Navigate(ctx context.Context, url string) error {
	pg := p.page.Context(ctx)
	if err := pg.Navigate(url); err != nil {
		var navErr *rod.NavigationError
		if errors.As(err, &navErr) {
			return &NavigationError{URL: url, Reason: navErr.Reason}
		}
		return err
	}
	return pg.WaitLoad()
}

func (p *rodPage) WaitAny(ctx context.Context, selectors ...string) (string, error) {
	if len(selectors) == 0 {
		return "", errors.New("WaitAny: no selectors")
	}

	var matched string
	race := p.page.Context(ctx).Race()
	for _, sel := range selectors {
		sel := sel
		race = race.Element(sel).Handle(func(*rod.Element) error {
			matched = sel
			return nil
		})
	}
	if _, err := race.Do(); err != nil {
		return "", err
	}
	return matched, nil
}

func (p *rodPage) HTML(ctx context.Context) (string, error) {
	return p.page.Context(ctx).HTML()
}

// Close stops request interception and closes the tab. It uses the
// page's original context so it succeeds after the request deadline.
func (p *rodPage) Close() error {
	if p.router != nil {
		_ = p.router.Stop()
	}
	return p.page.Close()
}
