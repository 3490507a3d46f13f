// Package browsertest provides in-memory Engine, Browser and Page
// implementations for tests that must not start Chrome.
package browsertest

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/use-agent/dealsearch/browser"
)

// Engine is a scripted browser.Engine.
type Engine struct {
	LaunchErr   error
	ConnectErr  error
	ShutdownErr error

	// Browser is returned by Connect; a fresh one is created when nil.
	Browser *Browser

	Launches  atomic.Int32
	Connects  atomic.Int32
	Shutdowns atomic.Int32
}

func (e *Engine) Launch(ctx context.Context) (string, error) {
	e.Launches.Add(1)
	if e.LaunchErr != nil {
		return "", e.LaunchErr
	}
	return "ws://127.0.0.1:9222/devtools/browser/fake", nil
}

func (e *Engine) Connect(ctx context.Context, controlURL string) (browser.Browser, error) {
	e.Connects.Add(1)
	if e.ConnectErr != nil {
		return nil, e.ConnectErr
	}
	if e.Browser == nil {
		e.Browser = &Browser{}
	}
	return e.Browser, nil
}

func (e *Engine) Shutdown() error {
	e.Shutdowns.Add(1)
	return e.ShutdownErr
}

// Browser hands out pages built by NewPageFunc.
type Browser struct {
	// NewPageFunc builds each page; defaults to an empty Page.
	NewPageFunc func() *Page
	NewPageErr  error
	CloseErr    error

	PagesOpened atomic.Int32
	Closed      atomic.Bool

	mu    sync.Mutex
	pages []*Page
}

func (b *Browser) NewPage(ctx context.Context) (browser.Page, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.NewPageErr != nil {
		return nil, b.NewPageErr
	}
	b.PagesOpened.Add(1)

	p := &Page{}
	if b.NewPageFunc != nil {
		p = b.NewPageFunc()
	}
	b.mu.Lock()
	b.pages = append(b.pages, p)
	b.mu.Unlock()
	return p, nil
}

func (b *Browser) Close() error {
	b.Closed.Store(true)
	return b.CloseErr
}

// Pages returns every page opened so far.
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

// Page is a scripted browser.Page.
type Page struct {
	// NavigateFunc is called for every Navigate; nil means success.
	NavigateFunc func(ctx context.Context, url string) error

	// Matched is returned by WaitAny; defaults to the first selector.
	Matched string
	WaitErr error

	Content string
	HTMLErr error

	Navigations atomic.Int32
	Closes      atomic.Int32

	mu   sync.Mutex
	urls []string
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	p.Navigations.Add(1)
	p.mu.Lock()
	p.urls = append(p.urls, url)
	p.mu.Unlock()
	if p.NavigateFunc != nil {
		return p.NavigateFunc(ctx, url)
	}
	return ctx.Err()
}

func (p *Page) WaitAny(ctx context.Context, selectors ...string) (string, error) {
	if p.WaitErr != nil {
		return "", p.WaitErr
	}
	if len(selectors) == 0 {
		return "", errors.New("no selectors")
	}
	if p.Matched != "" {
		return p.Matched, nil
	}
	return selectors[0], nil
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	if p.HTMLErr != nil {
		return "", p.HTMLErr
	}
	return p.Content, nil
}

func (p *Page) Close() error {
	p.Closes.Add(1)
	return nil
}

// URLs returns every URL passed to Navigate.
func (p *Page) URLs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.urls...)
}

var (
	_ browser.Engine  = (*Engine)(nil)
	_ browser.Browser = (*Browser)(nil)
	_ browser.Page    = (*Page)(nil)
)
