// Package browser owns the single Chrome process shared by every search.
//
// The Manager is the only way request handlers reach the browser: it is
// created unset, becomes ready after Start, and is unset again after Stop.
// Engine, Browser and Page abstract go-rod so the lifecycle and the search
// flow can be exercised without a real Chrome.
package browser

import (
	"context"
	"fmt"

	"github.com/use-agent/dealsearch/models"
)

// ErrUnavailable is returned by Manager.Browser outside the ready window.
var ErrUnavailable = models.NewScrapeError(models.ErrCodeUnavailable, "Browser not available", nil)

// Engine launches and tears down the automation process hosting the browser.
type Engine interface {
	// Launch starts the browser process and returns its DevTools control URL.
	Launch(ctx context.Context) (string, error)

	// Connect opens a browser session on a launched process.
	Connect(ctx context.Context, controlURL string) (Browser, error)

	// Shutdown kills the process started by Launch. It must be safe to call
	// when Launch failed or was never called.
	Shutdown() error
}

// Browser is a connected browser session. It is safe for concurrent use.
type Browser interface {
	NewPage(ctx context.Context) (Page, error)
	Close() error
}

// Page is one tab, owned by exactly one request.
type Page interface {
	// Navigate loads url and waits for the load event.
	Navigate(ctx context.Context, url string) error

	// WaitAny blocks until an element matches one of selectors and
	// returns the selector that matched first.
	WaitAny(ctx context.Context, selectors ...string) (string, error)

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	Close() error
}

// timeoutReasons are Chrome net error codes that mean the load timed out.
var timeoutReasons = map[string]struct{}{
	"net::ERR_TIMED_OUT":            {},
	"net::ERR_CONNECTION_TIMED_OUT": {},
}

// NavigationError reports that Chrome failed to load a URL.
type NavigationError struct {
	URL    string
	Reason string
}

func (e *NavigationError) Error() string {
	return fmt.Sprintf("navigation to %s failed: %s", e.URL, e.Reason)
}

// Timeout reports whether Chrome gave up waiting on the network.
func (e *NavigationError) Timeout() bool {
	_, ok := timeoutReasons[e.Reason]
	return ok
}
