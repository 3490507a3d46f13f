package scraper

import (
	"context"
	"log/slog"
	"net/url"
	"strconv"

	"github.com/use-agent/dealsearch/browser"
	"github.com/use-agent/dealsearch/config"
	"github.com/use-agent/dealsearch/gate"
	"github.com/use-agent/dealsearch/models"
)

// Scraper runs deal searches on the shared browser. It is safe for
// concurrent use.
type Scraper struct {
	manager *browser.Manager
	gate    *gate.Gate
	cfg     config.ScraperConfig
	policy  RetryPolicy
}

// New creates a Scraper. The manager need not be started yet: searches
// fail with BROWSER_UNAVAILABLE until it is.
func New(manager *browser.Manager, g *gate.Gate, cfg config.ScraperConfig, nav config.NavigationConfig) *Scraper {
	return &Scraper{
		manager: manager,
		gate:    g,
		cfg:     cfg,
		policy: RetryPolicy{
			Timeout: nav.Timeout,
			Retries: nav.Retries,
			Backoff: nav.Backoff,
		},
	}
}

// Stats returns a snapshot of the gate.
func (s *Scraper) Stats() models.PoolStats {
	return models.PoolStats{
		MaxPages:    s.gate.Capacity(),
		ActivePages: s.gate.InFlight(),
	}
}

// Ready reports whether the shared browser is up.
func (s *Scraper) Ready() bool {
	return s.manager.Ready()
}

// Search returns the first deal matching req, or ErrNoResults.
//
// Lifecycle:
//
//  1. Validate + readiness  – fail before taking a permit
//  2. Request deadline      – bounds permit wait and the whole scrape
//  3. Acquire permit        – DEFER release
//  4. Open page             – DEFER close (on its own context)
//  5. Navigate with retry   – timed-out attempts only
//  6. Wait for results      – deal grid or empty-list marker
//  7. Extract               – page HTML → Deal
func (s *Scraper) Search(ctx context.Context, req *models.SearchRequest) (*models.Deal, error) {
	// ── 1. Validate + readiness ──────────────────────────────────────
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.manager.Browser(); err != nil {
		return nil, err
	}

	// ── 2. Request deadline ──────────────────────────────────────────
	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	// ── 3. Acquire permit ────────────────────────────────────────────
	permit, err := s.gate.Acquire(ctx)
	if err != nil {
		return nil, categorizeError(err, "timed out waiting for a free browser page")
	}
	defer permit.Release()

	// The browser may have been stopped while this request was queued.
	b, err := s.manager.Browser()
	if err != nil {
		return nil, err
	}

	// ── 4. Open page ─────────────────────────────────────────────────
	page, err := b.NewPage(ctx)
	if err != nil {
		return nil, categorizeError(err, "failed to open browser page")
	}
	defer func() {
		if closeErr := page.Close(); closeErr != nil {
			slog.Debug("failed to close page cleanly", "error", closeErr)
		}
	}()

	// ── 5. Navigate ──────────────────────────────────────────────────
	target := SearchURL(s.cfg.BaseURL, req)
	if err := NavigateWithRetry(ctx, page, target, s.policy); err != nil {
		return nil, err
	}

	// ── 6. Wait for results ──────────────────────────────────────────
	waitCtx := ctx
	if s.cfg.WaitTimeout > 0 {
		var cancelWait context.CancelFunc
		waitCtx, cancelWait = context.WithTimeout(ctx, s.cfg.WaitTimeout)
		defer cancelWait()
	}
	if _, err := page.WaitAny(waitCtx, dealGridSelector, emptyListSelector); err != nil {
		return nil, categorizeError(err, "search results did not appear")
	}

	// ── 7. Extract ───────────────────────────────────────────────────
	html, err := page.HTML(ctx)
	if err != nil {
		return nil, categorizeError(err, "failed to read result page")
	}
	return ExtractDeal(html)
}

// SearchURL builds the result page URL for req. Zero prices are treated as
// unset, matching the site's own filter form.
func SearchURL(baseURL string, req *models.SearchRequest) string {
	q := url.Values{}
	q.Set("query", req.Query)
	if req.SortOption != "" {
		q.Set("sort", req.SortOption)
	}
	if req.PriceMin != nil && *req.PriceMin > 0 {
		q.Set("price_min", formatPrice(*req.PriceMin))
	}
	if req.PriceMax != nil && *req.PriceMax > 0 {
		q.Set("price_max", formatPrice(*req.PriceMax))
	}
	return baseURL + "/search?" + q.Encode()
}

func formatPrice(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
