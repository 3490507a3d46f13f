package browser

import (
	"context"
	"log/slog"
	"sync"

	"github.com/use-agent/dealsearch/models"
)

// Manager guarantees that exactly one browser backs all concurrent
// requests. It is safe for concurrent use.
//
// A browser that crashes after Start is not relaunched: requests keep
// failing until the process is restarted.
type Manager struct {
	engine Engine

	mu      sync.RWMutex
	browser Browser
}

// NewManager returns an unset Manager driving engine.
func NewManager(engine Engine) *Manager {
	return &Manager{engine: engine}
}

// Start launches the engine and connects the shared browser. On failure in
// either step everything opened so far is torn down, the handle stays unset
// and a BROWSER_UNAVAILABLE error is returned. Start on a ready Manager is
// a no-op.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		return nil
	}

	controlURL, err := m.engine.Launch(ctx)
	if err != nil {
		slog.Error("browser engine launch failed", "error", err)
		m.shutdownEngine()
		return models.NewScrapeError(models.ErrCodeUnavailable, "failed to launch browser engine", err)
	}

	b, err := m.engine.Connect(ctx, controlURL)
	if err != nil {
		slog.Error("browser connect failed", "controlURL", controlURL, "error", err)
		m.shutdownEngine()
		return models.NewScrapeError(models.ErrCodeUnavailable, "failed to connect to browser", err)
	}

	m.browser = b
	slog.Info("browser started", "controlURL", controlURL)
	return nil
}

// Stop closes the browser and the engine. Failures are logged, never
// returned. Stop is safe to call at any time, any number of times.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if err := m.browser.Close(); err != nil {
			slog.Warn("closing browser during shutdown failed", "error", err)
		}
	}
	m.shutdownEngine()
	m.browser = nil
	slog.Info("browser stopped")
}

// Ready reports whether the shared browser is usable.
func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser != nil
}

// Browser returns the shared browser, or ErrUnavailable before Start
// succeeded and after Stop.
func (m *Manager) Browser() (Browser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.browser == nil {
		return nil, ErrUnavailable
	}
	return m.browser, nil
}

// shutdownEngine must be called with m.mu held.
func (m *Manager) shutdownEngine() {
	if err := m.engine.Shutdown(); err != nil {
		slog.Warn("stopping browser engine failed", "error", err)
	}
}
