package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/dealsearch/browser"
	"github.com/use-agent/dealsearch/metrics"
	"github.com/use-agent/dealsearch/models"
)

// Outcome classifies one navigation attempt.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeRetryable
	OutcomeFatal
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	default:
		return "fatal"
	}
}

// RetryPolicy bounds the navigation loop.
type RetryPolicy struct {
	// Timeout is the deadline of a single attempt; zero means none.
	Timeout time.Duration

	// Retries is the number of attempts allowed after the first one.
	Retries int

	// Backoff is the fixed pause between attempts.
	Backoff time.Duration
}

// Attempts returns the total number of attempts the policy allows.
func (p RetryPolicy) Attempts() int {
	if p.Retries < 0 {
		return 1
	}
	return p.Retries + 1
}

// Classify decides whether err from one attempt is worth retrying.
//
// parent is the request context the attempt was derived from: once it is
// done the request itself is over and nothing is retried. A per-attempt
// deadline, a net.Error reporting Timeout, or a Chrome timeout reason are
// retryable; anything else is fatal.
func Classify(parent context.Context, err error) Outcome {
	if err == nil {
		return OutcomeSuccess
	}
	if parent.Err() != nil {
		return OutcomeFatal
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return OutcomeRetryable
	}
	var t interface{ Timeout() bool }
	if errors.As(err, &t) && t.Timeout() {
		return OutcomeRetryable
	}
	return OutcomeFatal
}

// NavigateWithRetry loads url into page, retrying timed-out attempts up to
// policy.Retries times. After the last timed-out attempt it returns an
// ErrCodeTimeout ScrapeError; fatal errors are returned at once.
func NavigateWithRetry(ctx context.Context, page browser.Page, url string, policy RetryPolicy) error {
	attempts := policy.Attempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := navigateOnce(ctx, page, url, policy.Timeout)
		outcome := Classify(ctx, err)
		metrics.ObserveNavigation(outcome.String())

		switch outcome {
		case OutcomeSuccess:
			if attempt > 1 {
				slog.Info("navigation succeeded after retry", "url", url, "attempt", attempt)
			}
			return nil
		case OutcomeFatal:
			return categorizeError(err, "navigation to search page failed")
		}

		lastErr = err
		slog.Warn("navigation timed out",
			"url", url,
			"attempt", attempt,
			"maxAttempts", attempts,
			"error", err,
		)

		if attempt < attempts && policy.Backoff > 0 {
			select {
			case <-ctx.Done():
				return categorizeError(ctx.Err(), "navigation to search page failed")
			case <-time.After(policy.Backoff):
			}
		}
	}

	return models.NewScrapeError(
		models.ErrCodeTimeout,
		fmt.Sprintf("navigation timed out after %d attempts", attempts),
		lastErr,
	)
}

func navigateOnce(ctx context.Context, page browser.Page, url string, timeout time.Duration) error {
	if timeout <= 0 {
		return page.Navigate(ctx, url)
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return page.Navigate(attemptCtx, url)
}

// categorizeError wraps raw errors into typed ScrapeErrors so the API layer
// can map them to HTTP status codes.
func categorizeError(err error, msg string) *models.ScrapeError {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewScrapeError(models.ErrCodeTimeout, msg, err)
	case errors.Is(err, context.Canceled):
		return models.NewScrapeError(models.ErrCodeTimeout, "request canceled", err)
	default:
		return models.NewScrapeError(models.ErrCodeScrape, msg, err)
	}
}
