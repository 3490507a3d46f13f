package scraper

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dealsearch/browser"
	"github.com/use-agent/dealsearch/browser/browsertest"
	"github.com/use-agent/dealsearch/models"
)

type netTimeout struct{}

func (netTimeout) Error() string   { return "i/o timeout" }
func (netTimeout) Timeout() bool   { return true }
func (netTimeout) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	live := context.Background()
	done, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name   string
		parent context.Context
		err    error
		want   Outcome
	}{
		{"nil", live, nil, OutcomeSuccess},
		{"attempt deadline", live, context.DeadlineExceeded, OutcomeRetryable},
		{"wrapped attempt deadline", live, fmt.Errorf("navigate: %w", context.DeadlineExceeded), OutcomeRetryable},
		{"net timeout", live, netTimeout{}, OutcomeRetryable},
		{"chrome timeout", live, &browser.NavigationError{Reason: "net::ERR_TIMED_OUT"}, OutcomeRetryable},
		{"chrome dns failure", live, &browser.NavigationError{Reason: "net::ERR_NAME_NOT_RESOLVED"}, OutcomeFatal},
		{"other error", live, errors.New("target closed"), OutcomeFatal},
		{"parent done", done, context.DeadlineExceeded, OutcomeFatal},
		{"parent canceled", done, context.Canceled, OutcomeFatal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.parent, tt.err)
			assert.Equal(t, tt.want, got)
			// Same input, same answer.
			assert.Equal(t, got, Classify(tt.parent, tt.err))
		})
	}
}

func TestRetryPolicy_Attempts(t *testing.T) {
	assert.Equal(t, 3, RetryPolicy{Retries: 2}.Attempts())
	assert.Equal(t, 1, RetryPolicy{Retries: 0}.Attempts())
	assert.Equal(t, 1, RetryPolicy{Retries: -4}.Attempts())
}

func TestNavigateWithRetry_TimeoutEveryAttempt(t *testing.T) {
	page := &browsertest.Page{
		NavigateFunc: func(ctx context.Context, url string) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}
	policy := RetryPolicy{Timeout: 5 * time.Millisecond, Retries: 2}

	err := NavigateWithRetry(context.Background(), page, "https://deals.test/search", policy)

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.EqualValues(t, policy.Attempts(), page.Navigations.Load())
}

func TestNavigateWithRetry_FatalIsNotRetried(t *testing.T) {
	page := &browsertest.Page{
		NavigateFunc: func(context.Context, string) error {
			return &browser.NavigationError{Reason: "net::ERR_NAME_NOT_RESOLVED"}
		},
	}

	err := NavigateWithRetry(context.Background(), page, "https://deals.test/search", RetryPolicy{Retries: 5})

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeScrape, models.CodeOf(err))
	assert.EqualValues(t, 1, page.Navigations.Load())
}

func TestNavigateWithRetry_RecoversAfterTimeout(t *testing.T) {
	page := &browsertest.Page{}
	page.NavigateFunc = func(ctx context.Context, url string) error {
		if page.Navigations.Load() == 1 {
			return &browser.NavigationError{URL: url, Reason: "net::ERR_TIMED_OUT"}
		}
		return nil
	}

	err := NavigateWithRetry(context.Background(), page, "https://deals.test/search",
		RetryPolicy{Retries: 2, Backoff: time.Millisecond})

	require.NoError(t, err)
	assert.EqualValues(t, 2, page.Navigations.Load())
	assert.Equal(t, []string{"https://deals.test/search", "https://deals.test/search"}, page.URLs())
}

func TestNavigateWithRetry_StopsWhenRequestEnds(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	page := &browsertest.Page{
		NavigateFunc: func(context.Context, string) error {
			cancel()
			return context.Canceled
		},
	}

	err := NavigateWithRetry(ctx, page, "https://deals.test/search", RetryPolicy{Retries: 3})

	require.Error(t, err)
	assert.Equal(t, models.ErrCodeTimeout, models.CodeOf(err))
	assert.EqualValues(t, 1, page.Navigations.Load())
}
