package browser_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/use-agent/dealsearch/browser"
	"github.com/use-agent/dealsearch/browser/browsertest"
	"github.com/use-agent/dealsearch/models"
)

func TestManager_StartStop(t *testing.T) {
	eng := &browsertest.Engine{}
	m := browser.NewManager(eng)

	assert.False(t, m.Ready())
	_, err := m.Browser()
	require.ErrorIs(t, err, browser.ErrUnavailable)

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.Ready())
	b, err := m.Browser()
	require.NoError(t, err)
	require.NotNil(t, b)

	m.Stop()
	assert.False(t, m.Ready())
	assert.True(t, eng.Browser.Closed.Load())
	assert.EqualValues(t, 1, eng.Shutdowns.Load())
	_, err = m.Browser()
	require.ErrorIs(t, err, browser.ErrUnavailable)
}

func TestManager_StartIsIdempotent(t *testing.T) {
	eng := &browsertest.Engine{}
	m := browser.NewManager(eng)

	require.NoError(t, m.Start(context.Background()))
	require.NoError(t, m.Start(context.Background()))
	assert.EqualValues(t, 1, eng.Launches.Load())
}

func TestManager_LaunchFailureUnwinds(t *testing.T) {
	eng := &browsertest.Engine{LaunchErr: errors.New("no chrome binary")}
	m := browser.NewManager(eng)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeUnavailable, models.CodeOf(err))
	assert.False(t, m.Ready())
	assert.EqualValues(t, 0, eng.Connects.Load())
	assert.EqualValues(t, 1, eng.Shutdowns.Load())
}

func TestManager_ConnectFailureUnwinds(t *testing.T) {
	eng := &browsertest.Engine{ConnectErr: errors.New("websocket refused")}
	m := browser.NewManager(eng)

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, models.ErrCodeUnavailable, models.CodeOf(err))
	assert.False(t, m.Ready())
	assert.EqualValues(t, 1, eng.Shutdowns.Load())

	_, err = m.Browser()
	require.ErrorIs(t, err, browser.ErrUnavailable)
}

func TestManager_StopToleratesFailures(t *testing.T) {
	eng := &browsertest.Engine{
		Browser:     &browsertest.Browser{CloseErr: errors.New("target closed")},
		ShutdownErr: errors.New("process already exited"),
	}
	m := browser.NewManager(eng)
	require.NoError(t, m.Start(context.Background()))

	assert.NotPanics(t, m.Stop)
	assert.False(t, m.Ready())
}

func TestManager_StopWithoutStart(t *testing.T) {
	m := browser.NewManager(&browsertest.Engine{})
	assert.NotPanics(t, m.Stop)
	assert.NotPanics(t, m.Stop)
	assert.False(t, m.Ready())
}

func TestManager_ConcurrentAccess(t *testing.T) {
	m := browser.NewManager(&browsertest.Engine{})
	require.NoError(t, m.Start(context.Background()))

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			b, err := m.Browser()
			if err == nil {
				_, _ = b.NewPage(context.Background())
			}
		}()
	}
	wg.Wait()
	m.Stop()
}

func TestNavigationError_Timeout(t *testing.T) {
	assert.True(t, (&browser.NavigationError{Reason: "net::ERR_TIMED_OUT"}).Timeout())
	assert.True(t, (&browser.NavigationError{Reason: "net::ERR_CONNECTION_TIMED_OUT"}).Timeout())
	assert.False(t, (&browser.NavigationError{Reason: "net::ERR_NAME_NOT_RESOLVED"}).Timeout())
}

func TestBlockedSet(t *testing.T) {
	set := browser.BlockedSet([]string{"Image", "Font", "Bogus"})
	assert.Len(t, set, 2)
	assert.Contains(t, set, proto.NetworkResourceTypeImage)
	assert.Contains(t, set, proto.NetworkResourceTypeFont)
	assert.Empty(t, browser.BlockedSet(nil))
}
