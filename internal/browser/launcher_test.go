package browser_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/headed-relay/internal/browser"
	"github.com/shehryarbajwa/headed-relay/internal/browser/browsertest"
)

func TestLauncher_PassesOptions(t *testing.T) {
	engine := browsertest.NewEngine()
	l := browser.NewLauncher(engine, browser.LaunchOptions{Headless: false, Devtools: true}, 2)

	b, err := l.Launch(context.Background())
	require.NoError(t, err)
	require.NotNil(t, b)

	assert.Equal(t, browser.LaunchOptions{Headless: false, Devtools: true}, engine.Options())
	assert.Equal(t, 1, engine.OpenBrowsers())
}

func TestLauncher_BlocksWhenFull(t *testing.T) {
	engine := browsertest.NewEngine()
	l := browser.NewLauncher(engine, browser.LaunchOptions{}, 1)

	first, err := l.Launch(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = l.Launch(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))

	// closing frees the slot, twice is harmless
	require.NoError(t, first.Close())
	require.NoError(t, first.Close())

	second, err := l.Launch(context.Background())
	require.NoError(t, err)
	require.NoError(t, second.Close())

	// the double close above must not have released an extra slot
	a, err := l.Launch(context.Background())
	require.NoError(t, err)
	ctx2, cancel2 := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel2()
	_, err = l.Launch(ctx2)
	assert.Error(t, err)
	require.NoError(t, a.Close())
}

func TestLauncher_LaunchErrorReleasesSlot(t *testing.T) {
	engine := browsertest.NewEngine()
	engine.SetLaunchErr(errors.New("no display"))
	l := browser.NewLauncher(engine, browser.LaunchOptions{}, 1)

	_, err := l.Launch(context.Background())
	require.EqualError(t, err, "no display")

	engine.SetLaunchErr(nil)
	b, err := l.Launch(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, b)
}
