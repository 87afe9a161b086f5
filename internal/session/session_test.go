package session

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/headed-relay/internal/browser"
	"github.com/shehryarbajwa/headed-relay/internal/browser/browsertest"
)

func launch(t *testing.T, engine *browsertest.Engine) (browser.Browser, browser.BrowsingContext) {
	t.Helper()
	b, err := engine.Launch(browser.LaunchOptions{})
	require.NoError(t, err)
	c, err := b.NewContext()
	require.NoError(t, err)
	return b, c
}

func TestSession_AddBrowserAndLookup(t *testing.T) {
	engine := browsertest.NewEngine()
	sess := New("127.0.0.1:5000")

	b, c := launch(t, engine)
	browserID, contextID, err := sess.AddBrowser(b, c)
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(browserID, "browser_"))
	assert.True(t, strings.HasPrefix(contextID, "context_"))

	got, err := sess.BrowsingContext(contextID)
	require.NoError(t, err)
	assert.Same(t, c, got)

	p, err := c.NewPage()
	require.NoError(t, err)
	pageID, err := sess.AddPage(contextID, p)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(pageID, "page_"))

	gotPage, err := sess.Page(pageID)
	require.NoError(t, err)
	assert.Same(t, p, gotPage)
}

func TestSession_IDsAreUnique(t *testing.T) {
	engine := browsertest.NewEngine()
	sess := New("test")

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		b, c := launch(t, engine)
		browserID, contextID, err := sess.AddBrowser(b, c)
		require.NoError(t, err)
		assert.False(t, seen[browserID])
		assert.False(t, seen[contextID])
		seen[browserID] = true
		seen[contextID] = true
	}
}

func TestSession_UnknownHandles(t *testing.T) {
	sess := New("test")

	_, err := sess.BrowsingContext("context_missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = sess.Page("page_missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = sess.AddPage("context_missing", nil)
	assert.True(t, errors.Is(err, ErrNotFound))

	err = sess.CloseBrowser("browser_missing")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSession_CloseBrowserCascades(t *testing.T) {
	engine := browsertest.NewEngine()
	sess := New("test")

	b1, c1 := launch(t, engine)
	browser1, context1, err := sess.AddBrowser(b1, c1)
	require.NoError(t, err)
	p1, err := c1.NewPage()
	require.NoError(t, err)
	page1, err := sess.AddPage(context1, p1)
	require.NoError(t, err)

	b2, c2 := launch(t, engine)
	_, context2, err := sess.AddBrowser(b2, c2)
	require.NoError(t, err)

	require.NoError(t, sess.CloseBrowser(browser1))

	_, err = sess.BrowsingContext(context1)
	assert.True(t, errors.Is(err, ErrNotFound))
	_, err = sess.Page(page1)
	assert.True(t, errors.Is(err, ErrNotFound))

	// the other browser is untouched
	_, err = sess.BrowsingContext(context2)
	assert.NoError(t, err)

	info := sess.Info()
	assert.Equal(t, 1, info.Browsers)
	assert.Equal(t, 1, info.Contexts)
	assert.Equal(t, 0, info.Pages)
	assert.Equal(t, 1, engine.OpenBrowsers())
}

func TestSession_CloseClosesEverything(t *testing.T) {
	engine := browsertest.NewEngine()
	sess := New("test")

	for i := 0; i < 3; i++ {
		b, c := launch(t, engine)
		_, _, err := sess.AddBrowser(b, c)
		require.NoError(t, err)
	}
	// a failing close must not stop the others
	engine.Browsers()[0].CloseErr = errors.New("already gone")

	sess.Close()
	sess.Close()

	assert.True(t, sess.Closed())
	assert.Equal(t, 0, engine.OpenBrowsers())
	assert.Error(t, sess.Context().Err())

	info := sess.Info()
	assert.Zero(t, info.Browsers)
	assert.Zero(t, info.Contexts)
	assert.Zero(t, info.Pages)
}

func TestSession_RejectsAfterClose(t *testing.T) {
	engine := browsertest.NewEngine()
	sess := New("test")
	sess.Close()

	b, c := launch(t, engine)
	_, _, err := sess.AddBrowser(b, c)
	assert.True(t, errors.Is(err, ErrClosed))

	_, err = sess.BrowsingContext("x")
	assert.True(t, errors.Is(err, ErrClosed))
	_, err = sess.Page("x")
	assert.True(t, errors.Is(err, ErrClosed))
	assert.True(t, errors.Is(sess.CloseBrowser("x"), ErrClosed))
}
