// Package browsertest provides an in-memory browser engine for tests.
package browsertest

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shehryarbajwa/headed-relay/internal/browser"
)

// ErrClosed is returned by any call on a closed fake object.
var ErrClosed = errors.New("target closed")

// Engine is a fake browser.Engine. Pages render a fixed HTML template with
// the navigated URL, or the body registered in Sites.
type Engine struct {
	mu       sync.Mutex
	browsers []*Browser
	stopped  bool

	// LaunchErr, when set, is returned from Launch.
	LaunchErr error
	// GotoErr, when set, is returned from every Goto.
	GotoErr error
	// LaunchDelay makes Launch block for the given duration.
	LaunchDelay time.Duration
	// Sites maps a URL to the HTML a page shows after navigating to it.
	Sites map[string]string
	// LastOptions records the options of the most recent launch.
	LastOptions browser.LaunchOptions
}

// NewEngine returns an empty fake engine.
func NewEngine() *Engine {
	return &Engine{Sites: map[string]string{}}
}

// SetLaunchErr changes the error returned from Launch.
func (e *Engine) SetLaunchErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LaunchErr = err
}

// SetGotoErr changes the error returned from Goto.
func (e *Engine) SetGotoErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.GotoErr = err
}

// SetLaunchDelay changes how long Launch blocks.
func (e *Engine) SetLaunchDelay(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.LaunchDelay = d
}

// SetSite registers the HTML served for url.
func (e *Engine) SetSite(url, html string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Sites[url] = html
}

// Options returns the options of the most recent launch.
func (e *Engine) Options() browser.LaunchOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.LastOptions
}

func (e *Engine) Launch(opts browser.LaunchOptions) (browser.Browser, error) {
	e.mu.Lock()
	delay := e.LaunchDelay
	e.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.LaunchErr != nil {
		return nil, e.LaunchErr
	}
	e.LastOptions = opts
	b := &Browser{engine: e}
	e.browsers = append(e.browsers, b)
	return b, nil
}

func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.stopped = true
	return nil
}

// Stopped reports whether Stop was called.
func (e *Engine) Stopped() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopped
}

// Browsers returns every browser launched so far.
func (e *Engine) Browsers() []*Browser {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Browser(nil), e.browsers...)
}

// OpenBrowsers counts browsers that have not been closed.
func (e *Engine) OpenBrowsers() int {
	n := 0
	for _, b := range e.Browsers() {
		if !b.Closed() {
			n++
		}
	}
	return n
}

func (e *Engine) render(url string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if body, ok := e.Sites[url]; ok {
		return body
	}
	return fmt.Sprintf("<html><head><title>%s</title></head><body><h1>%s</h1></body></html>", url, url)
}

// Browser is a fake browser.Browser.
type Browser struct {
	engine *Engine
	mu     sync.Mutex
	closed bool
	// CloseErr, when set, is returned from Close after the browser is closed.
	CloseErr error
}

func (b *Browser) NewContext() (browser.BrowsingContext, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrClosed
	}
	return &Context{browser: b}, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return b.CloseErr
}

// Closed reports whether Close was called.
func (b *Browser) Closed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// Context is a fake browser.BrowsingContext.
type Context struct {
	browser *Browser
	mu      sync.Mutex
	closed  bool
}

func (c *Context) NewPage() (browser.Page, error) {
	if c.isClosed() {
		return nil, ErrClosed
	}
	return &Page{context: c, html: "<html><head></head><body></body></html>"}, nil
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *Context) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed || c.browser.Closed()
}

// Page is a fake browser.Page.
type Page struct {
	context *Context
	mu      sync.Mutex
	html    string
	closed  bool
}

func (p *Page) Goto(url string, timeout time.Duration) error {
	if p.isClosed() {
		return ErrClosed
	}
	engine := p.context.browser.engine
	engine.mu.Lock()
	gotoErr := engine.GotoErr
	engine.mu.Unlock()
	if gotoErr != nil {
		return gotoErr
	}

	html := engine.render(url)
	p.mu.Lock()
	p.html = html
	p.mu.Unlock()
	return nil
}

func (p *Page) Content() (string, error) {
	if p.isClosed() {
		return "", ErrClosed
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *Page) isClosed() bool {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	return closed || p.context.isClosed()
}
