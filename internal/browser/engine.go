package browser

import "time"

// Engine launches browser processes. The relay only talks to this interface
// so tests can swap in an in-memory engine.
type Engine interface {
	Launch(opts LaunchOptions) (Browser, error)
	Stop() error
}

// Browser is a running browser process.
type Browser interface {
	NewContext() (BrowsingContext, error)
	Close() error
}

// BrowsingContext is an isolated cookie/storage scope inside a browser.
type BrowsingContext interface {
	NewPage() (Page, error)
	Close() error
}

// Page is a single tab.
type Page interface {
	Goto(url string, timeout time.Duration) error
	Content() (string, error)
	Close() error
}

// LaunchOptions controls how a browser is started
type LaunchOptions struct {
	Headless bool
	Devtools bool
}
