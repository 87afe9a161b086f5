package browser

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Launcher bounds how many browsers may be alive across the whole process.
type Launcher struct {
	engine Engine
	opts   LaunchOptions
	slots  *semaphore.Weighted
}

// NewLauncher creates a launcher allowing at most maxBrowsers live browsers.
func NewLauncher(engine Engine, opts LaunchOptions, maxBrowsers int64) *Launcher {
	return &Launcher{
		engine: engine,
		opts:   opts,
		slots:  semaphore.NewWeighted(maxBrowsers),
	}
}

// Launch waits for a free slot and starts a browser. The returned browser
// gives its slot back when closed.
func (l *Launcher) Launch(ctx context.Context) (Browser, error) {
	if err := l.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("waiting for browser slot: %w", err)
	}

	b, err := l.engine.Launch(l.opts)
	if err != nil {
		l.slots.Release(1)
		return nil, err
	}

	return &slotBrowser{Browser: b, release: func() { l.slots.Release(1) }}, nil
}

type slotBrowser struct {
	Browser
	release func()
	once    sync.Once
}

func (b *slotBrowser) Close() error {
	err := b.Browser.Close()
	b.once.Do(b.release)
	return err
}
