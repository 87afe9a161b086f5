package browser

import (
	"fmt"
	"io"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightEngine drives real browsers through the Playwright driver.
type PlaywrightEngine struct {
	pw          *playwright.Playwright
	browserType playwright.BrowserType
}

// NewPlaywrightEngine installs the driver and browser if needed and starts it.
func NewPlaywrightEngine(browserName string, verbose bool) (*PlaywrightEngine, error) {
	opts := &playwright.RunOptions{
		Browsers: []string{browserName},
		Verbose:  verbose,
	}
	if !verbose {
		opts.Stdout = io.Discard
		opts.Stderr = io.Discard
	}

	if err := playwright.Install(opts); err != nil {
		return nil, fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	var bt playwright.BrowserType
	switch browserName {
	case "firefox":
		bt = pw.Firefox
	case "webkit":
		bt = pw.WebKit
	default:
		bt = pw.Chromium
	}

	return &PlaywrightEngine{pw: pw, browserType: bt}, nil
}

// Launch starts a new browser process.
func (e *PlaywrightEngine) Launch(opts LaunchOptions) (Browser, error) {
	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	}
	// devtools is a chromium-only switch
	if opts.Devtools && e.browserType.Name() == "chromium" {
		launchOpts.Devtools = playwright.Bool(true)
	}

	b, err := e.browserType.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	return &pwBrowser{b: b}, nil
}

// Stop shuts the Playwright driver down.
func (e *PlaywrightEngine) Stop() error {
	if err := e.pw.Stop(); err != nil {
		return fmt.Errorf("failed to stop playwright: %w", err)
	}
	return nil
}

type pwBrowser struct {
	b playwright.Browser
}

func (b *pwBrowser) NewContext() (BrowsingContext, error) {
	c, err := b.b.NewContext()
	if err != nil {
		return nil, fmt.Errorf("failed to create context: %w", err)
	}
	return &pwContext{c: c}, nil
}

func (b *pwBrowser) Close() error {
	return b.b.Close()
}

type pwContext struct {
	c playwright.BrowserContext
}

func (c *pwContext) NewPage() (Page, error) {
	p, err := c.c.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	return &pwPage{p: p}, nil
}

func (c *pwContext) Close() error {
	return c.c.Close()
}

type pwPage struct {
	p playwright.Page
}

func (p *pwPage) Goto(url string, timeout time.Duration) error {
	opts := playwright.PageGotoOptions{}
	if timeout > 0 {
		opts.Timeout = playwright.Float(float64(timeout.Milliseconds()))
	}
	if _, err := p.p.Goto(url, opts); err != nil {
		return fmt.Errorf("navigation failed: %w", err)
	}
	return nil
}

func (p *pwPage) Content() (string, error) {
	return p.p.Content()
}

func (p *pwPage) Close() error {
	return p.p.Close()
}
