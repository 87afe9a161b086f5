package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/shehryarbajwa/headed-relay/internal/browser"
	"github.com/shehryarbajwa/headed-relay/pkg/models"
)

var (
	// ErrNotFound is returned when a handle id is unknown to the session.
	ErrNotFound = errors.New("not found")
	// ErrClosed is returned once the owning connection has gone away.
	ErrClosed = errors.New("session closed")
)

type browserEntry struct {
	browser  browser.Browser
	contexts map[string]struct{}
}

type contextEntry struct {
	context   browser.BrowsingContext
	browserID string
	pages     map[string]struct{}
}

type pageEntry struct {
	page      browser.Page
	contextID string
}

// Session owns every browser, context and page created over one relay
// connection. Contexts record their browser and pages their context, so
// closing a browser invalidates everything below it.
type Session struct {
	ID         string
	RemoteAddr string
	StartedAt  time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closed   bool
	browsers map[string]*browserEntry
	contexts map[string]*contextEntry
	pages    map[string]*pageEntry
}

// New creates an empty session for a connection from remoteAddr.
func New(remoteAddr string) *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ID:         uuid.New().String(),
		RemoteAddr: remoteAddr,
		StartedAt:  time.Now(),
		ctx:        ctx,
		cancel:     cancel,
		browsers:   make(map[string]*browserEntry),
		contexts:   make(map[string]*contextEntry),
		pages:      make(map[string]*pageEntry),
	}
}

// Context is cancelled when the session closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func newID(kind string) string {
	return kind + "_" + uuid.New().String()
}

// AddBrowser registers a freshly launched browser together with its default
// context. If the session is already closed the caller still owns b and
// must close it.
func (s *Session) AddBrowser(b browser.Browser, c browser.BrowsingContext) (browserID, contextID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", "", ErrClosed
	}

	browserID = newID("browser")
	contextID = newID("context")

	s.browsers[browserID] = &browserEntry{
		browser:  b,
		contexts: map[string]struct{}{contextID: {}},
	}
	s.contexts[contextID] = &contextEntry{
		context:   c,
		browserID: browserID,
		pages:     make(map[string]struct{}),
	}
	return browserID, contextID, nil
}

// BrowsingContext looks up a context handle.
func (s *Session) BrowsingContext(contextID string) (browser.BrowsingContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	entry, ok := s.contexts[contextID]
	if !ok {
		return nil, fmt.Errorf("%w: context %s", ErrNotFound, contextID)
	}
	return entry.context, nil
}

// AddPage registers a page under an existing context.
func (s *Session) AddPage(contextID string, p browser.Page) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return "", ErrClosed
	}
	entry, ok := s.contexts[contextID]
	if !ok {
		// context was closed while the page was being created
		return "", fmt.Errorf("%w: context %s", ErrNotFound, contextID)
	}

	pageID := newID("page")
	entry.pages[pageID] = struct{}{}
	s.pages[pageID] = &pageEntry{page: p, contextID: contextID}
	return pageID, nil
}

// Page looks up a page handle.
func (s *Session) Page(pageID string) (browser.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrClosed
	}
	entry, ok := s.pages[pageID]
	if !ok {
		return nil, fmt.Errorf("%w: page %s", ErrNotFound, pageID)
	}
	return entry.page, nil
}

// CloseBrowser closes one browser and drops its contexts and pages.
func (s *Session) CloseBrowser(browserID string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	entry, ok := s.browsers[browserID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: browser %s", ErrNotFound, browserID)
	}
	s.dropBrowserLocked(browserID, entry)
	s.mu.Unlock()

	if err := entry.browser.Close(); err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}
	return nil
}

func (s *Session) dropBrowserLocked(browserID string, entry *browserEntry) {
	for contextID := range entry.contexts {
		if ctxEntry, ok := s.contexts[contextID]; ok {
			for pageID := range ctxEntry.pages {
				delete(s.pages, pageID)
			}
		}
		delete(s.contexts, contextID)
	}
	delete(s.browsers, browserID)
}

// Close marks the session closed, forgets every handle and closes all of
// its browsers concurrently. Close errors are logged and swallowed. Calling
// Close more than once is a no-op.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	browsers := make([]browser.Browser, 0, len(s.browsers))
	for _, entry := range s.browsers {
		browsers = append(browsers, entry.browser)
	}
	s.browsers = make(map[string]*browserEntry)
	s.contexts = make(map[string]*contextEntry)
	s.pages = make(map[string]*pageEntry)
	s.mu.Unlock()

	s.cancel()

	var g errgroup.Group
	for _, b := range browsers {
		b := b
		g.Go(func() error {
			if err := b.Close(); err != nil {
				log.Printf("⚠️ Failed to close browser for session %s: %v", s.ID[:8], err)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Info summarizes the session for the status API.
func (s *Session) Info() models.ConnectionInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return models.ConnectionInfo{
		ID:         s.ID,
		RemoteAddr: s.RemoteAddr,
		StartedAt:  s.StartedAt,
		Browsers:   len(s.browsers),
		Contexts:   len(s.contexts),
		Pages:      len(s.pages),
	}
}
