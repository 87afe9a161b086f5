package session

import (
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/shehryarbajwa/headed-relay/pkg/models"
)

// Manager tracks the live session of every relay connection so the process
// can tear all of them down on shutdown.
type Manager struct {
	sessions sync.Map // map[sessionID]*Session
}

// NewManager creates an empty session manager
func NewManager() *Manager {
	return &Manager{}
}

// Open creates and tracks a session for a new connection.
func (m *Manager) Open(remoteAddr string) *Session {
	sess := New(remoteAddr)
	m.sessions.Store(sess.ID, sess)
	return sess
}

// Release closes a session and stops tracking it.
func (m *Manager) Release(sess *Session) {
	m.sessions.Delete(sess.ID)
	sess.Close()
}

// Count returns the number of tracked sessions.
func (m *Manager) Count() int {
	n := 0
	m.sessions.Range(func(key, value interface{}) bool {
		n++
		return true
	})
	return n
}

// List returns a summary of every tracked session, oldest first.
func (m *Manager) List() []models.ConnectionInfo {
	infos := []models.ConnectionInfo{}
	m.sessions.Range(func(key, value interface{}) bool {
		infos = append(infos, value.(*Session).Info())
		return true
	})
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].StartedAt.Before(infos[j].StartedAt)
	})
	return infos
}

// CloseAll closes every tracked session and its browsers.
func (m *Manager) CloseAll() {
	var g errgroup.Group
	m.sessions.Range(func(key, value interface{}) bool {
		m.sessions.Delete(key)
		sess := value.(*Session)
		g.Go(func() error {
			sess.Close()
			return nil
		})
		return true
	})
	_ = g.Wait()
}
