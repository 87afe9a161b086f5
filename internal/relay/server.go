package relay

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/shehryarbajwa/headed-relay/internal/browser"
	"github.com/shehryarbajwa/headed-relay/internal/config"
	"github.com/shehryarbajwa/headed-relay/internal/session"
	"github.com/shehryarbajwa/headed-relay/pkg/models"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Options tunes per-connection behavior.
type Options struct {
	NotFoundPolicy    config.NotFoundPolicy
	NavigationTimeout time.Duration
	// MessagesPerSecond <= 0 disables inbound throttling.
	MessagesPerSecond float64
	MessageBurst      int
}

// OptionsFromConfig picks the relay options out of the loaded config.
func OptionsFromConfig(cfg *config.Relay) Options {
	return Options{
		NotFoundPolicy:    cfg.NotFoundPolicy,
		NavigationTimeout: cfg.NavigationTimeout,
		MessagesPerSecond: cfg.MessagesPerSecond,
		MessageBurst:      cfg.MessageBurst,
	}
}

// Server accepts relay WebSocket connections and executes their commands
// against real browsers.
type Server struct {
	launcher *browser.Launcher
	sessions *session.Manager
	opts     Options
}

func NewServer(launcher *browser.Launcher, sessions *session.Manager, opts Options) *Server {
	if opts.NotFoundPolicy == "" {
		opts.NotFoundPolicy = config.NotFoundError
	}
	return &Server{
		launcher: launcher,
		sessions: sessions,
		opts:     opts,
	}
}

// HandleConnection upgrades the request and serves relay commands until the
// client goes away. Everything the client created is closed on return.
func (s *Server) HandleConnection(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade connection: %v", err)
		return
	}
	defer ws.Close()

	sess := s.sessions.Open(r.RemoteAddr)
	log.Printf("✅ New WebSocket connection %s from %s", sess.ID[:8], r.RemoteAddr)

	c := &connection{
		server:  s,
		ws:      ws,
		sess:    sess,
		limiter: s.newLimiter(),
	}

	c.readLoop()

	log.Printf("🔌 Connection %s closed, cleaning up browsers...", sess.ID[:8])
	s.sessions.Release(sess)
}

func (s *Server) newLimiter() *rate.Limiter {
	if s.opts.MessagesPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.opts.MessageBurst
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.opts.MessagesPerSecond), burst)
}

type connection struct {
	server  *Server
	ws      *websocket.Conn
	sess    *session.Session
	limiter *rate.Limiter
	writeMu sync.Mutex
}

func (c *connection) readLoop() {
	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error (%s): %v", c.sess.ID[:8], err)
			}
			return
		}

		if err := c.limiter.Wait(c.sess.Context()); err != nil {
			return
		}

		// commands run independently so a slow navigation does not hold up
		// the rest of the connection
		go c.handle(message)
	}
}

func (c *connection) handle(message []byte) {
	resp, ok := c.dispatch(message)
	if !ok {
		return
	}
	c.send(resp)
}

func (c *connection) send(resp *models.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("❌ Failed to encode response: %v", err)
		return
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.sess.Closed() {
		return
	}
	if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
		log.Printf("Failed to write message (%s): %v", c.sess.ID[:8], err)
	}
}
