package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/headed-relay/internal/browser"
	"github.com/shehryarbajwa/headed-relay/internal/browser/browsertest"
	"github.com/shehryarbajwa/headed-relay/internal/ratelimit"
	"github.com/shehryarbajwa/headed-relay/internal/relay"
	"github.com/shehryarbajwa/headed-relay/internal/session"
	"github.com/shehryarbajwa/headed-relay/pkg/models"
)

func newTestServer(t *testing.T, limiter *ratelimit.Limiter) (*httptest.Server, *session.Manager) {
	t.Helper()
	sessions := session.NewManager()
	launcher := browser.NewLauncher(browsertest.NewEngine(), browser.LaunchOptions{}, 4)
	relayServer := relay.NewServer(launcher, sessions, relay.Options{})

	router := NewHandler(sessions).SetupRoutes(relayServer, limiter)
	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return ts, sessions
}

func wsURL(ts *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + path
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, ratelimit.NewLimiter(0, 0))

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var status models.HealthStatus
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, 0, status.Connections)
}

func TestListConnections(t *testing.T) {
	ts, sessions := newTestServer(t, ratelimit.NewLimiter(0, 0))

	for _, path := range []string{"/", "/ws"} {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, path), nil)
		require.NoError(t, err)
		defer conn.Close()
	}
	require.Eventually(t, func() bool { return sessions.Count() == 2 }, time.Second, 10*time.Millisecond)

	resp, err := http.Get(ts.URL + "/v1/connections")
	require.NoError(t, err)
	defer resp.Body.Close()

	var infos []models.ConnectionInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&infos))
	assert.Len(t, infos, 2)
	for _, info := range infos {
		assert.NotEmpty(t, info.ID)
		assert.Zero(t, info.Browsers)
	}
}

func TestUpgradeRateLimited(t *testing.T) {
	ts, _ := newTestServer(t, ratelimit.NewLimiter(1, 1))

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, "/"), nil)
	require.NoError(t, err)
	defer conn.Close()

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "/"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)

	// status endpoints are not limited
	health, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	health.Body.Close()
	assert.Equal(t, http.StatusOK, health.StatusCode)
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "192.168.1.5:40000"
	assert.Equal(t, "192.168.1.5", clientKey(r))

	r.RemoteAddr = "weird"
	assert.Equal(t, "weird", clientKey(r))
}
