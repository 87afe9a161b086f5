package launchserver

import (
	"context"
	"encoding/json"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shehryarbajwa/headed-relay/internal/config"
)

func testOptions() Options {
	return Options{
		Browser: "chromium",
		Port:    3337,
		Image:   "mcr.microsoft.com/playwright:v1.52.0-noble",
		Version: "1.52.0",
	}
}

func TestWatchOutput_FindsEndpoint(t *testing.T) {
	out := strings.NewReader("Downloading driver\n\n  ws://127.0.0.1:3337/abc123  \nws://ignored\n")
	found := make(chan string, 1)

	watchOutput(out, found)

	endpoint, ok := <-found
	require.True(t, ok)
	assert.Equal(t, "ws://127.0.0.1:3337/abc123", endpoint)
}

func TestWatchOutput_ClosesWithoutEndpoint(t *testing.T) {
	found := make(chan string, 1)
	watchOutput(strings.NewReader("Error: browser not installed\n"), found)

	_, ok := <-found
	assert.False(t, ok)
}

func TestWriteLaunchConfig(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions()

	path, err := writeLaunchConfig(dir, opts)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"headless":false,"port":3337}`, string(data))

	var cfg launchConfig
	require.NoError(t, json.Unmarshal(data, &cfg))
	assert.Equal(t, 3337, cfg.Port)
}

func TestContainerConfigs(t *testing.T) {
	containerConfig, hostConfig := containerConfigs(testOptions())

	assert.Equal(t, "mcr.microsoft.com/playwright:v1.52.0-noble", containerConfig.Image)
	assert.Contains(t, containerConfig.Cmd, "playwright@1.52.0")
	assert.Contains(t, containerConfig.Cmd, "run-server")
	assert.Equal(t, "headed-relay", containerConfig.Labels["managed-by"])
	assert.Contains(t, containerConfig.ExposedPorts, nat.Port(containerPort))

	bindings := hostConfig.PortBindings[nat.Port(containerPort)]
	require.Len(t, bindings, 1)
	assert.Equal(t, "3337", bindings[0].HostPort)
	require.NotNil(t, hostConfig.Init)
	assert.True(t, *hostConfig.Init)
}

func TestWaitForPort(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	err = waitForPort(context.Background(), ln.Addr().String(), time.Second)
	assert.NoError(t, err)
}

func TestWaitForPort_Timeout(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	err = waitForPort(context.Background(), addr, 200*time.Millisecond)
	assert.Error(t, err)
}

func TestWaitForPort_Cancelled(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = waitForPort(ctx, addr, 10*time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew(t *testing.T) {
	srv, err := New("local", testOptions())
	require.NoError(t, err)
	assert.IsType(t, &LocalServer{}, srv)

	_, err = New("k8s", testOptions())
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(&config.BrowserServer{
		Port:    4000,
		Browser: "firefox",
		Image:   "img",
		Version: "1.0.0",
	})
	assert.Equal(t, 4000, opts.Port)
	assert.Equal(t, "firefox", opts.Browser)
	assert.Equal(t, 60*time.Second, opts.ReadyTimeout)
}

func TestLocalServer_CloseBeforeStart(t *testing.T) {
	assert.NoError(t, NewLocal(testOptions()).Close(context.Background()))
}
