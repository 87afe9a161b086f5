package launchserver

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// LocalServer runs `launch-server` through the playwright-go driver.
type LocalServer struct {
	opts       Options
	cmd        *exec.Cmd
	configPath string
	exited     chan error
}

// NewLocal creates a local browser server; nothing starts until Start.
func NewLocal(opts Options) *LocalServer {
	return &LocalServer{opts: opts}
}

// launchConfig mirrors the subset of Playwright's launchServer options we set.
type launchConfig struct {
	Headless bool `json:"headless"`
	Port     int  `json:"port"`
}

// writeLaunchConfig stores the launchServer options as a JSON file in dir.
func writeLaunchConfig(dir string, opts Options) (string, error) {
	data, err := json.Marshal(launchConfig{Headless: opts.Headless, Port: opts.Port})
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("browser-server-%d.json", opts.Port))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write launch config: %w", err)
	}
	return path, nil
}

// Start installs the driver and browser if needed, launches the server and
// waits until it reports its endpoint.
func (s *LocalServer) Start(ctx context.Context) (string, error) {
	runOpts := &playwright.RunOptions{
		Browsers: []string{s.opts.Browser},
		Stdout:   io.Discard,
		Stderr:   os.Stderr,
	}

	if err := playwright.Install(runOpts); err != nil {
		return "", fmt.Errorf("failed to install playwright: %w", err)
	}

	driver, err := playwright.NewDriver(runOpts)
	if err != nil {
		return "", fmt.Errorf("failed to create playwright driver: %w", err)
	}

	configPath, err := writeLaunchConfig(os.TempDir(), s.opts)
	if err != nil {
		return "", err
	}
	s.configPath = configPath

	cmd := driver.Command("launch-server", "--browser", s.opts.Browser, "--config", configPath)
	cmd.Stderr = os.Stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("stdout pipe failed: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("failed to start browser server: %w", err)
	}
	s.cmd = cmd

	found := make(chan string, 1)
	s.exited = make(chan error, 1)
	go func() {
		watchOutput(stdout, found)
		s.exited <- cmd.Wait()
	}()

	timeout := s.opts.ReadyTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case endpoint, ok := <-found:
		if !ok {
			err := <-s.exited
			s.cmd = nil
			return "", fmt.Errorf("browser server exited before reporting its endpoint: %v", err)
		}
		return endpoint, nil
	case <-timer.C:
		s.kill()
		return "", fmt.Errorf("browser server did not report an endpoint within %s", timeout)
	case <-ctx.Done():
		s.kill()
		return "", ctx.Err()
	}
}

// watchOutput forwards the first ws:// line to found and logs the rest. found
// is closed if the stream ends without an endpoint.
func watchOutput(r io.Reader, found chan<- string) {
	scanner := bufio.NewScanner(r)
	sent := false
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !sent && (strings.HasPrefix(line, "ws://") || strings.HasPrefix(line, "wss://")) {
			found <- line
			sent = true
			continue
		}
		log.Printf("BROWSER-SERVER OUT: %s", line)
	}
	if !sent {
		close(found)
	}
}

// Close interrupts the server process and waits for it, killing it if it
// does not exit before ctx is done.
func (s *LocalServer) Close(ctx context.Context) error {
	defer func() {
		if s.configPath != "" {
			os.Remove(s.configPath)
		}
	}()

	if s.cmd == nil || s.cmd.Process == nil {
		return nil
	}

	if err := s.cmd.Process.Signal(os.Interrupt); err != nil {
		s.kill()
		return nil
	}

	select {
	case <-s.exited:
		return nil
	case <-ctx.Done():
		s.kill()
		return fmt.Errorf("browser server did not stop in time: %w", ctx.Err())
	}
}

func (s *LocalServer) kill() {
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
}
