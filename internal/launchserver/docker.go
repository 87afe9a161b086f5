package launchserver

import (
	"context"
	"fmt"
	"io"
	"log"
	"net"
	"strconv"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

const containerPort = "3000/tcp"

// DockerServer runs `playwright run-server` in the official Playwright image.
type DockerServer struct {
	client      *client.Client
	opts        Options
	containerID string
}

// NewDocker connects to the Docker daemon configured in the environment.
func NewDocker(opts Options) (*DockerServer, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create docker client: %w", err)
	}

	return &DockerServer{
		client: cli,
		opts:   opts,
	}, nil
}

// containerConfigs builds the container and host configuration for opts.
func containerConfigs(opts Options) (*container.Config, *container.HostConfig) {
	containerConfig := &container.Config{
		Image: opts.Image,
		Cmd: []string{
			"npx", "-y", "playwright@" + opts.Version,
			"run-server", "--port", "3000", "--host", "0.0.0.0",
		},
		Labels: map[string]string{
			"browser":    opts.Browser,
			"managed-by": "headed-relay",
		},
		ExposedPorts: nat.PortSet{
			containerPort: struct{}{},
		},
	}

	useInit := true
	hostConfig := &container.HostConfig{
		PortBindings: nat.PortMap{
			containerPort: []nat.PortBinding{
				{
					HostIP:   "0.0.0.0",
					HostPort: strconv.Itoa(opts.Port),
				},
			},
		},
		AutoRemove: false,
		Init:       &useInit,
		IpcMode:    "host",
	}

	return containerConfig, hostConfig
}

// Start pulls the image if needed, runs the container and waits for the
// server port to accept connections.
func (s *DockerServer) Start(ctx context.Context) (string, error) {
	if !s.opts.Headless {
		log.Println("⚠️ Containers have no display, browsers launched through this server run headless")
	}

	if err := s.ensureImage(ctx); err != nil {
		return "", err
	}

	containerConfig, hostConfig := containerConfigs(s.opts)
	resp, err := s.client.ContainerCreate(
		ctx,
		containerConfig,
		hostConfig,
		nil,
		nil,
		fmt.Sprintf("browser-server-%d", s.opts.Port),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create container: %w", err)
	}
	s.containerID = resp.ID

	if err := s.client.ContainerStart(ctx, resp.ID, container.StartOptions{}); err != nil {
		return "", fmt.Errorf("failed to start container: %w", err)
	}

	addr := net.JoinHostPort("localhost", strconv.Itoa(s.opts.Port))
	if err := waitForPort(ctx, addr, s.opts.ReadyTimeout); err != nil {
		return "", fmt.Errorf("browser server failed to become ready: %w", err)
	}

	return fmt.Sprintf("ws://%s/", addr), nil
}

// Close stops and removes the container and releases the client.
func (s *DockerServer) Close(ctx context.Context) error {
	defer s.client.Close()

	if s.containerID == "" {
		return nil
	}

	timeout := 10
	if err := s.client.ContainerStop(ctx, s.containerID, container.StopOptions{Timeout: &timeout}); err != nil {
		return fmt.Errorf("failed to stop container: %w", err)
	}

	if err := s.client.ContainerRemove(ctx, s.containerID, container.RemoveOptions{}); err != nil {
		return fmt.Errorf("failed to remove container: %w", err)
	}

	return nil
}

func (s *DockerServer) ensureImage(ctx context.Context) error {
	images, err := s.client.ImageList(ctx, image.ListOptions{})
	if err != nil {
		return err
	}

	for _, img := range images {
		for _, tag := range img.RepoTags {
			if tag == s.opts.Image {
				return nil
			}
		}
	}

	log.Printf("⏳ Pulling %s...", s.opts.Image)
	reader, err := s.client.ImagePull(ctx, s.opts.Image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("failed to pull image: %w", err)
	}
	defer reader.Close()

	_, err = io.Copy(io.Discard, reader)
	return err
}

// waitForPort polls addr until a TCP connection succeeds.
func waitForPort(ctx context.Context, addr string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, time.Second)
		if err == nil {
			conn.Close()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(500 * time.Millisecond):
		}
	}

	return fmt.Errorf("%s did not accept connections within %s", addr, timeout)
}
