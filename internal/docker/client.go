// Package docker reads the container and image inventory published in agent
// frames.
package docker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"pulse/internal/models"
)

// Client wraps the Docker SDK client.
type Client struct {
	inner *client.Client
	log   *slog.Logger
}

// New creates a client from the environment. host overrides DOCKER_HOST when
// set. The daemon is not contacted until the first call.
func New(host string, logger *slog.Logger) (*Client, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}
	inner, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, fmt.Errorf("create docker client: %w", err)
	}
	return &Client{inner: inner, log: logger}, nil
}

func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.inner == nil {
		return fmt.Errorf("docker client not initialized")
	}
	ping, err := c.inner.Ping(ctx)
	if err != nil {
		return fmt.Errorf("docker ping: %w", err)
	}
	if ping.APIVersion == "" {
		return fmt.Errorf("docker ping returned empty API version")
	}
	return nil
}

// Inventory lists running containers and local images. available is false
// when the daemon cannot be reached; partial results are never returned.
func (c *Client) Inventory(ctx context.Context) (available bool, containers []models.Container, images []models.Image) {
	if c == nil || c.inner == nil {
		return false, []models.Container{}, []models.Image{}
	}
	list, err := c.inner.ContainerList(ctx, container.ListOptions{})
	if err != nil {
		c.log.Debug("list containers", "err", err)
		return false, []models.Container{}, []models.Image{}
	}
	imgs, err := c.inner.ImageList(ctx, image.ListOptions{})
	if err != nil {
		c.log.Debug("list images", "err", err)
		return false, []models.Container{}, []models.Image{}
	}
	return true, Containers(list), Images(imgs)
}

func (c *Client) Close() error {
	if c == nil || c.inner == nil {
		return nil
	}
	return c.inner.Close()
}
