package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/maheshrc27/crosspost/internal/publish"
)

type ContainerSpec struct {
	Asset        *publish.MediaAsset
	Caption      string
	CarouselItem bool
	Children     []string
}

// ContainerTransport is the provider side of container-based publishing.
type ContainerTransport interface {
	CreateContainer(ctx context.Context, spec ContainerSpec) (string, error)
	ContainerStatus(ctx context.Context, containerID string) (*Processing, error)
	PublishContainer(ctx context.Context, containerID string) (string, error)
}

type ContainerPublisher struct {
	transport ContainerTransport
	poller    Poller
}

func NewContainerPublisher(t ContainerTransport, cfg Config) *ContainerPublisher {
	if cfg.MaxPollAttempts <= 0 {
		cfg = DefaultConfig()
	}
	return &ContainerPublisher{transport: t, poller: NewPoller(cfg)}
}

func (c *ContainerPublisher) WithSleep(sleep SleepFunc) *ContainerPublisher {
	c.poller.Sleep = sleep
	return c
}

// Publish creates the containers for assets and publishes them as one post.
// More than one asset becomes a carousel; if any child fails the parent is
// never created.
func (c *ContainerPublisher) Publish(ctx context.Context, caption string, assets []publish.MediaAsset) (string, error) {
	switch len(assets) {
	case 0:
		return "", publish.NewError(publish.KindContent, "container publishing needs at least one media asset")
	case 1:
		id, err := c.create(ctx, ContainerSpec{Asset: &assets[0], Caption: caption})
		if err != nil {
			return "", err
		}
		return c.publish(ctx, id)
	}

	children := make([]string, 0, len(assets))
	for i := range assets {
		id, err := c.create(ctx, ContainerSpec{Asset: &assets[i], CarouselItem: true})
		if err != nil {
			return "", fmt.Errorf("carousel item %d: %w", i, err)
		}
		children = append(children, id)
	}

	parent, err := c.create(ctx, ContainerSpec{Caption: caption, Children: children})
	if err != nil {
		return "", fmt.Errorf("carousel: %w", err)
	}
	return c.publish(ctx, parent)
}

func (c *ContainerPublisher) create(ctx context.Context, spec ContainerSpec) (string, error) {
	id, err := c.transport.CreateContainer(ctx, spec)
	if err != nil {
		return "", err
	}

	// Video items and carousels are processed asynchronously.
	if spec.Asset != nil && !spec.Asset.IsVideo() {
		return id, nil
	}
	err = c.poller.Wait(ctx, id, &Processing{State: StatePending}, func(ctx context.Context) (*Processing, error) {
		return c.transport.ContainerStatus(ctx, id)
	})
	if err != nil {
		var failed *ProcessingFailedError
		if errors.As(err, &failed) || errors.Is(err, ErrProcessingTimeout) {
			return "", publish.WrapError(publish.KindMedia, err, "container %s", id)
		}
		return "", err
	}
	return id, nil
}

func (c *ContainerPublisher) publish(ctx context.Context, containerID string) (string, error) {
	id, err := c.transport.PublishContainer(ctx, containerID)
	if err != nil {
		return "", fmt.Errorf("publishing container %s: %w", containerID, err)
	}
	return id, nil
}
