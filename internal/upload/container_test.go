package upload

import (
	"context"
	"errors"
	"testing"

	"github.com/maheshrc27/crosspost/internal/publish"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeContainers struct {
	created   []ContainerSpec
	failItem  int
	states    map[string]State
	published []string
}

func (f *fakeContainers) CreateContainer(_ context.Context, spec ContainerSpec) (string, error) {
	if spec.CarouselItem && len(f.created) == f.failItem {
		return "", errors.New("invalid image url")
	}
	f.created = append(f.created, spec)
	return "c" + string(rune('0'+len(f.created))), nil
}

func (f *fakeContainers) ContainerStatus(_ context.Context, id string) (*Processing, error) {
	if s, ok := f.states[id]; ok {
		return &Processing{State: s}, nil
	}
	return &Processing{State: StateSucceeded}, nil
}

func (f *fakeContainers) PublishContainer(_ context.Context, id string) (string, error) {
	f.published = append(f.published, id)
	return "media-" + id, nil
}

func newContainerPublisher(f *fakeContainers) *ContainerPublisher {
	return NewContainerPublisher(f, DefaultConfig()).WithSleep(noSleep)
}

func TestContainerSingleImage(t *testing.T) {
	f := &fakeContainers{failItem: -1}
	id, err := newContainerPublisher(f).Publish(context.Background(), "hello", []publish.MediaAsset{
		{URL: "https://cdn.example.com/a.jpg", Kind: publish.MediaImage},
	})
	require.NoError(t, err)
	assert.Equal(t, "media-c1", id)
	require.Len(t, f.created, 1)
	assert.Equal(t, "hello", f.created[0].Caption)
	assert.False(t, f.created[0].CarouselItem)
}

func TestContainerCarousel(t *testing.T) {
	f := &fakeContainers{failItem: -1}
	id, err := newContainerPublisher(f).Publish(context.Background(), "set", []publish.MediaAsset{
		{URL: "https://cdn.example.com/a.jpg", Kind: publish.MediaImage},
		{URL: "https://cdn.example.com/b.mp4", Kind: publish.MediaVideo},
	})
	require.NoError(t, err)
	assert.Equal(t, "media-c3", id)
	require.Len(t, f.created, 3)
	assert.Equal(t, []string{"c1", "c2"}, f.created[2].Children)
	assert.Equal(t, "set", f.created[2].Caption)
}

func TestContainerCarouselAbortsOnChildFailure(t *testing.T) {
	f := &fakeContainers{failItem: 1}
	_, err := newContainerPublisher(f).Publish(context.Background(), "set", []publish.MediaAsset{
		{URL: "https://cdn.example.com/a.jpg", Kind: publish.MediaImage},
		{URL: "https://cdn.example.com/b.jpg", Kind: publish.MediaImage},
		{URL: "https://cdn.example.com/c.jpg", Kind: publish.MediaImage},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "carousel item 1")
	assert.Len(t, f.created, 1)
	for _, spec := range f.created {
		assert.Empty(t, spec.Children, "parent must not be created")
	}
	assert.Empty(t, f.published)
}

func TestContainerVideoProcessingFailure(t *testing.T) {
	f := &fakeContainers{failItem: -1, states: map[string]State{"c1": StateFailed}}
	_, err := newContainerPublisher(f).Publish(context.Background(), "clip", []publish.MediaAsset{
		{URL: "https://cdn.example.com/v.mp4", Kind: publish.MediaVideo},
	})
	require.Error(t, err)
	assert.Equal(t, publish.KindMedia, publish.Classify(err).Kind)
	assert.Empty(t, f.published)
}
