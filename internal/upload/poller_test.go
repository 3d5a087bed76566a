package upload

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func statusSequence(states ...*Processing) StatusFunc {
	i := 0
	return func(context.Context) (*Processing, error) {
		p := states[min(i, len(states)-1)]
		i++
		return p, nil
	}
}

func TestTrackRecordsStateAndAttempts(t *testing.T) {
	poller := NewPoller(DefaultConfig())
	poller.Sleep = noSleep

	s := &Session{MediaID: "media-1", State: StateInProgress}
	err := poller.Track(context.Background(), s, &Processing{State: StatePending},
		statusSequence(&Processing{State: StateInProgress, Progress: 50}, &Processing{State: StateSucceeded}))
	require.NoError(t, err)

	assert.Equal(t, StateSucceeded, s.State)
	assert.Equal(t, 2, s.Attempts)
	assert.Equal(t, StateSucceeded, s.Processing.State)
}

func TestTrackFailureMarksSession(t *testing.T) {
	poller := NewPoller(DefaultConfig())
	poller.Sleep = noSleep

	s := &Session{MediaID: "media-1"}
	err := poller.Track(context.Background(), s, &Processing{State: StateInProgress},
		statusSequence(&Processing{State: StateFailed, Detail: "InvalidMedia"}))

	var failed *ProcessingFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, 1, s.Attempts)
	assert.Equal(t, "InvalidMedia", s.Processing.Detail)
}

func TestTrackTimeoutCountsEveryQuery(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPollAttempts = 3
	poller := NewPoller(cfg)
	poller.Sleep = noSleep

	s := &Session{MediaID: "media-1"}
	err := poller.Track(context.Background(), s, &Processing{State: StateInProgress},
		statusSequence(&Processing{State: StateInProgress}))

	assert.ErrorIs(t, err, ErrProcessingTimeout)
	assert.Equal(t, StateFailed, s.State)
	assert.Equal(t, 3, s.Attempts)
}

func TestTrackReadyAfterFinalize(t *testing.T) {
	poller := NewPoller(DefaultConfig())
	s := &Session{MediaID: "media-1", State: StateInProgress}

	require.NoError(t, poller.Track(context.Background(), s, nil, nil))
	assert.Equal(t, StateSucceeded, s.State)
	assert.Zero(t, s.Attempts)
}
