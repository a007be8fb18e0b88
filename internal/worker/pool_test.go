package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDoReturnsResult(t *testing.T) {
	p := NewPool(2)
	assert.Equal(t, 2, p.Workers())

	boom := errors.New("boom")
	assert.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
	assert.ErrorIs(t, p.Do(context.Background(), func(context.Context) error { return boom }), boom)
}

func TestDoRecoversPanic(t *testing.T) {
	p := NewPool(1)
	err := p.Do(context.Background(), func(context.Context) error { panic("kaput") })
	assert.ErrorContains(t, err, "kaput")

	// the slot must have been released
	assert.NoError(t, p.Do(context.Background(), func(context.Context) error { return nil }))
}

func TestDoLimitsConcurrency(t *testing.T) {
	p := NewPool(2)

	var running, peak atomic.Int32
	release := make(chan struct{})
	errs := make(chan error, 5)

	for i := 0; i < 5; i++ {
		go func() {
			errs <- p.Do(context.Background(), func(context.Context) error {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				<-release
				running.Add(-1)
				return nil
			})
		}()
	}

	require.Eventually(t, func() bool { return running.Load() == 2 }, time.Second, 5*time.Millisecond)
	close(release)
	for i := 0; i < 5; i++ {
		require.NoError(t, <-errs)
	}
	assert.Equal(t, int32(2), peak.Load())
}

func TestDoCancelledWhileWaitingForSlot(t *testing.T) {
	p := NewPool(1)
	release := make(chan struct{})
	defer close(release)

	started := make(chan struct{})
	go func() {
		_ = p.Do(context.Background(), func(context.Context) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewPoolClampsSize(t *testing.T) {
	assert.Equal(t, 1, NewPool(0).Workers())
}
