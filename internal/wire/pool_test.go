package wire

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBlockingPool_SubmitReturnsResult(t *testing.T) {
	p := newBlockingPool(2)
	defer p.close()

	v, err := p.submit(context.Background(), func() (interface{}, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestBlockingPool_SubmitPropagatesError(t *testing.T) {
	p := newBlockingPool(1)
	defer p.close()

	boom := errors.New("boom")
	_, err := p.submit(context.Background(), func() (interface{}, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBlockingPool_ContextCancellationStopsWaiting(t *testing.T) {
	p := newBlockingPool(1)
	defer p.close()

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_, _ = p.submit(context.Background(), func() (interface{}, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	ctx2, cancel2 := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel2()
	_, err := p.submit(ctx2, func() (interface{}, error) {
		return 1, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	cancel()
	close(release)
}

func TestBlockingPool_DefaultsWorkerCount(t *testing.T) {
	p := newBlockingPool(0)
	defer p.close()
	assert.NotNil(t, p.jobs)
}
