package keyedlock

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "taptrail/pkg/domain-errors"
)

func TestAcquireRelease(t *testing.T) {
	l := New()
	ctx := context.Background()

	release, err := l.Acquire(ctx, "card-1")
	require.NoError(t, err)
	release()

	// Lock is reusable after release.
	release, err = l.Acquire(ctx, "card-1")
	require.NoError(t, err)
	release()
}

func TestMutualExclusion(t *testing.T) {
	l := New()
	ctx := context.Background()

	const goroutines = 32
	var counter int
	var wg sync.WaitGroup
	wg.Add(goroutines)
	for range goroutines {
		go func() {
			defer wg.Done()
			release, err := l.Acquire(ctx, "card-1")
			if err != nil {
				return
			}
			defer release()
			// Racy without the lock; run with -race to verify.
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()
	assert.Equal(t, goroutines, counter)
}

func TestIndependentKeysDoNotBlock(t *testing.T) {
	l := New(WithWait(5 * time.Second))
	ctx := context.Background()

	releaseA, err := l.Acquire(ctx, "card-a")
	require.NoError(t, err)
	defer releaseA()

	// A different key acquires immediately even while card-a is held.
	done := make(chan struct{})
	go func() {
		defer close(done)
		releaseB, err := l.Acquire(ctx, "card-b")
		assert.NoError(t, err)
		releaseB()
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("acquire on independent key blocked")
	}
}

func TestBoundedWaitTimesOut(t *testing.T) {
	l := New(WithWait(50 * time.Millisecond))
	ctx := context.Background()

	release, err := l.Acquire(ctx, "card-1")
	require.NoError(t, err)
	defer release()

	_, err = l.Acquire(ctx, "card-1")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeTimeout))
	assert.True(t, dErrors.Retryable(err))
}

func TestContextCancellationAbortsWait(t *testing.T) {
	l := New(WithWait(5 * time.Second))

	release, err := l.Acquire(context.Background(), "card-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err = l.Acquire(ctx, "card-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, time.Since(start), time.Second)
}

func TestEntriesAreReclaimed(t *testing.T) {
	l := New()
	ctx := context.Background()

	for i := range 100 {
		release, err := l.Acquire(ctx, string(rune('a'+i%26)))
		require.NoError(t, err)
		release()
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.entries, "released keys must not leak entries")
}
