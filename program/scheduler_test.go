package main

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapWithIter(iter int) Snapshot {
	return Snapshot{
		Width:         8,
		Height:        8,
		Bounds:        homeBounds,
		ZoomLevel:     1,
		MaxIterations: iter,
		Oversampling:  1,
	}
}

func tinyBuffer() *PixelBuffer {
	return &PixelBuffer{Width: 1, Height: 1, Pix: make([]byte, 3)}
}

func receiveResult(t *testing.T, s *RenderScheduler) RenderResult {
	t.Helper()
	select {
	case res := <-s.Results():
		return res
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a render result")
		return RenderResult{}
	}
}

func expectNoResult(t *testing.T, s *RenderScheduler, within time.Duration) {
	t.Helper()
	select {
	case res := <-s.Results():
		t.Fatalf("unexpected render result: generation %d", res.Generation)
	case <-time.After(within):
	}
}

func TestSchedulerCollapsesBurstToLastSnapshot(t *testing.T) {
	var mu sync.Mutex
	var seen []int
	render := func(snap Snapshot) (*PixelBuffer, error) {
		mu.Lock()
		seen = append(seen, snap.MaxIterations)
		mu.Unlock()
		return tinyBuffer(), nil
	}

	s := newRenderScheduler(render, 30*time.Millisecond, 0)
	defer s.Close()

	for i := 1; i <= 5; i++ {
		s.Request(snapWithIter(i))
	}

	res := receiveResult(t, s)
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, 5, res.Snapshot.MaxIterations)

	expectNoResult(t, s, 150*time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{5}, seen)
	mu.Unlock()
}

func TestSchedulerDebounceResetExtendsWindow(t *testing.T) {
	render := func(snap Snapshot) (*PixelBuffer, error) {
		return tinyBuffer(), nil
	}
	s := newRenderScheduler(render, 60*time.Millisecond, 0)
	defer s.Close()

	s.Request(snapWithIter(1))
	time.Sleep(30 * time.Millisecond)
	s.Request(snapWithIter(2))

	res := receiveResult(t, s)
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, 2, res.Snapshot.MaxIterations)
	expectNoResult(t, s, 150*time.Millisecond)
}

func TestSchedulerPendingCollapsesToLatest(t *testing.T) {
	started := make(chan Snapshot, 4)
	release := make(chan struct{})
	render := func(snap Snapshot) (*PixelBuffer, error) {
		started <- snap
		<-release
		return tinyBuffer(), nil
	}

	s := newRenderScheduler(render, 10*time.Millisecond, 0)
	defer s.Close()

	s.Request(snapWithIter(1))
	first := <-started
	assert.Equal(t, 1, first.MaxIterations)

	// These arrive while generation 1 is in flight: no new dispatch, only the
	// latest snapshot is remembered.
	s.Request(snapWithIter(2))
	s.Request(snapWithIter(3))

	release <- struct{}{}
	res := receiveResult(t, s)
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(1), res.Generation)
	assert.Equal(t, 1, res.Snapshot.MaxIterations)

	// The pending snapshot dispatches immediately, without a debounce delay.
	second := <-started
	assert.Equal(t, 3, second.MaxIterations)

	release <- struct{}{}
	res = receiveResult(t, s)
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(2), res.Generation)
	assert.Equal(t, 3, res.Snapshot.MaxIterations)

	expectNoResult(t, s, 100*time.Millisecond)
}

func TestSchedulerSingleFlight(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	render := func(snap Snapshot) (*PixelBuffer, error) {
		n := inFlight.Add(1)
		for {
			old := maxInFlight.Load()
			if n <= old || maxInFlight.CompareAndSwap(old, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return tinyBuffer(), nil
	}

	s := newRenderScheduler(render, 5*time.Millisecond, 0)
	defer s.Close()

	done := 0
	for i := 0; i < 10; i++ {
		s.Request(snapWithIter(i + 1))
		if i%3 == 0 {
			res := receiveResult(t, s)
			require.NoError(t, res.Err)
			done++
		}
	}
	// Drain whatever is still in the pipeline.
	for {
		select {
		case <-s.Results():
		case <-time.After(200 * time.Millisecond):
			assert.Equal(t, int32(1), maxInFlight.Load(), "renders must never overlap")
			return
		}
	}
}

func TestSchedulerErrorPublishesAndDispatchesPending(t *testing.T) {
	started := make(chan Snapshot, 4)
	release := make(chan struct{})
	var calls atomic.Int32
	render := func(snap Snapshot) (*PixelBuffer, error) {
		started <- snap
		<-release
		if calls.Add(1) == 1 {
			return nil, errors.New("engine exploded")
		}
		return tinyBuffer(), nil
	}

	s := newRenderScheduler(render, 10*time.Millisecond, 0)
	defer s.Close()

	s.Request(snapWithIter(1))
	<-started
	s.Request(snapWithIter(2))
	release <- struct{}{}

	res := receiveResult(t, s)
	require.Error(t, res.Err)
	assert.Contains(t, res.Err.Error(), "engine exploded")
	assert.Equal(t, uint64(1), res.Generation)

	// A failure must not starve the pending snapshot.
	<-started
	release <- struct{}{}
	res = receiveResult(t, s)
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(2), res.Generation)
	assert.Equal(t, 2, res.Snapshot.MaxIterations)
}

func TestSchedulerTimeoutAbandonsStuckRender(t *testing.T) {
	release := make(chan struct{})
	render := func(snap Snapshot) (*PixelBuffer, error) {
		<-release
		return tinyBuffer(), nil
	}

	s := newRenderScheduler(render, 10*time.Millisecond, 50*time.Millisecond)
	defer s.Close()

	s.Request(snapWithIter(1))
	res := receiveResult(t, s)
	require.ErrorIs(t, res.Err, errRenderTimeout)
	assert.Equal(t, uint64(1), res.Generation)

	// The zombie's late completion is dropped, not published.
	close(release)
	expectNoResult(t, s, 100*time.Millisecond)

	// The scheduler stays available for new work.
	s.Request(snapWithIter(2))
	res = receiveResult(t, s)
	require.NoError(t, res.Err)
	assert.Equal(t, uint64(2), res.Generation)
}

func TestSchedulerRequestAfterCloseIsNoop(t *testing.T) {
	render := func(snap Snapshot) (*PixelBuffer, error) {
		return tinyBuffer(), nil
	}
	s := newRenderScheduler(render, 5*time.Millisecond, 0)
	s.Close()

	s.Request(snapWithIter(1))
	expectNoResult(t, s, 50*time.Millisecond)
}

func TestSchedulerGenerationsAscend(t *testing.T) {
	render := func(snap Snapshot) (*PixelBuffer, error) {
		return tinyBuffer(), nil
	}
	s := newRenderScheduler(render, 5*time.Millisecond, 0)
	defer s.Close()

	var last uint64
	for i := 0; i < 3; i++ {
		s.Request(snapWithIter(i + 1))
		res := receiveResult(t, s)
		require.NoError(t, res.Err)
		assert.Greater(t, res.Generation, last)
		last = res.Generation
	}
}
