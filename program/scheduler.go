package main

import (
	"errors"
	"sync"
	"time"
)

var errRenderTimeout = errors.New("render timed out")

// PixelBuffer is a finished frame: packed RGB, 3 bytes per pixel, row-major
// from the top-left.
type PixelBuffer struct {
	Width  int
	Height int
	Pix    []byte
}

// RGBAt returns the color of pixel (x,y). Out-of-range coordinates read as
// black.
func (p *PixelBuffer) RGBAt(x, y int) (r, g, b byte) {
	if x < 0 || x >= p.Width || y < 0 || y >= p.Height {
		return 0, 0, 0
	}
	i := (y*p.Width + x) * 3
	return p.Pix[i], p.Pix[i+1], p.Pix[i+2]
}

// RenderResult is what a worker hands back: the frame (or the error it hit),
// tagged with the generation it was computed for.
type RenderResult struct {
	Generation uint64
	Snapshot   Snapshot
	Buffer     *PixelBuffer
	Elapsed    time.Duration
	Err        error
}

// RenderFunc is the external engine contract: a pure, thread-safe function of
// its snapshot. It may be slow; it must not mutate the snapshot.
type RenderFunc func(Snapshot) (*PixelBuffer, error)

type schedState int

const (
	schedIdle schedState = iota
	schedDebouncing
	schedRendering
	schedRenderingPending
)

// RenderScheduler turns a stream of viewport snapshots into at most one
// concurrently running render. Bursts inside the debounce window collapse to
// the last snapshot; a request arriving mid-render is remembered (latest
// only) and dispatched the instant the in-flight render completes. Results
// are delivered in dispatch order on the Results channel, so the displayed
// frame can never regress to an older view once the stream quiesces.
type RenderScheduler struct {
	render   RenderFunc
	debounce time.Duration
	timeout  time.Duration
	results  chan RenderResult

	mu         sync.Mutex
	state      schedState
	stored     Snapshot  // latest snapshot while debouncing
	pending    *Snapshot // latest snapshot while rendering
	generation uint64
	inflight   uint64 // generation currently rendering, 0 if none
	timer      *time.Timer
	timerEpoch uint64
	watchdog   *time.Timer
	closed     bool
}

func newRenderScheduler(render RenderFunc, debounce, timeout time.Duration) *RenderScheduler {
	return &RenderScheduler{
		render:   render,
		debounce: debounce,
		timeout:  timeout,
		results:  make(chan RenderResult, 16),
	}
}

// Results delivers completed renders. Drain it on the control thread only.
func (s *RenderScheduler) Results() <-chan RenderResult { return s.results }

// Request is the only entry point: non-blocking, never fails, safe to call
// from the control thread at any rate.
func (s *RenderScheduler) Request(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	switch s.state {
	case schedIdle:
		s.stored = snap
		s.state = schedDebouncing
		s.armTimerLocked()
	case schedDebouncing:
		s.stored = snap
		s.armTimerLocked()
	case schedRendering:
		s.pending = &snap
		s.state = schedRenderingPending
	case schedRenderingPending:
		s.pending = &snap
	}
}

// armTimerLocked (re)starts the debounce timer. The epoch guards against a
// stale timer callback that lost the race with a Reset.
func (s *RenderScheduler) armTimerLocked() {
	s.timerEpoch++
	epoch := s.timerEpoch
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.debounceFired(epoch) })
}

func (s *RenderScheduler) debounceFired(epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.state != schedDebouncing || epoch != s.timerEpoch {
		return
	}
	s.dispatchLocked(s.stored)
}

func (s *RenderScheduler) dispatchLocked(snap Snapshot) {
	s.generation++
	gen := s.generation
	s.inflight = gen
	s.state = schedRendering
	if s.timeout > 0 {
		s.watchdog = time.AfterFunc(s.timeout, func() { s.renderTimedOut(gen, snap) })
	}
	go s.run(snap, gen)
}

func (s *RenderScheduler) run(snap Snapshot, gen uint64) {
	start := time.Now()
	buf, err := s.render(snap)
	s.settle(gen, RenderResult{
		Generation: gen,
		Snapshot:   snap,
		Buffer:     buf,
		Elapsed:    time.Since(start),
		Err:        err,
	})
}

// renderTimedOut abandons a stuck render: the scheduler publishes a timeout
// error and moves on, and the zombie's eventual completion is discarded by
// the generation check in settle.
func (s *RenderScheduler) renderTimedOut(gen uint64, snap Snapshot) {
	s.settle(gen, RenderResult{
		Generation: gen,
		Snapshot:   snap,
		Err:        errRenderTimeout,
	})
}

// settle publishes a completion for generation gen, then dispatches the
// pending snapshot if one accumulated while gen was in flight. Late
// completions of abandoned generations are dropped.
func (s *RenderScheduler) settle(gen uint64, res RenderResult) {
	s.mu.Lock()
	if s.closed || gen != s.inflight {
		s.mu.Unlock()
		return
	}
	s.inflight = 0
	if s.watchdog != nil {
		s.watchdog.Stop()
		s.watchdog = nil
	}
	var next *Snapshot
	if s.pending != nil {
		next = s.pending
		s.pending = nil
		// Stay in Rendering so requests landing between publish and the
		// follow-up dispatch queue up as pending again.
		s.state = schedRendering
	} else {
		s.state = schedIdle
	}
	s.mu.Unlock()

	s.results <- res

	if next != nil {
		s.mu.Lock()
		if !s.closed {
			s.dispatchLocked(*next)
		}
		s.mu.Unlock()
	}
}

// Close stops the timers and makes further requests no-ops. In-flight workers
// finish quietly; their results are dropped.
func (s *RenderScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.inflight = 0
	if s.timer != nil {
		s.timer.Stop()
	}
	if s.watchdog != nil {
		s.watchdog.Stop()
	}
}
