package main

import (
	"errors"
	"sync/atomic"
	"time"
)

type durationRing struct {
	buf   []time.Duration
	idx   int
	count int
}

func newDurationRing(n int) *durationRing {
	if n < 1 {
		n = 1
	}
	return &durationRing{buf: make([]time.Duration, n)}
}

func (r *durationRing) add(d time.Duration) {
	if len(r.buf) == 0 {
		return
	}
	r.buf[r.idx] = d
	r.idx++
	if r.idx >= len(r.buf) {
		r.idx = 0
	}
	if r.count < len(r.buf) {
		r.count++
	}
}

type durationStats struct {
	last time.Duration
	max  time.Duration
	avg  time.Duration
	n    int
}

func (r *durationRing) snapshot() durationStats {
	if r.count == 0 {
		return durationStats{}
	}
	var sum time.Duration
	var max time.Duration
	for i := 0; i < r.count; i++ {
		d := r.buf[i]
		sum += d
		if d > max {
			max = d
		}
	}

	lastIdx := r.idx - 1
	if lastIdx < 0 {
		lastIdx = len(r.buf) - 1
	}
	last := r.buf[lastIdx]

	return durationStats{
		last: last,
		max:  max,
		avg:  sum / time.Duration(r.count),
		n:    r.count,
	}
}

// seriesMillis returns the recorded durations oldest-first, in milliseconds,
// zero-padded to the ring capacity so the plot keeps a stable width.
func (r *durationRing) seriesMillis() []float64 {
	out := make([]float64, len(r.buf))
	for i := 0; i < r.count; i++ {
		j := r.idx - r.count + i
		if j < 0 {
			j += len(r.buf)
		}
		out[len(out)-r.count+i] = float64(r.buf[j]) / float64(time.Millisecond)
	}
	return out
}

// renderMetrics tracks the render pipeline: frame and failure counts plus a
// window of recent render durations.
type renderMetrics struct {
	enabled atomic.Bool

	startedNs atomic.Int64
	frames    atomic.Uint64
	errors    atomic.Uint64
	timeouts  atomic.Uint64

	durations *durationRing
}

func newRenderMetrics(window int) *renderMetrics {
	m := &renderMetrics{
		durations: newDurationRing(window),
	}
	m.startedNs.Store(time.Now().UnixNano())
	return m
}

func (m *renderMetrics) setEnabled(v bool) { m.enabled.Store(v) }
func (m *renderMetrics) isEnabled() bool   { return m.enabled.Load() }

func (m *renderMetrics) observeRender(res RenderResult) {
	if !m.isEnabled() {
		return
	}
	switch {
	case res.Err == nil:
		m.frames.Add(1)
		m.durations.add(res.Elapsed)
	case errors.Is(res.Err, errRenderTimeout):
		m.timeouts.Add(1)
	default:
		m.errors.Add(1)
	}
}

type metricsSnapshot struct {
	started     time.Time
	frames      uint64
	errors      uint64
	timeouts    uint64
	renderStats durationStats
	series      []float64
}

func (m *renderMetrics) snapshot() metricsSnapshot {
	if !m.isEnabled() {
		return metricsSnapshot{}
	}
	started := time.Time{}
	if ns := m.startedNs.Load(); ns != 0 {
		started = time.Unix(0, ns)
	}
	return metricsSnapshot{
		started:     started,
		frames:      m.frames.Load(),
		errors:      m.errors.Load(),
		timeouts:    m.timeouts.Load(),
		renderStats: m.durations.snapshot(),
		series:      m.durations.seriesMillis(),
	}
}
