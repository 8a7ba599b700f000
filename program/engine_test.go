package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func engineSnapshot(w, h, iter, over int) Snapshot {
	return Snapshot{
		Width:         w,
		Height:        h,
		Bounds:        homeBounds,
		ZoomLevel:     1,
		MaxIterations: iter,
		Colors: ColorParams{
			Thetas:        [3]float64{0.0, 0.15, 0.25},
			CycleDensity:  32,
			StripeDensity: 16,
			StripeSig:     0.9,
		},
		Oversampling: over,
	}
}

func TestEngineRendersExpectedDimensions(t *testing.T) {
	e := newEngine(2)
	buf, err := e.Render(engineSnapshot(32, 24, 100, 1))
	require.NoError(t, err)
	assert.Equal(t, 32, buf.Width)
	assert.Equal(t, 24, buf.Height)
	assert.Len(t, buf.Pix, 32*24*3)
}

func TestEngineOversamplingKeepsOutputSize(t *testing.T) {
	e := newEngine(2)
	buf, err := e.Render(engineSnapshot(16, 16, 50, 3))
	require.NoError(t, err)
	assert.Equal(t, 16, buf.Width)
	assert.Equal(t, 16, buf.Height)
	assert.Len(t, buf.Pix, 16*16*3)
}

func TestEngineInteriorIsBlackExteriorIsNot(t *testing.T) {
	e := newEngine(4)
	snap := engineSnapshot(64, 64, 200, 1)
	buf, err := e.Render(snap)
	require.NoError(t, err)

	// The home view is centered close to the main cardioid: the middle pixel
	// never escapes and stays black.
	r, g, b := buf.RGBAt(32, 32)
	assert.Zero(t, r)
	assert.Zero(t, g)
	assert.Zero(t, b)

	// The top-left corner is far outside the set and escapes immediately.
	r, g, b = buf.RGBAt(0, 0)
	assert.NotEqual(t, [3]byte{0, 0, 0}, [3]byte{r, g, b})
}

func TestEngineIsDeterministic(t *testing.T) {
	e := newEngine(3)
	snap := engineSnapshot(40, 30, 80, 1)

	a, err := e.Render(snap)
	require.NoError(t, err)
	b, err := e.Render(snap)
	require.NoError(t, err)
	assert.Equal(t, a.Pix, b.Pix)
}

func TestEngineRejectsInvalidSnapshots(t *testing.T) {
	e := newEngine(1)

	snap := engineSnapshot(0, 16, 100, 1)
	_, err := e.Render(snap)
	require.ErrorIs(t, err, errInvalidViewport)

	snap = engineSnapshot(16, 16, 100, 1)
	snap.Bounds = Bounds{XMin: 1, XMax: 1, YMin: 0, YMax: 1}
	_, err = e.Render(snap)
	require.ErrorIs(t, err, errInvalidViewport)

	snap = engineSnapshot(16, 16, 0, 1)
	_, err = e.Render(snap)
	require.ErrorIs(t, err, errInvalidViewport)
}

func TestIterateEscapeBehavior(t *testing.T) {
	// Origin is in the set.
	_, _, escaped := iterate(0, 0, 100, 0)
	assert.False(t, escaped)

	// A point far from the set escapes with a small positive smooth count.
	mu, _, escaped := iterate(2, 2, 100, 0)
	assert.True(t, escaped)
	assert.GreaterOrEqual(t, mu, 0.0)
	assert.Less(t, mu, 5.0)
}

func TestShadeStepPosterizes(t *testing.T) {
	table := sinColortable([3]float64{0.0, 0.15, 0.25})
	cp := ColorParams{CycleDensity: 32, StepDensity: 4}

	// Two close smooth counts inside the same step map to the same color.
	r1, g1, b1 := shade(1.0, 0, cp, table)
	r2, g2, b2 := shade(1.5, 0, cp, table)
	assert.Equal(t, [3]byte{r1, g1, b1}, [3]byte{r2, g2, b2})
}
