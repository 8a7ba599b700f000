package main

import (
	"errors"
	"fmt"
	"math"
)

var (
	errOutOfBounds     = errors.New("pixel coordinate out of bounds")
	errInvalidViewport = errors.New("invalid viewport")
)

// homeBounds is the classic full-set view the explorer starts from.
var homeBounds = Bounds{XMin: -2.6, XMax: 1.845, YMin: -1.25, YMax: 1.25}

// Bounds is the visible rectangular region of the complex plane.
type Bounds struct {
	XMin, XMax float64
	YMin, YMax float64
}

func (b Bounds) Width() float64  { return b.XMax - b.XMin }
func (b Bounds) Height() float64 { return b.YMax - b.YMin }

func (b Bounds) Center() (float64, float64) {
	return (b.XMin + b.XMax) / 2, (b.YMin + b.YMax) / 2
}

func (b Bounds) degenerate() bool {
	if b.XMax <= b.XMin || b.YMax <= b.YMin {
		return true
	}
	return math.IsNaN(b.Width()) || math.IsInf(b.Width(), 0) ||
		math.IsNaN(b.Height()) || math.IsInf(b.Height(), 0)
}

// ColorParams are the palette knobs the engine consumes. StripeDensity and
// CycleDensity are the pair the zoom-adaptive adjustment rewrites.
type ColorParams struct {
	Thetas        [3]float64
	CycleDensity  int
	StripeDensity int
	StripeSig     float64
	StepDensity   int
}

// Viewport is the single mutable view record for a session. All mutation
// happens on the control thread through the methods below; workers only ever
// see immutable Snapshots.
type Viewport struct {
	PixelWidth  int
	PixelHeight int
	Bounds      Bounds
	ZoomLevel   float64

	BaseIterations int
	MaxIterations  int
	IterationCap   int
	DynamicIter    bool

	Colors         ColorParams
	AdaptiveColors bool

	Oversampling int

	history *HistoryStack
}

// Snapshot is the immutable per-dispatch copy of a Viewport handed to a
// render worker. The generation id is stamped by the scheduler, not here.
type Snapshot struct {
	Width, Height int
	Bounds        Bounds
	ZoomLevel     float64
	MaxIterations int
	Colors        ColorParams
	Oversampling  int
	Precision     PrecisionInfo
}

func newViewport(width, height int, cfg Config, history *HistoryStack) (*Viewport, error) {
	v := &Viewport{
		PixelWidth:     width,
		PixelHeight:    height,
		Bounds:         homeBounds,
		ZoomLevel:      1.0,
		BaseIterations: cfg.BaseIterations,
		MaxIterations:  cfg.BaseIterations,
		IterationCap:   cfg.IterationCap,
		DynamicIter:    cfg.DynamicIterations,
		AdaptiveColors: true,
		Oversampling:   cfg.Oversampling,
		history:        history,
	}
	v.Colors = ColorParams{
		Thetas:       [3]float64{0.0, 0.15, 0.25},
		CycleDensity: 32,
		StripeSig:    0.9,
	}
	v.refreshDerived()
	if err := v.FitAspectRatio(width, height); err != nil {
		return nil, err
	}
	return v, nil
}

// PixelToComplex maps a surface pixel onto the plane. Row 0 is the top of the
// surface and maps to YMax.
func (v *Viewport) PixelToComplex(px, py float64) (float64, float64, error) {
	w, h := float64(v.PixelWidth), float64(v.PixelHeight)
	if px < 0 || px >= w || py < 0 || py >= h {
		return 0, 0, fmt.Errorf("%w: (%g,%g) outside %dx%d", errOutOfBounds, px, py, v.PixelWidth, v.PixelHeight)
	}
	nx := px / w
	ny := 1 - py/h
	re := v.Bounds.XMin + nx*v.Bounds.Width()
	im := v.Bounds.YMin + ny*v.Bounds.Height()
	return re, im, nil
}

// ComplexToPixel is the exact inverse of PixelToComplex for points inside the
// current bounds.
func (v *Viewport) ComplexToPixel(re, im float64) (float64, float64, error) {
	if re < v.Bounds.XMin || re > v.Bounds.XMax || im < v.Bounds.YMin || im > v.Bounds.YMax {
		return 0, 0, fmt.Errorf("%w: (%g,%g) outside current bounds", errOutOfBounds, re, im)
	}
	nx := (re - v.Bounds.XMin) / v.Bounds.Width()
	ny := (im - v.Bounds.YMin) / v.Bounds.Height()
	px := nx * float64(v.PixelWidth)
	py := (1 - ny) * float64(v.PixelHeight)
	return px, py, nil
}

// FitAspectRatio recomputes the bounds for a new surface size, preserving the
// center and the x-range. Called on every resize, zoom and home reset so the
// picture never stretches.
func (v *Viewport) FitAspectRatio(newWidth, newHeight int) error {
	if newWidth <= 0 || newHeight <= 0 {
		return fmt.Errorf("%w: %dx%d surface", errInvalidViewport, newWidth, newHeight)
	}
	cx, cy := v.Bounds.Center()
	xRange := v.Bounds.Width()
	yRange := xRange * float64(newHeight) / float64(newWidth)
	v.PixelWidth = newWidth
	v.PixelHeight = newHeight
	v.Bounds = Bounds{
		XMin: cx - xRange/2,
		XMax: cx + xRange/2,
		YMin: cy - yRange/2,
		YMax: cy + yRange/2,
	}
	return nil
}

// ZoomAt recenters the view on (targetRe,targetIm) and rescales it by factor:
// factor < 1 zooms in, factor > 1 zooms out. The half-height is always derived
// from the aspect invariant, never scaled independently.
func (v *Viewport) ZoomAt(targetRe, targetIm, factor float64) error {
	if factor <= 0 || math.IsNaN(factor) || math.IsInf(factor, 0) {
		return fmt.Errorf("%w: zoom factor %g", errInvalidViewport, factor)
	}
	v.history.Push(v.Bounds)
	halfW := v.Bounds.Width() / 2 * factor
	halfH := halfW * float64(v.PixelHeight) / float64(v.PixelWidth)
	v.Bounds = Bounds{
		XMin: targetRe - halfW,
		XMax: targetRe + halfW,
		YMin: targetIm - halfH,
		YMax: targetIm + halfH,
	}
	v.ZoomLevel /= factor
	v.refreshDerived()
	return nil
}

// Pan shifts the view by a screen-space delta: positive dx moves the camera
// right, positive dy moves it down.
func (v *Viewport) Pan(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	v.history.Push(v.Bounds)
	shiftX := float64(dx) / float64(v.PixelWidth) * v.Bounds.Width()
	shiftY := float64(dy) / float64(v.PixelHeight) * v.Bounds.Height()
	v.Bounds.XMin += shiftX
	v.Bounds.XMax += shiftX
	v.Bounds.YMin -= shiftY
	v.Bounds.YMax -= shiftY
}

// Resize adjusts the surface dimensions, refitting the bounds. Resizes are
// not navigation, so no history entry is pushed.
func (v *Viewport) Resize(width, height int) error {
	return v.FitAspectRatio(width, height)
}

// ResetHome restores the initial view refit to the current surface aspect,
// drops the zoom back to 1 and the iteration budget back to base.
func (v *Viewport) ResetHome() error {
	v.history.Push(v.Bounds)
	v.Bounds = homeBounds
	v.ZoomLevel = 1.0
	v.MaxIterations = v.BaseIterations
	v.refreshDerived()
	return v.FitAspectRatio(v.PixelWidth, v.PixelHeight)
}

func (v *Viewport) SetBaseIterations(n int) error {
	if n < 1 || n > v.IterationCap {
		return fmt.Errorf("%w: base iterations %d not in [1,%d]", errInvalidViewport, n, v.IterationCap)
	}
	v.BaseIterations = n
	if v.DynamicIter {
		v.refreshDerived()
		return nil
	}
	v.MaxIterations = n
	return nil
}

func (v *Viewport) SetOversampling(n int) error {
	if n < 1 || n > 3 {
		return fmt.Errorf("%w: oversampling %d not in [1,3]", errInvalidViewport, n)
	}
	v.Oversampling = n
	return nil
}

func (v *Viewport) SetDynamicIterations(on bool) {
	v.DynamicIter = on
	if on {
		v.refreshDerived()
		return
	}
	v.MaxIterations = v.BaseIterations
}

// ApplyPreset pins a named preset. A pinned preset sticks: the zoom-adaptive
// adjustment stays out of the way until the user switches back to adaptive.
func (v *Viewport) ApplyPreset(p ColorPreset) {
	v.Colors = ColorParams{
		Thetas:        p.Thetas,
		CycleDensity:  p.CycleDensity,
		StripeDensity: p.StripeDensity,
		StripeSig:     p.StripeSig,
		StepDensity:   p.StepDensity,
	}
	v.AdaptiveColors = false
}

func (v *Viewport) SetAdaptiveColors() {
	v.AdaptiveColors = true
	v.refreshDerived()
}

// refreshDerived recomputes the zoom-dependent parameters: the iteration
// budget (only applied when it moved by more than 10%, to avoid recomputing
// for noise) and, unless a preset is pinned, the color banding densities.
func (v *Viewport) refreshDerived() {
	if v.DynamicIter {
		est := estimateIterations(v.ZoomLevel, v.BaseIterations, v.IterationCap)
		if math.Abs(float64(est-v.MaxIterations)) > 0.1*float64(v.MaxIterations) {
			v.MaxIterations = est
		}
	}
	if v.AdaptiveColors {
		stripe, cycle := adaptColorDensity(v.ZoomLevel)
		v.Colors.StripeDensity = stripe
		v.Colors.CycleDensity = cycle
	}
}

func (v *Viewport) validate() error {
	if v.PixelWidth <= 0 || v.PixelHeight <= 0 {
		return fmt.Errorf("%w: %dx%d surface", errInvalidViewport, v.PixelWidth, v.PixelHeight)
	}
	if v.Bounds.degenerate() {
		return fmt.Errorf("%w: degenerate bounds %+v", errInvalidViewport, v.Bounds)
	}
	if v.ZoomLevel <= 0 {
		return fmt.Errorf("%w: zoom level %g", errInvalidViewport, v.ZoomLevel)
	}
	if v.MaxIterations < 1 || v.MaxIterations > v.IterationCap {
		return fmt.Errorf("%w: max iterations %d not in [1,%d]", errInvalidViewport, v.MaxIterations, v.IterationCap)
	}
	return nil
}

// Snapshot copies everything a render worker needs, with the precision
// advisory for the current depth attached.
func (v *Viewport) Snapshot() Snapshot {
	return Snapshot{
		Width:         v.PixelWidth,
		Height:        v.PixelHeight,
		Bounds:        v.Bounds,
		ZoomLevel:     v.ZoomLevel,
		MaxIterations: v.MaxIterations,
		Colors:        v.Colors,
		Oversampling:  v.Oversampling,
		Precision:     precisionAtZoom(v.ZoomLevel),
	}
}
