package main

import (
	"fmt"
	"image"
	"math"
	"runtime"
	"sync"

	xdraw "golang.org/x/image/draw"
)

const escapeRadiusSq = 4.0

// Engine computes Mandelbrot frames. It is a pure function of the snapshot it
// receives: safe to call from any goroutine, never mutates its input.
type Engine struct {
	workers int
}

func newEngine(workers int) *Engine {
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{workers: workers}
}

// Render produces the frame for a snapshot. Oversampled snapshots are
// computed at the oversampling factor and downscaled with a Catmull-Rom
// kernel.
func (e *Engine) Render(snap Snapshot) (*PixelBuffer, error) {
	if snap.Width <= 0 || snap.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d surface", errInvalidViewport, snap.Width, snap.Height)
	}
	if snap.Bounds.degenerate() {
		return nil, fmt.Errorf("%w: degenerate bounds %+v", errInvalidViewport, snap.Bounds)
	}
	if snap.MaxIterations < 1 {
		return nil, fmt.Errorf("%w: max iterations %d", errInvalidViewport, snap.MaxIterations)
	}

	over := snap.Oversampling
	if over < 1 {
		over = 1
	}
	w, h := snap.Width*over, snap.Height*over

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	table := sinColortable(snap.Colors.Thetas)

	// Stripe the rows across the workers; rows are independent.
	var wg sync.WaitGroup
	for part := 0; part < e.workers; part++ {
		wg.Add(1)
		go func(part int) {
			defer wg.Done()
			for y := part; y < h; y += e.workers {
				e.renderRow(img, snap, table, y, w, h)
			}
		}(part)
	}
	wg.Wait()

	if over > 1 {
		small := image.NewRGBA(image.Rect(0, 0, snap.Width, snap.Height))
		xdraw.CatmullRom.Scale(small, small.Bounds(), img, img.Bounds(), xdraw.Src, nil)
		img = small
	}
	return packRGB(img), nil
}

func (e *Engine) renderRow(img *image.RGBA, snap Snapshot, table [][3]byte, y, w, h int) {
	b := snap.Bounds
	im := b.YMin + (1-(float64(y)+0.5)/float64(h))*b.Height()
	for x := 0; x < w; x++ {
		re := b.XMin + (float64(x)+0.5)/float64(w)*b.Width()
		mu, stripe, escaped := iterate(re, im, snap.MaxIterations, snap.Colors.StripeDensity)
		i := (y*img.Stride + x*4)
		if !escaped {
			img.Pix[i+3] = 0xff
			continue
		}
		r, g, bl := shade(mu, stripe, snap.Colors, table)
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = bl
		img.Pix[i+3] = 0xff
	}
}

// iterate runs the escape-time loop for c = re+im*i. It returns the smooth
// iteration count, the stripe-average term for the configured density, and
// whether the orbit escaped at all.
func iterate(re, im float64, maxIter, stripeDensity int) (mu, stripe float64, escaped bool) {
	var zr, zi float64
	var stripeSum float64
	n := 0
	for i := 0; i < maxIter; i++ {
		zr, zi = zr*zr-zi*zi+re, 2*zr*zi+im
		if stripeDensity > 0 {
			stripeSum += 0.5 + 0.5*math.Sin(float64(stripeDensity)*math.Atan2(zi, zr))
			n++
		}
		if zr*zr+zi*zi > escapeRadiusSq {
			modulus := math.Sqrt(zr*zr + zi*zi)
			mu = float64(i) + 1 - math.Log(math.Log(modulus))/math.Ln2
			if mu < 0 {
				mu = 0
			}
			if n > 0 {
				stripe = stripeSum / float64(n)
			}
			return mu, stripe, true
		}
	}
	return float64(maxIter), 0, false
}

// shade maps a smooth iteration count onto the colortable, applying the cycle
// density, optional posterization steps, and the stripe shading mix.
func shade(mu, stripe float64, cp ColorParams, table [][3]byte) (byte, byte, byte) {
	cycle := float64(cp.CycleDensity)
	if cycle <= 0 {
		cycle = 32
	}
	t := math.Mod(mu/cycle, 1.0)
	if t < 0 {
		t += 1
	}
	if cp.StepDensity > 0 {
		steps := float64(cp.StepDensity)
		t = math.Floor(t*steps) / steps
	}
	idx := int(t * colortableSize)
	if idx >= colortableSize {
		idx = colortableSize - 1
	}
	c := table[idx]
	if cp.StripeDensity > 0 {
		sig := cp.StripeSig
		if sig <= 0 || sig > 1 {
			sig = 0.9
		}
		k := (1 - sig) + sig*stripe
		return scaleByte(c[0], k), scaleByte(c[1], k), scaleByte(c[2], k)
	}
	return c[0], c[1], c[2]
}

func scaleByte(v byte, k float64) byte {
	s := float64(v) * k
	if s > 255 {
		s = 255
	}
	if s < 0 {
		s = 0
	}
	return byte(s)
}

// packRGB drops the alpha channel into the scheduler's wire format.
func packRGB(img *image.RGBA) *PixelBuffer {
	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	buf := &PixelBuffer{Width: w, Height: h, Pix: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		src := y * img.Stride
		dst := y * w * 3
		for x := 0; x < w; x++ {
			buf.Pix[dst] = img.Pix[src]
			buf.Pix[dst+1] = img.Pix[src+1]
			buf.Pix[dst+2] = img.Pix[src+2]
			src += 4
			dst += 3
		}
	}
	return buf
}
