package main

import "math"

// ColorPreset is a named combination of palette parameters that works well
// together. Applying one pins the palette until adaptive mode is re-enabled.
type ColorPreset struct {
	Name          string
	Desc          string
	Thetas        [3]float64
	CycleDensity  int
	StripeDensity int
	StripeSig     float64
	StepDensity   int
}

// adaptivePresetName marks the list entry that hands the stripe/cycle
// densities back to the zoom-adaptive adjustment.
const adaptivePresetName = "Adaptive"

var colorPresets = []ColorPreset{
	{
		Name:          adaptivePresetName,
		Desc:          "densities follow the zoom depth",
		Thetas:        [3]float64{0.0, 0.15, 0.25},
		CycleDensity:  32,
		StripeDensity: 16,
		StripeSig:     0.9,
	},
	{
		Name:          "Filigree Detail",
		Desc:          "fine stripes on the classic palette",
		Thetas:        [3]float64{0.0, 0.15, 0.25},
		CycleDensity:  32,
		StripeDensity: 16,
		StripeSig:     0.9,
		StepDensity:   8,
	},
	{
		Name:          "Deep Structure",
		Desc:          "purple, long cycles for deep zooms",
		Thetas:        [3]float64{0.7, 0.3, 0.9},
		CycleDensity:  64,
		StripeDensity: 24,
		StripeSig:     0.85,
		StepDensity:   12,
	},
	{
		Name:          "Fine Detail",
		Desc:          "electric, light striping",
		Thetas:        [3]float64{0.2, 0.7, 0.9},
		CycleDensity:  48,
		StripeDensity: 12,
		StripeSig:     0.95,
		StepDensity:   4,
	},
	{
		Name:          "Rich Boundaries",
		Desc:          "sunset tones, strong boundary bands",
		Thetas:        [3]float64{0.0, 0.3, 0.6},
		CycleDensity:  56,
		StripeDensity: 20,
		StripeSig:     0.88,
		StepDensity:   10,
	},
}

const colortableSize = 2048

// sinColortable builds a smooth cyclic palette from three phase offsets, one
// per channel.
func sinColortable(thetas [3]float64) [][3]byte {
	table := make([][3]byte, colortableSize)
	for i := range table {
		t := float64(i) / colortableSize
		for c := 0; c < 3; c++ {
			v := 0.5 + 0.5*math.Sin(2*math.Pi*(t+thetas[c]))
			table[i][c] = byte(math.Round(v * 255))
		}
	}
	return table
}
