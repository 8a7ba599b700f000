package main

import "math"

// float64 carries roughly 15 significant decimal digits; deep zooms eat
// about one digit per 10x.
const float64MaxDigits = 15

// estimateIterations scales the iteration budget with zoom depth. At or below
// zoom 1 the base count is enough; past that, detail grows with the log of
// the magnification. Monotone non-decreasing in zoomLevel, capped at ceiling.
func estimateIterations(zoomLevel float64, baseIterations, ceiling int) int {
	if zoomLevel <= 1.0 {
		return baseIterations
	}
	estimated := int(float64(baseIterations)*math.Log10(zoomLevel+1) + float64(baseIterations))
	if estimated > ceiling {
		return ceiling
	}
	return estimated
}

// PrecisionInfo reports how close the current zoom depth is to exhausting
// float64 resolution. Purely advisory: nothing blocks on it.
type PrecisionInfo struct {
	DecimalDigitsNeeded int
	Warning             bool
	PercentOfBudget     float64
}

func precisionAtZoom(zoomLevel float64) PrecisionInfo {
	safeZoom := math.Max(zoomLevel, 1.0)
	digits := int(math.Floor(math.Log10(safeZoom))) + 2
	if digits < 1 {
		digits = 1
	}
	return PrecisionInfo{
		DecimalDigitsNeeded: digits,
		Warning:             float64(digits) > 0.8*float64MaxDigits,
		PercentOfBudget:     math.Min(100, float64(digits)/float64MaxDigits*100),
	}
}

// adaptColorDensity picks stripe and cycle densities for a zoom depth.
// Deeper views want more color variation to keep structure visible.
func adaptColorDensity(zoomLevel float64) (stripeDensity, cycleDensity int) {
	switch {
	case zoomLevel < 10:
		return 16, 32
	case zoomLevel < 100:
		return 20, 48
	case zoomLevel < 1000:
		return 24, 64
	default:
		return 32, 96
	}
}
