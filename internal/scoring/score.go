// Package scoring converts a record on a ranked level into list points.
package scoring

import (
	"fmt"
	"math"
)

const (
	// MainListSize is the number of levels that accept progress records.
	MainListSize = 75
	// ExtendedListSize is the number of levels that accept records at all.
	ExtendedListSize = 150

	// Precision is the number of decimals kept by Round.
	Precision = 3

	maxPoints = 200.0
	falloff   = 24.9975
	exponent  = 0.4
)

var scale = math.Pow10(Precision)

// Score returns the points awarded for reaching percent on the level at
// rank, given the level's minimum qualifying percent.
//
// Legacy levels (past ExtendedListSize) award nothing, extended levels only
// award completions, and anything below percentToQualify is worth zero.
// Out-of-range input yields zero instead of an error.
func Score(rank int, percent, percentToQualify float64) float64 {
	if rank < 1 || rank > ExtendedListSize {
		return 0
	}
	if !validPercent(percent) || math.IsNaN(percentToQualify) {
		return 0
	}
	if rank > MainListSize && percent < 100 {
		return 0
	}
	if percent < percentToQualify {
		return 0
	}

	q := math.Min(math.Max(percentToQualify, 0), 100)
	base := maxPoints - falloff*math.Pow(float64(rank-1), exponent)
	score := base * ((percent - (q - 1)) / (100 - (q - 1)))
	score = math.Max(0, score)

	if percent != 100 {
		return Round(score - score/3)
	}
	return Round(score)
}

// MaxScore is the value of a completion of the level at rank.
func MaxScore(rank int, percentToQualify float64) float64 {
	return Score(rank, 100, percentToQualify)
}

// Round normalizes value to Precision decimals, rounding half away from
// zero. Round(Round(x)) == Round(x) for every finite x; non-finite input
// rounds to zero.
func Round(value float64) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	// Beyond this magnitude value*scale loses integer precision and the
	// value is already as coarse as the display precision.
	if math.Abs(value) >= 1e12 {
		return value
	}
	return math.Round(value*scale) / scale
}

// Qualification describes which records the level at rank accepts.
func Qualification(rank int, percentToQualify float64) string {
	switch {
	case rank >= 1 && rank <= MainListSize:
		return fmt.Sprintf("%s%% or better to qualify", formatPercent(percentToQualify))
	case rank > MainListSize && rank <= ExtendedListSize:
		return "100% or better to qualify"
	default:
		return "This level does not accept new records."
	}
}

// Legacy reports whether the level at rank has fallen off the list.
func Legacy(rank int) bool {
	return rank > ExtendedListSize
}

func validPercent(p float64) bool {
	return !math.IsNaN(p) && p > 0 && p <= 100
}

func formatPercent(p float64) string {
	if p == math.Trunc(p) {
		return fmt.Sprintf("%.0f", p)
	}
	return fmt.Sprintf("%g", p)
}
