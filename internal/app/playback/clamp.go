package playback

import "cmp"

// Clamp limits value to [lo, hi]. Inverted bounds are swapped first.
func Clamp[T cmp.Ordered](value, lo, hi T) T {
	if lo > hi {
		lo, hi = hi, lo
	}
	// NaN compares false against everything; treat it as the lower bound.
	if value != value {
		return lo
	}
	return min(max(value, lo), hi)
}

// ClampUnit limits v to [0, 1].
func ClampUnit(v float64) float64 {
	return Clamp(v, 0, 1)
}
