package util

// Delta returns curr - prev, or 0 if curr < prev (counter wrap).
func Delta(prev, curr uint64) uint64 {
	if curr < prev {
		return 0
	}
	return curr - prev
}

// Ratio returns v/max clamped to [0,1]. A zero max yields 0.
func Ratio(v, max uint64) float64 {
	if max == 0 {
		return 0
	}
	r := float64(v) / float64(max)
	if r > 1 {
		return 1
	}
	return r
}
