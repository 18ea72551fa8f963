package models

// Range is a closed numeric interval [Lo, Hi]. Lo may be greater than Hi for inverted scales.
type Range struct {
	Lo float64
	Hi float64
}

// PercentRange is the normalized domain channel values are kept in.
var PercentRange = Range{Lo: 0, Hi: 100}

// Rescale maps v linearly from src onto dst.
func Rescale(v float64, src, dst Range) float64 {
	return (v-src.Lo)/(src.Hi-src.Lo)*(dst.Hi-dst.Lo) + dst.Lo
}

// Clamp limits v to [lo, hi].
func Clamp(v, lo, hi float64) float64 {
	return max(lo, min(v, hi))
}
