package usecase

import "math"

// CosineSimilarity returns the cosine of the angle between a and b, in [-1, 1].
// It returns 0 when either vector has zero magnitude or the lengths differ.
// Components are scaled by each vector's largest magnitude so very large or
// very small values neither overflow nor underflow.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	scaleA, scaleB := maxAbs(a), maxAbs(b)
	if scaleA == 0 || scaleB == 0 || math.IsInf(scaleA, 0) || math.IsInf(scaleB, 0) ||
		math.IsNaN(scaleA) || math.IsNaN(scaleB) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		x, y := a[i]/scaleA, b[i]/scaleB
		dot += x * y
		normA += x * x
		normB += y * y
	}

	sim := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(sim) {
		return 0
	}

	// Rounding can push parallel vectors just past 1
	return math.Max(-1, math.Min(1, sim))
}

func maxAbs(v []float64) float64 {
	var m float64
	for _, x := range v {
		if math.IsNaN(x) {
			return math.NaN()
		}
		if ax := math.Abs(x); ax > m {
			m = ax
		}
	}
	return m
}
