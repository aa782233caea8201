// Package vector provides similarity helpers for normalized vectors.
package vector

import "math"

// CosineSimilarity returns cosine similarity between two normalized vectors,
// clamped to [0,1]. Mismatched or empty inputs score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return math.Max(0, math.Min(1, dot))
}

// InnerProduct returns the inner product of two vectors (for normalized
// vectors equals cosine similarity).
func InnerProduct(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i] * b[i])
	}
	return dot
}
