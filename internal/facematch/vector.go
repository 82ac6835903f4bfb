package facematch

import "math"

// Epsilon guards normalization and similarity against division by zero.
const Epsilon = 1e-10

// Vector is a face embedding.
type Vector []float32

// Norm returns the L2 norm of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Normalize returns v / (||v|| + Epsilon) as a new vector. The input is not modified.
func Normalize(v []float32) Vector {
	n := Norm(v) + Epsilon
	out := make(Vector, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / n)
	}
	return out
}

// CosineSimilarity computes dot(a,b) / (||a||*||b|| + Epsilon).
// Vectors of different length (or empty ones) are maximally dissimilar.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return -1
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + Epsilon)
}
