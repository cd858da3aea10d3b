// Package embedding provides the face embedding vector type and its distance metric.
package embedding

import "math"

// Vector is a fixed-length face embedding produced by the external model.
// Vectors are treated as immutable once constructed.
type Vector []float64

// Dim returns the number of components.
func (v Vector) Dim() int {
	return len(v)
}

// Norm returns the Euclidean length of the vector.
func (v Vector) Norm() float64 {
	var sum float64
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// IsZero reports whether the vector has zero magnitude.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Clone returns a copy that does not share backing storage with v.
func (v Vector) Clone() Vector {
	if v == nil {
		return nil
	}
	out := make(Vector, len(v))
	copy(out, v)
	return out
}

// Distance computes the cosine distance between two vectors.
// Cosine distance = 1 - cosine similarity, so identical directions give 0
// and orthogonal vectors give 1.
// A zero-magnitude vector, an empty vector, a length mismatch or a
// non-finite component yields 1.0, which is never accepted by a match
// threshold of at most 1. The result is always finite and in [0, 2].
func Distance(a, b Vector) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 1.0
	}

	scaleA, okA := maxAbs(a)
	scaleB, okB := maxAbs(b)
	if !okA || !okB || scaleA == 0 || scaleB == 0 {
		return 1.0
	}

	// Each vector is divided by its largest component so the sums below stay
	// within [0, len] and cannot overflow or underflow to zero.
	var dotProduct, normA, normB float64
	for i := range a {
		x := a[i] / scaleA
		y := b[i] / scaleB
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	similarity := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(similarity) {
		return 1.0
	}
	// Clamp to [-1, 1] to handle floating point errors
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}

	return 1 - similarity
}

// maxAbs returns the largest absolute component of v. ok is false when v
// contains NaN or an infinity.
func maxAbs(v Vector) (float64, bool) {
	var m float64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, false
		}
		m = max(m, math.Abs(x))
	}
	return m, true
}
