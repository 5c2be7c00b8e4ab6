package memdb

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// l2Distance computes the Euclidean distance between two equal-length
// float32 vectors. The caller guarantees len(a) == len(b); non-finite
// values propagate without guarding.
func l2Distance(a, b []float32) float32 {
	diff := vek32.Sub(a, b)
	sumSquares := vek32.Dot(diff, diff)
	return float32(math.Sqrt(float64(sumSquares)))
}
