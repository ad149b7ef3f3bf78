package data

// IntNSource draws a uniform integer in [0, n). *math/rand/v2.Rand satisfies it.
type IntNSource interface {
	IntN(n int) int
}

// Indices returns 0..n-1 in order.
func Indices(n int) []int {
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	return indices
}

// Shuffle permutes indices in place with Fisher-Yates, drawing j in [0, i]
// for i from len-1 down to 1.
func Shuffle(indices []int, src IntNSource) {
	for i := len(indices) - 1; i > 0; i-- {
		j := src.IntN(i + 1)
		indices[i], indices[j] = indices[j], indices[i]
	}
}
