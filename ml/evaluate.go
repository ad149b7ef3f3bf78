package ml

import (
	"log"

	"gonum.org/v1/gonum/floats"

	"github.com/b0tShaman/idx-trainer/data"
)

// ArgMax returns the first index holding the largest score, so ties go to
// the lowest class.
func ArgMax(scores []float64) int {
	return floats.MaxIdx(scores)
}

// Accuracy returns the fraction of items in set whose arg-max prediction
// matches the label. An empty set scores 0.
func Accuracy(net Network, set *data.Dataset) float64 {
	n := set.Len()
	if n == 0 {
		log.Printf("warning: accuracy requested over an empty dataset, reporting 0")
		return 0
	}

	hits := 0
	for i := 0; i < n; i++ {
		if ArgMax(net.Infer(set.Row(i))) == set.Label(i) {
			hits++
		}
	}
	return float64(hits) / float64(n)
}
