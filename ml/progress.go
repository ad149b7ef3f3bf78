package ml

import "time"

// window accumulates training throughput between checkpoints.
type window struct {
	examples int
	train    time.Duration
	validate time.Duration
}

func (w *window) recordTrain(d time.Duration) {
	w.examples++
	w.train += d
}

func (w *window) recordValidate(d time.Duration) {
	w.validate += d
}

// snapshot returns aggregated numbers and resets the window.
func (w *window) snapshot() progress {
	p := progress{ValidateMS: w.validate.Seconds() * 1000}
	if w.train > 0 {
		p.ExamplesPerSec = float64(w.examples) / w.train.Seconds()
	}
	*w = window{}
	return p
}

type progress struct {
	ExamplesPerSec float64
	ValidateMS     float64
}
