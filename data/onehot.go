package data

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// OneHot expands labels into a row-major len(labels) x classes target buffer.
func OneHot(labels []uint8, classes int) ([]float64, error) {
	if classes <= 0 {
		return nil, fmt.Errorf("one-hot: %w: %d classes", ErrInvalidArgument, classes)
	}
	out := make([]float64, len(labels)*classes)
	for i, label := range labels {
		if int(label) >= classes {
			return nil, fmt.Errorf("one-hot: %w: label %d at item %d exceeds %d classes", ErrInvalidArgument, label, i, classes)
		}
		out[i*classes+int(label)] = 1.0
	}
	return out, nil
}

// RowSumsOne reports whether every classes-wide row of buf sums to exactly 1.
func RowSumsOne(buf []float64, classes int) bool {
	if classes <= 0 || len(buf)%classes != 0 {
		return false
	}
	for start := 0; start < len(buf); start += classes {
		if floats.Sum(buf[start:start+classes]) != 1.0 {
			return false
		}
	}
	return true
}
