package ml

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"

	"github.com/b0tShaman/idx-trainer/data"
)

// Ranked is one class and its output score.
type Ranked struct {
	Class int
	Score float64
}

// TopK returns the k highest scoring classes, best first. Equal scores keep
// the lower class first.
func TopK(scores []float64, k int) []Ranked {
	ranked := make([]Ranked, len(scores))
	for i, s := range scores {
		ranked[i] = Ranked{Class: i, Score: s}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	if k < len(ranked) && k >= 0 {
		ranked = ranked[:k]
	}
	return ranked
}

// LoadNetworkFile opens a model written by Serialize.
func LoadNetworkFile(path string) (*NeuralNetwork, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open model: %w", err)
	}
	defer f.Close()
	return LoadNetwork(f)
}

// InferImage classifies the image at imagePath. The image is resampled to
// the square geometry the network was trained on.
func InferImage(nw *NeuralNetwork, imagePath string) ([]Ranked, error) {
	side := int(math.Sqrt(float64(nw.InputSize())))
	if side == 0 || side*side != nw.InputSize() {
		return nil, fmt.Errorf("infer: %w: model input %d is not a square image", data.ErrInvalidArgument, nw.InputSize())
	}

	// 1. Load & Convert
	pixels, err := data.ImageVector(imagePath, side, side)
	if err != nil {
		return nil, err
	}

	// 2. Predict
	return TopK(nw.Infer(pixels), -1), nil
}

// PrintRanking writes the k best classes of ranked to w.
func PrintRanking(w io.Writer, ranked []Ranked, k int) {
	if len(ranked) == 0 {
		return
	}
	log.Printf("Predicted class %d (score %.4f)", ranked[0].Class, ranked[0].Score)
	for i, r := range ranked {
		if i == k {
			break
		}
		fmt.Fprintf(w, "%d. class %d  %.2f%%\n", i+1, r.Class, r.Score*100)
	}
}
