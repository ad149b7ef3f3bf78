package data

import (
	"fmt"
	"image"
	_ "image/jpeg" // Registers JPEG format
	_ "image/png"
	"os"

	"golang.org/x/image/draw"
)

// ImageVector decodes an image file, resamples it to width x height and
// returns its grayscale intensities in [0,1], row-major, in the same layout
// LoadImages produces.
func ImageVector(path string, width, height int) ([]float64, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("image vector: %w: size %dx%d", ErrInvalidArgument, width, height)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	src, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return ResampleGray(src, width, height), nil
}

// ResampleGray scales src to width x height and converts it to normalized
// grayscale.
func ResampleGray(src image.Image, width, height int) []float64 {
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Rect, src, src.Bounds(), draw.Over, nil)

	out := make([]float64, 0, width*height)
	bounds := dst.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := dst.At(x, y).RGBA()
			// Standard Grayscale formula
			gray := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			out = append(out, gray/255)
		}
	}
	return out
}
