package data

import (
	"fmt"
	"io"
)

const (
	// preallocLimit is the largest arena, in pixels, allocated up front.
	preallocLimit = 1 << 24
	scratchSize   = 64 << 10
)

// ImageSet stores every image of a container in one row-major arena.
// Row i occupies pixels[i*stride : (i+1)*stride].
type ImageSet struct {
	pixels []float64
	stride int
	rows   int
}

// LoadImages reads info.Items images from r, which must be positioned just
// after the header. Pixels are normalized to [0,1] as byte/255.
func LoadImages(r io.Reader, info Info) (*ImageSet, error) {
	if r == nil {
		return nil, fmt.Errorf("load images: %w: nil reader", ErrInvalidArgument)
	}

	total, err := info.PayloadSize()
	if err != nil {
		return nil, fmt.Errorf("load images: %w", err)
	}
	stride := info.ImageSize()
	items := int(info.Items)

	// The header is not trusted beyond preallocLimit: larger arenas grow as
	// pixels actually arrive, so a lying header fails as truncated.
	set := &ImageSet{
		pixels: make([]float64, 0, min(total, preallocLimit)),
		stride: stride,
		rows:   items,
	}

	if stride == 0 {
		return set, nil
	}

	// One bounded scratch buffer for the raw bytes
	raw := make([]byte, min(stride, scratchSize))
	for i := 0; i < items; i++ {
		for left := stride; left > 0; {
			chunk := raw[:min(left, len(raw))]
			if _, err := io.ReadFull(r, chunk); err != nil {
				return nil, fmt.Errorf("load images: item %d: %w: %w", i, ErrTruncated, err)
			}
			for _, b := range chunk {
				set.pixels = append(set.pixels, float64(b)/255)
			}
			left -= len(chunk)
		}
	}
	return set, nil
}

// Len returns the number of images.
func (s *ImageSet) Len() int {
	if s == nil {
		return 0
	}
	return s.rows
}

// Stride returns the number of pixels per image.
func (s *ImageSet) Stride() int {
	return s.stride
}

// Row returns image i without copying. Callers must not modify it.
func (s *ImageSet) Row(i int) []float64 {
	return s.pixels[i*s.stride : (i+1)*s.stride : (i+1)*s.stride]
}

// view returns images [from, to) sharing the arena.
func (s *ImageSet) view(from, to int) *ImageSet {
	return &ImageSet{
		pixels: s.pixels[from*s.stride : to*s.stride : to*s.stride],
		stride: s.stride,
		rows:   to - from,
	}
}
