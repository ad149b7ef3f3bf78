package data

import (
	"fmt"
	"io"
	"log"
)

const (
	// ImageHeaderSize is the IDX image header: magic, items, rows, cols.
	ImageHeaderSize = 16
	// LabelHeaderSize is the IDX label header: magic, items.
	LabelHeaderSize = 8
)

// Info describes an IDX image container.
type Info struct {
	Magic uint32
	Items uint32
	Rows  uint32
	Cols  uint32
}

// MaxPixels bounds the pixel arena a single container may declare.
const MaxPixels = 1 << 34

// ImageSize is the number of pixels in one item. It is only meaningful for
// headers that PayloadSize accepts.
func (i Info) ImageSize() int {
	return int(uint64(i.Rows) * uint64(i.Cols))
}

// PayloadSize returns the number of pixels the header declares, failing with
// ErrAllocation when it exceeds MaxPixels.
func (i Info) PayloadSize() (uint64, error) {
	stride := uint64(i.Rows) * uint64(i.Cols)
	if stride > MaxPixels || (stride > 0 && uint64(i.Items) > MaxPixels/stride) {
		return 0, fmt.Errorf("%w: %d items of %dx%d pixels", ErrAllocation, i.Items, i.Rows, i.Cols)
	}
	return uint64(i.Items) * stride, nil
}

// ReadInfo consumes the fixed image header from r.
func ReadInfo(r io.Reader) (Info, error) {
	if r == nil {
		return Info{}, fmt.Errorf("read header: %w: nil reader", ErrInvalidArgument)
	}

	var header [ImageHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return Info{}, fmt.Errorf("read header: %w: %w", ErrTruncated, err)
	}

	info := Info{
		Magic: BigEndianUint32([4]byte(header[0:4])),
		Items: BigEndianUint32([4]byte(header[4:8])),
		Rows:  BigEndianUint32([4]byte(header[8:12])),
		Cols:  BigEndianUint32([4]byte(header[12:16])),
	}
	log.Printf("dataset info: magic=0x%08x items=%d rows=%d cols=%d", info.Magic, info.Items, info.Rows, info.Cols)
	return info, nil
}
