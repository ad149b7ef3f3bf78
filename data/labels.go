package data

import (
	"fmt"
	"io"
	"log"
)

// LoadLabels reads an IDX label container and checks its declared count
// against the paired image container.
func LoadLabels(r io.Reader, info Info) ([]uint8, error) {
	if r == nil {
		return nil, fmt.Errorf("load labels: %w: nil reader", ErrInvalidArgument)
	}

	var header [LabelHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("load labels: header: %w: %w", ErrTruncated, err)
	}

	// Only the item count is checked; the magic number is informational.
	declared := BigEndianUint32([4]byte(header[4:8]))
	log.Printf("labels size: %d", declared)
	if declared != info.Items {
		return nil, fmt.Errorf("load labels: %w: labels declare %d items, images declare %d", ErrSizeMismatch, declared, info.Items)
	}

	labels := make([]uint8, info.Items)
	if _, err := io.ReadFull(r, labels); err != nil {
		return nil, fmt.Errorf("load labels: %w: %w", ErrTruncated, err)
	}
	return labels, nil
}
