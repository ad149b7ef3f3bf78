package data

import "errors"

// Loader failures. Callers match them with errors.Is; I/O failures are the
// underlying os/io errors wrapped with the stage that hit them.
var (
	ErrTruncated       = errors.New("truncated data")
	ErrSizeMismatch    = errors.New("size mismatch")
	ErrAllocation      = errors.New("dataset too large")
	ErrInvalidArgument = errors.New("invalid argument")
)
