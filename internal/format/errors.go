package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a header.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBlockTooSmall indicates a node whose size cannot hold its own header.
	ErrBlockTooSmall = errors.New("format: block smaller than its header")
	// ErrBlockNotGranular indicates a node size that is not a multiple of the granularity.
	ErrBlockNotGranular = errors.New("format: block size not granular")
)
