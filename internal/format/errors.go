package format

import "errors"

var (
	// ErrTruncated indicates the buffer lacked the bytes required for a
	// structure.
	ErrTruncated = errors.New("format: truncated buffer")

	// ErrBoundsCheck indicates a checked read exceeded the buffer.
	ErrBoundsCheck = errors.New("format: buffer bounds exceeded")

	// ErrBadVersion indicates an unsupported format_major.
	ErrBadVersion = errors.New("format: unsupported format version")

	// ErrBadAlignment indicates a chunk offset violating its alignment.
	ErrBadAlignment = errors.New("format: chunk offset not aligned")

	// ErrBadCompression indicates a compression id other than none in v1.
	ErrBadCompression = errors.New("format: unsupported compression")

	// ErrChecksum indicates a chunk payload failing its checksum.
	ErrChecksum = errors.New("format: chunk checksum mismatch")

	// ErrSanityLimit indicates a parsed size exceeding sanity limits.
	ErrSanityLimit = errors.New("format: value exceeds sanity limit")
)
