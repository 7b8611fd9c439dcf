package repack

import (
	"errors"
	"fmt"
)

var (
	// ErrCapacityExceeded is returned when the packed stream would grow past maxOutputSize.
	// Output buffers are left partially written and must be discarded.
	ErrCapacityExceeded = errors.New("packed output capacity exceeded")

	// ErrInvalidBlockSize is returned when a pack is attempted with a non-positive block size.
	ErrInvalidBlockSize = errors.New("block size must be positive")

	// ErrInvalidStride is returned when fewer than 3 components per vertex record are declared.
	ErrInvalidStride = errors.New("vertex stride must be at least 3")

	// ErrInvalidIndexStride is returned for raw index buffers whose element width is not 2 or 4 bytes.
	ErrInvalidIndexStride = errors.New("index stride must be 2 or 4")

	ErrNotRPK   = errors.New("not a valid .rpk file")
	ErrChecksum = errors.New("rpk content checksum mismatch")

	// ErrContentTooLarge is returned when a compressed section claims more than MaxContentSize bytes
	// or more than its codec could produce from the stored data.
	ErrContentTooLarge = errors.New("rpk content too large")

	// ErrMalformed is returned for a mesh whose decoded tables do not fit together.
	ErrMalformed = errors.New("malformed rpk mesh")

	// ErrIndexBufferLength is returned for raw index buffers that end in a partial element.
	ErrIndexBufferLength = errors.New("index buffer length is not a multiple of the index stride")
)

// BufferError reports a caller-supplied buffer that is too small for the requested operation.
type BufferError struct {
	Name string
	Need int
	Have int
}

func (e *BufferError) Error() string {
	return fmt.Sprintf("%s buffer too small: need %d, have %d", e.Name, e.Need, e.Have)
}

// IndexRangeError reports an index that does not address a packed vertex.
type IndexRangeError struct {
	Position int
	Index    uint32
	Count    int
}

func (e *IndexRangeError) Error() string {
	return fmt.Sprintf("index %d at position %d out of range (vertex count %d)", e.Index, e.Position, e.Count)
}
