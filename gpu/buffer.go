// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package gpu

// BufferUsage is a mask indicating valid uses for a buffer.
type BufferUsage int

// Buffer usage flags.
const (
	BufCopySrc BufferUsage = 1 << iota
	BufCopyDst
	BufUniform
	BufStorage
	BufIndex
	BufVertex
)

// Buffer is the interface that defines a GPU buffer.
// As with Texture, implementations must be pointer-shaped so that
// interface equality identifies the underlying storage.
type Buffer interface {
	Destroyer

	// Cap returns the capacity of the buffer in bytes.
	// This value is immutable.
	Cap() int64

	// Usage returns the valid uses of the buffer.
	Usage() BufferUsage
}

// BufferSlice selects a byte range of a buffer.
// Scheduling identity is the whole buffer: overlapping slices of
// one buffer are ordered as if they aliased completely.
type BufferSlice struct {
	Buffer Buffer
	Offset int64
	Size   int64
}

// WholeBuffer returns a slice covering all of b.
func WholeBuffer(b Buffer) BufferSlice {
	return BufferSlice{Buffer: b, Size: b.Cap()}
}

// BufferAccessInfo is a barrier record describing an access on a
// buffer. SrcAccess starts out as a placeholder and is resolved
// during scheduling.
type BufferAccessInfo struct {
	Buffer    Buffer
	SrcAccess Access
	DstAccess Access
}
