package repack

import "encoding/binary"

// Index is an element type an index buffer can hold.
type Index interface {
	~uint16 | ~uint32
}

// ApplyRemap rewrites 32-bit indices in place: indices[i] = remap[indices[i]].
// Every index must address a vertex of the pack that produced remap.
func ApplyRemap(indices []uint32, remap []uint32) {
	for i, v := range indices {
		indices[i] = remap[v]
	}
}

// RemapIndices is ApplyRemap for either index width. Slots are narrowed to T,
// so 16-bit buffers need a packed stream no longer than 65536 slots.
func RemapIndices[T Index](indices []T, remap []uint32) {
	for i, v := range indices {
		indices[i] = T(remap[v])
	}
}

// ApplyRemapGeneric rewrites a raw little-endian index buffer whose elements are
// indexStride bytes wide (2 or 4). A buffer ending in a partial element is rejected untouched.
func ApplyRemapGeneric(indices []byte, remap []uint32, indexStride int) error {
	if indexStride != 2 && indexStride != 4 {
		return ErrInvalidIndexStride
	}
	if len(indices)%indexStride != 0 {
		return ErrIndexBufferLength
	}
	switch indexStride {
	case 2:
		for i := 0; i+2 <= len(indices); i += 2 {
			v := binary.LittleEndian.Uint16(indices[i:])
			binary.LittleEndian.PutUint16(indices[i:], uint16(remap[v]))
		}
	case 4:
		for i := 0; i+4 <= len(indices); i += 4 {
			v := binary.LittleEndian.Uint32(indices[i:])
			binary.LittleEndian.PutUint32(indices[i:], remap[v])
		}
	}
	return nil
}

// CheckIndices reports the first index that does not address one of vertexCount vertices.
func CheckIndices[T Index](indices []T, vertexCount int) error {
	for i, v := range indices {
		if int(v) >= vertexCount {
			return &IndexRangeError{Position: i, Index: uint32(v), Count: vertexCount}
		}
	}
	return nil
}

// IndexBuffer holds either a 16-bit or a 32-bit index list; exactly one of U16 and U32 is used.
type IndexBuffer struct {
	U16 []uint16
	U32 []uint32
}

// Width returns the element width in bytes, or 0 for an empty buffer.
func (b IndexBuffer) Width() int {
	switch {
	case b.U32 != nil:
		return 4
	case b.U16 != nil:
		return 2
	}
	return 0
}

func (b IndexBuffer) Len() int {
	if b.U32 != nil {
		return len(b.U32)
	}
	return len(b.U16)
}

// Remap rewrites the buffer in place through remap.
func (b IndexBuffer) Remap(remap []uint32) {
	if b.U32 != nil {
		ApplyRemap(b.U32, remap)
		return
	}
	RemapIndices(b.U16, remap)
}

// Check validates every index against vertexCount.
func (b IndexBuffer) Check(vertexCount int) error {
	if b.U32 != nil {
		return CheckIndices(b.U32, vertexCount)
	}
	return CheckIndices(b.U16, vertexCount)
}

// Uint32s returns the indices widened to 32 bits (a copy for 16-bit buffers).
func (b IndexBuffer) Uint32s() []uint32 {
	if b.U32 != nil {
		return b.U32
	}
	out := make([]uint32, len(b.U16))
	for i, v := range b.U16 {
		out[i] = uint32(v)
	}
	return out
}

// Narrowest returns a buffer holding idx with the smallest width able to address maxIndex.
func Narrowest(idx []uint32, maxIndex uint32) IndexBuffer {
	if maxIndex > 0xFFFF {
		return IndexBuffer{U32: idx}
	}
	out := make([]uint16, len(idx))
	for i, v := range idx {
		out[i] = uint16(v)
	}
	return IndexBuffer{U16: out}
}
