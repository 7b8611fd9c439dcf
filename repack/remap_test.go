package repack

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func overflowPack(t *testing.T) *Packed {
	t.Helper()
	input := []uint16{
		0, 0, 0,
		10, 10, 10,
		2000, 0, 0,
		2010, 5, 5,
		0, 0, 0,
	}
	out, err := NewPacker(4).Pack(input, 3)
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 1, 4, 5, 8}, out.Remap)
	return out
}

func TestApplyRemap(t *testing.T) {
	p := overflowPack(t)
	indices := []uint32{0, 1, 2, 2, 3, 4}
	ApplyRemap(indices, p.Remap)
	assert.Equal(t, []uint32{0, 1, 4, 4, 5, 8}, indices)

	// the contract is a single application; a second one maps slots as if they were vertices
	again := []uint32{0, 1, 4}
	ApplyRemap(again, p.Remap)
	assert.Equal(t, []uint32{0, 1, 8}, again)
}

func TestRemapIndices_Uint16(t *testing.T) {
	p := overflowPack(t)
	indices := []uint16{4, 3, 2, 1, 0}
	RemapIndices(indices, p.Remap)
	assert.Equal(t, []uint16{8, 5, 4, 1, 0}, indices)
}

func TestApplyRemapGeneric(t *testing.T) {
	p := overflowPack(t)

	raw16 := make([]byte, 6)
	for i, v := range []uint16{2, 3, 4} {
		binary.LittleEndian.PutUint16(raw16[2*i:], v)
	}
	require.NoError(t, ApplyRemapGeneric(raw16, p.Remap, 2))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(raw16[0:]))
	assert.Equal(t, uint16(5), binary.LittleEndian.Uint16(raw16[2:]))
	assert.Equal(t, uint16(8), binary.LittleEndian.Uint16(raw16[4:]))

	raw32 := make([]byte, 8)
	binary.LittleEndian.PutUint32(raw32[0:], 1)
	binary.LittleEndian.PutUint32(raw32[4:], 4)
	require.NoError(t, ApplyRemapGeneric(raw32, p.Remap, 4))
	assert.Equal(t, uint32(1), binary.LittleEndian.Uint32(raw32[0:]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(raw32[4:]))

	assert.ErrorIs(t, ApplyRemapGeneric(raw32, p.Remap, 1), ErrInvalidIndexStride)
	assert.ErrorIs(t, ApplyRemapGeneric(raw32, p.Remap, 8), ErrInvalidIndexStride)
}

func TestApplyRemapGeneric_PartialElement(t *testing.T) {
	p := overflowPack(t)

	ragged := []byte{2, 0, 3}
	assert.ErrorIs(t, ApplyRemapGeneric(ragged, p.Remap, 2), ErrIndexBufferLength)
	assert.Equal(t, []byte{2, 0, 3}, ragged)

	ragged = []byte{1, 0, 0, 0, 4, 0}
	assert.ErrorIs(t, ApplyRemapGeneric(ragged, p.Remap, 4), ErrIndexBufferLength)
	assert.Equal(t, []byte{1, 0, 0, 0, 4, 0}, ragged)

	require.NoError(t, ApplyRemapGeneric(nil, p.Remap, 4))
}

func TestCheckIndices(t *testing.T) {
	assert.NoError(t, CheckIndices([]uint32{0, 1, 2}, 3))

	err := CheckIndices([]uint16{0, 3, 1}, 3)
	var ie *IndexRangeError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Position)
	assert.Equal(t, uint32(3), ie.Index)
	assert.Equal(t, 3, ie.Count)
}

func TestIndexBuffer(t *testing.T) {
	var empty IndexBuffer
	assert.Equal(t, 0, empty.Width())
	assert.Equal(t, 0, empty.Len())

	small := Narrowest([]uint32{0, 1, 2}, 2)
	assert.Equal(t, 2, small.Width())
	assert.Equal(t, []uint16{0, 1, 2}, small.U16)
	assert.Equal(t, []uint32{0, 1, 2}, small.Uint32s())

	wide := Narrowest([]uint32{0, 70000}, 70000)
	assert.Equal(t, 4, wide.Width())
	assert.Equal(t, 2, wide.Len())
	assert.Error(t, wide.Check(100))

	p := overflowPack(t)
	b := IndexBuffer{U16: []uint16{0, 2, 4}}
	require.NoError(t, b.Check(p.VertexCount()))
	b.Remap(p.Remap)
	assert.Equal(t, []uint16{0, 4, 8}, b.U16)

	b32 := IndexBuffer{U32: []uint32{3, 4}}
	b32.Remap(p.Remap)
	assert.Equal(t, []uint32{5, 8}, b32.U32)
}
