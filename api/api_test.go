package api

import (
	"encoding/binary"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voxelsplace/repacker/meshio"
	"github.com/voxelsplace/repacker/repack"
)

func TestRepackVertices_SharedBlockSize(t *testing.T) {
	defer SetBlockSize(repack.DefaultBlockSize)

	SetBlockSize(4)
	assert.Equal(t, 4, BlockSize())

	input := []uint16{0, 0, 0, 2000, 0, 0}
	anchors := make([]uint16, 6)
	packed := make([]uint32, 5)
	remap := make([]uint32, 2)
	n, err := RepackVertices(2, input, anchors, packed, remap, 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, []uint32{0, 4}, remap)

	n, err = RepackVertices(2, input, anchors, packed[:4], remap, 3, 4)
	require.NoError(t, err)
	assert.Equal(t, -1, n)

	SetBlockSize(0)
	n, err = RepackVertices(2, input, anchors, packed, remap, 3, 5)
	assert.ErrorIs(t, err, repack.ErrInvalidBlockSize)
	assert.Equal(t, -1, n)
}

func TestApplyRemap(t *testing.T) {
	remap := []uint32{0, 4, 5}
	indices := []uint32{2, 1, 0}
	require.NoError(t, ApplyRemap(indices, remap))
	assert.Equal(t, []uint32{5, 4, 0}, indices)

	bad := []uint32{0, 3}
	assert.Error(t, ApplyRemap(bad, remap))
	assert.Equal(t, []uint32{0, 3}, bad, "rejected buffers are left untouched")
}

func TestApplyRemapGeneric(t *testing.T) {
	remap := []uint32{0, 4, 5}

	raw := make([]byte, 4)
	binary.LittleEndian.PutUint16(raw[0:], 2)
	binary.LittleEndian.PutUint16(raw[2:], 1)
	require.NoError(t, ApplyRemapGeneric(raw, remap, 2))
	assert.Equal(t, []byte{5, 0, 4, 0}, raw)

	raw = make([]byte, 4)
	binary.LittleEndian.PutUint32(raw, 7)
	var ie *repack.IndexRangeError
	require.ErrorAs(t, ApplyRemapGeneric(raw, remap, 4), &ie)
	assert.Equal(t, uint32(7), ie.Index)

	assert.ErrorIs(t, ApplyRemapGeneric(raw, remap, 3), repack.ErrInvalidIndexStride)

	// a trailing odd byte holding an out-of-range value must not slip past the range check
	ragged := []byte{1, 0, 9}
	assert.ErrorIs(t, ApplyRemapGeneric(ragged, remap, 2), repack.ErrIndexBufferLength)
	assert.Equal(t, []byte{1, 0, 9}, ragged)
}

func TestGLBConversion(t *testing.T) {
	defer SetBlockSize(repack.DefaultBlockSize)
	SetBlockSize(32)

	opts := meshio.DefaultSynthOptions()
	opts.Width, opts.Depth = 10, 10
	src, err := meshio.GenerateSynthetic(opts, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	packed, err := meshio.PackMesh(src, meshio.DefaultOptions())
	require.NoError(t, err)
	glb, err := meshio.EncodeGLB([]repack.Mesh{packed})
	require.NoError(t, err)

	rpk, err := GLBToRPK(glb)
	require.NoError(t, err)
	meshes, _, err := repack.Unmarshal(rpk)
	require.NoError(t, err)
	require.Len(t, meshes, 1)
	assert.Equal(t, 32, meshes[0].Packed.BlockSize)

	back, err := RPKToGLB(rpk)
	require.NoError(t, err)
	assert.Equal(t, "glTF", string(back[:4]))
	assert.Equal(t, uint32(2), uint32(back[4]))

	_, err = RPKToGLB(glb)
	assert.ErrorIs(t, err, repack.ErrNotRPK)
	_, err = GLBToRPK([]byte("{}"))
	assert.Error(t, err)
}
