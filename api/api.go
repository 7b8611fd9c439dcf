// Package api is the byte-oriented surface shared by the wasm bridge and other embedders.
// It keeps one process-wide block size register for callers that expect a global setter.
package api

import (
	"errors"
	"sync"

	"github.com/voxelsplace/repacker/meshio"
	"github.com/voxelsplace/repacker/repack"
)

var (
	mu     sync.Mutex
	packer = repack.NewPacker(repack.DefaultBlockSize)
)

// SetBlockSize sets the block size used by every later RepackVertices call.
func SetBlockSize(n int) {
	mu.Lock()
	defer mu.Unlock()
	packer.SetBlockSize(n)
}

// BlockSize returns the current shared block size.
func BlockSize() int {
	mu.Lock()
	defer mu.Unlock()
	return packer.BlockSize()
}

// RepackVertices runs the shared packer. It returns the packed length, or -1 when
// maxOutputSize is exceeded. Other failures (bad block size, short buffers) are returned as errors.
func RepackVertices(vertexCount int, input, anchors []uint16, packed, remap []uint32, stride, maxOutputSize int) (int, error) {
	mu.Lock()
	defer mu.Unlock()
	n, err := packer.RepackVertices(vertexCount, input, anchors, packed, remap, stride, maxOutputSize)
	if errors.Is(err, repack.ErrCapacityExceeded) {
		return -1, nil
	}
	if err != nil {
		return -1, err
	}
	return n, nil
}

// ApplyRemap rewrites 32-bit indices in place after checking they address remap.
func ApplyRemap(indices, remap []uint32) error {
	if err := repack.CheckIndices(indices, len(remap)); err != nil {
		return err
	}
	repack.ApplyRemap(indices, remap)
	return nil
}

// ApplyRemapGeneric rewrites a little-endian index buffer of 2- or 4-byte elements in place.
func ApplyRemapGeneric(indices []byte, remap []uint32, indexStride int) error {
	if indexStride != 2 && indexStride != 4 {
		return repack.ErrInvalidIndexStride
	}
	if len(indices)%indexStride != 0 {
		return repack.ErrIndexBufferLength
	}
	if err := checkRaw(indices, indexStride, len(remap)); err != nil {
		return err
	}
	return repack.ApplyRemapGeneric(indices, remap, indexStride)
}

func checkRaw(b []byte, width, vertexCount int) error {
	for i := 0; i+width <= len(b); i += width {
		v := uint32(b[i]) | uint32(b[i+1])<<8
		if width == 4 {
			v |= uint32(b[i+2])<<16 | uint32(b[i+3])<<24
		}
		if int(v) >= vertexCount {
			return &repack.IndexRangeError{Position: i / width, Index: v, Count: vertexCount}
		}
	}
	return nil
}

// GLBToRPK packs every indexed triangle mesh of a .glb into .rpk bytes using the shared block size.
func GLBToRPK(glb []byte) ([]byte, error) {
	opts := meshio.DefaultOptions()
	opts.BlockSize = BlockSize()
	return meshio.ConvertGLB(glb, opts)
}

// RPKToGLB decodes .rpk bytes into a binary glTF.
func RPKToGLB(rpk []byte) ([]byte, error) {
	meshes, _, err := repack.Unmarshal(rpk)
	if err != nil {
		return nil, err
	}
	return meshio.EncodeGLB(meshes)
}
