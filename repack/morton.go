package repack

import "slices"

// Morton3D interleaves the bits of three 16-bit coordinates into a 48-bit Z-order key.
func Morton3D(x, y, z uint16) uint64 {
	return part1By2(uint64(x)) |
		(part1By2(uint64(y)) << 1) |
		(part1By2(uint64(z)) << 2)
}

// MortonDecode3D is the inverse of Morton3D.
func MortonDecode3D(key uint64) (x, y, z uint16) {
	x = uint16(compact1By2(key))
	y = uint16(compact1By2(key >> 1))
	z = uint16(compact1By2(key >> 2))
	return
}

func part1By2(x uint64) uint64 {
	x &= 0x1fffff
	x = (x | (x << 32)) & 0x1f00000000ffff
	x = (x | (x << 16)) & 0x1f0000ff0000ff
	x = (x | (x << 8)) & 0x100f00f00f00f00f
	x = (x | (x << 4)) & 0x10c30c30c30c30c3
	x = (x | (x << 2)) & 0x1249249249249249
	return x
}

func compact1By2(x uint64) uint64 {
	x &= 0x1249249249249249
	x = (x ^ (x >> 2)) & 0x10c30c30c30c30c3
	x = (x ^ (x >> 4)) & 0x100f00f00f00f00f
	x = (x ^ (x >> 8)) & 0x1f0000ff0000ff
	x = (x ^ (x >> 16)) & 0x1f00000000ffff
	x = (x ^ (x >> 32)) & 0x1fffff
	return x
}

// SpatialOrder returns the vertices' original indices sorted by Morton key, so spatially close
// vertices end up in the same block and fewer blocks overflow. Ties keep input order.
func SpatialOrder(input []uint16, vertexCount, stride int) []uint32 {
	type kv struct {
		key uint64
		i   uint32
	}
	idx := make([]kv, vertexCount)
	for i := 0; i < vertexCount; i++ {
		rec := input[i*stride:]
		idx[i] = kv{Morton3D(rec[0], rec[1], rec[2]), uint32(i)}
	}
	slices.SortStableFunc(idx, func(a, b kv) int {
		switch {
		case a.key < b.key:
			return -1
		case a.key > b.key:
			return 1
		}
		return 0
	})
	order := make([]uint32, vertexCount)
	for k := range idx {
		order[k] = idx[k].i
	}
	return order
}

// Gather copies the first 3 components of each record in order into a stride-3 buffer.
func Gather(input []uint16, order []uint32, stride int) []uint16 {
	out := make([]uint16, 0, 3*len(order))
	for _, v := range order {
		rec := input[int(v)*stride:]
		out = append(out, rec[0], rec[1], rec[2])
	}
	return out
}

// ComposeRemap turns the remap of a reordered pack (reordered index -> slot) into one keyed by
// original vertex index, given order[k] = original index of reordered vertex k.
func ComposeRemap(order, remap []uint32) []uint32 {
	out := make([]uint32, len(remap))
	for k, orig := range order {
		out[orig] = remap[k]
	}
	return out
}

// PackSpatial packs input after Morton ordering and returns a result whose Remap is
// keyed by original vertex index, so index buffers are rewritten exactly as for Pack.
func (p *Packer) PackSpatial(input []uint16, stride int) (*Packed, error) {
	if stride < 3 {
		return nil, ErrInvalidStride
	}
	n := VertexCount(len(input), stride)
	order := SpatialOrder(input, n, stride)
	out, err := p.Pack(Gather(input, order, stride), 3)
	if err != nil {
		return nil, err
	}
	out.Remap = ComposeRemap(order, out.Remap)
	return out, nil
}
