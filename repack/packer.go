package repack

import "errors"

// Packed is the output of a successful pack, trimmed to its real lengths.
type Packed struct {
	BlockSize int
	Words     []uint32 // packed stream, padding slots are 0
	Anchors   []uint16 // x,y,z per block
	Remap     []uint32 // original vertex index -> slot in Words
}

// Len returns the packed stream length including padding.
func (p *Packed) Len() int { return len(p.Words) }

// VertexCount returns the number of input vertices.
func (p *Packed) VertexCount() int { return len(p.Remap) }

// Blocks returns the number of blocks (and anchors) in the stream.
func (p *Packed) Blocks() int {
	if p.BlockSize <= 0 {
		return 0
	}
	return (len(p.Words) + p.BlockSize - 1) / p.BlockSize
}

// Expansion is packed length over vertex count; 1 means no padding was needed.
func (p *Packed) Expansion() float64 {
	if len(p.Remap) == 0 {
		return 1
	}
	return float64(len(p.Words)) / float64(len(p.Remap))
}

// RepackVertices delta-encodes vertexCount positions read from input (stride components per record,
// only the first 3 are used) into packed, writing one anchor per block into anchors and the
// original-index -> slot table into remap. It returns the packed length including padding.
//
// When a vertex does not fit in 10 bits around the current anchor, the rest of the block is filled
// with zero words and the same vertex is retried as the first vertex (and anchor) of the next block.
// Both real and padding writes are bounded by maxOutputSize; exceeding it returns ErrCapacityExceeded
// and leaves the outputs partially written.
func (p *Packer) RepackVertices(vertexCount int, input, anchors []uint16, packed, remap []uint32, stride, maxOutputSize int) (int, error) {
	bs := p.blockSize
	if bs <= 0 {
		return 0, ErrInvalidBlockSize
	}
	if stride < 3 {
		return 0, ErrInvalidStride
	}
	if err := checkBuffers(vertexCount, len(input), len(anchors), len(packed), len(remap), stride, maxOutputSize, bs); err != nil {
		return 0, err
	}

	block := -1
	n := 0
	for i := 0; i < vertexCount; {
		if n >= maxOutputSize {
			return 0, ErrCapacityExceeded
		}

		rec := input[i*stride : i*stride+3]
		x, y, z := rec[0], rec[1], rec[2]

		if n%bs == 0 {
			block++
			anchors[block*3+0] = x
			anchors[block*3+1] = y
			anchors[block*3+2] = z
		}
		a := anchors[block*3 : block*3+3]

		dx := delta(x, a[0])
		dy := delta(y, a[1])
		dz := delta(z, a[2])

		if overflows(dx) || overflows(dy) || overflows(dz) {
			// close the block; i is not advanced so the vertex anchors the next one
			for n%bs != 0 {
				if n >= maxOutputSize {
					return 0, ErrCapacityExceeded
				}
				packed[n] = 0
				n++
			}
			continue
		}

		packed[n] = PackWord(uint32(dx), uint32(dy), uint32(dz))
		remap[i] = uint32(n)
		n++
		i++
	}
	return n, nil
}

func checkBuffers(vertexCount, input, anchors, packed, remap, stride, maxOutputSize, bs int) error {
	if vertexCount <= 0 {
		return nil
	}
	if need := (vertexCount-1)*stride + 3; input < need {
		return &BufferError{Name: "input", Need: need, Have: input}
	}
	if remap < vertexCount {
		return &BufferError{Name: "remap", Need: vertexCount, Have: remap}
	}
	if maxOutputSize < 0 {
		maxOutputSize = 0
	}
	if packed < maxOutputSize {
		return &BufferError{Name: "packed", Need: maxOutputSize, Have: packed}
	}
	if need := AnchorLen(maxOutputSize, bs); anchors < need {
		return &BufferError{Name: "anchors", Need: need, Have: anchors}
	}
	return nil
}

// Pack packs every vertex record of input, allocating its own buffers. It first tries the
// heuristic capacity; when that is exceeded it measures the exact packed length with PackedLen
// and packs again into buffers of exactly that size.
func (p *Packer) Pack(input []uint16, stride int) (*Packed, error) {
	if p.blockSize <= 0 {
		return nil, ErrInvalidBlockSize
	}
	if stride < 3 {
		return nil, ErrInvalidStride
	}
	n := VertexCount(len(input), stride)

	out, err := p.packWithCapacity(input, n, stride, SuggestedCapacity(n))
	if errors.Is(err, ErrCapacityExceeded) {
		var exact int
		if exact, err = p.PackedLen(input, stride); err != nil {
			return nil, err
		}
		out, err = p.packWithCapacity(input, n, stride, exact)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PackedLen runs the packer's block logic without writing anything and returns the packed
// length, padding included, that RepackVertices would produce for input.
func (p *Packer) PackedLen(input []uint16, stride int) (int, error) {
	bs := p.blockSize
	if bs <= 0 {
		return 0, ErrInvalidBlockSize
	}
	if stride < 3 {
		return 0, ErrInvalidStride
	}
	n := VertexCount(len(input), stride)

	var anchor [3]uint16
	length := 0
	for i := 0; i < n; {
		rec := input[i*stride : i*stride+3]
		if length%bs == 0 {
			anchor = [3]uint16{rec[0], rec[1], rec[2]}
		}
		if overflows(delta(rec[0], anchor[0])) || overflows(delta(rec[1], anchor[1])) || overflows(delta(rec[2], anchor[2])) {
			length += bs - length%bs
			continue
		}
		length++
		i++
	}
	return length, nil
}

func (p *Packer) packWithCapacity(input []uint16, n, stride, capacity int) (*Packed, error) {
	bs := p.blockSize
	words := make([]uint32, capacity)
	anchors := make([]uint16, AnchorLen(capacity, bs))
	remap := make([]uint32, n)

	length, err := p.RepackVertices(n, input, anchors, words, remap, stride, capacity)
	if err != nil {
		return nil, err
	}
	out := &Packed{BlockSize: bs, Words: words[:length], Remap: remap}
	out.Anchors = anchors[:3*out.Blocks()]
	return out, nil
}

// VertexCount returns how many complete vertex records (first 3 components present)
// a buffer of the given length holds at the given stride.
func VertexCount(length, stride int) int {
	if stride < 3 || length < 3 {
		return 0
	}
	return (length-3)/stride + 1
}

// MaxPackedLen is the worst-case packed length for n vertices: every vertex except the last
// overflows its predecessor's block and starts a fresh one.
func MaxPackedLen(n, blockSize int) int {
	if n <= 0 {
		return 0
	}
	return (n-1)*blockSize + 1
}

// AnchorLen returns the anchor buffer length (3 values per block) needed for a packed capacity.
func AnchorLen(maxOutputSize, blockSize int) int {
	if maxOutputSize <= 0 || blockSize <= 0 {
		return 0
	}
	return 3 * ((maxOutputSize + blockSize - 1) / blockSize)
}

// SuggestedCapacity is the first-try capacity: 1.5x the vertex count.
func SuggestedCapacity(n int) int {
	return n + n/2
}
