package repack

// DefaultBlockSize matches the decoder shader's default anchor stride.
const DefaultBlockSize = 64

// Packer holds the block size register and runs the block-anchored delta packer.
// A Packer must not have its block size changed while a pack on it is in flight;
// independent goroutines should use independent Packers.
type Packer struct {
	blockSize int
}

// NewPacker returns a Packer using the given block size.
func NewPacker(blockSize int) *Packer {
	return &Packer{blockSize: blockSize}
}

// SetBlockSize replaces the block size used by subsequent packs. No validation is done here;
// a non-positive value makes the next pack fail with ErrInvalidBlockSize.
func (p *Packer) SetBlockSize(n int) {
	p.blockSize = n
}

// BlockSize returns the current block size.
func (p *Packer) BlockSize() int {
	return p.blockSize
}
