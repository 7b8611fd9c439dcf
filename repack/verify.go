package repack

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"
)

// Occupied returns the set of slots that hold a real vertex.
func (p *Packed) Occupied() *roaring.Bitmap {
	bm := roaring.New()
	for _, slot := range p.Remap {
		bm.Add(slot)
	}
	return bm
}

// PaddingSlots returns the set of slots no vertex maps to.
func (p *Packed) PaddingSlots() *roaring.Bitmap {
	return roaring.Flip(p.Occupied(), 0, uint64(len(p.Words)))
}

// Verify checks the structural invariants of a successful pack:
//   - every vertex maps to its own in-range slot,
//   - every block starts with a real vertex equal to its anchor,
//   - padding words are zero and only ever fill the tail of a block,
//   - the 2 reserved low bits of every word are zero.
func (p *Packed) Verify() error {
	bs := p.BlockSize
	if bs <= 0 {
		return ErrInvalidBlockSize
	}
	if need := 3 * p.Blocks(); len(p.Anchors) < need {
		return &BufferError{Name: "anchors", Need: need, Have: len(p.Anchors)}
	}

	occupied := roaring.New()
	for v, slot := range p.Remap {
		if int(slot) >= len(p.Words) {
			return fmt.Errorf("vertex %d maps to slot %d past packed length %d", v, slot, len(p.Words))
		}
		if !occupied.CheckedAdd(slot) {
			return fmt.Errorf("vertex %d maps to slot %d which is already taken", v, slot)
		}
	}

	for i, w := range p.Words {
		if w&0x3 != 0 {
			return fmt.Errorf("slot %d has reserved bits set: %#08x", i, w)
		}
		if i%bs == 0 {
			if !occupied.Contains(uint32(i)) {
				return fmt.Errorf("block %d starts with padding", i/bs)
			}
			dx, dy, dz := UnpackWord(w)
			if dx != DeltaBias || dy != DeltaBias || dz != DeltaBias {
				return fmt.Errorf("block %d first slot differs from its anchor", i/bs)
			}
		}
		if occupied.Contains(uint32(i)) {
			continue
		}
		if w != 0 {
			return fmt.Errorf("padding slot %d is not zero: %#08x", i, w)
		}
		next := i + 1
		if next == len(p.Words) {
			return fmt.Errorf("packed stream ends with padding at slot %d", i)
		}
		if next%bs != 0 && occupied.Contains(uint32(next)) {
			return fmt.Errorf("padding slot %d is followed by a vertex inside block %d", i, i/bs)
		}
	}
	return nil
}
