package repack

// Anchor returns the anchor of a block.
func (p *Packed) Anchor(block int) [3]uint16 {
	a := p.Anchors[block*3 : block*3+3]
	return [3]uint16{a[0], a[1], a[2]}
}

// Slot decodes the position stored at a packed slot the way the vertex shader does:
// anchor + field - 512 per axis. Padding slots decode to meaningless values.
func (p *Packed) Slot(i int) [3]uint16 {
	a := p.Anchor(i / p.BlockSize)
	dx, dy, dz := UnpackWord(p.Words[i])
	return [3]uint16{
		uint16(int32(a[0]) + int32(dx) - DeltaBias),
		uint16(int32(a[1]) + int32(dy) - DeltaBias),
		uint16(int32(a[2]) + int32(dz) - DeltaBias),
	}
}

// Decode recovers the original positions, 3 components per vertex in input order.
func (p *Packed) Decode() []uint16 {
	out := make([]uint16, 0, 3*len(p.Remap))
	for _, slot := range p.Remap {
		pos := p.Slot(int(slot))
		out = append(out, pos[0], pos[1], pos[2])
	}
	return out
}

// SlotPositions decodes every slot in stream order; padding slots are returned as the anchor
// of their block so a renderer drawing them would collapse to a point.
func (p *Packed) SlotPositions() [][3]uint16 {
	out := make([][3]uint16, len(p.Words))
	occupied := p.Occupied()
	for i := range p.Words {
		if occupied.Contains(uint32(i)) {
			out[i] = p.Slot(i)
		} else {
			out[i] = p.Anchor(i / p.BlockSize)
		}
	}
	return out
}
