package repack

// Packed word layout: X (10 bits) | Y (10 bits) | Z (10 bits) | 2 reserved flag bits.
const (
	DeltaBias = 512
	DeltaBits = 10
	DeltaMax  = 1<<DeltaBits - 1

	shiftX = 22
	shiftY = 12
	shiftZ = 2

	// any bit set outside [0,1023], including the sign bits of a negative delta
	overflowMask = ^int32(DeltaMax)
)

// PackWord encodes three biased 10-bit deltas into one word. Inputs must already be in [0,1023].
func PackWord(dx, dy, dz uint32) uint32 {
	return dx<<shiftX | dy<<shiftY | dz<<shiftZ
}

// UnpackWord extracts the three biased deltas of a packed word.
func UnpackWord(w uint32) (dx, dy, dz uint32) {
	return (w >> shiftX) & DeltaMax, (w >> shiftY) & DeltaMax, (w >> shiftZ) & DeltaMax
}

func delta(c, anchor uint16) int32 {
	return DeltaBias + int32(c) - int32(anchor)
}

func overflows(d int32) bool {
	return d&overflowMask != 0
}
