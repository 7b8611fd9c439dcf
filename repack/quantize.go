package repack

import "math"

// Quantization maps float positions to the 16-bit grid: q = round((p - Offset) * Scale).
// A single scale keeps the mesh's aspect ratio.
type Quantization struct {
	Offset [3]float32
	Scale  float32
}

// QuantizePositions fits the bounding box of positions into [0,65535] on its longest axis
// and returns the positions as x,y,z triples (stride 3).
func QuantizePositions(positions [][3]float32) ([]uint16, Quantization) {
	if len(positions) == 0 {
		return nil, Quantization{Scale: 1}
	}
	lo, hi := positions[0], positions[0]
	for _, p := range positions[1:] {
		for c := 0; c < 3; c++ {
			lo[c] = min(lo[c], p[c])
			hi[c] = max(hi[c], p[c])
		}
	}
	extent := max(hi[0]-lo[0], hi[1]-lo[1], hi[2]-lo[2])
	q := Quantization{Offset: lo, Scale: 1}
	if extent > 0 {
		q.Scale = math.MaxUint16 / extent
	}

	out := make([]uint16, 0, 3*len(positions))
	for _, p := range positions {
		for c := 0; c < 3; c++ {
			v := math.Round(float64((p[c] - lo[c]) * q.Scale))
			out = append(out, uint16(math.Max(0, math.Min(math.MaxUint16, v))))
		}
	}
	return out, q
}

// Dequantize maps a grid position back to model space.
func (q Quantization) Dequantize(p [3]uint16) [3]float32 {
	s := q.Scale
	if s == 0 {
		s = 1
	}
	return [3]float32{
		float32(p[0])/s + q.Offset[0],
		float32(p[1])/s + q.Offset[1],
		float32(p[2])/s + q.Offset[2],
	}
}
