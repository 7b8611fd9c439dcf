package repack

import "math"

// ScatterAttribute moves a per-vertex attribute (components values per vertex) into the packed
// layout, so slot remap[v] holds vertex v's values. Padding slots stay zero.
func ScatterAttribute[T any](src []T, components int, remap []uint32, packedLen int) []T {
	out := make([]T, packedLen*components)
	for v, slot := range remap {
		copy(out[int(slot)*components:(int(slot)+1)*components], src[v*components:(v+1)*components])
	}
	return out
}

// QuantizeNormals maps unit normals to signed 16-bit normalized integers (x * 32767).
func QuantizeNormals(normals [][3]float32) [][3]int16 {
	out := make([][3]int16, len(normals))
	for i, n := range normals {
		for c := 0; c < 3; c++ {
			v := math.Round(float64(n[c]) * math.MaxInt16)
			v = math.Max(-math.MaxInt16, math.Min(math.MaxInt16, v))
			out[i][c] = int16(v)
		}
	}
	return out
}

// DequantizeNormals is the inverse of QuantizeNormals.
func DequantizeNormals(normals [][3]int16) [][3]float32 {
	out := make([][3]float32, len(normals))
	for i, n := range normals {
		for c := 0; c < 3; c++ {
			out[i][c] = float32(n[c]) / math.MaxInt16
		}
	}
	return out
}
