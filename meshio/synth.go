package meshio

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/voxelsplace/repacker/repack"
)

// SynthOptions shapes a synthetic heightfield mesh.
type SynthOptions struct {
	Width, Depth int     // vertices per side
	Spacing      int     // grid units between neighbouring vertices
	Amplitude    float64 // height of the base wave in grid units
	JumpChance   float64 // probability in [0,1] that a vertex is displaced far enough to overflow its block
	Stride       int     // components per vertex record, >= 3 (4 mimics an interleaved buffer)
}

// DefaultSynthOptions returns a 64x64 terrain with occasional spikes.
func DefaultSynthOptions() SynthOptions {
	return SynthOptions{Width: 64, Depth: 64, Spacing: 24, Amplitude: 300, JumpChance: 0.01, Stride: 4}
}

// GenerateSynthetic builds an indexed heightfield with smooth-shaded normals. Spikes of
// more than 1024 grid units force block overflows and therefore padding.
func GenerateSynthetic(opts SynthOptions, r *rand.Rand) (SourceMesh, error) {
	if opts.Width < 2 || opts.Depth < 2 {
		return SourceMesh{}, fmt.Errorf("synthetic mesh needs at least 2x2 vertices, got %dx%d", opts.Width, opts.Depth)
	}
	if opts.Stride < 3 {
		return SourceMesh{}, repack.ErrInvalidStride
	}
	if extent := (max(opts.Width, opts.Depth) - 1) * opts.Spacing; extent > math.MaxUint16 {
		return SourceMesh{}, fmt.Errorf("grid extent %d exceeds the 16-bit range", extent)
	}
	chance := min(max(opts.JumpChance, 0), 1)

	n := opts.Width * opts.Depth
	m := SourceMesh{Name: "synthetic", Stride: opts.Stride}
	m.Positions = make([]uint16, n*opts.Stride)
	base := math.MaxUint16 / 2.0
	for z := 0; z < opts.Depth; z++ {
		for x := 0; x < opts.Width; x++ {
			h := base + opts.Amplitude*math.Sin(float64(x)*0.2)*math.Cos(float64(z)*0.15)
			if r.Float64() < chance {
				h += 4000 + r.Float64()*8000
			}
			rec := m.Positions[(z*opts.Width+x)*opts.Stride:]
			rec[0] = uint16(x * opts.Spacing)
			rec[1] = uint16(math.Max(0, math.Min(math.MaxUint16, h)))
			rec[2] = uint16(z * opts.Spacing)
		}
	}

	idx := make([]uint32, 0, (opts.Width-1)*(opts.Depth-1)*6)
	for z := 0; z < opts.Depth-1; z++ {
		for x := 0; x < opts.Width-1; x++ {
			v := uint32(z*opts.Width + x)
			w := uint32(opts.Width)
			idx = append(idx, v, v+w, v+1, v+1, v+w, v+w+1)
		}
	}
	m.Indices = repack.Narrowest(idx, uint32(n-1))
	m.Normals = vertexNormals(&m, idx)
	m.Quant = &repack.Quantization{Scale: 1}
	return m, nil
}

// vertexNormals accumulates area-weighted face normals per vertex.
func vertexNormals(m *SourceMesh, tris []uint32) [][3]float32 {
	acc := make([][3]float64, m.VertexCount())
	for i := 0; i+2 < len(tris); i += 3 {
		v0, v1, v2 := tris[i], tris[i+1], tris[i+2]
		p0, p1, p2 := m.Position(int(v0)), m.Position(int(v1)), m.Position(int(v2))
		e1 := [3]float64{float64(p1[0]) - float64(p0[0]), float64(p1[1]) - float64(p0[1]), float64(p1[2]) - float64(p0[2])}
		e2 := [3]float64{float64(p2[0]) - float64(p0[0]), float64(p2[1]) - float64(p0[1]), float64(p2[2]) - float64(p0[2])}
		cross := [3]float64{
			e1[1]*e2[2] - e1[2]*e2[1],
			e1[2]*e2[0] - e1[0]*e2[2],
			e1[0]*e2[1] - e1[1]*e2[0],
		}
		for _, v := range [3]uint32{v0, v1, v2} {
			acc[v][0] += cross[0]
			acc[v][1] += cross[1]
			acc[v][2] += cross[2]
		}
	}
	out := make([][3]float32, len(acc))
	for i, c := range acc {
		length := math.Sqrt(c[0]*c[0] + c[1]*c[1] + c[2]*c[2])
		if length > 0 {
			out[i] = [3]float32{float32(c[0] / length), float32(c[1] / length), float32(c[2] / length)}
		} else {
			out[i] = [3]float32{0, 1, 0}
		}
	}
	return out
}
