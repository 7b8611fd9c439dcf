package meshio

import (
	"fmt"
	"slices"

	"github.com/voxelsplace/repacker/repack"
)

// DefaultSplitLimit keeps every part addressable with 16-bit indices.
const DefaultSplitLimit = 65000

// SplitMesh partitions a triangle mesh until every part references at most limit vertices.
// Triangles are split at the median of their centers, cycling x, y, z at each level;
// parts get their own compacted vertex set and 16-bit indices when they fit.
func SplitMesh(m SourceMesh, limit int) ([]SourceMesh, error) {
	if limit < 3 {
		return nil, fmt.Errorf("split limit must be at least 3, got %d", limit)
	}
	tris := m.Indices.Uint32s()
	if len(tris)%3 != 0 {
		return nil, fmt.Errorf("%s: index count %d is not a multiple of 3", m.Name, len(tris))
	}
	if err := m.Indices.Check(m.VertexCount()); err != nil {
		return nil, fmt.Errorf("%s: %w", m.Name, err)
	}
	if m.VertexCount() <= limit {
		return []SourceMesh{m}, nil
	}

	faces := make([]int, len(tris)/3)
	centers := make([][3]float64, len(faces))
	for f := range faces {
		faces[f] = f
		for k := 0; k < 3; k++ {
			p := m.Position(int(tris[f*3+k]))
			for c := 0; c < 3; c++ {
				centers[f][c] += float64(p[c]) / 3
			}
		}
	}

	var parts [][]int
	var split func(faces []int, axis int)
	split = func(faces []int, axis int) {
		if uniqueVertices(tris, faces) <= limit || len(faces) < 2 {
			parts = append(parts, faces)
			return
		}
		vals := make([]float64, len(faces))
		for i, f := range faces {
			vals[i] = centers[f][axis]
		}
		median := medianOf(vals)

		var left, right []int
		for _, f := range faces {
			if centers[f][axis] > median {
				right = append(right, f)
			} else {
				left = append(left, f)
			}
		}
		if len(left) == 0 || len(right) == 0 {
			mid := len(faces) / 2
			left, right = faces[:mid], faces[mid:]
		}
		next := (axis + 1) % 3
		split(left, next)
		split(right, next)
	}
	split(faces, 0)

	out := make([]SourceMesh, 0, len(parts))
	for i, part := range parts {
		out = append(out, extractPart(m, tris, part, fmt.Sprintf("%s.part%04d", m.Name, i)))
	}
	return out, nil
}

func uniqueVertices(tris []uint32, faces []int) int {
	seen := make(map[uint32]struct{}, len(faces)*3/2)
	for _, f := range faces {
		seen[tris[f*3]] = struct{}{}
		seen[tris[f*3+1]] = struct{}{}
		seen[tris[f*3+2]] = struct{}{}
	}
	return len(seen)
}

func medianOf(vals []float64) float64 {
	s := slices.Clone(vals)
	slices.Sort(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

// extractPart builds a mesh from a subset of triangles. Vertices keep their original relative
// order, which preserves whatever spatial locality the source had.
func extractPart(m SourceMesh, tris []uint32, faces []int, name string) SourceMesh {
	used := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		used = append(used, tris[f*3], tris[f*3+1], tris[f*3+2])
	}
	slices.Sort(used)
	used = slices.Compact(used)

	local := make(map[uint32]uint32, len(used))
	part := SourceMesh{Name: name, Stride: 3, Quant: m.Quant}
	part.Positions = make([]uint16, 0, 3*len(used))
	if m.Normals != nil {
		part.Normals = make([][3]float32, 0, len(used))
	}
	for i, v := range used {
		local[v] = uint32(i)
		p := m.Position(int(v))
		part.Positions = append(part.Positions, p[0], p[1], p[2])
		if m.Normals != nil {
			part.Normals = append(part.Normals, m.Normals[v])
		}
	}

	idx := make([]uint32, 0, len(faces)*3)
	for _, f := range faces {
		idx = append(idx, local[tris[f*3]], local[tris[f*3+1]], local[tris[f*3+2]])
	}
	part.Indices = repack.Narrowest(idx, uint32(len(used)-1))
	return part
}
