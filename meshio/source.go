package meshio

import (
	"bytes"
	"fmt"
	"log/slog"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/voxelsplace/repacker/repack"
)

// SourceMesh is an indexed triangle mesh with 16-bit grid positions, ready to be packed.
type SourceMesh struct {
	Name      string
	Positions []uint16 // Stride components per vertex, x,y,z first
	Stride    int
	Indices   repack.IndexBuffer
	Normals   [][3]float32 // per vertex, may be nil
	Quant     *repack.Quantization
}

// VertexCount returns the number of vertex records in Positions.
func (m *SourceMesh) VertexCount() int {
	return repack.VertexCount(len(m.Positions), m.Stride)
}

// Position returns the grid position of vertex v.
func (m *SourceMesh) Position(v int) [3]uint16 {
	rec := m.Positions[v*m.Stride:]
	return [3]uint16{rec[0], rec[1], rec[2]}
}

// LoadGLB reads every indexed triangle primitive of a .glb/.gltf file.
func LoadGLB(path string) ([]SourceMesh, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return meshesFromDocument(doc)
}

// DecodeGLB is LoadGLB for an in-memory .glb.
func DecodeGLB(data []byte) ([]SourceMesh, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decode glb: %w", err)
	}
	return meshesFromDocument(doc)
}

func meshesFromDocument(doc *gltf.Document) ([]SourceMesh, error) {
	var out []SourceMesh
	for mi, m := range doc.Meshes {
		for pi, prim := range m.Primitives {
			name := m.Name
			if name == "" {
				name = fmt.Sprintf("mesh_%d", mi)
			}
			if len(m.Primitives) > 1 {
				name = fmt.Sprintf("%s#%d", name, pi)
			}
			if prim.Mode != gltf.PrimitiveTriangles {
				slog.Warn("skipping non-triangle primitive", "mesh", name, "mode", prim.Mode)
				continue
			}
			// the remap table is only useful through an index buffer
			if prim.Indices == nil {
				slog.Warn("skipping primitive without indices", "mesh", name)
				continue
			}
			posIdx, ok := prim.Attributes[gltf.POSITION]
			if !ok {
				slog.Warn("skipping primitive without positions", "mesh", name)
				continue
			}

			src := SourceMesh{Name: name, Stride: 3}
			raw, err := modeler.ReadAccessor(doc, doc.Accessors[posIdx], nil)
			if err != nil {
				return nil, fmt.Errorf("%s: read positions: %w", name, err)
			}
			if src.Positions, src.Quant, err = gridPositions(raw); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}

			raw, err = modeler.ReadAccessor(doc, doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, fmt.Errorf("%s: read indices: %w", name, err)
			}
			if src.Indices, err = indexBuffer(raw); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}

			if nIdx, ok := prim.Attributes[gltf.NORMAL]; ok {
				raw, err = modeler.ReadAccessor(doc, doc.Accessors[nIdx], nil)
				if err != nil {
					return nil, fmt.Errorf("%s: read normals: %w", name, err)
				}
				if src.Normals, err = floatNormals(raw); err != nil {
					return nil, fmt.Errorf("%s: %w", name, err)
				}
			}
			slog.Debug("loaded primitive", "mesh", name, "vertices", src.VertexCount(), "indices", src.Indices.Len(), "index_width", src.Indices.Width())
			out = append(out, src)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no indexed triangle meshes found")
	}
	return out, nil
}

// gridPositions turns a POSITION accessor's data into stride-3 grid positions. Unsigned short
// data (KHR_mesh_quantization) is used as is; floats are quantized over their bounding box.
func gridPositions(raw any) ([]uint16, *repack.Quantization, error) {
	switch v := raw.(type) {
	case [][3]uint16:
		out := make([]uint16, 0, 3*len(v))
		for _, p := range v {
			out = append(out, p[0], p[1], p[2])
		}
		return out, nil, nil
	case [][3]int16:
		out := make([]uint16, 0, 3*len(v))
		for _, p := range v {
			out = append(out, uint16(int32(p[0])+32768), uint16(int32(p[1])+32768), uint16(int32(p[2])+32768))
		}
		return out, &repack.Quantization{Offset: [3]float32{-32768, -32768, -32768}, Scale: 1}, nil
	case [][3]uint8:
		out := make([]uint16, 0, 3*len(v))
		for _, p := range v {
			out = append(out, uint16(p[0]), uint16(p[1]), uint16(p[2]))
		}
		return out, nil, nil
	case [][3]float32:
		out, q := repack.QuantizePositions(v)
		return out, &q, nil
	}
	return nil, nil, fmt.Errorf("unsupported position data %T", raw)
}

func indexBuffer(raw any) (repack.IndexBuffer, error) {
	switch v := raw.(type) {
	case []uint8:
		out := make([]uint16, len(v))
		for i, x := range v {
			out[i] = uint16(x)
		}
		return repack.IndexBuffer{U16: out}, nil
	case []uint16:
		return repack.IndexBuffer{U16: v}, nil
	case []uint32:
		return repack.IndexBuffer{U32: v}, nil
	}
	return repack.IndexBuffer{}, fmt.Errorf("unsupported index data %T", raw)
}

func floatNormals(raw any) ([][3]float32, error) {
	switch v := raw.(type) {
	case [][3]float32:
		return v, nil
	case [][3]int16:
		return repack.DequantizeNormals(v), nil
	case [][3]int8:
		out := make([][3]float32, len(v))
		for i, n := range v {
			out[i] = [3]float32{float32(n[0]) / 127, float32(n[1]) / 127, float32(n[2]) / 127}
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported normal data %T", raw)
}
