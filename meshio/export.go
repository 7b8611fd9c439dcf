package meshio

import (
	"bytes"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/voxelsplace/repacker/repack"
)

// BuildDocument decodes packed meshes back to float positions and builds a glTF document,
// one node per mesh. Vertices stay in packed slot order since the index buffers address slots.
func BuildDocument(meshes []repack.Mesh) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "RPK -> GLB"

	pbr := &gltf.PBRMetallicRoughness{BaseColorFactor: &[4]float32{1, 1, 1, 1}, MetallicFactor: gltf.Float(0), RoughnessFactor: gltf.Float(1)}
	doc.Materials = []*gltf.Material{{PBRMetallicRoughness: pbr, AlphaMode: gltf.AlphaOpaque}}

	for _, m := range meshes {
		slots := m.Packed.SlotPositions()
		positions := make([][3]float32, len(slots))
		for i, s := range slots {
			if m.Quant != nil {
				positions[i] = m.Quant.Dequantize(s)
			} else {
				positions[i] = [3]float32{float32(s[0]), float32(s[1]), float32(s[2])}
			}
		}

		posAccessor := modeler.WritePosition(doc, positions)
		prim := &gltf.Primitive{
			Attributes: map[string]uint32{
				gltf.POSITION: uint32(posAccessor),
			},
			Material: gltf.Index(0),
		}
		if m.Normals != nil {
			normalAccessor := modeler.WriteNormal(doc, repack.DequantizeNormals(m.Normals))
			prim.Attributes[gltf.NORMAL] = uint32(normalAccessor)
		}
		switch m.Indices.Width() {
		case 2:
			prim.Indices = gltf.Index(uint32(modeler.WriteIndices(doc, m.Indices.U16)))
		case 4:
			prim.Indices = gltf.Index(uint32(modeler.WriteIndices(doc, m.Indices.U32)))
		}

		doc.Meshes = append(doc.Meshes, &gltf.Mesh{Name: m.Name, Primitives: []*gltf.Primitive{prim}})
		node := &gltf.Node{Name: m.Name, Mesh: gltf.Index(uint32(len(doc.Meshes) - 1))}
		doc.Nodes = append(doc.Nodes, node)
		doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(len(doc.Nodes)-1))
	}
	return doc
}

// EncodeGLB renders BuildDocument as binary glTF bytes.
func EncodeGLB(meshes []repack.Mesh) ([]byte, error) {
	var out bytes.Buffer
	enc := gltf.NewEncoder(&out)
	enc.AsBinary = true
	if err := enc.Encode(BuildDocument(meshes)); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
