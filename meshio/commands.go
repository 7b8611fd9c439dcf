package meshio

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	xxhash "github.com/cespare/xxhash/v2"
	"github.com/dustin/go-humanize"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
	"github.com/voxelsplace/repacker/repack"
	"golang.org/x/sync/errgroup"
)

// Options configures a conversion.
type Options struct {
	BlockSize   int
	Compression repack.Compression
	Layout      repack.WordLayout
	SpatialSort bool // Morton-order vertices before packing
	SplitLimit  int  // split meshes above this many vertices, 0 disables
	Workers     int  // parallel files in RunRepackDir
}

// DefaultOptions mirrors what the viewer expects: 64-vertex blocks, zstd, 30-bit words.
func DefaultOptions() Options {
	return Options{
		BlockSize:   repack.DefaultBlockSize,
		Compression: repack.CompZstd,
		Layout:      repack.LayoutPacked30,
		SplitLimit:  DefaultSplitLimit,
		Workers:     4,
	}
}

// PackMesh packs one source mesh with its own Packer and rewrites its indices to packed slots.
// The source index buffer is not modified.
func PackMesh(src SourceMesh, opts Options) (repack.Mesh, error) {
	if err := src.Indices.Check(src.VertexCount()); err != nil {
		return repack.Mesh{}, fmt.Errorf("%s: %w", src.Name, err)
	}
	p := repack.NewPacker(opts.BlockSize)

	start := time.Now()
	var packed *repack.Packed
	var err error
	if opts.SpatialSort {
		packed, err = p.PackSpatial(src.Positions, src.Stride)
	} else {
		packed, err = p.Pack(src.Positions, src.Stride)
	}
	if err != nil {
		return repack.Mesh{}, fmt.Errorf("%s: pack: %w", src.Name, err)
	}

	// padding can push slot numbers past what 16-bit indices hold
	var indices repack.IndexBuffer
	if src.Indices.Width() == 2 && packed.Len() <= 1<<16 {
		indices.U16 = append([]uint16(nil), src.Indices.U16...)
	} else {
		indices.U32 = append([]uint32(nil), src.Indices.Uint32s()...)
	}
	indices.Remap(packed.Remap)

	out := repack.Mesh{Name: src.Name, Packed: packed, Indices: indices, Quant: src.Quant}
	if src.Normals != nil {
		if len(src.Normals) != src.VertexCount() {
			return repack.Mesh{}, fmt.Errorf("%s: %d normals for %d vertices", src.Name, len(src.Normals), src.VertexCount())
		}
		out.Normals = repack.ScatterAttribute(repack.QuantizeNormals(src.Normals), 1, packed.Remap, packed.Len())
	}

	slog.Info("packed mesh",
		"mesh", src.Name,
		"vertices", packed.VertexCount(),
		"packed", packed.Len(),
		"blocks", packed.Blocks(),
		"expansion", fmt.Sprintf("%.3f", packed.Expansion()),
		"elapsed", time.Since(start))
	return out, nil
}

// PackSources splits (when enabled) and packs every source mesh.
func PackSources(sources []SourceMesh, opts Options) ([]repack.Mesh, error) {
	var out []repack.Mesh
	for _, src := range sources {
		parts := []SourceMesh{src}
		if opts.SplitLimit > 0 && src.VertexCount() > opts.SplitLimit {
			var err error
			if parts, err = SplitMesh(src, opts.SplitLimit); err != nil {
				return nil, err
			}
			slog.Info("split mesh", "mesh", src.Name, "vertices", src.VertexCount(), "parts", len(parts))
		}
		for _, part := range parts {
			m, err := PackMesh(part, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, m)
		}
	}
	return out, nil
}

// ConvertGLB packs a .glb held in memory and returns the .rpk bytes.
func ConvertGLB(glb []byte, opts Options) ([]byte, error) {
	sources, err := DecodeGLB(glb)
	if err != nil {
		return nil, err
	}
	meshes, err := PackSources(sources, opts)
	if err != nil {
		return nil, err
	}
	return repack.Marshal(meshes, opts.Compression, opts.Layout)
}

// RunGLB2RPK converts a .glb/.gltf file into an .rpk file.
func RunGLB2RPK(inPath, outPath string, opts Options) error {
	sources, err := LoadGLB(inPath)
	if err != nil {
		return err
	}
	meshes, err := PackSources(sources, opts)
	if err != nil {
		return err
	}
	start := time.Now()
	data, err := repack.Marshal(meshes, opts.Compression, opts.Layout)
	if err != nil {
		return err
	}
	slog.Info("encoded rpk",
		"file", outPath,
		"meshes", len(meshes),
		"size", humanize.Bytes(uint64(len(data))),
		"compression", opts.Compression,
		"layout", opts.Layout,
		"elapsed", time.Since(start))
	return os.WriteFile(outPath, data, 0644)
}

// RunRPK2GLB decodes an .rpk file and writes the meshes as binary glTF.
func RunRPK2GLB(inPath, outPath string) error {
	data, err := os.ReadFile(inPath)
	if err != nil {
		return err
	}
	meshes, _, err := repack.Unmarshal(data)
	if err != nil {
		return err
	}
	return gltf.SaveBinary(BuildDocument(meshes), outPath)
}

// RunInfo prints a summary of an .rpk file and verifies every packed stream.
func RunInfo(path string, w io.Writer) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	meshes, hdr, err := repack.Unmarshal(data)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "%s: %s, version %d, %s, %s words, %d meshes\n",
		filepath.Base(path), humanize.Bytes(uint64(len(data))), hdr.Version, hdr.Compression, hdr.Layout, len(meshes))

	var verr error
	for _, m := range meshes {
		p := m.Packed
		h := xxhash.New()
		for _, word := range p.Words {
			_, _ = h.Write([]byte{byte(word), byte(word >> 8), byte(word >> 16), byte(word >> 24)})
		}
		status := "ok"
		if err := p.Verify(); err != nil {
			status = err.Error()
			if verr == nil {
				verr = fmt.Errorf("%s: %w", m.Name, err)
			}
		}
		fmt.Fprintf(w, "  %-24s block=%d vertices=%s packed=%s padding=%d blocks=%d expansion=%.3f indices=%d/u%d normals=%t fingerprint=%016x %s\n",
			m.Name, p.BlockSize,
			humanize.Comma(int64(p.VertexCount())), humanize.Comma(int64(p.Len())),
			p.PaddingSlots().GetCardinality(), p.Blocks(), p.Expansion(),
			m.Indices.Len(), 8*m.Indices.Width(), m.Normals != nil, h.Sum64(), status)
	}
	return verr
}

// RunRepackDir converts every .glb/.gltf in inDir to an .rpk in outDir, opts.Workers files at a time.
// Each file gets its own Packer, so block sizes never interfere between workers.
func RunRepackDir(ctx context.Context, inDir, outDir string, opts Options) error {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(max(opts.Workers, 1))
	start := time.Now()
	count := 0
	for _, e := range entries {
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if e.IsDir() || (ext != ".glb" && ext != ".gltf") {
			continue
		}
		count++
		in := filepath.Join(inDir, e.Name())
		out := filepath.Join(outDir, strings.TrimSuffix(e.Name(), filepath.Ext(e.Name()))+".rpk")
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := RunGLB2RPK(in, out, opts); err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	slog.Info("repacked directory", "dir", inDir, "files", count, "elapsed", time.Since(start))
	return nil
}

// RunGenSynth writes amount synthetic heightfield meshes as float-position .glb files into outDir.
func RunGenSynth(opts SynthOptions, amount int, seed int64, outDir string) error {
	if amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return err
	}
	r := rand.New(rand.NewSource(seed))
	for i := 0; i < amount; i++ {
		m, err := GenerateSynthetic(opts, r)
		if err != nil {
			return err
		}
		m.Name = fmt.Sprintf("synth_%04d", i)
		path := filepath.Join(outDir, m.Name+".glb")
		if err := gltf.SaveBinary(sourceDocument(m), path); err != nil {
			return err
		}
		slog.Debug("generated synthetic mesh", "file", path, "vertices", m.VertexCount())
	}
	return nil
}

// sourceDocument writes an unpacked mesh with float positions.
func sourceDocument(m SourceMesh) *gltf.Document {
	doc := gltf.NewDocument()
	doc.Asset.Generator = "repacktool gensynth"

	positions := make([][3]float32, m.VertexCount())
	for v := range positions {
		p := m.Position(v)
		if m.Quant != nil {
			positions[v] = m.Quant.Dequantize(p)
		} else {
			positions[v] = [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
		}
	}
	prim := &gltf.Primitive{
		Attributes: map[string]uint32{
			gltf.POSITION: uint32(modeler.WritePosition(doc, positions)),
		},
	}
	if m.Normals != nil {
		prim.Attributes[gltf.NORMAL] = uint32(modeler.WriteNormal(doc, m.Normals))
	}
	if m.Indices.Width() == 2 {
		prim.Indices = gltf.Index(uint32(modeler.WriteIndices(doc, m.Indices.U16)))
	} else {
		prim.Indices = gltf.Index(uint32(modeler.WriteIndices(doc, m.Indices.U32)))
	}
	doc.Meshes = []*gltf.Mesh{{Name: m.Name, Primitives: []*gltf.Primitive{prim}}}
	doc.Nodes = []*gltf.Node{{Name: m.Name, Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, uint32(0))
	return doc
}
