package repack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"

	xxhash "github.com/cespare/xxhash/v2"
)

// Mesh is one packed mesh stored in an .rpk file, with everything a renderer needs:
// the packed stream and anchors, the rewritten index buffer and optional packed-layout normals.
type Mesh struct {
	Name    string
	Packed  *Packed
	Indices IndexBuffer   // already remapped to packed slots
	Normals [][3]int16    // len == Packed.Len() when present
	Quant   *Quantization // set when positions were quantized from floats
}

// Marshal encodes meshes into an .rpk file.
func Marshal(meshes []Mesh, comp Compression, layout WordLayout) ([]byte, error) {
	if layout != LayoutRaw32 && layout != LayoutPacked30 {
		return nil, fmt.Errorf("unsupported word layout: %d", layout)
	}
	var content bytes.Buffer
	putUvarint(&content, uint64(len(meshes)))
	for i := range meshes {
		if err := writeMesh(&content, &meshes[i], layout); err != nil {
			return nil, fmt.Errorf("mesh %d (%s): %w", i, meshes[i].Name, err)
		}
	}
	sum := xxhash.Sum64(content.Bytes())

	body, err := compress(content.Bytes(), comp)
	if err != nil {
		return nil, err
	}

	var out bytes.Buffer
	out.Grow(headerLen + len(body) + checksumLen)
	out.WriteString(rpkMagic)
	_ = binary.Write(&out, binary.LittleEndian, uint8(rpkVersion1))
	_ = binary.Write(&out, binary.LittleEndian, uint8(comp))
	_ = binary.Write(&out, binary.LittleEndian, uint8(layout))
	_, _ = out.Write(body)
	_ = binary.Write(&out, binary.LittleEndian, sum)
	return out.Bytes(), nil
}

func writeMesh(w *bytes.Buffer, m *Mesh, layout WordLayout) error {
	p := m.Packed
	if p == nil {
		return fmt.Errorf("missing packed stream")
	}
	if len(m.Name) > maxNameBytes {
		return fmt.Errorf("name too long: %d bytes", len(m.Name))
	}
	if m.Normals != nil && len(m.Normals) != p.Len() {
		return fmt.Errorf("normals length %d does not match packed length %d", len(m.Normals), p.Len())
	}
	putUvarint(w, uint64(len(m.Name)))
	w.WriteString(m.Name)
	putUvarint(w, uint64(p.BlockSize))
	putUvarint(w, uint64(p.VertexCount()))
	putUvarint(w, uint64(p.Len()))

	switch layout {
	case LayoutRaw32:
		_ = binary.Write(w, binary.LittleEndian, p.Words)
	case LayoutPacked30:
		w.Write(packWords30(p.Words))
	}
	putUvarint(w, uint64(len(p.Anchors)))
	_ = binary.Write(w, binary.LittleEndian, p.Anchors)
	_ = binary.Write(w, binary.LittleEndian, p.Remap)

	_ = binary.Write(w, binary.LittleEndian, uint8(m.Indices.Width()))
	putUvarint(w, uint64(m.Indices.Len()))
	switch m.Indices.Width() {
	case 2:
		_ = binary.Write(w, binary.LittleEndian, m.Indices.U16)
	case 4:
		_ = binary.Write(w, binary.LittleEndian, m.Indices.U32)
	}

	if m.Normals != nil {
		_ = binary.Write(w, binary.LittleEndian, uint8(1))
		_ = binary.Write(w, binary.LittleEndian, m.Normals)
	} else {
		_ = binary.Write(w, binary.LittleEndian, uint8(0))
	}

	if m.Quant != nil {
		_ = binary.Write(w, binary.LittleEndian, uint8(1))
		_ = binary.Write(w, binary.LittleEndian, m.Quant.Offset)
		_ = binary.Write(w, binary.LittleEndian, m.Quant.Scale)
	} else {
		_ = binary.Write(w, binary.LittleEndian, uint8(0))
	}
	return nil
}

// ParseHeader reads the fixed preamble of an .rpk file.
func ParseHeader(data []byte) (Header, error) {
	var hdr Header
	if len(data) < headerLen+checksumLen || string(data[:4]) != rpkMagic {
		return hdr, ErrNotRPK
	}
	hdr.Version = data[4]
	hdr.Compression = Compression(data[5])
	hdr.Layout = WordLayout(data[6])
	if hdr.Version != rpkVersion1 {
		return hdr, fmt.Errorf("unsupported rpk version: %d", hdr.Version)
	}
	return hdr, nil
}

// Unmarshal parses an .rpk file and returns its meshes and header.
func Unmarshal(data []byte) ([]Mesh, Header, error) {
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, hdr, err
	}
	body := data[headerLen : len(data)-checksumLen]
	sum := binary.LittleEndian.Uint64(data[len(data)-checksumLen:])

	content, err := decompress(body, hdr.Compression)
	if err != nil {
		return nil, hdr, fmt.Errorf("decompress %s content: %w", hdr.Compression, err)
	}
	if xxhash.Sum64(content) != sum {
		return nil, hdr, ErrChecksum
	}

	r := bytes.NewReader(content)
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, hdr, err
	}
	if n > uint64(r.Len()) {
		return nil, hdr, fmt.Errorf("mesh count %d exceeds content size", n)
	}
	meshes := make([]Mesh, n)
	for i := range meshes {
		if err := readMesh(r, &meshes[i], hdr.Layout); err != nil {
			return nil, hdr, fmt.Errorf("mesh %d: %w", i, err)
		}
	}
	if r.Len() != 0 {
		return nil, hdr, fmt.Errorf("%d trailing content bytes", r.Len())
	}
	return meshes, hdr, nil
}

func readMesh(r *bytes.Reader, m *Mesh, layout WordLayout) error {
	nameLen, err := readCount(r, 1)
	if err != nil {
		return err
	}
	name := make([]byte, nameLen)
	if _, err := io.ReadFull(r, name); err != nil {
		return err
	}
	m.Name = string(name)

	bs, err := binary.ReadUvarint(r)
	if err != nil {
		return err
	}
	if bs == 0 || bs > math.MaxInt32 {
		return ErrInvalidBlockSize
	}
	vertexCount, err := readCount(r, 4)
	if err != nil {
		return err
	}
	packedLen, err := binary.ReadUvarint(r)
	if err != nil {
		return err
	}

	p := &Packed{BlockSize: int(bs)}
	switch layout {
	case LayoutRaw32:
		if packedLen > uint64(r.Len()) || packedLen*4 > uint64(r.Len()) {
			return io.ErrUnexpectedEOF
		}
		p.Words = make([]uint32, packedLen)
		if err := binary.Read(r, binary.LittleEndian, p.Words); err != nil {
			return err
		}
	case LayoutPacked30:
		if packedLen > uint64(r.Len()) {
			return io.ErrUnexpectedEOF
		}
		size := packedWords30Len(int(packedLen))
		if uint64(size) > uint64(r.Len()) {
			return io.ErrUnexpectedEOF
		}
		buf := make([]byte, size)
		if _, err := io.ReadFull(r, buf); err != nil {
			return err
		}
		if p.Words, err = unpackWords30(buf, int(packedLen)); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown word layout: %d", layout)
	}

	anchorLen, err := readCount(r, 2)
	if err != nil {
		return err
	}
	p.Anchors = make([]uint16, anchorLen)
	if err := binary.Read(r, binary.LittleEndian, p.Anchors); err != nil {
		return err
	}
	if uint64(vertexCount)*4 > uint64(r.Len()) {
		return io.ErrUnexpectedEOF
	}
	p.Remap = make([]uint32, vertexCount)
	if err := binary.Read(r, binary.LittleEndian, p.Remap); err != nil {
		return err
	}
	if err := checkTables(p); err != nil {
		return err
	}
	m.Packed = p

	var width uint8
	if err := binary.Read(r, binary.LittleEndian, &width); err != nil {
		return err
	}
	switch width {
	case 0:
		if _, err := binary.ReadUvarint(r); err != nil {
			return err
		}
	case 2:
		n, err := readCount(r, 2)
		if err != nil {
			return err
		}
		m.Indices.U16 = make([]uint16, n)
		if err := binary.Read(r, binary.LittleEndian, m.Indices.U16); err != nil {
			return err
		}
	case 4:
		n, err := readCount(r, 4)
		if err != nil {
			return err
		}
		m.Indices.U32 = make([]uint32, n)
		if err := binary.Read(r, binary.LittleEndian, m.Indices.U32); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid index width: %d", width)
	}

	if err := m.Indices.Check(p.Len()); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	var flag uint8
	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return err
	}
	if flag == 1 {
		if uint64(p.Len())*6 > uint64(r.Len()) {
			return io.ErrUnexpectedEOF
		}
		m.Normals = make([][3]int16, p.Len())
		if err := binary.Read(r, binary.LittleEndian, m.Normals); err != nil {
			return err
		}
	}

	if err := binary.Read(r, binary.LittleEndian, &flag); err != nil {
		return err
	}
	if flag == 1 {
		q := &Quantization{}
		if err := binary.Read(r, binary.LittleEndian, &q.Offset); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &q.Scale); err != nil {
			return err
		}
		m.Quant = q
	}
	return nil
}

// checkTables makes sure every anchor and slot lookup of a decoded stream stays in range.
func checkTables(p *Packed) error {
	if need := 3 * p.Blocks(); len(p.Anchors) < need {
		return fmt.Errorf("%w: %d anchor values for %d blocks", ErrMalformed, len(p.Anchors), p.Blocks())
	}
	for v, slot := range p.Remap {
		if int(slot) >= len(p.Words) {
			return fmt.Errorf("%w: vertex %d maps to slot %d past packed length %d", ErrMalformed, v, slot, len(p.Words))
		}
	}
	return nil
}

func putUvarint(w *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.Write(tmp[:n])
}

// readCount reads a uvarint element count and rejects counts the remaining content cannot hold.
func readCount(r *bytes.Reader, elemSize int) (int, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return 0, err
	}
	if n > uint64(r.Len()) || n*uint64(elemSize) > uint64(r.Len()) {
		return 0, io.ErrUnexpectedEOF
	}
	return int(n), nil
}
