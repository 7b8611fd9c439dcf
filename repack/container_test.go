package repack

import (
	"encoding/binary"
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMeshes(t *testing.T) []Mesh {
	t.Helper()
	r := rand.New(rand.NewSource(7))
	input := make([]uint16, 0, 3*500)
	for i := 0; i < 500; i++ {
		input = append(input, uint16(r.Intn(3000)), uint16(r.Intn(3000)), uint16(r.Intn(3000)))
	}
	p, err := NewPacker(32).Pack(input, 3)
	require.NoError(t, err)

	idx := make([]uint32, 0, 300)
	for i := 0; i < 300; i++ {
		idx = append(idx, uint32(r.Intn(500)))
	}
	indices := Narrowest(idx, uint32(p.Len()-1))
	indices.Remap(p.Remap)

	normals := make([][3]float32, 500)
	for i := range normals {
		normals[i] = [3]float32{0, 1, 0}
	}

	small, err := NewPacker(64).Pack([]uint16{1, 2, 3, 4, 5, 6}, 3)
	require.NoError(t, err)

	return []Mesh{
		{
			Name:    "terrain",
			Packed:  p,
			Indices: indices,
			Normals: ScatterAttribute(QuantizeNormals(normals), 1, p.Remap, p.Len()),
			Quant:   &Quantization{Offset: [3]float32{-1, -2, -3}, Scale: 0.5},
		},
		{
			Name:    "tiny",
			Packed:  small,
			Indices: IndexBuffer{U32: []uint32{0, 1, 0}},
		},
		{
			Name:   "no-indices",
			Packed: small,
		},
	}
}

func TestContainer_RoundTrip(t *testing.T) {
	meshes := testMeshes(t)
	for _, comp := range []Compression{CompNone, CompZlib, CompZstd, CompLZ4} {
		for _, layout := range []WordLayout{LayoutRaw32, LayoutPacked30} {
			t.Run(fmt.Sprintf("%s/%s", comp, layout), func(t *testing.T) {
				data, err := Marshal(meshes, comp, layout)
				require.NoError(t, err)

				hdr, err := ParseHeader(data)
				require.NoError(t, err)
				assert.Equal(t, comp, hdr.Compression)
				assert.Equal(t, layout, hdr.Layout)

				got, hdr2, err := Unmarshal(data)
				require.NoError(t, err)
				assert.Equal(t, hdr, hdr2)
				require.Len(t, got, len(meshes))
				for i := range meshes {
					assert.Equal(t, meshes[i].Name, got[i].Name)
					assert.Equal(t, meshes[i].Packed, got[i].Packed)
					assert.Equal(t, meshes[i].Indices.Width(), got[i].Indices.Width())
					assert.Equal(t, meshes[i].Indices.Uint32s(), got[i].Indices.Uint32s())
					assert.Equal(t, meshes[i].Normals, got[i].Normals)
					assert.Equal(t, meshes[i].Quant, got[i].Quant)
					assert.NoError(t, got[i].Packed.Verify())
				}
			})
		}
	}
}

func TestContainer_Empty(t *testing.T) {
	for _, comp := range []Compression{CompNone, CompZlib, CompZstd, CompLZ4} {
		data, err := Marshal(nil, comp, LayoutRaw32)
		require.NoError(t, err)
		got, _, err := Unmarshal(data)
		require.NoError(t, err)
		assert.Empty(t, got)
	}
}

func TestContainer_Corruption(t *testing.T) {
	data, err := Marshal(testMeshes(t), CompNone, LayoutRaw32)
	require.NoError(t, err)

	bad := append([]byte(nil), data...)
	bad[headerLen+10] ^= 0xFF
	_, _, err = Unmarshal(bad)
	assert.ErrorIs(t, err, ErrChecksum)

	bad = append([]byte(nil), data...)
	bad[len(bad)-1] ^= 0xFF
	_, _, err = Unmarshal(bad)
	assert.ErrorIs(t, err, ErrChecksum)

	_, _, err = Unmarshal([]byte("VOPL\x01\x00\x00xxxxxxxx"))
	assert.ErrorIs(t, err, ErrNotRPK)

	_, _, err = Unmarshal(data[:5])
	assert.ErrorIs(t, err, ErrNotRPK)

	bad = append([]byte(nil), data...)
	bad[4] = 9
	_, err = ParseHeader(bad)
	assert.Error(t, err)

	zdata, err := Marshal(testMeshes(t), CompZstd, LayoutPacked30)
	require.NoError(t, err)
	_, _, err = Unmarshal(append(zdata[:headerLen+4:headerLen+4], zdata[len(zdata)-checksumLen:]...))
	assert.Error(t, err)
}

func TestContainer_MalformedTables(t *testing.T) {
	word := []uint32{PackWord(512, 512, 512)}
	cases := []struct {
		name string
		mesh Mesh
	}{
		{"no anchors", Mesh{Name: "x", Packed: &Packed{BlockSize: 4, Words: word, Remap: []uint32{0}}}},
		{"short anchors", Mesh{Name: "x", Packed: &Packed{BlockSize: 1, Words: []uint32{word[0], word[0]}, Anchors: []uint16{0, 0, 0}, Remap: []uint32{0, 1}}}},
		{"slot past stream", Mesh{Name: "x", Packed: &Packed{BlockSize: 4, Words: word, Anchors: []uint16{0, 0, 0}, Remap: []uint32{5}}}},
		{"index past stream", Mesh{
			Name:    "x",
			Packed:  &Packed{BlockSize: 4, Words: word, Anchors: []uint16{0, 0, 0}, Remap: []uint32{0}},
			Indices: IndexBuffer{U32: []uint32{0, 0, 3}},
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := Marshal([]Mesh{tc.mesh}, CompNone, LayoutRaw32)
			require.NoError(t, err)
			_, _, err = Unmarshal(data)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}

	var ie *IndexRangeError
	data, err := Marshal([]Mesh{cases[3].mesh}, CompZstd, LayoutPacked30)
	require.NoError(t, err)
	_, _, err = Unmarshal(data)
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, uint32(3), ie.Index)
}

func TestDecompress_OversizedLZ4Header(t *testing.T) {
	body := make([]byte, 12)
	binary.LittleEndian.PutUint32(body[0:], 0xFFFFFFF0)
	binary.LittleEndian.PutUint32(body[4:], 4)
	_, err := decompress(body, CompLZ4)
	assert.ErrorIs(t, err, ErrContentTooLarge)

	// within MaxContentSize but far beyond what 4 compressed bytes can expand to
	binary.LittleEndian.PutUint32(body[0:], 1<<20)
	_, err = decompress(body, CompLZ4)
	assert.ErrorIs(t, err, ErrContentTooLarge)

	file := append([]byte(rpkMagic), rpkVersion1, byte(CompLZ4), byte(LayoutRaw32))
	file = append(file, body...)
	file = append(file, make([]byte, checksumLen)...)
	_, _, err = Unmarshal(file)
	assert.ErrorIs(t, err, ErrContentTooLarge)
}

func TestContainer_Rejects(t *testing.T) {
	meshes := testMeshes(t)
	_, err := Marshal(meshes, CompZstd, WordLayout(7))
	assert.Error(t, err)

	_, err = Marshal(meshes, Compression(9), LayoutRaw32)
	assert.Error(t, err)

	broken := meshes[0]
	broken.Normals = broken.Normals[:3]
	_, err = Marshal([]Mesh{broken}, CompNone, LayoutRaw32)
	assert.Error(t, err)

	_, err = Marshal([]Mesh{{Name: "nil"}}, CompNone, LayoutRaw32)
	assert.Error(t, err)
}

func TestParseCompression(t *testing.T) {
	for _, c := range []Compression{CompNone, CompZlib, CompZstd, CompLZ4} {
		got, err := ParseCompression(c.String())
		require.NoError(t, err)
		assert.Equal(t, c, got)
	}
	_, err := ParseCompression("brotli")
	assert.Error(t, err)

	l, err := ParseWordLayout("packed30")
	require.NoError(t, err)
	assert.Equal(t, LayoutPacked30, l)
	_, err = ParseWordLayout("raw16")
	assert.Error(t, err)
}

func TestPackedWords30(t *testing.T) {
	words := []uint32{PackWord(0, 0, 0), PackWord(1023, 1023, 1023), PackWord(512, 1, 777), 0}
	b := packWords30(words)
	assert.Len(t, b, packedWords30Len(len(words)))
	got, err := unpackWords30(b, len(words))
	require.NoError(t, err)
	assert.Equal(t, words, got)

	_, err = unpackWords30(b[:len(b)-2], len(words))
	assert.Error(t, err)
}
