package repack

import "fmt"

// Header is the fixed preamble of an .rpk file:
// "RPAK" | version u8 | compression u8 | word layout u8.
// The content section follows, then the xxhash64 of the uncompressed content.
type Header struct {
	Version     uint8
	Compression Compression
	Layout      WordLayout
}

// WordLayout selects how packed words are stored in the content section.
type WordLayout uint8

const (
	// LayoutRaw32 stores each word as a little-endian uint32, ready for upload.
	LayoutRaw32 WordLayout = 0
	// LayoutPacked30 drops the 2 reserved flag bits and stores 30-bit words back to back.
	LayoutPacked30 WordLayout = 1
)

func (l WordLayout) String() string {
	switch l {
	case LayoutRaw32:
		return "raw32"
	case LayoutPacked30:
		return "packed30"
	}
	return "unknown"
}

// ParseWordLayout maps a layout name as printed by String back to its value.
func ParseWordLayout(s string) (WordLayout, error) {
	switch s {
	case "raw32":
		return LayoutRaw32, nil
	case "packed30":
		return LayoutPacked30, nil
	}
	return 0, fmt.Errorf("unknown word layout %q", s)
}

const (
	rpkMagic     = "RPAK"
	rpkVersion1  = 1
	headerLen    = 7
	checksumLen  = 8
	maxNameBytes = 0xFFFF
)
