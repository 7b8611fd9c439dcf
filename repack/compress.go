package repack

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression indicates the codec applied to the .rpk content section.
type Compression uint8

const (
	CompNone Compression = 0
	CompZlib Compression = 1
	CompZstd Compression = 2
	CompLZ4  Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompNone:
		return "none"
	case CompZlib:
		return "zlib"
	case CompZstd:
		return "zstd"
	case CompLZ4:
		return "lz4"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// ParseCompression maps a codec name as printed by String back to its value.
func ParseCompression(s string) (Compression, error) {
	for _, c := range []Compression{CompNone, CompZlib, CompZstd, CompLZ4} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown compression %q", s)
}

// MaxContentSize bounds the decompressed content section of an .rpk file.
const MaxContentSize = 1 << 30

// lz4 cannot expand a block by more than about 255x
const lz4MaxRatio = 255

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil, zstd.WithDecoderMaxMemory(MaxContentSize))
}

func compress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompNone:
		return data, nil
	case CompZlib:
		var buf bytes.Buffer
		zw, _ := zlib.NewWriterLevel(&buf, zlib.BestCompression)
		if _, err := zw.Write(data); err != nil {
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case CompZstd:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		defer zstdEncoderPool.Put(enc)
		return enc.EncodeAll(data, nil), nil
	case CompLZ4:
		// [uncompressed size u32][compressed size u32, 0 = stored][data]
		out := make([]byte, 8+lz4.CompressBlockBound(len(data)))
		binary.LittleEndian.PutUint32(out[0:], uint32(len(data)))
		var n int
		if len(data) > 0 {
			var err error
			if n, err = lz4.CompressBlock(data, out[8:], nil); err != nil {
				return nil, err
			}
		}
		if n == 0 {
			// incompressible
			out = append(out[:8], data...)
		} else {
			out = out[:8+n]
		}
		binary.LittleEndian.PutUint32(out[4:], uint32(n))
		return out, nil
	}
	return nil, fmt.Errorf("unsupported compression: %d", c)
}

func decompress(data []byte, c Compression) ([]byte, error) {
	switch c {
	case CompNone:
		return data, nil
	case CompZlib:
		zr, err := zlib.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		out, err := io.ReadAll(io.LimitReader(zr, MaxContentSize+1))
		if err != nil {
			return nil, err
		}
		if len(out) > MaxContentSize {
			return nil, ErrContentTooLarge
		}
		return out, nil
	case CompZstd:
		dec, err := getZstdDecoder()
		if err != nil {
			return nil, err
		}
		defer zstdDecoderPool.Put(dec)
		return dec.DecodeAll(data, nil)
	case CompLZ4:
		if len(data) < 8 {
			return nil, errors.New("lz4 block too small for header")
		}
		size := binary.LittleEndian.Uint32(data[0:])
		csize := binary.LittleEndian.Uint32(data[4:])
		body := data[8:]
		if csize == 0 {
			if uint32(len(body)) != size {
				return nil, errors.New("stored lz4 block size mismatch")
			}
			return body, nil
		}
		if uint32(len(body)) < csize {
			return nil, errors.New("lz4 block data too small")
		}
		if size > MaxContentSize || uint64(size) > uint64(csize)*lz4MaxRatio+16 {
			return nil, ErrContentTooLarge
		}
		out := make([]byte, size)
		n, err := lz4.UncompressBlock(body[:csize], out)
		if err != nil {
			return nil, err
		}
		if uint32(n) != size {
			return nil, errors.New("lz4 decompressed size mismatch")
		}
		return out, nil
	}
	return nil, fmt.Errorf("unsupported compression: %d", c)
}
