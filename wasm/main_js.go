//go:build js && wasm

package main

import (
	"syscall/js"

	"github.com/voxelsplace/repacker/api"
)

// bytesOf copies any typed array (or ArrayBuffer view) into Go memory.
func bytesOf(v js.Value) []byte {
	u8 := js.Global().Get("Uint8Array").New(v.Get("buffer"), v.Get("byteOffset"), v.Get("byteLength"))
	buf := make([]byte, u8.Get("length").Int())
	js.CopyBytesToGo(buf, u8)
	return buf
}

// copyBack writes Go bytes over the memory of a typed array.
func copyBack(v js.Value, b []byte) {
	u8 := js.Global().Get("Uint8Array").New(v.Get("buffer"), v.Get("byteOffset"), v.Get("byteLength"))
	js.CopyBytesToJS(u8, b)
}

func u16s(b []byte) []uint16 {
	out := make([]uint16, len(b)/2)
	for i := range out {
		out[i] = uint16(b[2*i]) | uint16(b[2*i+1])<<8
	}
	return out
}

func u32s(b []byte) []uint32 {
	out := make([]uint32, len(b)/4)
	for i := range out {
		out[i] = uint32(b[4*i]) | uint32(b[4*i+1])<<8 | uint32(b[4*i+2])<<16 | uint32(b[4*i+3])<<24
	}
	return out
}

func u16Bytes(v []uint16) []byte {
	out := make([]byte, 2*len(v))
	for i, x := range v {
		out[2*i], out[2*i+1] = byte(x), byte(x>>8)
	}
	return out
}

func u32Bytes(v []uint32) []byte {
	out := make([]byte, 4*len(v))
	for i, x := range v {
		out[4*i], out[4*i+1], out[4*i+2], out[4*i+3] = byte(x), byte(x>>8), byte(x>>16), byte(x>>24)
	}
	return out
}

func setBlockSize(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing block size")
	}
	api.SetBlockSize(args[0].Int())
	return js.Undefined()
}

// repackVertices(vertexCount, input Uint16Array, anchors Uint16Array, packed Uint32Array,
// remap Uint32Array, stride, maxOutputSize) -> packed length or -1
func repackVertices(this js.Value, args []js.Value) any {
	if len(args) < 7 {
		return js.ValueOf("missing arguments")
	}
	input := u16s(bytesOf(args[1]))
	anchors := u16s(bytesOf(args[2]))
	packed := u32s(bytesOf(args[3]))
	remap := u32s(bytesOf(args[4]))
	n, err := api.RepackVertices(args[0].Int(), input, anchors, packed, remap, args[5].Int(), args[6].Int())
	if err != nil {
		return js.ValueOf(err.Error())
	}
	if n >= 0 {
		copyBack(args[2], u16Bytes(anchors))
		copyBack(args[3], u32Bytes(packed))
		copyBack(args[4], u32Bytes(remap))
	}
	return js.ValueOf(n)
}

// applyRemap(indices Uint32Array, remap Uint32Array), in place
func applyRemap(this js.Value, args []js.Value) any {
	if len(args) < 2 {
		return js.ValueOf("missing arguments")
	}
	indices := u32s(bytesOf(args[0]))
	if err := api.ApplyRemap(indices, u32s(bytesOf(args[1]))); err != nil {
		return js.ValueOf(err.Error())
	}
	copyBack(args[0], u32Bytes(indices))
	return js.Undefined()
}

// applyRemapGeneric(indices TypedArray, remap Uint32Array, indexStride), in place
func applyRemapGeneric(this js.Value, args []js.Value) any {
	if len(args) < 3 {
		return js.ValueOf("missing arguments")
	}
	raw := bytesOf(args[0])
	if err := api.ApplyRemapGeneric(raw, u32s(bytesOf(args[1])), args[2].Int()); err != nil {
		return js.ValueOf(err.Error())
	}
	copyBack(args[0], raw)
	return js.Undefined()
}

func glb2rpk(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing glb bytes")
	}
	out, err := api.GLBToRPK(bytesOf(args[0]))
	if err != nil {
		return js.ValueOf(err.Error())
	}
	uint8arr := js.Global().Get("Uint8Array").New(len(out))
	js.CopyBytesToJS(uint8arr, out)
	return uint8arr
}

func rpk2glb(this js.Value, args []js.Value) any {
	if len(args) < 1 {
		return js.ValueOf("missing rpk bytes")
	}
	out, err := api.RPKToGLB(bytesOf(args[0]))
	if err != nil {
		return js.ValueOf(err.Error())
	}
	uint8arr := js.Global().Get("Uint8Array").New(len(out))
	js.CopyBytesToJS(uint8arr, out)
	return uint8arr
}

func main() {
	js.Global().Set("setBlockSize", js.FuncOf(setBlockSize))
	js.Global().Set("repackVertices", js.FuncOf(repackVertices))
	js.Global().Set("applyRemap", js.FuncOf(applyRemap))
	js.Global().Set("applyRemapGeneric", js.FuncOf(applyRemapGeneric))
	js.Global().Set("glb2rpk", js.FuncOf(glb2rpk))
	js.Global().Set("rpk2glb", js.FuncOf(rpk2glb))
	select {}
}
