package repack

// AnchorTextureWidth is the texel row width the decoder samples anchors with.
const AnchorTextureWidth = 1024

// AnchorTexture lays the anchors out as an RGBA16UI texture, one texel per block
// (R,G,B = x,y,z, A = 0), rows of width texels. Unused trailing texels are zero.
func AnchorTexture(anchors []uint16, width int) (texels []uint16, w, h int) {
	if width <= 0 {
		width = AnchorTextureWidth
	}
	blocks := len(anchors) / 3
	h = (blocks + width - 1) / width
	texels = make([]uint16, width*h*4)
	for b := 0; b < blocks; b++ {
		copy(texels[b*4:b*4+3], anchors[b*3:b*3+3])
	}
	return texels, width, h
}
