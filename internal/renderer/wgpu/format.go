package wgpu

import (
	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/color"
)

// packRGBA8 converts a raw SHM pixel buffer (row-major, stride bytes per
// row, in one of bufferreg's wire formats) into a tightly packed row-major
// R,G,B,A8 buffer: the byte order shader.go's pack4x8unorm/unpack4x8unorm
// pair assumes for every storage-buffer-backed texture this renderer
// composites from.
func packRGBA8(data []byte, width, height, stride int, format bufferreg.Format) []byte {
	out := make([]byte, width*height*4)
	bpp := bufferreg.BytesPerPixel(format)
	for y := 0; y < height; y++ {
		row := data[y*stride:]
		for x := 0; x < width; x++ {
			px := row[x*bpp:]
			c := unpackPixel(px, format)
			o := (y*width + x) * 4
			out[o+0] = c.R
			out[o+1] = c.G
			out[o+2] = c.B
			out[o+3] = c.A
		}
	}
	return out
}

// unpackPixel reads one pixel at the wire format's native channel order
// (wl_shm's 32-bit formats are little-endian words, so ARGB8888 stores
// B,G,R,A in memory and XRGB8888/XBGR8888 carry no usable alpha byte).
func unpackPixel(px []byte, format bufferreg.Format) color.ColorU8 {
	switch format {
	case bufferreg.ARGB8888:
		return color.ColorU8{R: px[2], G: px[1], B: px[0], A: px[3]}
	case bufferreg.XRGB8888:
		return color.ColorU8{R: px[2], G: px[1], B: px[0], A: 255}
	case bufferreg.ABGR8888:
		return color.ColorU8{R: px[0], G: px[1], B: px[2], A: px[3]}
	case bufferreg.XBGR8888:
		return color.ColorU8{R: px[0], G: px[1], B: px[2], A: 255}
	case bufferreg.R8:
		return color.ColorU8{R: px[0], G: px[0], B: px[0], A: 255}
	default:
		return color.ColorU8{A: 255}
	}
}
