package bufferreg

import (
	"errors"
	goimage "image"
	"image/draw"

	xdraw "golang.org/x/image/draw"
)

var errDebugThumbnailDMABUF = errors.New("bufferreg: DebugThumbnail needs CPU-addressable pixels, record is dmabuf-backed")

// DebugThumbnail decodes an SHM record's raw pixels into a standard
// image.RGBA and scales it to fit within maxDim on its longer side, for
// crash-dump and introspection tooling that wants a quick visual of a
// client's buffer without round-tripping through the GPU. DMA-BUF records
// have no CPU-addressable Data and return an error.
func (r Record) DebugThumbnail(maxDim int) (*goimage.RGBA, error) {
	if r.Kind != SHM {
		return nil, errDebugThumbnailDMABUF
	}
	src := goimage.NewRGBA(goimage.Rect(0, 0, r.Width, r.Height))
	bpp := BytesPerPixel(r.Format)
	for y := 0; y < r.Height; y++ {
		row := r.Data[y*r.Stride:]
		for x := 0; x < r.Width; x++ {
			px := row[x*bpp:]
			c := debugUnpack(px, r.Format)
			o := src.PixOffset(x, y)
			src.Pix[o], src.Pix[o+1], src.Pix[o+2], src.Pix[o+3] = c[0], c[1], c[2], c[3]
		}
	}

	dw, dh := r.Width, r.Height
	if dw > maxDim || dh > maxDim {
		if dw >= dh {
			dh = dh * maxDim / dw
			dw = maxDim
		} else {
			dw = dw * maxDim / dh
			dh = maxDim
		}
	}
	dst := goimage.NewRGBA(goimage.Rect(0, 0, dw, dh))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst, nil
}

func debugUnpack(px []byte, format Format) [4]byte {
	switch format {
	case ARGB8888:
		return [4]byte{px[2], px[1], px[0], px[3]}
	case XRGB8888:
		return [4]byte{px[2], px[1], px[0], 255}
	case ABGR8888:
		return [4]byte{px[0], px[1], px[2], px[3]}
	case XBGR8888:
		return [4]byte{px[0], px[1], px[2], 255}
	case R8:
		return [4]byte{px[0], px[0], px[0], 255}
	default:
		return [4]byte{0, 0, 0, 255}
	}
}
