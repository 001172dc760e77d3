// Package renderer defines the composition engine's renderer contract
// (§4.6): the narrow surface a GPU (or software) backend must implement so
// the composition engine can upload buffer contents as textures, draw a
// frame's elements, and present it. internal/renderer/wgpu provides the
// concrete implementation; this package stays free of any particular GPU
// API so the composition engine never imports wgpu/hal directly.
//
// Grounded on github.com/gogpu/gg's render.Renderer / render.RenderTarget
// split (render/renderer.go, render/target.go): an abstract contract the
// engine codes against, with backend-specific types confined to the
// concrete implementation.
package renderer

import (
	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/geom"
)

// Texture is an opaque handle to GPU-resident texture memory, returned by
// an upload call and threaded into draw elements by id. Mirrors spec
// §4.6's "texture-handle types with (id, width, height, format?) accessors".
type Texture interface {
	ID() uint64
	Width() int
	Height() int
	Format() bufferreg.Format

	// Destroy releases the backing GPU memory. Called by the composition
	// engine's texture cache when a surface is destroyed or its texture
	// ages out (§4.6's eviction policy).
	Destroy() error
}

// ElementKind distinguishes a draw element's payload (§4.6 step 3).
type ElementKind int

const (
	ElementTexture ElementKind = iota
	ElementSolidFill
)

// UnitRect is a rectangle in normalized [0,1] texture-space coordinates,
// used for Element.SrcRect (§4.6 step 3: "source rect normalized 0..1").
type UnitRect struct {
	X0, Y0, X1, Y1 float64
}

// FullUnitRect is the normalized rect covering an entire texture.
var FullUnitRect = UnitRect{X0: 0, Y0: 0, X1: 1, Y1: 1}

// Element is one item in a frame's draw list. For ElementTexture, Texture,
// SrcRect and ClipRect are meaningful; for ElementSolidFill, only
// FillColor and ClipRect are.
type Element struct {
	Kind ElementKind

	Texture   Texture
	World     geom.Affine // world transform carrying position/rotation/scale
	Opacity   float64
	SrcRect   UnitRect  // texture-space source rect, normalized
	ClipRect  geom.Rect // output-space clip, integer pixels
	FillColor [4]float32
}

// Renderer is the external collaborator the composition engine drives every
// frame (§4.6, §6 "Renderer contract"). Implementations must treat upload
// and render-element failures as per-call, never fatal: the engine maps
// them to protoerr.TextureUploadError / protoerr.RendererElementError /
// protoerr.RendererFrameError and recovers by skipping the affected node or
// frame.
type Renderer interface {
	// UploadSHMTexture uploads or re-uploads client pixel data as a texture.
	// data is the raw backing bytes (bufferreg.Record.Data), stride in
	// bytes, format the buffer's pixel format.
	UploadSHMTexture(data []byte, width, height, stride int, format bufferreg.Format) (Texture, error)

	// UploadDMABUFTexture imports a multi-planar DMA-BUF buffer directly
	// into GPU memory without a CPU copy.
	UploadDMABUFTexture(planes []bufferreg.Plane, width, height int) (Texture, error)

	// RenderElements draws elements, back to front, into a frame targeting
	// outputRect at the given output scale factor.
	RenderElements(elements []Element, outputRect geom.Rect, scale float64) error

	// ApplyGamma applies a post-render gamma correction pass.
	ApplyGamma(value float64) error

	// ApplyToneMapping applies a post-render HDR-to-SDR tone-mapping pass.
	ApplyToneMapping(maxLuminance, exposure float64) error

	// SubmitAndPresent submits the accumulated frame's commands and
	// presents it to the output.
	SubmitAndPresent() error

	// SupportedShmFormats lists the SHM pixel formats this renderer can
	// upload (§6: "must include at least ARGB8888 and XRGB8888").
	SupportedShmFormats() []bufferreg.Format

	// SupportedDmabufFormats lists the DMA-BUF formats this renderer can
	// import under the given modifiers (§6: "must only include those the
	// renderer can import").
	SupportedDmabufFormats(modifiers []uint64) []bufferreg.Format
}
