package wgpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	novade "github.com/novade/compositor-core"
	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/renderer"
)

const submitTimeout = 5 * time.Second

// Renderer implements internal/renderer.Renderer against a single hal
// Device, compositing into a packed-RGBA8 storage buffer through the
// compute pipelines shader.go defines. One Renderer serves one output.
type Renderer struct {
	dev *Device

	module hal.ShaderModule

	compositeBGL      hal.BindGroupLayout
	compositeLayout   hal.PipelineLayout
	compositePipeline hal.ComputePipeline

	gammaBGL      hal.BindGroupLayout
	gammaLayout   hal.PipelineLayout
	gammaPipeline hal.ComputePipeline

	tonemapBGL      hal.BindGroupLayout
	tonemapLayout   hal.PipelineLayout
	tonemapPipeline hal.ComputePipeline

	dummySrcBuf hal.Buffer // bound as src_pixels for solid-fill elements

	fence      hal.Fence
	fenceValue atomic.Uint64

	mu            sync.Mutex
	outW, outH    int // physical (scaled) output dimensions
	outBuf        hal.Buffer
	outBufSize    uint64
	encoder       hal.CommandEncoder
	pendingFrees  []func()
}

// New builds every compute pipeline this renderer needs against dev and
// returns a Renderer ready to composite frames. Pipelines are built once;
// only the output buffer is reallocated, on an output size change.
func New(dev *Device) (*Renderer, error) {
	words, err := compileSPIRV(compositeShaderWGSL)
	if err != nil {
		return nil, fmt.Errorf("wgpu: compile shader: %w", err)
	}
	module, err := dev.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "compositor_core_composite",
		Source: hal.ShaderSource{SPIRV: words},
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create shader module: %w", err)
	}

	r := &Renderer{dev: dev, module: module}

	if err := r.buildCompositePipeline(); err != nil {
		return nil, err
	}
	if err := r.buildGammaPipeline(); err != nil {
		return nil, err
	}
	if err := r.buildTonemapPipeline(); err != nil {
		return nil, err
	}

	dummy, err := dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor_core_dummy_src",
		Size:  4,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create dummy source buffer: %w", err)
	}
	r.dummySrcBuf = dummy

	fence, err := dev.device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("wgpu: create fence: %w", err)
	}
	r.fence = fence

	return r, nil
}

// compileSPIRV compiles wgsl with naga and repacks the result into the
// []uint32 words hal.ShaderSource.SPIRV expects, the same little-endian
// repacking the teacher's gpu_fine.go does for its own (never-dispatched)
// compute shaders.
func compileSPIRV(wgsl string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgsl)
	if err != nil {
		return nil, err
	}
	if len(spirvBytes)%4 != 0 {
		return nil, fmt.Errorf("naga produced %d bytes, not a multiple of 4", len(spirvBytes))
	}
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

func storageEntry(binding uint32, readOnly bool) gputypes.BindGroupLayoutEntry {
	t := gputypes.BufferBindingTypeStorage
	if readOnly {
		t = gputypes.BufferBindingTypeReadOnlyStorage
	}
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: t},
	}
}

func uniformEntry(binding uint32) gputypes.BindGroupLayoutEntry {
	return gputypes.BindGroupLayoutEntry{
		Binding:    binding,
		Visibility: gputypes.ShaderStageCompute,
		Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
	}
}

func (r *Renderer) buildCompositePipeline() error {
	bgl, err := r.dev.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor_core_composite_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			storageEntry(0, false),
			storageEntry(1, true),
			uniformEntry(2),
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: composite bind group layout: %w", err)
	}
	pl, err := r.dev.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor_core_composite_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("wgpu: composite pipeline layout: %w", err)
	}
	pipeline, err := r.dev.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "compositor_core_composite_pipeline",
		Layout: pl,
		Compute: hal.ComputeState{
			Module:     r.module,
			EntryPoint: "composite_element",
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: composite pipeline: %w", err)
	}
	r.compositeBGL, r.compositeLayout, r.compositePipeline = bgl, pl, pipeline
	return nil
}

func (r *Renderer) buildGammaPipeline() error {
	bgl, err := r.dev.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor_core_gamma_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			storageEntry(0, false),
			uniformEntry(1),
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: gamma bind group layout: %w", err)
	}
	pl, err := r.dev.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor_core_gamma_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("wgpu: gamma pipeline layout: %w", err)
	}
	pipeline, err := r.dev.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "compositor_core_gamma_pipeline",
		Layout: pl,
		Compute: hal.ComputeState{
			Module:     r.module,
			EntryPoint: "apply_gamma",
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: gamma pipeline: %w", err)
	}
	r.gammaBGL, r.gammaLayout, r.gammaPipeline = bgl, pl, pipeline
	return nil
}

func (r *Renderer) buildTonemapPipeline() error {
	bgl, err := r.dev.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "compositor_core_tonemap_bgl",
		Entries: []gputypes.BindGroupLayoutEntry{
			storageEntry(0, false),
			uniformEntry(1),
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: tonemap bind group layout: %w", err)
	}
	pl, err := r.dev.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "compositor_core_tonemap_pl",
		BindGroupLayouts: []hal.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("wgpu: tonemap pipeline layout: %w", err)
	}
	pipeline, err := r.dev.device.CreateComputePipeline(&hal.ComputePipelineDescriptor{
		Label:  "compositor_core_tonemap_pipeline",
		Layout: pl,
		Compute: hal.ComputeState{
			Module:     r.module,
			EntryPoint: "apply_tonemap",
		},
	})
	if err != nil {
		return fmt.Errorf("wgpu: tonemap pipeline: %w", err)
	}
	r.tonemapBGL, r.tonemapLayout, r.tonemapPipeline = bgl, pl, pipeline
	return nil
}

// UploadSHMTexture implements renderer.Renderer.
func (r *Renderer) UploadSHMTexture(data []byte, width, height, stride int, format bufferreg.Format) (renderer.Texture, error) {
	packed := packRGBA8(data, width, height, stride, format)
	size := uint64(len(packed))

	buf, err := r.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor_core_shm_texture",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create texture buffer: %w", err)
	}
	if err := r.dev.queue.WriteBuffer(buf, 0, packed); err != nil {
		r.dev.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("wgpu: upload texture data: %w", err)
	}

	return &Texture{
		device: r.dev,
		buf:    buf,
		id:     nextTextureID.Add(1),
		width:  width,
		height: height,
		format: format,
	}, nil
}

// UploadDMABUFTexture implements renderer.Renderer. No backend in this
// module's corpus exposes a DMA-BUF import primitive (no fd-based
// CreateTexture/CreateBuffer overload, no external memory extension
// wiring anywhere in github.com/gogpu/wgpu/hal), so this returns an
// explicit unsupported error rather than silently dropping planes.
func (r *Renderer) UploadDMABUFTexture(planes []bufferreg.Plane, width, height int) (renderer.Texture, error) {
	return nil, fmt.Errorf("wgpu: dmabuf import is not supported by this backend")
}

// ensureOutputBuffer (re)allocates the compositing target when the
// physical output size changes.
func (r *Renderer) ensureOutputBuffer(width, height int) error {
	if r.outBuf != nil && r.outW == width && r.outH == height {
		return nil
	}
	size := uint64(width) * uint64(height) * 4
	buf, err := r.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor_core_output",
		Size:  size,
		Usage: gputypes.BufferUsageStorage | gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("wgpu: create output buffer: %w", err)
	}
	if r.outBuf != nil {
		r.dev.device.DestroyBuffer(r.outBuf)
	}
	r.outBuf, r.outBufSize, r.outW, r.outH = buf, size, width, height
	return nil
}

// RenderElements implements renderer.Renderer. It opens one command
// encoder for the frame, clears the output buffer, and issues one
// composite_element dispatch per element, back to front (§4.6 step 3).
// ApplyGamma/ApplyToneMapping/SubmitAndPresent append to the same
// encoder; the whole frame submits as one command buffer.
func (r *Renderer) RenderElements(elements []renderer.Element, outputRect geom.Rect, scale float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if scale <= 0 {
		scale = 1
	}
	physW := int(math.Round(float64(outputRect.W) * scale))
	physH := int(math.Round(float64(outputRect.H) * scale))
	if physW <= 0 || physH <= 0 {
		return fmt.Errorf("wgpu: empty output rect")
	}
	if err := r.ensureOutputBuffer(physW, physH); err != nil {
		return err
	}

	encoder, err := r.dev.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "compositor_core_frame"})
	if err != nil {
		return fmt.Errorf("wgpu: create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("compositor_core_frame"); err != nil {
		return fmt.Errorf("wgpu: begin encoding: %w", err)
	}
	encoder.ClearBuffer(r.outBuf, 0, r.outBufSize)

	r.encoder = encoder
	r.pendingFrees = nil

	for _, el := range elements {
		if err := r.dispatchElement(encoder, el, outputRect, scale); err != nil {
			novade.Logger().Warn("wgpu: skipping element, dispatch failed", "error", err)
		}
	}
	return nil
}

func (r *Renderer) dispatchElement(encoder hal.CommandEncoder, el renderer.Element, outputRect geom.Rect, scale float64) error {
	clipLocal := geom.MakeRect(
		int(math.Round((float64(el.ClipRect.X)-float64(outputRect.X))*scale)),
		int(math.Round((float64(el.ClipRect.Y)-float64(outputRect.Y))*scale)),
		int(math.Round(float64(el.ClipRect.W)*scale)),
		int(math.Round(float64(el.ClipRect.H)*scale)),
	).Intersect(geom.MakeRect(0, 0, r.outW, r.outH))
	if clipLocal.IsEmpty() {
		return nil
	}

	srcBuf := r.dummySrcBuf
	srcW, srcH := 1, 1
	kind := uint32(1)
	var inv geom.Affine

	if el.Kind == renderer.ElementTexture {
		tex, ok := el.Texture.(*Texture)
		if !ok || tex == nil {
			return fmt.Errorf("element texture is not a wgpu buffer texture")
		}
		srcBuf, srcW, srcH, kind = tex.buf, tex.width, tex.height, 0
		inv = geom.Scale(1/float64(srcW), 1/float64(srcH)).
			Multiply(el.World.Invert()).
			Multiply(geom.Translate(float64(outputRect.X), float64(outputRect.Y))).
			Multiply(geom.Scale(1/scale, 1/scale))
	}

	params := encodeElementParams(inv, el.SrcRect, clipLocal, srcW, srcH, r.outW, r.outH, el.Opacity, kind, el.FillColor)

	uniformBuf, err := r.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: "compositor_core_element_params",
		Size:  uint64(len(params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create params buffer: %w", err)
	}
	if err := r.dev.queue.WriteBuffer(uniformBuf, 0, params); err != nil {
		r.dev.device.DestroyBuffer(uniformBuf)
		return fmt.Errorf("write params buffer: %w", err)
	}

	bg, err := r.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  "compositor_core_element_bg",
		Layout: r.compositeBGL,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: nativeHandle(r.outBuf), Offset: 0, Size: r.outBufSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: nativeHandle(srcBuf), Offset: 0, Size: uint64(srcW) * uint64(srcH) * 4}},
			{Binding: 2, Resource: gputypes.BufferBinding{Buffer: nativeHandle(uniformBuf), Offset: 0, Size: uint64(len(params))}},
		},
	})
	if err != nil {
		r.dev.device.DestroyBuffer(uniformBuf)
		return fmt.Errorf("create bind group: %w", err)
	}

	pass := encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: "compositor_core_composite"})
	pass.SetPipeline(r.compositePipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(workgroupCount(clipLocal.W), workgroupCount(clipLocal.H), 1)
	pass.End()

	r.pendingFrees = append(r.pendingFrees, func() {
		r.dev.device.DestroyBindGroup(bg)
		r.dev.device.DestroyBuffer(uniformBuf)
	})
	return nil
}

func workgroupCount(pixels int) uint32 {
	if pixels <= 0 {
		return 0
	}
	return uint32((pixels + 7) / 8)
}

func encodeElementParams(inv geom.Affine, src renderer.UnitRect, clip geom.Rect, srcW, srcH, outW, outH int, opacity float64, kind uint32, fill [4]float32) []byte {
	buf := make([]byte, 112)
	putF32 := func(off int, v float32) { binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v)) }
	putI32 := func(off int, v int32) { binary.LittleEndian.PutUint32(buf[off:], uint32(v)) }
	putU32 := func(off int, v uint32) { binary.LittleEndian.PutUint32(buf[off:], v) }

	putF32(0, float32(inv.A))
	putF32(4, float32(inv.B))
	putF32(8, float32(inv.C))
	putF32(16, float32(inv.D))
	putF32(20, float32(inv.E))
	putF32(24, float32(inv.F))
	putF32(32, float32(src.X0))
	putF32(36, float32(src.Y0))
	putF32(40, float32(src.X1))
	putF32(44, float32(src.Y1))
	putI32(48, int32(clip.X))
	putI32(52, int32(clip.Y))
	putI32(56, int32(clip.MaxX()))
	putI32(60, int32(clip.MaxY()))
	putU32(64, uint32(srcW))
	putU32(68, uint32(srcH))
	putU32(72, uint32(outW))
	putU32(76, uint32(outH))
	putF32(80, float32(opacity))
	putU32(84, kind)
	putF32(96, fill[0])
	putF32(100, fill[1])
	putF32(104, fill[2])
	putF32(108, fill[3])
	return buf
}

// ApplyGamma implements renderer.Renderer, appending a gamma pass over the
// whole output buffer onto the frame's open encoder.
func (r *Renderer) ApplyGamma(value float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return fmt.Errorf("wgpu: ApplyGamma called outside a frame")
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], uint32(r.outW))
	binary.LittleEndian.PutUint32(params[4:], uint32(r.outH))
	binary.LittleEndian.PutUint32(params[8:], math.Float32bits(float32(value)))

	return r.runFullBufferPass(params, r.gammaBGL, r.gammaPipeline, "compositor_core_gamma")
}

// ApplyToneMapping implements renderer.Renderer: a Reinhard tone-mapping
// pass over the whole output buffer.
func (r *Renderer) ApplyToneMapping(maxLuminance, exposure float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return fmt.Errorf("wgpu: ApplyToneMapping called outside a frame")
	}

	params := make([]byte, 16)
	binary.LittleEndian.PutUint32(params[0:], uint32(r.outW))
	binary.LittleEndian.PutUint32(params[4:], uint32(r.outH))
	binary.LittleEndian.PutUint32(params[8:], math.Float32bits(float32(maxLuminance)))
	binary.LittleEndian.PutUint32(params[12:], math.Float32bits(float32(exposure)))

	return r.runFullBufferPass(params, r.tonemapBGL, r.tonemapPipeline, "compositor_core_tonemap")
}

func (r *Renderer) runFullBufferPass(params []byte, bgl hal.BindGroupLayout, pipeline hal.ComputePipeline, label string) error {
	uniformBuf, err := r.dev.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label + "_params",
		Size:  uint64(len(params)),
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("%s: create params buffer: %w", label, err)
	}
	if err := r.dev.queue.WriteBuffer(uniformBuf, 0, params); err != nil {
		r.dev.device.DestroyBuffer(uniformBuf)
		return fmt.Errorf("%s: write params buffer: %w", label, err)
	}

	bg, err := r.dev.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label + "_bg",
		Layout: bgl,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{Buffer: nativeHandle(r.outBuf), Offset: 0, Size: r.outBufSize}},
			{Binding: 1, Resource: gputypes.BufferBinding{Buffer: nativeHandle(uniformBuf), Offset: 0, Size: uint64(len(params))}},
		},
	})
	if err != nil {
		r.dev.device.DestroyBuffer(uniformBuf)
		return fmt.Errorf("%s: create bind group: %w", label, err)
	}

	pass := r.encoder.BeginComputePass(&hal.ComputePassDescriptor{Label: label})
	pass.SetPipeline(pipeline)
	pass.SetBindGroup(0, bg, nil)
	pass.Dispatch(workgroupCount(r.outW), workgroupCount(r.outH), 1)
	pass.End()

	r.pendingFrees = append(r.pendingFrees, func() {
		r.dev.device.DestroyBindGroup(bg)
		r.dev.device.DestroyBuffer(uniformBuf)
	})
	return nil
}

// SubmitAndPresent implements renderer.Renderer: it ends and submits the
// frame's command buffer, waits for completion, and frees every
// per-element resource the frame allocated.
//
// Presenting to an actual display surface needs a platform window handle
// (hal.Instance.CreateSurface / Queue.Present) that this package, scoped
// to compositing into a buffer, doesn't own. Snapshot reads the
// composited frame back to the CPU; no code in this module calls it.
func (r *Renderer) SubmitAndPresent() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.encoder == nil {
		return fmt.Errorf("wgpu: SubmitAndPresent called outside a frame")
	}
	encoder := r.encoder
	frees := r.pendingFrees
	r.encoder, r.pendingFrees = nil, nil

	cmdBuffer, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("wgpu: end encoding: %w", err)
	}

	value := r.fenceValue.Add(1)
	if err := r.dev.queue.Submit([]hal.CommandBuffer{cmdBuffer}, r.fence, value); err != nil {
		return fmt.Errorf("wgpu: submit: %w", err)
	}
	ok, err := r.dev.device.Wait(r.fence, value, submitTimeout)
	if err != nil {
		return fmt.Errorf("wgpu: wait for fence: %w", err)
	}
	if !ok {
		return fmt.Errorf("wgpu: frame did not complete within %s", submitTimeout)
	}

	for _, free := range frees {
		free()
	}
	return nil
}

// Snapshot reads the composited output buffer back to the CPU as packed
// R,G,B,A8 bytes, row-major at the physical size from the most recent
// RenderElements call. Intended for a caller that owns an actual
// presentation surface.
func (r *Renderer) Snapshot() ([]byte, int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.outBuf == nil {
		return nil, 0, 0, fmt.Errorf("wgpu: no frame has been rendered yet")
	}
	data := make([]byte, r.outBufSize)
	if err := r.dev.queue.ReadBuffer(r.outBuf, 0, data); err != nil {
		return nil, 0, 0, fmt.Errorf("wgpu: read output buffer: %w", err)
	}
	return data, r.outW, r.outH, nil
}

// SupportedShmFormats implements renderer.Renderer: packRGBA8 (format.go)
// normalizes every format bufferreg defines before upload.
func (r *Renderer) SupportedShmFormats() []bufferreg.Format {
	return []bufferreg.Format{bufferreg.ARGB8888, bufferreg.XRGB8888, bufferreg.ABGR8888, bufferreg.XBGR8888}
}

// SupportedDmabufFormats implements renderer.Renderer. Always empty: see
// UploadDMABUFTexture.
func (r *Renderer) SupportedDmabufFormats(modifiers []uint64) []bufferreg.Format {
	return nil
}

// Close releases every pipeline, layout, and buffer this renderer owns.
// The underlying Device is left open; callers that also own it call
// Device.Close separately.
func (r *Renderer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	d := r.dev.device
	d.DestroyComputePipeline(r.compositePipeline)
	d.DestroyPipelineLayout(r.compositeLayout)
	d.DestroyBindGroupLayout(r.compositeBGL)
	d.DestroyComputePipeline(r.gammaPipeline)
	d.DestroyPipelineLayout(r.gammaLayout)
	d.DestroyBindGroupLayout(r.gammaBGL)
	d.DestroyComputePipeline(r.tonemapPipeline)
	d.DestroyPipelineLayout(r.tonemapLayout)
	d.DestroyBindGroupLayout(r.tonemapBGL)
	d.DestroyShaderModule(r.module)
	d.DestroyBuffer(r.dummySrcBuf)
	d.DestroyFence(r.fence)
	if r.outBuf != nil {
		d.DestroyBuffer(r.outBuf)
	}
}
