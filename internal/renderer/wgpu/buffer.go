package wgpu

import (
	"sync"
	"sync/atomic"

	"github.com/gogpu/wgpu/hal"

	"github.com/novade/compositor-core/internal/bufferreg"
)

// nextTextureID mints process-unique renderer.Texture ids. Separate from
// internal/ids.Allocator: these identify GPU-resident handles the renderer
// hands back to the composition engine, not protocol objects.
var nextTextureID atomic.Uint64

// Texture is the wgpu backend's renderer.Texture: client pixel data
// composited as a row-major storage buffer rather than a sampled GPU
// texture (see shader.go). It satisfies internal/renderer.Texture.
type Texture struct {
	device *Device

	mu        sync.Mutex
	buf       hal.Buffer
	destroyed bool

	id            uint64
	width, height int
	format        bufferreg.Format
}

// ID implements renderer.Texture.
func (t *Texture) ID() uint64 { return t.id }

// Width implements renderer.Texture.
func (t *Texture) Width() int { return t.width }

// Height implements renderer.Texture.
func (t *Texture) Height() int { return t.height }

// Format implements renderer.Texture.
func (t *Texture) Format() bufferreg.Format { return t.format }

// Destroy implements renderer.Texture. Safe to call more than once.
func (t *Texture) Destroy() error {
	t.mu.Lock()
	if t.destroyed {
		t.mu.Unlock()
		return nil
	}
	t.destroyed = true
	buf := t.buf
	t.buf = nil
	t.mu.Unlock()

	t.device.device.DestroyBuffer(buf)
	return nil
}

// nativeHandle reports the native GPU handle the hal backend wraps, used to
// populate gputypes.BufferBinding.Buffer when building a bind group
// (grounded on hal/vulkan's compute_integration_test.go, the only place in
// the pack that wires a hal.Buffer into a bind group entry). Not every
// backend type exposes NativeHandle on its concrete buffer; 0 degrades to
// "unbound" rather than panicking, since the hal.Buffer interface itself
// doesn't require the method.
func nativeHandle(b hal.Buffer) uintptr {
	if h, ok := b.(interface{ NativeHandle() uintptr }); ok {
		return h.NativeHandle()
	}
	return 0
}
