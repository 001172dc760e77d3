// Package wgpu is the concrete renderer.Renderer backend: it composites
// surface textures on the GPU through github.com/gogpu/wgpu's hal package,
// using a compute pipeline over storage buffers rather than a textured
// render pass (internal/renderer/wgpu/shader.go explains why).
//
// Grounded on github.com/gogpu/gg's backend/wgpu package for the
// adapter/device bring-up and logging shape (device.go), adapted from its
// deprecated core/types ID-based API to the current hal-based one, whose
// construction path is grounded on github.com/gogpu/wgpu/hal's own
// bench_cross_backend_test.go and noop_test.go (hal.Backend ->
// hal.Instance -> hal.ExposedAdapter -> hal.Adapter.Open -> hal.OpenDevice).
package wgpu

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	novade "github.com/novade/compositor-core"
)

// Device bundles the HAL backend, instance, adapter and opened
// device/queue a Renderer issues every GPU command through.
type Device struct {
	backend  hal.Backend
	instance hal.Instance
	adapter  hal.ExposedAdapter
	device   hal.Device
	queue    hal.Queue
}

// Open selects a GPU backend and opens a logical device on its first
// exposed adapter.
//
// backend is usually nil: production callers blank-import
// github.com/gogpu/wgpu/hal/allbackends so hal.SelectBestBackend has real
// backends to rank (Vulkan > Metal > DX12 > OpenGL > the no-op backend),
// and Open picks among them. Tests pass a pinned backend (hal/noop's
// API{}) so they don't depend on a GPU being present.
func Open(backend hal.Backend) (*Device, error) {
	if backend == nil {
		selected, err := hal.SelectBestBackend()
		if err != nil {
			return nil, fmt.Errorf("wgpu: no GPU backend available: %w", err)
		}
		backend = selected
	}

	instance, err := backend.CreateInstance(&hal.InstanceDescriptor{
		Backends: gputypes.BackendsPrimary,
	})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance (%s): %w", backend.Variant(), err)
	}

	adapters := instance.EnumerateAdapters(nil)
	if len(adapters) == 0 {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: backend %s exposed no adapters", backend.Variant())
	}
	adapter := adapters[0]

	opened, err := adapter.Adapter.Open(0, adapter.Capabilities.Limits)
	if err != nil {
		instance.Destroy()
		return nil, fmt.Errorf("wgpu: open device on %s: %w", backend.Variant(), err)
	}

	novade.Logger().Info("wgpu: device opened",
		"backend", backend.Variant().String(),
		"adapter", adapter.Info.Name)

	return &Device{
		backend:  backend,
		instance: instance,
		adapter:  adapter,
		device:   opened.Device,
		queue:    opened.Queue,
	}, nil
}

// Close releases the device and its instance. Every buffer, pipeline, and
// bind group created through d must be destroyed first.
func (d *Device) Close() {
	d.device.Destroy()
	d.instance.Destroy()
}
