package surface

import (
	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/protoerr"
)

// AttachBuffer implements §4.2's attach_buffer. handle may be nil
// to clear the pending buffer (the surface will unmap on commit).
func (r *Registry) AttachBuffer(id ids.SurfaceId, handle *bufferreg.Handle, snapshot bufferreg.Record, dx, dy int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}

	if rec.protocolVersion >= 5 && (dx != 0 || dy != 0) {
		return protoerr.New(protoerr.InvalidBufferOffset, "wl_surface", "non-zero attach offset requires protocol version < 5")
	}
	if handle != nil {
		if snapshot.Width <= 0 || snapshot.Height <= 0 {
			return protoerr.New(protoerr.InvalidBufferSize, "wl_surface", "attached buffer has zero dimensions")
		}
		if snapshot.HasClient() && rec.Client != snapshot.Client {
			return protoerr.New(protoerr.ClientMismatch, "wl_surface", "buffer owned by a different client")
		}
	}

	r.releaseAttrBuffer(&rec.pending)
	rec.pending.Buffer = handle
	rec.pending.BufferSnapshot = snapshot
	if handle != nil {
		r.buffers.Acquire(handle)
		rec.pending.Size = geom.MakeRect(0, 0, snapshot.Width, snapshot.Height)
		rec.pending.BufferOffX = dx
		rec.pending.BufferOffY = dy
	}

	if rec.state == StateCreated {
		rec.state = StatePendingBuffer
	}
	return nil
}

// DamageBuffer implements §4.2's damage_buffer: clips the
// rectangle to buffer bounds and pushes it onto pending_buffer_damage.
func (r *Registry) DamageBuffer(id ids.SurfaceId, x, y, w, h int) error {
	if w <= 0 || h <= 0 {
		return protoerr.New(protoerr.InvalidState, "wl_surface", "damage_buffer requires positive width and height")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	bufBounds := geom.Rect{}
	if rec.pending.Buffer != nil {
		bufBounds = geom.MakeRect(0, 0, rec.pending.BufferSnapshot.Width, rec.pending.BufferSnapshot.Height)
	}
	clipped := geom.MakeRect(x, y, w, h).Intersect(bufBounds)
	if !clipped.IsEmpty() {
		rec.damage.AddBufferDamage(clipped)
	}
	return nil
}

// DamageSurface implements §4.2's damage_surface: clips the
// rectangle to the surface's pending size and pushes it onto
// pending_surface_damage.
func (r *Registry) DamageSurface(id ids.SurfaceId, x, y, w, h int) error {
	if w <= 0 || h <= 0 {
		return protoerr.New(protoerr.InvalidState, "wl_surface", "damage_surface requires positive width and height")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	clipped := geom.MakeRect(x, y, w, h).Intersect(rec.pending.Size)
	if !clipped.IsEmpty() {
		rec.damage.AddSurfaceDamage(clipped)
	}
	return nil
}

// SetOpaqueRegion implements §4.2's set_opaque_region. An empty
// rects list means no opaque pixels (this design's resolved open question in
// design note 9: opaque defaults to empty, not fully-opaque).
func (r *Registry) SetOpaqueRegion(id ids.SurfaceId, rects []geom.Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	rec.pending.Opaque = Region{Region: geom.NewRegion(rects...)}
	return nil
}

// SetInputRegion implements §4.2's set_input_region. An empty
// rects list means fully receptive (infinite input region).
func (r *Registry) SetInputRegion(id ids.SurfaceId, rects []geom.Rect) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if len(rects) == 0 {
		rec.pending.Input = InfiniteRegion()
	} else {
		rec.pending.Input = Region{Region: geom.NewRegion(rects...)}
	}
	return nil
}

// Frame implements §4.2's frame(): enqueues a one-shot callback
// id on the pending state.
func (r *Registry) Frame(id ids.SurfaceId, callbackID uint32) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	rec.pending.FrameCallbacks = append(rec.pending.FrameCallbacks, callbackID)
	return nil
}

// SetGeometry updates the pending position, local transform, opacity,
// buffer scale, and output transform — the attributes
// §3 groups under "Attributes include" that are not driven by
// attach_buffer/damage/regions. Supplied by the XDG-shell and output
// collaborators (§6), not by wl_surface itself.
func (r *Registry) SetGeometry(id ids.SurfaceId, posX, posY int, local geom.Affine, opacity float64, bufferScale int, xform OutputTransform) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if bufferScale < 1 {
		bufferScale = 1
	}
	rec.pending.PosX, rec.pending.PosY = posX, posY
	rec.pending.LocalTransform = local
	rec.pending.Opacity = opacity
	rec.pending.BufferScale = bufferScale
	rec.pending.OutputXform = xform
	return nil
}
