// Package composition implements the composition engine (§4.6): the
// per-frame pipeline that turns a rebuilt scene graph into texture uploads,
// a draw list, and a presented frame, then signals frame callbacks for the
// surfaces actually drawn.
//
// Grounded on github.com/gogpu/gg's render package for the
// target/renderer/scene split this engine orchestrates, and on
// cache/sharded.go's sharded LRU, reused here keyed by surface id as the
// texture cache.
package composition

import (
	"time"

	novade "github.com/novade/compositor-core"
	"github.com/novade/compositor-core/cache"
	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/protoerr"
	"github.com/novade/compositor-core/internal/renderer"
	"github.com/novade/compositor-core/internal/scenegraph"
	"github.com/novade/compositor-core/internal/surface"
)

// DefaultMaxAbsentFrames is how many consecutive frames a surface may be
// missing from the renderable set before its cached texture is reclaimed
// (§4.6: "N consecutive frames (e.g. 120)").
const DefaultMaxAbsentFrames = 120

// FrameCallbackSink receives the wl_callback.done notifications the
// composition engine emits after a successful present (§4.6 step 5). The
// wire layer implements this to serialize the event onto the right
// client connection.
type FrameCallbackSink interface {
	Signal(surfaceID ids.SurfaceId, callbackID uint32, timestampMs uint32)
}

// Cursor describes the pointer's current visual, composited as the final
// draw-list element each frame (§4.6 step 3).
type Cursor struct {
	Surface            ids.SurfaceId
	X, Y                float64
	HotspotX, HotspotY  int
}

type textureEntry struct {
	tex           renderer.Texture
	bufferID      ids.BufferId
	lastDamageAge int
	framesAbsent  int
	bytes         int64
	lastUsed      int64
}

// Engine runs the per-frame composition pipeline against a single
// renderer backend. Not safe for concurrent RenderFrame calls; the event
// loop drives frames sequentially (§5).
type Engine struct {
	r         renderer.Renderer
	surfaces  *surface.Registry
	callbacks FrameCallbackSink

	textures *cache.ShardedCache[ids.SurfaceId, *textureEntry]

	maxAbsentFrames int
	memoryBudget    int64 // bytes; 0 disables budget-based eviction
	usedBytes       int64
	frameCounter    int64

	Gamma          float64
	ToneMapMaxLum  float64
	ToneMapExposure float64
}

// New creates a composition engine driving r, resolving buffer contents
// through surfaces, and delivering frame callbacks through callbacks
// (nil is accepted, e.g. in tests that don't care about callback timing).
func New(r renderer.Renderer, surfaces *surface.Registry, callbacks FrameCallbackSink) *Engine {
	return &Engine{
		r:               r,
		surfaces:        surfaces,
		callbacks:       callbacks,
		textures:        cache.NewSharded[ids.SurfaceId, *textureEntry](cache.DefaultCapacity, surfaceIDHasher),
		maxAbsentFrames: DefaultMaxAbsentFrames,
		Gamma:           1.0,
		ToneMapMaxLum:   1.0,
		ToneMapExposure: 1.0,
	}
}

// SetMemoryBudget enables LRU eviction of cached textures once their
// combined estimated size exceeds budgetBytes. 0 disables the budget
// (age-based eviction alone still applies).
func (e *Engine) SetMemoryBudget(budgetBytes int64) {
	e.memoryBudget = budgetBytes
}

func surfaceIDHasher(id ids.SurfaceId) uint64 {
	return cache.Uint64Hasher(id.Raw())
}

// RenderFrame implements §4.6's per-frame algorithm: texture upload, draw
// list construction, render invocation, post-render hooks, present, and
// frame-callback signaling. Renderer failures are recovered per
// §7: a per-element upload failure drops that node; a per-frame
// render/present failure skips the frame without signaling callbacks.
func (e *Engine) RenderFrame(graph *scenegraph.Graph, outputRect geom.Rect, scale float64, cursor *Cursor) error {
	e.frameCounter++

	nodes := graph.RenderableNodes()
	if len(nodes) == 0 && cursor == nil {
		e.reapStaleTextures(nil)
		return nil
	}

	elements := make([]renderer.Element, 0, len(nodes)+1)
	drawn := make([]ids.SurfaceId, 0, len(nodes))

	for _, n := range nodes {
		snap, ok := e.surfaces.Snapshot(n.ID)
		if !ok || !snap.Mapped {
			continue
		}
		tex, ok := e.resolveTexture(n.ID, snap.Current, snap.DamageAge)
		if !ok {
			continue
		}
		elements = append(elements, renderer.Element{
			Kind:     renderer.ElementTexture,
			Texture:  tex,
			World:    n.WorldTransform,
			Opacity:  n.Opacity,
			SrcRect:  renderer.FullUnitRect,
			ClipRect: n.ClippedRect,
		})
		drawn = append(drawn, n.ID)
	}

	if cursor != nil {
		if snap, ok := e.surfaces.Snapshot(cursor.Surface); ok && snap.Mapped {
			if tex, ok := e.resolveTexture(cursor.Surface, snap.Current, snap.DamageAge); ok {
				w, h := tex.Width(), tex.Height()
				x := cursor.X - float64(cursor.HotspotX)
				y := cursor.Y - float64(cursor.HotspotY)
				elements = append(elements, renderer.Element{
					Kind:     renderer.ElementTexture,
					Texture:  tex,
					World:    geom.Translate(x, y),
					Opacity:  1,
					SrcRect:  renderer.FullUnitRect,
					ClipRect: geom.MakeRect(int(x), int(y), w, h),
				})
				drawn = append(drawn, cursor.Surface)
			}
		}
	}

	e.reapStaleTextures(drawn)

	if len(elements) == 0 {
		return nil
	}

	if err := e.r.RenderElements(elements, outputRect, scale); err != nil {
		novade.Logger().Warn("composition: render_elements failed, skipping frame",
			"error", err)
		return nil
	}

	if err := e.r.ApplyGamma(e.Gamma); err != nil {
		novade.Logger().Warn("composition: gamma pass failed", "error", err)
	}
	if err := e.r.ApplyToneMapping(e.ToneMapMaxLum, e.ToneMapExposure); err != nil {
		novade.Logger().Warn("composition: tone mapping pass failed", "error", err)
	}

	if err := e.r.SubmitAndPresent(); err != nil {
		novade.Logger().Warn("composition: submit_and_present failed, skipping frame",
			"error", err)
		return nil
	}

	e.signalFrameCallbacks(drawn)
	return nil
}

// resolveTexture returns the cached texture for id, uploading fresh if the
// surface has no cached texture, its attached buffer changed since the
// last upload, or it carries damage accumulated since the last upload
// (§4.6 step 2: "dirty (new buffer id since last upload OR non-empty
// damage)"). damageAge is the surface's Snapshot.DamageAge at the time of
// this call; AddBufferDamage/AddSurfaceDamage bump it independently of
// buffer attach, so a same-buffer recommit with a new damage rect (e.g. a
// sub-rect wl_surface.damage) still forces re-upload.
func (e *Engine) resolveTexture(id ids.SurfaceId, attrs surface.Attributes, damageAge int) (renderer.Texture, bool) {
	if attrs.Buffer == nil {
		return nil, false
	}
	bufID := attrs.Buffer.ID()

	if entry, ok := e.textures.Get(id); ok && entry.bufferID == bufID && entry.lastDamageAge == damageAge {
		entry.framesAbsent = 0
		entry.lastUsed = e.frameCounter
		return entry.tex, true
	}

	tex, bytes, err := e.upload(attrs.BufferSnapshot)
	if err != nil {
		wrapped := protoerr.Wrap(protoerr.TextureUploadError, id.String(), err)
		novade.Logger().Warn("composition: texture upload failed, dropping node",
			"surface", id.String(), "error", wrapped)
		return nil, false
	}

	if old, ok := e.textures.Get(id); ok {
		e.usedBytes -= old.bytes
		_ = old.tex.Destroy()
	}
	e.textures.Set(id, &textureEntry{tex: tex, bufferID: bufID, lastDamageAge: damageAge, bytes: bytes, lastUsed: e.frameCounter})
	e.usedBytes += bytes
	e.enforceMemoryBudget(id)
	return tex, true
}

func (e *Engine) upload(rec bufferreg.Record) (renderer.Texture, int64, error) {
	if rec.Kind == bufferreg.DMABUF {
		tex, err := e.r.UploadDMABUFTexture(rec.Planes, rec.Width, rec.Height)
		if err != nil {
			return nil, 0, err
		}
		return tex, int64(rec.Width) * int64(rec.Height) * int64(bufferreg.BytesPerPixel(rec.Format)), nil
	}
	tex, err := e.r.UploadSHMTexture(rec.Data, rec.Width, rec.Height, rec.Stride, rec.Format)
	if err != nil {
		return nil, 0, err
	}
	return tex, int64(rec.Stride) * int64(rec.Height), nil
}

// reapStaleTextures ages every cached entry not present in this frame's
// drawn set, evicting any that crossed maxAbsentFrames (§4.6's age-based
// eviction policy).
func (e *Engine) reapStaleTextures(drawn []ids.SurfaceId) {
	present := make(map[ids.SurfaceId]struct{}, len(drawn))
	for _, id := range drawn {
		present[id] = struct{}{}
	}

	for _, id := range e.textures.Keys() {
		if _, ok := present[id]; ok {
			continue
		}
		entry, ok := e.textures.Get(id)
		if !ok {
			continue
		}
		entry.framesAbsent++
		if entry.framesAbsent < e.maxAbsentFrames {
			continue
		}
		if e.textures.Delete(id) {
			e.usedBytes -= entry.bytes
			_ = entry.tex.Destroy()
		}
	}
}

// enforceMemoryBudget evicts the globally least-recently-used texture
// (other than justUploaded) until usedBytes fits the configured budget
// (§4.6: "optional LRU eviction under a memory budget"). Eviction of a
// still-visible surface is allowed; it forces a re-upload next frame.
func (e *Engine) enforceMemoryBudget(justUploaded ids.SurfaceId) {
	if e.memoryBudget <= 0 {
		return
	}
	for e.usedBytes > e.memoryBudget {
		var oldestID ids.SurfaceId
		var oldest *textureEntry
		for _, id := range e.textures.Keys() {
			if id == justUploaded {
				continue
			}
			entry, ok := e.textures.Get(id)
			if !ok {
				continue
			}
			if oldest == nil || entry.lastUsed < oldest.lastUsed {
				oldest, oldestID = entry, id
			}
		}
		if oldest == nil {
			return
		}
		if e.textures.Delete(oldestID) {
			e.usedBytes -= oldest.bytes
			_ = oldest.tex.Destroy()
		}
	}
}

// signalFrameCallbacks delivers wl_callback.done for every surface drawn
// this frame (§4.6 step 5). Timestamp is milliseconds since epoch, the
// convention wl_surface.frame documents.
func (e *Engine) signalFrameCallbacks(drawn []ids.SurfaceId) {
	if e.callbacks == nil {
		return
	}
	now := uint32(time.Now().UnixMilli())
	for _, id := range drawn {
		for _, cb := range e.surfaces.TakeSignalQueue(id) {
			e.callbacks.Signal(id, cb, now)
		}
	}
}
