package surface

import "github.com/novade/compositor-core/internal/geom"

// defaultDamageOverflowRectLimit and defaultDamageOverflowAreaRatio implement the commit
// damage step's overflow fallback (§4.2 step 5), grounded on the identical dirty-rect
// threshold pattern in github.com/gogpu/gg's render.Scene
// (render/scene.go: maxDirtyRects, full-redraw fallback).
const (
	defaultDamageOverflowRectLimit = 100
	defaultDamageOverflowAreaRatio = 0.75
)

// DamageTracker holds a surface's pending and current damage
// (§3).
type DamageTracker struct {
	pendingBufferDamage  []geom.Rect
	pendingSurfaceDamage []geom.Rect
	current              []geom.Rect
	age                  int

	rectLimit int
	areaRatio float64
}

func newDamageTracker() *DamageTracker {
	return &DamageTracker{
		rectLimit: defaultDamageOverflowRectLimit,
		areaRatio: defaultDamageOverflowAreaRatio,
	}
}

// AddBufferDamage pushes a buffer-space damage rectangle onto the
// pending list. Non-positive-area rectangles are rejected by the caller
// (damage_buffer in ops.go) before this is reached.
func (d *DamageTracker) AddBufferDamage(r geom.Rect) {
	d.pendingBufferDamage = append(d.pendingBufferDamage, r)
	d.age++
}

// AddSurfaceDamage pushes a surface-space damage rectangle onto the
// pending list.
func (d *DamageTracker) AddSurfaceDamage(r geom.Rect) {
	d.pendingSurfaceDamage = append(d.pendingSurfaceDamage, r)
	d.age++
}

// Current returns the current, post-commit damage rectangles
// (surface-local, clipped to surface bounds).
func (d *DamageTracker) Current() []geom.Rect {
	return d.current
}

// Age returns the damage age counter the renderer uses for partial
// update optimization (§3).
func (d *DamageTracker) Age() int {
	return d.age
}

// applyCommit implements §4.2 commit step 5: transform-and-clip
// damage, merge greedily, and fall back to a single full-surface
// rectangle on overflow. bufferScale and inverseOutputTransform map
// pending_buffer_damage into surface coordinates; surfaceBounds is the
// committed surface's (0,0,size) rectangle.
func (d *DamageTracker) applyCommit(bufferScale int, inverseOutputTransform geom.Affine, surfaceBounds geom.Rect, newContentCommitted bool) {
	merged := make([]geom.Rect, 0, len(d.pendingBufferDamage)+len(d.pendingSurfaceDamage))

	for _, r := range d.pendingBufferDamage {
		scaled := geom.MakeRect(r.X/bufferScale, r.Y/bufferScale, r.W/bufferScale, r.H/bufferScale)
		mapped := geom.TransformBounds(scaled, inverseOutputTransform)
		clipped := mapped.Intersect(surfaceBounds)
		if !clipped.IsEmpty() {
			merged = append(merged, clipped)
		}
	}
	for _, r := range d.pendingSurfaceDamage {
		clipped := r.Intersect(surfaceBounds)
		if !clipped.IsEmpty() {
			merged = append(merged, clipped)
		}
	}

	merged = greedyUnionMerge(merged)

	if d.overflowed(merged, surfaceBounds) {
		if !surfaceBounds.IsEmpty() {
			merged = []geom.Rect{surfaceBounds}
		} else {
			merged = nil
		}
	}

	d.current = merged
	d.pendingBufferDamage = nil
	d.pendingSurfaceDamage = nil

	if newContentCommitted {
		d.age = 0
	}
}

func (d *DamageTracker) overflowed(rects []geom.Rect, bounds geom.Rect) bool {
	if len(rects) > d.rectLimit {
		return true
	}
	if bounds.IsEmpty() {
		return false
	}
	total := 0
	for _, r := range rects {
		total += r.Area()
	}
	return float64(total) > d.areaRatio*float64(bounds.Area())
}

// greedyUnionMerge merges overlapping/adjacent rectangles pairwise until
// no further merge reduces the count, bounding the output size without
// requiring an exact rectangle-set normal form (§4.2: "Union-merge
// rectangles greedily").
func greedyUnionMerge(rects []geom.Rect) []geom.Rect {
	changed := true
	for changed && len(rects) > 1 {
		changed = false
		out := rects[:0:0]
		used := make([]bool, len(rects))
		for i := range rects {
			if used[i] {
				continue
			}
			acc := rects[i]
			for j := i + 1; j < len(rects); j++ {
				if used[j] {
					continue
				}
				if overlapsOrTouches(acc, rects[j]) {
					acc = acc.Union(rects[j])
					used[j] = true
					changed = true
				}
			}
			out = append(out, acc)
		}
		rects = out
	}
	return rects
}

func overlapsOrTouches(a, b geom.Rect) bool {
	if a.IsEmpty() || b.IsEmpty() {
		return false
	}
	return a.X <= b.MaxX() && b.X <= a.MaxX() && a.Y <= b.MaxY() && b.Y <= a.MaxY()
}
