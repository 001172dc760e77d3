package surface

import "github.com/novade/compositor-core/internal/ids"

// FlattenZOrder walks topLevelOrder (the caller's top-level stacking
// order, lowest first) and recursively appends each surface's children
// in child-list order, producing the single ascending z-order list the
// scene graph's Rebuild consumes. Children always sort immediately
// above their parent, matching the usual subsurface-above-parent
// convention; ReorderChild controls relative order among siblings.
func (r *Registry) FlattenZOrder(topLevelOrder []ids.SurfaceId) []ids.SurfaceId {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ids.SurfaceId, 0, len(r.records))
	seen := make(map[ids.SurfaceId]struct{}, len(r.records))
	for _, id := range topLevelOrder {
		r.appendSubtreeLocked(id, &out, seen)
	}
	return out
}

func (r *Registry) appendSubtreeLocked(id ids.SurfaceId, out *[]ids.SurfaceId, seen map[ids.SurfaceId]struct{}) {
	if _, dup := seen[id]; dup {
		return
	}
	rec, ok := r.records[id]
	if !ok || rec.state == StateDestroyed {
		return
	}
	seen[id] = struct{}{}
	*out = append(*out, id)
	for _, child := range rec.children {
		r.appendSubtreeLocked(child, out, seen)
	}
}
