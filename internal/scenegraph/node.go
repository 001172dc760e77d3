// Package scenegraph implements the scene graph (§4.5):
// per-frame flattening of the surface hierarchy into world-space
// renderable nodes, a uniform-grid spatial index, and opaque-region
// occlusion culling.
//
// Grounded on github.com/gogpu/gg's scene package for the
// rebuild-each-frame / versioned-snapshot shape (scene/scene.go). The
// uniform grid buckets every node by cell; it has no damage threshold and
// no incremental-update path.
package scenegraph

import (
	"sort"

	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
)

// SurfaceAttributes is the minimal snapshot of a surface's current state
// the scene graph needs to place and cull it (§4.5's Rebuild
// input: "{SurfaceId -> SurfaceAttributes}").
type SurfaceAttributes struct {
	PosX, PosY     int
	Size           geom.Rect // local rect (0,0,W,H)
	LocalTransform geom.Affine
	Opacity        float64
	Opaque         geom.Region
	ZIndex         int // not read by Rebuild; node order comes from Rebuild's order slice alone
}

// Node is a rebuilt scene graph node (§3's "Scene graph node").
// Nodes are non-persistent: rebuilt each frame, never aliased across
// frames.
type Node struct {
	ID             ids.SurfaceId
	Attrs          SurfaceAttributes
	WorldTransform geom.Affine
	ClippedRect    geom.Rect
	Opacity        float64
	ZOrder         int
	IsOccluded     bool
}

// Graph is one frame's rebuilt scene: the ordered node list and its
// spatial index.
type Graph struct {
	nodes []Node
	index *SpatialIndex
	byID  map[ids.SurfaceId]int
}

// Nodes returns every node built this frame, in ascending z-order
// (§8: "the scene graph emits nodes sorted by z-order
// ascending").
func (g *Graph) Nodes() []Node {
	return g.nodes
}

// RenderableNodes implements §4.5's get_renderable_nodes():
// nodes with IsOccluded == false, in z-order ascending.
func (g *Graph) RenderableNodes() []Node {
	out := make([]Node, 0, len(g.nodes))
	for _, n := range g.nodes {
		if !n.IsOccluded {
			out = append(out, n)
		}
	}
	return out
}

// Node returns the node for a surface id built this frame, if any.
func (g *Graph) Node(id ids.SurfaceId) (Node, bool) {
	i, ok := g.byID[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i], true
}

// WorldPosition implements seat.SurfaceLocator: the surface's world
// origin, for pointer-local-coordinate computation (§4.4 step 2).
func (g *Graph) WorldPosition(id ids.SurfaceId) (float64, float64, bool) {
	n, ok := g.Node(id)
	if !ok {
		return 0, 0, false
	}
	p := n.WorldTransform.TransformPoint(geom.Pt(0, 0))
	return p.X, p.Y, true
}

// HitTest implements §4.4 step 1's spatial half of focus
// determination: every node whose clipped rect contains the point,
// ordered topmost-first (descending ZOrder, the z-order/recency
// tie-break — ZOrder is assigned by Rebuild in the caller's stacking
// order, so ties already resolve to whichever surface was ordered
// later). Input-region containment is not a scene-graph concern (the
// region lives on surface.Attributes, not scenegraph.SurfaceAttributes);
// callers combine this with an input-region test, e.g.
// seat.DetermineFocus.
func (g *Graph) HitTest(x, y int) []ids.SurfaceId {
	candidates := g.index.Query(geom.MakeRect(x, y, 1, 1))
	type hit struct {
		id     ids.SurfaceId
		zOrder int
	}
	hits := make([]hit, 0, len(candidates))
	for _, id := range candidates {
		n, ok := g.Node(id)
		if ok && n.ClippedRect.Contains(x, y) {
			hits = append(hits, hit{id: id, zOrder: n.ZOrder})
		}
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].zOrder > hits[j].zOrder })
	out := make([]ids.SurfaceId, len(hits))
	for i, h := range hits {
		out[i] = h.id
	}
	return out
}
