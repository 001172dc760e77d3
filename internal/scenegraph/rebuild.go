package scenegraph

import (
	"sort"

	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
)

// ParentOf resolves a surface's parent, for world-transform composition
// (§4.3: "parent world x translation(child.position) x
// child.local_transform"). The scene graph only needs parent/child
// linkage, never the full surface record — the surface registry remains
// the sole owner of that hierarchy.
type ParentOf func(id ids.SurfaceId) (ids.SurfaceId, bool)

// Rebuild implements §4.5's rebuild algorithm. order must list
// every key of attrs exactly once, in ascending z-order (ties broken by
// the caller's own stable ordering, e.g. insertion order); typically
// produced by surface.Registry.FlattenZOrder. output is the frame's
// output rectangle; cellSize configures the spatial index
// (DefaultCellSize if <= 0).
func Rebuild(attrs map[ids.SurfaceId]SurfaceAttributes, order []ids.SurfaceId, parentOf ParentOf, output geom.Rect, cellSize int) *Graph {
	g := &Graph{
		index: NewSpatialIndex(output, cellSize),
		byID:  make(map[ids.SurfaceId]int),
	}

	if output.IsEmpty() {
		return g
	}

	worlds := make(map[ids.SurfaceId]geom.Affine, len(order))
	worldOf := func(id ids.SurfaceId) geom.Affine {
		if w, ok := worlds[id]; ok {
			return w
		}
		return geom.Identity()
	}

	nodes := make([]Node, 0, len(order))

	for z, id := range order {
		a, ok := attrs[id]
		if !ok {
			continue
		}

		parentWorld := geom.Identity()
		if parent, hasParent := parentOf(id); hasParent {
			parentWorld = worldOf(parent)
		}
		world := parentWorld.Multiply(geom.Translate(float64(a.PosX), float64(a.PosY))).Multiply(a.LocalTransform)
		worlds[id] = world

		localRect := geom.MakeRect(0, 0, a.Size.W, a.Size.H)
		if localRect.IsEmpty() {
			continue // §8: "zero-sized surfaces produce no scene node"
		}
		clipped := geom.TransformBounds(localRect, world).Intersect(output)
		if clipped.IsEmpty() {
			continue
		}

		nodes = append(nodes, Node{
			ID:             id,
			Attrs:          a,
			WorldTransform: world,
			ClippedRect:    clipped,
			Opacity:        a.Opacity,
			ZOrder:         z,
		})
	}

	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].ZOrder < nodes[j].ZOrder })

	for i := range nodes {
		g.index.Insert(nodes[i].ID, nodes[i].ClippedRect)
	}

	occlude(nodes, g.index)

	g.nodes = nodes
	for i, n := range nodes {
		g.byID[n.ID] = i
	}
	return g
}

// occlude implements §4.5 step 7: for each node, query candidate
// occluders from the spatial index and cull if a single higher-z
// candidate's opaque world rectangle fully contains this node's clipped
// rect. Per design note 9 ("Occlusion approximation"), only single-
// occluder full containment is detected; multi-occluder union occlusion
// is not required.
func occlude(nodes []Node, index *SpatialIndex) {
	byID := make(map[ids.SurfaceId]*Node, len(nodes))
	for i := range nodes {
		byID[nodes[i].ID] = &nodes[i]
	}

	for i := range nodes {
		n := &nodes[i]
		candidates := index.Query(n.ClippedRect)
		for _, candID := range candidates {
			m, ok := byID[candID]
			if !ok || m.ZOrder <= n.ZOrder || m.ClippedRect.IsEmpty() {
				continue
			}
			opaqueWorld := m.ClippedRect
			if !m.Attrs.Opaque.IsEmpty() {
				opaqueWorld = m.Attrs.Opaque.Transform(m.WorldTransform).Intersect(m.ClippedRect)
			} else {
				// design note 9's resolved open question: an
				// absent/empty opaque region contributes no occlusion
				// unless the client has explicitly set it, so an empty
				// Opaque region here means "no occluder contribution",
				// not "fully opaque" — skip this candidate rather than
				// falling back to clipped_rect.
				continue
			}
			if opaqueWorld.ContainsRect(n.ClippedRect) {
				n.IsOccluded = true
				break
			}
		}
	}
}
