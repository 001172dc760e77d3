package seat

import (
	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/scenegraph"
	"github.com/novade/compositor-core/internal/surface"
)

// DetermineFocus implements §4.4 step 1: "determine new focus" by
// hit-testing the scene graph and picking the topmost candidate whose
// input region is receptive at the point. graph.HitTest already orders
// candidates topmost-first (descending z-order, which doubles as the
// recency tie-break — later-stacked surfaces sort first); this walks
// that order and returns the first mapped surface whose input region
// contains the point in its own local coordinates, skipping surfaces
// with no receptive input region there (e.g. a click-through cutout).
func DetermineFocus(graph *scenegraph.Graph, surfaces *surface.Registry, x, y int) (surfaceID ids.SurfaceId, client ids.ClientId, ok bool) {
	for _, id := range graph.HitTest(x, y) {
		snap, found := surfaces.Snapshot(id)
		if !found || !snap.Mapped {
			continue
		}
		node, found := graph.Node(id)
		if !found {
			continue
		}
		local := node.WorldTransform.Invert().TransformPoint(geom.Pt(float64(x), float64(y)))
		lx, ly := int(local.X), int(local.Y)
		if snap.Current.Input.IsInfinite || snap.Current.Input.Contains(lx, ly) {
			return id, snap.Client, true
		}
	}
	return ids.SurfaceId{}, ids.ClientId{}, false
}
