package scenegraph

import (
	"testing"

	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
)

func allocN(n int) []ids.SurfaceId {
	a := ids.NewAllocator[ids.SurfaceMarker]()
	out := make([]ids.SurfaceId, n)
	for i := range out {
		out[i] = a.Alloc()
	}
	return out
}

func noParent(ids.SurfaceId) (ids.SurfaceId, bool) { return ids.SurfaceId{}, false }

func TestRebuildPlacesNodesInZOrder(t *testing.T) {
	surfIDs := allocN(3)
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		surfIDs[0]: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
		surfIDs[1]: {PosX: 10, PosY: 10, Size: geom.MakeRect(0, 0, 50, 50), LocalTransform: geom.Identity(), Opacity: 1},
		surfIDs[2]: {PosX: 200, PosY: 200, Size: geom.MakeRect(0, 0, 20, 20), LocalTransform: geom.Identity(), Opacity: 1},
	}
	order := []ids.SurfaceId{surfIDs[0], surfIDs[1], surfIDs[2]}
	output := geom.MakeRect(0, 0, 1920, 1080)

	g := Rebuild(attrs, order, noParent, output, 0)
	nodes := g.Nodes()
	if len(nodes) != 3 {
		t.Fatalf("got %d nodes, want 3", len(nodes))
	}
	for i, n := range nodes {
		if n.ZOrder != i {
			t.Errorf("node %d has ZOrder %d, want %d", i, n.ZOrder, i)
		}
	}
}

func TestRebuildClipsAgainstOutput(t *testing.T) {
	surfIDs := allocN(1)
	id := surfIDs[0]
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		id: {PosX: 900, PosY: 900, Size: geom.MakeRect(0, 0, 500, 500), LocalTransform: geom.Identity(), Opacity: 1},
	}
	output := geom.MakeRect(0, 0, 1000, 1000)
	g := Rebuild(attrs, []ids.SurfaceId{id}, noParent, output, 0)
	n, ok := g.Node(id)
	if !ok {
		t.Fatal("expected node to exist")
	}
	want := geom.MakeRect(900, 900, 100, 100)
	if n.ClippedRect != want {
		t.Errorf("ClippedRect = %+v, want %+v", n.ClippedRect, want)
	}
}

func TestRebuildSkipsFullyOffscreenSurface(t *testing.T) {
	surfIDs := allocN(1)
	id := surfIDs[0]
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		id: {PosX: 5000, PosY: 5000, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
	}
	output := geom.MakeRect(0, 0, 1920, 1080)
	g := Rebuild(attrs, []ids.SurfaceId{id}, noParent, output, 0)
	if len(g.Nodes()) != 0 {
		t.Fatalf("got %d nodes, want 0 for fully offscreen surface", len(g.Nodes()))
	}
}

func TestRebuildSkipsZeroSizedSurface(t *testing.T) {
	surfIDs := allocN(1)
	id := surfIDs[0]
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		id: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 0, 0), LocalTransform: geom.Identity(), Opacity: 1},
	}
	output := geom.MakeRect(0, 0, 1920, 1080)
	g := Rebuild(attrs, []ids.SurfaceId{id}, noParent, output, 0)
	if len(g.Nodes()) != 0 {
		t.Fatalf("got %d nodes, want 0 for zero-sized surface", len(g.Nodes()))
	}
}

func TestRebuildChildInheritsParentWorldTransform(t *testing.T) {
	surfIDs := allocN(2)
	parent, child := surfIDs[0], surfIDs[1]
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		parent: {PosX: 100, PosY: 100, Size: geom.MakeRect(0, 0, 200, 200), LocalTransform: geom.Identity(), Opacity: 1},
		child:  {PosX: 10, PosY: 10, Size: geom.MakeRect(0, 0, 20, 20), LocalTransform: geom.Identity(), Opacity: 1},
	}
	parentOf := func(id ids.SurfaceId) (ids.SurfaceId, bool) {
		if id == child {
			return parent, true
		}
		return ids.SurfaceId{}, false
	}
	output := geom.MakeRect(0, 0, 1920, 1080)
	g := Rebuild(attrs, []ids.SurfaceId{parent, child}, parentOf, output, 0)
	n, ok := g.Node(child)
	if !ok {
		t.Fatal("expected child node")
	}
	want := geom.MakeRect(110, 110, 20, 20)
	if n.ClippedRect != want {
		t.Errorf("child ClippedRect = %+v, want %+v (parent origin not composed)", n.ClippedRect, want)
	}
}

func TestOcclusionCullsFullyCoveredLowerNode(t *testing.T) {
	surfIDs := allocN(2)
	below, above := surfIDs[0], surfIDs[1]
	opaqueFull := geom.NewRegion()
	opaqueFull.Add(geom.MakeRect(0, 0, 100, 100))
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		below: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
		above: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1, Opaque: opaqueFull},
	}
	output := geom.MakeRect(0, 0, 1000, 1000)
	g := Rebuild(attrs, []ids.SurfaceId{below, above}, noParent, output, 0)

	belowNode, _ := g.Node(below)
	aboveNode, _ := g.Node(above)
	if !belowNode.IsOccluded {
		t.Error("expected below node to be occluded by a fully-opaque higher surface")
	}
	if aboveNode.IsOccluded {
		t.Error("top node should never be occluded")
	}
	renderable := g.RenderableNodes()
	if len(renderable) != 1 || renderable[0].ID != above {
		t.Errorf("RenderableNodes = %+v, want only the occluding surface", renderable)
	}
}

func TestNoOcclusionWithoutOpaqueRegion(t *testing.T) {
	surfIDs := allocN(2)
	below, above := surfIDs[0], surfIDs[1]
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		below: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
		above: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
	}
	output := geom.MakeRect(0, 0, 1000, 1000)
	g := Rebuild(attrs, []ids.SurfaceId{below, above}, noParent, output, 0)
	belowNode, _ := g.Node(below)
	if belowNode.IsOccluded {
		t.Error("a surface with no explicit opaque region must not occlude anything")
	}
}

func TestHitTestReturnsTopmostCandidatesFirst(t *testing.T) {
	surfIDs := allocN(3)
	a, b, c := surfIDs[0], surfIDs[1], surfIDs[2]
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		a: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
		b: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
		c: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
	}
	output := geom.MakeRect(0, 0, 1000, 1000)
	// order is ascending z; c is stacked last (topmost), a first (bottommost).
	g := Rebuild(attrs, []ids.SurfaceId{a, b, c}, noParent, output, 0)
	hits := g.HitTest(50, 50)
	want := []ids.SurfaceId{c, b, a}
	if len(hits) != len(want) {
		t.Fatalf("got %d hits, want %d", len(hits), len(want))
	}
	for i, id := range want {
		if hits[i] != id {
			t.Errorf("hits[%d] = %v, want %v (topmost-first order)", i, hits[i], id)
		}
	}
}

func TestEmptyOutputProducesEmptyGraph(t *testing.T) {
	surfIDs := allocN(1)
	id := surfIDs[0]
	attrs := map[ids.SurfaceId]SurfaceAttributes{
		id: {PosX: 0, PosY: 0, Size: geom.MakeRect(0, 0, 100, 100), LocalTransform: geom.Identity(), Opacity: 1},
	}
	g := Rebuild(attrs, []ids.SurfaceId{id}, noParent, geom.Rect{}, 0)
	if len(g.Nodes()) != 0 {
		t.Fatalf("got %d nodes for empty output, want 0", len(g.Nodes()))
	}
}
