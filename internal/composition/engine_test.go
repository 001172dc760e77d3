package composition

import (
	"errors"
	"testing"

	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/renderer"
	"github.com/novade/compositor-core/internal/scenegraph"
	"github.com/novade/compositor-core/internal/surface"
)

// fakeTexture is a minimal renderer.Texture for tests.
type fakeTexture struct {
	id            uint64
	w, h          int
	format        bufferreg.Format
	destroyCalled bool
}

func (t *fakeTexture) ID() uint64            { return t.id }
func (t *fakeTexture) Width() int            { return t.w }
func (t *fakeTexture) Height() int           { return t.h }
func (t *fakeTexture) Format() bufferreg.Format { return t.format }
func (t *fakeTexture) Destroy() error        { t.destroyCalled = true; return nil }

// fakeRenderer records every call the engine makes, with switches to
// force failures for the recovery-path tests.
type fakeRenderer struct {
	nextTexID uint64

	uploadSHMCalls    int
	uploadDMABUFCalls int
	renderCalls       int
	gammaCalls        int
	toneMapCalls      int
	presentCalls      int

	lastElements []renderer.Element

	failUpload  bool
	failRender  bool
	failPresent bool

	uploaded []*fakeTexture
}

func (f *fakeRenderer) UploadSHMTexture(data []byte, width, height, stride int, format bufferreg.Format) (renderer.Texture, error) {
	f.uploadSHMCalls++
	if f.failUpload {
		return nil, errors.New("upload failed")
	}
	f.nextTexID++
	tex := &fakeTexture{id: f.nextTexID, w: width, h: height, format: format}
	f.uploaded = append(f.uploaded, tex)
	return tex, nil
}

func (f *fakeRenderer) UploadDMABUFTexture(planes []bufferreg.Plane, width, height int) (renderer.Texture, error) {
	f.uploadDMABUFCalls++
	if f.failUpload {
		return nil, errors.New("upload failed")
	}
	f.nextTexID++
	tex := &fakeTexture{id: f.nextTexID, w: width, h: height}
	f.uploaded = append(f.uploaded, tex)
	return tex, nil
}

func (f *fakeRenderer) RenderElements(elements []renderer.Element, outputRect geom.Rect, scale float64) error {
	f.renderCalls++
	f.lastElements = elements
	if f.failRender {
		return errors.New("render failed")
	}
	return nil
}

func (f *fakeRenderer) ApplyGamma(value float64) error {
	f.gammaCalls++
	return nil
}

func (f *fakeRenderer) ApplyToneMapping(maxLum, exposure float64) error {
	f.toneMapCalls++
	return nil
}

func (f *fakeRenderer) SubmitAndPresent() error {
	f.presentCalls++
	if f.failPresent {
		return errors.New("present failed")
	}
	return nil
}

func (f *fakeRenderer) SupportedShmFormats() []bufferreg.Format {
	return []bufferreg.Format{bufferreg.ARGB8888, bufferreg.XRGB8888}
}

func (f *fakeRenderer) SupportedDmabufFormats(modifiers []uint64) []bufferreg.Format {
	return nil
}

type fakeCallbackSink struct {
	signaled []ids.SurfaceId
}

func (s *fakeCallbackSink) Signal(surfaceID ids.SurfaceId, callbackID uint32, timestampMs uint32) {
	s.signaled = append(s.signaled, surfaceID)
}

// testFixture wires a surface registry with one mapped surface backed by
// an SHM buffer, and the scene graph rebuilt from it.
type testFixture struct {
	surfaces *surface.Registry
	buffers  *bufferreg.Registry
	id       ids.SurfaceId
	client   ids.ClientId
	output   geom.Rect
}

func newFixture(t *testing.T) *testFixture {
	t.Helper()
	buffers := bufferreg.New(nil)
	surfaces := surface.New(buffers)
	client := ids.NewAllocator[ids.ClientMarker]().Alloc()
	id := surfaces.Create(client)

	attachSHM(t, surfaces, buffers, id, client, 4, 4)

	if err := surfaces.SetGeometry(id, 10, 20, geom.Identity(), 1, 1, surface.Transform0); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	if err := surfaces.Commit(id); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	return &testFixture{
		surfaces: surfaces,
		buffers:  buffers,
		id:       id,
		client:   client,
		output:   geom.MakeRect(0, 0, 800, 600),
	}
}

func attachSHM(t *testing.T, surfaces *surface.Registry, buffers *bufferreg.Registry, id ids.SurfaceId, client ids.ClientId, w, h int) {
	t.Helper()
	stride := w * bufferreg.BytesPerPixel(bufferreg.ARGB8888)
	data := make([]byte, stride*h)
	handle, err := buffers.RegisterSHM(w, h, stride, bufferreg.ARGB8888, bufferreg.SHMPayload{Data: data}, client, true)
	if err != nil {
		t.Fatalf("RegisterSHM: %v", err)
	}
	snap, err := buffers.Lookup(handle.ID())
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if err := surfaces.AttachBuffer(id, handle, snap, 0, 0); err != nil {
		t.Fatalf("AttachBuffer: %v", err)
	}
}

func (f *testFixture) rebuild(t *testing.T) *scenegraph.Graph {
	t.Helper()
	snap, ok := f.surfaces.Snapshot(f.id)
	if !ok {
		t.Fatal("surface not found")
	}
	attrs := map[ids.SurfaceId]scenegraph.SurfaceAttributes{
		f.id: {
			PosX:           snap.Current.PosX,
			PosY:           snap.Current.PosY,
			Size:           snap.Current.Size,
			LocalTransform: snap.Current.LocalTransform,
			Opacity:        snap.Current.Opacity,
			Opaque:         snap.Current.Opaque.Region,
		},
	}
	noParent := func(ids.SurfaceId) (ids.SurfaceId, bool) { return ids.SurfaceId{}, false }
	return scenegraph.Rebuild(attrs, []ids.SurfaceId{f.id}, noParent, f.output, 0)
}

func TestRenderFrameUploadsAndPresentsSingleSurface(t *testing.T) {
	fx := newFixture(t)
	r := &fakeRenderer{}
	e := New(r, fx.surfaces, nil)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	if r.uploadSHMCalls != 1 {
		t.Errorf("uploadSHMCalls = %d, want 1", r.uploadSHMCalls)
	}
	if r.renderCalls != 1 || len(r.lastElements) != 1 {
		t.Errorf("renderCalls = %d, elements = %d, want 1 and 1", r.renderCalls, len(r.lastElements))
	}
	if r.gammaCalls != 1 || r.toneMapCalls != 1 || r.presentCalls != 1 {
		t.Errorf("post-render hooks/present not all called once: gamma=%d tonemap=%d present=%d",
			r.gammaCalls, r.toneMapCalls, r.presentCalls)
	}
}

func TestRenderFrameReusesCachedTextureAcrossFrames(t *testing.T) {
	fx := newFixture(t)
	r := &fakeRenderer{}
	e := New(r, fx.surfaces, nil)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 2: %v", err)
	}

	if r.uploadSHMCalls != 1 {
		t.Errorf("expected exactly one upload across two frames of the same buffer, got %d", r.uploadSHMCalls)
	}
}

func TestRenderFrameReuploadsAfterNewBufferCommitted(t *testing.T) {
	fx := newFixture(t)
	r := &fakeRenderer{}
	e := New(r, fx.surfaces, nil)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 1: %v", err)
	}

	attachSHM(t, fx.surfaces, fx.buffers, fx.id, fx.client, 4, 4)
	if err := fx.surfaces.Commit(fx.id); err != nil {
		t.Fatalf("recommit: %v", err)
	}
	graph2 := fx.rebuild(t)
	if err := e.RenderFrame(graph2, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 2: %v", err)
	}

	if r.uploadSHMCalls != 2 {
		t.Errorf("expected a re-upload after attaching a new buffer, got %d uploads", r.uploadSHMCalls)
	}
}

func TestRenderFrameReuploadsOnDamageWithoutNewBuffer(t *testing.T) {
	fx := newFixture(t)
	r := &fakeRenderer{}
	e := New(r, fx.surfaces, nil)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	if r.uploadSHMCalls != 1 {
		t.Fatalf("uploadSHMCalls after frame 1 = %d, want 1", r.uploadSHMCalls)
	}

	if err := fx.surfaces.DamageSurface(fx.id, 0, 0, 2, 2); err != nil {
		t.Fatalf("DamageSurface: %v", err)
	}
	if err := fx.surfaces.Commit(fx.id); err != nil {
		t.Fatalf("recommit: %v", err)
	}
	graph2 := fx.rebuild(t)
	if err := e.RenderFrame(graph2, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 2: %v", err)
	}

	if r.uploadSHMCalls != 2 {
		t.Errorf("expected a re-upload after damage on the same buffer, got %d uploads", r.uploadSHMCalls)
	}

	if err := fx.surfaces.Commit(fx.id); err != nil {
		t.Fatalf("recommit with no new damage: %v", err)
	}
	graph3 := fx.rebuild(t)
	if err := e.RenderFrame(graph3, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 3: %v", err)
	}
	if r.uploadSHMCalls != 2 {
		t.Errorf("expected no re-upload for a commit with no new damage, got %d uploads", r.uploadSHMCalls)
	}
}

func TestRenderFrameDropsNodeOnUploadFailure(t *testing.T) {
	fx := newFixture(t)
	r := &fakeRenderer{failUpload: true}
	e := New(r, fx.surfaces, nil)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("RenderFrame should recover from upload failure, got error: %v", err)
	}
	if r.renderCalls != 0 {
		t.Errorf("expected render_elements to be skipped when the only node's upload failed, got %d calls", r.renderCalls)
	}
}

func TestRenderFrameSkipsFrameOnRenderFailureWithoutSignalingCallbacks(t *testing.T) {
	fx := newFixture(t)
	if err := fx.surfaces.Frame(fx.id, 42); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if err := fx.surfaces.Commit(fx.id); err != nil {
		t.Fatalf("commit: %v", err)
	}

	r := &fakeRenderer{failRender: true}
	sink := &fakeCallbackSink{}
	e := New(r, fx.surfaces, sink)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("RenderFrame should recover from render failure, got error: %v", err)
	}
	if r.presentCalls != 0 {
		t.Error("submit_and_present should not be invoked after render_elements fails")
	}
	if len(sink.signaled) != 0 {
		t.Error("frame callbacks should not be signaled when the frame is skipped")
	}
}

func TestRenderFrameSkipsCallbacksOnPresentFailure(t *testing.T) {
	fx := newFixture(t)
	if err := fx.surfaces.Frame(fx.id, 7); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if err := fx.surfaces.Commit(fx.id); err != nil {
		t.Fatalf("commit: %v", err)
	}

	r := &fakeRenderer{failPresent: true}
	sink := &fakeCallbackSink{}
	e := New(r, fx.surfaces, sink)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("RenderFrame should recover from present failure, got error: %v", err)
	}
	if len(sink.signaled) != 0 {
		t.Error("frame callbacks should not be signaled when present fails")
	}
}

func TestRenderFrameSignalsCallbacksForDrawnSurfaces(t *testing.T) {
	fx := newFixture(t)
	if err := fx.surfaces.Frame(fx.id, 99); err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if err := fx.surfaces.Commit(fx.id); err != nil {
		t.Fatalf("commit: %v", err)
	}

	r := &fakeRenderer{}
	sink := &fakeCallbackSink{}
	e := New(r, fx.surfaces, sink)

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	if len(sink.signaled) != 1 || sink.signaled[0] != fx.id {
		t.Errorf("expected callback signaled for %v, got %v", fx.id, sink.signaled)
	}
}

func TestRenderFrameEmptySceneSkipsRenderEntirely(t *testing.T) {
	buffers := bufferreg.New(nil)
	surfaces := surface.New(buffers)
	r := &fakeRenderer{}
	e := New(r, surfaces, nil)

	graph := scenegraph.Rebuild(nil, nil, func(ids.SurfaceId) (ids.SurfaceId, bool) { return ids.SurfaceId{}, false },
		geom.MakeRect(0, 0, 800, 600), 0)

	if err := e.RenderFrame(graph, geom.MakeRect(0, 0, 800, 600), 1.0, nil); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}
	if r.renderCalls != 0 {
		t.Error("an empty scene should never invoke render_elements")
	}
}

func TestRenderFrameCompositesCursorAsFinalElement(t *testing.T) {
	fx := newFixture(t)

	cursorBuffers := bufferreg.New(nil)
	cursorSurfaces := surface.New(cursorBuffers)
	cursorClient := ids.NewAllocator[ids.ClientMarker]().Alloc()
	cursorID := cursorSurfaces.Create(cursorClient)
	attachSHM(t, cursorSurfaces, cursorBuffers, cursorID, cursorClient, 8, 8)
	if err := cursorSurfaces.SetGeometry(cursorID, 0, 0, geom.Identity(), 1, 1, surface.Transform0); err != nil {
		t.Fatalf("SetGeometry: %v", err)
	}
	if err := cursorSurfaces.Commit(cursorID); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	r := &fakeRenderer{}
	e := New(r, cursorSurfaces, nil)

	emptyGraph := scenegraph.Rebuild(nil, nil, func(ids.SurfaceId) (ids.SurfaceId, bool) { return ids.SurfaceId{}, false },
		fx.output, 0)

	cursor := &Cursor{Surface: cursorID, X: 100, Y: 150, HotspotX: 2, HotspotY: 2}
	if err := e.RenderFrame(emptyGraph, fx.output, 1.0, cursor); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	if len(r.lastElements) != 1 {
		t.Fatalf("expected exactly one (cursor) element, got %d", len(r.lastElements))
	}
	el := r.lastElements[0]
	wantX, wantY := 100-2, 150-2
	gotX, gotY := el.World.TransformPoint(geom.Pt(0, 0)).X, el.World.TransformPoint(geom.Pt(0, 0)).Y
	if int(gotX) != wantX || int(gotY) != wantY {
		t.Errorf("cursor element world position = (%v,%v), want (%d,%d)", gotX, gotY, wantX, wantY)
	}
}

func TestReapStaleTexturesEvictsAfterMaxAbsentFrames(t *testing.T) {
	fx := newFixture(t)
	r := &fakeRenderer{}
	e := New(r, fx.surfaces, nil)
	e.maxAbsentFrames = 2

	graph := fx.rebuild(t)
	if err := e.RenderFrame(graph, fx.output, 1.0, nil); err != nil {
		t.Fatalf("frame 1: %v", err)
	}
	tex := r.uploaded[0]

	empty := scenegraph.Rebuild(nil, nil, func(ids.SurfaceId) (ids.SurfaceId, bool) { return ids.SurfaceId{}, false },
		fx.output, 0)
	for i := 0; i < 3; i++ {
		if err := e.RenderFrame(empty, fx.output, 1.0, nil); err != nil {
			t.Fatalf("absence frame %d: %v", i, err)
		}
	}

	if !tex.destroyCalled {
		t.Error("expected the cached texture to be destroyed after exceeding maxAbsentFrames")
	}
	if e.textures.Len() != 0 {
		t.Errorf("expected texture cache to be empty after eviction, got %d entries", e.textures.Len())
	}
}

func TestEnforceMemoryBudgetEvictsLeastRecentlyUsed(t *testing.T) {
	buffers := bufferreg.New(nil)
	surfaces := surface.New(buffers)
	client := ids.NewAllocator[ids.ClientMarker]().Alloc()

	id1 := surfaces.Create(client)
	attachSHM(t, surfaces, buffers, id1, client, 4, 4)
	if err := surfaces.SetGeometry(id1, 0, 0, geom.Identity(), 1, 1, surface.Transform0); err != nil {
		t.Fatal(err)
	}
	if err := surfaces.Commit(id1); err != nil {
		t.Fatal(err)
	}

	id2 := surfaces.Create(client)
	attachSHM(t, surfaces, buffers, id2, client, 4, 4)
	if err := surfaces.SetGeometry(id2, 20, 0, geom.Identity(), 1, 1, surface.Transform0); err != nil {
		t.Fatal(err)
	}
	if err := surfaces.Commit(id2); err != nil {
		t.Fatal(err)
	}

	r := &fakeRenderer{}
	e := New(r, surfaces, nil)
	e.SetMemoryBudget(1) // force eviction on every second upload

	attrsFor := func(id ids.SurfaceId) scenegraph.SurfaceAttributes {
		snap, _ := surfaces.Snapshot(id)
		return scenegraph.SurfaceAttributes{
			PosX: snap.Current.PosX, PosY: snap.Current.PosY,
			Size: snap.Current.Size, LocalTransform: snap.Current.LocalTransform,
			Opacity: snap.Current.Opacity, Opaque: snap.Current.Opaque.Region,
		}
	}
	attrs := map[ids.SurfaceId]scenegraph.SurfaceAttributes{id1: attrsFor(id1), id2: attrsFor(id2)}
	graph := scenegraph.Rebuild(attrs, []ids.SurfaceId{id1, id2},
		func(ids.SurfaceId) (ids.SurfaceId, bool) { return ids.SurfaceId{}, false },
		geom.MakeRect(0, 0, 800, 600), 0)

	if err := e.RenderFrame(graph, geom.MakeRect(0, 0, 800, 600), 1.0, nil); err != nil {
		t.Fatalf("RenderFrame: %v", err)
	}

	if e.textures.Len() > 1 {
		t.Errorf("expected the tight memory budget to keep at most 1 cached texture, got %d", e.textures.Len())
	}
}
