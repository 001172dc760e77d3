package surface

import (
	"sync"

	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/protoerr"
)

// Record is a surface record (§3). All mutation is confined to
// the surface engine (Registry's methods); other components (scene
// graph, seat engine) hold only SurfaceIds and resolve through Snapshot.
type Record struct {
	ID     ids.SurfaceId
	Client ids.ClientId

	state State
	role  Role

	pending Attributes
	current Attributes
	cached  *Attributes // non-nil only while a synchronized subsurface has a deferred commit

	needsApplyOnParentCommit bool

	damage *DamageTracker

	children []ids.SurfaceId

	toSignal []uint32 // frame callbacks taken from pending on the last commit, awaiting present

	debugName string

	protocolVersion int // 5+ rejects non-zero attach_buffer offsets (§4.2)
}

// Snapshot is the read-only view of a Record exposed to other
// subsystems (scene graph, composition engine, seat engine). It is a
// value copy, never aliased, matching §3's "Ownership summary":
// "subsurface and focus references are weak (ids resolved through the
// registry)".
type Snapshot struct {
	ID      ids.SurfaceId
	Client  ids.ClientId
	State   State
	Role    Role
	Current Attributes
	Mapped  bool // has a non-nil current buffer and, if a subsurface, a mapped parent
	Children []ids.SurfaceId
	DamageAge int
}

// Registry owns every surface Record. Mutation of a Record happens only
// through Registry methods, which take r.mu for the duration of the
// state transition (§5: "Dispatch of a single protocol request
// ... runs to completion without yielding").
type Registry struct {
	mu      sync.Mutex
	alloc   *ids.Allocator[ids.SurfaceMarker]
	records map[ids.SurfaceId]*Record
	buffers *bufferreg.Registry

	// DefaultProtocolVersion is the wl_surface version new surfaces are
	// created at; versions >= 5 reject attach_buffer offsets per
	// §4.2.
	DefaultProtocolVersion int
}

// New creates an empty surface registry bound to buffers for buffer
// acquire/release.
func New(buffers *bufferreg.Registry) *Registry {
	return &Registry{
		alloc:                  ids.NewAllocator[ids.SurfaceMarker](),
		records:                make(map[ids.SurfaceId]*Record),
		buffers:                buffers,
		DefaultProtocolVersion: 5,
	}
}

// Create registers a new surface in state Created, owned by client.
func (r *Registry) Create(client ids.ClientId) ids.SurfaceId {
	r.mu.Lock()
	defer r.mu.Unlock()
	id := r.alloc.Alloc()
	r.records[id] = &Record{
		ID:              id,
		Client:          client,
		state:           StateCreated,
		pending:         defaultAttributes(),
		current:         defaultAttributes(),
		damage:          newDamageTracker(),
		protocolVersion: r.DefaultProtocolVersion,
	}
	return id
}

func (r *Registry) get(id ids.SurfaceId) (*Record, error) {
	rec, ok := r.records[id]
	if !ok {
		return nil, protoerr.New(protoerr.InvalidState, "", "no such surface id")
	}
	if rec.state == StateDestroyed {
		return nil, protoerr.New(protoerr.InvalidState, "wl_surface", "surface already destroyed")
	}
	return rec, nil
}

// Snapshot returns a value copy of the surface's current state, resolving
// mapped-ness by walking the parent chain (§4.3: "a subsurface is
// mapped iff its parent is mapped").
func (r *Registry) Snapshot(id ids.SurfaceId) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.state == StateDestroyed {
		return Snapshot{}, false
	}
	return Snapshot{
		ID:        rec.ID,
		Client:    rec.Client,
		State:     rec.state,
		Role:      rec.role,
		Current:   rec.current,
		Mapped:    r.isMappedLocked(rec),
		Children:  append([]ids.SurfaceId(nil), rec.children...),
		DamageAge: rec.damage.Age(),
	}, true
}

func (r *Registry) isMappedLocked(rec *Record) bool {
	if rec.current.Buffer == nil {
		return false
	}
	if rec.role.Kind != RoleSubsurface {
		return true
	}
	parent, ok := r.records[rec.role.Parent]
	if !ok || parent.state == StateDestroyed {
		return false
	}
	return r.isMappedLocked(parent)
}

// AllMappedSnapshots returns the current Attributes of every mapped
// surface, keyed by id. These are surface.Attributes; scenegraph.Rebuild
// takes scenegraph.SurfaceAttributes, which this method does not build.
func (r *Registry) AllMappedSnapshots() map[ids.SurfaceId]Attributes {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[ids.SurfaceId]Attributes)
	for id, rec := range r.records {
		if rec.state != StateDestroyed && r.isMappedLocked(rec) {
			out[id] = rec.current
		}
	}
	return out
}

// Parent returns a subsurface's parent id. It reports false if id is not a
// subsurface or if its parent has been destroyed (Destroy clears the link).
func (r *Registry) Parent(id ids.SurfaceId) (ids.SurfaceId, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.role.Kind != RoleSubsurface {
		return ids.SurfaceId{}, false
	}
	if _, alive := r.records[rec.role.Parent]; !alive {
		return ids.SurfaceId{}, false
	}
	return rec.role.Parent, true
}

// TakeSignalQueue removes and returns the frame callbacks queued for
// signaling after the most recent commit, clearing the surface's queue
// (§4.2 step 7 / §4.6 step 5).
func (r *Registry) TakeSignalQueue(id ids.SurfaceId) []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil
	}
	out := rec.toSignal
	rec.toSignal = nil
	return out
}

// SetRoleToplevel assigns the Toplevel role. Fails InvalidState if a role
// is already assigned (§7 table).
func (r *Registry) SetRoleToplevel(id ids.SurfaceId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if rec.role.Kind != RoleNone {
		return protoerr.New(protoerr.InvalidState, "wl_surface", "role already assigned")
	}
	rec.role = Role{Kind: RoleToplevel}
	return nil
}

// SetRoleSubsurface assigns the Subsurface role with the given parent
// and initial sync mode (§4.3).
func (r *Registry) SetRoleSubsurface(id, parent ids.SurfaceId, mode SyncMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if rec.role.Kind != RoleNone {
		return protoerr.New(protoerr.InvalidState, "wl_surface", "role already assigned")
	}
	parentRec, err := r.get(parent)
	if err != nil {
		return err
	}
	rec.role = Role{Kind: RoleSubsurface, Parent: parent, SyncMode: mode}
	parentRec.children = append(parentRec.children, id)
	return nil
}

// SetSubsurfaceSyncMode switches an existing subsurface's mode. If
// switching to Desynchronized while a cached commit is pending, the
// cache is promoted immediately (§3 "Subsurface synchronization").
func (r *Registry) SetSubsurfaceSyncMode(id ids.SurfaceId, mode SyncMode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	if rec.role.Kind != RoleSubsurface {
		return protoerr.New(protoerr.InvalidState, "wl_subsurface", "not a subsurface")
	}
	rec.role.SyncMode = mode
	if mode == Desynchronized && rec.cached != nil {
		r.promoteLocked(rec)
	}
	return nil
}

// SetRoleCursor assigns the Cursor role with a hotspot (§3).
func (r *Registry) SetRoleCursor(id ids.SurfaceId, hotspotX, hotspotY int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	rec.role = Role{Kind: RoleCursor, HotspotX: hotspotX, HotspotY: hotspotY}
	return nil
}

// SetDebugName stores a diagnostic name on the surface record. No code in
// this module reads it back or logs it.
func (r *Registry) SetDebugName(id ids.SurfaceId, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[id]; ok {
		rec.debugName = name
	}
}

// ReorderChild moves child to the position immediately above or below
// sibling in the parent's child list (§4.3: "insertion order +
// explicit reorder requests").
func (r *Registry) ReorderChild(parent, child, sibling ids.SurfaceId, above bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	parentRec, err := r.get(parent)
	if err != nil {
		return err
	}
	list := parentRec.children
	idx := indexOf(list, child)
	if idx < 0 {
		return protoerr.New(protoerr.InvalidState, "wl_subsurface", "not a child of this parent")
	}
	list = append(list[:idx], list[idx+1:]...)
	sibIdx := indexOf(list, sibling)
	if sibIdx < 0 {
		parentRec.children = append(list, child)
		return nil
	}
	insertAt := sibIdx
	if above {
		insertAt++
	}
	out := make([]ids.SurfaceId, 0, len(list)+1)
	out = append(out, list[:insertAt]...)
	out = append(out, child)
	out = append(out, list[insertAt:]...)
	parentRec.children = out
	return nil
}

func indexOf(list []ids.SurfaceId, id ids.SurfaceId) int {
	for i, v := range list {
		if v == id {
			return i
		}
	}
	return -1
}

// Destroy implements §4.2's destroy(): releases pending, current
// and cached buffers, detaches from parent and registry, clears
// children's parent link, and transitions to Destroyed.
func (r *Registry) Destroy(id ids.SurfaceId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.state == StateDestroyed {
		return nil
	}

	r.releaseAttrBuffer(&rec.pending)
	r.releaseAttrBuffer(&rec.current)
	if rec.cached != nil {
		r.releaseAttrBuffer(rec.cached)
		rec.cached = nil
	}

	if rec.role.Kind == RoleSubsurface {
		if parentRec, ok := r.records[rec.role.Parent]; ok {
			parentRec.children = removeID(parentRec.children, id)
		}
	}
	for _, childID := range rec.children {
		if child, ok := r.records[childID]; ok && child.role.Kind == RoleSubsurface {
			child.role.Parent = ids.SurfaceId{}
		}
	}

	rec.state = StateDestroyed
	delete(r.records, id)
	return nil
}

func removeID(list []ids.SurfaceId, id ids.SurfaceId) []ids.SurfaceId {
	out := list[:0:0]
	for _, v := range list {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func (r *Registry) releaseAttrBuffer(a *Attributes) {
	if a.Buffer != nil {
		r.buffers.Release(a.Buffer)
		a.Buffer = nil
	}
}
