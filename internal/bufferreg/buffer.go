// Package bufferreg implements the buffer registry (§4.1): it
// assigns ids to client-supplied buffers and reference-counts their
// lifetime across surfaces and the registry itself.
//
// Grounded on the registry/identity-manager split in
// github.com/gogpu/wgpu's core package, simplified from its
// index+epoch recycling scheme to the non-reused allocation ids requires
// (internal/ids).
package bufferreg

import (
	"sync"

	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/protoerr"
)

// Kind distinguishes a buffer's provenance.
type Kind int

const (
	SHM Kind = iota
	DMABUF
)

func (k Kind) String() string {
	if k == DMABUF {
		return "dmabuf"
	}
	return "shm"
}

// Format enumerates the pixel/plane formats §3 names.
type Format int

const (
	ARGB8888 Format = iota
	XRGB8888
	ABGR8888
	XBGR8888
	// R8 is a single-channel 8bpp plane format used for planar YUV
	// DMA-BUF imports (§3, §8 scenario 7).
	R8
)

// BytesPerPixel returns the number of bytes each pixel occupies for
// format, used by register_buffer's stride validation.
func BytesPerPixel(f Format) int {
	switch f {
	case R8:
		return 1
	default:
		return 4
	}
}

// Plane describes one plane of a multi-planar DMA-BUF buffer
// (§3: "up to four plane descriptors").
type Plane struct {
	Fd       uintptr
	Offset   uint32
	Stride   uint32
	Format   Format
	Modifier uint64
}

// Record is a buffer record (§3). Fields are only mutated by the
// registry under Registry.mu; callers observe Record via value snapshots
// returned from Registry methods.
type Record struct {
	ID       ids.BufferId
	Kind     Kind
	Width    int
	Height   int
	Stride   int
	Format   Format
	Client   ids.ClientId // zero if unowned
	hasClient bool
	Planes   []Plane // only populated for Kind == DMABUF
	Data     []byte  // raw pixel bytes, only populated for Kind == SHM

	refcount int
}

// HasClient reports whether the buffer has an owning client.
func (r Record) HasClient() bool { return r.hasClient }

// SHMPayload is the supplemental data a register_buffer caller provides
// for an SHM buffer: raw pixel bytes backing the record, owned by the
// client's memory pool and not copied by the registry.
type SHMPayload struct {
	Data []byte
}

// Handle is a shared, reference-counted pointer to a Record. Surfaces
// store Handles, never raw BufferIds, so that release() always targets
// the right record even if ids wrap (this design's "never reused" invariant
// makes that wraparound impossible in practice, but the indirection also
// lets commit() and destroy() treat an absent handle uniformly as nil).
type Handle struct {
	reg *Registry
	id  ids.BufferId
}

// ID returns the underlying BufferId.
func (h *Handle) ID() ids.BufferId { return h.id }

// Registry owns every buffer Record for a compositor process.
type Registry struct {
	mu      sync.Mutex
	alloc   *ids.Allocator[ids.BufferMarker]
	records map[ids.BufferId]*Record
	onFree  func(client ids.ClientId, id ids.BufferId)
}

// New creates an empty buffer registry. onFree, if non-nil, is invoked
// (outside the registry's lock) when a buffer's refcount reaches zero and
// it has an owning client, notifying that client its buffer may be
// reused (§4.1).
func New(onFree func(client ids.ClientId, id ids.BufferId)) *Registry {
	return &Registry{
		alloc:   ids.NewAllocator[ids.BufferMarker](),
		records: make(map[ids.BufferId]*Record),
		onFree:  onFree,
	}
}

// RegisterSHM creates an SHM buffer record with refcount=1, owned by the
// registry. Fails InvalidBufferSize per §4.1's register_buffer
// contract.
func (r *Registry) RegisterSHM(width, height, stride int, format Format, payload SHMPayload, client ids.ClientId, hasClient bool) (*Handle, error) {
	if width <= 0 || height <= 0 {
		return nil, protoerr.New(protoerr.InvalidBufferSize, "wl_shm_pool", "width and height must be positive")
	}
	if stride < width*BytesPerPixel(format) {
		return nil, protoerr.New(protoerr.InvalidBufferSize, "wl_shm_pool", "stride too small for width and format")
	}
	if len(payload.Data) < stride*height {
		return nil, protoerr.New(protoerr.InvalidBufferSize, "wl_shm_pool", "backing pool too small for stride*height")
	}
	return r.register(&Record{
		Kind:      SHM,
		Width:     width,
		Height:    height,
		Stride:    stride,
		Format:    format,
		Client:    client,
		hasClient: hasClient,
		Data:      payload.Data,
	})
}

// RegisterDMABUF creates a DMA-BUF buffer record from up to four plane
// descriptors, with an overall logical size (§3, §4.1).
func (r *Registry) RegisterDMABUF(width, height int, planes []Plane, client ids.ClientId, hasClient bool) (*Handle, error) {
	if width <= 0 || height <= 0 {
		return nil, protoerr.New(protoerr.InvalidBufferSize, "zwp_linux_buffer_params_v1", "width and height must be positive")
	}
	if len(planes) == 0 || len(planes) > 4 {
		return nil, protoerr.New(protoerr.InvalidBufferSize, "zwp_linux_buffer_params_v1", "a dmabuf buffer needs 1-4 planes")
	}
	format := planes[0].Format
	stride := int(planes[0].Stride)
	if stride < width*BytesPerPixel(format) {
		return nil, protoerr.New(protoerr.InvalidBufferSize, "zwp_linux_buffer_params_v1", "plane 0 stride too small for width and format")
	}
	planesCopy := make([]Plane, len(planes))
	copy(planesCopy, planes)
	return r.register(&Record{
		Kind:      DMABUF,
		Width:     width,
		Height:    height,
		Stride:    stride,
		Format:    format,
		Client:    client,
		hasClient: hasClient,
		Planes:    planesCopy,
	})
}

func (r *Registry) register(rec *Record) (*Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec.ID = r.alloc.Alloc()
	rec.refcount = 1
	r.records[rec.ID] = rec
	return &Handle{reg: r, id: rec.ID}, nil
}

// Lookup returns a snapshot of the record for id, or BufferNotFound.
func (r *Registry) Lookup(id ids.BufferId) (Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return Record{}, protoerr.New(protoerr.BufferNotFound, "", "no such buffer id")
	}
	return *rec, nil
}

// Acquire increments h's refcount. Safe for concurrent use across
// goroutines holding distinct Handles to the same buffer.
func (r *Registry) Acquire(h *Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec, ok := r.records[h.id]; ok {
		rec.refcount++
	}
}

// Release decrements h's refcount. At zero the record is removed from the
// registry and, if it has an owning client, onFree is invoked so the
// client may reuse the underlying storage.
func (r *Registry) Release(h *Handle) {
	if h == nil {
		return
	}
	r.mu.Lock()
	rec, ok := r.records[h.id]
	if !ok {
		r.mu.Unlock()
		return
	}
	rec.refcount--
	freed := rec.refcount <= 0
	if freed {
		delete(r.records, h.id)
	}
	client, hasClient := rec.Client, rec.hasClient
	id := rec.ID
	r.mu.Unlock()

	if freed && hasClient && r.onFree != nil {
		r.onFree(client, id)
	}
}

// Refcount returns the current refcount of id, for tests exercising
// §8's quantified invariant
// "refcount(b) = 1 (registry) + |{surfaces with b in current|pending|cached}|".
func (r *Registry) Refcount(id ids.BufferId) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return 0, false
	}
	return rec.refcount, true
}
