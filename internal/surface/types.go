// Package surface implements the surface engine (§4.2-§4.3): the
// double-buffered per-surface state machine, atomic commit, damage
// tracking, and subsurface synchronization.
//
// Grounded on the shape of github.com/gogpu/gg's surface package (a
// central Registry of surface records keyed by id, resolved by value
// rather than aliased pointers), generalized to the commit/subsurface
// semantics a compositor core needs.
package surface

import (
	"github.com/novade/compositor-core/internal/bufferreg"
	"github.com/novade/compositor-core/internal/geom"
	"github.com/novade/compositor-core/internal/ids"
)

// OutputTransform is one of the 8 variants §3 names: 4 rotations
// times an optional horizontal flip.
type OutputTransform int

const (
	Transform0 OutputTransform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// Affine returns the 2x3 transform a surface's output_transform
// contributes to its world transform.
func (t OutputTransform) Affine() geom.Affine {
	rot := geom.Identity()
	switch t {
	case Transform90, TransformFlipped90:
		rot = geom.Rotate(halfPi)
	case Transform180, TransformFlipped180:
		rot = geom.Rotate(halfPi * 2)
	case Transform270, TransformFlipped270:
		rot = geom.Rotate(halfPi * 3)
	}
	switch t {
	case TransformFlipped, TransformFlipped90, TransformFlipped180, TransformFlipped270:
		return rot.Multiply(geom.FlipHorizontal())
	default:
		return rot
	}
}

const halfPi = 1.5707963267948966

// SyncMode is a subsurface's synchronization mode (§3, §4.3).
type SyncMode int

const (
	Synchronized SyncMode = iota
	Desynchronized
)

// RoleKind tags which role a surface currently plays.
type RoleKind int

const (
	RoleNone RoleKind = iota
	RoleToplevel
	RoleSubsurface
	RoleCursor
	RoleDragIcon
)

// Role is the tagged union from design note 9 ("Role polymorphism").
// Only the fields relevant to Kind are meaningful.
type Role struct {
	Kind RoleKind

	// Subsurface fields.
	Parent   ids.SurfaceId
	SyncMode SyncMode

	// Cursor fields.
	HotspotX, HotspotY int
}

// Attributes is one buffered state set (pending/current/cached in
// §3).
type Attributes struct {
	PosX, PosY   int
	Size         geom.Rect // X,Y unused; W,H are the surface-local size
	LocalTransform geom.Affine
	Opacity      float64
	BufferScale  int
	OutputXform  OutputTransform
	BufferOffX   int
	BufferOffY   int

	Buffer *bufferreg.Handle
	BufferSnapshot bufferreg.Record // valid iff Buffer != nil

	Opaque Region
	Input  Region

	FrameCallbacks []uint32
}

// Region wraps geom.Region with the surface-local "empty means X"
// convention this design's open question resolves: opaque empty means no
// occluder contribution; input nil/empty (IsInfinite true) means
// fully receptive.
type Region struct {
	geom.Region
	IsInfinite bool // only meaningful for input regions
}

// InfiniteRegion returns the default input region: receptive everywhere.
func InfiniteRegion() Region {
	return Region{IsInfinite: true}
}

func defaultAttributes() Attributes {
	return Attributes{
		LocalTransform: geom.Identity(),
		Opacity:        1,
		BufferScale:    1,
		Input:          InfiniteRegion(),
	}
}

// State is the surface's lifecycle state (§4.2).
type State int

const (
	StateCreated State = iota
	StatePendingBuffer
	StateCommitted
	StateRendering
	StatePresented
	StateDestroyed
)
