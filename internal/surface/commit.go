package surface

import (
	"github.com/novade/compositor-core/internal/ids"
	"github.com/novade/compositor-core/internal/protoerr"
)

// Commit implements §4.2's commit() algorithm.
func (r *Registry) Commit(id ids.SurfaceId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, err := r.get(id)
	if err != nil {
		return err
	}
	return r.commitLocked(rec)
}

func (r *Registry) commitLocked(rec *Record) error {
	// Step 1: validate pending buffer geometry.
	if rec.pending.Buffer != nil {
		if !ValidateBufferGeometry(rec.pending.BufferSnapshot, rec.pending.BufferScale) {
			return protoerr.New(protoerr.InvalidBufferSize, "wl_surface", "buffer size not divisible by buffer_scale")
		}
	}

	// Step 2: synchronized subsurfaces defer to cache.
	if rec.role.Kind == RoleSubsurface && rec.role.SyncMode == Synchronized {
		cached := rec.pending
		rec.cached = &cached
		rec.pending = carryOverPending(rec.pending)
		rec.needsApplyOnParentCommit = true
		rec.state = StateCommitted
		return nil
	}

	// Step 3: apply pending -> current.
	r.promoteLocked(rec)

	// Step 4: recursively apply synchronized children awaiting promotion.
	for _, childID := range rec.children {
		if child, ok := r.records[childID]; ok {
			r.applyChildCacheLocked(child)
		}
	}

	rec.state = StateCommitted
	return nil
}

// applyChildCacheLocked promotes a synchronized child's cached state on
// its parent's commit (§4.2 step 4), recursing into the child's
// own synchronized children afterward so a deep chain of synchronized
// subsurfaces promotes in one parent commit.
func (r *Registry) applyChildCacheLocked(child *Record) {
	if child.role.Kind == RoleSubsurface && child.role.SyncMode == Synchronized && child.needsApplyOnParentCommit {
		r.promoteLocked(child)
		child.needsApplyOnParentCommit = false
		for _, grandchildID := range child.children {
			if grandchild, ok := r.records[grandchildID]; ok {
				r.applyChildCacheLocked(grandchild)
			}
		}
	}
}

// promoteLocked applies a record's cached-or-pending attributes into
// current: releases the old current buffer, promotes the new one,
// copies attributes, recomputes damage, and takes the frame-callback
// queue (§4.2 steps 3, 5, 6, 7).
func (r *Registry) promoteLocked(rec *Record) {
	src := rec.pending
	if rec.cached != nil {
		src = *rec.cached
		rec.cached = nil
	}

	newContentCommitted := src.Buffer != rec.current.Buffer

	if newContentCommitted {
		r.releaseAttrBuffer(&rec.current)
	}
	rec.current = src

	inverse := rec.current.OutputXform.Affine().Invert()
	bounds := rec.current.Size
	scale := rec.current.BufferScale
	if scale <= 0 {
		scale = 1
	}
	rec.damage.applyCommit(scale, inverse, bounds, newContentCommitted)

	rec.toSignal = append(rec.toSignal, src.FrameCallbacks...)

	rec.pending = carryOverPending(rec.pending)
}

// carryOverPending resets the per-commit-only fields (damage lists live
// in the DamageTracker, callbacks are one-shot) while preserving
// sticky attributes (position, transform, regions, scale) that a client
// does not have to resend every commit.
func carryOverPending(prev Attributes) Attributes {
	next := prev
	next.FrameCallbacks = nil
	return next
}
