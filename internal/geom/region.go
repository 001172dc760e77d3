package geom

// Region is an unordered set of rectangles, used for opaque and input
// regions (§3). Per §4.2, set operations are defined but
// not required to produce a normal form: a Region may contain redundant
// or overlapping rectangles after Union.
type Region struct {
	rects []Rect
}

// NewRegion builds a Region from the given rectangles, dropping any that
// are empty.
func NewRegion(rects ...Rect) Region {
	var reg Region
	for _, r := range rects {
		reg.Add(r)
	}
	return reg
}

// Add appends a rectangle to the region if it has positive area.
func (r *Region) Add(rect Rect) {
	if !rect.IsEmpty() {
		r.rects = append(r.rects, rect)
	}
}

// IsEmpty reports whether the region contains no rectangles (the empty
// set, per this design's convention for "no opaque pixels").
func (r Region) IsEmpty() bool {
	return len(r.rects) == 0
}

// Rects returns the region's rectangles. The caller must not mutate the
// returned slice.
func (r Region) Rects() []Rect {
	return r.rects
}

// Contains reports whether the point lies in any rectangle of the region.
func (r Region) Contains(x, y int) bool {
	for _, rect := range r.rects {
		if rect.Contains(x, y) {
			return true
		}
	}
	return false
}

// Bounds returns the smallest rectangle enclosing every rectangle in the
// region.
func (r Region) Bounds() Rect {
	var bounds Rect
	for _, rect := range r.rects {
		bounds = bounds.Union(rect)
	}
	return bounds
}

// Union returns the set union of r and other, by simple concatenation
// (§4.2: normal form is not required).
func (r Region) Union(other Region) Region {
	out := Region{rects: make([]Rect, 0, len(r.rects)+len(other.rects))}
	out.rects = append(out.rects, r.rects...)
	out.rects = append(out.rects, other.rects...)
	return out
}

// Intersect returns a region covering exactly the intersection of r's
// rectangles with clip. R.intersect(R) = R when r == Region{clip}.
func (r Region) Intersect(clip Rect) Region {
	var out Region
	for _, rect := range r.rects {
		out.Add(rect.Intersect(clip))
	}
	return out
}

// Transform returns the region with every rectangle's bounding box
// mapped through m. Regions do not carry rotation-exact geometry; the
// scene graph only needs the transformed bounding box of the opaque
// region (§4.5 step 7: "opaque_world = world(m).transform(...)").
func (r Region) Transform(m Affine) Rect {
	return TransformBounds(r.Bounds(), m)
}
