package geom

import "math"

// Rect is an axis-aligned rectangle, half-open on the max edges, in
// integer pixel units. A Rect with a non-positive W or H is empty, so the
// zero Rect is unambiguously empty.
type Rect struct {
	X, Y, W, H int
}

// MakeRect constructs a Rect, clamping a non-positive width or height to
// zero (an empty rect).
func MakeRect(x, y, w, h int) Rect {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return Rect{X: x, Y: y, W: w, H: h}
}

// IsEmpty reports whether the rectangle has no area.
func (r Rect) IsEmpty() bool {
	return r.W <= 0 || r.H <= 0
}

// MaxX returns the exclusive right edge.
func (r Rect) MaxX() int { return r.X + r.W }

// MaxY returns the exclusive bottom edge.
func (r Rect) MaxY() int { return r.Y + r.H }

// Contains reports whether the point (x,y) lies within the rectangle.
func (r Rect) Contains(x, y int) bool {
	return !r.IsEmpty() && x >= r.X && x < r.MaxX() && y >= r.Y && y < r.MaxY()
}

// Intersect returns the intersection of r and other. R.intersect(R) = R
// for any r (§8 round-trip law).
func (r Rect) Intersect(other Rect) Rect {
	if r.IsEmpty() || other.IsEmpty() {
		return Rect{}
	}
	x0 := max(r.X, other.X)
	y0 := max(r.Y, other.Y)
	x1 := min(r.MaxX(), other.MaxX())
	y1 := min(r.MaxY(), other.MaxY())
	if x1 <= x0 || y1 <= y0 {
		return Rect{}
	}
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// Union returns the smallest rectangle containing both r and other.
// R.union(empty) = R (§8 round-trip law).
func (r Rect) Union(other Rect) Rect {
	if r.IsEmpty() {
		return other
	}
	if other.IsEmpty() {
		return r
	}
	x0 := min(r.X, other.X)
	y0 := min(r.Y, other.Y)
	x1 := max(r.MaxX(), other.MaxX())
	y1 := max(r.MaxY(), other.MaxY())
	return Rect{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
}

// ContainsRect reports whether other lies entirely within r, used by the
// scene graph's occlusion test (§4.5 step 7: "n.clipped_rect is
// fully contained by m.opaque_world").
func (r Rect) ContainsRect(other Rect) bool {
	if other.IsEmpty() {
		return true
	}
	if r.IsEmpty() {
		return false
	}
	return other.X >= r.X && other.Y >= r.Y && other.MaxX() <= r.MaxX() && other.MaxY() <= r.MaxY()
}

// Area returns the rectangle's area in pixels.
func (r Rect) Area() int {
	if r.IsEmpty() {
		return 0
	}
	return r.W * r.H
}

// TransformBounds returns the axis-aligned bounding box of r's four
// corners after applying m. Used to compute a surface's world-space
// clipped rectangle (§4.5 step 3).
func TransformBounds(r Rect, m Affine) Rect {
	if r.IsEmpty() {
		return Rect{}
	}
	corners := [4]Point{
		m.TransformPoint(Pt(float64(r.X), float64(r.Y))),
		m.TransformPoint(Pt(float64(r.MaxX()), float64(r.Y))),
		m.TransformPoint(Pt(float64(r.X), float64(r.MaxY()))),
		m.TransformPoint(Pt(float64(r.MaxX()), float64(r.MaxY()))),
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		minX = math.Min(minX, c.X)
		minY = math.Min(minY, c.Y)
		maxX = math.Max(maxX, c.X)
		maxY = math.Max(maxY, c.Y)
	}
	x0, y0 := int(math.Floor(minX)), int(math.Floor(minY))
	x1, y1 := int(math.Ceil(maxX)), int(math.Ceil(maxY))
	return MakeRect(x0, y0, x1-x0, y1-y0)
}
