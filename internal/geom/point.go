// Package geom provides the rectangle, affine-transform, and region types
// shared by the surface engine, scene graph, and composition engine.
package geom

import "math"

// Point is a 2D point in an unspecified coordinate space.
type Point struct {
	X, Y float64
}

// Pt constructs a Point.
func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

// Add returns p+q.
func (p Point) Add(q Point) Point {
	return Point{X: p.X + q.X, Y: p.Y + q.Y}
}

// Sub returns p-q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Affine is a 2D affine transform in row-major form:
//
//	x' = A*x + B*y + C
//	y' = D*x + E*y + F
type Affine struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Affine {
	return Affine{A: 1, E: 1}
}

// Translate returns a pure translation transform.
func Translate(x, y float64) Affine {
	return Affine{A: 1, E: 1, C: x, F: y}
}

// Scale returns a pure scale transform.
func Scale(sx, sy float64) Affine {
	return Affine{A: sx, E: sy}
}

// Rotate returns a rotation transform (radians). Used for output-transform
// composition (this design's 4 rotations x optional flip).
func Rotate(radians float64) Affine {
	c, s := math.Cos(radians), math.Sin(radians)
	return Affine{A: c, B: -s, D: s, E: c}
}

// FlipHorizontal returns a transform that mirrors around x=0.
func FlipHorizontal() Affine {
	return Affine{A: -1, E: 1}
}

// IsIdentity reports whether the transform is exactly the identity.
func (m Affine) IsIdentity() bool {
	return m == Identity()
}

// Multiply returns m composed with other such that applying the result
// to a point is equivalent to applying other then m (m*other).
func (m Affine) Multiply(other Affine) Affine {
	return Affine{
		A: m.A*other.A + m.B*other.D,
		B: m.A*other.B + m.B*other.E,
		C: m.A*other.C + m.B*other.F + m.C,
		D: m.D*other.A + m.E*other.D,
		E: m.D*other.B + m.E*other.E,
		F: m.D*other.C + m.E*other.F + m.F,
	}
}

// TransformPoint applies the transform to a point.
func (m Affine) TransformPoint(p Point) Point {
	return Point{
		X: m.A*p.X + m.B*p.Y + m.C,
		Y: m.D*p.X + m.E*p.Y + m.F,
	}
}

// Invert returns the inverse transform. Used to map buffer damage back
// into surface-local coordinates (§4.2 commit step 5: "apply
// inverse output_transform"). A singular transform (determinant 0) yields
// the identity; that cannot happen for the rotation/flip/scale
// compositions the surface engine constructs.
func (m Affine) Invert() Affine {
	det := m.A*m.E - m.B*m.D
	if det == 0 {
		return Identity()
	}
	invDet := 1 / det
	a := m.E * invDet
	b := -m.B * invDet
	d := -m.D * invDet
	e := m.A * invDet
	c := -(a*m.C + b*m.F)
	f := -(d*m.C + e*m.F)
	return Affine{A: a, B: b, C: c, D: d, E: e, F: f}
}
