package math

import "fmt"

// Triangle holds three corner positions.
type Triangle struct {
	A, B, C Vec3
}

// Area returns half the magnitude of the cross product of two edges.
// Collinear or coincident corners give exactly zero.
func (t Triangle) Area() float32 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Length() / 2
}

// IsDegenerate reports whether the triangle has zero area.
func (t Triangle) IsDegenerate() bool {
	return t.Area() == 0
}

// Normal returns the unit face normal using counter-clockwise winding.
func (t Triangle) Normal() Vec3 {
	return t.B.Sub(t.A).Cross(t.C.Sub(t.A)).Normalize()
}

// String formats the triangle corners.
func (t Triangle) String() string {
	return fmt.Sprintf("triangle[%s %s %s]", t.A, t.B, t.C)
}
