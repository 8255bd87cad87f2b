package math

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec3 is a position or direction.
type Vec3 struct {
	X, Y, Z float32
}

// V3 converts an mgl32 vector.
func V3(v mgl32.Vec3) Vec3 {
	return Vec3{v[0], v[1], v[2]}
}

// Mgl returns v as an mgl32 vector.
func (v Vec3) Mgl() mgl32.Vec3 {
	return mgl32.Vec3{v.X, v.Y, v.Z}
}

func (v Vec3) Add(o Vec3) Vec3 { return V3(v.Mgl().Add(o.Mgl())) }
func (v Vec3) Sub(o Vec3) Vec3 { return V3(v.Mgl().Sub(o.Mgl())) }
func (v Vec3) Scale(s float32) Vec3 { return V3(v.Mgl().Mul(s)) }
func (v Vec3) Cross(o Vec3) Vec3 { return V3(v.Mgl().Cross(o.Mgl())) }
func (v Vec3) Length() float32 { return v.Mgl().Len() }

// Normalize returns a unit vector. The zero vector stays zero instead of
// turning into NaNs.
func (v Vec3) Normalize() Vec3 {
	if v == (Vec3{}) {
		return v
	}
	return V3(v.Mgl().Normalize())
}

// Min is the component-wise minimum.
func (v Vec3) Min(o Vec3) Vec3 {
	return Vec3{min(v.X, o.X), min(v.Y, o.Y), min(v.Z, o.Z)}
}

// Max is the component-wise maximum.
func (v Vec3) Max(o Vec3) Vec3 {
	return Vec3{max(v.X, o.X), max(v.Y, o.Y), max(v.Z, o.Z)}
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}
