package math

// Vec4 is a 4D vector. Colors are stored as RGBA in X, Y, Z, W.
type Vec4 struct {
	X, Y, Z, W float32
}

// RGBA builds a color vector.
func RGBA(r, g, b, a float32) Vec4 {
	return Vec4{r, g, b, a}
}

// XYZ drops the W component.
func (v Vec4) XYZ() Vec3 {
	return Vec3{v.X, v.Y, v.Z}
}
