// Package math provides the vector, bounding box and triangle types used by
// the model pipeline. Scene-side code works in mgl32; these plain value
// types are what flattened meshes expose.
package math

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Vec2 is a texture coordinate.
type Vec2 struct {
	X, Y float32
}

// V2 converts an mgl32 vector.
func V2(v mgl32.Vec2) Vec2 {
	return Vec2{v[0], v[1]}
}

func (v Vec2) String() string {
	return fmt.Sprintf("(%g, %g)", v.X, v.Y)
}
