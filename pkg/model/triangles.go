package model

import "github.com/Faultbox/modelcheck/pkg/math"

// CreateTrianglesFromMesh reads m.Indices three at a time. Trailing indices
// that do not form a full triangle are ignored.
func CreateTrianglesFromMesh(m Mesh) []math.Triangle {
	n := len(m.Indices) / 3
	tris := make([]math.Triangle, n)
	for i := range tris {
		tris[i] = math.Triangle{
			A: m.Vertices[m.Indices[3*i]].Position,
			B: m.Vertices[m.Indices[3*i+1]].Position,
			C: m.Vertices[m.Indices[3*i+2]].Position,
		}
	}
	return tris
}

// DegenerateTriangles returns the positions in tris of zero-area triangles.
func DegenerateTriangles(tris []math.Triangle) []int {
	var out []int
	for i, t := range tris {
		if t.IsDegenerate() {
			out = append(out, i)
		}
	}
	return out
}
