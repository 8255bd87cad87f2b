package model

import "github.com/Faultbox/modelcheck/pkg/math"

// MergeMeshes returns a model with exactly one mesh holding every vertex of
// m in order. Indices are rebased by the number of vertices in the meshes
// before them. The box is recomputed from the merged vertices; name and
// material are left empty.
func MergeMeshes(m Model) Model {
	merged := Mesh{
		Vertices: make([]Vertex, 0, m.VertexCount()),
		Indices:  make([]uint32, 0, m.IndexCount()),
		AABB:     math.EmptyAABB(),
	}

	var offset uint32
	for _, mesh := range m.Meshes {
		merged.Vertices = append(merged.Vertices, mesh.Vertices...)
		for _, idx := range mesh.Indices {
			merged.Indices = append(merged.Indices, idx+offset)
		}
		offset += uint32(len(mesh.Vertices))
	}

	for _, v := range merged.Vertices {
		merged.AABB.Grow(v.Position)
	}
	return Model{Meshes: []Mesh{merged}}
}
