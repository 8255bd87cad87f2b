package formats

import (
	"errors"
	"fmt"

	"github.com/flywave/go-stl"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/modelcheck/pkg/scene"
)

// ErrInvalidSTL wraps every STL read failure.
var ErrInvalidSTL = errors.New("invalid STL")

// ReadSTLFile reads a binary or ASCII STL file into a single-mesh scene.
func ReadSTLFile(path string) (*scene.Scene, error) {
	solid, err := stl.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSTL, err)
	}
	return SolidToScene(solid, rootName(path)), nil
}

// SolidToScene converts a decoded solid. Each facet becomes one triangle
// with its own three vertices; the facet normal is copied to each corner.
// A solid whose facet normals are all zero gets no normals. The mesh is
// named after the solid, or name if the solid has none.
func SolidToScene(solid *stl.Solid, name string) *scene.Scene {
	mesh := &scene.Mesh{
		Name:     solid.Name,
		Vertices: make([]mgl32.Vec3, 0, len(solid.Triangles)*3),
		Normals:  make([]mgl32.Vec3, 0, len(solid.Triangles)*3),
		Faces:    make([]scene.Face, 0, len(solid.Triangles)),
	}
	if mesh.Name == "" {
		mesh.Name = name
	}
	for _, tri := range solid.Triangles {
		n := tri.Normal
		var corners [3]mgl32.Vec3
		for i, v := range tri.Vertices {
			corners[i] = mgl32.Vec3{float32(v[0]), float32(v[1]), float32(v[2])}
		}
		addSTLFacet(mesh, mgl32.Vec3{float32(n[0]), float32(n[1]), float32(n[2])}, corners)
	}
	dropZeroNormals(mesh)

	sc := scene.New(name)
	sc.AddMaterial(scene.DefaultMaterial())
	sc.RootNode.Meshes = []int{sc.AddMesh(mesh)}
	return sc
}

func addSTLFacet(mesh *scene.Mesh, n mgl32.Vec3, corners [3]mgl32.Vec3) {
	base := uint32(len(mesh.Vertices))
	for _, c := range corners {
		mesh.Vertices = append(mesh.Vertices, c)
		mesh.Normals = append(mesh.Normals, n)
	}
	mesh.Faces = append(mesh.Faces, scene.Face{Indices: []uint32{base, base + 1, base + 2}})
}

func dropZeroNormals(mesh *scene.Mesh) {
	for _, n := range mesh.Normals {
		if n != (mgl32.Vec3{}) {
			return
		}
	}
	mesh.Normals = nil
}
