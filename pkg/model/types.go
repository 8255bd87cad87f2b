// Package model flattens imported scenes into plain mesh lists.
//
// A Model is an ordered list of meshes with their own vertex and index
// buffers, bounding boxes and resolved material descriptions. Models can
// be merged into a single mesh and triangulated for geometric checks.
package model

import (
	"fmt"

	"github.com/Faultbox/modelcheck/pkg/math"
)

// Vertex is one mesh vertex. Attributes missing from the source are zero.
type Vertex struct {
	Position  math.Vec3
	Normal    math.Vec3
	UV        math.Vec2
	Tangent   math.Vec3
	BiTangent math.Vec3
}

// TextureType tags a TextureInfo.
type TextureType int

const (
	DiffuseMap TextureType = iota
	SpecularMap
	NormalMap
	DiffuseColor
)

// String returns the texture type name.
func (t TextureType) String() string {
	switch t {
	case DiffuseMap:
		return "DiffuseMap"
	case SpecularMap:
		return "SpecularMap"
	case NormalMap:
		return "NormalMap"
	case DiffuseColor:
		return "DiffuseColor"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// TextureInfo is a texture reference. Map types carry FilePath;
// DiffuseColor carries an RGBA color with alpha 1.
type TextureInfo struct {
	Type         TextureType
	FilePath     string
	DiffuseColor math.Vec4
}

// MaterialDescription lists texture references in the order diffuse map,
// normal map, specular map, diffuse color. Maps are optional; the diffuse
// color entry is always present and last.
type MaterialDescription struct {
	TextureInfos []TextureInfo
}

// Find returns the first entry of type t.
func (d MaterialDescription) Find(t TextureType) (TextureInfo, bool) {
	for _, ti := range d.TextureInfos {
		if ti.Type == t {
			return ti, true
		}
	}
	return TextureInfo{}, false
}

// DiffuseColor returns the diffuse color entry, or the zero color.
func (d MaterialDescription) DiffuseColor() math.Vec4 {
	ti, _ := d.Find(DiffuseColor)
	return ti.DiffuseColor
}

// Mesh is a flat mesh. Indices form triangles, three per face.
type Mesh struct {
	Name     string
	Vertices []Vertex
	Indices  []uint32
	Material MaterialDescription
	AABB     math.AABB
}

// Model is an ordered list of meshes.
type Model struct {
	Meshes []Mesh
}

// VertexCount returns the total number of vertices.
func (m Model) VertexCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += len(mesh.Vertices)
	}
	return n
}

// IndexCount returns the total number of indices.
func (m Model) IndexCount() int {
	n := 0
	for _, mesh := range m.Meshes {
		n += len(mesh.Indices)
	}
	return n
}
