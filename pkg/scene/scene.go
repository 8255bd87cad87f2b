// Package scene defines the hierarchical scene produced by the importer:
// a node tree referencing meshes in a flat table, plus a flat material table.
package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Flags describes the state of an imported scene.
type Flags uint32

const (
	// FlagIncomplete marks a scene that could not be fully read or failed validation.
	FlagIncomplete Flags = 1 << iota
	// FlagValidated marks a scene that passed ValidateDataStructure.
	FlagValidated
)

// PrimitiveType is a bit set of face kinds.
type PrimitiveType uint8

const (
	PrimitivePoint    PrimitiveType = 1 << iota // 1 index
	PrimitiveLine                               // 2 indices
	PrimitiveTriangle                           // 3 indices
	PrimitivePolygon                            // more than 3 indices
)

// String returns a human-readable list of the set primitive kinds.
func (p PrimitiveType) String() string {
	if p == 0 {
		return "none"
	}
	names := []struct {
		bit  PrimitiveType
		name string
	}{
		{PrimitivePoint, "point"},
		{PrimitiveLine, "line"},
		{PrimitiveTriangle, "triangle"},
		{PrimitivePolygon, "polygon"},
	}
	s := ""
	for _, n := range names {
		if p&n.bit == 0 {
			continue
		}
		if s != "" {
			s += "|"
		}
		s += n.name
	}
	return s
}

// Face is one primitive: a list of indices into the owning mesh's vertices.
type Face struct {
	Indices []uint32
}

// PrimitiveType classifies the face by index count.
func (f Face) PrimitiveType() PrimitiveType {
	switch len(f.Indices) {
	case 0:
		return 0
	case 1:
		return PrimitivePoint
	case 2:
		return PrimitiveLine
	case 3:
		return PrimitiveTriangle
	default:
		return PrimitivePolygon
	}
}

// Mesh holds per-vertex attributes in parallel slices. Optional attributes
// are nil when absent.
type Mesh struct {
	Name          string
	Vertices      []mgl32.Vec3
	Normals       []mgl32.Vec3
	Tangents      []mgl32.Vec3
	Bitangents    []mgl32.Vec3
	TextureCoords [][]mgl32.Vec2 // per UV channel
	Faces         []Face
	MaterialIndex int
}

// NumVertices returns the vertex count.
func (m *Mesh) NumVertices() int {
	return len(m.Vertices)
}

// HasNormals reports whether every vertex has a normal.
func (m *Mesh) HasNormals() bool {
	return len(m.Vertices) > 0 && len(m.Normals) == len(m.Vertices)
}

// HasTangentsAndBitangents reports whether tangent space data is present.
func (m *Mesh) HasTangentsAndBitangents() bool {
	return len(m.Vertices) > 0 &&
		len(m.Tangents) == len(m.Vertices) &&
		len(m.Bitangents) == len(m.Vertices)
}

// HasTextureCoords reports whether UV channel ch is present.
func (m *Mesh) HasTextureCoords(ch int) bool {
	return ch >= 0 && ch < len(m.TextureCoords) &&
		len(m.Vertices) > 0 && len(m.TextureCoords[ch]) == len(m.Vertices)
}

// PrimitiveTypes returns the union of the kinds of all faces.
func (m *Mesh) PrimitiveTypes() PrimitiveType {
	var p PrimitiveType
	for _, f := range m.Faces {
		p |= f.PrimitiveType()
	}
	return p
}

// NumIndices returns the total index count over all faces.
func (m *Mesh) NumIndices() int {
	n := 0
	for _, f := range m.Faces {
		n += len(f.Indices)
	}
	return n
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Name:          m.Name,
		Vertices:      cloneVec3(m.Vertices),
		Normals:       cloneVec3(m.Normals),
		Tangents:      cloneVec3(m.Tangents),
		Bitangents:    cloneVec3(m.Bitangents),
		MaterialIndex: m.MaterialIndex,
	}
	if m.TextureCoords != nil {
		c.TextureCoords = make([][]mgl32.Vec2, len(m.TextureCoords))
		for i, ch := range m.TextureCoords {
			c.TextureCoords[i] = append([]mgl32.Vec2(nil), ch...)
		}
	}
	if m.Faces != nil {
		c.Faces = make([]Face, len(m.Faces))
		for i, f := range m.Faces {
			c.Faces[i] = Face{Indices: append([]uint32(nil), f.Indices...)}
		}
	}
	return c
}

func cloneVec3(v []mgl32.Vec3) []mgl32.Vec3 {
	if v == nil {
		return nil
	}
	return append([]mgl32.Vec3(nil), v...)
}

// Node is one element of the hierarchy. Meshes holds indices into Scene.Meshes.
type Node struct {
	Name      string
	Transform mgl32.Mat4
	Parent    *Node
	Children  []*Node
	Meshes    []int
}

// NewNode creates a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{Name: name, Transform: mgl32.Ident4()}
}

// AddChild appends c to n's children and sets its parent.
func (n *Node) AddChild(c *Node) *Node {
	c.Parent = n
	n.Children = append(n.Children, c)
	return c
}

// GlobalTransform returns the product of all transforms from the root down to n.
func (n *Node) GlobalTransform() mgl32.Mat4 {
	m := n.Transform
	for p := n.Parent; p != nil; p = p.Parent {
		m = p.Transform.Mul4(m)
	}
	return m
}

// FindNode returns the first node named name in depth-first order, or nil.
func (n *Node) FindNode(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if found := c.FindNode(name); found != nil {
			return found
		}
	}
	return nil
}

// Scene is the importer's output.
type Scene struct {
	Flags     Flags
	RootNode  *Node
	Meshes    []*Mesh
	Materials []*Material

	// Diagnostic says why the scene is incomplete.
	Diagnostic string
}

// New creates an empty scene with a root node named name.
func New(name string) *Scene {
	return &Scene{RootNode: NewNode(name)}
}

// Incomplete reports whether FlagIncomplete is set.
func (s *Scene) Incomplete() bool {
	return s.Flags&FlagIncomplete != 0
}

// AddMesh appends m to the mesh table and returns its index.
func (s *Scene) AddMesh(m *Mesh) int {
	s.Meshes = append(s.Meshes, m)
	return len(s.Meshes) - 1
}

// AddMaterial appends m to the material table and returns its index.
func (s *Scene) AddMaterial(m *Material) int {
	s.Materials = append(s.Materials, m)
	return len(s.Materials) - 1
}

// Walk visits every node in pre-order together with its accumulated transform.
func (s *Scene) Walk(fn func(n *Node, global mgl32.Mat4)) {
	if s.RootNode == nil {
		return
	}
	var visit func(n *Node, parent mgl32.Mat4)
	visit = func(n *Node, parent mgl32.Mat4) {
		global := parent.Mul4(n.Transform)
		fn(n, global)
		for _, c := range n.Children {
			visit(c, global)
		}
	}
	visit(s.RootNode, mgl32.Ident4())
}

// Stats summarizes the scene for logging.
type Stats struct {
	Nodes     int
	Meshes    int
	Materials int
	Vertices  int
	Faces     int
}

// Stats counts nodes, meshes, materials, vertices and faces.
func (s *Scene) Stats() Stats {
	st := Stats{Meshes: len(s.Meshes), Materials: len(s.Materials)}
	s.Walk(func(*Node, mgl32.Mat4) { st.Nodes++ })
	for _, m := range s.Meshes {
		st.Vertices += len(m.Vertices)
		st.Faces += len(m.Faces)
	}
	return st
}

// String implements fmt.Stringer.
func (st Stats) String() string {
	return fmt.Sprintf("%d nodes, %d meshes, %d materials, %d vertices, %d faces",
		st.Nodes, st.Meshes, st.Materials, st.Vertices, st.Faces)
}
