package model

import (
	"github.com/Faultbox/modelcheck/pkg/math"
	"github.com/Faultbox/modelcheck/pkg/scene"
)

// Flatten converts sc into a Model. Nodes are visited depth-first; all of a
// node's children (in order) contribute their meshes before the node's own
// mesh references. Node transforms are not applied. Mesh references out of
// range are skipped.
func Flatten(sc *scene.Scene, basePath string) Model {
	var out Model
	if sc == nil || sc.RootNode == nil {
		return out
	}

	// Each node is pushed twice: first to expand its children, then to
	// emit its meshes once they are done.
	type frame struct {
		node     *scene.Node
		expanded bool
	}
	stack := []frame{{node: sc.RootNode}}
	for len(stack) > 0 {
		top := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if top.expanded {
			for _, idx := range top.node.Meshes {
				if idx < 0 || idx >= len(sc.Meshes) || sc.Meshes[idx] == nil {
					continue
				}
				out.Meshes = append(out.Meshes, convertMesh(sc, sc.Meshes[idx], basePath))
			}
			continue
		}

		stack = append(stack, frame{node: top.node, expanded: true})
		children := top.node.Children
		for i := len(children) - 1; i >= 0; i-- {
			if children[i] != nil {
				stack = append(stack, frame{node: children[i]})
			}
		}
	}
	return out
}

func convertMesh(sc *scene.Scene, src *scene.Mesh, basePath string) Mesh {
	hasNormals := src.HasNormals()
	hasUV := src.HasTextureCoords(0)
	hasTangents := src.HasTangentsAndBitangents()

	mesh := Mesh{
		Name:     src.Name,
		Vertices: make([]Vertex, len(src.Vertices)),
		AABB:     math.EmptyAABB(),
	}
	for i, p := range src.Vertices {
		v := Vertex{Position: math.V3(p)}
		if hasNormals {
			v.Normal = math.V3(src.Normals[i])
		}
		if hasUV {
			v.UV = math.V2(src.TextureCoords[0][i])
		}
		if hasTangents {
			v.Tangent = math.V3(src.Tangents[i])
			v.BiTangent = math.V3(src.Bitangents[i])
		}
		mesh.Vertices[i] = v
		mesh.AABB.Grow(v.Position)
	}

	mesh.Indices = make([]uint32, 0, src.NumIndices())
	for _, f := range src.Faces {
		mesh.Indices = append(mesh.Indices, f.Indices...)
	}

	var mat *scene.Material
	if src.MaterialIndex >= 0 && src.MaterialIndex < len(sc.Materials) {
		mat = sc.Materials[src.MaterialIndex]
	}
	mesh.Material = ResolveMaterial(mat, basePath)
	return mesh
}
