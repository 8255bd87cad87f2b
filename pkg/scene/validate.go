package scene

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrInvalidScene is wrapped by every validation failure.
var ErrInvalidScene = errors.New("invalid scene")

// Validate checks structural consistency: a root node exists, node mesh
// references and mesh material indices are in range, every face index
// addresses an existing vertex, and optional attribute arrays match the
// vertex count.
func Validate(sc *Scene) error {
	if sc == nil {
		return fmt.Errorf("%w: nil scene", ErrInvalidScene)
	}
	if sc.RootNode == nil {
		return fmt.Errorf("%w: scene has no root node", ErrInvalidScene)
	}

	var nodeErr error
	sc.Walk(func(n *Node, _ mgl32.Mat4) {
		if nodeErr != nil {
			return
		}
		for _, idx := range n.Meshes {
			if idx < 0 || idx >= len(sc.Meshes) {
				nodeErr = fmt.Errorf("%w: node %q references mesh %d of %d", ErrInvalidScene, n.Name, idx, len(sc.Meshes))
				return
			}
		}
	})
	if nodeErr != nil {
		return nodeErr
	}

	for i, m := range sc.Meshes {
		if m == nil {
			return fmt.Errorf("%w: mesh %d is nil", ErrInvalidScene, i)
		}
		if m.MaterialIndex < 0 || m.MaterialIndex >= len(sc.Materials) {
			return fmt.Errorf("%w: mesh %d (%q) uses material %d of %d", ErrInvalidScene, i, m.Name, m.MaterialIndex, len(sc.Materials))
		}
		if !indicesInRange(m) {
			return fmt.Errorf("%w: mesh %d (%q) has a face index out of range (%d vertices)", ErrInvalidScene, i, m.Name, len(m.Vertices))
		}
		if m.Normals != nil && len(m.Normals) != len(m.Vertices) {
			return fmt.Errorf("%w: mesh %d (%q) has %d normals for %d vertices", ErrInvalidScene, i, m.Name, len(m.Normals), len(m.Vertices))
		}
		if (m.Tangents != nil || m.Bitangents != nil) && !m.HasTangentsAndBitangents() {
			return fmt.Errorf("%w: mesh %d (%q) has incomplete tangent data", ErrInvalidScene, i, m.Name)
		}
		for ch, uv := range m.TextureCoords {
			if uv != nil && len(uv) != len(m.Vertices) {
				return fmt.Errorf("%w: mesh %d (%q) UV channel %d has %d entries for %d vertices", ErrInvalidScene, i, m.Name, ch, len(uv), len(m.Vertices))
			}
		}
	}
	return nil
}

func indicesInRange(m *Mesh) bool {
	n := uint32(len(m.Vertices))
	for _, f := range m.Faces {
		for _, idx := range f.Indices {
			if idx >= n {
				return false
			}
		}
	}
	return true
}
