package formats

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/modelcheck/pkg/scene"
)

// RSMToScene converts a parsed RSM into a scene in its static pose.
//
// Each RSM node becomes a scene node whose transform is
// Position * Rotation * Scale; the node's own Offset and 3x3 matrix are
// applied to its vertices, since children do not inherit them. Faces are
// split into one mesh per texture. Every RSM texture becomes a material with
// that texture in the diffuse slot. The scene has no root if the named root
// node does not exist.
func RSMToScene(rsm *RSM) *scene.Scene {
	sc := &scene.Scene{}
	for _, tex := range rsm.Textures {
		m := scene.NewMaterial(tex, mgl32.Vec3{1, 1, 1})
		m.AddTexture(scene.TextureDiffuse, tex)
		sc.AddMaterial(m)
	}
	defaultMat := -1

	root := rsm.GetRootNode()
	if root == nil {
		return sc
	}

	visited := make(map[*RSMNode]bool)
	var build func(n *RSMNode) *scene.Node
	build = func(n *RSMNode) *scene.Node {
		visited[n] = true
		sn := scene.NewNode(n.Name)
		sn.Transform = rsmLocalTransform(n)

		vertexMat := mgl32.Translate3D(n.Offset[0], n.Offset[1], n.Offset[2]).Mul4(rsmMat3(n.Matrix).Mat4())
		for _, part := range splitRSMFaces(n, len(rsm.Textures)) {
			mesh := buildRSMMesh(n, part.faces, vertexMat)
			if part.texture >= 0 {
				mesh.MaterialIndex = part.texture
			} else {
				if defaultMat < 0 {
					defaultMat = sc.AddMaterial(scene.DefaultMaterial())
				}
				mesh.MaterialIndex = defaultMat
			}
			sn.Meshes = append(sn.Meshes, sc.AddMesh(mesh))
		}

		for _, c := range rsm.GetChildNodes(n.Name) {
			if visited[c] {
				continue
			}
			sn.AddChild(build(c))
		}
		return sn
	}
	sc.RootNode = build(root)

	if len(sc.Materials) == 0 {
		sc.AddMaterial(scene.DefaultMaterial())
	}
	return sc
}

// rsmLocalTransform is the part of a node transform inherited by children.
// The first rotation keyframe, if any, replaces the axis-angle rotation.
func rsmLocalTransform(n *RSMNode) mgl32.Mat4 {
	m := mgl32.Translate3D(n.Position[0], n.Position[1], n.Position[2])

	if len(n.RotKeys) > 0 {
		q := n.RotKeys[0].Quaternion
		rot := mgl32.Quat{W: q[3], V: mgl32.Vec3{q[0], q[1], q[2]}}
		if rot.Len() > 0 {
			m = m.Mul4(rot.Normalize().Mat4())
		}
	} else if n.RotAngle != 0 {
		axis := mgl32.Vec3(n.RotAxis)
		if axis.Len() > 1e-6 {
			m = m.Mul4(mgl32.HomogRotate3D(n.RotAngle, axis.Normalize()))
		}
	}

	scale := n.Scale
	if scale == [3]float32{} {
		scale = [3]float32{1, 1, 1}
	}
	return m.Mul4(mgl32.Scale3D(scale[0], scale[1], scale[2]))
}

// rsmMat3 loads the stored 3x3 matrix. The file layout is column-major.
func rsmMat3(v [9]float32) mgl32.Mat3 {
	if v == [9]float32{} {
		return mgl32.Ident3()
	}
	return mgl32.Mat3{
		v[0], v[1], v[2],
		v[3], v[4], v[5],
		v[6], v[7], v[8],
	}
}

type rsmFaceGroup struct {
	texture int // global texture index, -1 when unresolved
	faces   []RSMFace
}

// splitRSMFaces groups faces by global texture in order of first use.
func splitRSMFaces(n *RSMNode, textureCount int) []rsmFaceGroup {
	var groups []rsmFaceGroup
	slot := make(map[int]int)
	for _, f := range n.Faces {
		tex := -1
		if int(f.TextureID) < len(n.TextureIDs) {
			if id := int(n.TextureIDs[f.TextureID]); id >= 0 && id < textureCount {
				tex = id
			}
		}
		i, ok := slot[tex]
		if !ok {
			i = len(groups)
			slot[tex] = i
			groups = append(groups, rsmFaceGroup{texture: tex})
		}
		groups[i].faces = append(groups[i].faces, f)
	}
	return groups
}

// buildRSMMesh de-indexes faces (positions and texcoords are indexed
// separately in RSM). Faces with out-of-range vertex IDs are skipped.
func buildRSMMesh(n *RSMNode, faces []RSMFace, vertexMat mgl32.Mat4) *scene.Mesh {
	mesh := &scene.Mesh{Name: n.Name, TextureCoords: [][]mgl32.Vec2{nil}}
	for _, f := range faces {
		valid := true
		for _, vid := range f.VertexIDs {
			if int(vid) >= len(n.Vertices) {
				valid = false
				break
			}
		}
		if !valid {
			continue
		}

		base := uint32(len(mesh.Vertices))
		for j := 0; j < 3; j++ {
			v := mgl32.Vec3(n.Vertices[f.VertexIDs[j]])
			mesh.Vertices = append(mesh.Vertices, vertexMat.Mul4x1(v.Vec4(1)).Vec3())

			var uv mgl32.Vec2
			if tid := int(f.TexCoordIDs[j]); tid < len(n.TexCoords) {
				uv = mgl32.Vec2{n.TexCoords[tid].U, n.TexCoords[tid].V}
			}
			mesh.TextureCoords[0] = append(mesh.TextureCoords[0], uv)
		}
		mesh.Faces = append(mesh.Faces, scene.Face{Indices: []uint32{base, base + 1, base + 2}})
	}
	if len(n.TexCoords) == 0 {
		mesh.TextureCoords = nil
	}
	return mesh
}
