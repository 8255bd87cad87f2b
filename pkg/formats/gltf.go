package formats

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/modelcheck/pkg/scene"
)

// ErrInvalidGLTF is wrapped by glTF conversion errors.
var ErrInvalidGLTF = errors.New("invalid glTF document")

var identity64 = [16]float64{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}

// ReadGLTFFile opens a .gltf or .glb file, resolving external buffers
// relative to it.
func ReadGLTFFile(path string) (*scene.Scene, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF file: %w", err)
	}
	return GLTFToScene(doc, rootName(path))
}

type gltfConverter struct {
	doc        *gltf.Document
	sc         *scene.Scene
	meshes     map[int][]int // glTF mesh -> scene meshes, one per primitive
	materials  map[int]int   // glTF material -> scene material
	defaultMat int
	visiting   map[int]bool
}

// GLTFToScene converts a decoded glTF document. The scene root is a new
// node named name whose children are the root nodes of the default scene
// (or of scene 0, or every parentless node if the document has no scenes).
// Each primitive becomes its own mesh; a glTF mesh used by several nodes is
// referenced, not copied.
func GLTFToScene(doc *gltf.Document, name string) (*scene.Scene, error) {
	c := &gltfConverter{
		doc:        doc,
		sc:         scene.New(name),
		meshes:     make(map[int][]int),
		materials:  make(map[int]int),
		defaultMat: -1,
		visiting:   make(map[int]bool),
	}

	for _, idx := range c.rootNodes() {
		child, err := c.convertNode(idx)
		if err != nil {
			return nil, err
		}
		if child != nil {
			c.sc.RootNode.AddChild(child)
		}
	}

	if len(c.sc.Materials) == 0 {
		c.sc.AddMaterial(scene.DefaultMaterial())
	}
	return c.sc, nil
}

func (c *gltfConverter) rootNodes() []int {
	if len(c.doc.Scenes) > 0 {
		idx := 0
		if c.doc.Scene != nil && *c.doc.Scene >= 0 && *c.doc.Scene < len(c.doc.Scenes) {
			idx = *c.doc.Scene
		}
		return c.doc.Scenes[idx].Nodes
	}

	isChild := make([]bool, len(c.doc.Nodes))
	for _, n := range c.doc.Nodes {
		for _, ch := range n.Children {
			if ch >= 0 && ch < len(isChild) {
				isChild[ch] = true
			}
		}
	}
	var roots []int
	for i, child := range isChild {
		if !child {
			roots = append(roots, i)
		}
	}
	return roots
}

func (c *gltfConverter) convertNode(idx int) (*scene.Node, error) {
	if idx < 0 || idx >= len(c.doc.Nodes) {
		return nil, fmt.Errorf("%w: node %d of %d", ErrInvalidGLTF, idx, len(c.doc.Nodes))
	}
	if c.visiting[idx] {
		return nil, fmt.Errorf("%w: node %d is its own ancestor", ErrInvalidGLTF, idx)
	}
	c.visiting[idx] = true
	defer delete(c.visiting, idx)

	gn := c.doc.Nodes[idx]
	name := gn.Name
	if name == "" {
		name = fmt.Sprintf("node_%d", idx)
	}
	sn := scene.NewNode(name)
	sn.Transform = gltfNodeTransform(gn)

	if gn.Mesh != nil {
		refs, err := c.convertMesh(*gn.Mesh)
		if err != nil {
			return nil, err
		}
		sn.Meshes = append(sn.Meshes, refs...)
	}

	for _, ch := range gn.Children {
		child, err := c.convertNode(ch)
		if err != nil {
			return nil, err
		}
		sn.AddChild(child)
	}
	return sn, nil
}

// gltfNodeTransform uses the node matrix when set, otherwise T * R * S.
func gltfNodeTransform(n *gltf.Node) mgl32.Mat4 {
	if n.Matrix != [16]float64{} && n.Matrix != identity64 {
		var m mgl32.Mat4
		for i, v := range n.Matrix {
			m[i] = float32(v)
		}
		return m
	}

	t := n.Translation
	m := mgl32.Translate3D(float32(t[0]), float32(t[1]), float32(t[2]))

	r := n.Rotation
	if r != [4]float64{} {
		q := mgl32.Quat{W: float32(r[3]), V: mgl32.Vec3{float32(r[0]), float32(r[1]), float32(r[2])}}
		m = m.Mul4(q.Normalize().Mat4())
	}

	s := n.Scale
	if s == [3]float64{} {
		s = [3]float64{1, 1, 1}
	}
	return m.Mul4(mgl32.Scale3D(float32(s[0]), float32(s[1]), float32(s[2])))
}

func (c *gltfConverter) convertMesh(idx int) ([]int, error) {
	if refs, ok := c.meshes[idx]; ok {
		return refs, nil
	}
	if idx < 0 || idx >= len(c.doc.Meshes) {
		return nil, fmt.Errorf("%w: mesh %d of %d", ErrInvalidGLTF, idx, len(c.doc.Meshes))
	}

	gm := c.doc.Meshes[idx]
	var refs []int
	for pi, prim := range gm.Primitives {
		mesh, err := c.convertPrimitive(prim)
		if err != nil {
			return nil, fmt.Errorf("mesh %d primitive %d: %w", idx, pi, err)
		}
		mesh.Name = gm.Name
		if len(gm.Primitives) > 1 && mesh.Name != "" {
			mesh.Name = fmt.Sprintf("%s_%d", gm.Name, pi)
		}
		refs = append(refs, c.sc.AddMesh(mesh))
	}
	c.meshes[idx] = refs
	return refs, nil
}

func (c *gltfConverter) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(c.doc.Accessors) {
		return nil, fmt.Errorf("%w: accessor %d of %d", ErrInvalidGLTF, idx, len(c.doc.Accessors))
	}
	return c.doc.Accessors[idx], nil
}

func (c *gltfConverter) convertPrimitive(prim *gltf.Primitive) (*scene.Mesh, error) {
	posIdx, ok := prim.Attributes["POSITION"]
	if !ok {
		return nil, fmt.Errorf("%w: primitive has no POSITION", ErrInvalidGLTF)
	}
	acr, err := c.accessor(posIdx)
	if err != nil {
		return nil, err
	}
	positions, err := modeler.ReadPosition(c.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("reading positions: %w", err)
	}

	mesh := &scene.Mesh{Vertices: make([]mgl32.Vec3, len(positions))}
	for i, p := range positions {
		mesh.Vertices[i] = mgl32.Vec3(p)
	}

	if idx, ok := prim.Attributes["NORMAL"]; ok {
		acr, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		normals, err := modeler.ReadNormal(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading normals: %w", err)
		}
		mesh.Normals = make([]mgl32.Vec3, len(normals))
		for i, n := range normals {
			mesh.Normals[i] = mgl32.Vec3(n)
		}
	}

	if idx, ok := prim.Attributes["TEXCOORD_0"]; ok {
		acr, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		uvs, err := modeler.ReadTextureCoord(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading texture coordinates: %w", err)
		}
		ch := make([]mgl32.Vec2, len(uvs))
		for i, uv := range uvs {
			ch[i] = mgl32.Vec2(uv)
		}
		mesh.TextureCoords = [][]mgl32.Vec2{ch}
	}

	if idx, ok := prim.Attributes["TANGENT"]; ok && mesh.HasNormals() {
		acr, err := c.accessor(idx)
		if err != nil {
			return nil, err
		}
		tangents, err := modeler.ReadTangent(c.doc, acr, nil)
		if err != nil {
			return nil, fmt.Errorf("reading tangents: %w", err)
		}
		if len(tangents) == len(mesh.Vertices) {
			mesh.Tangents = make([]mgl32.Vec3, len(tangents))
			mesh.Bitangents = make([]mgl32.Vec3, len(tangents))
			for i, t := range tangents {
				tan := mgl32.Vec3{t[0], t[1], t[2]}
				mesh.Tangents[i] = tan
				mesh.Bitangents[i] = mesh.Normals[i].Cross(tan).Mul(t[3])
			}
		}
	}

	var indices []uint32
	if prim.Indices != nil {
		acr, err := c.accessor(*prim.Indices)
		if err != nil {
			return nil, err
		}
		if indices, err = modeler.ReadIndices(c.doc, acr, nil); err != nil {
			return nil, fmt.Errorf("reading indices: %w", err)
		}
	} else {
		indices = make([]uint32, len(positions))
		for i := range indices {
			indices[i] = uint32(i)
		}
	}
	mesh.Faces = gltfFaces(prim.Mode, indices)

	mat, err := c.materialFor(prim.Material)
	if err != nil {
		return nil, err
	}
	mesh.MaterialIndex = mat
	return mesh, nil
}

// gltfFaces expands an index list according to the primitive mode.
func gltfFaces(mode gltf.PrimitiveMode, idx []uint32) []scene.Face {
	var faces []scene.Face
	add := func(ix ...uint32) {
		faces = append(faces, scene.Face{Indices: ix})
	}
	switch mode {
	case gltf.PrimitivePoints:
		for _, i := range idx {
			add(i)
		}
	case gltf.PrimitiveLines:
		for i := 0; i+1 < len(idx); i += 2 {
			add(idx[i], idx[i+1])
		}
	case gltf.PrimitiveLineStrip, gltf.PrimitiveLineLoop:
		for i := 0; i+1 < len(idx); i++ {
			add(idx[i], idx[i+1])
		}
		if mode == gltf.PrimitiveLineLoop && len(idx) > 2 {
			add(idx[len(idx)-1], idx[0])
		}
	case gltf.PrimitiveTriangleStrip:
		for i := 0; i+2 < len(idx); i++ {
			if i%2 == 0 {
				add(idx[i], idx[i+1], idx[i+2])
			} else {
				add(idx[i+1], idx[i], idx[i+2])
			}
		}
	case gltf.PrimitiveTriangleFan:
		for i := 1; i+1 < len(idx); i++ {
			add(idx[0], idx[i], idx[i+1])
		}
	default:
		for i := 0; i+2 < len(idx); i += 3 {
			add(idx[i], idx[i+1], idx[i+2])
		}
	}
	return faces
}

func (c *gltfConverter) materialFor(ref *int) (int, error) {
	if ref == nil {
		if c.defaultMat < 0 {
			c.defaultMat = c.sc.AddMaterial(scene.DefaultMaterial())
		}
		return c.defaultMat, nil
	}
	if idx, ok := c.materials[*ref]; ok {
		return idx, nil
	}
	if *ref < 0 || *ref >= len(c.doc.Materials) {
		return 0, fmt.Errorf("%w: material %d of %d", ErrInvalidGLTF, *ref, len(c.doc.Materials))
	}

	gm := c.doc.Materials[*ref]
	mat := scene.NewMaterial(gm.Name, mgl32.Vec3{1, 1, 1})
	if pbr := gm.PBRMetallicRoughness; pbr != nil {
		if f := pbr.BaseColorFactor; f != nil {
			mat.DiffuseColor = mgl32.Vec3{float32(f[0]), float32(f[1]), float32(f[2])}
		}
		if pbr.BaseColorTexture != nil {
			if name, ok := c.textureName(pbr.BaseColorTexture.Index); ok {
				mat.AddTexture(scene.TextureDiffuse, name)
			}
		}
	}
	if gm.NormalTexture != nil && gm.NormalTexture.Index != nil {
		if name, ok := c.textureName(*gm.NormalTexture.Index); ok {
			mat.AddTexture(scene.TextureNormals, name)
		}
	}
	if gm.EmissiveTexture != nil {
		if name, ok := c.textureName(gm.EmissiveTexture.Index); ok {
			mat.AddTexture(scene.TextureEmissive, name)
		}
	}

	idx := c.sc.AddMaterial(mat)
	c.materials[*ref] = idx
	return idx, nil
}

// textureName returns the image URI of a texture. Embedded images (buffer
// views or data URIs) are named "*<image index>".
func (c *gltfConverter) textureName(texIdx int) (string, bool) {
	if texIdx < 0 || texIdx >= len(c.doc.Textures) {
		return "", false
	}
	src := c.doc.Textures[texIdx].Source
	if src == nil || *src < 0 || *src >= len(c.doc.Images) {
		return "", false
	}
	img := c.doc.Images[*src]
	if img.URI == "" || strings.HasPrefix(img.URI, "data:") {
		return fmt.Sprintf("*%d", *src), true
	}
	if uri, err := url.PathUnescape(img.URI); err == nil {
		return uri, true
	}
	return img.URI, true
}
