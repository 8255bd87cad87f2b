package formats

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/modelcheck/pkg/scene"
)

// OBJ format errors.
var (
	ErrInvalidOBJIndex = errors.New("invalid OBJ index")
	ErrInvalidOBJLine  = errors.New("invalid OBJ statement")
)

// OpenFunc opens a file referenced from inside a model (e.g. an MTL library).
type OpenFunc func(name string) (io.ReadCloser, error)

// objCorner is one v/vt/vn reference, zero-based, -1 when absent.
type objCorner struct {
	v, vt, vn int
}

type objMesh struct {
	mesh     *scene.Mesh
	corners  map[objCorner]uint32
	material string
	hasUV    bool
	hasNorm  bool
}

type objReader struct {
	sc        *scene.Scene
	open      OpenFunc
	positions []mgl32.Vec3
	normals   []mgl32.Vec3
	uvs       []mgl32.Vec2

	library  map[string]*scene.Material
	matIndex map[string]int
	node     *scene.Node
	current  *objMesh
	material string
	lineNo   int
}

// ReadOBJ parses a Wavefront OBJ stream. name becomes the root node name;
// open resolves mtllib references and may be nil.
//
// Each o/g statement starts a child node of the root. Within a node, a new
// mesh is started whenever usemtl changes the material. Faces keep their
// original arity; p and l statements become point and line faces.
func ReadOBJ(r io.Reader, name string, open OpenFunc) (*scene.Scene, error) {
	or := &objReader{
		sc:       scene.New(name),
		open:     open,
		library:  make(map[string]*scene.Material),
		matIndex: make(map[string]int),
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		or.lineNo++
		if err := or.readLine(scanner.Text()); err != nil {
			return nil, fmt.Errorf("line %d: %w", or.lineNo, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading OBJ: %w", err)
	}
	or.finishMesh()

	if len(or.sc.Materials) == 0 {
		or.sc.AddMaterial(scene.DefaultMaterial())
	}
	return or.sc, nil
}

// ReadOBJFile parses an OBJ file; MTL libraries are opened relative to it.
func ReadOBJFile(path string) (*scene.Scene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening OBJ file: %w", err)
	}
	defer f.Close()

	dir := filepath.Dir(path)
	open := func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	}
	return ReadOBJ(f, rootName(path), open)
}

func (or *objReader) readLine(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	args := fields[1:]
	switch fields[0] {
	case "v":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		or.positions = append(or.positions, mgl32.Vec3{v[0], v[1], v[2]})
	case "vn":
		v, err := parseFloats(args, 3)
		if err != nil {
			return err
		}
		or.normals = append(or.normals, mgl32.Vec3{v[0], v[1], v[2]})
	case "vt":
		v, err := parseFloats(args, 1)
		if err != nil {
			return err
		}
		uv := mgl32.Vec2{v[0], 0}
		if len(v) > 1 {
			uv[1] = v[1]
		}
		or.uvs = append(or.uvs, uv)
	case "f", "fo":
		if len(args) < 3 {
			return fmt.Errorf("%w: face with %d vertices", ErrInvalidOBJLine, len(args))
		}
		return or.addFace(args)
	case "l":
		if len(args) < 2 {
			return fmt.Errorf("%w: line with %d vertices", ErrInvalidOBJLine, len(args))
		}
		for i := 0; i+1 < len(args); i++ {
			if err := or.addFace(args[i : i+2]); err != nil {
				return err
			}
		}
	case "p":
		for _, a := range args {
			if err := or.addFace([]string{a}); err != nil {
				return err
			}
		}
	case "o", "g":
		or.finishMesh()
		name := strings.Join(args, " ")
		or.node = or.sc.RootNode.AddChild(scene.NewNode(name))
	case "usemtl":
		name := strings.Join(args, " ")
		if name != or.material {
			or.finishMesh()
			or.material = name
		}
	case "mtllib":
		for _, lib := range args {
			if err := or.loadLibrary(lib); err != nil {
				return err
			}
		}
	}
	return nil
}

func parseFloats(args []string, minCount int) ([]float32, error) {
	if len(args) < minCount {
		return nil, fmt.Errorf("%w: expected %d values, got %d", ErrInvalidOBJLine, minCount, len(args))
	}
	out := make([]float32, 0, len(args))
	for _, a := range args {
		f, err := strconv.ParseFloat(a, 32)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidOBJLine, err)
		}
		out = append(out, float32(f))
	}
	return out, nil
}

// resolveIndex converts a 1-based or negative OBJ index to 0-based.
func resolveIndex(s string, count int) (int, error) {
	if s == "" {
		return -1, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidOBJIndex, s)
	}
	switch {
	case i > 0 && i <= count:
		return i - 1, nil
	case i < 0 && -i <= count:
		return count + i, nil
	default:
		return 0, fmt.Errorf("%w: %d of %d", ErrInvalidOBJIndex, i, count)
	}
}

func (or *objReader) parseCorner(token string) (objCorner, error) {
	parts := strings.Split(token, "/")
	c := objCorner{v: -1, vt: -1, vn: -1}
	var err error
	if c.v, err = resolveIndex(parts[0], len(or.positions)); err != nil {
		return c, err
	}
	if c.v < 0 {
		return c, fmt.Errorf("%w: missing position in %q", ErrInvalidOBJIndex, token)
	}
	if len(parts) > 1 {
		if c.vt, err = resolveIndex(parts[1], len(or.uvs)); err != nil {
			return c, err
		}
	}
	if len(parts) > 2 {
		if c.vn, err = resolveIndex(parts[2], len(or.normals)); err != nil {
			return c, err
		}
	}
	return c, nil
}

func (or *objReader) addFace(tokens []string) error {
	m := or.meshForFace()
	face := scene.Face{Indices: make([]uint32, 0, len(tokens))}
	for _, tok := range tokens {
		c, err := or.parseCorner(tok)
		if err != nil {
			return err
		}
		idx, ok := m.corners[c]
		if !ok {
			idx = uint32(len(m.mesh.Vertices))
			m.corners[c] = idx
			m.mesh.Vertices = append(m.mesh.Vertices, or.positions[c.v])

			var n mgl32.Vec3
			if c.vn >= 0 {
				n = or.normals[c.vn]
				m.hasNorm = true
			}
			m.mesh.Normals = append(m.mesh.Normals, n)

			var uv mgl32.Vec2
			if c.vt >= 0 {
				uv = or.uvs[c.vt]
				m.hasUV = true
			}
			m.mesh.TextureCoords[0] = append(m.mesh.TextureCoords[0], uv)
		}
		face.Indices = append(face.Indices, idx)
	}
	m.mesh.Faces = append(m.mesh.Faces, face)
	return nil
}

func (or *objReader) meshForFace() *objMesh {
	if or.current != nil {
		return or.current
	}
	if or.node == nil {
		or.node = or.sc.RootNode.AddChild(scene.NewNode("defaultobject"))
	}
	or.current = &objMesh{
		mesh: &scene.Mesh{
			Name:          or.node.Name,
			TextureCoords: [][]mgl32.Vec2{nil},
		},
		corners:  make(map[objCorner]uint32),
		material: or.material,
	}
	return or.current
}

// finishMesh attaches the mesh being built to the current node.
func (or *objReader) finishMesh() {
	m := or.current
	or.current = nil
	if m == nil || len(m.mesh.Faces) == 0 {
		return
	}
	if !m.hasNorm {
		m.mesh.Normals = nil
	}
	if !m.hasUV {
		m.mesh.TextureCoords = nil
	}
	m.mesh.MaterialIndex = or.materialFor(m.material)
	or.node.Meshes = append(or.node.Meshes, or.sc.AddMesh(m.mesh))
}

// materialFor returns the scene index of a named material, adding it on
// first use. Unknown or empty names map to a default material.
func (or *objReader) materialFor(name string) int {
	if idx, ok := or.matIndex[name]; ok {
		return idx
	}
	mat, ok := or.library[name]
	if !ok {
		mat = scene.DefaultMaterial()
		if name != "" {
			mat.Name = name
		}
	}
	idx := or.sc.AddMaterial(mat)
	or.matIndex[name] = idx
	return idx
}

func (or *objReader) loadLibrary(name string) error {
	if or.open == nil {
		return nil
	}
	rc, err := or.open(name)
	if err != nil {
		// A missing material library leaves meshes with default materials.
		return nil
	}
	defer rc.Close()

	mats, err := ReadMTL(rc)
	if err != nil {
		return fmt.Errorf("material library %s: %w", name, err)
	}
	for _, m := range mats {
		if _, exists := or.library[m.Name]; !exists {
			or.library[m.Name] = m
		}
	}
	return nil
}
