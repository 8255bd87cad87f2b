package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/modelcheck/pkg/scene"
)

// rsmFixture builds RSM bytes for tests.
type rsmFixture struct {
	major, minor uint8
	alpha        uint8
	textures     []string
	root         string
	nodes        []RSMNode
}

func (f rsmFixture) bytes() []byte {
	var buf bytes.Buffer
	w := func(v any) { _ = binary.Write(&buf, binary.LittleEndian, v) }
	str := func(s string) {
		b := make([]byte, 40)
		copy(b, s)
		buf.Write(b)
	}
	v := RSMVersion{f.major, f.minor}

	buf.WriteString("GRSM")
	buf.WriteByte(f.major)
	buf.WriteByte(f.minor)
	w(int32(0)) // anim length
	w(int32(1)) // shading
	if v.AtLeast(1, 4) {
		buf.WriteByte(f.alpha)
	}
	buf.Write(make([]byte, 16))

	w(int32(len(f.textures)))
	for _, t := range f.textures {
		str(t)
	}
	str(f.root)

	w(int32(len(f.nodes)))
	for _, n := range f.nodes {
		str(n.Name)
		str(n.Parent)
		w(int32(len(n.TextureIDs)))
		w(n.TextureIDs)
		w(n.Matrix)
		w(n.Offset)
		w(n.Position)
		w(n.RotAngle)
		w(n.RotAxis)
		w(n.Scale)
		w(int32(len(n.Vertices)))
		w(n.Vertices)
		w(int32(len(n.TexCoords)))
		for _, tc := range n.TexCoords {
			if v.AtLeast(1, 2) {
				w(tc.Color)
			}
			w(tc.U)
			w(tc.V)
		}
		w(int32(len(n.Faces)))
		for _, face := range n.Faces {
			w(face.VertexIDs)
			w(face.TexCoordIDs)
			w(face.TextureID)
			w(face.Padding)
			w(face.TwoSide)
			if v.AtLeast(1, 2) {
				w(face.SmoothGroup)
			}
		}
		if !v.AtLeast(1, 5) {
			w(int32(0)) // pos keys
		}
		w(int32(len(n.RotKeys)))
		for _, k := range n.RotKeys {
			w(k.Frame)
			w(k.Quaternion)
		}
		if v.AtLeast(1, 5) {
			w(int32(0)) // scale keys
		}
	}
	w(int32(0)) // volume boxes
	return buf.Bytes()
}

func triangleNode(name, parent string, texIDs ...int32) RSMNode {
	return RSMNode{
		Name:       name,
		Parent:     parent,
		TextureIDs: texIDs,
		Scale:      [3]float32{1, 1, 1},
		Vertices:   [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		TexCoords:  []RSMTexCoord{{U: 0, V: 0}, {U: 1, V: 0}, {U: 0, V: 1}},
		Faces: []RSMFace{
			{VertexIDs: [3]uint16{0, 1, 2}, TexCoordIDs: [3]uint16{0, 1, 2}},
		},
	}
}

func TestParseRSM_Header(t *testing.T) {
	valid := rsmFixture{major: 1, minor: 5, alpha: 255}.bytes()
	badMagic := append([]byte("XXXX"), valid[4:]...)

	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid", valid, nil},
		{"invalid magic", badMagic, ErrInvalidRSMMagic},
		{"empty", nil, ErrTruncatedRSMData},
		{"short", []byte("GRS"), ErrTruncatedRSMData},
		{"header only", valid[:10], ErrTruncatedRSMData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRSM(tt.data)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseRSM_VersionSupport(t *testing.T) {
	tests := []struct {
		name    string
		major   uint8
		minor   uint8
		wantErr bool
	}{
		{"v1.1", 1, 1, false},
		{"v1.2", 1, 2, false},
		{"v1.3", 1, 3, false},
		{"v1.4", 1, 4, false},
		{"v1.5", 1, 5, false},
		{"v2.2", 2, 2, false},
		{"v0.1 unsupported", 0, 1, true},
		{"v3.0 unsupported", 3, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := rsmFixture{major: tt.major, minor: tt.minor, nodes: []RSMNode{triangleNode("a", "")}}.bytes()
			_, err := ParseRSM(data)
			if (err != nil) != tt.wantErr {
				t.Errorf("got error=%v, wantErr=%v", err, tt.wantErr)
			}
			if tt.wantErr && !errors.Is(err, ErrUnsupportedRSMVersion) {
				t.Errorf("error = %v, want ErrUnsupportedRSMVersion", err)
			}
		})
	}
}

func TestRSMVersion_AtLeast(t *testing.T) {
	tests := []struct {
		version RSMVersion
		major   uint8
		minor   uint8
		want    bool
	}{
		{RSMVersion{1, 5}, 1, 5, true},
		{RSMVersion{1, 5}, 1, 4, true},
		{RSMVersion{1, 5}, 1, 6, false},
		{RSMVersion{1, 5}, 2, 0, false},
		{RSMVersion{2, 3}, 1, 9, true},
		{RSMVersion{2, 3}, 2, 4, false},
	}

	for _, tt := range tests {
		t.Run(tt.version.String(), func(t *testing.T) {
			if got := tt.version.AtLeast(tt.major, tt.minor); got != tt.want {
				t.Errorf("AtLeast(%d, %d) = %v, want %v", tt.major, tt.minor, got, tt.want)
			}
		})
	}
}

func TestParseRSM_Structure(t *testing.T) {
	f := rsmFixture{
		major: 1, minor: 5, alpha: 128,
		textures: []string{`data\texture\wall.bmp`},
		root:     "root",
		nodes:    []RSMNode{triangleNode("root", "", 0)},
	}
	rsm, err := ParseRSM(f.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}

	if rsm.Textures[0] != "data/texture/wall.bmp" {
		t.Errorf("Textures[0] = %q", rsm.Textures[0])
	}
	if rsm.RootNode != "root" {
		t.Errorf("RootNode = %q, want root", rsm.RootNode)
	}
	if want := float32(128) / 255; math.Abs(float64(rsm.Alpha-want)) > 1e-6 {
		t.Errorf("Alpha = %f, want %f", rsm.Alpha, want)
	}
	if len(rsm.Nodes) != 1 || len(rsm.Nodes[0].Faces) != 1 || len(rsm.Nodes[0].Vertices) != 3 {
		t.Fatalf("unexpected node layout: %+v", rsm.Nodes)
	}
	if rsm.Shading != 1 {
		t.Errorf("Shading = %d, want 1", rsm.Shading)
	}
}

func TestParseRSM_AlphaDefault(t *testing.T) {
	rsm, err := ParseRSM(rsmFixture{major: 1, minor: 3}.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}
	if rsm.Alpha != 1 {
		t.Errorf("Alpha = %f, want 1 before v1.4", rsm.Alpha)
	}
}

func TestParseRSM_TruncatedNode(t *testing.T) {
	data := rsmFixture{major: 1, minor: 4, root: "a", nodes: []RSMNode{triangleNode("a", "")}}.bytes()
	_, err := ParseRSM(data[:len(data)-20])
	if !errors.Is(err, ErrTruncatedRSMData) {
		t.Errorf("error = %v, want ErrTruncatedRSMData", err)
	}
}

func TestRSM_NodeLookup(t *testing.T) {
	rsm := &RSM{
		RootNode: "main",
		Nodes: []RSMNode{
			{Name: "main"},
			{Name: "child1", Parent: "main"},
			{Name: "child2", Parent: "main"},
			{Name: "grandchild", Parent: "child1"},
			{Name: "self", Parent: "self"},
		},
	}

	if root := rsm.GetRootNode(); root == nil || root.Name != "main" {
		t.Fatalf("GetRootNode = %+v", root)
	}
	if rsm.GetNodeByName("missing") != nil {
		t.Error("GetNodeByName returned a node for a missing name")
	}
	if got := len(rsm.GetChildNodes("main")); got != 2 {
		t.Errorf("children of main = %d, want 2", got)
	}
	if got := len(rsm.GetChildNodes("self")); got != 0 {
		t.Errorf("self-parented node lists itself as child")
	}
}

func TestRSMToScene_Hierarchy(t *testing.T) {
	child := triangleNode("child", "root", 1)
	child.Position = [3]float32{0, 0, 5}
	f := rsmFixture{
		major: 1, minor: 5,
		textures: []string{"a.bmp", "b.bmp"},
		root:     "root",
		nodes:    []RSMNode{child, triangleNode("root", "", 0)},
	}
	rsm, err := ParseRSM(f.bytes())
	if err != nil {
		t.Fatalf("ParseRSM failed: %v", err)
	}

	sc := RSMToScene(rsm)
	if sc.RootNode == nil || sc.RootNode.Name != "root" {
		t.Fatalf("root = %+v", sc.RootNode)
	}
	if len(sc.RootNode.Children) != 1 || sc.RootNode.Children[0].Name != "child" {
		t.Fatalf("root children = %+v", sc.RootNode.Children)
	}
	if len(sc.Materials) != 2 {
		t.Fatalf("materials = %d, want 2", len(sc.Materials))
	}
	if name, ok := sc.Materials[1].Texture(scene.TextureDiffuse, 0); !ok || name != "b.bmp" {
		t.Errorf("material 1 diffuse = %q, %v", name, ok)
	}

	c := sc.RootNode.Children[0]
	if len(c.Meshes) != 1 || sc.Meshes[c.Meshes[0]].MaterialIndex != 1 {
		t.Errorf("child mesh material mismatch")
	}
	got := c.GlobalTransform().Mul4x1(mgl32.Vec4{0, 0, 0, 1}).Vec3()
	if !got.ApproxEqual(mgl32.Vec3{0, 0, 5}) {
		t.Errorf("child origin = %v, want (0,0,5)", got)
	}
}

func TestRSMToScene_MissingRoot(t *testing.T) {
	sc := RSMToScene(&RSM{RootNode: "ghost", Nodes: []RSMNode{{Name: "other"}}})
	if sc.RootNode != nil {
		t.Errorf("expected nil root, got %q", sc.RootNode.Name)
	}
}

func TestRSMToScene_SkipsBadFaces(t *testing.T) {
	n := triangleNode("root", "")
	n.Faces = append(n.Faces, RSMFace{VertexIDs: [3]uint16{0, 1, 9}})
	sc := RSMToScene(&RSM{RootNode: "root", Nodes: []RSMNode{n}})

	if len(sc.Meshes) != 1 {
		t.Fatalf("meshes = %d, want 1", len(sc.Meshes))
	}
	if got := len(sc.Meshes[0].Faces); got != 1 {
		t.Errorf("faces = %d, want 1", got)
	}
	if sc.Materials[sc.Meshes[0].MaterialIndex].Name != "DefaultMaterial" {
		t.Errorf("untextured face should use the default material")
	}
}
