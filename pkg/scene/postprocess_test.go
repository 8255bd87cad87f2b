package scene

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
)

func TestParsePostProcess(t *testing.T) {
	tests := []struct {
		name    string
		in      []string
		want    PostProcess
		wantErr bool
	}{
		{"empty", nil, 0, false},
		{"preset", []string{"max_quality"}, ProcessPresetTargetRealtimeMaxQuality, false},
		{"preset plus pretransform", []string{"max_quality", "pre_transform_vertices"},
			ProcessPresetTargetRealtimeMaxQuality | ProcessPreTransformVertices, false},
		{"case and spaces", []string{" Triangulate "}, ProcessTriangulate, false},
		{"unknown", []string{"optimize_graph"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePostProcess(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParsePrimitiveTypes(t *testing.T) {
	got, err := ParsePrimitiveTypes([]string{"point", "lines"})
	if err != nil {
		t.Fatalf("ParsePrimitiveTypes: %v", err)
	}
	if got != PrimitivePoint|PrimitiveLine {
		t.Errorf("got %v", got)
	}
	if _, err := ParsePrimitiveTypes([]string{"quad"}); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestPostProcessString(t *testing.T) {
	if got := (ProcessTriangulate | ProcessFlipUVs).String(); got != "triangulate|flip_uvs" {
		t.Errorf("String() = %q", got)
	}
	if got := PostProcess(0).String(); got != "none" {
		t.Errorf("String() = %q", got)
	}
}

func TestTriangulate(t *testing.T) {
	sc := New("root")
	sc.AddMesh(&Mesh{
		Vertices: make([]mgl32.Vec3, 5),
		Faces: []Face{
			{Indices: []uint32{0, 1, 2, 3}},
			{Indices: []uint32{4}},
			{Indices: []uint32{0, 1, 2, 3, 4}},
		},
	})

	Triangulate(sc)

	want := [][]uint32{{0, 1, 2}, {0, 2, 3}, {4}, {0, 1, 2}, {0, 2, 3}, {0, 3, 4}}
	faces := sc.Meshes[0].Faces
	if len(faces) != len(want) {
		t.Fatalf("face count = %d, want %d", len(faces), len(want))
	}
	for i, f := range faces {
		if len(f.Indices) != len(want[i]) {
			t.Fatalf("face %d = %v, want %v", i, f.Indices, want[i])
		}
		for j := range f.Indices {
			if f.Indices[j] != want[i][j] {
				t.Errorf("face %d = %v, want %v", i, f.Indices, want[i])
				break
			}
		}
	}
}

func TestRemovePrimitives(t *testing.T) {
	sc := New("root")
	sc.AddMaterial(DefaultMaterial())
	lines := sc.AddMesh(&Mesh{
		Name:     "lines",
		Vertices: make([]mgl32.Vec3, 2),
		Faces:    []Face{{Indices: []uint32{0, 1}}},
	})
	mixed := sc.AddMesh(&Mesh{
		Name:     "mixed",
		Vertices: []mgl32.Vec3{{9, 9, 9}, {0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
		Normals:  []mgl32.Vec3{{0, 0, 0}, {0, 0, 1}, {0, 0, 1}, {0, 0, 1}},
		Faces: []Face{
			{Indices: []uint32{0}},
			{Indices: []uint32{1, 2, 3}},
		},
	})
	sc.RootNode.Meshes = []int{lines, mixed}

	RemovePrimitives(sc, PrimitivePoint|PrimitiveLine)

	if len(sc.Meshes) != 1 {
		t.Fatalf("mesh count = %d, want 1", len(sc.Meshes))
	}
	m := sc.Meshes[0]
	if m.Name != "mixed" {
		t.Errorf("kept mesh = %q, want mixed", m.Name)
	}
	if len(m.Vertices) != 3 || len(m.Normals) != 3 {
		t.Fatalf("vertex count = %d/%d, want 3", len(m.Vertices), len(m.Normals))
	}
	if m.Vertices[0] != (mgl32.Vec3{0, 0, 0}) {
		t.Errorf("unreferenced point vertex kept: %v", m.Vertices[0])
	}
	if got := m.Faces[0].Indices; got[0] != 0 || got[1] != 1 || got[2] != 2 {
		t.Errorf("remapped face = %v, want [0 1 2]", got)
	}
	if len(sc.RootNode.Meshes) != 1 || sc.RootNode.Meshes[0] != 0 {
		t.Errorf("root mesh refs = %v, want [0]", sc.RootNode.Meshes)
	}
}

func TestPreTransformVertices(t *testing.T) {
	sc := New("root")
	sc.AddMaterial(DefaultMaterial())
	idx := sc.AddMesh(triangleMesh("shared"))
	sc.Meshes[idx].Normals = []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}

	a := sc.RootNode.AddChild(NewNode("a"))
	a.Transform = mgl32.Translate3D(10, 0, 0)
	a.Meshes = []int{idx}
	b := sc.RootNode.AddChild(NewNode("b"))
	b.Transform = mgl32.Translate3D(0, 0, 5)
	b.Meshes = []int{idx}

	PreTransformVertices(sc)

	if len(sc.Meshes) != 2 {
		t.Fatalf("mesh count = %d, want 2 (shared mesh duplicated)", len(sc.Meshes))
	}
	if got := sc.Meshes[a.Meshes[0]].Vertices[1]; got != (mgl32.Vec3{11, 0, 0}) {
		t.Errorf("node a vertex = %v, want (11,0,0)", got)
	}
	if got := sc.Meshes[b.Meshes[0]].Vertices[2]; got != (mgl32.Vec3{0, 1, 5}) {
		t.Errorf("node b vertex = %v, want (0,1,5)", got)
	}
	if got := sc.Meshes[a.Meshes[0]].Normals[0]; got != (mgl32.Vec3{0, 0, 1}) {
		t.Errorf("translated normal = %v, want (0,0,1)", got)
	}
	if a.Transform != mgl32.Ident4() || b.Transform != mgl32.Ident4() {
		t.Error("node transforms not reset")
	}
	if len(sc.RootNode.Children) != 2 {
		t.Error("hierarchy was not kept")
	}
}

func TestPreTransformVerticesMirrorFlipsWinding(t *testing.T) {
	sc := New("root")
	sc.AddMaterial(DefaultMaterial())
	sc.RootNode.Meshes = []int{sc.AddMesh(triangleMesh("tri"))}
	sc.RootNode.Transform = mgl32.Scale3D(-1, 1, 1)

	PreTransformVertices(sc)

	got := sc.Meshes[0].Faces[0].Indices
	if got[0] != 2 || got[1] != 1 || got[2] != 0 {
		t.Errorf("winding = %v, want [2 1 0]", got)
	}
	if v := sc.Meshes[0].Vertices[1]; v != (mgl32.Vec3{-1, 0, 0}) {
		t.Errorf("mirrored vertex = %v", v)
	}
}

func TestGenSmoothNormals(t *testing.T) {
	sc := New("root")
	sc.AddMesh(triangleMesh("tri"))
	withNormals := triangleMesh("keep")
	withNormals.Normals = []mgl32.Vec3{{1, 0, 0}, {1, 0, 0}, {1, 0, 0}}
	sc.AddMesh(withNormals)

	GenSmoothNormals(sc)

	for i, n := range sc.Meshes[0].Normals {
		if n != (mgl32.Vec3{0, 0, 1}) {
			t.Errorf("normal %d = %v, want (0,0,1)", i, n)
		}
	}
	if sc.Meshes[1].Normals[0] != (mgl32.Vec3{1, 0, 0}) {
		t.Error("existing normals were overwritten")
	}
}

func TestGenSmoothNormalsLargeCoordinates(t *testing.T) {
	// Flat triangle at 3e6 and a tilted one at 5e6; they share no positions.
	sc := New("root")
	sc.AddMesh(&Mesh{
		Name: "terrain",
		Vertices: []mgl32.Vec3{
			{0, 3e6, 0}, {1, 3e6, 0}, {0, 3e6, 1},
			{0, 5e6, 0}, {2, 5e6 + 1, 0}, {0, 5e6, 1},
		},
		Faces: []Face{{Indices: []uint32{0, 1, 2}}, {Indices: []uint32{3, 4, 5}}},
	})

	GenSmoothNormals(sc)

	normals := sc.Meshes[0].Normals
	for i := 0; i < 3; i++ {
		if normals[i] != (mgl32.Vec3{0, -1, 0}) {
			t.Errorf("flat normal %d = %v, want (0,-1,0)", i, normals[i])
		}
	}
	want := mgl32.Vec3{1, -2, 0}.Normalize()
	for i := 3; i < 6; i++ {
		if !normals[i].ApproxEqual(want) {
			t.Errorf("tilted normal %d = %v, want %v", i, normals[i], want)
		}
	}
}

func TestSmoothKeyFloor(t *testing.T) {
	if smoothKey(mgl32.Vec3{-0.0004, 0, 0}) == smoothKey(mgl32.Vec3{0.0004, 0, 0}) {
		t.Error("positions either side of zero share a cell")
	}
	if smoothKey(mgl32.Vec3{0, 3e6, 0}) == smoothKey(mgl32.Vec3{0, 5e6, 0}) {
		t.Error("large coordinates collapse to one cell")
	}
}

func TestCalcTangentSpace(t *testing.T) {
	sc := New("root")
	m := triangleMesh("tri")
	m.Normals = []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	m.TextureCoords = [][]mgl32.Vec2{{{0, 0}, {1, 0}, {0, 1}}}
	sc.AddMesh(m)
	sc.AddMesh(triangleMesh("no uv"))

	CalcTangentSpace(sc)

	if !m.HasTangentsAndBitangents() {
		t.Fatal("tangents not generated")
	}
	for i := range m.Vertices {
		if m.Tangents[i] != (mgl32.Vec3{1, 0, 0}) {
			t.Errorf("tangent %d = %v, want (1,0,0)", i, m.Tangents[i])
		}
		if m.Bitangents[i] != (mgl32.Vec3{0, 1, 0}) {
			t.Errorf("bitangent %d = %v, want (0,1,0)", i, m.Bitangents[i])
		}
	}
	if sc.Meshes[1].HasTangentsAndBitangents() {
		t.Error("mesh without UVs should not get tangents")
	}
}

func TestJoinIdenticalVertices(t *testing.T) {
	sc := New("root")
	sc.AddMesh(&Mesh{
		Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 0}, {0, 1, 0}, {1, 1, 0}},
		Faces: []Face{
			{Indices: []uint32{0, 1, 2}},
			{Indices: []uint32{3, 4, 5}},
		},
	})

	JoinIdenticalVertices(sc)

	m := sc.Meshes[0]
	if len(m.Vertices) != 4 {
		t.Fatalf("vertex count = %d, want 4", len(m.Vertices))
	}
	want := []uint32{0, 1, 2, 0, 2, 3}
	var got []uint32
	for _, f := range m.Faces {
		got = append(got, f.Indices...)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("indices = %v, want %v", got, want)
		}
	}
}

func TestJoinIdenticalVerticesKeepsDistinctUVs(t *testing.T) {
	sc := New("root")
	sc.AddMesh(&Mesh{
		Vertices:      []mgl32.Vec3{{0, 0, 0}, {0, 0, 0}},
		TextureCoords: [][]mgl32.Vec2{{{0, 0}, {1, 1}}},
		Faces:         []Face{{Indices: []uint32{0, 1}}},
	})

	JoinIdenticalVertices(sc)

	if got := len(sc.Meshes[0].Vertices); got != 2 {
		t.Errorf("vertex count = %d, want 2", got)
	}
}

func TestFlipUVs(t *testing.T) {
	sc := New("root")
	sc.AddMesh(&Mesh{
		Vertices:      make([]mgl32.Vec3, 1),
		TextureCoords: [][]mgl32.Vec2{{{0.25, 0.25}}},
	})
	FlipUVs(sc)
	if got := sc.Meshes[0].TextureCoords[0][0]; got != (mgl32.Vec2{0.25, 0.75}) {
		t.Errorf("flipped UV = %v", got)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Scene {
		sc := New("root")
		sc.AddMaterial(DefaultMaterial())
		sc.RootNode.Meshes = []int{sc.AddMesh(triangleMesh("tri"))}
		return sc
	}

	tests := []struct {
		name    string
		mutate  func(sc *Scene)
		wantErr bool
	}{
		{"valid", func(*Scene) {}, false},
		{"no root", func(sc *Scene) { sc.RootNode = nil }, true},
		{"bad node ref", func(sc *Scene) { sc.RootNode.Meshes = []int{3} }, true},
		{"bad material", func(sc *Scene) { sc.Meshes[0].MaterialIndex = 1 }, true},
		{"bad index", func(sc *Scene) { sc.Meshes[0].Faces[0].Indices[2] = 7 }, true},
		{"normal count", func(sc *Scene) { sc.Meshes[0].Normals = make([]mgl32.Vec3, 1) }, true},
		{"half tangents", func(sc *Scene) { sc.Meshes[0].Tangents = make([]mgl32.Vec3, 3) }, true},
		{"uv count", func(sc *Scene) { sc.Meshes[0].TextureCoords = [][]mgl32.Vec2{make([]mgl32.Vec2, 2)} }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := valid()
			tt.mutate(sc)
			err := Validate(sc)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidScene) {
				t.Errorf("error %v does not wrap ErrInvalidScene", err)
			}
		})
	}
}

func TestApplyPostProcessing(t *testing.T) {
	sc := New("root")
	sc.AddMaterial(DefaultMaterial())
	quad := &Mesh{
		Name:     "quad",
		Vertices: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0}},
		Faces:    []Face{{Indices: []uint32{0, 1, 2, 3}}, {Indices: []uint32{0, 2}}},
	}
	child := sc.RootNode.AddChild(NewNode("child"))
	child.Transform = mgl32.Translate3D(0, 0, 1)
	child.Meshes = []int{sc.AddMesh(quad)}

	flags := ProcessPresetTargetRealtimeMaxQuality | ProcessPreTransformVertices
	if err := ApplyPostProcessing(sc, flags, PrimitivePoint|PrimitiveLine); err != nil {
		t.Fatalf("ApplyPostProcessing: %v", err)
	}

	m := sc.Meshes[0]
	if len(m.Faces) != 2 {
		t.Fatalf("face count = %d, want 2 triangles", len(m.Faces))
	}
	if m.PrimitiveTypes() != PrimitiveTriangle {
		t.Errorf("primitive types = %v", m.PrimitiveTypes())
	}
	if !m.HasNormals() {
		t.Error("normals not generated")
	}
	if m.Vertices[0][2] != 1 {
		t.Errorf("transform not baked: %v", m.Vertices[0])
	}
	if sc.Flags&FlagValidated == 0 || sc.Incomplete() {
		t.Errorf("flags = %b", sc.Flags)
	}
}

func TestApplyPostProcessingFlagsIncomplete(t *testing.T) {
	sc := New("root")
	sc.RootNode.Meshes = []int{sc.AddMesh(triangleMesh("tri"))}

	err := ApplyPostProcessing(sc, ProcessValidateDataStructure, 0)
	if !errors.Is(err, ErrInvalidScene) {
		t.Fatalf("err = %v, want ErrInvalidScene", err)
	}
	if !sc.Incomplete() {
		t.Error("FlagIncomplete not set")
	}
	if sc.Diagnostic != err.Error() {
		t.Errorf("Diagnostic = %q, want %q", sc.Diagnostic, err.Error())
	}
}
