package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// PostProcess is a bit set of processing steps applied after import.
type PostProcess uint32

const (
	ProcessCalcTangentSpace PostProcess = 1 << iota
	ProcessJoinIdenticalVertices
	ProcessTriangulate
	ProcessGenSmoothNormals
	ProcessPreTransformVertices
	ProcessValidateDataStructure
	ProcessSortByPType
	ProcessFlipUVs
)

// ProcessPresetTargetRealtimeMaxQuality is the step set used for
// geometry checks: triangulated, indexed, with normals and tangents.
const ProcessPresetTargetRealtimeMaxQuality = ProcessCalcTangentSpace |
	ProcessJoinIdenticalVertices |
	ProcessTriangulate |
	ProcessGenSmoothNormals |
	ProcessValidateDataStructure |
	ProcessSortByPType

var processNames = []struct {
	flag PostProcess
	name string
}{
	{ProcessCalcTangentSpace, "calc_tangent_space"},
	{ProcessJoinIdenticalVertices, "join_identical_vertices"},
	{ProcessTriangulate, "triangulate"},
	{ProcessGenSmoothNormals, "gen_smooth_normals"},
	{ProcessPreTransformVertices, "pre_transform_vertices"},
	{ProcessValidateDataStructure, "validate_data_structure"},
	{ProcessSortByPType, "sort_by_ptype"},
	{ProcessFlipUVs, "flip_uvs"},
}

// ParsePostProcess converts step names (as used in config files) to flags.
// "max_quality" expands to ProcessPresetTargetRealtimeMaxQuality.
func ParsePostProcess(names []string) (PostProcess, error) {
	var p PostProcess
	for _, raw := range names {
		name := strings.ToLower(strings.TrimSpace(raw))
		if name == "max_quality" {
			p |= ProcessPresetTargetRealtimeMaxQuality
			continue
		}
		found := false
		for _, pn := range processNames {
			if pn.name == name {
				p |= pn.flag
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown post-process step %q", raw)
		}
	}
	return p, nil
}

// ParsePrimitiveTypes converts primitive names ("point", "line", ...) to a mask.
func ParsePrimitiveTypes(names []string) (PrimitiveType, error) {
	var p PrimitiveType
	for _, raw := range names {
		switch strings.ToLower(strings.TrimSpace(raw)) {
		case "point", "points":
			p |= PrimitivePoint
		case "line", "lines":
			p |= PrimitiveLine
		case "triangle", "triangles":
			p |= PrimitiveTriangle
		case "polygon", "polygons":
			p |= PrimitivePolygon
		default:
			return 0, fmt.Errorf("unknown primitive type %q", raw)
		}
	}
	return p, nil
}

// String lists the set steps.
func (p PostProcess) String() string {
	var parts []string
	for _, pn := range processNames {
		if p&pn.flag != 0 {
			parts = append(parts, pn.name)
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "|")
}

// ApplyPostProcessing runs the steps in flags on sc in a fixed order.
// Faces whose primitive type is in remove are dropped by ProcessSortByPType.
// A validation failure sets FlagIncomplete, is recorded in sc.Diagnostic
// and is returned.
func ApplyPostProcessing(sc *Scene, flags PostProcess, remove PrimitiveType) error {
	if flags&ProcessTriangulate != 0 {
		Triangulate(sc)
	}
	if flags&ProcessSortByPType != 0 && remove != 0 {
		RemovePrimitives(sc, remove)
	}
	if flags&ProcessPreTransformVertices != 0 {
		PreTransformVertices(sc)
	}
	if flags&ProcessGenSmoothNormals != 0 {
		GenSmoothNormals(sc)
	}
	if flags&ProcessCalcTangentSpace != 0 {
		CalcTangentSpace(sc)
	}
	if flags&ProcessJoinIdenticalVertices != 0 {
		JoinIdenticalVertices(sc)
	}
	if flags&ProcessFlipUVs != 0 {
		FlipUVs(sc)
	}
	if flags&ProcessValidateDataStructure != 0 {
		if err := Validate(sc); err != nil {
			sc.Flags |= FlagIncomplete
			sc.Diagnostic = err.Error()
			return err
		}
		sc.Flags |= FlagValidated
	}
	return nil
}

// Triangulate splits every polygon face into a triangle fan.
func Triangulate(sc *Scene) {
	for _, m := range sc.Meshes {
		if m.PrimitiveTypes()&PrimitivePolygon == 0 {
			continue
		}
		faces := make([]Face, 0, len(m.Faces))
		for _, f := range m.Faces {
			if len(f.Indices) <= 3 {
				faces = append(faces, f)
				continue
			}
			for i := 1; i+1 < len(f.Indices); i++ {
				faces = append(faces, Face{Indices: []uint32{f.Indices[0], f.Indices[i], f.Indices[i+1]}})
			}
		}
		m.Faces = faces
	}
}

// RemovePrimitives drops faces whose primitive type is in mask, compacts the
// vertex arrays to the vertices still referenced, and removes meshes left
// without faces (node references are renumbered).
func RemovePrimitives(sc *Scene, mask PrimitiveType) {
	remap := make([]int, len(sc.Meshes))
	kept := sc.Meshes[:0]
	for i, m := range sc.Meshes {
		if m.PrimitiveTypes()&mask != 0 {
			faces := m.Faces[:0]
			for _, f := range m.Faces {
				if f.PrimitiveType()&mask == 0 {
					faces = append(faces, f)
				}
			}
			m.Faces = faces
			compactVertices(m)
		}
		if len(m.Faces) == 0 {
			remap[i] = -1
			continue
		}
		remap[i] = len(kept)
		kept = append(kept, m)
	}
	for i := len(kept); i < len(sc.Meshes); i++ {
		sc.Meshes[i] = nil
	}
	sc.Meshes = kept

	sc.Walk(func(n *Node, _ mgl32.Mat4) {
		refs := n.Meshes[:0]
		for _, idx := range n.Meshes {
			if idx >= 0 && idx < len(remap) && remap[idx] >= 0 {
				refs = append(refs, remap[idx])
			}
		}
		n.Meshes = refs
	})
}

// compactVertices keeps only referenced vertices, preserving their order.
func compactVertices(m *Mesh) {
	used := make([]bool, len(m.Vertices))
	for _, f := range m.Faces {
		for _, idx := range f.Indices {
			if int(idx) < len(used) {
				used[idx] = true
			}
		}
	}
	newIndex := make([]uint32, len(m.Vertices))
	var keep []int
	for i, u := range used {
		if u {
			newIndex[i] = uint32(len(keep))
			keep = append(keep, i)
		}
	}
	if len(keep) == len(m.Vertices) {
		return
	}
	m.Vertices = pickVec3(m.Vertices, keep)
	m.Normals = pickVec3(m.Normals, keep)
	m.Tangents = pickVec3(m.Tangents, keep)
	m.Bitangents = pickVec3(m.Bitangents, keep)
	for ch := range m.TextureCoords {
		if len(m.TextureCoords[ch]) == len(used) {
			uv := make([]mgl32.Vec2, len(keep))
			for i, k := range keep {
				uv[i] = m.TextureCoords[ch][k]
			}
			m.TextureCoords[ch] = uv
		}
	}
	for fi := range m.Faces {
		for j, idx := range m.Faces[fi].Indices {
			if int(idx) < len(newIndex) {
				m.Faces[fi].Indices[j] = newIndex[idx]
			}
		}
	}
}

func pickVec3(src []mgl32.Vec3, keep []int) []mgl32.Vec3 {
	if src == nil {
		return nil
	}
	out := make([]mgl32.Vec3, len(keep))
	for i, k := range keep {
		if k < len(src) {
			out[i] = src[k]
		}
	}
	return out
}

// PreTransformVertices bakes every node's global transform into the meshes
// it references and resets all node transforms to identity. The hierarchy
// itself is kept. A mesh referenced by several nodes is duplicated so each
// reference gets its own baked copy.
func PreTransformVertices(sc *Scene) {
	original := append([]*Mesh(nil), sc.Meshes...)
	seen := make(map[int]bool)

	sc.Walk(func(n *Node, global mgl32.Mat4) {
		for slot, idx := range n.Meshes {
			if idx < 0 || idx >= len(original) {
				continue
			}
			m := original[idx].Clone()
			bakeTransform(m, global)
			if !seen[idx] {
				seen[idx] = true
				sc.Meshes[idx] = m
				continue
			}
			n.Meshes[slot] = sc.AddMesh(m)
		}
	})
	sc.Walk(func(n *Node, _ mgl32.Mat4) {
		n.Transform = mgl32.Ident4()
	})
}

func bakeTransform(m *Mesh, t mgl32.Mat4) {
	if t == mgl32.Ident4() {
		return
	}
	for i, v := range m.Vertices {
		m.Vertices[i] = t.Mul4x1(v.Vec4(1)).Vec3()
	}
	normalMat := t.Mat3().Inv().Transpose()
	for i, n := range m.Normals {
		m.Normals[i] = normalizeOrZero(normalMat.Mul3x1(n))
	}
	dir := t.Mat3()
	for i, v := range m.Tangents {
		m.Tangents[i] = normalizeOrZero(dir.Mul3x1(v))
	}
	for i, v := range m.Bitangents {
		m.Bitangents[i] = normalizeOrZero(dir.Mul3x1(v))
	}
	// A mirroring transform flips winding.
	if t.Mat3().Det() < 0 {
		for _, f := range m.Faces {
			for a, b := 0, len(f.Indices)-1; a < b; a, b = a+1, b-1 {
				f.Indices[a], f.Indices[b] = f.Indices[b], f.Indices[a]
			}
		}
	}
}

// smoothEpsilon is the position quantization used to share normals.
const smoothEpsilon float32 = 0.001

// GenSmoothNormals computes area-weighted vertex normals for meshes that
// have none. Vertices at the same quantized position share one normal.
func GenSmoothNormals(sc *Scene) {
	for _, m := range sc.Meshes {
		if m.HasNormals() || len(m.Vertices) == 0 || !indicesInRange(m) {
			continue
		}
		normals := make([]mgl32.Vec3, len(m.Vertices))
		for _, f := range m.Faces {
			if len(f.Indices) != 3 {
				continue
			}
			a, b, c := m.Vertices[f.Indices[0]], m.Vertices[f.Indices[1]], m.Vertices[f.Indices[2]]
			fn := b.Sub(a).Cross(c.Sub(a))
			for _, idx := range f.Indices {
				normals[idx] = normals[idx].Add(fn)
			}
		}

		groups := make(map[[3]int64][]int)
		for i, v := range m.Vertices {
			key := smoothKey(v)
			groups[key] = append(groups[key], i)
		}
		for _, idxs := range groups {
			var sum mgl32.Vec3
			for _, i := range idxs {
				sum = sum.Add(normals[i])
			}
			n := normalizeOrZero(sum)
			for _, i := range idxs {
				normals[i] = n
			}
		}
		m.Normals = normals
	}
}

// smoothKey buckets a position into smoothEpsilon cells. Floor keeps the
// cells around zero the same width as the others.
func smoothKey(v mgl32.Vec3) [3]int64 {
	var k [3]int64
	for i := range k {
		k[i] = int64(math.Floor(float64(v[i]) / float64(smoothEpsilon)))
	}
	return k
}

// CalcTangentSpace computes per-vertex tangents and bitangents from UV
// channel 0 for meshes that have normals and UVs but no tangent data.
func CalcTangentSpace(sc *Scene) {
	for _, m := range sc.Meshes {
		if m.HasTangentsAndBitangents() || !m.HasNormals() || !m.HasTextureCoords(0) || !indicesInRange(m) {
			continue
		}
		uv := m.TextureCoords[0]
		tan := make([]mgl32.Vec3, len(m.Vertices))
		bitan := make([]mgl32.Vec3, len(m.Vertices))
		for _, f := range m.Faces {
			if len(f.Indices) != 3 {
				continue
			}
			i0, i1, i2 := f.Indices[0], f.Indices[1], f.Indices[2]
			e1 := m.Vertices[i1].Sub(m.Vertices[i0])
			e2 := m.Vertices[i2].Sub(m.Vertices[i0])
			d1 := uv[i1].Sub(uv[i0])
			d2 := uv[i2].Sub(uv[i0])
			det := d1[0]*d2[1] - d2[0]*d1[1]
			if det == 0 {
				continue
			}
			r := 1 / det
			t := e1.Mul(d2[1]).Sub(e2.Mul(d1[1])).Mul(r)
			b := e2.Mul(d1[0]).Sub(e1.Mul(d2[0])).Mul(r)
			for _, idx := range f.Indices {
				tan[idx] = tan[idx].Add(t)
				bitan[idx] = bitan[idx].Add(b)
			}
		}
		for i, n := range m.Normals {
			t := tan[i].Sub(n.Mul(n.Dot(tan[i])))
			t = normalizeOrZero(t)
			b := normalizeOrZero(n.Cross(t))
			if b.Dot(bitan[i]) < 0 {
				b = b.Mul(-1)
			}
			tan[i] = t
			bitan[i] = b
		}
		m.Tangents = tan
		m.Bitangents = bitan
	}
}

func normalizeOrZero(v mgl32.Vec3) mgl32.Vec3 {
	if v.Len() == 0 {
		return mgl32.Vec3{}
	}
	return v.Normalize()
}

type vertexKey struct {
	pos, normal, tangent, bitangent mgl32.Vec3
	uv                              mgl32.Vec2
}

// JoinIdenticalVertices merges vertices whose attributes are all equal.
// The first occurrence keeps its slot; later duplicates are remapped.
func JoinIdenticalVertices(sc *Scene) {
	for _, m := range sc.Meshes {
		if len(m.Vertices) == 0 || !indicesInRange(m) {
			continue
		}
		at := func(s []mgl32.Vec3, i int) mgl32.Vec3 {
			if i < len(s) {
				return s[i]
			}
			return mgl32.Vec3{}
		}
		index := make(map[vertexKey]uint32, len(m.Vertices))
		remap := make([]uint32, len(m.Vertices))
		var keep []int
		for i := range m.Vertices {
			key := vertexKey{
				pos:       m.Vertices[i],
				normal:    at(m.Normals, i),
				tangent:   at(m.Tangents, i),
				bitangent: at(m.Bitangents, i),
			}
			// Only channel 0 is part of the key; other channels must match too.
			if m.HasTextureCoords(0) {
				key.uv = m.TextureCoords[0][i]
			}
			if j, ok := index[key]; ok && sameExtraUVs(m, keep[j], i) {
				remap[i] = j
				continue
			}
			j := uint32(len(keep))
			index[key] = j
			remap[i] = j
			keep = append(keep, i)
		}
		if len(keep) == len(m.Vertices) {
			continue
		}
		m.Vertices = pickVec3(m.Vertices, keep)
		m.Normals = pickVec3(m.Normals, keep)
		m.Tangents = pickVec3(m.Tangents, keep)
		m.Bitangents = pickVec3(m.Bitangents, keep)
		for ch := range m.TextureCoords {
			uv := make([]mgl32.Vec2, len(keep))
			for i, k := range keep {
				if k < len(m.TextureCoords[ch]) {
					uv[i] = m.TextureCoords[ch][k]
				}
			}
			m.TextureCoords[ch] = uv
		}
		for fi := range m.Faces {
			for j, idx := range m.Faces[fi].Indices {
				m.Faces[fi].Indices[j] = remap[idx]
			}
		}
	}
}

func sameExtraUVs(m *Mesh, a, b int) bool {
	for ch := 1; ch < len(m.TextureCoords); ch++ {
		uv := m.TextureCoords[ch]
		if a < len(uv) && b < len(uv) && uv[a] != uv[b] {
			return false
		}
	}
	return true
}

// FlipUVs replaces v with 1-v on every UV channel.
func FlipUVs(sc *Scene) {
	for _, m := range sc.Meshes {
		for _, ch := range m.TextureCoords {
			for i := range ch {
				ch[i][1] = 1 - ch[i][1]
			}
		}
	}
}
