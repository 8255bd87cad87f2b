// Package formats reads 3D model files into hierarchical scenes.
//
// Supported: Wavefront OBJ with MTL materials, STL (ASCII and binary),
// glTF 2.0 (JSON and GLB) and RSM. Readers do not post-process: polygons
// are left untriangulated and node transforms are not applied.
package formats

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format identifies a model file format.
type Format int

const (
	FormatUnknown Format = iota
	FormatOBJ
	FormatSTL
	FormatGLTF
	FormatRSM
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatOBJ:
		return "obj"
	case FormatSTL:
		return "stl"
	case FormatGLTF:
		return "gltf"
	case FormatRSM:
		return "rsm"
	default:
		return "unknown"
	}
}

// DetectFormat picks a format from the file extension, falling back to the
// leading bytes of the file when the extension is unknown.
func DetectFormat(path string, head []byte) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".obj":
		return FormatOBJ
	case ".stl":
		return FormatSTL
	case ".gltf", ".glb":
		return FormatGLTF
	case ".rsm", ".rsm2":
		return FormatRSM
	}

	switch {
	case bytes.HasPrefix(head, []byte(rsmMagic)):
		return FormatRSM
	case bytes.HasPrefix(head, []byte("glTF")):
		return FormatGLTF
	case bytes.HasPrefix(bytes.TrimSpace(head), []byte("solid")):
		return FormatSTL
	case looksLikeOBJ(head):
		return FormatOBJ
	}
	return FormatUnknown
}

func looksLikeOBJ(head []byte) bool {
	for _, line := range strings.Split(string(head), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		return strings.HasPrefix(line, "v ") || strings.HasPrefix(line, "o ") ||
			strings.HasPrefix(line, "g ") || strings.HasPrefix(line, "mtllib ")
	}
	return false
}

// rootName derives the root node name from a file path.
func rootName(path string) string {
	return strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
}
