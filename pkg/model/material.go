package model

import (
	"path/filepath"

	"github.com/Faultbox/modelcheck/pkg/math"
	"github.com/Faultbox/modelcheck/pkg/scene"
)

// resolvedMaps is the order map entries are appended in.
var resolvedMaps = []struct {
	kind scene.TextureType
	typ  TextureType
}{
	{scene.TextureDiffuse, DiffuseMap},
	{scene.TextureNormals, NormalMap},
	{scene.TextureSpecular, SpecularMap},
}

// ResolveMaterial builds the material description of mat. Only the first
// texture of each kind is kept, joined to the directory of basePath unless
// it is already absolute. A nil material yields only a black diffuse color.
func ResolveMaterial(mat *scene.Material, basePath string) MaterialDescription {
	if mat == nil {
		return MaterialDescription{TextureInfos: []TextureInfo{
			{Type: DiffuseColor, DiffuseColor: math.RGBA(0, 0, 0, 1)},
		}}
	}

	dir := filepath.Dir(basePath)
	var desc MaterialDescription
	for _, m := range resolvedMaps {
		if mat.TextureCount(m.kind) == 0 {
			continue
		}
		name, _ := mat.Texture(m.kind, 0)
		path := filepath.FromSlash(name)
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		desc.TextureInfos = append(desc.TextureInfos, TextureInfo{Type: m.typ, FilePath: path})
	}

	c := mat.DiffuseColor
	desc.TextureInfos = append(desc.TextureInfos, TextureInfo{
		Type:         DiffuseColor,
		DiffuseColor: math.RGBA(c[0], c[1], c[2], 1),
	})
	return desc
}
