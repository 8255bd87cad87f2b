package scene

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// TextureType identifies the role of a texture slot on a material.
type TextureType int

const (
	TextureDiffuse TextureType = iota + 1
	TextureSpecular
	TextureAmbient
	TextureEmissive
	TextureHeight
	TextureNormals
	TextureOpacity
)

// String returns the slot name.
func (t TextureType) String() string {
	switch t {
	case TextureDiffuse:
		return "diffuse"
	case TextureSpecular:
		return "specular"
	case TextureAmbient:
		return "ambient"
	case TextureEmissive:
		return "emissive"
	case TextureHeight:
		return "height"
	case TextureNormals:
		return "normals"
	case TextureOpacity:
		return "opacity"
	default:
		return fmt.Sprintf("Unknown(%d)", int(t))
	}
}

// Material holds texture file names per slot and a diffuse color.
// Texture names are stored as they appear in the source file.
type Material struct {
	Name         string
	DiffuseColor mgl32.Vec3
	textures     map[TextureType][]string
}

// NewMaterial creates a material with the given diffuse color.
func NewMaterial(name string, diffuse mgl32.Vec3) *Material {
	return &Material{Name: name, DiffuseColor: diffuse}
}

// DefaultMaterial returns the material assigned to meshes that reference none.
func DefaultMaterial() *Material {
	return NewMaterial("DefaultMaterial", mgl32.Vec3{0.6, 0.6, 0.6})
}

// AddTexture appends a texture name to slot t.
func (m *Material) AddTexture(t TextureType, name string) {
	if m.textures == nil {
		m.textures = make(map[TextureType][]string)
	}
	m.textures[t] = append(m.textures[t], name)
}

// TextureCount returns the number of textures in slot t.
func (m *Material) TextureCount(t TextureType) int {
	return len(m.textures[t])
}

// Texture returns the i-th texture name of slot t.
func (m *Material) Texture(t TextureType, i int) (string, bool) {
	names := m.textures[t]
	if i < 0 || i >= len(names) {
		return "", false
	}
	return names[i], true
}
