package formats

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/Faultbox/modelcheck/pkg/scene"
)

// mtlTextureSlots maps MTL map statements to texture slots.
var mtlTextureSlots = map[string]scene.TextureType{
	"map_kd":   scene.TextureDiffuse,
	"map_ks":   scene.TextureSpecular,
	"map_ka":   scene.TextureAmbient,
	"map_ke":   scene.TextureEmissive,
	"map_d":    scene.TextureOpacity,
	"map_bump": scene.TextureHeight,
	"bump":     scene.TextureHeight,
	"map_kn":   scene.TextureNormals,
	"norm":     scene.TextureNormals,
}

// ReadMTL parses a Wavefront material library, returning materials in
// declaration order. Texture names are kept as written (relative paths).
func ReadMTL(r io.Reader) ([]*scene.Material, error) {
	var mats []*scene.Material
	var cur *scene.Material

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		key := strings.ToLower(fields[0])
		args := fields[1:]
		if key == "newmtl" {
			cur = scene.DefaultMaterial()
			cur.Name = strings.Join(args, " ")
			mats = append(mats, cur)
			continue
		}
		if cur == nil {
			continue
		}

		switch key {
		case "kd":
			if len(args) < 3 {
				return nil, fmt.Errorf("line %d: Kd needs 3 values", lineNo)
			}
			var c mgl32.Vec3
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(args[i], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", lineNo, err)
				}
				c[i] = float32(f)
			}
			cur.DiffuseColor = c
		default:
			slot, ok := mtlTextureSlots[key]
			if !ok || len(args) == 0 {
				continue
			}
			cur.AddTexture(slot, mtlTextureName(args))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading MTL: %w", err)
	}
	return mats, nil
}

// mtlOptionArgs is the number of values following each map option.
var mtlOptionArgs = map[string]int{
	"-blendu": 1, "-blendv": 1, "-bm": 1, "-boost": 1, "-cc": 1, "-clamp": 1,
	"-imfchan": 1, "-mm": 2, "-o": 3, "-s": 3, "-t": 3, "-texres": 1, "-type": 1,
}

// mtlTextureName strips map options and returns the file name, which may
// contain spaces.
func mtlTextureName(args []string) string {
	i := 0
	for i < len(args) {
		n, ok := mtlOptionArgs[strings.ToLower(args[i])]
		if !ok {
			break
		}
		i++
		// -o, -s and -t take up to 3 values; stop at the first non-number.
		for j := 0; j < n && i < len(args); j++ {
			if _, err := strconv.ParseFloat(args[i], 64); err != nil && n > 1 {
				break
			}
			i++
		}
	}
	return strings.Join(args[i:], " ")
}
