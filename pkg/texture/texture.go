// Package texture checks that texture files referenced by models exist and
// can be decoded.
package texture

import (
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"golang.org/x/image/bmp"
	"golang.org/x/image/webp"
)

// Texture audit errors.
var (
	ErrMissing  = errors.New("texture file missing")
	ErrEmbedded = errors.New("texture is embedded in the model")
)

// Info describes a decodable texture.
type Info struct {
	Path   string
	Format string
	Width  int
	Height int
}

// String implements fmt.Stringer.
func (i Info) String() string {
	return fmt.Sprintf("%s (%s %dx%d)", i.Path, i.Format, i.Width, i.Height)
}

// IsEmbedded reports whether a texture name refers to image data stored
// inside the model ("*<index>") rather than a file.
func IsEmbedded(name string) bool {
	return strings.HasPrefix(filepath.Base(name), "*")
}

// Probe reads the image header of path. Only the configuration is decoded,
// not the pixels.
func Probe(path string) (Info, error) {
	if IsEmbedded(path) {
		return Info{}, fmt.Errorf("%w: %s", ErrEmbedded, path)
	}

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%w: %s", ErrMissing, path)
		}
		return Info{}, fmt.Errorf("opening texture: %w", err)
	}
	defer f.Close()

	cfg, format, err := decodeConfig(f, path)
	if err != nil {
		return Info{}, fmt.Errorf("texture %s: %w", path, err)
	}
	return Info{Path: path, Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// configDecoders picks a header decoder by extension. TGA has no magic
// number, so content sniffing is only used for unknown extensions.
var configDecoders = map[string]struct {
	format string
	decode func(io.Reader) (image.Config, error)
}{
	".png":  {"png", png.DecodeConfig},
	".jpg":  {"jpeg", jpeg.DecodeConfig},
	".jpeg": {"jpeg", jpeg.DecodeConfig},
	".bmp":  {"bmp", bmp.DecodeConfig},
	".webp": {"webp", webp.DecodeConfig},
	".tga":  {"tga", tga.DecodeConfig},
}

func decodeConfig(r io.Reader, path string) (image.Config, string, error) {
	if d, ok := configDecoders[strings.ToLower(filepath.Ext(path))]; ok {
		cfg, err := d.decode(r)
		return cfg, d.format, err
	}
	return image.DecodeConfig(r)
}

// Result is the outcome of probing one texture.
type Result struct {
	Info Info
	Err  error
}

// ProbeAll probes each distinct path once, in first-seen order.
func ProbeAll(paths []string) []Result {
	seen := make(map[string]bool, len(paths))
	var out []Result
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		info, err := Probe(p)
		if err != nil {
			info.Path = p
		}
		out = append(out, Result{Info: info, Err: err})
	}
	return out
}
