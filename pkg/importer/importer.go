// Package importer loads model files into post-processed scenes.
//
// It dispatches to the readers in pkg/formats by extension or content and
// then runs the configured scene post-processing steps. A scene that fails
// validation is still returned, flagged incomplete, with the reason
// available from ErrorString.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/modelcheck/pkg/formats"
	"github.com/Faultbox/modelcheck/pkg/scene"
)

// ErrUnsupportedFormat is returned for files no reader recognizes.
var ErrUnsupportedFormat = errors.New("unsupported model format")

// DefaultPostProcess is applied when no WithPostProcess option is given.
const DefaultPostProcess = scene.ProcessPresetTargetRealtimeMaxQuality | scene.ProcessPreTransformVertices

// DefaultRemovePrimitives strips points and lines during SortByPType.
const DefaultRemovePrimitives = scene.PrimitivePoint | scene.PrimitiveLine

// Importer reads model files. It is safe for concurrent use.
type Importer struct {
	log    *zap.Logger
	flags  scene.PostProcess
	remove scene.PrimitiveType

	mu      sync.Mutex
	lastErr string
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *zap.Logger) Option {
	return func(imp *Importer) {
		if l != nil {
			imp.log = l
		}
	}
}

// WithPostProcess replaces the post-processing steps.
func WithPostProcess(flags scene.PostProcess) Option {
	return func(imp *Importer) { imp.flags = flags }
}

// WithRemovePrimitives sets the primitive types removed by
// ProcessSortByPType.
func WithRemovePrimitives(mask scene.PrimitiveType) Option {
	return func(imp *Importer) { imp.remove = mask }
}

// New creates an Importer.
func New(opts ...Option) *Importer {
	imp := &Importer{
		log:    zap.NewNop(),
		flags:  DefaultPostProcess,
		remove: DefaultRemovePrimitives,
	}
	for _, opt := range opts {
		opt(imp)
	}
	return imp
}

// PostProcess returns the configured post-processing steps.
func (imp *Importer) PostProcess() scene.PostProcess {
	return imp.flags
}

// ErrorString returns the diagnostic of the last failed or incomplete
// import, or "" if the last import succeeded. With concurrent imports it
// may belong to another call; the scene's own Diagnostic does not.
func (imp *Importer) ErrorString() string {
	imp.mu.Lock()
	defer imp.mu.Unlock()
	return imp.lastErr
}

func (imp *Importer) setError(msg string) {
	imp.mu.Lock()
	imp.lastErr = msg
	imp.mu.Unlock()
}

// Import reads and post-processes the model at path.
//
// A read or parse failure returns an error. A scene that fails validation
// is returned without error but with scene.FlagIncomplete set and the
// reason in its Diagnostic.
func (imp *Importer) Import(path string) (*scene.Scene, error) {
	sc, err := imp.read(path)
	if err != nil {
		imp.setError(err.Error())
		imp.log.Warn("import failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}

	before := sc.Stats()
	if err := scene.ApplyPostProcessing(sc, imp.flags, imp.remove); err != nil {
		imp.setError(err.Error())
		imp.log.Warn("scene incomplete",
			zap.String("path", path),
			zap.Stringer("steps", imp.flags),
			zap.Error(err))
		return sc, nil
	}

	imp.setError("")
	imp.log.Debug("imported scene",
		zap.String("path", path),
		zap.Stringer("parsed", before),
		zap.Stringer("processed", sc.Stats()))
	return sc, nil
}

func (imp *Importer) read(path string) (*scene.Scene, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading model file: %w", err)
	}

	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	format := formats.DetectFormat(path, head)
	imp.log.Debug("detected format",
		zap.String("path", path),
		zap.Stringer("format", format),
		zap.Int("bytes", len(data)))

	name := filepath.Base(path)
	name = name[:len(name)-len(filepath.Ext(name))]

	switch format {
	case formats.FormatOBJ:
		return formats.ReadOBJ(bytes.NewReader(data), name, siblingOpener(path))
	case formats.FormatSTL:
		return formats.ReadSTLFile(path)
	case formats.FormatGLTF:
		doc, err := decodeGLTF(path, data)
		if err != nil {
			return nil, err
		}
		return formats.GLTFToScene(doc, name)
	case formats.FormatRSM:
		rsm, err := formats.ParseRSM(data)
		if err != nil {
			return nil, err
		}
		imp.log.Debug("parsed RSM",
			zap.Stringer("version", rsm.Version),
			zap.Int("nodes", len(rsm.Nodes)),
			zap.Int("textures", len(rsm.Textures)))
		return formats.RSMToScene(rsm), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

// decodeGLTF decodes a .gltf or .glb already read into memory. External
// buffers are resolved relative to path.
func decodeGLTF(path string, data []byte) (*gltf.Document, error) {
	doc := new(gltf.Document)
	dec := gltf.NewDecoderFS(bytes.NewReader(data), os.DirFS(filepath.Dir(path)))
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %w", err)
	}
	return doc, nil
}

// siblingOpener opens files referenced by a model relative to its directory.
func siblingOpener(path string) formats.OpenFunc {
	dir := filepath.Dir(path)
	return func(name string) (io.ReadCloser, error) {
		return os.Open(filepath.Join(dir, filepath.FromSlash(name)))
	}
}
