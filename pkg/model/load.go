package model

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Faultbox/modelcheck/pkg/importer"
	"github.com/Faultbox/modelcheck/pkg/scene"
)

// ErrSceneLoad is wrapped by every LoadError.
var ErrSceneLoad = errors.New("scene load failed")

// LoadError reports that the importer could not produce a usable scene.
type LoadError struct {
	Path       string
	Diagnostic string // importer diagnostic, may be empty
	Err        error  // underlying import error, may be nil
}

func (e *LoadError) Error() string {
	msg := fmt.Sprintf("%s: %s", ErrSceneLoad, e.Path)
	if e.Diagnostic != "" {
		msg += ": " + e.Diagnostic
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying import error.
func (e *LoadError) Unwrap() error {
	return e.Err
}

// Is reports ErrSceneLoad as a match.
func (e *LoadError) Is(target error) bool {
	return target == ErrSceneLoad
}

// SceneImporter produces scenes from model files. An incomplete scene
// carries its reason in Scene.Diagnostic.
type SceneImporter interface {
	Import(path string) (*scene.Scene, error)
}

// Loader imports and flattens models.
type Loader struct {
	imp SceneImporter
	log *zap.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithLogger sets the loader's logger. The default discards output.
func WithLogger(l *zap.Logger) LoaderOption {
	return func(ld *Loader) {
		if l != nil {
			ld.log = l
		}
	}
}

// NewLoader creates a Loader around imp.
func NewLoader(imp SceneImporter, opts ...LoaderOption) *Loader {
	ld := &Loader{imp: imp, log: zap.NewNop()}
	for _, opt := range opts {
		opt(ld)
	}
	return ld
}

// Load imports path and flattens the scene. A failed, missing, incomplete
// or rootless scene returns a *LoadError and an empty Model.
func (ld *Loader) Load(path string) (Model, error) {
	sc, err := ld.imp.Import(path)
	switch {
	case err != nil:
		return Model{}, ld.fail(path, "", err)
	case sc == nil:
		return Model{}, ld.fail(path, "", errors.New("importer returned no scene"))
	case sc.Incomplete():
		return Model{}, ld.fail(path, sc.Diagnostic, errors.New("scene is incomplete"))
	case sc.RootNode == nil:
		return Model{}, ld.fail(path, "", errors.New("scene has no root node"))
	}

	m := Flatten(sc, path)
	ld.log.Debug("loaded model",
		zap.String("path", path),
		zap.Int("meshes", len(m.Meshes)),
		zap.Int("vertices", m.VertexCount()),
		zap.Int("indices", m.IndexCount()))
	return m, nil
}

func (ld *Loader) fail(path, diag string, err error) error {
	lerr := &LoadError{Path: path, Diagnostic: diag, Err: err}
	ld.log.Error("model load failed", zap.String("path", path), zap.Error(lerr))
	return lerr
}

// LoadModelFromPath loads path with a default importer: points and lines
// removed, max quality post-processing with vertices pre-transformed.
func LoadModelFromPath(path string) (Model, error) {
	return NewLoader(importer.New()).Load(path)
}
