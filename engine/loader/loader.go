package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for load diagnostics.
func SetLogger(l zerolog.Logger) { zlog = l }

// LoaderBackendType identifies the model file format backend to use.
type LoaderBackendType int

const (
	// BackendTypeGLTF selects the glTF/GLB loader backend.
	BackendTypeGLTF LoaderBackendType = iota
)

var (
	// ErrUnsupportedFormat is returned for assets whose extension no backend decodes.
	ErrUnsupportedFormat = errors.New("unsupported model format")

	// ErrFetch is returned when the asset bytes could not be retrieved.
	ErrFetch = errors.New("asset fetch failed")

	// ErrDecode is returned when the asset bytes could not be parsed into a scene.
	ErrDecode = errors.New("asset decode failed")
)

// Uploader moves CPU-side geometry and textures onto the GPU and installs
// release hooks on each resource. The renderer implements it.
type Uploader interface {
	Upload(n *node.Node) error
}

// Loader loads glTF/GLB assets into scene graphs. Every call produces a fresh,
// caller-owned object: there is no cache, since asset URLs carry a
// cache-defeating query and replaced objects are disposed.
type Loader interface {
	// Load fetches and decodes the asset named by ref using its manual URL.
	//
	// Parameters:
	//   - ctx: bounds the fetch and decode
	//   - ref: the asset to load
	//
	// Returns:
	//   - *node.Node: the root group of the loaded scene
	//   - error: wraps ErrUnsupportedFormat, ErrFetch or ErrDecode
	Load(ctx context.Context, ref asset.Ref) (*node.Node, error)

	// LoadReader decodes an asset from r. Relative resources cannot be resolved,
	// so r must hold a GLB or a glTF with embedded buffers.
	//
	// Parameters:
	//   - ctx: bounds the decode
	//   - name: name of the root node
	//   - r: the asset bytes
	//
	// Returns:
	//   - *node.Node: the root group of the loaded scene
	//   - error: wraps ErrDecode
	LoadReader(ctx context.Context, name string, r io.Reader) (*node.Node, error)
}

// loader is the implementation of the Loader interface.
type loader struct {
	client         *http.Client
	uploader       Uploader
	maxTextureSize int
	timeout        time.Duration

	backend loaderBackend
}

var _ Loader = &loader{}

// NewLoader creates a new Loader instance with the specified backend type and options applied.
//
// Parameters:
//   - backendType: the type of loader backend to use (e.g., BackendTypeGLTF)
//   - options: a variadic list of LoaderBuilderOption functions to configure the Loader
//
// Returns:
//   - Loader: a new instance of Loader configured with the provided backend and options
func NewLoader(backendType LoaderBackendType, options ...LoaderBuilderOption) Loader {
	l := &loader{
		client:         http.DefaultClient,
		maxTextureSize: 2048,
	}
	for _, option := range options {
		option(l)
	}

	switch backendType {
	case BackendTypeGLTF:
		l.backend = newGLTFLoaderBackend(l.maxTextureSize)
	}
	return l
}

func (l *loader) Load(ctx context.Context, ref asset.Ref) (*node.Node, error) {
	if err := l.resolveBackend(ref); err != nil {
		return nil, err
	}
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	src, err := openSource(ctx, l.client, ref)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFetch, ref.Name(), err)
	}
	defer src.body.Close()

	root, err := l.backend.Decode(ctx, ref.Name(), src.body, src.fsys)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, ref.Name(), err)
	}
	if err := l.upload(root); err != nil {
		node.Dispose(root)
		return nil, err
	}

	zlog.Debug().Str("asset", ref.Name()).Dur("elapsed", time.Since(start)).Msg("asset decoded")
	return root, nil
}

func (l *loader) LoadReader(ctx context.Context, name string, r io.Reader) (*node.Node, error) {
	root, err := l.backend.Decode(ctx, name, r, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecode, name, err)
	}
	if err := l.upload(root); err != nil {
		node.Dispose(root)
		return nil, err
	}
	return root, nil
}

func (l *loader) upload(root *node.Node) error {
	if l.uploader == nil {
		return nil
	}
	if err := l.uploader.Upload(root); err != nil {
		return fmt.Errorf("failed to upload %q: %w", root.Name(), err)
	}
	return nil
}

// resolveBackend checks that the asset's extension is handled by the configured backend.
func (l *loader) resolveBackend(ref asset.Ref) error {
	switch ref.Ext() {
	case ".gltf", ".glb":
		if l.backend == nil {
			return fmt.Errorf("%w: no backend configured", ErrUnsupportedFormat)
		}
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ref.Ext())
	}
}
