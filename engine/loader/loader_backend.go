package loader

import (
	"context"
	"io"
	"io/fs"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
)

// loaderBackend is the format-specific decoder behind a Loader.
type loaderBackend interface {
	// Decode parses the asset read from r into a scene graph.
	//
	// Parameters:
	//   - ctx: checked between decode stages
	//   - name: name given to the root node
	//   - r: the asset bytes
	//   - fsys: resolves relative resources; nil when none can be resolved
	//
	// Returns:
	//   - *node.Node: the root group
	//   - error: error if the asset cannot be parsed
	Decode(ctx context.Context, name string, r io.Reader, fsys fs.FS) (*node.Node, error)
}
