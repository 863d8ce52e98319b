package selector

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
)

// PreviewTurntableSpeed is the auto-rotation of preview tiles in radians per second.
const PreviewTurntableSpeed = 0.6

// Preview is a small independent surface showing one asset. Clicking it hands
// the asset name to the main selector.
type Preview struct {
	name         string
	session      *session.Session
	camera       camera.Camera
	orchestrator *orchestrator.Orchestrator
}

// NewPreview creates a preview tile for name. Previews draw no helpers.
//
// Parameters:
//   - name: the asset shown by the tile
//   - l: the loader shared with the main scene
//   - options: extra orchestrator options such as a prober or observer
//
// Returns:
//   - *Preview: the tile
func NewPreview(name string, l orchestrator.Loader, options ...orchestrator.OrchestratorOption) *Preview {
	s := session.New("preview:" + name)
	cam := camera.NewCamera(camera.WithController(camera.NewController(
		camera.WithTurntableSpeed(PreviewTurntableSpeed),
	)))
	opts := append([]orchestrator.OrchestratorOption{orchestrator.WithHelpers(false)}, options...)
	return &Preview{
		name:         name,
		session:      s,
		camera:       cam,
		orchestrator: orchestrator.New(s, l, cam, opts...),
	}
}

func (p *Preview) Name() string { return p.name }

func (p *Preview) Session() *session.Session { return p.session }

func (p *Preview) Camera() camera.Camera { return p.camera }

func (p *Preview) Orchestrator() *orchestrator.Orchestrator { return p.orchestrator }

// LoadPreviews loads every preview in parallel on pool and waits for all of
// them. Failures stay inside each tile: its placeholder remains and the error
// is only logged.
//
// Parameters:
//   - ctx: bounds every load
//   - pool: the worker pool running the loads
//   - refFor: builds each tile's reference
//   - previews: the tiles to load
//
// Returns:
//   - []orchestrator.Result: one result per preview, in order
func LoadPreviews(ctx context.Context, pool worker.DynamicWorkerPool, refFor RefFunc, previews ...*Preview) []orchestrator.Result {
	results := make([]orchestrator.Result, len(previews))
	var wg sync.WaitGroup
	for i, p := range previews {
		wg.Add(1)
		idx, tile := i, p
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				res := tile.orchestrator.Load(ctx, refFor(tile.name))
				if !res.OK() {
					zlog.Warn().Err(res.Err).Str("preview", tile.name).Msg("preview failed to load")
				}
				results[idx] = res
				return nil, nil
			},
		})
	}
	wg.Wait()
	return results
}
