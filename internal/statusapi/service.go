package statusapi

import (
	"context"
	"errors"

	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/selector"
)

// ErrUnknownAsset is returned by Select for names outside the asset list.
var ErrUnknownAsset = errors.New("unknown asset")

// Snapshot is the JSON body of GET /status.
type Snapshot struct {
	Status      string `json:"status"`
	Active      string `json:"active"`
	State       string `json:"state"`
	Backend     string `json:"backend"`
	Model       bool   `json:"model_attached"`
	Placeholder bool   `json:"placeholder"`
}

// Service defines the methods required by the HTTP layer.
type Service interface {
	Snapshot() Snapshot
	Assets() []string

	// Select starts showing name and returns without waiting for the load.
	Select(name string) error
}

// SelectorService adapts a selector and its manual orchestrator to Service.
type SelectorService struct {
	ctx          context.Context
	selector     *selector.Selector
	orchestrator *orchestrator.Orchestrator
}

var _ Service = &SelectorService{}

// NewSelectorService creates the adapter. Loads started through Select are
// bound to ctx, so cancelling it aborts them on shutdown.
func NewSelectorService(ctx context.Context, sel *selector.Selector, orch *orchestrator.Orchestrator) *SelectorService {
	if ctx == nil {
		ctx = context.Background()
	}
	return &SelectorService{ctx: ctx, selector: sel, orchestrator: orch}
}

func (s *SelectorService) Snapshot() Snapshot {
	snap := Snapshot{
		Active:  s.selector.Active(),
		Backend: "manual",
	}
	if s.selector.Visible() != nil {
		snap.Backend = "declarative"
	}
	if s.orchestrator != nil {
		sess := s.orchestrator.Session()
		snap.Status = sess.Status()
		snap.State = s.orchestrator.State().String()
		snap.Model = sess.Model() != nil
		snap.Placeholder = sess.Placeholder() != nil
	}
	return snap
}

func (s *SelectorService) Assets() []string {
	return s.selector.Assets()
}

func (s *SelectorService) Select(name string) error {
	known := false
	for _, a := range s.selector.Assets() {
		if a == name {
			known = true
			break
		}
	}
	if !known {
		return ErrUnknownAsset
	}
	go func() {
		if err := s.selector.Show(s.ctx, name); err != nil {
			zlog.Warn().Err(err).Str("asset", name).Msg("select failed")
		}
	}()
	return nil
}
