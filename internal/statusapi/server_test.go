package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/camera"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/Carmen-Shannon/oxy-view/engine/orchestrator"
	"github.com/Carmen-Shannon/oxy-view/engine/selector"
	"github.com/Carmen-Shannon/oxy-view/engine/session"
	"github.com/go-gl/mathgl/mgl32"
)

type fakeService struct {
	selected []string
	fail     error
}

func (f *fakeService) Snapshot() Snapshot {
	return Snapshot{Status: "Showing: a.glb", Active: "a.glb", State: "loaded", Backend: "manual", Model: true}
}

func (f *fakeService) Assets() []string { return []string{"a.glb", "b.glb"} }

func (f *fakeService) Select(name string) error {
	if f.fail != nil {
		return f.fail
	}
	if name != "a.glb" && name != "b.glb" {
		return ErrUnknownAsset
	}
	f.selected = append(f.selected, name)
	return nil
}

func do(t *testing.T, h http.Handler, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, nil))
	return rr
}

func TestStatusEndpoint(t *testing.T) {
	rr := do(t, NewMux(&fakeService{}), http.MethodGet, "/status")
	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d", rr.Code)
	}
	var snap Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Status != "Showing: a.glb" || !snap.Model {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}
}

func TestAssetsEndpoint(t *testing.T) {
	rr := do(t, NewMux(&fakeService{}), http.MethodGet, "/assets")
	if !strings.Contains(rr.Body.String(), `"b.glb"`) {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}
}

func TestSelectEndpoint(t *testing.T) {
	svc := &fakeService{}
	mux := NewMux(svc)
	if rr := do(t, mux, http.MethodPost, "/select/b.glb"); rr.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d", rr.Code)
	}
	if len(svc.selected) != 1 || svc.selected[0] != "b.glb" {
		t.Fatalf("unexpected selections %v", svc.selected)
	}
	if rr := do(t, mux, http.MethodPost, "/select/nope.glb"); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
	if rr := do(t, mux, http.MethodGet, "/select/b.glb"); rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
	svc.fail = errors.New("boom")
	if rr := do(t, mux, http.MethodPost, "/select/a.glb"); rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rr.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	mux := NewMux(&fakeService{})
	if rr := do(t, mux, http.MethodGet, "/healthz"); rr.Code != http.StatusOK || rr.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rr.Code, rr.Body.String())
	}
	rr := do(t, mux, http.MethodGet, "/metrics")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "oxyview_") {
		t.Fatalf("metrics: %d", rr.Code)
	}
}

func TestCORSHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rr := httptest.NewRecorder()
	NewMux(&fakeService{}).ServeHTTP(rr, req)
	if rr.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("expected wildcard CORS origin, got %q", rr.Header().Get("Access-Control-Allow-Origin"))
	}
}

type boxLoader struct{}

func (boxLoader) Load(ctx context.Context, ref asset.Ref) (*node.Node, error) {
	return node.NewMesh(ref.Name(), &node.Geometry{Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 1}}}), nil
}

func TestSelectorServiceShowsAsset(t *testing.T) {
	sess := session.New("main")
	orch := orchestrator.New(sess, boxLoader{}, camera.NewCamera())
	sel := selector.New([]string{"a.glb", "b.glb"}, orch)
	svc := NewSelectorService(context.Background(), sel, orch)

	if err := svc.Select("c.glb"); !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if err := svc.Select("b.glb"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for svc.Snapshot().Active != "b.glb" {
		if time.Now().After(deadline) {
			t.Fatalf("asset never became active: %+v", svc.Snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}
	snap := svc.Snapshot()
	if snap.Status != "Showing: b.glb" || !snap.Model || snap.Placeholder || snap.Backend != "manual" || snap.State != "loaded" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
}
