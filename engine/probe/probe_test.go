package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestProbeHTTPStatus(t *testing.T) {
	var methods []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method)
		if r.URL.Path == "/self%20portrait.glb" || r.URL.Path == "/self portrait.glb" {
			w.WriteHeader(http.StatusOK)
			return
		}
		http.NotFound(w, r)
	}))
	defer srv.Close()

	p := NewProber(WithClient(srv.Client()))
	if !p.Probe(context.Background(), srv.URL+"/self%20portrait.glb") {
		t.Fatalf("expected existing asset to be reachable")
	}
	if p.Probe(context.Background(), srv.URL+"/headset0.glb") {
		t.Fatalf("expected 404 to be unreachable")
	}
	for _, m := range methods {
		if m != http.MethodHead {
			t.Fatalf("probe used %s, want HEAD", m)
		}
	}
}

func TestProbeNetworkFailureIsFalse(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	if NewProber().Probe(context.Background(), addr+"/a.glb") {
		t.Fatalf("closed server reported reachable")
	}
}

func TestProbeTimeoutIsFalse(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	start := time.Now()
	if NewProber(WithTimeout(50*time.Millisecond)).Probe(context.Background(), srv.URL+"/slow.glb") {
		t.Fatalf("hung server reported reachable")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("probe ignored its timeout")
	}
}

func TestProbeLocalFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my model.glb")
	if err := os.WriteFile(path, []byte("glTF"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	u := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()

	p := NewProber()
	if !p.Probe(context.Background(), u) {
		t.Fatalf("existing local file reported unreachable: %s", u)
	}
	if p.Probe(context.Background(), "file://"+filepath.ToSlash(filepath.Join(dir, "missing.glb"))) {
		t.Fatalf("missing local file reported reachable")
	}
	if p.Probe(context.Background(), "file://"+filepath.ToSlash(dir)) {
		t.Fatalf("directory reported as an asset")
	}
}

func TestProbeBadInputNeverPanics(t *testing.T) {
	var seen []bool
	p := NewProber(WithObserver(func(_ string, ok bool) { seen = append(seen, ok) }))
	for _, raw := range []string{"://bad", "ftp://host/a.glb", ""} {
		if p.Probe(context.Background(), raw) {
			t.Fatalf("%q reported reachable", raw)
		}
	}
	if len(seen) != 3 {
		t.Fatalf("observer saw %d results, want 3", len(seen))
	}
}
