package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func scrape(t *testing.T) string {
	t.Helper()
	rr := httptest.NewRecorder()
	Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("/metrics status=%d", rr.Code)
	}
	return rr.Body.String()
}

func TestRecorderCountsLoads(t *testing.T) {
	var r Recorder
	before := testutil.ToFloat64(loadTotal.WithLabelValues("manual", "timeout"))
	r.ObserveLoad("manual", "timeout", 12*time.Second)
	if got := testutil.ToFloat64(loadTotal.WithLabelValues("manual", "timeout")); got != before+1 {
		t.Fatalf("expected load counter to grow by one, got %v -> %v", before, got)
	}

	retries := testutil.ToFloat64(loadRetries)
	r.ObserveRetry()
	if got := testutil.ToFloat64(loadRetries); got != retries+1 {
		t.Fatalf("expected one retry recorded, got %v -> %v", retries, got)
	}
}

func TestRecorderCountsProbes(t *testing.T) {
	var r Recorder
	miss := testutil.ToFloat64(probeTotal.WithLabelValues("unreachable"))
	r.ObserveProbe(false)
	r.ObserveProbe(true)
	if got := testutil.ToFloat64(probeTotal.WithLabelValues("unreachable")); got != miss+1 {
		t.Fatalf("unexpected unreachable count %v", got)
	}
}

func TestObserveDisposedByKind(t *testing.T) {
	var r Recorder
	geo := testutil.ToFloat64(disposedTotal.WithLabelValues("geometry"))
	tex := testutil.ToFloat64(disposedTotal.WithLabelValues("texture"))
	r.ObserveDisposed(node.Released{Geometries: 3, Textures: 2})
	if got := testutil.ToFloat64(disposedTotal.WithLabelValues("geometry")); got != geo+3 {
		t.Fatalf("geometry count %v", got)
	}
	if got := testutil.ToFloat64(disposedTotal.WithLabelValues("texture")); got != tex+2 {
		t.Fatalf("texture count %v", got)
	}
}

func TestHandlerExposesCollectors(t *testing.T) {
	Recorder{}.ObserveLoad("declarative", "success", time.Second)
	body := scrape(t)
	for _, name := range []string{"oxyview_load_total", "oxyview_load_duration_seconds", "oxyview_load_retries_total"} {
		if !strings.Contains(body, name) {
			t.Fatalf("expected %s in metrics output", name)
		}
	}
}
