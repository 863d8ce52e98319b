package asset

import (
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestDefaultFallbackForGLB(t *testing.T) {
	r := NewRef("headset0.glb")
	if !r.HasFallback() {
		t.Fatalf("expected a fallback for .glb")
	}
	fb, ok := r.Fallback()
	if !ok || fb.Name() != "headset0.gltf" {
		t.Fatalf("fallback = %q, %v", fb.Name(), ok)
	}
	if fb.HasFallback() {
		t.Fatalf("fallback chain should end after .gltf")
	}
	if _, ok := fb.Fallback(); ok {
		t.Fatalf("expected no second fallback")
	}
}

func TestGLTFHasNoDefaultFallback(t *testing.T) {
	if NewRef("scene.gltf").HasFallback() {
		t.Fatalf(".gltf should not fall back")
	}
	if NewRef("a.glb", WithFallbacks()).HasFallback() {
		t.Fatalf("explicitly empty fallbacks were ignored")
	}
}

func TestManualURLPercentEncodesSpaces(t *testing.T) {
	r := NewRef("self portrait.glb", WithBase("https://cdn.example.com/models/"), WithCacheQuery("v=7"))
	got := r.ManualURL()
	if got != "https://cdn.example.com/models/self%20portrait.glb?v=7" {
		t.Fatalf("ManualURL() = %q", got)
	}
}

func TestViewerSourceKeepsNameRaw(t *testing.T) {
	r := NewRef("self portrait.glb", WithBase("models/"), WithCacheQuery("v=7"))
	if got := r.ViewerSource(); got != "models/self portrait.glb?v=7" {
		t.Fatalf("ViewerSource() = %q", got)
	}
}

func TestLocalBaseResolvesToFileURL(t *testing.T) {
	dir := t.TempDir()
	r := NewRef("my model.glb", WithBase(dir))
	if r.Remote() {
		t.Fatalf("local directory reported as remote")
	}
	u, err := url.Parse(r.ManualURL())
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if u.Scheme != "file" || !strings.HasSuffix(u.Path, "/my model.glb") {
		t.Fatalf("unexpected file URL %q", r.ManualURL())
	}
	if !strings.Contains(r.ManualURL(), "my%20model.glb") {
		t.Fatalf("file URL not percent-encoded: %q", r.ManualURL())
	}
}

func TestFallbackKeepsBaseAndQuery(t *testing.T) {
	r := NewRef("a.glb", WithBase("http://host/x"), WithCacheQuery("v=1"))
	fb, _ := r.Fallback()
	if fb.ManualURL() != "http://host/x/a.gltf?v=1" {
		t.Fatalf("fallback URL = %q", fb.ManualURL())
	}
}

func TestCacheBust(t *testing.T) {
	at := time.UnixMilli(1700000000123)
	if got := CacheBust(at); got != "v=1700000000123" {
		t.Fatalf("CacheBust() = %q", got)
	}
}
