package window

import (
	"sync"
	"testing"
)

func TestSetTitleQueuesOnce(t *testing.T) {
	w := &engineWindow{mu: &sync.Mutex{}, title: "oxy-view"}

	if _, ok := w.pendingTitle(); ok {
		t.Fatal("no title was queued")
	}
	w.SetTitle("Loading headset0.glb")
	w.SetTitle("Showing: headset0.glb")
	title, ok := w.pendingTitle()
	if !ok || title != "Showing: headset0.glb" {
		t.Fatalf("expected latest title queued, got %q %v", title, ok)
	}
	if _, ok := w.pendingTitle(); ok {
		t.Fatal("title applied twice")
	}
	w.SetTitle("Showing: headset0.glb")
	if _, ok := w.pendingTitle(); ok {
		t.Fatal("unchanged title must not be requeued")
	}
	if w.Title() != "Showing: headset0.glb" {
		t.Fatalf("unexpected title %q", w.Title())
	}
}

func TestSizeIsShared(t *testing.T) {
	w := &engineWindow{mu: &sync.Mutex{}}
	w.setSize(800, 600)
	if w.Width() != 800 || w.Height() != 600 {
		t.Fatalf("unexpected size %dx%d", w.Width(), w.Height())
	}
}
