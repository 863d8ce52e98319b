package loader

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

func triangleDoc() *gltf.Document {
	doc := gltf.NewDocument()
	pos := modeler.WritePosition(doc, [][3]float32{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}})
	idx := modeler.WriteIndices(doc, []uint16{0, 1, 2})
	doc.Meshes = []*gltf.Mesh{{
		Name: "tri",
		Primitives: []*gltf.Primitive{{
			Indices:    gltf.Index(idx),
			Attributes: map[string]int{gltf.POSITION: pos},
		}},
	}}
	doc.Nodes = []*gltf.Node{{Name: "root", Mesh: gltf.Index(0)}}
	doc.Scenes[0].Nodes = append(doc.Scenes[0].Nodes, 0)
	return doc
}

func writeGLB(t *testing.T, dir, name string, doc *gltf.Document) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := gltf.SaveBinary(doc, p); err != nil {
		t.Fatalf("failed to save %s: %v", name, err)
	}
	return p
}

func countMeshes(root *node.Node) int {
	n := 0
	node.Walk(root, mgl32.Ident4(), func(c *node.Node, _ mgl32.Mat4) bool {
		if c.Kind() == node.KindMesh {
			n++
		}
		return true
	})
	return n
}

type recordingUploader struct {
	calls int
	err   error
}

func (u *recordingUploader) Upload(n *node.Node) error {
	u.calls++
	return u.err
}

func TestLoadLocalFile(t *testing.T) {
	dir := t.TempDir()
	writeGLB(t, dir, "tri.glb", triangleDoc())

	l := NewLoader(BackendTypeGLTF)
	root, err := l.Load(context.Background(), asset.NewRef("tri.glb", asset.WithBase(dir)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if root.Name() != "tri.glb" {
		t.Fatalf("expected root named tri.glb, got %q", root.Name())
	}
	if got := countMeshes(root); got != 1 {
		t.Fatalf("expected 1 mesh, got %d", got)
	}
	b := node.WorldBounds(root)
	if !b.Max.ApproxEqual(mgl32.Vec3{1, 1, 0}) || !b.Min.ApproxEqual(mgl32.Vec3{0, 0, 0}) {
		t.Fatalf("unexpected bounds %v", b)
	}
}

func TestLoadOverHTTPWithSpaceInName(t *testing.T) {
	dir := t.TempDir()
	writeGLB(t, dir, "my model.glb", triangleDoc())
	srv := httptest.NewServer(http.FileServer(http.Dir(dir)))
	defer srv.Close()

	ref := asset.NewRef("my model.glb", asset.WithBase(srv.URL+"/"), asset.WithCacheQuery("v=1"))
	root, err := NewLoader(BackendTypeGLTF).Load(context.Background(), ref)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got := countMeshes(root); got != 1 {
		t.Fatalf("expected 1 mesh, got %d", got)
	}
}

func TestLoadMissingIsFetchError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	_, err := NewLoader(BackendTypeGLTF).Load(context.Background(), asset.NewRef("gone.glb", asset.WithBase(srv.URL)))
	if !errors.Is(err, ErrFetch) {
		t.Fatalf("expected ErrFetch, got %v", err)
	}
}

func TestLoadUnsupportedFormat(t *testing.T) {
	_, err := NewLoader(BackendTypeGLTF).Load(context.Background(), asset.NewRef("mesh.obj", asset.WithBase(t.TempDir())))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadGarbageIsDecodeError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.glb"), []byte("definitely not a model"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := NewLoader(BackendTypeGLTF).Load(context.Background(), asset.NewRef("bad.glb", asset.WithBase(dir)))
	if !errors.Is(err, ErrDecode) {
		t.Fatalf("expected ErrDecode, got %v", err)
	}
}

func TestLoadEmptySceneIsDecodeError(t *testing.T) {
	dir := t.TempDir()
	writeGLB(t, dir, "empty.glb", gltf.NewDocument())
	_, err := NewLoader(BackendTypeGLTF).Load(context.Background(), asset.NewRef("empty.glb", asset.WithBase(dir)))
	if !errors.Is(err, ErrDecode) || !errors.Is(err, errNoGeometry) {
		t.Fatalf("expected ErrDecode wrapping errNoGeometry, got %v", err)
	}
}

func TestLoadCallsUploader(t *testing.T) {
	dir := t.TempDir()
	writeGLB(t, dir, "tri.glb", triangleDoc())
	up := &recordingUploader{}

	_, err := NewLoader(BackendTypeGLTF, WithUploader(up)).Load(context.Background(), asset.NewRef("tri.glb", asset.WithBase(dir)))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if up.calls != 1 {
		t.Fatalf("expected 1 upload, got %d", up.calls)
	}
}

func TestLoadUploadFailure(t *testing.T) {
	dir := t.TempDir()
	writeGLB(t, dir, "tri.glb", triangleDoc())
	up := &recordingUploader{err: errors.New("device lost")}

	root, err := NewLoader(BackendTypeGLTF, WithUploader(up)).Load(context.Background(), asset.NewRef("tri.glb", asset.WithBase(dir)))
	if err == nil || root != nil {
		t.Fatalf("expected upload failure, got root=%v err=%v", root, err)
	}
}

func TestLoadReader(t *testing.T) {
	dir := t.TempDir()
	p := writeGLB(t, dir, "tri.glb", triangleDoc())
	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatal(err)
	}
	root, err := NewLoader(BackendTypeGLTF).LoadReader(context.Background(), "inline", bytes.NewReader(data))
	if err != nil {
		t.Fatalf("LoadReader failed: %v", err)
	}
	if root.Name() != "inline" {
		t.Fatalf("expected root named inline, got %q", root.Name())
	}
}

func TestLoadCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeGLB(t, dir, "tri.glb", triangleDoc())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(BackendTypeGLTF).Load(ctx, asset.NewRef("tri.glb", asset.WithBase(dir)))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGenerateNormals(t *testing.T) {
	positions := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	normals := generateNormals(positions, []uint32{0, 1, 2})
	for i, n := range normals {
		if !n.ApproxEqual(mgl32.Vec3{0, 0, 1}) {
			t.Fatalf("normal %d: expected +Z, got %v", i, n)
		}
	}
}

func TestDecodeDataURI(t *testing.T) {
	data, mime, err := decodeDataURI("data:application/octet-stream;base64," + base64.StdEncoding.EncodeToString([]byte{1, 2, 3}))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if mime != "application/octet-stream" || !bytes.Equal(data, []byte{1, 2, 3}) {
		t.Fatalf("unexpected result %q %v", mime, data)
	}
	if _, _, err := decodeDataURI("data:image/png;base64"); err == nil {
		t.Fatal("expected error for missing comma")
	}
}

func TestMaterialTextureIsDownscaled(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			src.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	doc := gltf.NewDocument()
	doc.Images = []*gltf.Image{{Name: "red", URI: "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())}}
	doc.Textures = []*gltf.Texture{{Source: gltf.Index(0)}}
	doc.Materials = []*gltf.Material{{
		Name: "paint",
		PBRMetallicRoughness: &gltf.PBRMetallicRoughness{
			BaseColorFactor:  &[4]float64{1, 0.5, 0.25, 1},
			BaseColorTexture: &gltf.TextureInfo{Index: 0},
		},
	}}

	e := newGLTFMaterialExtractor(doc, nil, 4)
	m := e.material(gltf.Index(0))
	if m.BaseMap == nil {
		t.Fatal("expected a base color texture")
	}
	if m.BaseMap.Width != 4 || m.BaseMap.Height != 4 || len(m.BaseMap.Pixels) != 4*4*4 {
		t.Fatalf("expected 4x4 RGBA texture, got %dx%d (%d bytes)", m.BaseMap.Width, m.BaseMap.Height, len(m.BaseMap.Pixels))
	}
	if !m.BaseColor.ApproxEqual(mgl32.Vec4{1, 0.5, 0.25, 1}) {
		t.Fatalf("unexpected base color %v", m.BaseColor)
	}
	if again := e.material(gltf.Index(0)); again != m {
		t.Fatal("expected the material to be shared across primitives")
	}
	if def := e.material(nil); def == nil || def.BaseMap != nil {
		t.Fatalf("expected an untextured default material, got %+v", def)
	}
}
