package loader

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/Carmen-Shannon/oxy-view/engine/asset"
)

// source is an opened asset plus the file system its relative resources
// (external buffers and images) resolve against.
type source struct {
	body io.ReadCloser
	fsys fs.FS
}

func openSource(ctx context.Context, client *http.Client, ref asset.Ref) (*source, error) {
	u, err := url.Parse(ref.ManualURL())
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "http", "https":
		body, err := httpGet(ctx, client, u)
		if err != nil {
			return nil, err
		}
		dir := *u
		dir.Path = path.Dir(u.Path) + "/"
		dir.RawPath = ""
		return &source{
			body: body,
			fsys: &httpFS{ctx: ctx, client: client, base: &dir},
		}, nil
	case "file":
		p := filepath.FromSlash(u.Path)
		f, err := os.Open(p)
		if err != nil {
			return nil, err
		}
		return &source{body: f, fsys: os.DirFS(filepath.Dir(p))}, nil
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
}

func httpGet(ctx context.Context, client *http.Client, u *url.URL) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", u.Redacted(), resp.Status)
	}
	return resp.Body, nil
}

// httpFS resolves glTF relative URIs against the directory of the asset URL.
// The asset's cache query is carried over to every resource.
type httpFS struct {
	ctx    context.Context
	client *http.Client
	base   *url.URL
}

func (h *httpFS) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	u := h.base.JoinPath(name)
	body, err := httpGet(h.ctx, h.client, u)
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, &fs.PathError{Op: "read", Path: name, Err: err}
	}
	return &memFile{Reader: bytes.NewReader(data), name: path.Base(name), size: int64(len(data))}, nil
}

// memFile is a fully buffered fs.File.
type memFile struct {
	*bytes.Reader
	name string
	size int64
}

func (f *memFile) Stat() (fs.FileInfo, error) { return f, nil }
func (f *memFile) Close() error               { return nil }
func (f *memFile) Name() string               { return f.name }
func (f *memFile) Size() int64                { return f.size }
func (f *memFile) Mode() fs.FileMode          { return 0o444 }
func (f *memFile) ModTime() time.Time         { return time.Time{} }
func (f *memFile) IsDir() bool                { return false }
func (f *memFile) Sys() any                   { return nil }
