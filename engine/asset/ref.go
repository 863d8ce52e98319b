// Package asset names the model files a viewer can load and resolves them to URLs.
package asset

import (
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultFallbacks maps a primary extension to the extensions tried after it fails.
var DefaultFallbacks = map[string][]string{
	".glb": {".gltf"},
}

// Ref is an immutable reference to one asset: its logical file name, the base
// directory or URL it lives under, a cache-defeating query and the ordered
// extension fallbacks to try when the primary form fails.
type Ref struct {
	name       string
	base       string
	cacheQuery string
	fallbacks  []string
}

// NewRef builds a reference to name. Unless overridden, fallbacks come from DefaultFallbacks.
//
// Parameters:
//   - name: the logical file name, e.g. "self-portrait2.glb"
//   - options: functional options
//
// Returns:
//   - Ref: the reference
func NewRef(name string, options ...RefOption) Ref {
	r := Ref{
		name:      name,
		fallbacks: append([]string(nil), DefaultFallbacks[strings.ToLower(path.Ext(name))]...),
	}
	for _, option := range options {
		option(&r)
	}
	return r
}

func (r Ref) Name() string { return r.name }

func (r Ref) Base() string { return r.base }

func (r Ref) CacheQuery() string { return r.cacheQuery }

// Ext returns the lower-cased extension of the name, including the dot.
func (r Ref) Ext() string { return strings.ToLower(path.Ext(r.name)) }

// Fallbacks returns a copy of the remaining fallback extensions.
func (r Ref) Fallbacks() []string { return append([]string(nil), r.fallbacks...) }

// HasFallback reports whether another extension can be tried after this one.
func (r Ref) HasFallback() bool { return len(r.fallbacks) > 0 }

// Fallback derives the reference for the next fallback extension. The derived
// reference carries the remaining fallbacks, so chaining terminates.
//
// Returns:
//   - Ref: the fallback reference
//   - bool: false when no fallback remains
func (r Ref) Fallback() (Ref, bool) {
	if len(r.fallbacks) == 0 {
		return Ref{}, false
	}
	next := r
	next.name = strings.TrimSuffix(r.name, path.Ext(r.name)) + r.fallbacks[0]
	next.fallbacks = append([]string(nil), r.fallbacks[1:]...)
	return next, true
}

// Remote reports whether the base is an http(s) URL rather than a local directory.
func (r Ref) Remote() bool {
	u, err := url.Parse(r.base)
	return err == nil && (u.Scheme == "http" || u.Scheme == "https")
}

// ManualURL is the form used by the manual loader: path segments are
// percent-encoded, so "my model.glb" becomes "my%20model.glb". Local bases
// resolve to a file:// URL.
func (r Ref) ManualURL() string {
	var u *url.URL
	if r.Remote() {
		base, _ := url.Parse(r.base)
		u = base.JoinPath(r.name)
	} else {
		p := filepath.Join(r.base, r.name)
		if abs, err := filepath.Abs(p); err == nil {
			p = abs
		}
		u = &url.URL{Scheme: "file", Path: filepath.ToSlash(p)}
	}
	u.RawQuery = r.cacheQuery
	return u.String()
}

// ViewerSource is the form handed to a declarative viewer element: the name is
// appended verbatim, spaces included.
func (r Ref) ViewerSource() string {
	src := r.name
	if r.base != "" {
		src = strings.TrimSuffix(r.base, "/") + "/" + r.name
	}
	if r.cacheQuery != "" {
		src += "?" + r.cacheQuery
	}
	return src
}

func (r Ref) String() string { return r.name }

// CacheBust returns a query that defeats intermediary caches for the given instant.
func CacheBust(now time.Time) string {
	return "v=" + strconv.FormatInt(now.UnixMilli(), 10)
}
