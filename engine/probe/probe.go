// Package probe checks whether an asset exists before a full load is attempted.
package probe

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger for probe results.
func SetLogger(l zerolog.Logger) { zlog = l }

// Prober answers whether an asset URL is reachable. Implementations never
// return errors or panic; every failure is reported as false.
type Prober interface {
	// Probe performs a metadata-only existence check.
	//
	// Parameters:
	//   - ctx: bounds the check
	//   - rawURL: the manual (percent-encoded) asset URL
	//
	// Returns:
	//   - bool: true when the asset is reachable
	Probe(ctx context.Context, rawURL string) bool
}

// Func adapts a plain function to the Prober interface.
type Func func(ctx context.Context, rawURL string) bool

func (f Func) Probe(ctx context.Context, rawURL string) bool { return f(ctx, rawURL) }

// Observer is notified of each probe result.
type Observer func(rawURL string, reachable bool)

type httpProber struct {
	client   *http.Client
	timeout  time.Duration
	observer Observer
}

var _ Prober = &httpProber{}

// NewProber creates a Prober that issues HEAD requests for http(s) URLs and
// stats the file for file:// URLs and bare paths.
//
// Parameters:
//   - options: functional options
//
// Returns:
//   - Prober: the prober
func NewProber(options ...ProberOption) Prober {
	p := &httpProber{
		client:  http.DefaultClient,
		timeout: 5 * time.Second,
	}
	for _, option := range options {
		option(p)
	}
	return p
}

func (p *httpProber) Probe(ctx context.Context, rawURL string) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			zlog.Warn().Str("url", rawURL).Interface("panic", r).Msg("probe panicked")
			ok = false
		}
		if p.observer != nil {
			p.observer(rawURL, ok)
		}
	}()

	u, err := url.Parse(rawURL)
	if err != nil {
		zlog.Debug().Err(err).Str("url", rawURL).Msg("probe: bad url")
		return false
	}
	switch u.Scheme {
	case "http", "https":
		return p.head(ctx, u)
	case "file", "":
		info, err := os.Stat(u.Path)
		return err == nil && info.Mode().IsRegular()
	default:
		return false
	}
}

func (p *httpProber) head(ctx context.Context, u *url.URL) bool {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, u.String(), nil)
	if err != nil {
		return false
	}
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := p.client.Do(req)
	if err != nil {
		zlog.Debug().Err(err).Str("url", u.String()).Msg("probe: request failed")
		return false
	}
	defer resp.Body.Close()
	zlog.Debug().Str("url", u.String()).Int("status", resp.StatusCode).Msg("probe")
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
