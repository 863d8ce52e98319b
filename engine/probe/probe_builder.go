package probe

import (
	"net/http"
	"time"
)

// ProberOption is a functional option for configuring a Prober.
type ProberOption func(*httpProber)

// WithClient sets the HTTP client used for HEAD requests.
//
// Parameters:
//   - client: the HTTP client
//
// Returns:
//   - ProberOption: a function that sets the client
func WithClient(client *http.Client) ProberOption {
	return func(p *httpProber) {
		if client != nil {
			p.client = client
		}
	}
}

// WithTimeout bounds each probe. Zero leaves only the caller's context.
//
// Parameters:
//   - timeout: per-probe ceiling
//
// Returns:
//   - ProberOption: a function that sets the timeout
func WithTimeout(timeout time.Duration) ProberOption {
	return func(p *httpProber) {
		p.timeout = timeout
	}
}

// WithObserver registers a callback for each probe result.
//
// Parameters:
//   - obs: receives the URL and whether it was reachable
//
// Returns:
//   - ProberOption: a function that installs the observer
func WithObserver(obs Observer) ProberOption {
	return func(p *httpProber) {
		p.observer = obs
	}
}
