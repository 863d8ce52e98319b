package asset

// RefOption is a functional option for configuring a Ref.
type RefOption func(*Ref)

// WithBase sets the directory or http(s) URL the asset lives under.
//
// Parameters:
//   - base: a local directory or an http(s) URL
//
// Returns:
//   - RefOption: a function that sets the base
func WithBase(base string) RefOption {
	return func(r *Ref) {
		r.base = base
	}
}

// WithCacheQuery sets the raw query appended to both URL forms.
//
// Parameters:
//   - query: an already-encoded query such as "v=1700000000000"
//
// Returns:
//   - RefOption: a function that sets the query
func WithCacheQuery(query string) RefOption {
	return func(r *Ref) {
		r.cacheQuery = query
	}
}

// WithFallbacks replaces the fallback extensions. Pass none to disable fallback.
//
// Parameters:
//   - exts: extensions including the dot, tried in order
//
// Returns:
//   - RefOption: a function that sets the fallbacks
func WithFallbacks(exts ...string) RefOption {
	return func(r *Ref) {
		r.fallbacks = append([]string(nil), exts...)
	}
}
