package session

import (
	"sync"

	"github.com/Carmen-Shannon/oxy-view/engine/node"
	"github.com/rs/zerolog"
)

// zlog is the package logger. It discards output until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by every session.
func SetLogger(l zerolog.Logger) { zlog = l }

// Token identifies one load request within a session. Tokens increase
// monotonically; only the most recent one may mutate the session.
type Token uint64

// Session is the mutable state of one manual rendering surface: the attached
// model, the loading placeholder, the debug helpers annotating the model and the
// human-readable status line. Every mutation goes through its methods, which
// dispose whatever they detach.
type Session struct {
	mu *sync.Mutex

	name        string
	lights      *node.Node
	current     *node.Node
	placeholder *node.Node
	helpers     []*node.Node
	status      string
	token       Token

	onStatus  func(status string)
	onDispose func(released node.Released)
}

// New creates an empty session.
//
// Parameters:
//   - name: surface name used in logs
//   - options: functional options to configure the session
//
// Returns:
//   - *Session: the new session
func New(name string, options ...SessionOption) *Session {
	s := &Session{
		mu:     &sync.Mutex{},
		name:   name,
		lights: node.DefaultRig(),
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// Name returns the surface name given to New.
func (s *Session) Name() string { return s.name }

// Begin starts a new request and returns its token. Any earlier token becomes stale.
func (s *Session) Begin() Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token++
	return s.token
}

// IsCurrent reports whether tok is the most recent request token.
func (s *Session) IsCurrent(tok Token) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tok == s.token
}

// Replace detaches and disposes the current model together with its helpers,
// then attaches obj. Passing nil leaves no model attached.
//
// Parameters:
//   - obj: the new model, or nil
func (s *Session) Replace(obj *node.Node) {
	s.mu.Lock()
	released := s.replaceLocked(obj)
	s.mu.Unlock()
	s.reportDispose(released)
}

// ReplaceIfCurrent attaches obj only while tok is still the current request.
// A stale obj is disposed instead and the session is left untouched.
//
// Parameters:
//   - tok: the request token that produced obj
//   - obj: the loaded model
//
// Returns:
//   - bool: true when obj was attached
func (s *Session) ReplaceIfCurrent(tok Token, obj *node.Node) bool {
	s.mu.Lock()
	if tok != s.token {
		s.mu.Unlock()
		zlog.Debug().Str("session", s.name).Uint64("token", uint64(tok)).Msg("dropping stale model")
		s.reportDispose(node.Dispose(obj))
		return false
	}
	released := s.replaceLocked(obj)
	s.mu.Unlock()
	s.reportDispose(released)
	return true
}

func (s *Session) replaceLocked(obj *node.Node) node.Released {
	var released node.Released
	released.Add(s.clearHelpersLocked())
	if s.current != nil && s.current != obj {
		released.Add(node.Dispose(s.current))
	}
	s.current = obj
	return released
}

// ShowPlaceholder attaches a fresh placeholder, disposing any existing one first.
//
// Returns:
//   - *node.Node: the attached placeholder
func (s *Session) ShowPlaceholder() *node.Node {
	p := node.NewPlaceholder()
	s.mu.Lock()
	old := s.placeholder
	s.placeholder = p
	s.mu.Unlock()
	s.reportDispose(node.Dispose(old))
	return p
}

// RemovePlaceholder detaches and disposes the placeholder, if any.
func (s *Session) RemovePlaceholder() {
	s.mu.Lock()
	old := s.placeholder
	s.placeholder = nil
	s.mu.Unlock()
	s.reportDispose(node.Dispose(old))
}

// RemovePlaceholderIfCurrent removes the placeholder only for the current request.
//
// Parameters:
//   - tok: the request token settling
//
// Returns:
//   - bool: true when the placeholder was removed
func (s *Session) RemovePlaceholderIfCurrent(tok Token) bool {
	s.mu.Lock()
	if tok != s.token {
		s.mu.Unlock()
		return false
	}
	old := s.placeholder
	s.placeholder = nil
	s.mu.Unlock()
	s.reportDispose(node.Dispose(old))
	return true
}

// SetHelpers replaces the debug helpers annotating the current model.
// Helpers are dropped when no model is attached, since they never outlive it.
//
// Parameters:
//   - helpers: the new helper nodes
func (s *Session) SetHelpers(helpers ...*node.Node) {
	s.mu.Lock()
	s.setHelpersLocked(helpers)
}

// SetHelpersIfCurrent replaces the helpers only for the current request.
// When tok is stale the helpers are disposed and the existing ones are kept.
//
// Parameters:
//   - tok: the request token the helpers were built for
//   - helpers: the new helper nodes
//
// Returns:
//   - bool: true when the helpers were attached
func (s *Session) SetHelpersIfCurrent(tok Token, helpers ...*node.Node) bool {
	s.mu.Lock()
	if tok != s.token {
		s.mu.Unlock()
		var released node.Released
		for _, h := range helpers {
			released.Add(node.Dispose(h))
		}
		s.reportDispose(released)
		return false
	}
	s.setHelpersLocked(helpers)
	return true
}

// setHelpersLocked is called with s.mu held and releases it.
func (s *Session) setHelpersLocked(helpers []*node.Node) {
	released := s.clearHelpersLocked()
	if s.current == nil {
		s.mu.Unlock()
		for _, h := range helpers {
			released.Add(node.Dispose(h))
		}
		s.reportDispose(released)
		return
	}
	for _, h := range helpers {
		if h != nil {
			s.helpers = append(s.helpers, h)
		}
	}
	s.mu.Unlock()
	s.reportDispose(released)
}

// ClearHelpers disposes every debug helper.
func (s *Session) ClearHelpers() {
	s.mu.Lock()
	released := s.clearHelpersLocked()
	s.mu.Unlock()
	s.reportDispose(released)
}

func (s *Session) clearHelpersLocked() node.Released {
	var released node.Released
	for _, h := range s.helpers {
		released.Add(node.Dispose(h))
	}
	s.helpers = nil
	return released
}

// SetStatus replaces the status line and notifies the status listener.
func (s *Session) SetStatus(status string) {
	s.mu.Lock()
	s.status = status
	fn := s.onStatus
	s.mu.Unlock()
	zlog.Info().Str("session", s.name).Msg(status)
	if fn != nil {
		fn(status)
	}
}

// SetStatusIfCurrent sets the status only for the current request.
func (s *Session) SetStatusIfCurrent(tok Token, status string) bool {
	if !s.IsCurrent(tok) {
		return false
	}
	s.SetStatus(status)
	return true
}

// Status returns the current status line.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Model returns the attached model, or nil.
func (s *Session) Model() *node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Placeholder returns the attached placeholder, or nil.
func (s *Session) Placeholder() *node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placeholder
}

// Helpers returns a copy of the attached debug helpers.
func (s *Session) Helpers() []*node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*node.Node(nil), s.helpers...)
}

// Lights returns the session's lighting rig.
func (s *Session) Lights() *node.Node { return s.lights }

// Objects returns a snapshot of everything currently attached, in draw order.
// The render loop reads this once per frame.
func (s *Session) Objects() []*node.Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*node.Node, 0, 3+len(s.helpers))
	out = append(out, s.lights)
	if s.current != nil {
		out = append(out, s.current)
	}
	if s.placeholder != nil {
		out = append(out, s.placeholder)
	}
	return append(out, s.helpers...)
}

// Step advances per-frame animation of the attached objects.
func (s *Session) Step() {
	s.mu.Lock()
	p := s.placeholder
	s.mu.Unlock()
	if p != nil {
		p.Step()
	}
}

// Teardown disposes everything the session owns and invalidates outstanding requests.
func (s *Session) Teardown() {
	s.mu.Lock()
	s.token++
	released := s.replaceLocked(nil)
	released.Add(node.Dispose(s.placeholder))
	s.placeholder = nil
	s.mu.Unlock()
	s.reportDispose(released)
}

func (s *Session) reportDispose(r node.Released) {
	if r.Total() == 0 {
		return
	}
	zlog.Debug().Str("session", s.name).
		Int("geometries", r.Geometries).
		Int("textures", r.Textures).
		Int("materials", r.Materials).
		Msg("released resources")
	if s.onDispose != nil {
		s.onDispose(r)
	}
}
