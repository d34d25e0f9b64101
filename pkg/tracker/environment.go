package tracker

import (
	"context"
	"sync"
)

// Environment is the host browser binding the tracker instruments. An
// embedding (WASM shim, webview bridge, or the in-memory simulator below)
// exposes the current location, client hints, and two interception
// capabilities: a native popstate signal and a wrap around the programmatic
// navigation primitives. WrapNavigation must announce the new path after the
// original navigation effect and must hand back an idempotent restore.
type Environment interface {
	Location() string
	UserAgent() string
	Language() string
	Timezone() string
	ScreenResolution() string
	Viewport() string

	// BindPopState registers a handler for native back/forward transitions
	// and returns an idempotent unbind.
	BindPopState(handler func(path string)) (unbind func())

	// WrapNavigation hooks the programmatic push/replace primitives so each
	// invocation announces the new path after performing its original
	// effect. Returns ErrAlreadyPatched if a wrap is already installed.
	WrapNavigation(announce func(path string)) (restore func(), err error)

	// Geolocate resolves device coordinates, typically behind a permission
	// prompt. Implementations must honor ctx cancellation.
	Geolocate(ctx context.Context) (lat, long float64, err error)
}

// SimEnvironment is an in-memory Environment with real history semantics:
// a navigation stack, push/replace primitives, and back traversal firing the
// popstate signal. It backs tests and non-browser embeddings.
type SimEnvironment struct {
	mu          sync.Mutex
	stack       []string
	idx         int
	popHandlers map[int]func(string)
	nextHandler int
	announce    func(string)

	userAgent        string
	language         string
	timezone         string
	screenResolution string
	viewport         string
	geolocate        func(ctx context.Context) (float64, float64, error)
}

// NewSimEnvironment starts history at the given path ("/" when empty).
func NewSimEnvironment(initialPath string) *SimEnvironment {
	if initialPath == "" {
		initialPath = "/"
	}
	return &SimEnvironment{
		stack:       []string{initialPath},
		popHandlers: make(map[int]func(string)),
		userAgent:   "auditkit-sim/1.0",
	}
}

func (e *SimEnvironment) Location() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stack[e.idx]
}

func (e *SimEnvironment) UserAgent() string        { e.mu.Lock(); defer e.mu.Unlock(); return e.userAgent }
func (e *SimEnvironment) Language() string         { e.mu.Lock(); defer e.mu.Unlock(); return e.language }
func (e *SimEnvironment) Timezone() string         { e.mu.Lock(); defer e.mu.Unlock(); return e.timezone }
func (e *SimEnvironment) ScreenResolution() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.screenResolution
}
func (e *SimEnvironment) Viewport() string { e.mu.Lock(); defer e.mu.Unlock(); return e.viewport }

func (e *SimEnvironment) SetUserAgent(v string)        { e.mu.Lock(); e.userAgent = v; e.mu.Unlock() }
func (e *SimEnvironment) SetLanguage(v string)         { e.mu.Lock(); e.language = v; e.mu.Unlock() }
func (e *SimEnvironment) SetTimezone(v string)         { e.mu.Lock(); e.timezone = v; e.mu.Unlock() }
func (e *SimEnvironment) SetScreenResolution(v string) { e.mu.Lock(); e.screenResolution = v; e.mu.Unlock() }
func (e *SimEnvironment) SetViewport(v string)         { e.mu.Lock(); e.viewport = v; e.mu.Unlock() }

// SetGeolocate installs a coordinate source for Geolocate.
func (e *SimEnvironment) SetGeolocate(fn func(ctx context.Context) (float64, float64, error)) {
	e.mu.Lock()
	e.geolocate = fn
	e.mu.Unlock()
}

// Push navigates forward to path, truncating any forward history, and
// announces the transition when a navigation wrap is installed.
func (e *SimEnvironment) Push(path string) {
	e.mu.Lock()
	e.stack = append(e.stack[:e.idx+1], path)
	e.idx++
	announce := e.announce
	e.mu.Unlock()

	if announce != nil {
		announce(path)
	}
}

// Replace swaps the current history entry for path and announces the
// transition when a navigation wrap is installed.
func (e *SimEnvironment) Replace(path string) {
	e.mu.Lock()
	e.stack[e.idx] = path
	announce := e.announce
	e.mu.Unlock()

	if announce != nil {
		announce(path)
	}
}

// Back traverses one entry backwards and fires the popstate signal. A no-op
// at the start of history, matching browser behavior.
func (e *SimEnvironment) Back() {
	e.mu.Lock()
	if e.idx == 0 {
		e.mu.Unlock()
		return
	}
	e.idx--
	path := e.stack[e.idx]
	handlers := make([]func(string), 0, len(e.popHandlers))
	for _, h := range e.popHandlers {
		handlers = append(handlers, h)
	}
	e.mu.Unlock()

	for _, h := range handlers {
		h(path)
	}
}

func (e *SimEnvironment) BindPopState(handler func(path string)) (unbind func()) {
	e.mu.Lock()
	id := e.nextHandler
	e.nextHandler++
	e.popHandlers[id] = handler
	e.mu.Unlock()

	return func() {
		e.mu.Lock()
		delete(e.popHandlers, id)
		e.mu.Unlock()
	}
}

func (e *SimEnvironment) WrapNavigation(announce func(path string)) (restore func(), err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.announce != nil {
		return nil, ErrAlreadyPatched
	}
	e.announce = announce

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			e.announce = nil
			e.mu.Unlock()
		})
	}, nil
}

func (e *SimEnvironment) Geolocate(ctx context.Context) (float64, float64, error) {
	e.mu.Lock()
	fn := e.geolocate
	e.mu.Unlock()

	if fn == nil {
		return 0, 0, ErrGeolocationUnavailable
	}
	return fn(ctx)
}
