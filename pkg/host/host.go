// Package host embeds a Lua runtime and models the host application around
// it: a UI execution context (the Activity), one serialized loop per script
// runtime, lifecycle notifications for plugins and a task dispatcher that
// lets other goroutines run work on the runtime loop.
package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Shopify/go-lua"
	"github.com/google/uuid"

	"adsbridge/pkg/runloop"
)

const defaultPlatform = "go"

// Options describe the host application as reported to scripts.
type Options struct {
	AppName    string
	Build      string
	Platform   string
	QueueLimit int
}

// Loader pushes a library value onto the stack and returns the number of
// values pushed. It runs on the runtime loop the first time a script
// requires the library.
type Loader func(rt *Runtime, state *lua.State) int

// RuntimeListener receives runtime lifecycle notifications. Every callback
// runs on the runtime loop, so implementations may touch rt.Lua() directly
// but must not block on the loop.
type RuntimeListener interface {
	OnLoaded(rt *Runtime)
	OnStarted(rt *Runtime)
	OnSuspended(rt *Runtime)
	OnResumed(rt *Runtime)
	OnExiting(rt *Runtime)
}

type preload struct {
	name   string
	loader Loader
}

type Host struct {
	opts     Options
	log      *slog.Logger
	activity *Activity

	mu        sync.RWMutex
	listeners []RuntimeListener
	preloads  []preload
	runtimes  map[string]*Runtime
	closed    bool
}

func New(opts Options, log *slog.Logger) *Host {
	if log == nil {
		log = slog.Default()
	}
	if opts.Platform == "" {
		opts.Platform = defaultPlatform
	}

	return &Host{
		opts:     opts,
		log:      log,
		activity: newActivity(opts.QueueLimit, log),
		runtimes: make(map[string]*Runtime),
	}
}

func (h *Host) Options() Options {
	return h.opts
}

// Activity returns the host UI context.
func (h *Host) Activity() *Activity {
	return h.activity
}

// AddRuntimeListener subscribes l to lifecycle events of runtimes launched
// after the call.
func (h *Host) AddRuntimeListener(l RuntimeListener) {
	if l == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	h.listeners = append(h.listeners, l)
}

// Preload makes a library available to require(name) in new runtimes.
func (h *Host) Preload(name string, loader Loader) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.preloads = append(h.preloads, preload{name: name, loader: loader})
}

// Launch creates a runtime, opens the standard libraries and notifies
// listeners that it is loaded. The runtime must be started with Start.
func (h *Host) Launch(ctx context.Context) (*Runtime, error) {
	h.mu.RLock()
	if h.closed {
		h.mu.RUnlock()
		return nil, errors.New("host is closed")
	}
	listeners := append([]RuntimeListener(nil), h.listeners...)
	preloads := append([]preload(nil), h.preloads...)
	h.mu.RUnlock()

	id := uuid.NewString()
	log := h.log.With("component", "host.runtime", "runtime_id", id)
	rt := &Runtime{
		id:        id,
		host:      h,
		log:       log,
		loop:      runloop.New("runtime", h.opts.QueueLimit, log),
		listeners: listeners,
		state:     StateCreated,
	}
	rt.dispatcher = &TaskDispatcher{rt: rt}

	err := rt.loop.Do(ctx, func() error {
		state := lua.NewState()
		lua.OpenLibraries(state)
		rt.lua = state

		registerSystem(rt, state)
		for _, p := range preloads {
			registerPreload(rt, state, p)
		}

		rt.setState(StateLoaded)
		rt.notify(func(l RuntimeListener) { l.OnLoaded(rt) })
		return nil
	})
	if err != nil {
		rt.loop.Close()
		return nil, fmt.Errorf("launch runtime: %w", err)
	}

	h.mu.Lock()
	h.runtimes[id] = rt
	h.mu.Unlock()

	log.Info("Runtime loaded")
	return rt, nil
}

// Close exits every live runtime and stops the UI loop.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	runtimes := make([]*Runtime, 0, len(h.runtimes))
	for _, rt := range h.runtimes {
		runtimes = append(runtimes, rt)
	}
	h.mu.Unlock()

	for _, rt := range runtimes {
		if err := rt.Exit(context.Background()); err != nil && !errors.Is(err, ErrExited) {
			h.log.Warn("Runtime exit failed", "runtime_id", rt.ID(), "error", err)
		}
	}
	h.activity.close()
}

func (h *Host) forget(rt *Runtime) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.runtimes, rt.id)
}

func registerPreload(rt *Runtime, state *lua.State, p preload) {
	loader := p.loader
	state.Global("package")
	state.Field(-1, "preload")
	state.PushGoFunction(func(state *lua.State) int {
		return loader(rt, state)
	})
	state.SetField(-2, p.name)
	state.Pop(2)
}

// Activity is the host UI context. Work posted to it runs serially on one
// goroutine, in posting order.
type Activity struct {
	loop *runloop.Loop
}

func newActivity(limit int, log *slog.Logger) *Activity {
	return &Activity{loop: runloop.New("ui", limit, log.With("component", "host.activity"))}
}

// RunOnUIThread queues fn without blocking. It reports false when the
// activity is gone.
func (a *Activity) RunOnUIThread(fn func()) bool {
	if a == nil {
		return false
	}
	return a.loop.Post(fn)
}

// Do runs fn on the UI loop and waits for it.
func (a *Activity) Do(ctx context.Context, fn func() error) error {
	return a.loop.Do(ctx, fn)
}

func (a *Activity) close() {
	a.loop.Close()
}
