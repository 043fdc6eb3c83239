package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Shopify/go-lua"

	"adsbridge/pkg/runloop"
)

var ErrExited = errors.New("runtime has exited")

// State is the lifecycle stage of a runtime.
type State string

const (
	StateCreated   State = "created"
	StateLoaded    State = "loaded"
	StateRunning   State = "running"
	StateSuspended State = "suspended"
	StateExited    State = "exited"
)

// Runtime is one Lua execution context. The Lua state is only touched on
// the runtime loop.
type Runtime struct {
	id         string
	host       *Host
	log        *slog.Logger
	loop       *runloop.Loop
	listeners  []RuntimeListener
	dispatcher *TaskDispatcher

	lua *lua.State

	mu    sync.RWMutex
	state State
}

func (rt *Runtime) ID() string {
	return rt.id
}

func (rt *Runtime) Host() *Host {
	return rt.host
}

func (rt *Runtime) Logger() *slog.Logger {
	return rt.log
}

func (rt *Runtime) State() State {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.state
}

// Lua returns the runtime's Lua state. Only valid on the runtime loop: inside
// Lua functions, lifecycle callbacks and dispatched tasks.
func (rt *Runtime) Lua() *lua.State {
	return rt.lua
}

// Dispatcher returns the channel other goroutines use to reach this runtime.
func (rt *Runtime) Dispatcher() *TaskDispatcher {
	return rt.dispatcher
}

// Start runs the main chunk and notifies listeners that the runtime started.
func (rt *Runtime) Start(ctx context.Context, name, source string) error {
	err := rt.loop.Do(ctx, func() error {
		if rt.currentState() != StateLoaded {
			return fmt.Errorf("runtime is %s", rt.currentState())
		}
		if err := lua.DoString(rt.lua, source); err != nil {
			return fmt.Errorf("run %s: %w", name, err)
		}

		rt.setState(StateRunning)
		rt.notify(func(l RuntimeListener) { l.OnStarted(rt) })
		return nil
	})
	if errors.Is(err, runloop.ErrClosed) {
		return ErrExited
	}
	if err == nil {
		rt.log.Info("Runtime started", "script", name)
	}
	return err
}

// Exec runs fn with the Lua state on the runtime loop and waits for it. The
// stack is restored to its previous height afterwards.
func (rt *Runtime) Exec(ctx context.Context, fn func(state *lua.State) error) error {
	err := rt.loop.Do(ctx, func() error {
		if rt.currentState() == StateExited {
			return ErrExited
		}
		top := rt.lua.Top()
		defer rt.lua.SetTop(top)
		return fn(rt.lua)
	})
	if errors.Is(err, runloop.ErrClosed) {
		return ErrExited
	}
	return err
}

// CallGlobal calls the global Lua function name with string arguments.
func (rt *Runtime) CallGlobal(ctx context.Context, name string, args ...string) error {
	return rt.Exec(ctx, func(state *lua.State) error {
		state.Global(name)
		if !state.IsFunction(-1) {
			return fmt.Errorf("global %q is %s, not a function", name, lua.TypeNameOf(state, -1))
		}
		for _, arg := range args {
			state.PushString(arg)
		}
		if err := state.ProtectedCall(len(args), 0, 0); err != nil {
			return fmt.Errorf("call %s: %w", name, err)
		}
		return nil
	})
}

func (rt *Runtime) Suspend(ctx context.Context) error {
	return rt.transition(ctx, StateRunning, StateSuspended, func(l RuntimeListener) { l.OnSuspended(rt) })
}

func (rt *Runtime) Resume(ctx context.Context) error {
	return rt.transition(ctx, StateSuspended, StateRunning, func(l RuntimeListener) { l.OnResumed(rt) })
}

// Exit notifies listeners, tears down the Lua state and stops the loop.
// Tasks sent afterwards are refused.
func (rt *Runtime) Exit(ctx context.Context) error {
	err := rt.loop.Do(ctx, func() error {
		if rt.currentState() == StateExited {
			return ErrExited
		}
		rt.notify(func(l RuntimeListener) { l.OnExiting(rt) })
		rt.setState(StateExited)
		rt.lua = nil
		return nil
	})
	if errors.Is(err, runloop.ErrClosed) {
		return ErrExited
	}
	if err != nil {
		return err
	}

	rt.loop.Close()
	rt.host.forget(rt)
	rt.log.Info("Runtime exited")
	return nil
}

func (rt *Runtime) transition(ctx context.Context, from, to State, notify func(RuntimeListener)) error {
	err := rt.loop.Do(ctx, func() error {
		current := rt.currentState()
		if current == StateExited {
			return ErrExited
		}
		if current != from {
			return fmt.Errorf("runtime is %s, want %s", current, from)
		}
		rt.setState(to)
		rt.notify(notify)
		return nil
	})
	if errors.Is(err, runloop.ErrClosed) {
		return ErrExited
	}
	if err == nil {
		rt.log.Debug("Runtime state changed", "state", to)
	}
	return err
}

func (rt *Runtime) notify(fn func(RuntimeListener)) {
	for _, l := range rt.listeners {
		func() {
			defer func() {
				if r := recover(); r != nil {
					rt.log.Error("Runtime listener panicked", "panic", r)
				}
			}()
			fn(l)
		}()
	}
}

func (rt *Runtime) currentState() State {
	return rt.State()
}

func (rt *Runtime) setState(state State) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.state = state
}

// Task runs on the runtime loop with the live runtime.
type Task func(rt *Runtime)

// TaskDispatcher sends tasks to one runtime's loop. Sends after the runtime
// exits are refused.
type TaskDispatcher struct {
	rt *Runtime
}

// Send queues task without blocking and reports whether it was accepted. A
// task accepted just before exit is skipped when it reaches the loop.
func (d *TaskDispatcher) Send(task Task) bool {
	if d == nil || d.rt == nil || task == nil {
		return false
	}

	rt := d.rt
	if rt.State() == StateExited {
		return false
	}

	return rt.loop.Post(func() {
		if rt.currentState() == StateExited {
			return
		}
		top := rt.lua.Top()
		defer rt.lua.SetTop(top)
		task(rt)
	})
}
