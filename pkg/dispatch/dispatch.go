// Package dispatch delivers normalized events to the script listener on the
// runtime loop. It tolerates a missing or torn-down delivery channel: such
// events are dropped and reported, never raised.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/Shopify/go-lua"

	"adsbridge/pkg/bus"
	"adsbridge/pkg/event"
	"adsbridge/pkg/host"
)

// Session is what the dispatcher needs to reach a script. It is replaced
// wholesale on every transition and never mutated in place.
type Session struct {
	ID       string
	Channel  *host.TaskDispatcher
	Listener *host.Ref
}

// WithListener returns a copy of s carrying listener.
func (s *Session) WithListener(listener *host.Ref) *Session {
	next := *s
	next.Listener = listener
	return &next
}

type Dispatcher struct {
	provider string
	bus      *bus.Bus
	log      *slog.Logger

	session atomic.Pointer[Session]
}

// New builds a dispatcher stamping provider on every event. b may be nil.
func New(provider string, b *bus.Bus, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}
	return &Dispatcher{
		provider: provider,
		bus:      b,
		log:      log.With("component", "dispatch"),
	}
}

// Current returns the active session, or nil.
func (d *Dispatcher) Current() *Session {
	return d.session.Load()
}

// Attach installs a session for channel unless one is already held. It
// reports whether the new session was installed.
func (d *Dispatcher) Attach(id string, channel *host.TaskDispatcher) bool {
	return d.session.CompareAndSwap(nil, &Session{ID: id, Channel: channel})
}

// Register stores listener in the current session unless one is already
// registered. It reports false when there is no session or a listener is
// already held.
func (d *Dispatcher) Register(listener *host.Ref) bool {
	for {
		current := d.session.Load()
		if current == nil || current.Listener.Valid() {
			return false
		}
		if d.session.CompareAndSwap(current, current.WithListener(listener)) {
			return true
		}
	}
}

// Registered reports whether a listener is held.
func (d *Dispatcher) Registered() bool {
	current := d.session.Load()
	return current != nil && current.Listener.Valid()
}

// Detach clears the session and returns the one that was active.
func (d *Dispatcher) Detach() *Session {
	return d.session.Swap(nil)
}

// Accept normalizes a raw SDK callback and dispatches it unless suppressed.
func (d *Dispatcher) Accept(native event.Native) {
	evt, ok := event.Normalize(native)
	if !ok {
		d.log.Debug("Callback suppressed", "kind", native.Kind.String())
		return
	}
	d.Dispatch(evt)
}

// Dispatch sends evt to the registered listener. It never blocks the caller
// and never panics; every outcome is published as a delivery.
func (d *Dispatcher) Dispatch(evt event.Event) {
	sess := d.session.Load()
	if sess == nil || sess.Channel == nil {
		d.log.Debug("Event dropped, no delivery channel", "phase", evt.Phase(), "type", evt.Type())
		d.publish("", evt, bus.StatusDropped, nil)
		return
	}

	sent := sess.Channel.Send(func(rt *host.Runtime) {
		d.deliver(rt, sess, evt)
	})
	if !sent {
		d.log.Debug("Event dropped, delivery channel refused", "session_id", sess.ID, "phase", evt.Phase())
		d.publish(sess.ID, evt, bus.StatusDropped, nil)
	}
}

func (d *Dispatcher) deliver(rt *host.Runtime, sess *Session, evt event.Event) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("listener panicked: %v", r)
			d.log.Error("Event delivery failed", "session_id", sess.ID, "phase", evt.Phase(), "error", err)
			d.publish(sess.ID, evt, bus.StatusFailed, err)
		}
	}()

	current := d.session.Load()
	if current == nil || current.ID != sess.ID || !current.Listener.Valid() {
		d.log.Debug("Event dropped, session changed", "session_id", sess.ID, "phase", evt.Phase())
		d.publish(sess.ID, evt, bus.StatusDropped, nil)
		return
	}

	state := rt.Lua()
	pushEvent(state, d.provider, evt)
	if err := host.DispatchEvent(state, current.Listener, event.Name); err != nil {
		d.log.Error("Event delivery failed", "session_id", sess.ID, "phase", evt.Phase(), "type", evt.Type(), "error", err)
		d.publish(sess.ID, evt, bus.StatusFailed, err)
		return
	}

	d.log.Debug("Event delivered", "session_id", sess.ID, "phase", evt.Phase(), "type", evt.Type(), "is_error", evt.IsError())
	d.publish(sess.ID, evt, bus.StatusDelivered, nil)
}

// pushEvent builds the script-facing event table on top of the stack.
func pushEvent(state *lua.State, provider string, evt event.Event) {
	host.NewEvent(state, event.Name)

	hasError := false
	for _, f := range evt.Fields() {
		if f.Key == event.KeyIsError {
			hasError = true
		}
		host.PushValue(state, f.Value)
		state.SetField(-2, f.Key)
	}
	if !hasError {
		state.PushBoolean(false)
		state.SetField(-2, event.KeyIsError)
	}

	state.PushString(provider)
	state.SetField(-2, event.KeyProvider)
}

func (d *Dispatcher) publish(sessionID string, evt event.Event, status bus.Status, err error) {
	if d.bus == nil {
		return
	}

	delivery := bus.Delivery{
		SessionID: sessionID,
		Provider:  d.provider,
		Event:     evt,
		Status:    status,
	}
	if err != nil {
		delivery.Error = err.Error()
	}
	d.bus.PublishDelivery(context.Background(), delivery)
}
