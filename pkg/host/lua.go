package host

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/Shopify/go-lua"
)

var refCounter atomic.Uint64

// Ref keeps a Lua value alive in the registry so Go code can push it back
// later. A Ref belongs to the state it was created in and is never mutated:
// Release clears the registry entry, not the Ref, so it may be read from any
// goroutine.
type Ref struct {
	key string
}

// NewRef stores the value at index in the registry.
func NewRef(state *lua.State, index int) *Ref {
	ref := &Ref{key: fmt.Sprintf("adsbridge.ref.%d", refCounter.Add(1))}
	state.PushValue(index)
	state.SetField(lua.RegistryIndex, ref.key)
	return ref
}

// Push pushes the referenced value, or nil for a released ref.
func (r *Ref) Push(state *lua.State) {
	if !r.Valid() {
		state.PushNil()
		return
	}
	state.Field(lua.RegistryIndex, r.key)
}

// Release drops the registry entry. Releasing twice is a no-op. Must run on
// the loop owning state.
func (r *Ref) Release(state *lua.State) {
	if !r.Valid() || state == nil {
		return
	}
	state.PushNil()
	state.SetField(lua.RegistryIndex, r.key)
}

// Valid reports whether r was created by NewRef. It stays true after Release.
func (r *Ref) Valid() bool {
	return r != nil && r.key != ""
}

// IsListener reports whether the value at index can receive events: a
// function, or a table expected to carry a method named after the event.
func IsListener(state *lua.State, index int) bool {
	switch state.TypeOf(index) {
	case lua.TypeFunction, lua.TypeTable:
		return true
	default:
		return false
	}
}

// NewEvent pushes a fresh event table with its name field set.
func NewEvent(state *lua.State, name string) {
	state.NewTable()
	state.PushString(name)
	state.SetField(-2, "name")
}

// PushValue pushes a Go scalar. Unsupported values are pushed as their
// string form.
func PushValue(state *lua.State, value any) {
	switch v := value.(type) {
	case nil:
		state.PushNil()
	case string:
		state.PushString(v)
	case bool:
		state.PushBoolean(v)
	case int:
		state.PushInteger(v)
	case int64:
		state.PushInteger(int(v))
	case float64:
		state.PushNumber(v)
	case fmt.Stringer:
		state.PushString(v.String())
	default:
		state.PushString(fmt.Sprint(v))
	}
}

// DispatchEvent calls the listener with the event table on top of the stack
// and pops the event. Function listeners are called as listener(event); table
// listeners as listener[eventName](listener, event).
func DispatchEvent(state *lua.State, listener *Ref, eventName string) error {
	eventIndex := state.AbsIndex(-1)
	defer state.SetTop(eventIndex - 1)

	if !listener.Valid() {
		return errors.New("listener is not registered")
	}

	listener.Push(state)
	listenerIndex := state.AbsIndex(-1)

	switch state.TypeOf(listenerIndex) {
	case lua.TypeFunction:
		state.PushValue(eventIndex)
		return state.ProtectedCall(1, 0, 0)

	case lua.TypeTable:
		state.Field(listenerIndex, eventName)
		if !state.IsFunction(-1) {
			return fmt.Errorf("listener table has no %q method, got %s", eventName, lua.TypeNameOf(state, -1))
		}
		state.PushValue(listenerIndex)
		state.PushValue(eventIndex)
		return state.ProtectedCall(2, 0, 0)

	default:
		return fmt.Errorf("listener is %s, not a function or table", lua.TypeNameOf(state, listenerIndex))
	}
}

// TableFields reads string keys of the table at index. Values keep their Lua
// type: string, bool, float64, or the type name for anything else.
func TableFields(state *lua.State, index int) map[string]any {
	output := map[string]any{}
	if state.TypeOf(index) != lua.TypeTable {
		return output
	}

	index = state.AbsIndex(index)
	state.PushNil()
	for state.Next(index) {
		if state.TypeOf(-2) == lua.TypeString {
			key, _ := state.ToString(-2)
			output[key] = toGo(state, -1)
		}
		state.Pop(1)
	}
	return output
}

func toGo(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return value
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeNil:
		return nil
	default:
		return lua.TypeNameOf(state, index)
	}
}
