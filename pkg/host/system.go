package host

import (
	"strings"

	"github.com/Shopify/go-lua"
)

// registerSystem installs the system table and routes print through the
// runtime logger.
func registerSystem(rt *Runtime, state *lua.State) {
	opts := rt.host.Options()

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "getInfo", Function: func(state *lua.State) int {
			key := lua.CheckString(state, 1)
			switch key {
			case "build":
				state.PushString(opts.Build)
			case "appName":
				state.PushString(opts.AppName)
			case "platform", "platformName":
				state.PushString(opts.Platform)
			case "runtimeId":
				state.PushString(rt.ID())
			default:
				state.PushNil()
			}
			return 1
		}},
	}, 0)
	state.SetGlobal("system")

	state.PushGoFunction(func(state *lua.State) int {
		parts := make([]string, 0, state.Top())
		for i := 1; i <= state.Top(); i++ {
			parts = append(parts, luaText(state, i))
		}
		rt.log.Info(strings.Join(parts, "\t"), "source", "script")
		return 0
	})
	state.SetGlobal("print")
}

func luaText(state *lua.State, index int) string {
	switch state.TypeOf(index) {
	case lua.TypeString, lua.TypeNumber:
		text, _ := state.ToString(index)
		return text
	case lua.TypeBoolean:
		if state.ToBoolean(index) {
			return "true"
		}
		return "false"
	case lua.TypeNil:
		return "nil"
	default:
		return lua.TypeNameOf(state, index)
	}
}
