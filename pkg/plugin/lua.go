package plugin

import (
	"errors"

	"github.com/Shopify/go-lua"

	"adsbridge/pkg/host"
)

// load is the require() loader. It attaches the requiring runtime when no
// lifecycle notification did so already.
func (p *Plugin) load(rt *host.Runtime, state *lua.State) int {
	p.dispatcher.Attach(rt.ID(), rt.Dispatcher())

	state.NewTable()
	lua.SetFunctions(state, []lua.RegistryFunction{
		{Name: "init", Function: p.luaInit},
		{Name: "load", Function: p.luaLoad},
		{Name: "show", Function: p.luaShow},
		{Name: "isLoaded", Function: p.luaIsLoaded},
	}, 0)
	return 1
}

func (p *Plugin) luaInit(state *lua.State) int {
	if p.Initialized() {
		p.log.Debug("Init ignored, listener already registered")
		return 0
	}

	if !host.IsListener(state, 1) {
		p.report(sigInit, newErrorf(ErrorInvalidArguments, "listener expected, got %s", lua.TypeNameOf(state, 1)))
		return 0
	}
	if n := state.Top(); n != 2 {
		p.report(sigInit, newErrorf(ErrorInvalidArguments, "Expected 2 arguments, got %d", n))
		return 0
	}

	opts, err := readOptions(state, 2)
	if err != nil {
		p.report(sigInit, err)
		return 0
	}

	build := hostBuild(state)
	ref := host.NewRef(state, 1)
	err = p.Init(ref, opts, build)
	if err == nil {
		return 0
	}
	ref.Release(state)
	if errors.Is(err, ErrListenerRegistered) {
		p.log.Debug("Init ignored, listener already registered")
		return 0
	}
	p.report(sigInit, err)
	return 0
}

func (p *Plugin) luaLoad(state *lua.State) int {
	if !p.Initialized() {
		p.report(sigLoad, p.notInitialized())
		return 0
	}
	if n := state.Top(); n != 2 {
		p.report(sigLoad, newErrorf(ErrorInvalidArguments, "Expected two function arguments, adUnitType, userId - got %d function arguments", n))
		return 0
	}

	adUnitType, ok := stringArg(state, 1)
	if !ok {
		p.report(sigLoad, newErrorf(ErrorInvalidType, "adUnitType (string) expected, got %s", lua.TypeNameOf(state, 1)))
		return 0
	}
	userID, ok := stringArg(state, 2)
	if !ok {
		p.report(sigLoad, newErrorf(ErrorInvalidType, "userId expected, got %s", lua.TypeNameOf(state, 2)))
		return 0
	}

	if err := p.Load(adUnitType, userID); err != nil {
		p.report(sigLoad, err)
	}
	return 0
}

func (p *Plugin) luaShow(state *lua.State) int {
	if !p.Initialized() {
		p.report(sigShow, p.notInitialized())
		return 0
	}
	if n := state.Top(); n > 2 {
		p.report(sigShow, newErrorf(ErrorInvalidArguments, "Expected one or two function arguments, adUnitType, [placementId] - got %d function arguments", n))
		return 0
	}

	adUnitType, ok := stringArg(state, 1)
	if !ok {
		p.report(sigShow, newErrorf(ErrorInvalidType, "adUnitType (string) expected, got %s", lua.TypeNameOf(state, 1)))
		return 0
	}

	placement := ""
	if !state.IsNoneOrNil(2) {
		if placement, ok = stringArg(state, 2); !ok {
			p.report(sigShow, newErrorf(ErrorInvalidType, "placementId (string) expected, got %s", lua.TypeNameOf(state, 2)))
			return 0
		}
	}

	if err := p.Show(adUnitType, placement); err != nil {
		p.report(sigShow, err)
	}
	return 0
}

func (p *Plugin) luaIsLoaded(state *lua.State) int {
	if !p.Initialized() {
		p.report(sigIsLoaded, p.notInitialized())
		return 0
	}
	if n := state.Top(); n != 1 {
		p.report(sigIsLoaded, newErrorf(ErrorInvalidArguments, "Expected one function arguments, adUnitType - got %d function arguments", n))
		return 0
	}

	adUnitType, ok := stringArg(state, 1)
	if !ok {
		p.report(sigIsLoaded, newErrorf(ErrorInvalidType, "adUnitType (string) expected, got %s", lua.TypeNameOf(state, 1)))
		return 0
	}

	loaded, err := p.IsLoaded(adUnitType)
	if err != nil {
		p.report(sigIsLoaded, err)
	}
	state.PushBoolean(loaded)
	return 1
}

// readOptions validates the init options table at index.
func readOptions(state *lua.State, index int) (Options, error) {
	opts := DefaultOptions()

	if state.TypeOf(index) != lua.TypeTable {
		return opts, newErrorf(ErrorInvalidType, "options (table) expected, got %s", lua.TypeNameOf(state, index))
	}

	state.Field(index, "appKey")
	switch state.TypeOf(-1) {
	case lua.TypeString:
		opts.AppKey, _ = state.ToString(-1)
	case lua.TypeNil:
		state.Pop(1)
		return opts, NewError(ErrorMissingOption, "options.appKey is missing")
	default:
		typeName := lua.TypeNameOf(state, -1)
		state.Pop(1)
		return opts, newErrorf(ErrorInvalidType, "options.appKey (string) expected, got %s", typeName)
	}
	state.Pop(1)

	if err := optionalString(state, index, "userId", &opts.UserID); err != nil {
		return opts, err
	}
	if err := optionalBool(state, index, "clientSideCallbacks", &opts.ClientSideCallbacks); err != nil {
		return opts, err
	}
	if err := optionalBool(state, index, "testMode", &opts.TestMode); err != nil {
		return opts, err
	}
	if err := optionalBool(state, index, "hasUserConsent", &opts.HasUserConsent); err != nil {
		return opts, err
	}
	return opts, nil
}

func optionalString(state *lua.State, index int, key string, target *string) error {
	state.Field(index, key)
	defer state.Pop(1)

	if state.IsNoneOrNil(-1) {
		return nil
	}
	if state.TypeOf(-1) != lua.TypeString {
		return newErrorf(ErrorInvalidType, "options.%s (string) expected, got %s", key, lua.TypeNameOf(state, -1))
	}
	*target, _ = state.ToString(-1)
	return nil
}

func optionalBool(state *lua.State, index int, key string, target *bool) error {
	state.Field(index, key)
	defer state.Pop(1)

	if state.IsNoneOrNil(-1) {
		return nil
	}
	if state.TypeOf(-1) != lua.TypeBoolean {
		return newErrorf(ErrorInvalidType, "options.%s (boolean) expected, got %s", key, lua.TypeNameOf(state, -1))
	}
	*target = state.ToBoolean(-1)
	return nil
}

// stringArg reads a strict string argument; numbers are not coerced.
func stringArg(state *lua.State, index int) (string, bool) {
	if state.TypeOf(index) != lua.TypeString {
		return "", false
	}
	return state.ToString(index)
}

// hostBuild asks the host for its build through system.getInfo("build").
func hostBuild(state *lua.State) string {
	top := state.Top()
	defer state.SetTop(top)

	state.Global("system")
	if state.TypeOf(-1) != lua.TypeTable {
		return ""
	}
	state.Field(-1, "getInfo")
	if !state.IsFunction(-1) {
		return ""
	}
	state.PushString("build")
	if err := state.ProtectedCall(1, 1, 0); err != nil {
		return ""
	}
	build, _ := state.ToString(-1)
	return build
}
