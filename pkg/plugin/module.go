package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/kagura-engine/kagura/pkg/value"
	lua "github.com/yuin/gopher-lua"
)

// PluginType is the capability a module declares once at load time. It is
// never renegotiated per call.
type PluginType string

const (
	// TypeScript marks a module whose exports may be called from embedded
	// script directives. This is the default capability.
	TypeScript PluginType = "script"
)

// Module is one isolated extension unit: a sandboxed Lua state owning a
// name->function export table. States are not safe for concurrent use, so
// every call is serialized by the module's mutex.
type Module struct {
	name   string
	typ    PluginType
	state  *lua.LState
	logger *slog.Logger

	mu sync.Mutex
}

// sandboxLibs is the allowlist of Lua standard libraries opened inside a
// module. No io, no os, no debug: a plugin sees nothing but its own state.
var sandboxLibs = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// loadModule compiles and runs a plugin chunk in a fresh sandboxed state and
// reads its capability declaration.
func loadModule(name, path string, logger *slog.Logger) (*Module, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})

	for _, lib := range sandboxLibs {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open %s library: %w", lib.name, err)
		}
	}

	m := &Module{
		name:   name,
		typ:    TypeScript,
		state:  L,
		logger: logger.With("plugin", name),
	}

	// Host log builtin, so plugins can report without any output library.
	L.SetGlobal("log", L.NewFunction(func(L *lua.LState) int {
		m.logger.Info(L.OptString(1, ""))
		return 0
	}))

	if err := L.DoFile(path); err != nil {
		L.Close()
		return nil, fmt.Errorf("failed to run plugin %s: %w", name, err)
	}

	if fn, ok := L.GetGlobal("plugin_type").(*lua.LFunction); ok {
		if err := L.CallByParam(lua.P{Fn: fn, NRet: 1, Protect: true}); err != nil {
			L.Close()
			return nil, fmt.Errorf("plugin %s: plugin_type failed: %w", name, err)
		}
		declared := L.Get(-1)
		L.Pop(1)
		if s, ok := declared.(lua.LString); ok && s != "" {
			m.typ = PluginType(s)
		}
	}

	return m, nil
}

// Name returns the module name (the plugin file stem).
func (m *Module) Name() string { return m.name }

// Type returns the capability declared at load time.
func (m *Module) Type() PluginType { return m.typ }

// Exports reports whether the module exports a function under name.
func (m *Module) Exports(function string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.state.GetGlobal(function).(*lua.LFunction)
	return ok
}

// call invokes an export inside the isolation boundary. The context bounds
// execution; expiry aborts the Lua VM and reports as an execution fault. Any
// error leaves the state with a clean stack so the next call starts fresh.
func (m *Module) call(ctx context.Context, function string, args []value.Value) (res value.Value, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fn, ok := m.state.GetGlobal(function).(*lua.LFunction)
	if !ok {
		return value.Unit, fmt.Errorf("function %q not exported", function)
	}

	defer func() {
		if r := recover(); r != nil {
			res, err = value.Unit, fmt.Errorf("plugin panicked: %v", r)
			m.state.SetTop(0)
		}
	}()

	m.state.SetContext(ctx)
	defer m.state.RemoveContext()

	lvArgs := make([]lua.LValue, len(args))
	for i, a := range args {
		lvArgs[i] = toLua(a)
	}

	if err := m.state.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lvArgs...); err != nil {
		m.state.SetTop(0)
		return value.Unit, err
	}

	ret := m.state.Get(-1)
	m.state.Pop(1)
	return fromLua(ret, m.logger), nil
}

// close releases the Lua state.
func (m *Module) close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state.Close()
}

// toLua converts a host Value for the plugin boundary.
func toLua(v value.Value) lua.LValue {
	switch v.Type() {
	case value.TypeBool:
		return lua.LBool(v.AsBool())
	case value.TypeNumber:
		return lua.LNumber(v.AsNumber())
	case value.TypeText:
		return lua.LString(v.AsText())
	default:
		return lua.LNil
	}
}

// fromLua converts a plugin result back into a Value. Numbers truncate toward
// zero: the value model carries integers only. Structured results (tables,
// functions) have no host representation and degrade to Unit.
func fromLua(lv lua.LValue, logger *slog.Logger) value.Value {
	switch v := lv.(type) {
	case *lua.LNilType:
		return value.Unit
	case lua.LBool:
		return value.Bool(bool(v))
	case lua.LNumber:
		return value.Number(int64(v))
	case lua.LString:
		return value.Text(string(v))
	default:
		logger.Warn("Plugin returned unsupported type, substituting unit", "lua_type", lv.Type().String())
		return value.Unit
	}
}
