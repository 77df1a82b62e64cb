package config

import (
	"context"
	"fmt"
	"os"
	"time"

	lua "github.com/yuin/gopher-lua"
)

const (
	luaFileName = "good-base.config.lua"

	luaTimeout = 5 * time.Second
)

// LuaLoader evaluates a Lua configuration chunk in a sandboxed state. The
// chunk must return a table.
type LuaLoader struct {
	getenv  func(string) string
	timeout time.Duration
}

// NewLuaLoader creates a loader whose getenv helper reads the process
// environment.
func NewLuaLoader() *LuaLoader {
	return &LuaLoader{getenv: os.Getenv, timeout: luaTimeout}
}

// WithGetenv replaces the lookup behind the getenv helper.
func (l *LuaLoader) WithGetenv(fn func(string) string) *LuaLoader {
	out := *l
	out.getenv = fn
	return &out
}

func (l *LuaLoader) Format() string   { return "lua" }
func (l *LuaLoader) FileName() string { return luaFileName }
func (l *LuaLoader) Example() []byte  { return exampleFile("good-base.config.example.lua") }

// WithTimeout bounds how long the chunk may run. Running out of time is
// fatal to the resolution.
func (l *LuaLoader) WithTimeout(d time.Duration) *LuaLoader {
	out := *l
	out.timeout = d
	return &out
}

// LoadFile runs the chunk at path and converts the returned table.
func (l *LuaLoader) LoadFile(path string) (Partial, error) {
	L := newSandbox(l.getenv)
	defer L.Close()

	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()
	L.SetContext(ctx)

	fn, err := L.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceLoad, path, err)
	}
	L.Push(fn)
	if err := L.PCall(0, 1, nil); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s did not return within %s", ErrSourceTimeout, path, l.timeout)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrSourceLoad, path, err)
	}

	ret := L.Get(-1)
	L.Pop(1)
	switch v := ret.(type) {
	case *lua.LTable:
		doc, ok := luaValue(v, map[*lua.LTable]bool{}).(map[string]any)
		if !ok {
			return nil, fmt.Errorf("%w: %s returned a list, not a table of sections", ErrMalformedConfig, path)
		}
		return partialFrom(doc)
	case *lua.LNilType:
		return nil, fmt.Errorf("%w: %s returned no value", ErrSourceLoad, path)
	default:
		return nil, fmt.Errorf("%w: %s returned a %s, not a table", ErrMalformedConfig, path, ret.Type())
	}
}

// newSandbox opens the base, table, string and math libraries only and
// removes every way of loading further code.
func newSandbox(getenv func(string) string) *lua.LState {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)
	L.SetTop(0)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require"} {
		L.SetGlobal(name, lua.LNil)
	}

	L.SetGlobal("getenv", L.NewFunction(func(L *lua.LState) int {
		v := getenv(L.CheckString(1))
		if v == "" {
			L.Push(lua.LNil)
			return 1
		}
		L.Push(lua.LString(v))
		return 1
	}))
	return L
}

// luaValue converts a Lua value to the Go values Merge understands. A
// table with contiguous integer keys from 1 becomes a list; any other
// table becomes a map. The empty table is an empty map.
func luaValue(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		if n, err := wholeInt(float64(v)); err == nil {
			return n
		}
		return float64(v)
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return luaTable(v, visited)
	default:
		return nil
	}
}

func luaTable(t *lua.LTable, visited map[*lua.LTable]bool) any {
	isArray := true
	maxN, count := 0, 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		list := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			list[i-1] = luaValue(t.RawGetInt(i), visited)
		}
		return list
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		m[k.String()] = luaValue(v, visited)
	})
	return m
}
