// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package lua

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"

	plugins "github.com/promptdeck/promptdeck/internal/plugin"
	"github.com/promptdeck/promptdeck/pkg/provider"
)

// Compile-time interface check.
var _ plugins.Instance = (*module)(nil)

// module is a loaded entry module. It holds the compiled chunk and
// re-executes it in a fresh sandboxed state for every boundary call, so
// concurrent invocations never share interpreter state.
type module struct {
	name       string
	dir        string
	deps       map[string]string
	proto      *lua.FunctionProto
	hasDefault bool
	closed     atomic.Bool
}

// Prompt calls the module's prompt export with settings, the full
// conversation history in caller order, and the model id.
func (m *module) Prompt(ctx context.Context, settings provider.Settings, history []provider.Message, modelID string) (string, error) {
	v, err := m.invoke(ctx, "prompt", func(L *lua.LState) (any, error) {
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal(exportPrompt),
			NRet:    1,
			Protect: true,
		}, settingsTable(L, settings), historyTable(L, history), lua.LString(modelID)); err != nil {
			return nil, err
		}
		ret := L.Get(-1)
		L.Pop(1)

		s, ok := ret.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("%w: prompt returned %s, want string", plugins.ErrMalformedResult, ret.Type())
		}
		return string(s), nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ListModels calls the module's list_models export.
func (m *module) ListModels(ctx context.Context, settings provider.Settings) ([]provider.ModelDescriptor, error) {
	v, err := m.invoke(ctx, "list_models", func(L *lua.LState) (any, error) {
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal(exportListModels),
			NRet:    1,
			Protect: true,
		}, settingsTable(L, settings)); err != nil {
			return nil, err
		}
		ret := L.Get(-1)
		L.Pop(1)
		return modelsFromLua(ret)
	})
	if err != nil {
		return nil, err
	}
	return v.([]provider.ModelDescriptor), nil
}

// DefaultModelID calls the optional get_default_model_id export.
func (m *module) DefaultModelID(ctx context.Context) (string, bool, error) {
	if !m.hasDefault {
		return "", false, nil
	}

	v, err := m.invoke(ctx, "get_default_model_id", func(L *lua.LState) (any, error) {
		if err := L.CallByParam(lua.P{
			Fn:      L.GetGlobal(exportDefaultModelID),
			NRet:    1,
			Protect: true,
		}); err != nil {
			return nil, err
		}
		ret := L.Get(-1)
		L.Pop(1)

		s, ok := ret.(lua.LString)
		if !ok {
			return nil, fmt.Errorf("%w: get_default_model_id returned %s, want string", plugins.ErrMalformedResult, ret.Type())
		}
		return string(s), nil
	})
	if err != nil {
		return "", false, err
	}
	return v.(string), true, nil
}

// Close tears down the module. Fresh states are created per call, so
// closing only prevents further invocations.
func (m *module) Close() error {
	m.closed.Store(true)
	return nil
}

// invocation carries a boundary call's result across the goroutine gap.
type invocation struct {
	value any
	err   error
}

// invoke runs fn against a fresh state on its own goroutine and waits for
// the result or context cancellation. The state has the call context set,
// so the VM aborts shortly after the deadline and the goroutine releases
// its resources without affecting concurrent calls.
func (m *module) invoke(ctx context.Context, operation string, fn func(L *lua.LState) (any, error)) (any, error) {
	errCtx := oops.In("lua").With("plugin", m.name).With("operation", operation)

	if m.closed.Load() {
		return nil, errCtx.Wrap(plugins.ErrPluginUnloaded)
	}

	resultCh := make(chan invocation, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				resultCh <- invocation{err: fmt.Errorf("%w: panic: %v", plugins.ErrPluginError, r)}
			}
		}()

		L, err := m.newState(ctx)
		if err != nil {
			resultCh <- invocation{err: err}
			return
		}
		defer L.Close()

		v, err := fn(L)
		resultCh <- invocation{value: v, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, errCtx.Wrap(ctx.Err())
	case r := <-resultCh:
		if r.err != nil {
			return nil, errCtx.Wrap(m.classify(ctx, r.err))
		}
		return r.value, nil
	}
}

// classify maps raw call errors to the host taxonomy. Lua runtime errors
// become ErrPluginError carrying the plugin's own message verbatim; the
// host does not interpret provider-specific failure categories.
func (m *module) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, plugins.ErrMalformedResult) || errors.Is(err, plugins.ErrPluginError) {
		return err
	}

	var apiErr *lua.ApiError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %s", plugins.ErrPluginError, apiErr.Object.String())
	}
	return fmt.Errorf("%w: %s", plugins.ErrPluginError, err.Error())
}

// newState builds a sandboxed state bound to ctx, installs the
// package-scoped require, and executes the module's top level.
func (m *module) newState(ctx context.Context) (*lua.LState, error) {
	L, err := newSandboxedState()
	if err != nil {
		return nil, err
	}
	L.SetContext(ctx)
	m.registerRequire(L)

	L.Push(L.NewFunctionFromProto(m.proto))
	if err := L.PCall(0, lua.MultRet, nil); err != nil {
		L.Close()
		return nil, err
	}
	return L, nil
}

// registerRequire installs a require() that resolves only modules vendored
// under the plugin's own deps/ directory and declared in its manifest.
// Each plugin loads its own copies in its own state, so two plugins
// declaring the same dependency name at different versions cannot
// interfere.
func (m *module) registerRequire(L *lua.LState) {
	loaded := make(map[string]lua.LValue)

	L.SetGlobal("require", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		if v, ok := loaded[name]; ok {
			L.Push(v)
			return 1
		}

		if _, declared := m.deps[name]; !declared {
			L.RaiseError("module %q is not declared in the manifest dependencies", name)
		}
		if strings.ContainsAny(name, `/\`) || strings.Contains(name, "..") {
			L.RaiseError("invalid module name %q", name)
		}

		path := filepath.Join(m.dir, depsDir, name+".lua")
		code, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			L.RaiseError("dependency module %q not found in package", name)
		}

		fn, err := L.LoadString(string(code))
		if err != nil {
			L.RaiseError("dependency module %q failed to compile: %s", name, err.Error())
		}
		L.Push(fn)
		L.Call(0, 1)

		v := L.Get(-1)
		L.Pop(1)
		loaded[name] = v
		L.Push(v)
		return 1
	}))
}

// settingsTable converts resolved settings to a Lua table. Unset optional
// parameters are simply absent keys.
func settingsTable(L *lua.LState, settings provider.Settings) *lua.LTable {
	t := L.NewTable()
	for id, v := range settings {
		L.SetField(t, id, lua.LString(v))
	}
	return t
}

// historyTable converts conversation history to a Lua array table,
// preserving caller order exactly.
func historyTable(L *lua.LState, history []provider.Message) *lua.LTable {
	t := L.NewTable()
	for _, msg := range history {
		entry := L.NewTable()
		L.SetField(entry, "role", lua.LString(string(msg.Role)))
		L.SetField(entry, "content", lua.LString(msg.Content))
		t.Append(entry)
	}
	return t
}

// modelsFromLua converts a list_models return value to model descriptors.
func modelsFromLua(ret lua.LValue) ([]provider.ModelDescriptor, error) {
	table, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("%w: list_models returned %s, want table", plugins.ErrMalformedResult, ret.Type())
	}

	var models []provider.ModelDescriptor
	var convErr error
	index := 0
	table.ForEach(func(_, v lua.LValue) {
		index++
		if convErr != nil {
			return
		}

		entry, ok := v.(*lua.LTable)
		if !ok {
			convErr = fmt.Errorf("%w: model entry %d is %s, want table", plugins.ErrMalformedResult, index, v.Type())
			return
		}

		id, ok := entry.RawGetString("id").(lua.LString)
		if !ok || id == "" {
			convErr = fmt.Errorf("%w: model entry %d is missing required id", plugins.ErrMalformedResult, index)
			return
		}

		desc := provider.ModelDescriptor{ID: string(id)}
		if name, ok := entry.RawGetString("name").(lua.LString); ok {
			desc.Name = string(name)
		}
		models = append(models, desc)
	})
	if convErr != nil {
		return nil, convErr
	}

	return models, nil
}
