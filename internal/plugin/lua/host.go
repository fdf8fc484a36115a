// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

// Package lua runs plugin entry modules in sandboxed Lua interpreters.
// Each plugin gets its own interpreter state per boundary call, so one
// plugin's top-level failures, global mutation, or vendored dependency
// versions cannot affect another loaded plugin or the host.
package lua

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/samber/oops"
	lua "github.com/yuin/gopher-lua"
	luaparse "github.com/yuin/gopher-lua/parse"

	plugins "github.com/promptdeck/promptdeck/internal/plugin"
)

// Entry module globals making up the provider contract.
const (
	exportPrompt         = "prompt"
	exportListModels     = "list_models"
	exportDefaultModelID = "get_default_model_id"
)

// depsDir is where a package vendors its dependency modules.
const depsDir = "deps"

// Compile-time interface check.
var _ plugins.Host = (*Host)(nil)

// Host instantiates Lua entry modules.
type Host struct {
	mu     sync.Mutex
	closed bool
}

// NewHost creates a Lua module host.
func NewHost() *Host {
	return &Host{}
}

// Load compiles the entry module, executes its top level once in a fresh
// sandboxed state, and verifies the export contract. The returned
// instance re-executes the compiled chunk in a fresh state per call.
func (h *Host) Load(ctx context.Context, manifest *plugins.Manifest, dir string) (plugins.Instance, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	errCtx := oops.In("lua").With("plugin", manifest.Name).With("operation", "load")

	if h.closed {
		return nil, errCtx.New("host is closed")
	}

	entryPath := filepath.Join(dir, plugins.EntryFileName)
	code, err := os.ReadFile(filepath.Clean(entryPath))
	if err != nil {
		return nil, errCtx.With("path", entryPath).Wrap(fmt.Errorf("%w: cannot read entry module: %v", plugins.ErrModuleFailed, err))
	}

	chunk, err := luaparse.Parse(strings.NewReader(string(code)), manifest.Name)
	if err != nil {
		return nil, errCtx.Hint("syntax error").Wrap(fmt.Errorf("%w: %v", plugins.ErrModuleFailed, err))
	}
	proto, err := lua.Compile(chunk, manifest.Name)
	if err != nil {
		return nil, errCtx.Wrap(fmt.Errorf("%w: %v", plugins.ErrModuleFailed, err))
	}

	mod := &module{
		name:  manifest.Name,
		dir:   dir,
		deps:  manifest.Dependencies,
		proto: proto,
	}

	// Run the top level once so a load-time crash surfaces here, and
	// check the contract exports on the resulting globals.
	L, err := mod.newState(ctx)
	if err != nil {
		return nil, errCtx.Wrap(fmt.Errorf("%w: %v", plugins.ErrModuleFailed, err))
	}
	defer L.Close()

	for _, export := range []string{exportPrompt, exportListModels} {
		if L.GetGlobal(export).Type() != lua.LTFunction {
			return nil, errCtx.Wrap(fmt.Errorf("%w: %s", plugins.ErrMissingExport, export))
		}
	}

	switch L.GetGlobal(exportDefaultModelID).Type() {
	case lua.LTFunction:
		mod.hasDefault = true
	case lua.LTNil:
		// Optional export.
	default:
		return nil, errCtx.Wrap(fmt.Errorf("%w: %s is not callable", plugins.ErrMissingExport, exportDefaultModelID))
	}

	return mod, nil
}

// Close shuts down the host. Instances already handed out are torn down
// by the registry that owns them.
func (h *Host) Close(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

// sandboxLibraries are the only standard libraries opened in a plugin
// state. os, io, debug, and package stay closed.
var sandboxLibraries = []struct {
	name string
	open lua.LGFunction
}{
	{lua.BaseLibName, lua.OpenBase},
	{lua.TabLibName, lua.OpenTable},
	{lua.StringLibName, lua.OpenString},
	{lua.MathLibName, lua.OpenMath},
}

// blockedGlobals are base-library functions removed from the sandbox
// because they reach the filesystem or bypass the compile step.
var blockedGlobals = []string{"dofile", "loadfile", "loadstring", "load"}

// newSandboxedState creates a fresh Lua state with only safe libraries.
func newSandboxedState() (*lua.LState, error) {
	L := lua.NewState(lua.Options{
		SkipOpenLibs: true,
	})

	for _, lib := range sandboxLibraries {
		if err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.open),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name)); err != nil {
			L.Close()
			return nil, fmt.Errorf("failed to open library %s: %w", lib.name, err)
		}
	}

	for _, name := range blockedGlobals {
		L.SetGlobal(name, lua.LNil)
	}

	return L, nil
}
