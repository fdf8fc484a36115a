// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/promptdeck/promptdeck/pkg/provider"
)

// LoadedPlugin owns a plugin's manifest, its module instance, and its
// current settings. The instance is exclusively owned and torn down
// exactly once, on unload, replacement, or host shutdown.
type LoadedPlugin struct {
	manifest *Manifest
	instance Instance
	dir      string

	mu       sync.RWMutex
	settings provider.Settings

	closed atomic.Bool
}

// NewLoadedPlugin wraps a validated manifest and a live instance.
func NewLoadedPlugin(manifest *Manifest, instance Instance, dir string, settings provider.Settings) *LoadedPlugin {
	return &LoadedPlugin{
		manifest: manifest,
		instance: instance,
		dir:      dir,
		settings: settings,
	}
}

// Manifest returns the plugin's parsed manifest.
func (p *LoadedPlugin) Manifest() *Manifest { return p.manifest }

// Dir returns the directory the plugin was loaded from.
func (p *LoadedPlugin) Dir() string { return p.dir }

// Settings returns a copy of the plugin's current settings.
func (p *LoadedPlugin) Settings() provider.Settings {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.settings.Clone()
}

// SetSettings replaces the plugin's settings. userValues is resolved
// against the manifest, so stale keys from a previous manifest revision
// are rejected.
func (p *LoadedPlugin) SetSettings(userValues map[string]string) error {
	resolved, err := ResolveSettings(p.manifest, userValues)
	if err != nil {
		return err
	}
	p.mu.Lock()
	p.settings = resolved
	p.mu.Unlock()
	return nil
}

// Prompt invokes the module's prompt export. Fails with ErrPluginUnloaded
// after unload instead of operating on stale state.
func (p *LoadedPlugin) Prompt(ctx context.Context, settings provider.Settings, history []provider.Message, modelID string) (string, error) {
	if p.closed.Load() {
		return "", fmt.Errorf("%w: %s", ErrPluginUnloaded, p.manifest.Name)
	}
	return p.instance.Prompt(ctx, settings, history, modelID)
}

// ListModels invokes the module's list_models export.
func (p *LoadedPlugin) ListModels(ctx context.Context, settings provider.Settings) ([]provider.ModelDescriptor, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("%w: %s", ErrPluginUnloaded, p.manifest.Name)
	}
	return p.instance.ListModels(ctx, settings)
}

// DefaultModelID invokes the optional get_default_model_id export.
func (p *LoadedPlugin) DefaultModelID(ctx context.Context) (string, bool, error) {
	if p.closed.Load() {
		return "", false, fmt.Errorf("%w: %s", ErrPluginUnloaded, p.manifest.Name)
	}
	return p.instance.DefaultModelID(ctx)
}

// close tears down the module instance. Idempotent.
func (p *LoadedPlugin) close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	return p.instance.Close()
}

// Registry is the process-wide table of loaded plugins keyed by manifest
// name. All mutations are atomic with respect to concurrent Get lookups;
// a lookup never observes a half-initialized entry.
type Registry struct {
	mu      sync.RWMutex
	plugins map[string]*LoadedPlugin
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{plugins: make(map[string]*LoadedPlugin)}
}

// Get returns the plugin registered under name.
func (r *Registry) Get(name string) (*LoadedPlugin, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plugins[name]
	return p, ok
}

// Names returns the registered plugin names, sorted for deterministic
// output.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.plugins))
	for name := range r.plugins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Swap registers p under name and returns the replaced entry, if any.
// The caller closes the returned entry after the swap, never before, so
// there is no window with no usable plugin of that name.
func (r *Registry) Swap(name string, p *LoadedPlugin) *LoadedPlugin {
	r.mu.Lock()
	defer r.mu.Unlock()
	old := r.plugins[name]
	r.plugins[name] = p
	return old
}

// Remove deletes the entry for name and returns it.
func (r *Registry) Remove(name string) (*LoadedPlugin, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.plugins[name]
	if ok {
		delete(r.plugins, name)
	}
	return p, ok
}

// Drain removes and returns every entry. Used at host shutdown.
func (r *Registry) Drain() []*LoadedPlugin {
	r.mu.Lock()
	defer r.mu.Unlock()

	drained := make([]*LoadedPlugin, 0, len(r.plugins))
	for _, p := range r.plugins {
		drained = append(drained, p)
	}
	r.plugins = make(map[string]*LoadedPlugin)
	return drained
}

// Len returns the number of registered plugins.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}
