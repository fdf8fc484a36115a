// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin_test

import (
	"context"
	"sync"

	"github.com/promptdeck/promptdeck/internal/plugin"
	"github.com/promptdeck/promptdeck/pkg/provider"
)

// fakeInstance is a scriptable plugin.Instance for tests.
type fakeInstance struct {
	mu sync.Mutex

	promptFn func(ctx context.Context, settings provider.Settings, history []provider.Message, modelID string) (string, error)
	listFn   func(ctx context.Context, settings provider.Settings) ([]provider.ModelDescriptor, error)

	defaultID  string
	hasDefault bool
	defaultErr error

	promptCalls int
	gotSettings provider.Settings
	gotHistory  []provider.Message
	gotModel    string
	closed      bool
}

func (f *fakeInstance) Prompt(ctx context.Context, settings provider.Settings, history []provider.Message, modelID string) (string, error) {
	f.mu.Lock()
	f.promptCalls++
	f.gotSettings = settings
	f.gotHistory = append([]provider.Message(nil), history...)
	f.gotModel = modelID
	fn := f.promptFn
	f.mu.Unlock()

	if fn != nil {
		return fn(ctx, settings, history, modelID)
	}
	return "ok", nil
}

func (f *fakeInstance) ListModels(ctx context.Context, settings provider.Settings) ([]provider.ModelDescriptor, error) {
	if f.listFn != nil {
		return f.listFn(ctx, settings)
	}
	return nil, nil
}

func (f *fakeInstance) DefaultModelID(context.Context) (string, bool, error) {
	return f.defaultID, f.hasDefault, f.defaultErr
}

func (f *fakeInstance) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeInstance) PromptCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.promptCalls
}

func (f *fakeInstance) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// fakeHost hands out scripted instances.
type fakeHost struct {
	mu     sync.Mutex
	loadFn func(ctx context.Context, manifest *plugin.Manifest, dir string) (plugin.Instance, error)
	closed bool
}

func (h *fakeHost) Load(ctx context.Context, manifest *plugin.Manifest, dir string) (plugin.Instance, error) {
	if h.loadFn != nil {
		return h.loadFn(ctx, manifest, dir)
	}
	return &fakeInstance{}, nil
}

func (h *fakeHost) Close(context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}
