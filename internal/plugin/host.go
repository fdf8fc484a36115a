// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin

import (
	"context"

	"github.com/promptdeck/promptdeck/pkg/provider"
)

// Host instantiates plugin entry modules inside an isolation context.
// The registry holds only Instance handles, never a concrete
// runtime-specific module reference.
type Host interface {
	// Load resolves and instantiates the entry module found in dir,
	// executing its top level once. A crash during load surfaces as
	// ErrModuleFailed; a missing mandatory export as ErrMissingExport.
	Load(ctx context.Context, manifest *Manifest, dir string) (Instance, error)

	// Close shuts down the host. Instances already handed out are closed
	// by their owners.
	Close(ctx context.Context) error
}

// Instance is a live module handle for one loaded plugin. All methods are
// boundary calls into plugin code and may perform network I/O; they honor
// context cancellation and deadlines.
type Instance interface {
	// Prompt invokes the module's prompt export with the full,
	// order-preserved conversation history.
	Prompt(ctx context.Context, settings provider.Settings, history []provider.Message, modelID string) (string, error)

	// ListModels invokes the module's list_models export.
	ListModels(ctx context.Context, settings provider.Settings) ([]provider.ModelDescriptor, error)

	// DefaultModelID invokes the optional get_default_model_id export.
	// ok is false when the module does not export it.
	DefaultModelID(ctx context.Context) (id string, ok bool, err error)

	// Close tears down the isolation context. Subsequent calls fail.
	Close() error
}
