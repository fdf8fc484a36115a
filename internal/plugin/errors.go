// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin

import "errors"

// Validation errors. Always caller-fixable; never retried.
var (
	// ErrDuplicateParameterID is returned when two parameter specs share an id.
	ErrDuplicateParameterID = errors.New("duplicate parameter id")

	// ErrUnknownParameterType is returned when a parameter declares a type
	// outside the enumerated set.
	ErrUnknownParameterType = errors.New("unknown parameter type")

	// ErrUnrecognizedParameter is returned when user values contain a key
	// with no matching parameter spec. Guards against stale settings
	// surviving a manifest change.
	ErrUnrecognizedParameter = errors.New("unrecognized parameter")
)

// Load errors. Fatal to that load attempt; the registry is left unchanged.
var (
	// ErrInvalidManifest is returned when a package's manifest fails
	// parsing or validation.
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrModuleFailed is returned when the entry module crashes while its
	// top level executes during load.
	ErrModuleFailed = errors.New("module failed to load")

	// ErrMissingExport is returned when the entry module does not expose a
	// mandatory export.
	ErrMissingExport = errors.New("missing mandatory export")

	// ErrInvalidPackage is returned for malformed .ai archives.
	ErrInvalidPackage = errors.New("invalid plugin package")
)

// Invocation errors. Surfaced with plugin name and operation; never
// retried by the host.
var (
	// ErrNotLoaded is returned when operating on a plugin name that is not
	// in the registry.
	ErrNotLoaded = errors.New("plugin not loaded")

	// ErrPluginUnloaded is returned when a previously obtained handle is
	// used after unload.
	ErrPluginUnloaded = errors.New("plugin unloaded")

	// ErrTimeout is returned when a boundary call exceeds the configured
	// execution window.
	ErrTimeout = errors.New("plugin call timed out")

	// ErrPluginError wraps an error raised inside plugin code. The
	// plugin's own message is preserved verbatim; the host does not
	// interpret provider-specific failure categories.
	ErrPluginError = errors.New("plugin error")

	// ErrMalformedResult is returned when a plugin call returns an
	// unexpected value shape.
	ErrMalformedResult = errors.New("malformed plugin result")

	// ErrCatalogUnavailable is returned when list_models itself fails.
	ErrCatalogUnavailable = errors.New("model catalog unavailable")

	// ErrDefaultModelUnknown is returned when get_default_model_id names
	// an id absent from the catalog. This is a data inconsistency in the
	// plugin, not a host failure.
	ErrDefaultModelUnknown = errors.New("default model not in catalog")
)
