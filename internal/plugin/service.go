// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/promptdeck/promptdeck/internal/observability"
	"github.com/promptdeck/promptdeck/pkg/provider"
)

// DefaultPromptTimeout bounds a single boundary call into plugin code.
const DefaultPromptTimeout = 60 * time.Second

// Service is the host-facing API surface: it mediates every operation
// through the registry and enforces timeout and error isolation around
// boundary calls into plugin code.
type Service struct {
	host          Host
	registry      *Registry
	pluginsDir    string
	stagingDir    string
	promptTimeout time.Duration
	metrics       *observability.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithPromptTimeout sets the execution window for boundary calls.
func WithPromptTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.promptTimeout = d
		}
	}
}

// WithMetrics attaches host metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithStagingDir sets where .ai archives are extracted.
func WithStagingDir(dir string) Option {
	return func(s *Service) {
		s.stagingDir = dir
	}
}

// NewService creates the plugin host service. host provides module
// isolation; pluginsDir is scanned for packages during ReloadAll.
func NewService(host Host, pluginsDir string, opts ...Option) *Service {
	s := &Service{
		host:          host,
		registry:      NewRegistry(),
		pluginsDir:    pluginsDir,
		stagingDir:    filepath.Join(pluginsDir, ".unpacked"),
		promptTimeout: DefaultPromptTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry exposes the underlying registry for lookups.
func (s *Service) Registry() *Registry { return s.registry }

// Names returns the names of all loaded plugins, sorted.
func (s *Service) Names() []string { return s.registry.Names() }

// Get returns the loaded plugin registered under name.
func (s *Service) Get(name string) (*LoadedPlugin, bool) { return s.registry.Get(name) }

// LoadPlugin loads a plugin from a .ai archive or an already-extracted
// package directory and registers it under its manifest name. Re-loading
// an already-registered name atomically replaces the prior entry; the old
// module instance is torn down only after the new one loaded successfully.
func (s *Service) LoadPlugin(ctx context.Context, path string) (*LoadedPlugin, error) {
	lp, err := s.loadPlugin(ctx, path)
	if err != nil {
		s.metrics.RecordLoad(filepath.Base(path), "error")
		return nil, err
	}
	s.metrics.RecordLoad(lp.Manifest().Name, "ok")
	return lp, nil
}

func (s *Service) loadPlugin(ctx context.Context, path string) (*LoadedPlugin, error) {
	dir := path
	if filepath.Ext(path) == PackageExt {
		extracted, err := ExtractPackage(path, s.stagingDir)
		if err != nil {
			return nil, err
		}
		dir = extracted
	}

	data, err := os.ReadFile(filepath.Join(dir, ManifestFileName)) //nolint:gosec // path constructed from the configured plugins dir
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}

	if err := ValidateSchema(data); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidManifest, FormatSchemaError(err))
	}
	manifest, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}

	instance, err := s.host.Load(ctx, manifest, dir)
	if err != nil {
		return nil, err
	}

	lp := NewLoadedPlugin(manifest, instance, dir, provider.Settings{})

	// Load-then-swap: the new entry is fully built before the old one is
	// replaced, and the old instance is closed only after the swap.
	old := s.registry.Swap(manifest.Name, lp)
	if old != nil {
		if cerr := old.close(); cerr != nil {
			slog.Warn("failed to close replaced plugin instance",
				"plugin", manifest.Name,
				"error", cerr)
		}
		slog.Info("replaced plugin",
			"plugin", manifest.Name,
			"old_version", old.Manifest().Version,
			"new_version", manifest.Version)
	} else {
		slog.Info("loaded plugin",
			"plugin", manifest.Name,
			"version", manifest.Version,
			"author", manifest.Author)
	}

	return lp, nil
}

// Discover finds candidate package paths in the plugins directory:
// .ai archives, already-extracted package directories, and filenames
// listed in registry.json that exist on disk.
func (s *Service) Discover(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.pluginsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // no plugins directory
		}
		return nil, fmt.Errorf("failed to read plugins directory: %w", err)
	}

	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			paths = append(paths, p)
		}
	}

	for _, entry := range entries {
		name := entry.Name()
		full := filepath.Join(s.pluginsDir, name)

		if entry.IsDir() {
			if name == filepath.Base(s.stagingDir) {
				continue
			}
			if _, err := os.Stat(filepath.Join(full, ManifestFileName)); err == nil {
				add(full)
			}
			continue
		}
		if filepath.Ext(name) == PackageExt {
			add(full)
		}
	}

	// The community registry file contributes candidate filenames only.
	regPath := filepath.Join(s.pluginsDir, RegistryFileName)
	if _, err := os.Stat(regPath); err == nil {
		regEntries, err := ReadRegistryFile(regPath)
		if err != nil {
			slog.Warn("skipping unreadable registry file",
				"path", regPath,
				"error", err)
			return paths, nil
		}
		for _, e := range regEntries {
			full := filepath.Join(s.pluginsDir, e.Filename)
			if _, err := os.Stat(full); err == nil {
				add(full)
			}
		}
	}

	return paths, nil
}

// ReloadAll discovers and loads every plugin in the plugins directory.
// Individual plugin failures are logged and skipped so one broken package
// does not keep the host from starting.
func (s *Service) ReloadAll(ctx context.Context) error {
	paths, err := s.Discover(ctx)
	if err != nil {
		return err
	}

	for _, path := range paths {
		if _, err := s.LoadPlugin(ctx, path); err != nil {
			slog.Error("failed to load plugin",
				"path", path,
				"error", err)
		}
	}

	return nil
}

// ListModels invokes the plugin's list_models export, merges in the
// optional default model id, and returns the normalized catalog.
func (s *Service) ListModels(ctx context.Context, name string) ([]provider.ModelDescriptor, error) {
	lp, ok := s.registry.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}

	ctx, cancel := context.WithTimeout(ctx, s.promptTimeout)
	defer cancel()

	start := time.Now()
	models, err := lp.ListModels(ctx, lp.Settings())
	if err != nil {
		s.metrics.RecordInvocation(name, "list_models", "error", time.Since(start))
		if errors.Is(err, ErrPluginUnloaded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: plugin %s: %w", ErrCatalogUnavailable, name, err)
	}
	s.metrics.RecordInvocation(name, "list_models", "ok", time.Since(start))

	defaultID, hasDefault, err := lp.DefaultModelID(ctx)
	if err != nil {
		if errors.Is(err, ErrPluginUnloaded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: plugin %s: %w", ErrCatalogUnavailable, name, err)
	}
	if !hasDefault {
		defaultID = ""
	}

	catalog, err := BuildCatalog(models, defaultID)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	return catalog, nil
}

// SendPrompt invokes the plugin's prompt export with the full,
// order-preserved conversation history. The call is bounded by the
// configured timeout; exceeding it fails with ErrTimeout and is never
// retried by the host, since resending a prompt to a paid or rate-limited
// remote API must not happen silently.
func (s *Service) SendPrompt(ctx context.Context, name string, settings provider.Settings, history []provider.Message, modelID string) (string, error) {
	lp, ok := s.registry.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if settings == nil {
		settings = lp.Settings()
	}

	requestID := ulid.Make().String()
	log := slog.With("plugin", name, "request_id", requestID, "model", modelID)

	ctx, cancel := context.WithTimeout(ctx, s.promptTimeout)
	defer cancel()

	start := time.Now()
	result, err := lp.Prompt(ctx, settings, history, modelID)
	elapsed := time.Since(start)

	if err != nil {
		s.metrics.RecordInvocation(name, "prompt", "error", elapsed)
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("prompt timed out", "timeout", s.promptTimeout)
			return "", fmt.Errorf("%w: plugin %s did not respond within %s", ErrTimeout, name, s.promptTimeout)
		}
		log.Warn("prompt failed", "error", err)
		return "", err
	}

	s.metrics.RecordInvocation(name, "prompt", "ok", elapsed)
	log.Debug("prompt completed", "duration", elapsed, "history_len", len(history))
	return result, nil
}

// UnloadPlugin tears down the plugin's module instance and removes it
// from the registry.
func (s *Service) UnloadPlugin(_ context.Context, name string) error {
	lp, ok := s.registry.Remove(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotLoaded, name)
	}
	if err := lp.close(); err != nil {
		return fmt.Errorf("unload plugin %s: %w", name, err)
	}
	slog.Info("unloaded plugin", "plugin", name)
	return nil
}

// Close unloads every plugin and shuts down the module host.
func (s *Service) Close(ctx context.Context) error {
	var errs []error
	for _, lp := range s.registry.Drain() {
		if err := lp.close(); err != nil {
			errs = append(errs, fmt.Errorf("close plugin %s: %w", lp.Manifest().Name, err))
		}
	}
	if err := s.host.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close host: %w", err))
	}
	return errors.Join(errs...)
}
