// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin

import (
	"fmt"

	"github.com/promptdeck/promptdeck/pkg/provider"
)

// DefaultSuffix is appended to the promoted default model's display name.
const DefaultSuffix = " (Default)"

// BuildCatalog normalizes the model list a plugin returned from
// list_models and applies default-model promotion.
//
// Entries are deduplicated by id (first occurrence wins), and entries
// without a name get name = id. When defaultID is non-empty, the matching
// entry is rebuilt with the " (Default)" suffix and moved to index 0; a
// defaultID matching no entry is a data inconsistency and fails with
// ErrDefaultModelUnknown.
//
// BuildCatalog constructs new descriptors rather than mutating its input,
// so repeated catalog queries are idempotent and the suffix never
// accumulates.
func BuildCatalog(models []provider.ModelDescriptor, defaultID string) ([]provider.ModelDescriptor, error) {
	seen := make(map[string]bool, len(models))
	catalog := make([]provider.ModelDescriptor, 0, len(models))
	for _, m := range models {
		if m.ID == "" || seen[m.ID] {
			continue
		}
		seen[m.ID] = true
		catalog = append(catalog, provider.ModelDescriptor{
			ID:   m.ID,
			Name: m.DisplayName(),
		})
	}

	if defaultID == "" {
		return catalog, nil
	}

	idx := -1
	for i, m := range catalog {
		if m.ID == defaultID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %q", ErrDefaultModelUnknown, defaultID)
	}

	promoted := provider.ModelDescriptor{
		ID:   catalog[idx].ID,
		Name: catalog[idx].Name + DefaultSuffix,
	}

	ordered := make([]provider.ModelDescriptor, 0, len(catalog))
	ordered = append(ordered, promoted)
	ordered = append(ordered, catalog[:idx]...)
	ordered = append(ordered, catalog[idx+1:]...)
	return ordered, nil
}
