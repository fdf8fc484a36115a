// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin

import (
	"fmt"

	"github.com/promptdeck/promptdeck/pkg/provider"
)

// ResolveSettings merges user-entered values with a manifest's declared
// parameters into a settings map.
//
// Declared parameters with a user value are copied verbatim; type-specific
// input validation (email shape, url shape) is a UI concern and is not
// re-validated here. Declared parameters without a user value stay absent
// from the result so plugins can default at call time. Keys that match no
// declared parameter id fail with ErrUnrecognizedParameter.
func ResolveSettings(m *Manifest, userValues map[string]string) (provider.Settings, error) {
	declared := make(map[string]bool, len(m.Parameters))
	for _, p := range m.Parameters {
		declared[p.ID] = true
	}

	for key := range userValues {
		if !declared[key] {
			return nil, fmt.Errorf("%w: %q is not declared by plugin %s", ErrUnrecognizedParameter, key, m.Name)
		}
	}

	settings := make(provider.Settings, len(userValues))
	for _, p := range m.Parameters {
		if v, ok := userValues[p.ID]; ok {
			settings[p.ID] = v
		}
	}

	return settings, nil
}
