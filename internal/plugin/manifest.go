// Package plugin implements the host runtime for AI provider plugins:
// manifest validation, parameter resolution, package discovery, the model
// catalog, and the process-wide registry of loaded plugins.
package plugin

import (
	"encoding/json"
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ParameterType is the input kind of a configurable parameter.
type ParameterType string

// Parameter types a manifest may declare. The set is closed; unknown
// values are a validation error, not a silent fallback.
const (
	TypePassword ParameterType = "password"
	TypeText     ParameterType = "text"
	TypeEmail    ParameterType = "email"
	TypeNumber   ParameterType = "number"
	TypeTel      ParameterType = "tel"
	TypeURL      ParameterType = "url"
)

// knownParameterTypes is the closed set accepted by Validate.
var knownParameterTypes = map[ParameterType]bool{
	TypePassword: true,
	TypeText:     true,
	TypeEmail:    true,
	TypeNumber:   true,
	TypeTel:      true,
	TypeURL:      true,
}

// ParameterSpec declares one configurable parameter of a plugin.
type ParameterSpec struct {
	ID          string        `json:"id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Type        ParameterType `json:"type"`
}

// Manifest represents a plugin package's manifest.json. It is parsed once
// per load and immutable afterwards.
type Manifest struct {
	Name         string            `json:"name"`
	Author       string            `json:"author"`
	Description  string            `json:"description,omitempty"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
	Parameters   []ParameterSpec   `json:"parameters,omitempty"`
}

// maxNameLength is the maximum allowed length for plugin names.
const maxNameLength = 64

// ParseManifest parses and validates a manifest.json document.
func ParseManifest(data []byte) (*Manifest, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("manifest data is empty")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Validate checks manifest constraints. It is a pure function over the
// parsed document.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(m.Name) > maxNameLength {
		return fmt.Errorf("name must be %d characters or less, got %d", maxNameLength, len(m.Name))
	}

	if m.Author == "" {
		return fmt.Errorf("author is required")
	}

	if m.Version == "" {
		return fmt.Errorf("version is required")
	}
	// Strict semver: three dot-separated non-negative integers, optionally
	// followed by pre-release/build metadata.
	if _, err := semver.StrictNewVersion(m.Version); err != nil {
		return fmt.Errorf("version %q is not a semantic version: %w", m.Version, err)
	}

	seen := make(map[string]bool, len(m.Parameters))
	for i, p := range m.Parameters {
		if p.ID == "" {
			return fmt.Errorf("parameters[%d]: id is required", i)
		}
		if p.Name == "" {
			return fmt.Errorf("parameters[%d] (%s): name is required", i, p.ID)
		}
		if seen[p.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateParameterID, p.ID)
		}
		seen[p.ID] = true

		if !knownParameterTypes[p.Type] {
			return fmt.Errorf("%w: parameter %s has type %q", ErrUnknownParameterType, p.ID, p.Type)
		}
	}

	return nil
}

// ParameterIDs returns the declared parameter ids in manifest order.
func (m *Manifest) ParameterIDs() []string {
	ids := make([]string, len(m.Parameters))
	for i, p := range m.Parameters {
		ids[i] = p.ID
	}
	return ids
}
