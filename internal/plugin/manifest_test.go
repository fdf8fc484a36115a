// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/plugin"
)

const validManifest = `{
	"name": "acme-provider",
	"author": "Acme Labs",
	"description": "Chat completion via the Acme API",
	"version": "1.2.0",
	"dependencies": {"fetch": "^1.0.0"},
	"parameters": [
		{"id": "apiToken", "name": "API Token", "description": "Secret token", "type": "password"},
		{"id": "endpoint", "name": "Endpoint", "type": "url"}
	]
}`

func TestParseManifest_Valid(t *testing.T) {
	m, err := plugin.ParseManifest([]byte(validManifest))
	require.NoError(t, err)

	assert.Equal(t, "acme-provider", m.Name)
	assert.Equal(t, "Acme Labs", m.Author)
	assert.Equal(t, "1.2.0", m.Version)
	assert.Equal(t, map[string]string{"fetch": "^1.0.0"}, m.Dependencies)
	require.Len(t, m.Parameters, 2)
	assert.Equal(t, plugin.TypePassword, m.Parameters[0].Type)
	assert.Equal(t, []string{"apiToken", "endpoint"}, m.ParameterIDs())
}

func TestParseManifest_VersionGrammar(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantErr bool
	}{
		{name: "plain", version: "1.0.0"},
		{name: "prerelease", version: "2.1.0-beta.1"},
		{name: "build metadata", version: "1.0.0+build.5"},
		{name: "two parts", version: "1.0", wantErr: true},
		{name: "leading v", version: "v1.0.0", wantErr: true},
		{name: "not a version", version: "latest", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"name": "p", "author": "a", "version": "` + tt.version + `"}`
			_, err := plugin.ParseManifest([]byte(doc))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "version")
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParseManifest_RequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{name: "empty document", doc: "", wantErr: "empty"},
		{name: "bad json", doc: "{", wantErr: "invalid JSON"},
		{name: "missing name", doc: `{"author": "a", "version": "1.0.0"}`, wantErr: "name is required"},
		{name: "missing author", doc: `{"name": "p", "version": "1.0.0"}`, wantErr: "author is required"},
		{name: "missing version", doc: `{"name": "p", "author": "a"}`, wantErr: "version is required"},
		{
			name:    "name too long",
			doc:     `{"name": "` + strings.Repeat("x", 65) + `", "author": "a", "version": "1.0.0"}`,
			wantErr: "64 characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := plugin.ParseManifest([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseManifest_DuplicateParameterID(t *testing.T) {
	doc := `{
		"name": "p", "author": "a", "version": "1.0.0",
		"parameters": [
			{"id": "apiToken", "name": "Token", "type": "password"},
			{"id": "apiToken", "name": "Token again", "type": "text"}
		]
	}`

	_, err := plugin.ParseManifest([]byte(doc))
	require.ErrorIs(t, err, plugin.ErrDuplicateParameterID)
	assert.Contains(t, err.Error(), "apiToken")
}

func TestParseManifest_UnknownParameterType(t *testing.T) {
	doc := `{
		"name": "p", "author": "a", "version": "1.0.0",
		"parameters": [{"id": "color", "name": "Color", "type": "checkbox"}]
	}`

	_, err := plugin.ParseManifest([]byte(doc))
	require.ErrorIs(t, err, plugin.ErrUnknownParameterType)
	assert.Contains(t, err.Error(), "checkbox")
}

func TestParseManifest_ParameterFieldsRequired(t *testing.T) {
	tests := []struct {
		name    string
		param   string
		wantErr string
	}{
		{name: "missing id", param: `{"name": "Token", "type": "password"}`, wantErr: "id is required"},
		{name: "missing name", param: `{"id": "apiToken", "type": "password"}`, wantErr: "name is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"name": "p", "author": "a", "version": "1.0.0", "parameters": [` + tt.param + `]}`
			_, err := plugin.ParseManifest([]byte(doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestParseManifest_DescriptionOptional(t *testing.T) {
	doc := `{
		"name": "p", "author": "a", "version": "1.0.0",
		"parameters": [{"id": "apiToken", "name": "Token", "type": "password"}]
	}`

	m, err := plugin.ParseManifest([]byte(doc))
	require.NoError(t, err)
	assert.Empty(t, m.Parameters[0].Description)
}
