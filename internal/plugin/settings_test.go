// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

package plugin_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptdeck/promptdeck/internal/plugin"
)

func tokenManifest(t *testing.T) *plugin.Manifest {
	t.Helper()
	m, err := plugin.ParseManifest([]byte(validManifest))
	require.NoError(t, err)
	return m
}

func TestResolveSettings_CopiesDeclaredValues(t *testing.T) {
	m := tokenManifest(t)

	settings, err := plugin.ResolveSettings(m, map[string]string{
		"apiToken": "secret",
		"endpoint": "https://api.example.com",
	})
	require.NoError(t, err)

	v, ok := settings.Get("apiToken")
	assert.True(t, ok)
	assert.Equal(t, "secret", v)
	v, ok = settings.Get("endpoint")
	assert.True(t, ok)
	assert.Equal(t, "https://api.example.com", v)
}

func TestResolveSettings_MissingOptionalStaysAbsent(t *testing.T) {
	m := tokenManifest(t)

	settings, err := plugin.ResolveSettings(m, map[string]string{"apiToken": "secret"})
	require.NoError(t, err)

	_, ok := settings.Get("endpoint")
	assert.False(t, ok, "unset parameter must be absent, not empty string")
}

func TestResolveSettings_UnrecognizedParameter(t *testing.T) {
	m := tokenManifest(t)

	_, err := plugin.ResolveSettings(m, map[string]string{
		"apiToken": "x",
		"extra":    "y",
	})
	require.ErrorIs(t, err, plugin.ErrUnrecognizedParameter)
	assert.Contains(t, err.Error(), "extra")
}

// Every valid manifest resolved with values restricted to declared ids
// must succeed.
func TestResolveSettings_DeclaredSubsetsNeverFail(t *testing.T) {
	m := tokenManifest(t)

	subsets := []map[string]string{
		nil,
		{},
		{"apiToken": "a"},
		{"endpoint": "b"},
		{"apiToken": "a", "endpoint": "b"},
	}
	for _, user := range subsets {
		_, err := plugin.ResolveSettings(m, user)
		assert.NoError(t, err)
	}
}
