// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PromptDeck Contributors

// Package provider defines the types shared between the host and
// AI provider plugins: conversation messages, resolved settings, and
// model descriptors.
package provider

import "fmt"

// Role identifies the author of a conversation message.
type Role string

// Conversation roles.
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ParseRole converts a string to a Role.
// Unrecognized values are an error, not a silent fallback.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser, RoleAssistant:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Message is a single conversation exchange entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Settings holds resolved user-supplied values for a plugin's declared
// parameters, keyed by parameter id. A missing key means the user left
// the parameter unset; plugins default at call time.
type Settings map[string]string

// Get returns the value for id and whether it was set.
func (s Settings) Get(id string) (string, bool) {
	v, ok := s[id]
	return v, ok
}

// Clone returns a copy of the settings map.
func (s Settings) Clone() Settings {
	if s == nil {
		return nil
	}
	out := make(Settings, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// ModelDescriptor describes one model a plugin claims to support.
type ModelDescriptor struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// DisplayName returns the display name, falling back to the id.
func (m ModelDescriptor) DisplayName() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID
}
