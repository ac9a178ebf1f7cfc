// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

// Action is one step of a Test.
type Action struct {
	// Type is the registry key of the plugin that executes this action.
	Type string `json:"type"`
	// Config is the raw, unresolved configuration of the action.
	Config map[string]any `json:"config,omitempty"`
	// OutputMapping maps a plugin output name to a test-local variable name.
	OutputMapping map[string]string `json:"output_mapping,omitempty"`
}
