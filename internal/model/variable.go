// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

// Variable is a single key/value pair of an environment.
type Variable struct {
	ID          string `json:"id"`
	Environment string `json:"environment"`
	Key         string `json:"key"`
	Value       string `json:"value"`
	Description string `json:"description,omitempty"`
	// IsRoot marks administrative variables that are never exposed to tests.
	IsRoot bool `json:"is_root,omitempty"`
}

func (v *Variable) GetID() string       { return v.ID }
func (v *Variable) SetID(id string)     { v.ID = id }
func (v *Variable) GetParentID() string { return v.Environment }

// VariableSet flattens variables into the map bare {{name}} tokens resolve
// against. Root variables are left out.
func VariableSet(vars []*Variable) map[string]string {
	set := make(map[string]string, len(vars))
	for _, v := range vars {
		if v == nil || v.IsRoot {
			continue
		}
		set[v.Key] = v.Value
	}
	return set
}
