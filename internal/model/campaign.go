// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "time"

// Campaign is an ordered collection of tests run together against one
// environment.
type Campaign struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	// Environment is the default environment used when a launch does not
	// name one.
	Environment string `json:"environment,omitempty"`
	// Tests lists test ids in execution order. When empty, the tests whose
	// parent is this campaign are run in creation order.
	Tests         []string  `json:"tests,omitempty"`
	StopOnFailure bool      `json:"stop_on_failure"`
	CreatedAt     time.Time `json:"created_at"`
}

func (c *Campaign) GetID() string   { return c.ID }
func (c *Campaign) SetID(id string) { c.ID = id }

// GetParentID returns an empty string: campaigns are top-level.
func (c *Campaign) GetParentID() string { return "" }
