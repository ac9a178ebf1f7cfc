// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "time"

// Test is an ordered sequence of actions plus the test-local variables it
// declares. Declared variables start undefined and are only populated via
// an action's OutputMapping.
type Test struct {
	ID          string    `json:"id"`
	CampaignID  string    `json:"campaign_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Actions     []Action  `json:"actions"`
	Variables   []string  `json:"variables,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (t *Test) GetID() string       { return t.ID }
func (t *Test) SetID(id string)     { t.ID = id }
func (t *Test) GetParentID() string { return t.CampaignID }
