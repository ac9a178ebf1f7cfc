// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package model

import "time"

// RunStatus is the lifecycle state of a campaign run.
type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// TestStatus is the outcome of one test inside a run.
type TestStatus string

const (
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
	TestSkipped TestStatus = "skipped"
)

// Result is the aggregate verdict of a finished run.
type Result string

const (
	ResultSuccess Result = "success"
	ResultFailure Result = "failure"
)

// TestResult records what happened to one test of a run.
type TestResult struct {
	TestID string     `json:"test_id"`
	Status TestStatus `json:"status"`
	Log    string     `json:"log"`
}

// Report is the execution report of one campaign run. Its ID doubles as the
// run id carried by every event of that run.
type Report struct {
	ID          string       `json:"id"`
	CampaignID  string       `json:"campaign_id"`
	Environment string       `json:"environment"`
	Status      RunStatus    `json:"status"`
	Progress    int          `json:"progress"`
	Result      Result       `json:"result,omitempty"`
	Results     []TestResult `json:"results"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	StartedAt   *time.Time   `json:"started_at,omitempty"`
	FinishedAt  *time.Time   `json:"finished_at,omitempty"`
}

func (r *Report) GetID() string       { return r.ID }
func (r *Report) SetID(id string)     { r.ID = id }
func (r *Report) GetParentID() string { return r.CampaignID }

// Counts returns how many results are passed, failed and skipped.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case TestPassed:
			passed++
		case TestFailed:
			failed++
		case TestSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}
