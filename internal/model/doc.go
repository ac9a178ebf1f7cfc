// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev
//
// Package model holds the domain types shared by the execution engine and its
// collaborators: actions, tests, campaigns, environment variables and the
// execution reports produced by campaign runs.
//
// # Core Concepts
//
//   - Action: one declarative operation. Its Type selects a plugin from the
//     registry, Config is handed to that plugin after variable resolution and
//     OutputMapping copies selected plugin outputs into test-local variables.
//
//   - Test: an ordered list of Actions plus the names of the test-local
//     variables it declares. Tests belong to a Campaign.
//
//   - Campaign: an ordered set of Tests run together against one environment.
//
//   - Variable: one key/value pair of an environment ("filiere"). The set of
//     variables of an environment is what bare {{name}} tokens resolve against.
//
//   - Report: the live and final state of one campaign run.
//
// The types carry json tags because the persistence layer updates documents
// field by field using those names.
package model
