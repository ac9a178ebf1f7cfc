// Package action defines the contract every action plugin implements and the
// execution boundary the test runner calls through.
//
// An action describes its inputs and outputs for tooling, validates a
// resolved configuration and executes it, producing an Outcome. Outcomes are
// the only thing that leaves an action: transport failures, validation
// problems and panics are all converted into a non-zero StatusCode with a
// typed Err and human readable trace lines. Run enforces this for
// implementations that do not.
package action
