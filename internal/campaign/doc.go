// Package campaign orchestrates runs: a campaign run executes the tests of
// a campaign in order against one environment, and an ad-hoc run executes
// a single test.
//
// # Lifecycle
//
// Launch prepares a run synchronously (it loads the campaign and its
// tests and creates a pending report) and queues the execution on the
// worker pool. The caller gets the run id back immediately; the report
// id is the run id.
//
// While the run executes, the report is persisted after every test so
// that observers see live state, and events are emitted for every step:
//
//	run_started -> (test_started -> test_completed -> run_progress)* -> run_completed
//
// Anything escaping the orchestration, a store failure or a panic, ends
// the run with status failed and a run_error event carrying the stack
// trace. A run never finishes without one of run_completed or run_error.
//
// # Stop on failure
//
// With StopOnFailure set, every test after the first non-passed one is
// recorded as skipped without being executed. Skipped tests still count
// as processed for progress, so progress always reaches 100.
//
// # Cancellation
//
// Cancel stops a run cooperatively: the running test stops before its
// next action and the remaining tests are recorded as skipped. A
// cancelled run ends failed with the error "cancelled".
package campaign
