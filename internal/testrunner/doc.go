// Package testrunner executes the action sequence of a single test.
//
// Actions run strictly in order: later actions may consume the output
// variables of earlier ones. Before each action its configuration is
// resolved against the environment, the test-local variables and the
// collection variables as they are at that moment. The first failing
// action ends the test; everything logged up to that point is kept.
package testrunner
