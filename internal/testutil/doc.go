// Package testutil holds helpers shared by tests across packages: scripted
// actions, an event recorder, a concurrency-safe log buffer and HCL
// fixture helpers.
package testutil
