// Package events carries run lifecycle notifications from the engine to the
// outside world.
//
// The engine publishes Events to a Sink. Delivery is fire-and-forget: a
// sink that fails logs the failure and moves on, and nothing is retried.
// Bus fans events out to several sinks from a single dispatcher goroutine
// so publishers never block on a slow transport.
package events
