// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the store.Store interface.
//
// # Purpose
//
// It backs one-shot CLI runs and tests, where campaigns, tests and reports
// only need to live as long as the process.
//
// # Concurrency Model
//
// Each collection keeps its records in a sync.Map keyed by entity id.
// Reports are updated after every test of a run while API readers poll
// them, and runs of different campaigns touch disjoint keys, which is the
// access pattern sync.Map is built for. Records are stored JSON encoded so
// callers never share memory with the store.
//
// Updates of one id are serialized by a per-collection mutex so that
// concurrent merges cannot lose fields.
package inmemorystore
