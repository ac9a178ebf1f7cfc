// Package registry maps plugin keys to the compiled implementations that
// serve them.
//
// Plugins are contributed by modules. A module is an ordinary Go value whose
// Register method records one or more plugin factories in a Table; the list
// of modules is compiled into the binary, so there is no runtime code
// loading. Discovery walks that list, containing every failure to the
// module that caused it: an error or panic while registering is recorded as
// a LoadError and the scan continues with the next module. Two modules
// claiming the same key is a hard error and nothing is published.
//
// The set of live plugins is an immutable snapshot behind an atomic
// pointer. Reload builds a complete new snapshot and swaps it in with a
// single store, so lookups running concurrently always observe either the
// old or the new set, never a partial one.
package registry
