// Package app contains the core application logic. It defines the main App
// struct, its configuration, and the primary execution lifecycle, decoupled
// from any specific entrypoint like a CLI or server.
//
// An App owns one store, one plugin registry, one event bus and one
// campaign runner. Definitions are loaded from HCL files and YAML
// environment files into the store before anything runs.
package app
