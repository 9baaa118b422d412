// Package main hosts the drq CLI entrypoint and command graph.
//
// Commands talk to a running daemon over its HTTP API: queueing songs,
// inspecting and retrying failed entries, saving venues, and forcing sync
// sweeps. Configuration scaffolding and the daemon process itself live here
// too so one binary covers both sides.
package main
