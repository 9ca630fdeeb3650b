// Package main hosts the reelsmith CLI entrypoint and command graph.
//
// The Cobra command tree turns terminal invocations into pipeline runs,
// allocator previews, run ledger maintenance, and readiness reports. It
// centralizes configuration resolution, ledger access, and logger setup so
// subcommands can focus on presentation.
//
// Keep this package lean: add behaviour to the internal packages first and
// surface it here through a command or flag.
package main
