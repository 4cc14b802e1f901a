// Package cmd implements the command-line interface of dIPC. It provides commands
// for running the main instance of a session and for calling it as a worker or
// persistent client.
//
// The package is organized into several subpackages:
//
//   - serve: Runs the main instance of a session
//   - call: Client commands (call, ping, stats, perf)
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See dipc -help for a list of all commands.
package cmd
