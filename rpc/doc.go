// Package rpc provides the inter-process control channel used by worker
// processes to call methods on one long-lived main instance and receive
// correlated, asynchronous results.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the IPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Channel abstractions with pluggable implementations
//     (Unix sockets, TCP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: The IPC client. It multiplexes concurrent calls over one channel,
//     correlates responses, releases per-call resources and reconnects (or
//     respawns) the main instance when the channel is lost.
//
//   - server: The main instance side. It dispatches call frames to registered
//     functions and answers with results or remote failures.
//
//   - wrapper: A side channel resource that can be attached to a single call.
package rpc
