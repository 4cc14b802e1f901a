// Package unix implements the default channel transport between clients and
// the main instance using Unix domain sockets. The socket lives in the session
// directory, so every session has exactly one main instance.
//
// This package extends the base transport layer with Unix socket-specific connectors
// while inheriting framing, request routing and error handling from the base package.
//
// Key Components:
//
//   - clientConnector: Establishes connections using Unix domain sockets
//
//   - serverConnector: Creates Unix socket listeners. A socket file that still
//     answers is owned by a live main instance and is never replaced; a stale
//     socket file is removed before listening.
//
//   - IsAlive: Liveness probe for a socket path, used by the session starter.
package unix
