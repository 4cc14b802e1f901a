// Package tcp implements a TCP socket-based channel transport. It is the
// fallback for platforms or deployments where the main instance cannot be
// reached through a Unix socket (e.g. a main instance in another container).
//
// This package builds on the base package, see its documentation for the
// frame format and the channel semantics.
//
// Key Components:
//
//   - clientConnector: TCP-specific implementation of base.IClientConnector
//     (sets TCP_NODELAY on every connection)
//
//   - tcpListener: TCP-specific implementation of base.IServerConnector (needs an explicit host:port)
package tcp
