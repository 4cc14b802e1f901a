// Package common provides core data structures and utilities shared across
// the IPC client, the main instance server and the transports.
//
// The package focuses on:
//   - Message protocol definition for frames exchanged over a channel
//   - Configuration structures for client and server components
//   - Custom logging implementation integrated with Dragonboat's logger package
//   - Sentinel errors and the RemoteFailure error type
//
// Key Components:
//
//   - Message: The single frame type. Outbound frames are calls (function by name
//     or by id plus arguments), inbound frames are results or failures that carry
//     the id (Seq) of the call they answer.
//
//   - FunctionRef: Addresses a function of the main instance by name or by id.
//
//   - RemoteFailure: The error re-raised in a caller's context when the main
//     instance reports that handling its call failed.
//
//   - ServerConfig / ClientConfig: Configuration of the main instance and of
//     clients (session, transport, persistence, reconnect backoff, frame limits).
//
//   - Logger: Custom logging implementation that integrates with Dragonboat's
//     logging system while providing consistent formatting across the application.
package common
