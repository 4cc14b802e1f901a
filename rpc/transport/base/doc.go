// Package base provides the foundation for channel transports, implementing the
// framing, the net.Conn backed channel and the server loop independent of the
// specific network protocol (Unix sockets, TCP). Protocol specific packages only
// provide connectors.
//
// Frame format:
//
//	[4 bytes: payload length (uint32, big endian)][N bytes: serialized common.Message]
//
// Channel semantics:
//
//   - Send serializes a frame and writes header and payload with one net.Buffers
//     write under a mutex, so concurrent senders never interleave.
//   - Receive returns (nil, nil) once the connection is closed. A frame that fails to
//     decode is reported as an error but leaves the channel usable; any other read
//     error closes the channel, so the next Receive reports the closed signal.
//   - Disconnect is idempotent.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific operations
//     that allow extending the base transport with different network protocols.
//
//   - NewBaseDialer: Opens channels through a client connector.
//
//   - serverTransport: Accepts connections, reads call frames and handles each call
//     in a worker goroutine, bounded per connection by a counting semaphore.
//     Responses are written to the channel the call arrived on.
//
// Thread Safety:
//
//	Send may be called from any number of goroutines. Receive is meant to be called
//	by a single reader goroutine per channel.
package base
