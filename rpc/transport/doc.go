// Package transport defines the interfaces and abstractions for the IPC channel
// between clients and the main instance. It provides a common contract that all
// transport implementations must fulfill.
//
// The package focuses on:
//   - A message framed, bidirectional channel (IChannel) with blocking receive
//   - Dialers that open new channels, so a client can replace a lost channel wholesale
//   - The server side contract used by the main instance
//
// Key Components:
//
//   - IChannel: Send / Receive / Disconnect. Receive returns (nil, nil) when the
//     channel is closed, which clients treat as the signal to reconnect or stop.
//
//   - IChannelDialer: Opens a channel to an endpoint (Unix socket path or TCP address).
//
//   - IRPCServerTransport: Server side transport that accepts channels and routes
//     call frames to a ServerHandleFunc.
package transport
