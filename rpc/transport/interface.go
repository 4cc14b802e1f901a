package transport

import (
	"context"
	"github.com/ValentinKolb/dIPC/rpc/common"
)

// --------------------------------------------------------------------------
// Channel
// --------------------------------------------------------------------------

// IChannel is a bidirectional, message framed channel between a client and the main instance.
// Frames are delivered in FIFO order per direction. The channel does not correlate requests
// and responses, that is the job of the client.
type IChannel interface {
	// Send writes one frame. Concurrent calls are serialized, each frame is written atomically.
	Send(msg *common.Message) error
	// Receive blocks until the next frame arrives.
	// It returns (nil, nil) once the channel is closed, gracefully or not.
	// A non nil error reports a transient problem, the channel can still be used.
	Receive() (*common.Message, error)
	// Disconnect closes the channel. It is idempotent and best-effort.
	Disconnect() error
}

// IChannelDialer opens new channels to an endpoint
type IChannelDialer interface {
	// Dial opens a new channel to the endpoint (socket path, host:port)
	Dial(ctx context.Context, endpoint string) (IChannel, error)
	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc handles one call frame received by a server transport.
// It is called concurrently, one goroutine per call. The returned frame is sent back on the
// channel the call arrived on; returning nil sends nothing.
type ServerHandleFunc func(ctx context.Context, req *common.Message) (resp *common.Message)

// IRPCServerTransport is the interface for the server side of the channel
type IRPCServerTransport interface {
	// RegisterHandler registers the handler for incoming call frames
	RegisterHandler(handler ServerHandleFunc)
	// Listen binds the endpoint and serves connections until ctx is cancelled or Close is called
	Listen(ctx context.Context, config common.ServerConfig) error
	// Close stops listening and closes all open channels
	Close() error
}
