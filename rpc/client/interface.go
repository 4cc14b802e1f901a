package client

import (
	"context"
	"github.com/ValentinKolb/dIPC/rpc/common"
)

// IClient is the public call surface of the IPC client
type IClient interface {
	// Invoke calls fn on the main instance and blocks until its result arrives, ctx is done
	// or the client disconnects. A remote failure is returned as *common.RemoteFailure.
	Invoke(ctx context.Context, fn common.FunctionRef, args Arguments) ([]byte, error)
	// Disconnect stops the client, see Client.Disconnect
	Disconnect() error
}

// IAuxiliaryResource is a side resource whose lifetime is bound to one call.
// The client disconnects it exactly once: when the call's response arrives, when the call is
// abandoned, or when the client disconnects, whichever happens first.
type IAuxiliaryResource interface {
	// Endpoint is transmitted with the call so the main instance can reach the resource
	Endpoint() string
	// Disconnect releases the resource
	Disconnect() error
}

// ISession is the handle of the session whose main instance the client talks to
type ISession interface {
	// IPCPath returns the endpoint of the main instance (e.g. the unix socket path)
	IPCPath() string
}

// IEndpointStarter (re)starts the main instance of a session.
// StartIfNotRunning must be idempotent: it is a no-op if the main instance already runs,
// and it returns once the main instance accepts channels.
type IEndpointStarter interface {
	StartIfNotRunning(ctx context.Context, session ISession) error
}
