// Package client implements the IPC client used by worker processes to call functions of the
// long-lived main instance of a session.
//
// Many calls may be outstanding at the same time. They are multiplexed over one duplex channel and
// every response is delivered to exactly the caller that issued the call, matched by the call id
// that travels with each frame.
//
// Key Components:
//
//   - Call Registry: allocates call ids and holds the completion slot and the optional auxiliary
//     resource of every pending call.
//
//   - Call Dispatcher (Client.Invoke): registers a call, sends one frame and blocks until the
//     result arrives. A remote error is returned as *common.RemoteFailure.
//
//   - Receive Loop: a single goroutine draining the channel and resolving pending calls.
//
//   - Reconnection Controller: a persistent client restarts the main instance (via an
//     IEndpointStarter) and replaces the channel when it closes. A worker stops instead.
//
// Usage Example:
//
//	config := common.DefaultClientConfig("/tmp/my-session")
//	dialer := unix.NewUnixDialer(serializer.NewBinarySerializer(), config.GetMaxFrameSize())
//
//	c := client.NewClient(config,
//	  client.WithSession(session.New(config.SessionDir)),
//	  client.WithStarter(session.NewProcessStarter(config)),
//	  client.WithDialer(dialer),
//	)
//	if err := c.Connect(ctx); err != nil {
//	  return err
//	}
//	defer c.Disconnect()
//
//	result, err := c.Invoke(ctx, common.ByName("ping"), client.Plain(nil))
//
// Thread Safety:
//
//	A Client is safe for concurrent use by multiple goroutines.
package client
