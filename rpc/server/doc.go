// Package server implements the main instance of a session: the single long-lived process that
// owns a function table and answers the calls of all connected clients and workers.
//
// Key Components:
//
//   - Server: dispatches call frames (by name or by numeric id) to registered handlers. Every
//     handler runs in its own goroutine (bounded per channel by the transport), so slow calls do
//     not block other callers. The response echoes the caller's call id.
//
//   - HandlerFunc / Call: the handler signature. A returned error, a panic or a call to an unknown
//     function is answered with a failure frame that the client surfaces as *common.RemoteFailure.
//
//   - Built-in functions: "ping" (answers "pong" or echoes its argument) and "stats" (per function
//     call counts, failures and latencies as json, see DecodeStats).
//
// Usage Example:
//
//	config := common.ServerConfig{SessionDir: "/tmp/my-session", Transport: common.TransportUnix}
//	s := server.NewRPCServer(config, unix.NewUnixDefaultServerTransport(serializer.NewBinarySerializer()))
//
//	_ = s.RegisterWithID(1, "echo", func(ctx context.Context, call *server.Call) ([]byte, error) {
//	  return call.Value, nil
//	})
//
//	// blocks until ctx is done
//	if err := s.Serve(ctx); err != nil {
//	  log.Fatal(err)
//	}
//
// A unix socket server refuses to start if another main instance still answers on the socket path
// of the session (common.ErrEndpointAlreadyRunning). A stale socket file is removed.
package server
