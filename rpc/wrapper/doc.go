// Package wrapper provides the auxiliary resource of the IPC client: a short-lived side channel
// that lets the main instance call back into the calling process while it handles one call.
//
// The caller starts a Wrapper with its callbacks and attaches it to a call with client.WithResource.
// The socket path travels with the call frame, a handler on the main instance reaches it with Dial.
// The client disconnects the wrapper exactly once: when the response arrives, when the call is
// abandoned or when the client disconnects.
//
// Usage Example:
//
//	w, err := wrapper.New(ctx, sessionDir, s, wrapper.Callbacks{
//	  "progress": func(ctx context.Context, call *server.Call) ([]byte, error) {
//	    fmt.Printf("progress: %s\n", call.Value)
//	    return nil, nil
//	  },
//	})
//	if err != nil {
//	  return err
//	}
//	result, err := c.Invoke(ctx, common.ByName("build"), client.WithResource(args, w))
package wrapper
