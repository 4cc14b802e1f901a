package server

import (
	"context"
)

// Call is one incoming call as seen by a handler
type Call struct {
	// Seq is the caller's call id, echoed in the response
	Seq uint64
	// Function is the resolved function name (also for calls by id)
	Function string
	// Value holds the encoded arguments
	Value []byte
	// Resource is the endpoint of the auxiliary resource attached to the call ("" if none).
	// Handlers reach it with wrapper.Dial.
	Resource string
}

// HasResource reports whether the caller attached an auxiliary resource
func (c *Call) HasResource() bool {
	return c.Resource != ""
}

// HandlerFunc handles a call and returns its result.
// A returned error (or a panic) is sent back to the caller as a remote failure.
type HandlerFunc func(ctx context.Context, call *Call) ([]byte, error)
