package common

import (
	"errors"
	"fmt"
)

var (
	// ErrClientDisconnected is returned to callers whose call was still pending when the client disconnected,
	// and to every call issued after Disconnect()
	ErrClientDisconnected = errors.New("ipc client disconnected")
	// ErrChannelClosed is returned to calls still pending when a worker's channel closes
	ErrChannelClosed = errors.New("ipc channel closed")
	// ErrNotConnected is returned when a call is issued before a channel was attached
	ErrNotConnected = errors.New("ipc client has no channel")
	// ErrEndpointNotRunning is returned when the main instance does not answer on its ipc path
	ErrEndpointNotRunning = errors.New("main instance is not running")
	// ErrEndpointAlreadyRunning is returned by a server that finds a live instance on its ipc path
	ErrEndpointAlreadyRunning = errors.New("main instance is already running")
	// ErrFrameTooLarge is returned when a frame exceeds the configured maximum size
	ErrFrameTooLarge = errors.New("frame too large")
	// ErrUnknownFunction is the failure reported for calls to functions the main instance does not know
	ErrUnknownFunction = errors.New("unknown function")
)

// RemoteFailure wraps an error raised by the main instance while handling a call.
// It is re-raised in the context of the caller that issued the call.
type RemoteFailure struct {
	Function string // The function that failed (name or #id)
	Msg      string // The remote error message
}

// Error implements the error interface.
func (e *RemoteFailure) Error() string {
	if e.Function == "" {
		return fmt.Sprintf("remote failure: %s", e.Msg)
	}
	return fmt.Sprintf("remote failure in %s: %s", e.Function, e.Msg)
}

// FailureFromMessage converts a failure or error frame into a *RemoteFailure.
// It returns nil for any other message type.
func FailureFromMessage(msg *Message) *RemoteFailure {
	switch msg.MsgType {
	case MsgTFailure:
		return &RemoteFailure{Function: msg.Function, Msg: msg.Err}
	case MsgTError:
		return &RemoteFailure{Msg: msg.Err}
	default:
		return nil
	}
}
