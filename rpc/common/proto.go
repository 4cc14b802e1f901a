package common

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single frame exchanged between a client and the main instance.
// Which fields are used depends on the type of message.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// Seq is the call id. The client assigns it, the main instance echoes it in the response.
	Seq uint64 `json:"seq"`

	// Call only fields
	Function   string `json:"function,omitempty"`    // Used for: Call
	FunctionID uint64 `json:"function_id,omitempty"` // Used for: CallByID
	Resource   string `json:"resource,omitempty"`    // Endpoint of an auxiliary resource attached to the call

	// Payload of the call (arguments) or of the response (result)
	Value []byte `json:"value,omitempty"`

	// Failure only fields
	Err string `json:"err,omitempty"` // Empty if no error, otherwise contains the remote error message
}

// Ref returns the function reference addressed by a call message
func (m *Message) Ref() FunctionRef {
	if m.MsgType == MsgTCallByID {
		return ByID(m.FunctionID)
	}
	return ByName(m.Function)
}

// IsResponse returns whether the message travels from the main instance to a client
func (m *Message) IsResponse() bool {
	return m.MsgType == MsgTResult || m.MsgType == MsgTFailure || m.MsgType == MsgTError
}

// --------------------------------------------------------------------------
// Function Reference
// --------------------------------------------------------------------------

// FunctionRef addresses a function of the main instance either by name or by numeric id
type FunctionRef struct {
	name string
	id   uint64
	byID bool
}

// ByName references a function by its registered name
func ByName(name string) FunctionRef {
	return FunctionRef{name: name}
}

// ByID references a function by its registered numeric id
func ByID(id uint64) FunctionRef {
	return FunctionRef{id: id, byID: true}
}

// Name returns the function name (empty for id references)
func (f FunctionRef) Name() string { return f.name }

// ID returns the numeric id and whether the reference is an id reference
func (f FunctionRef) ID() (uint64, bool) { return f.id, f.byID }

func (f FunctionRef) String() string {
	if f.byID {
		return "#" + strconv.FormatUint(f.id, 10)
	}
	return f.name
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewCallRequest creates a new call frame for the given function
func NewCallRequest(seq uint64, fn FunctionRef, value []byte, resource string) *Message {
	msg := &Message{
		MsgType:  MsgTCall,
		Seq:      seq,
		Function: fn.name,
		Value:    value,
		Resource: resource,
	}
	if fn.byID {
		msg.MsgType = MsgTCallByID
		msg.Function = ""
		msg.FunctionID = fn.id
	}
	return msg
}

// NewResultResponse creates a new result frame
func NewResultResponse(seq uint64, value []byte) *Message {
	return &Message{
		MsgType: MsgTResult,
		Seq:     seq,
		Value:   value,
	}
}

// NewFailureResponse creates a new frame carrying a remote failure
func NewFailureResponse(seq uint64, fn FunctionRef, err error) *Message {
	msg := &Message{
		MsgType:  MsgTFailure,
		Seq:      seq,
		Function: fn.String(),
	}
	if err != nil {
		msg.Err = err.Error()
	}
	return msg
}

// NewErrorResponse creates a new Error response (protocol level, e.g. undecodable request)
func NewErrorResponse(seq uint64, err string) *Message {
	return &Message{
		MsgType: MsgTError,
		Seq:     seq,
		Err:     err,
	}
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in IPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTCall:
		return "call"
	case MsgTCallByID:
		return "callByID"
	case MsgTResult:
		return "result"
	case MsgTFailure:
		return "failure"
	case MsgTError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	switch s {
	case "call":
		*t = MsgTCall
	case "callByID":
		*t = MsgTCallByID
	case "result":
		*t = MsgTResult
	case "failure":
		*t = MsgTFailure
	case "error":
		*t = MsgTError
	default:
		return fmt.Errorf("unknown message type: %s", s)
	}

	return nil
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	MsgTUnknown MessageType = iota

	// Outbound (client -> main instance)

	MsgTCall     // Call a function by name
	MsgTCallByID // Call a function by numeric id

	// Inbound (main instance -> client)

	MsgTResult  // Successful result of a call
	MsgTFailure // The remote function raised an error
	MsgTError   // The main instance could not process the frame at all
)
