package serializer

import (
	"github.com/ValentinKolb/dIPC/rpc/common"
	"reflect"
	"testing"
)

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of frames with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Call by name
		*common.NewCallRequest(0, common.ByName("getSelf"), []byte(`{"full":true}`), ""),

		// Call by id with an attached resource
		*common.NewCallRequest(41, common.ByID(7), []byte("args"), "/tmp/session/wrapper-1.sock"),

		// Result
		*common.NewResultResponse(3, []byte("result")),

		// Remote failure
		{
			MsgType:  common.MsgTFailure,
			Seq:      12,
			Function: "sendMessage",
			Err:      "peer not found",
		},

		// Protocol error
		*common.NewErrorResponse(1<<40, "failed to deserialize request"),
	}
}

// TestSerializerRoundTrip tests that frames can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestFunctionRefSurvivesRoundTrip checks that by-name and by-id calls stay distinguishable
func TestFunctionRefSurvivesRoundTrip(t *testing.T) {
	refs := []common.FunctionRef{common.ByName("ping"), common.ByID(1), common.ByID(1 << 33)}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for _, ref := range refs {
				data, err := serializer.Serialize(*common.NewCallRequest(5, ref, nil, ""))
				if err != nil {
					t.Fatalf("Failed to serialize call to %s: %v", ref, err)
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Fatalf("Failed to deserialize call to %s: %v", ref, err)
				}

				if result.Ref() != ref {
					t.Errorf("Function reference mismatch: expected %s, got %s", ref, result.Ref())
				}
			}
		})
	}
}

// TestEmptyValueRoundTrip checks how each format treats an empty but non nil value
func TestEmptyValueRoundTrip(t *testing.T) {
	keepsEmpty := map[string]bool{"Binary": true, "JSON": false, "GOB": false}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			s := factory()
			data, err := s.Serialize(*common.NewResultResponse(1, []byte{}))
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := s.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if len(result.Value) != 0 {
				t.Errorf("Expected an empty value, got %q", result.Value)
			}
			if (result.Value != nil) != keepsEmpty[name] {
				t.Errorf("Value nil mismatch: keeps empty = %v, got nil = %v", keepsEmpty[name], result.Value == nil)
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Result with empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTResult,
				Seq:     9,
				Value:   []byte{},
			},
		},
		{
			name: "Call without arguments",
			msg: common.Message{
				MsgType:  common.MsgTCall,
				Function: "ping",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			err = serializer.Deserialize(data, &result)
			if err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			if tc.msg.MsgType != result.MsgType {
				t.Errorf("MsgType mismatch: expected %v, got %v", tc.msg.MsgType, result.MsgType)
			}
			if tc.msg.Seq != result.Seq {
				t.Errorf("Seq mismatch: expected %d, got %d", tc.msg.Seq, result.Seq)
			}
			if tc.msg.Function != result.Function {
				t.Errorf("Function mismatch: expected '%s', got '%s'", tc.msg.Function, result.Function)
			}

			// nil and empty values must stay distinguishable
			if (tc.msg.Value == nil) != (result.Value == nil) {
				t.Errorf("Value nil/non-nil mismatch: expected %v, got %v", tc.msg.Value, result.Value)
			} else if string(tc.msg.Value) != string(result.Value) {
				t.Errorf("Value content mismatch: expected %q, got %q", tc.msg.Value, result.Value)
			}
		})
	}
}

// TestInvalidBinaryData tests how the binary serializer handles corrupt or invalid data
func TestInvalidBinaryData(t *testing.T) {
	serializer := NewBinarySerializer()

	header := func(msgType, flags byte) []byte {
		return []byte{msgType, flags, 0, 0, 0, 0, 0, 0, 0, 1}
	}

	testCases := []struct {
		name        string
		data        []byte
		expectError bool
	}{
		{
			name:        "Empty data",
			data:        []byte{},
			expectError: true,
		},
		{
			name:        "Too short header",
			data:        []byte{1, 0, 0, 0}, // Type and flags but truncated seq
			expectError: true,
		},
		{
			name:        "Valid header only",
			data:        header(1, 0),
			expectError: false,
		},
		{
			name:        "Invalid length for function",
			data:        append(header(1, 1), 0, 0, 0, 5, 'a', 'b', 'c'), // Claims length 5 but only 3 bytes provided
			expectError: true,
		},
		{
			name:        "Invalid length for value",
			data:        append(header(3, 8), 0, 0, 0, 10), // Claims value length 10 but no bytes provided
			expectError: true,
		},
		{
			name:        "Truncated function id",
			data:        append(header(2, 2), 0, 0, 0),
			expectError: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var msg common.Message
			err := serializer.Deserialize(tc.data, &msg)

			if tc.expectError && err == nil {
				t.Errorf("Expected error but got none")
			} else if !tc.expectError && err != nil {
				t.Errorf("Did not expect error but got: %v", err)
			}
		})
	}
}

func TestNewByName(t *testing.T) {
	for _, name := range []string{"json", "gob", "binary"} {
		if _, err := New(name); err != nil {
			t.Errorf("New(%q) returned error: %v", name, err)
		}
	}
	if _, err := New("yaml"); err == nil {
		t.Errorf("New(\"yaml\") should fail")
	}
}
