package serializer

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
//
// Layout: [1 byte MsgType][1 byte flags][8 bytes Seq][optional fields in flag order]
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasFunction   byte = 1 << 0
	hasFunctionID byte = 1 << 1
	hasResource   byte = 1 << 2
	hasValue      byte = 1 << 3
	hasErr        byte = 1 << 4
)

// headerSize is MsgType + flags + Seq
const headerSize = 10

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, b.sizeBytes(msg))

	// Write message type and sequence id
	result[0] = byte(msg.MsgType)
	binary.BigEndian.PutUint64(result[2:headerSize], msg.Seq)

	var flags byte = 0
	pos := headerSize

	// Handle Function
	if msg.Function != "" {
		flags |= hasFunction
		pos = putBytes(result, pos, []byte(msg.Function))
	}

	// Handle FunctionID
	if msg.FunctionID > 0 {
		flags |= hasFunctionID
		binary.BigEndian.PutUint64(result[pos:pos+8], msg.FunctionID)
		pos += 8
	}

	// Handle Resource
	if msg.Resource != "" {
		flags |= hasResource
		pos = putBytes(result, pos, []byte(msg.Resource))
	}

	// Handle Value (an empty but non nil value is preserved)
	if msg.Value != nil {
		flags |= hasValue
		pos = putBytes(result, pos, msg.Value)
	}

	// Handle Err
	if msg.Err != "" {
		flags |= hasErr
		putBytes(result, pos, []byte(msg.Err))
	}

	// Set flags byte after knowing which fields are present
	result[1] = flags

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags + Seq)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	msg.MsgType = common.MessageType(data[0])
	flags := data[1]
	msg.Seq = binary.BigEndian.Uint64(data[2:headerSize])
	pos := headerSize

	var (
		field []byte
		err   error
	)

	// Read Function if present
	msg.Function = ""
	if flags&hasFunction != 0 {
		if field, pos, err = readBytes(data, pos, "function"); err != nil {
			return err
		}
		msg.Function = string(field)
	}

	// Read FunctionID if present
	msg.FunctionID = 0
	if flags&hasFunctionID != 0 {
		if pos+8 > len(data) {
			return fmt.Errorf("data too short for function id")
		}
		msg.FunctionID = binary.BigEndian.Uint64(data[pos : pos+8])
		pos += 8
	}

	// Read Resource if present
	msg.Resource = ""
	if flags&hasResource != 0 {
		if field, pos, err = readBytes(data, pos, "resource"); err != nil {
			return err
		}
		msg.Resource = string(field)
	}

	// Read Value if present
	msg.Value = nil
	if flags&hasValue != 0 {
		if field, pos, err = readBytes(data, pos, "value"); err != nil {
			return err
		}
		// copy, data may be a pooled read buffer
		msg.Value = make([]byte, len(field))
		copy(msg.Value, field)
	}

	// Read Err if present
	msg.Err = ""
	if flags&hasErr != 0 {
		if field, _, err = readBytes(data, pos, "error"); err != nil {
			return err
		}
		msg.Err = string(field)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	// Add sizes for fields that require length encoding
	if msg.Function != "" {
		size += 4 + len(msg.Function)
	}
	if msg.FunctionID > 0 {
		size += 8
	}
	if msg.Resource != "" {
		size += 4 + len(msg.Resource)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}

// putBytes writes a length prefixed field at pos and returns the new position
func putBytes(dst []byte, pos int, field []byte) int {
	binary.BigEndian.PutUint32(dst[pos:pos+4], uint32(len(field)))
	pos += 4
	copy(dst[pos:pos+len(field)], field)
	return pos + len(field)
}

// readBytes reads a length prefixed field at pos. The returned slice aliases data.
func readBytes(data []byte, pos int, name string) ([]byte, int, error) {
	if pos+4 > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s length", name)
	}
	n := int(binary.BigEndian.Uint32(data[pos : pos+4]))
	pos += 4
	if pos+n > len(data) {
		return nil, pos, fmt.Errorf("data too short for %s data", name)
	}
	return data[pos : pos+n], pos + n, nil
}
