package serializer

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"io"
)

// NewJSONSerializer creates a new serializer using json encoding.
// Values travel base64 encoded, which makes frames readable when debugging a session.
func NewJSONSerializer() IRPCSerializer {
	return &streamSerializerImpl{
		encode: func(w io.Writer, msg *common.Message) error { return json.NewEncoder(w).Encode(msg) },
		decode: func(r io.Reader, msg *common.Message) error { return json.NewDecoder(r).Decode(msg) },
	}
}

// NewGOBSerializer creates a new serializer using Go's gob format.
// Every frame gets a fresh encoder, so each frame carries its own type information.
func NewGOBSerializer() IRPCSerializer {
	return &streamSerializerImpl{
		encode: func(w io.Writer, msg *common.Message) error { return gob.NewEncoder(w).Encode(msg) },
		decode: func(r io.Reader, msg *common.Message) error { return gob.NewDecoder(r).Decode(msg) },
	}
}

// streamSerializerImpl implements the IRPCSerializer interface on top of a stream encoder
type streamSerializerImpl struct {
	encode func(w io.Writer, msg *common.Message) error
	decode func(r io.Reader, msg *common.Message) error
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (s *streamSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.encode(&buf, &msg); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *streamSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	// neither decoder clears fields that are absent from the frame
	*msg = common.Message{}
	return s.decode(bytes.NewReader(b), msg)
}
