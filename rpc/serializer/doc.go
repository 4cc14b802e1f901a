// Package serializer turns common.Message frames into bytes and back.
//
// Three formats are available, selected with New (or the --serializer flag):
//
//   - binary: hand written layout with a fixed header (type, presence flags, call id)
//     followed by the fields that are actually set. Smallest frames and the fastest
//     encoder, this is the default.
//
//   - json: readable frames, handy when a session has to be debugged with a packet dump.
//
//   - gob: Go's own format. Works, but frames are larger and encoding is slower than binary.
//
// Client and main instance must use the same format. Every implementation is stateless
// and can be shared between goroutines.
//
//	s := serializer.NewBinarySerializer()
//	data, err := s.Serialize(*common.NewCallRequest(0, common.ByName("ping"), nil, ""))
//	...
//	var msg common.Message
//	err = s.Deserialize(data, &msg)
package serializer
