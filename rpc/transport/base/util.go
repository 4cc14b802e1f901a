package base

import (
	"encoding/binary"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"io"
	"net"
)

// frameHeaderSize is the size of the length prefix of every frame
const frameHeaderSize = 4

// writeFrame writes a frame to the connection with the format:
// - 4 bytes: data length (uint32, big endian)
// - N bytes: data payload (a serialized common.Message)
func writeFrame(conn net.Conn, data []byte) error {
	header := make([]byte, frameHeaderSize)
	binary.BigEndian.PutUint32(header, uint32(len(data)))

	b := net.Buffers{header, data}
	_, err := b.WriteTo(conn)
	return err
}

// readFrame reads a frame from r using the provided buffer.
// If the buffer is too small, it will allocate a new buffer for the data; the returned slice is
// only valid until the next call with the same buffer.
// Frames larger than maxSize are rejected with common.ErrFrameTooLarge, the stream is unusable afterwards.
func readFrame(r io.Reader, buf []byte, maxSize int) ([]byte, []byte, error) {
	var header [frameHeaderSize]byte

	// Read header
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, buf, err
	}

	contentLength := int(binary.BigEndian.Uint32(header[:]))
	if maxSize > 0 && contentLength > maxSize {
		return nil, buf, fmt.Errorf("%w: %d bytes (max %d)", common.ErrFrameTooLarge, contentLength, maxSize)
	}

	// If no data, return empty slice
	if contentLength == 0 {
		return []byte{}, buf, nil
	}

	// Check if buffer is large enough for data
	if cap(buf) < contentLength {
		buf = make([]byte, contentLength)
	}
	buf = buf[:contentLength]

	// Read data
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, buf, err
	}

	return buf, buf, nil
}
