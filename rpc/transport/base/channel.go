package base

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

var Logger = logger.GetLogger(common.LogTagTransport)

// readBufferSize is the size of the buffered reader wrapped around every connection
const readBufferSize = 64 * 1024

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect establishes a single connection to the endpoint
	Connect(ctx context.Context, endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Channel
// -----------------------------------------------------------

// channel implements transport.IChannel on top of a single net.Conn
type channel struct {
	conn         net.Conn
	reader       *bufio.Reader
	serializer   serializer.IRPCSerializer
	maxFrameSize int

	writeMu sync.Mutex // Protects writes to the connection
	readMu  sync.Mutex // Protects the reader and readBuf
	readBuf []byte

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// NewChannel wraps an established connection into a message framed channel
func NewChannel(conn net.Conn, s serializer.IRPCSerializer, maxFrameSize int) transport.IChannel {
	return newChannel(conn, s, maxFrameSize)
}

func newChannel(conn net.Conn, s serializer.IRPCSerializer, maxFrameSize int) *channel {
	if maxFrameSize <= 0 {
		maxFrameSize = common.DefaultMaxFrameSize
	}
	return &channel{
		conn:         conn,
		reader:       bufio.NewReaderSize(conn, readBufferSize),
		serializer:   s,
		maxFrameSize: maxFrameSize,
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IChannel)
// --------------------------------------------------------------------------

func (c *channel) Send(msg *common.Message) error {
	return c.sendWithin(msg, 0)
}

// sendWithin sends msg and fails the write if it does not finish within timeout (0 = no limit).
// The deadline is set under the write lock, so concurrent senders never move each other's deadline.
func (c *channel) sendWithin(msg *common.Message, timeout time.Duration) error {
	if c.closed.Load() {
		return net.ErrClosed
	}

	data, err := c.serializer.Serialize(*msg)
	if err != nil {
		return fmt.Errorf("failed to serialize %s frame: %w", msg.MsgType, err)
	}
	if len(data) > c.maxFrameSize {
		return fmt.Errorf("%w: %d bytes (max %d)", common.ErrFrameTooLarge, len(data), c.maxFrameSize)
	}

	// Lock the connection only for writing
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if timeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(timeout)); err != nil {
			return fmt.Errorf("failed to set write deadline: %w", err)
		}
		defer func() { _ = c.conn.SetWriteDeadline(time.Time{}) }()
	}
	return writeFrame(c.conn, data)
}

func (c *channel) Receive() (*common.Message, error) {
	c.readMu.Lock()
	defer c.readMu.Unlock()

	if c.closed.Load() {
		return nil, nil
	}

	data, buf, err := readFrame(c.reader, c.readBuf, c.maxFrameSize)
	c.readBuf = buf

	if err != nil {
		// Case closed (by us or by the peer) -> end of channel
		if c.closed.Load() || isClosedErr(err) {
			_ = c.Disconnect()
			return nil, nil
		}

		// Case any other read error: the stream can no longer be trusted to be in sync.
		// Report it once, the next Receive returns the closed signal.
		_ = c.Disconnect()
		return nil, fmt.Errorf("error reading frame: %w", err)
	}

	// A frame that does not decode was consumed completely, the stream is still in sync
	msg := &common.Message{}
	if err := c.serializer.Deserialize(data, msg); err != nil {
		return nil, fmt.Errorf("error decoding frame: %w", err)
	}
	return msg, nil
}

func (c *channel) Disconnect() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// isClosedErr reports whether err signals that the peer or we closed the connection
func isClosedErr(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE)
}

// -----------------------------------------------------------
// Dialer (used for tcp, unix, etc.)
// -----------------------------------------------------------

// dialer implements transport.IChannelDialer with a transport specific connector
type dialer struct {
	connector    IClientConnector
	serializer   serializer.IRPCSerializer
	maxFrameSize int
}

// NewBaseDialer creates a new channel dialer with the specified connector
func NewBaseDialer(connector IClientConnector, s serializer.IRPCSerializer, maxFrameSize int) transport.IChannelDialer {
	return &dialer{
		connector:    connector,
		serializer:   s,
		maxFrameSize: maxFrameSize,
	}
}

func (d *dialer) GetName() string {
	return d.connector.GetName()
}

func (d *dialer) Dial(ctx context.Context, endpoint string) (transport.IChannel, error) {
	conn, err := d.connector.Connect(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", endpoint, err)
	}
	Logger.Debugf("Opened %s channel to %s", d.connector.GetName(), endpoint)
	return newChannel(conn, d.serializer, d.maxFrameSize), nil
}
