package common

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultMaxFrameSize bounds a single frame on the wire (16 MB)
	DefaultMaxFrameSize = 16 * 1024 * 1024
	// DefaultTimeoutSecond bounds dialing and waiting for a freshly started main instance
	DefaultTimeoutSecond = 10
	// DefaultReconnectBackoffMs is the first wait after a failed reconnect
	DefaultReconnectBackoffMs = 50
	// DefaultReconnectBackoffMaxMs caps the exponential reconnect backoff
	DefaultReconnectBackoffMaxMs = 5000

	// TransportUnix and TransportTCP name the supported channel transports
	TransportUnix = "unix"
	TransportTCP  = "tcp"
)

// --------------------------------------------------------------------------
// IPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the main instance.
type ServerConfig struct {
	// SessionDir is the directory of the session the main instance serves
	SessionDir string

	// Endpoint overrides the ipc path derived from the session (socket path or host:port)
	Endpoint string
	// Transport is one of unix, tcp
	Transport string

	// TimeoutSecond bounds writing a response (0 = no deadline)
	TimeoutSecond int64
	// MaxFrameSize bounds a single frame on the wire
	MaxFrameSize int

	// Logging configuration
	LogLevel string
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Main Instance")
	addField("Session", c.SessionDir)
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.GetMaxFrameSize()))

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// GetMaxFrameSize returns the configured max frame size or the default
func (c *ServerConfig) GetMaxFrameSize() int {
	if c.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return c.MaxFrameSize
}

// --------------------------------------------------------------------------
// IPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	// SessionDir is the directory of the session whose main instance is called
	SessionDir string
	// Endpoint overrides the ipc path derived from the session
	Endpoint string
	// Transport is one of unix, tcp
	Transport string

	// Persistent selects the client variant: a persistent client restarts the main instance and
	// reconnects whenever the channel is lost, a worker (false) terminates instead
	Persistent bool

	// TimeoutSecond bounds dialing and waiting for the main instance to become ready
	TimeoutSecond int
	// ReconnectBackoffMs is the wait after the first failed reconnect, doubled on every further failure.
	// 0 disables the backoff entirely
	ReconnectBackoffMs int
	// ReconnectBackoffMaxMs caps the reconnect backoff
	ReconnectBackoffMaxMs int
	// MaxFrameSize bounds a single frame on the wire
	MaxFrameSize int

	// Logging configuration
	LogLevel string
}

// DefaultClientConfig returns a persistent client configuration for the given session
func DefaultClientConfig(sessionDir string) ClientConfig {
	return ClientConfig{
		SessionDir:            sessionDir,
		Transport:             TransportUnix,
		Persistent:            true,
		TimeoutSecond:         DefaultTimeoutSecond,
		ReconnectBackoffMs:    DefaultReconnectBackoffMs,
		ReconnectBackoffMaxMs: DefaultReconnectBackoffMaxMs,
		MaxFrameSize:          DefaultMaxFrameSize,
		LogLevel:              "info",
	}
}

// Timeout returns the configured timeout as a duration (0 = none)
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// GetMaxFrameSize returns the configured max frame size or the default
func (c *ClientConfig) GetMaxFrameSize() int {
	if c.MaxFrameSize <= 0 {
		return DefaultMaxFrameSize
	}
	return c.MaxFrameSize
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	variant := "worker"
	if c.Persistent {
		variant = "persistent client"
	}

	addSection("Client Configuration")
	addField("Session", c.SessionDir)
	addField("Variant", variant)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Max Frame Size", fmt.Sprintf("%d bytes", c.GetMaxFrameSize()))

	addSection("Transport")
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Reconnect Backoff", strconv.Itoa(c.ReconnectBackoffMs)+" ms")
	addField("Reconnect Backoff Max", strconv.Itoa(c.ReconnectBackoffMaxMs)+" ms")

	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// Session layout
// --------------------------------------------------------------------------

// SocketName is the file name of the main instance's socket inside a session directory
const SocketName = "ipc.sock"

// SocketPath returns the ipc path of the main instance of the session in dir
func SocketPath(sessionDir string) string {
	return filepath.Join(sessionDir, SocketName)
}

// GetEndpoint returns the configured endpoint or the socket path derived from the session
func (c *ServerConfig) GetEndpoint() string {
	if c.Endpoint != "" || c.Transport == TransportTCP {
		return c.Endpoint
	}
	return SocketPath(c.SessionDir)
}

// GetEndpoint returns the configured endpoint or the socket path derived from the session
func (c *ClientConfig) GetEndpoint() string {
	if c.Endpoint != "" || c.Transport == TransportTCP {
		return c.Endpoint
	}
	return SocketPath(c.SessionDir)
}
