package unix

import (
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"github.com/ValentinKolb/dIPC/rpc/transport/base"
	"net"
	"os"
	"path/filepath"
	"time"
)

const (
	// defaultWorkersPerConn bounds concurrently handled calls per channel
	defaultWorkersPerConn = 64
	// probeTimeout bounds the liveness probe of an existing socket
	probeTimeout = 500 * time.Millisecond
)

// serverConnector implements the IServerConnector interface for Unix sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "unix"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.Listener, error) {
	socketPath := config.GetEndpoint()

	if err := os.MkdirAll(filepath.Dir(socketPath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create socket directory: %w", err)
	}

	// A socket file that still answers belongs to a running main instance
	if _, err := os.Stat(socketPath); err == nil {
		if IsAlive(socketPath) {
			return nil, fmt.Errorf("%w on %s", common.ErrEndpointAlreadyRunning, socketPath)
		}

		// Stale socket file left behind by a dead instance
		if err := os.RemoveAll(socketPath); err != nil {
			return nil, fmt.Errorf("failed to remove existing socket: %w", err)
		}
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create Unix socket: %w", err)
	}

	return listener, nil
}

// IsAlive reports whether something accepts connections on the socket path
func IsAlive(socketPath string) bool {
	conn, err := net.DialTimeout("unix", socketPath, probeTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixDefaultServerTransport creates a new Unix server transport with the default worker limit
func NewUnixDefaultServerTransport(s serializer.IRPCSerializer) transport.IRPCServerTransport {
	return NewUnixServerTransport(s, defaultWorkersPerConn)
}

// NewUnixServerTransport creates a new Unix server transport with the given worker limit per channel
func NewUnixServerTransport(s serializer.IRPCSerializer, maxWorkersPerConn int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, s, maxWorkersPerConn)
}
