package tcp

import (
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"github.com/ValentinKolb/dIPC/rpc/transport/base"
	"net"
)

// tcpListener implements the IServerConnector interface for TCP addresses
type tcpListener struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *tcpListener) GetName() string {
	return "tcp"
}

func (c *tcpListener) Listen(config common.ServerConfig) (net.Listener, error) {
	addr := config.GetEndpoint()
	if addr == "" {
		return nil, fmt.Errorf("the tcp transport needs an explicit endpoint (host:port)")
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return listener, nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewTCPServerTransport creates a TCP server transport that handles up to maxWorkersPerConn calls per channel at once
func NewTCPServerTransport(s serializer.IRPCSerializer, maxWorkersPerConn int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&tcpListener{}, s, maxWorkersPerConn)
}
