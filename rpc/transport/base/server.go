package base

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/transport"
	"golang.org/x/sync/errgroup"
	"net"
	"sync"
	"time"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates a listener and returns it
	Listen(config common.ServerConfig) (net.Listener, error)

	// GetName returns the name of the transport type (e.g., "unix", "tcp")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector         IServerConnector
	serializer        serializer.IRPCSerializer
	handler           transport.ServerHandleFunc
	config            common.ServerConfig
	maxWorkersPerConn int

	mu       sync.Mutex
	listener net.Listener
	channels map[*channel]struct{}
	closed   bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for tcp, unix, etc.)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with a per-connection worker limit
func NewBaseServerTransport(connector IServerConnector, s serializer.IRPCSerializer, maxWorkersPerConn int) transport.IRPCServerTransport {
	// minimum one worker per connection
	if maxWorkersPerConn < 1 {
		maxWorkersPerConn = 1
	}

	return &serverTransport{
		connector:         connector,
		serializer:        s,
		maxWorkersPerConn: maxWorkersPerConn,
		channels:          make(map[*channel]struct{}),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(ctx context.Context, config common.ServerConfig) error {
	if t.handler == nil {
		return fmt.Errorf("no handler registered")
	}
	t.config = config

	// Create listener using the connector
	listener, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create listener: %w", err)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		_ = listener.Close()
		return net.ErrClosed
	}
	t.listener = listener
	t.mu.Unlock()

	Logger.Infof("Starting %s server on %s with %d workers per connection",
		t.connector.GetName(), listener.Addr(), t.maxWorkersPerConn)

	g, gctx := errgroup.WithContext(ctx)

	// Close everything once the context is done (or the accept loop ended)
	g.Go(func() error {
		<-gctx.Done()
		return t.Close()
	})

	// Accept connections
	g.Go(func() error {
		var wg sync.WaitGroup
		defer wg.Wait()

		for {
			conn, err := listener.Accept()
			if err != nil {
				if errors.Is(err, net.ErrClosed) {
					return net.ErrClosed
				}
				Logger.Errorf("Accept error: %v", err)
				continue
			}

			ch := newChannel(conn, t.serializer, config.GetMaxFrameSize())
			if !t.track(ch) {
				_ = ch.Disconnect()
				return net.ErrClosed
			}

			// Handle the connection in a goroutine
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer t.untrack(ch)
				t.handleChannel(gctx, ch)
			}()
		}
	})

	if err := g.Wait(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func (t *serverTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.closed = true

	var err error
	if t.listener != nil {
		err = t.listener.Close()
	}
	for ch := range t.channels {
		_ = ch.Disconnect()
	}
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// track registers an open channel, it returns false if the server is already closed
func (t *serverTransport) track(ch *channel) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	t.channels[ch] = struct{}{}
	return true
}

func (t *serverTransport) untrack(ch *channel) {
	t.mu.Lock()
	delete(t.channels, ch)
	t.mu.Unlock()
	_ = ch.Disconnect()
}

// handleChannel handles incoming call frames for one channel
func (t *serverTransport) handleChannel(ctx context.Context, ch *channel) {
	timeout := time.Duration(t.config.TimeoutSecond) * time.Second

	// The buffered channel acts as a counting semaphore
	workerSemaphore := make(chan struct{}, t.maxWorkersPerConn)

	// Wait for all workers to finish before the channel is closed
	var wg sync.WaitGroup
	defer wg.Wait()

	// Handler function that processes one call in a worker goroutine
	handleCall := func(req *common.Message) {
		defer func() {
			<-workerSemaphore // Release semaphore slot
			wg.Done()
		}()

		start := time.Now()
		resp := t.handler(ctx, req)
		Logger.Debugf("Processed %s (seq %d) in %s", req.Ref(), req.Seq, time.Since(start))
		if resp == nil {
			return
		}

		if err := ch.sendWithin(resp, timeout); err != nil {
			Logger.Errorf("Failed to write response for seq %d: %v", req.Seq, err)
		}
	}

	for {
		req, err := ch.Receive()

		// Case undecodable frame: the sender's seq is unknown, so there is nobody to answer.
		// The stream is still in sync (or closed, which the next Receive reports).
		if err != nil {
			Logger.Warningf("Dropping unreadable frame: %v", err)
			continue
		}

		// Case closed by the client (or by us)
		if req == nil {
			Logger.Debugf("Channel closed by client")
			return
		}

		// Acquire a slot in the semaphore (blocks if maxWorkersPerConn is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)
		go handleCall(req)
	}
}
