package wrapper

import (
	"context"
	"errors"
	"fmt"
	"github.com/ValentinKolb/dIPC/rpc/client"
	"github.com/ValentinKolb/dIPC/rpc/common"
	"github.com/ValentinKolb/dIPC/rpc/serializer"
	"github.com/ValentinKolb/dIPC/rpc/server"
	"github.com/ValentinKolb/dIPC/rpc/transport/unix"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
	"os"
	"path/filepath"
	"sync"
	"time"
)

var Logger = logger.GetLogger(common.LogTagWrapper)

const (
	// readyPollInterval is the interval in which New checks whether the side channel accepts connections
	readyPollInterval = 2 * time.Millisecond
	// stopTimeout bounds waiting for the side channel to shut down
	stopTimeout = 5 * time.Second
)

// Callbacks maps callback names to the handlers the main instance can call during the call
type Callbacks map[string]server.HandlerFunc

// Wrapper is an auxiliary resource: a side channel (own unix socket) that serves callbacks to the
// main instance for the lifetime of exactly one call. Attach it with client.WithResource, the client
// disconnects it when the call ends.
type Wrapper struct {
	endpoint string
	cancel   context.CancelFunc
	done     chan error

	once sync.Once
	err  error
}

var _ client.IAuxiliaryResource = (*Wrapper)(nil)

// New starts a side channel in dir serving the given callbacks. It returns once the side channel
// accepts connections.
func New(ctx context.Context, dir string, s serializer.IRPCSerializer, callbacks Callbacks) (*Wrapper, error) {
	endpoint := filepath.Join(dir, fmt.Sprintf("wrapper-%s.sock", uuid.NewString()))

	srv := server.NewRPCServer(common.ServerConfig{
		Endpoint:  endpoint,
		Transport: common.TransportUnix,
	}, unix.NewUnixDefaultServerTransport(s))

	for name, handler := range callbacks {
		if err := srv.Register(name, handler); err != nil {
			return nil, fmt.Errorf("failed to register callback: %w", err)
		}
	}

	serveCtx, cancel := context.WithCancel(context.Background())
	w := &Wrapper{
		endpoint: endpoint,
		cancel:   cancel,
		done:     make(chan error, 1),
	}
	go func() { w.done <- srv.Serve(serveCtx) }()

	ticker := time.NewTicker(readyPollInterval)
	defer ticker.Stop()
	for !unix.IsAlive(endpoint) {
		select {
		case err := <-w.done:
			cancel()
			if err == nil {
				err = errors.New("side channel stopped before it was ready")
			}
			return nil, fmt.Errorf("failed to start side channel: %w", err)
		case <-ctx.Done():
			_ = w.stop()
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}

	Logger.Debugf("Side channel ready on %s", endpoint)
	return w, nil
}

// Endpoint returns the socket path of the side channel
func (w *Wrapper) Endpoint() string {
	return w.endpoint
}

// Disconnect stops the side channel and removes its socket. Calling it again has no effect.
func (w *Wrapper) Disconnect() error {
	w.once.Do(func() {
		w.err = w.stop()
		Logger.Debugf("Side channel on %s closed", w.endpoint)
	})
	return w.err
}

// stop cancels the server and waits for it to return
func (w *Wrapper) stop() error {
	w.cancel()

	var err error
	select {
	case err = <-w.done:
	case <-time.After(stopTimeout):
		err = fmt.Errorf("side channel on %s did not stop in time", w.endpoint)
	}

	if rmErr := os.Remove(w.endpoint); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// Dial opens a worker client to the side channel at endpoint. The main instance uses it inside a
// handler to call back the caller (see server.Call.Resource). The returned client must be
// disconnected before the handler returns.
func Dial(ctx context.Context, endpoint string, s serializer.IRPCSerializer) (*client.Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("call has no side channel")
	}

	config := common.ClientConfig{
		Endpoint:      endpoint,
		Transport:     common.TransportUnix,
		TimeoutSecond: common.DefaultTimeoutSecond,
	}
	c := client.NewClient(config,
		client.WithDialer(unix.NewUnixDialer(s, config.GetMaxFrameSize())),
		client.WithLogger(Logger),
	)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}
